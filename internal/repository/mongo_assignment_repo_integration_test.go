package repository

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/assignman/internal/database"
	"github.com/hitoshi/assignman/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupMongoRepo は実MongoDBに接続したリポジトリを返す。
// MONGO_TEST_URIが未設定、または接続できない場合はスキップする。
// テストごとに専用のデータベースを作成し、終了時に削除する。
func setupMongoRepo(t *testing.T) *MongoAssignmentRepo {
	t.Helper()

	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URIが未設定のためスキップ")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := database.ConnectMongo(ctx, uri, 5*time.Second)
	if err != nil {
		t.Skipf("テスト用MongoDBに接続できません（スキップ）: %v", err)
	}

	db := client.Database(fmt.Sprintf("assignman_test_%d", time.Now().UnixNano()))
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})

	repo := NewMongoAssignmentRepo(db, "UserAssignments")
	require.NoError(t, repo.EnsureSchema(ctx))
	return repo
}

func TestMongoAssignmentRepo_ConcurrentInsertsAreSequential(t *testing.T) {
	repo := setupMongoRepo(t)
	ctx := context.Background()

	const n = 50
	ids := make([]int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := repo.Insert(ctx, model.AssignmentInput{Name: fmt.Sprintf("A%d", i)})
			assert.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for i, id := range ids {
		assert.Equal(t, int64(i+1), id)
	}

	all, err := repo.FindAll(ctx, n+10)
	require.NoError(t, err)
	assert.Len(t, all, n)
}

func TestMongoAssignmentRepo_IDsAreNotReusedAfterDelete(t *testing.T) {
	repo := setupMongoRepo(t)
	ctx := context.Background()

	id1, err := repo.Insert(ctx, model.AssignmentInput{Name: "A"})
	require.NoError(t, err)
	id2, err := repo.Insert(ctx, model.AssignmentInput{Name: "B"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id1)
	assert.Equal(t, int64(2), id2)

	deleted, err := repo.DeleteByID(ctx, id2)
	require.NoError(t, err)
	assert.True(t, deleted)

	id3, err := repo.Insert(ctx, model.AssignmentInput{Name: "C"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), id3)

	deleted, err = repo.DeleteByID(ctx, id2)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestMongoAssignmentRepo_EnsureSchemaSeedsCounterFromExistingDocuments(t *testing.T) {
	repo := setupMongoRepo(t)
	ctx := context.Background()

	_, err := repo.coll.InsertOne(ctx, model.Assignment{AssignmentID: 7, Name: "legacy"})
	require.NoError(t, err)
	require.NoError(t, repo.EnsureSchema(ctx))

	id, err := repo.Insert(ctx, model.AssignmentInput{Name: "next"})
	require.NoError(t, err)
	assert.Equal(t, int64(8), id)
}

func TestMongoAssignmentRepo_StoresTextVerbatim(t *testing.T) {
	repo := setupMongoRepo(t)
	ctx := context.Background()

	in := model.AssignmentInput{Name: "Implement Stack<T>", Description: "use a<b and <br> tags", User: "user1"}
	id, err := repo.Insert(ctx, in)
	require.NoError(t, err)

	got, err := repo.FindByField(ctx, model.FieldAssignmentID, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, in.Name, got.Name)
	assert.Equal(t, in.Description, got.Description)

	byUser, err := repo.FindByField(ctx, model.FieldUser, "user1")
	require.NoError(t, err)
	require.NotNil(t, byUser)
	assert.Equal(t, id, byUser.AssignmentID)
}
