package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/hitoshi/assignman/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// assignmentIDIndexName はassignment_idの一意インデックス名。
const assignmentIDIndexName = "assignment_id_unique"

// counterDoc はID採番用カウンタドキュメント。
type counterDoc struct {
	ID  string `bson:"_id"`
	Seq int64  `bson:"seq"`
}

// MongoAssignmentRepo はMongoDBのコレクションを使用した課題リポジトリ。
// IDは<collection>_countersコレクションのカウンタを$incで原子的に採番する。
type MongoAssignmentRepo struct {
	db        *mongo.Database
	coll      *mongo.Collection
	counters  *mongo.Collection
	counterID string
}

// NewMongoAssignmentRepo はMongoAssignmentRepoを生成する。
func NewMongoAssignmentRepo(db *mongo.Database, collection string) *MongoAssignmentRepo {
	return &MongoAssignmentRepo{
		db:        db,
		coll:      db.Collection(collection),
		counters:  db.Collection(collection + "_counters"),
		counterID: collection,
	}
}

// EnsureSchema はassignment_idの一意インデックスを作成し、
// カウンタを既存ドキュメントの最大IDまで引き上げる。
// 何度実行しても結果は変わらない。
func (r *MongoAssignmentRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: string(model.FieldAssignmentID), Value: 1}},
		Options: options.Index().SetUnique(true).SetName(assignmentIDIndexName),
	})
	if err != nil {
		return fmt.Errorf("failed to create assignment_id index: %w", err)
	}

	maxID, err := r.maxAssignmentID(ctx)
	if err != nil {
		return err
	}

	// $maxはカウンタが既に大きい場合は何もしない
	_, err = r.counters.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: r.counterID}},
		bson.D{{Key: "$max", Value: bson.D{{Key: "seq", Value: maxID}}}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to seed assignment counter: %w", err)
	}

	return nil
}

// maxAssignmentID は既存ドキュメントの最大assignment_idを返す。空の場合は0。
func (r *MongoAssignmentRepo) maxAssignmentID(ctx context.Context) (int64, error) {
	var latest model.Assignment
	err := r.coll.FindOne(ctx,
		bson.D{},
		options.FindOne().
			SetSort(bson.D{{Key: string(model.FieldAssignmentID), Value: -1}}).
			SetProjection(bson.D{{Key: string(model.FieldAssignmentID), Value: 1}}),
	).Decode(&latest)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to find latest assignment: %w", err)
	}
	return latest.AssignmentID, nil
}

// nextID はカウンタを原子的に1進めて新しいIDを返す。
func (r *MongoAssignmentRepo) nextID(ctx context.Context) (int64, error) {
	var c counterDoc
	err := r.counters.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: r.counterID}},
		bson.D{{Key: "$inc", Value: bson.D{{Key: "seq", Value: int64(1)}}}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&c)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate assignment id: %w", err)
	}
	return c.Seq, nil
}

// Insert は課題を保存し、採番したassignment_idを返す。
func (r *MongoAssignmentRepo) Insert(ctx context.Context, in model.AssignmentInput) (int64, error) {
	id, err := r.nextID(ctx)
	if err != nil {
		return 0, err
	}

	doc := model.Assignment{
		AssignmentID: id,
		Name:         in.Name,
		Description:  in.Description,
		User:         in.User,
		Admin:        in.Admin,
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return 0, fmt.Errorf("%w: assignment_id %d already exists", model.ErrConflict, id)
		}
		return 0, fmt.Errorf("failed to insert assignment: %w", err)
	}

	return id, nil
}

// FindAll は最大limit件の課題を自然順で返す。
func (r *MongoAssignmentRepo) FindAll(ctx context.Context, limit int) ([]*model.Assignment, error) {
	cursor, err := r.coll.Find(ctx, bson.D{}, options.Find().SetLimit(int64(limit)))
	if err != nil {
		return nil, fmt.Errorf("failed to find assignments: %w", err)
	}
	defer cursor.Close(ctx)

	assignments := []*model.Assignment{}
	if err := cursor.All(ctx, &assignments); err != nil {
		return nil, fmt.Errorf("failed to decode assignments: %w", err)
	}

	return assignments, nil
}

// FindByField は指定フィールドが値に一致する課題を1件返す。見つからない場合はnilを返す。
func (r *MongoAssignmentRepo) FindByField(ctx context.Context, field model.AssignmentField, value any) (*model.Assignment, error) {
	if err := model.ValidateField(field); err != nil {
		return nil, err
	}

	var a model.Assignment
	err := r.coll.FindOne(ctx, bson.D{{Key: string(field), Value: value}}).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find assignment by %s: %w", field, err)
	}

	return &a, nil
}

// DeleteByID は指定IDの課題を削除し、削除したかどうかを返す。
func (r *MongoAssignmentRepo) DeleteByID(ctx context.Context, id int64) (bool, error) {
	res, err := r.coll.DeleteOne(ctx, bson.D{{Key: string(model.FieldAssignmentID), Value: id}})
	if err != nil {
		return false, fmt.Errorf("failed to delete assignment: %w", err)
	}
	return res.DeletedCount > 0, nil
}

// Ping はMongoDBへの疎通を確認する。
func (r *MongoAssignmentRepo) Ping(ctx context.Context) error {
	if err := r.db.Client().Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("%w: %v", model.ErrConnectivity, err)
	}
	return nil
}
