package database

import (
	"context"
	"fmt"
	"time"

	"github.com/hitoshi/assignman/internal/model"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// ConnectMongo はMongoDBクライアントを生成し、pingで疎通を確認する。
// mongo.Clientは内部にコネクションプールを持ち、全リクエストで共有する。
// 疎通確認に失敗した場合はmodel.ErrConnectivityをラップしたエラーを返す。
func ConnectMongo(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	opts := options.Client().ApplyURI(uri)
	if timeout > 0 {
		opts.SetTimeout(timeout)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to MongoDB: %v", model.ErrConnectivity, err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%w: failed to ping MongoDB: %v", model.ErrConnectivity, err)
	}

	return client, nil
}
