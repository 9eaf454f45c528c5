// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/assignman/internal/model"
)

// AssignmentRepository は課題データの永続化インターフェース。
// ストアに直接アクセスするのはこのインターフェースの実装のみとする。
type AssignmentRepository interface {
	// Insert は課題を保存し、採番したassignment_idを返す。
	// IDはストアの原子的なカウンタ（またはシーケンス）で採番し、削除後も再利用しない。
	// 一意制約違反の場合はmodel.ErrConflictをラップしたエラーを返す。
	Insert(ctx context.Context, in model.AssignmentInput) (int64, error)

	// FindAll は最大limit件の課題を返す。順序はストアの自然順で保証しない。
	FindAll(ctx context.Context, limit int) ([]*model.Assignment, error)

	// FindByField は指定フィールドが値に完全一致する課題を1件返す。
	// 見つからない場合はnilを返す。未知のフィールドにはmodel.ErrInvalidFieldを返す。
	FindByField(ctx context.Context, field model.AssignmentField, value any) (*model.Assignment, error)

	// DeleteByID は指定IDの課題を削除し、削除したかどうかを返す。
	// 存在しないIDの場合はfalseとnilを返す。ストア障害はエラーとして返す。
	DeleteByID(ctx context.Context, id int64) (bool, error)

	// Ping はストアへの接続が生きているかを確認する。
	Ping(ctx context.Context) error
}
