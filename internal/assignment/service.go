// Package assignment は課題管理のドメインロジックを提供する。
package assignment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/hitoshi/assignman/internal/metrics"
	"github.com/hitoshi/assignman/internal/model"
	"github.com/hitoshi/assignman/internal/repository"
)

// メトリクスの操作ラベル。
const (
	opCreate    = "create"
	opList      = "list"
	opGet       = "get"
	opGetByUser = "get_by_user"
	opDelete    = "delete"
)

// maxInsertAttempts はID競合時を含めたInsertの最大試行回数。
const maxInsertAttempts = 2

// Service は課題管理のサービス層。
// 入力の検証、所有者の補完、ID競合時の再試行を担い、永続化はリポジトリに委譲する。
type Service struct {
	repo    repository.AssignmentRepository
	metrics metrics.MetricsCollector
}

// NewService はServiceの新しいインスタンスを生成する。
// collectorがnilの場合はメトリクスを記録しない。
func NewService(repo repository.AssignmentRepository, collector metrics.MetricsCollector) *Service {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Service{
		repo:    repo,
		metrics: collector,
	}
}

// Create は課題を作成し、採番されたIDを返す。
// 名前と所有者名は前後の空白のみ除去し、説明は入力どおりに保存する。空の名前は拒否する。
// 所有者フィールドが未指定の場合は呼び出し元のスコープに応じてプリンシパル名で補完する。
// ID競合は1回だけ再試行し、それでも競合する場合は内部エラーとして返す。
func (s *Service) Create(ctx context.Context, principal model.Principal, in model.AssignmentInput) (int64, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.User = strings.TrimSpace(in.User)
	in.Admin = strings.TrimSpace(in.Admin)

	if in.Name == "" {
		s.metrics.RecordAssignmentOp(opCreate, metrics.OutcomeInvalid)
		return 0, model.NewInvalidAssignmentError("name is required")
	}

	switch principal.Scope {
	case model.ScopeUser:
		if in.User == "" {
			in.User = principal.Username
		}
	case model.ScopeAdmin:
		if in.Admin == "" {
			in.Admin = principal.Username
		}
	}

	var lastErr error
	for attempt := 1; attempt <= maxInsertAttempts; attempt++ {
		id, err := s.repo.Insert(ctx, in)
		if err == nil {
			s.metrics.RecordAssignmentOp(opCreate, metrics.OutcomeSuccess)
			slog.Info("assignment created",
				slog.Int64("assignment_id", id),
				slog.String("scope", string(principal.Scope)),
				slog.String("principal", principal.Username),
			)
			return id, nil
		}
		if !errors.Is(err, model.ErrConflict) {
			s.metrics.RecordAssignmentOp(opCreate, metrics.OutcomeFailure)
			return 0, fmt.Errorf("課題の作成に失敗しました: %w", err)
		}

		lastErr = err
		slog.Warn("assignment id conflict",
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)
	}

	s.metrics.RecordAssignmentOp(opCreate, metrics.OutcomeConflict)
	return 0, fmt.Errorf("課題IDの競合が解消しませんでした: %w", lastErr)
}

// List は最大limit件の課題を返す。limitが1未満の場合は検証エラーを返す。
func (s *Service) List(ctx context.Context, limit int) ([]*model.Assignment, error) {
	if limit < 1 {
		s.metrics.RecordAssignmentOp(opList, metrics.OutcomeInvalid)
		return nil, model.NewInvalidLimitError(strconv.Itoa(limit))
	}

	assignments, err := s.repo.FindAll(ctx, limit)
	if err != nil {
		s.metrics.RecordAssignmentOp(opList, metrics.OutcomeFailure)
		return nil, fmt.Errorf("課題一覧の取得に失敗しました: %w", err)
	}

	s.metrics.RecordAssignmentOp(opList, metrics.OutcomeSuccess)
	return assignments, nil
}

// Get はIDで課題を取得する。
func (s *Service) Get(ctx context.Context, id int64) (*model.Assignment, error) {
	return s.findOne(ctx, opGet, model.FieldAssignmentID, id, strconv.FormatInt(id, 10))
}

// GetByUser は所有ユーザー名で課題を1件取得する。
// 複数該当する場合はリポジトリが返す最初の1件を返す。
func (s *Service) GetByUser(ctx context.Context, user string) (*model.Assignment, error) {
	return s.findOne(ctx, opGetByUser, model.FieldUser, user, user)
}

func (s *Service) findOne(ctx context.Context, op string, field model.AssignmentField, value any, key string) (*model.Assignment, error) {
	a, err := s.repo.FindByField(ctx, field, value)
	if err != nil {
		s.metrics.RecordAssignmentOp(op, metrics.OutcomeFailure)
		return nil, fmt.Errorf("課題の取得に失敗しました: %w", err)
	}
	if a == nil {
		s.metrics.RecordAssignmentOp(op, metrics.OutcomeNotFound)
		return nil, model.NewAssignmentNotFoundError(key)
	}

	s.metrics.RecordAssignmentOp(op, metrics.OutcomeSuccess)
	return a, nil
}

// Delete はIDで課題を削除する。
// 対象が存在しない場合は未検出エラー、ストアの障害はそのままエラーとして返し、両者を区別する。
func (s *Service) Delete(ctx context.Context, principal model.Principal, id int64) error {
	deleted, err := s.repo.DeleteByID(ctx, id)
	if err != nil {
		s.metrics.RecordAssignmentOp(opDelete, metrics.OutcomeFailure)
		return fmt.Errorf("課題の削除に失敗しました: %w", err)
	}
	if !deleted {
		s.metrics.RecordAssignmentOp(opDelete, metrics.OutcomeNotFound)
		return model.NewAssignmentNotFoundError(strconv.FormatInt(id, 10))
	}

	s.metrics.RecordAssignmentOp(opDelete, metrics.OutcomeSuccess)
	slog.Info("assignment deleted",
		slog.Int64("assignment_id", id),
		slog.String("principal", principal.Username),
	)
	return nil
}

// Ping はストアへの疎通を確認する。
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
