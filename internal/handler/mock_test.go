package handler

import (
	"context"

	"github.com/hitoshi/assignman/internal/model"
)

// mockTokenService はTokenServiceInterfaceのモック。
type mockTokenService struct {
	scope      model.Scope
	issueFn    func(ctx context.Context, username, password string) (*model.Token, error)
	validateFn func(tokenString string) (string, error)
}

func (m *mockTokenService) Scope() model.Scope {
	return m.scope
}

func (m *mockTokenService) Issue(ctx context.Context, username, password string) (*model.Token, error) {
	return m.issueFn(ctx, username, password)
}

func (m *mockTokenService) Validate(tokenString string) (string, error) {
	return m.validateFn(tokenString)
}

// newStaticTokenService は固定トークンだけを受け付けるモックを返す。
func newStaticTokenService(scope model.Scope, token, username string) *mockTokenService {
	return &mockTokenService{
		scope: scope,
		issueFn: func(ctx context.Context, u, p string) (*model.Token, error) {
			return nil, model.NewInvalidCredentialsError()
		},
		validateFn: func(s string) (string, error) {
			if s != token {
				return "", model.NewCouldNotValidateError()
			}
			return username, nil
		},
	}
}

// mockAssignmentService はAssignmentServiceInterfaceのモック。
type mockAssignmentService struct {
	createFn    func(ctx context.Context, principal model.Principal, in model.AssignmentInput) (int64, error)
	listFn      func(ctx context.Context, limit int) ([]*model.Assignment, error)
	getFn       func(ctx context.Context, id int64) (*model.Assignment, error)
	getByUserFn func(ctx context.Context, user string) (*model.Assignment, error)
	deleteFn    func(ctx context.Context, principal model.Principal, id int64) error
}

func (m *mockAssignmentService) Create(ctx context.Context, principal model.Principal, in model.AssignmentInput) (int64, error) {
	return m.createFn(ctx, principal, in)
}

func (m *mockAssignmentService) List(ctx context.Context, limit int) ([]*model.Assignment, error) {
	return m.listFn(ctx, limit)
}

func (m *mockAssignmentService) Get(ctx context.Context, id int64) (*model.Assignment, error) {
	return m.getFn(ctx, id)
}

func (m *mockAssignmentService) GetByUser(ctx context.Context, user string) (*model.Assignment, error) {
	return m.getByUserFn(ctx, user)
}

func (m *mockAssignmentService) Delete(ctx context.Context, principal model.Principal, id int64) error {
	return m.deleteFn(ctx, principal, id)
}

// mockPinger はPingerのモック。
type mockPinger struct {
	pingFn func(ctx context.Context) error
}

func (m *mockPinger) Ping(ctx context.Context) error {
	return m.pingFn(ctx)
}
