package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/assignman/internal/model"
	"github.com/lib/pq"
)

// uniqueViolation はPostgreSQLの一意制約違反のSQLSTATE。
const uniqueViolation = "23505"

// assignmentColumns はAssignmentFieldからassignmentsテーブルのカラム名への対応。
// userとadminはPostgreSQLの予約語を避けたカラム名に対応させる。
var assignmentColumns = map[model.AssignmentField]string{
	model.FieldAssignmentID: "assignment_id",
	model.FieldName:         "name",
	model.FieldDescription:  "description",
	model.FieldUser:         "user_name",
	model.FieldAdmin:        "admin_name",
}

const selectAssignmentColumns = `SELECT assignment_id, name, description, user_name, admin_name FROM assignments`

// PostgresAssignmentRepo はPostgreSQLを使用した課題リポジトリ。
// IDはBIGSERIALのシーケンスで採番するため、削除後も再利用されない。
type PostgresAssignmentRepo struct {
	db *sql.DB
}

// NewPostgresAssignmentRepo はPostgresAssignmentRepoを生成する。
func NewPostgresAssignmentRepo(db *sql.DB) *PostgresAssignmentRepo {
	return &PostgresAssignmentRepo{db: db}
}

// Insert は課題を保存し、採番したassignment_idを返す。
func (r *PostgresAssignmentRepo) Insert(ctx context.Context, in model.AssignmentInput) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO assignments (name, description, user_name, admin_name)
		 VALUES ($1, $2, $3, $4)
		 RETURNING assignment_id`,
		in.Name, in.Description, in.User, in.Admin,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %v", model.ErrConflict, err)
		}
		return 0, fmt.Errorf("failed to insert assignment: %w", err)
	}

	return id, nil
}

// FindAll は最大limit件の課題を返す。
func (r *PostgresAssignmentRepo) FindAll(ctx context.Context, limit int) ([]*model.Assignment, error) {
	rows, err := r.db.QueryContext(ctx,
		selectAssignmentColumns+` ORDER BY assignment_id LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	defer rows.Close()

	assignments := []*model.Assignment{}
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate assignments: %w", err)
	}

	return assignments, nil
}

// FindByField は指定フィールドが値に一致する課題を1件返す。見つからない場合はnilを返す。
func (r *PostgresAssignmentRepo) FindByField(ctx context.Context, field model.AssignmentField, value any) (*model.Assignment, error) {
	column, ok := assignmentColumns[field]
	if !ok {
		return nil, model.ValidateField(field)
	}

	// カラム名は固定の対応表からのみ取得するため、文字列連結でも安全
	row := r.db.QueryRowContext(ctx,
		selectAssignmentColumns+` WHERE `+column+` = $1 ORDER BY assignment_id LIMIT 1`,
		value,
	)
	a, err := scanAssignment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return a, nil
}

// DeleteByID は指定IDの課題を削除し、削除したかどうかを返す。
func (r *PostgresAssignmentRepo) DeleteByID(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM assignments WHERE assignment_id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete assignment: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return n > 0, nil
}

// Ping はPostgreSQLへの疎通を確認する。
func (r *PostgresAssignmentRepo) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", model.ErrConnectivity, err)
	}
	return nil
}

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAssignment(s rowScanner) (*model.Assignment, error) {
	a := &model.Assignment{}
	if err := s.Scan(&a.AssignmentID, &a.Name, &a.Description, &a.User, &a.Admin); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan assignment: %w", err)
	}
	return a, nil
}

// isUniqueViolation はエラーが一意制約違反かどうかを判定する。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}
