// Package model はドメインモデルを定義する。
package model

import "fmt"

// Assignment は永続化される課題レコードを表す。
// AssignmentIDはリポジトリが作成時に採番し、削除後も再利用しない。
type Assignment struct {
	AssignmentID int64  `json:"assignment_id" bson:"assignment_id"`
	Name         string `json:"name" bson:"name"`
	Description  string `json:"description" bson:"description"`
	User         string `json:"user,omitempty" bson:"user,omitempty"`
	Admin        string `json:"admin,omitempty" bson:"admin,omitempty"`
}

// AssignmentInput は課題作成時の入力を表す。IDは含まない。
type AssignmentInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	User        string `json:"user,omitempty"`
	Admin       string `json:"admin,omitempty"`
}

// AssignmentField はFindByFieldで検索可能なフィールド名を表す。
type AssignmentField string

const (
	FieldAssignmentID AssignmentField = "assignment_id"
	FieldName         AssignmentField = "name"
	FieldDescription  AssignmentField = "description"
	FieldUser         AssignmentField = "user"
	FieldAdmin        AssignmentField = "admin"
)

// DefaultListLimit は一覧取得時のデフォルト件数。
const DefaultListLimit = 5

// Valid はフィールド名が検索可能なものかを返す。
func (f AssignmentField) Valid() bool {
	switch f {
	case FieldAssignmentID, FieldName, FieldDescription, FieldUser, FieldAdmin:
		return true
	default:
		return false
	}
}

// ValidateField は未知のフィールド名に対してErrInvalidFieldをラップしたエラーを返す。
func ValidateField(f AssignmentField) error {
	if !f.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidField, string(f))
	}
	return nil
}
