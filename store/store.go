// Package store implements the repositories over the parameterized-query
// executor. All statements use bound parameters; column names in dynamic
// clauses only ever come from the query package's allow-lists.
package store

import (
	"database/sql"
	"strings"

	"github.com/mbolis/formforge/model"
)

type Store struct {
	Forms         *FormStore
	Entries       *EntryStore
	Notifications *NotificationStore
}

func New(db *sql.DB) *Store {
	return &Store{
		Forms:         &FormStore{db: db},
		Entries:       &EntryStore{db: db},
		Notifications: &NotificationStore{db: db},
	}
}

func execErr(op string, err error) error {
	return &model.QueryExecutionError{Op: op, Err: err}
}

// placeholders renders "?, ?, ?" for an id list bound into an IN clause.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func idArgs(ids []int) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

func nullableID(id int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(id), Valid: id > 0}
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}
