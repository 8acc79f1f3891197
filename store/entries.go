package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/mbolis/formforge/model"
	"github.com/mbolis/formforge/query"
	"github.com/pkg/errors"
)

type EntryStore struct {
	db *sql.DB
}

// entryFrom joins per-entry field values and the owning form so that
// fieldValue and formName work as pseudo-columns. The virtual formName
// sort remaps to f.title at SQL-building time through the alias map.
const entryFrom = `entry e
		INNER JOIN form f ON (f.id = e.form_id)
		LEFT OUTER JOIN entry_field v ON (v.entry_id = e.id)`

var entryPolicy = query.Policy{
	Searchable:  []string{"v.field_value", "f.title"},
	Filterable:  []string{"formId", "status", "starred"},
	Sortable:    []string{"id", "status", "createdAt", "formName"},
	DefaultSort: "id",
	DateColumn:  "e.created_at",
	Aliases: map[string]string{
		"id":        "e.id",
		"status":    "e.status",
		"starred":   "e.starred",
		"formId":    "e.form_id",
		"createdAt": "e.created_at",
		"formName":  "f.title",
	},
}

// Insert persists one accepted submission and its assembled field values
// in a single transaction.
func (s *EntryStore) Insert(ctx context.Context, entry *model.Entry, values []model.EntryField) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, execErr("insert_entry.begin", err)
	}
	defer tx.Rollback()

	status := entry.Status
	if status == "" {
		status = model.EntryUnread
	}
	var entryID int
	err = tx.QueryRowContext(ctx, `
		INSERT INTO entry (form_id, user_id, status, starred, ip_address, user_agent, source_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		entry.FormID, nullableUser(entry.UserID), status, entry.Starred,
		entry.IPAddress, entry.UserAgent, entry.SourceURL, time.Now().UTC(),
	).Scan(&entryID)
	if err != nil {
		return 0, execErr("insert_entry", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entry_field (entry_id, field_id, field_value)
		VALUES (?, ?, ?)`)
	if err != nil {
		return 0, execErr("insert_entry.fields.prepare", err)
	}
	defer stmt.Close()

	for _, v := range values {
		if _, err := stmt.ExecContext(ctx, entryID, v.FieldID, v.FieldValue); err != nil {
			return 0, execErr("insert_entry.fields", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, execErr("insert_entry.commit", err)
	}
	return entryID, nil
}

func (s *EntryStore) Get(ctx context.Context, id int) (*model.Entry, error) {
	e := &model.Entry{}
	var userID sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT e.id, e.form_id, e.user_id, e.status, e.starred,
			e.ip_address, e.user_agent, e.source_url, e.created_at, f.title
		FROM entry e
		INNER JOIN form f ON (f.id = e.form_id)
		WHERE e.id = ?`,
		id,
	).Scan(
		&e.ID, &e.FormID, &userID, &e.Status, &e.Starred,
		&e.IPAddress, &e.UserAgent, &e.SourceURL, &e.CreatedAt, &e.FormName,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, execErr("get_entry", err)
	}
	e.UserID = intPtr(userID)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, field_id, field_value
		FROM entry_field
		WHERE entry_id = ?
		ORDER BY field_id`,
		id,
	)
	if err != nil {
		return nil, execErr("get_entry.fields", err)
	}
	defer rows.Close()

	for rows.Next() {
		v := model.EntryField{EntryID: id}
		if err := rows.Scan(&v.ID, &v.FieldID, &v.FieldValue); err != nil {
			return nil, execErr("get_entry.fields.scan", err)
		}
		e.Fields = append(e.Fields, v)
	}
	return e, rows.Err()
}

func (s *EntryStore) Search(ctx context.Context, q model.QuerySpec) ([]model.Entry, query.Meta, error) {
	clause, meta := query.Build(entryPolicy, q)

	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT e.id, e.form_id, e.user_id, e.status, e.starred,
			e.ip_address, e.user_agent, e.source_url, e.created_at, f.title
		FROM `+entryFrom+`
		WHERE `+clause.Where+" "+clause.Order+clause.Limit,
		clause.Args...,
	)
	if err != nil {
		return nil, meta, execErr("search_entries", err)
	}
	defer rows.Close()

	entries := []model.Entry{}
	for rows.Next() {
		e := model.Entry{}
		var userID sql.NullInt64
		err := rows.Scan(
			&e.ID, &e.FormID, &userID, &e.Status, &e.Starred,
			&e.IPAddress, &e.UserAgent, &e.SourceURL, &e.CreatedAt, &e.FormName,
		)
		if err != nil {
			return nil, meta, execErr("search_entries.scan", err)
		}
		e.UserID = intPtr(userID)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, meta, execErr("search_entries.rows", err)
	}

	meta.Total, err = query.Count(ctx, s.db, "search_entries.count", entryFrom, "DISTINCT e.id", clause)
	if err != nil {
		return nil, meta, err
	}
	return entries, meta, nil
}

func (s *EntryStore) UpdateStatus(ctx context.Context, id int, status string) error {
	return s.updateOne(ctx, "update_entry_status",
		"UPDATE entry SET status = ? WHERE id = ?", status, id)
}

func (s *EntryStore) SetStarred(ctx context.Context, id int, starred bool) error {
	return s.updateOne(ctx, "star_entry",
		"UPDATE entry SET starred = ? WHERE id = ?", starred, id)
}

func (s *EntryStore) Delete(ctx context.Context, id int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return execErr("delete_entry.begin", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM entry_field WHERE entry_id = ?", id); err != nil {
		return execErr("delete_entry.fields", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM entry WHERE id = ?", id)
	if err != nil {
		return execErr("delete_entry", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return execErr("delete_entry.verify", err)
	} else if n < 1 {
		return model.ErrNotFound
	}
	return tx.Commit()
}

// Exists implements the assembler's duplicate checker: has this exact
// value already been stored for this field on this form?
func (s *EntryStore) Exists(ctx context.Context, formID, fieldID int, value string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1
		FROM entry_field v
		INNER JOIN entry e ON (e.id = v.entry_id)
		WHERE e.form_id = ? AND v.field_id = ? AND v.field_value = ?
		LIMIT 1`,
		formID, fieldID, value,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, execErr("duplicate_check", err)
	}
	return true, nil
}

func (s *EntryStore) updateOne(ctx context.Context, op, stmt string, args ...any) error {
	res, err := s.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return execErr(op, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return execErr(op+".verify", err)
	} else if n < 1 {
		return model.ErrNotFound
	}
	return nil
}

func nullableUser(id *int) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*id), Valid: true}
}
