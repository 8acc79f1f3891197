package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/mbolis/formforge/field"
	"github.com/mbolis/formforge/model"
	"github.com/mbolis/formforge/query"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

type FormStore struct {
	db *sql.DB
}

var formPolicy = query.Policy{
	Searchable:  []string{"title", "description"},
	Filterable:  []string{"status"},
	Sortable:    []string{"id", "title", "createdAt"},
	DefaultSort: "id",
	DateColumn:  "created_at",
	Aliases:     map[string]string{"createdAt": "created_at"},
}

// Create persists a form together with its fields and options in one
// transaction: parents before children, option reconciliation per field.
func (s *FormStore) Create(ctx context.Context, form *model.Form, fields []field.Raw) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, execErr("create_form.begin", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	var formID int
	err = tx.QueryRowContext(ctx, `
		INSERT INTO form (title, description, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`,
		form.Title, form.Description, formStatus(form.Status), now, now,
	).Scan(&formID)
	if err != nil {
		return 0, execErr("create_form.insert", err)
	}

	if err := s.saveFields(ctx, tx, formID, fields); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, execErr("create_form.commit", err)
	}
	return formID, nil
}

// Update replaces a form's own attributes and reconciles its field and
// option sets, all inside one transaction.
func (s *FormStore) Update(ctx context.Context, form *model.Form, fields []field.Raw) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return execErr("update_form.begin", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE form
		SET title = ?, description = ?, status = ?, updated_at = ?
		WHERE id = ?`,
		form.Title, form.Description, formStatus(form.Status), time.Now().UTC(), form.ID,
	)
	if err != nil {
		return execErr("update_form", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return execErr("update_form.verify", err)
	} else if n < 1 {
		return model.ErrNotFound
	}

	if err := s.saveFields(ctx, tx, form.ID, fields); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return execErr("update_form.commit", err)
	}
	return nil
}

// saveFields reconciles the submitted field list against the persisted
// one. Fields keep their identity through their id, exactly like options
// do: a known id updates in place, anything else inserts fresh, and rows
// the client no longer mentions are dropped at the end. Children resolve
// their parent reference through the fieldIndex map populated as parents
// are saved.
func (s *FormStore) saveFields(ctx context.Context, tx *sql.Tx, formID int, raws []field.Raw) error {
	existingIDs, err := s.fieldIDs(ctx, tx, formID)
	if err != nil {
		return err
	}

	parentIndexToID := map[int]int{}
	var keptIDs []int

	for _, raw := range raws {
		raw.FormID = formID
		field.ResolveParentID(&raw, parentIndexToID)

		def, err := field.New(raw)
		if err != nil {
			return err
		}
		settings, err := field.EncodeSettings(def)
		if err != nil {
			return errors.Wrap(err, "encode settings")
		}

		if def.ID > 0 && lo.Contains(existingIDs, def.ID) {
			_, err = tx.ExecContext(ctx, `
				UPDATE form_field
				SET type = ?, position = ?, row_index = ?, column_index = ?, width = ?, parent_id = ?, settings = ?
				WHERE id = ? AND form_id = ?`,
				string(def.Type), def.Position, def.RowIndex, def.ColumnIndex, def.Width,
				nullableID(def.ParentID), string(settings), def.ID, formID,
			)
			if err != nil {
				return execErr("save_fields.update", err)
			}
		} else {
			err = tx.QueryRowContext(ctx, `
				INSERT INTO form_field (form_id, type, position, row_index, column_index, width, parent_id, settings)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
				RETURNING id`,
				formID, string(def.Type), def.Position, def.RowIndex, def.ColumnIndex, def.Width,
				nullableID(def.ParentID), string(settings),
			).Scan(&def.ID)
			if err != nil {
				return execErr("save_fields.insert", err)
			}
		}
		keptIDs = append(keptIDs, def.ID)
		if raw.FieldIndex > 0 {
			parentIndexToID[raw.FieldIndex] = def.ID
		}

		if err := s.saveOptions(ctx, tx, def.ID, def.Options); err != nil {
			return err
		}
	}

	orphans := lo.Without(existingIDs, keptIDs...)
	if len(orphans) > 0 {
		_, err = tx.ExecContext(ctx,
			"DELETE FROM form_field WHERE form_id = ? AND id IN ("+placeholders(len(orphans))+")",
			append([]any{formID}, idArgs(orphans)...)...,
		)
		if err != nil {
			return execErr("save_fields.delete_orphans", err)
		}
	}
	return nil
}

// saveOptions applies the option partition: updates for preserved ids,
// inserts for the rest, then deletes the orphaned remainder.
func (s *FormStore) saveOptions(ctx context.Context, tx *sql.Tx, fieldID int, options []model.FieldOption) error {
	existingIDs, err := s.optionIDs(ctx, tx, fieldID)
	if err != nil {
		return err
	}

	part := field.PartitionOptions(options, existingIDs)

	for _, o := range part.ToUpdate {
		_, err := tx.ExecContext(ctx, `
			UPDATE field_option
			SET label = ?, value = ?, is_default = ?, position = ?
			WHERE id = ? AND field_id = ?`,
			o.Label, o.Value, o.IsDefault, o.Position, o.ID, fieldID,
		)
		if err != nil {
			return execErr("save_options.update", err)
		}
	}

	var insertedIDs []int
	for _, o := range part.ToInsert {
		var id int
		err := tx.QueryRowContext(ctx, `
			INSERT INTO field_option (field_id, label, value, is_default, position)
			VALUES (?, ?, ?, ?, ?)
			RETURNING id`,
			fieldID, o.Label, o.Value, o.IsDefault, o.Position,
		).Scan(&id)
		if err != nil {
			return execErr("save_options.insert", err)
		}
		insertedIDs = append(insertedIDs, id)
	}

	orphans := field.OrphanedOptions(existingIDs, part.SubmittedIDs, insertedIDs)
	if len(orphans) > 0 {
		_, err := tx.ExecContext(ctx,
			"DELETE FROM field_option WHERE field_id = ? AND id IN ("+placeholders(len(orphans))+")",
			append([]any{fieldID}, idArgs(orphans)...)...,
		)
		if err != nil {
			return execErr("save_options.delete_orphans", err)
		}
	}
	return nil
}

func (s *FormStore) fieldIDs(ctx context.Context, tx *sql.Tx, formID int) ([]int, error) {
	rows, err := tx.QueryContext(ctx, "SELECT id FROM form_field WHERE form_id = ?", formID)
	if err != nil {
		return nil, execErr("field_ids", err)
	}
	defer rows.Close()
	return scanIDs(rows, "field_ids")
}

func (s *FormStore) optionIDs(ctx context.Context, tx *sql.Tx, fieldID int) ([]int, error) {
	rows, err := tx.QueryContext(ctx, "SELECT id FROM field_option WHERE field_id = ?", fieldID)
	if err != nil {
		return nil, execErr("option_ids", err)
	}
	defer rows.Close()
	return scanIDs(rows, "option_ids")
}

func scanIDs(rows *sql.Rows, op string) ([]int, error) {
	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, execErr(op+".scan", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *FormStore) Get(ctx context.Context, id int) (*model.Form, error) {
	form := &model.Form{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, status, created_at, updated_at
		FROM form WHERE id = ?`,
		id,
	).Scan(&form.ID, &form.Title, &form.Description, &form.Status, &form.CreatedAt, &form.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, execErr("get_form", err)
	}

	form.Fields, err = s.Fields(ctx, id)
	if err != nil {
		return nil, err
	}
	return form, nil
}

// Fields loads a form's field list, re-validated through the factory so
// that storage rows and API payloads share one decode path.
func (s *FormStore) Fields(ctx context.Context, formID int) ([]model.FieldDefinition, error) {
	options, err := s.formOptions(ctx, formID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, position, row_index, column_index, width, parent_id, settings
		FROM form_field
		WHERE form_id = ?
		ORDER BY position, id`,
		formID,
	)
	if err != nil {
		return nil, execErr("get_fields", err)
	}
	defer rows.Close()

	var fields []model.FieldDefinition
	for rows.Next() {
		var (
			id, position         int
			typ, settings        string
			rowIdx, colIdx, wdth sql.NullInt64
			parentID             sql.NullInt64
		)
		err := rows.Scan(&id, &typ, &position, &rowIdx, &colIdx, &wdth, &parentID, &settings)
		if err != nil {
			return nil, execErr("get_fields.scan", err)
		}
		def, err := field.DecodeRow(
			id, formID, typ, position,
			intPtr(rowIdx), intPtr(colIdx), intPtr(wdth),
			int(parentID.Int64), []byte(settings), options[id],
		)
		if err != nil {
			return nil, err
		}
		fields = append(fields, def)
	}
	return fields, rows.Err()
}

func (s *FormStore) formOptions(ctx context.Context, formID int) (map[int][]model.FieldOption, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT o.id, o.field_id, o.label, o.value, o.is_default, o.position
		FROM field_option o
		INNER JOIN form_field f ON (f.id = o.field_id)
		WHERE f.form_id = ?
		ORDER BY o.position, o.id`,
		formID,
	)
	if err != nil {
		return nil, execErr("get_options", err)
	}
	defer rows.Close()

	options := map[int][]model.FieldOption{}
	for rows.Next() {
		o := model.FieldOption{}
		err := rows.Scan(&o.ID, &o.FieldID, &o.Label, &o.Value, &o.IsDefault, &o.Position)
		if err != nil {
			return nil, execErr("get_options.scan", err)
		}
		options[o.FieldID] = append(options[o.FieldID], o)
	}
	return options, rows.Err()
}

func (s *FormStore) Search(ctx context.Context, q model.QuerySpec) ([]model.Form, query.Meta, error) {
	clause, meta := query.Build(formPolicy, q)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, status, created_at, updated_at
		FROM form
		WHERE `+clause.Where+" "+clause.Order+clause.Limit,
		clause.Args...,
	)
	if err != nil {
		return nil, meta, execErr("search_forms", err)
	}
	defer rows.Close()

	forms := []model.Form{}
	for rows.Next() {
		f := model.Form{}
		err := rows.Scan(&f.ID, &f.Title, &f.Description, &f.Status, &f.CreatedAt, &f.UpdatedAt)
		if err != nil {
			return nil, meta, execErr("search_forms.scan", err)
		}
		forms = append(forms, f)
	}
	if err := rows.Err(); err != nil {
		return nil, meta, execErr("search_forms.rows", err)
	}

	meta.Total, err = query.Count(ctx, s.db, "search_forms.count", "form", "*", clause)
	if err != nil {
		return nil, meta, err
	}
	return forms, meta, nil
}

func (s *FormStore) Delete(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM form WHERE id = ?", id)
	if err != nil {
		return execErr("delete_form", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return execErr("delete_form.verify", err)
	} else if n < 1 {
		return model.ErrNotFound
	}
	return nil
}

func formStatus(status string) string {
	if status == "" {
		return "published"
	}
	return status
}
