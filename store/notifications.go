package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/mbolis/formforge/model"
	"github.com/mbolis/formforge/query"
	"github.com/pkg/errors"
)

// NotificationStore holds per-form notification configuration. Delivery
// itself happens elsewhere; this layer only stores and searches the
// definitions.
type NotificationStore struct {
	db *sql.DB
}

var notificationPolicy = query.Policy{
	Searchable:  []string{"name", "subject", "recipient"},
	Filterable:  []string{"formId", "status"},
	Sortable:    []string{"id", "name", "createdAt"},
	DefaultSort: "id",
	DateColumn:  "created_at",
	Aliases: map[string]string{
		"formId":    "form_id",
		"createdAt": "created_at",
	},
}

func (s *NotificationStore) Create(ctx context.Context, n *model.Notification) (int, error) {
	if n.FormID == 0 {
		return 0, errors.Wrap(model.ErrInvalidArgument, "missing formId")
	}
	var id int
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO notification (form_id, name, status, subject, recipient, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`,
		n.FormID, n.Name, n.Status, n.Subject, n.Recipient, time.Now().UTC(),
	).Scan(&id)
	if err != nil {
		return 0, execErr("create_notification", err)
	}
	return id, nil
}

func (s *NotificationStore) Update(ctx context.Context, n *model.Notification) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE notification
		SET name = ?, status = ?, subject = ?, recipient = ?
		WHERE id = ?`,
		n.Name, n.Status, n.Subject, n.Recipient, n.ID,
	)
	if err != nil {
		return execErr("update_notification", err)
	}
	if affected, err := res.RowsAffected(); err != nil {
		return execErr("update_notification.verify", err)
	} else if affected < 1 {
		return model.ErrNotFound
	}
	return nil
}

func (s *NotificationStore) Get(ctx context.Context, id int) (*model.Notification, error) {
	n := &model.Notification{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, form_id, name, status, subject, recipient, created_at
		FROM notification WHERE id = ?`,
		id,
	).Scan(&n.ID, &n.FormID, &n.Name, &n.Status, &n.Subject, &n.Recipient, &n.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, execErr("get_notification", err)
	}
	return n, nil
}

func (s *NotificationStore) Search(ctx context.Context, q model.QuerySpec) ([]model.Notification, query.Meta, error) {
	clause, meta := query.Build(notificationPolicy, q)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, form_id, name, status, subject, recipient, created_at
		FROM notification
		WHERE `+clause.Where+" "+clause.Order+clause.Limit,
		clause.Args...,
	)
	if err != nil {
		return nil, meta, execErr("search_notifications", err)
	}
	defer rows.Close()

	notifications := []model.Notification{}
	for rows.Next() {
		n := model.Notification{}
		err := rows.Scan(&n.ID, &n.FormID, &n.Name, &n.Status, &n.Subject, &n.Recipient, &n.CreatedAt)
		if err != nil {
			return nil, meta, execErr("search_notifications.scan", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, meta, execErr("search_notifications.rows", err)
	}

	meta.Total, err = query.Count(ctx, s.db, "search_notifications.count", "notification", "*", clause)
	if err != nil {
		return nil, meta, err
	}
	return notifications, meta, nil
}

func (s *NotificationStore) Delete(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM notification WHERE id = ?", id)
	if err != nil {
		return execErr("delete_notification", err)
	}
	if affected, err := res.RowsAffected(); err != nil {
		return execErr("delete_notification.verify", err)
	} else if affected < 1 {
		return model.ErrNotFound
	}
	return nil
}
