package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mbolis/formforge/config"
	"github.com/mbolis/formforge/database"
	"github.com/mbolis/formforge/field"
	"github.com/mbolis/formforge/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testStore opens a throwaway file-backed database. ":memory:" would give
// every pooled connection its own empty database.
func testStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.Open(config.Config{
		DBUrl: filepath.Join(t.TempDir(), "test.sqlite"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db)
}

func intp(n int) *int { return &n }

func contactFormFields() []field.Raw {
	return []field.Raw{
		{
			Type: "name", Position: 0, FieldIndex: 1,
			RowIndex: intp(0), ColumnIndex: intp(0), Width: intp(100),
			General: field.RawGeneral{Label: "Full name"},
		},
		{
			Type: "text", Position: 1, ParentIndex: 1,
			General: field.RawGeneral{Label: "First"},
		},
		{
			Type: "text", Position: 2, ParentIndex: 1,
			General: field.RawGeneral{Label: "Last"},
		},
		{
			Type: "email", Position: 3,
			General:  field.RawGeneral{Label: "Email", Required: true},
			Advanced: model.AdvancedSettings{NoDuplicates: true},
		},
		{
			Type: "select", Position: 4,
			General: field.RawGeneral{Label: "Topic"},
			Options: []model.FieldOption{
				{Label: "Sales", Value: "sales", Position: 0},
				{Label: "Support", Value: "support", Position: 1, IsDefault: true},
			},
		},
	}
}

func createContactForm(t *testing.T, s *Store) *model.Form {
	t.Helper()
	id, err := s.Forms.Create(context.Background(), &model.Form{
		Title:       "Contact us",
		Description: "Drop us a line",
	}, contactFormFields())
	require.NoError(t, err)

	form, err := s.Forms.Get(context.Background(), id)
	require.NoError(t, err)
	return form
}

func TestFormCreateAndGet(t *testing.T) {
	s := testStore(t)
	form := createContactForm(t, s)

	assert.Equal(t, "Contact us", form.Title)
	assert.Equal(t, "published", form.Status, "status defaults on create")
	require.Len(t, form.Fields, 5)

	name := form.Fields[0]
	assert.Equal(t, model.FieldName, name.Type)
	assert.Equal(t, 100, name.Width)
	assert.True(t, name.General.Visible)

	// children resolved their parent reference through the field index
	assert.Equal(t, name.ID, form.Fields[1].ParentID)
	assert.Equal(t, name.ID, form.Fields[2].ParentID)
	assert.Zero(t, form.Fields[3].ParentID)

	email := form.Fields[3]
	assert.True(t, email.General.Required)
	assert.True(t, email.Advanced.NoDuplicates)

	topic := form.Fields[4]
	require.Len(t, topic.Options, 2)
	assert.Equal(t, "sales", topic.Options[0].Value)
	assert.True(t, topic.Options[1].IsDefault)
	assert.Positive(t, topic.Options[0].ID)
}

func TestFormGet_NotFound(t *testing.T) {
	s := testStore(t)
	_, err := s.Forms.Get(context.Background(), 999)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestFormUpdate_ReconcilesFieldsAndOptions(t *testing.T) {
	s := testStore(t)
	form := createContactForm(t, s)
	topic := form.Fields[4]
	keptOptionID := topic.Options[1].ID

	// keep the email and topic fields, rename one option, add one, drop one
	update := []field.Raw{
		{
			ID: form.Fields[3].ID, Type: "email", Position: 0,
			General: field.RawGeneral{Label: "Work email", Required: true},
		},
		{
			ID: topic.ID, Type: "select", Position: 1,
			General: field.RawGeneral{Label: "Topic"},
			Options: []model.FieldOption{
				{ID: keptOptionID, Label: "Support & help", Value: "support", Position: 0},
				{Label: "Billing", Value: "billing", Position: 1},
			},
		},
	}
	err := s.Forms.Update(context.Background(), &model.Form{
		ID: form.ID, Title: "Contact", Description: "Drop us a line", Status: "draft",
	}, update)
	require.NoError(t, err)

	got, err := s.Forms.Get(context.Background(), form.ID)
	require.NoError(t, err)
	assert.Equal(t, "draft", got.Status)
	require.Len(t, got.Fields, 2, "unsubmitted fields are dropped")

	email := got.Fields[0]
	assert.Equal(t, form.Fields[3].ID, email.ID, "field identity preserved")
	assert.Equal(t, "Work email", email.General.Label)

	options := got.Fields[1].Options
	require.Len(t, options, 2)
	assert.Equal(t, keptOptionID, options[0].ID, "option identity preserved")
	assert.Equal(t, "Support & help", options[0].Label)
	assert.NotEqual(t, topic.Options[0].ID, options[1].ID, "dropped option is gone, new one inserted")
	assert.Equal(t, "billing", options[1].Value)
}

func TestFormUpdate_StaleOptionIDInsertsFresh(t *testing.T) {
	s := testStore(t)
	form := createContactForm(t, s)
	topic := form.Fields[4]

	update := []field.Raw{
		{
			ID: topic.ID, Type: "select", Position: 0,
			General: field.RawGeneral{Label: "Topic"},
			Options: []model.FieldOption{
				{ID: 98765, Label: "Ghost", Value: "ghost", Position: 0},
			},
		},
	}
	err := s.Forms.Update(context.Background(), &model.Form{
		ID: form.ID, Title: form.Title, Description: form.Description,
	}, update)
	require.NoError(t, err)

	got, err := s.Forms.Get(context.Background(), form.ID)
	require.NoError(t, err)
	options := got.Fields[0].Options
	require.Len(t, options, 1)
	assert.NotEqual(t, 98765, options[0].ID)
	assert.Equal(t, "ghost", options[0].Value)
}

func TestFormUpdate_NotFound(t *testing.T) {
	s := testStore(t)
	err := s.Forms.Update(context.Background(), &model.Form{ID: 999, Title: "x"}, nil)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestFormUpdate_InvalidFieldRollsBack(t *testing.T) {
	s := testStore(t)
	form := createContactForm(t, s)

	err := s.Forms.Update(context.Background(), &model.Form{
		ID: form.ID, Title: "Broken",
	}, []field.Raw{{Type: "hologram", Position: 0}})
	require.Error(t, err)
	assert.True(t, model.IsValidation(err))

	got, err := s.Forms.Get(context.Background(), form.ID)
	require.NoError(t, err)
	assert.Equal(t, "Contact us", got.Title, "whole save rolled back")
	assert.Len(t, got.Fields, 5)
}

func TestFormSearch(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	for _, title := range []string{"Contact us", "Feedback", "Contest entry"} {
		_, err := s.Forms.Create(ctx, &model.Form{Title: title}, nil)
		require.NoError(t, err)
	}

	forms, meta, err := s.Forms.Search(ctx, model.QuerySpec{Search: "cont"})
	require.NoError(t, err)
	assert.Len(t, forms, 2)
	assert.Equal(t, 2, meta.Total)

	forms, meta, err = s.Forms.Search(ctx, model.QuerySpec{PerPage: "2", Page: 2, OrderBy: "title"})
	require.NoError(t, err)
	require.Len(t, forms, 1)
	assert.Equal(t, "Feedback", forms[0].Title)
	assert.Equal(t, 3, meta.Total)
	assert.Equal(t, 2, meta.Page)
}

func TestFormDelete(t *testing.T) {
	s := testStore(t)
	form := createContactForm(t, s)

	require.NoError(t, s.Forms.Delete(context.Background(), form.ID))
	_, err := s.Forms.Get(context.Background(), form.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	// fields and options cascade with the form
	fields, err := s.Forms.Fields(context.Background(), form.ID)
	require.NoError(t, err)
	assert.Empty(t, fields)

	assert.ErrorIs(t, s.Forms.Delete(context.Background(), form.ID), model.ErrNotFound)
}

func insertEntry(t *testing.T, s *Store, form *model.Form, name, email string) int {
	t.Helper()
	id, err := s.Entries.Insert(context.Background(), &model.Entry{
		FormID:    form.ID,
		IPAddress: "10.0.0.1",
		UserAgent: "test-agent",
		SourceURL: "https://example.com/contact",
	}, []model.EntryField{
		{FieldID: form.Fields[0].ID, FieldValue: name},
		{FieldID: form.Fields[3].ID, FieldValue: email},
	})
	require.NoError(t, err)
	return id
}

func TestEntryInsertAndGet(t *testing.T) {
	s := testStore(t)
	form := createContactForm(t, s)
	id := insertEntry(t, s, form, "Jane Doe", "jane@example.com")

	entry, err := s.Entries.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, form.ID, entry.FormID)
	assert.Equal(t, model.EntryUnread, entry.Status, "status defaults to unread")
	assert.Equal(t, "Contact us", entry.FormName)
	assert.Nil(t, entry.UserID)
	require.Len(t, entry.Fields, 2)
	assert.Equal(t, "Jane Doe", entry.Fields[0].FieldValue)
}

func TestEntryGet_NotFound(t *testing.T) {
	s := testStore(t)
	_, err := s.Entries.Get(context.Background(), 999)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestEntrySearch(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	form := createContactForm(t, s)
	first := insertEntry(t, s, form, "Jane Doe", "jane@example.com")
	insertEntry(t, s, form, "John Smith", "john@example.com")

	require.NoError(t, s.Entries.UpdateStatus(ctx, first, model.EntryRead))

	// full-text over field values; the join must not duplicate entries
	entries, meta, err := s.Entries.Search(ctx, model.QuerySpec{Search: "jane"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, first, entries[0].ID)
	assert.Equal(t, 1, meta.Total)

	// search by form title matches every entry of the form, once each
	entries, meta, err = s.Entries.Search(ctx, model.QuerySpec{Search: "Contact"})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, 2, meta.Total)

	entries, _, err = s.Entries.Search(ctx, model.QuerySpec{
		Filters: map[string]string{"status": model.EntryRead},
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, first, entries[0].ID)

	entries, _, err = s.Entries.Search(ctx, model.QuerySpec{
		OrderBy: "formName", Order: "desc", PerPage: model.PerPageAll,
	})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestEntrySearch_DateRange(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	form := createContactForm(t, s)
	insertEntry(t, s, form, "Jane Doe", "jane@example.com")

	today := time.Now().UTC().Format("2006-01-02")
	tomorrow := time.Now().UTC().Add(24 * time.Hour).Format("2006-01-02")

	entries, meta, err := s.Entries.Search(ctx, model.QuerySpec{DateFrom: today})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, 1, meta.Total)

	entries, meta, err = s.Entries.Search(ctx, model.QuerySpec{DateFrom: tomorrow})
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Zero(t, meta.Total)
}

func TestEntryStatusAndStar(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	form := createContactForm(t, s)
	id := insertEntry(t, s, form, "Jane Doe", "jane@example.com")

	require.NoError(t, s.Entries.UpdateStatus(ctx, id, model.EntryRead))
	require.NoError(t, s.Entries.SetStarred(ctx, id, true))

	entry, err := s.Entries.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.EntryRead, entry.Status)
	assert.True(t, entry.Starred)

	assert.ErrorIs(t, s.Entries.UpdateStatus(ctx, 999, model.EntryRead), model.ErrNotFound)
	assert.ErrorIs(t, s.Entries.SetStarred(ctx, 999, true), model.ErrNotFound)
}

func TestEntryDelete(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	form := createContactForm(t, s)
	id := insertEntry(t, s, form, "Jane Doe", "jane@example.com")

	require.NoError(t, s.Entries.Delete(ctx, id))
	_, err := s.Entries.Get(ctx, id)
	assert.ErrorIs(t, err, model.ErrNotFound)

	assert.ErrorIs(t, s.Entries.Delete(ctx, id), model.ErrNotFound)
}

func TestEntryExists(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	form := createContactForm(t, s)
	insertEntry(t, s, form, "Jane Doe", "jane@example.com")
	emailField := form.Fields[3].ID

	exists, err := s.Entries.Exists(ctx, form.ID, emailField, "jane@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = s.Entries.Exists(ctx, form.ID, emailField, "other@example.com")
	require.NoError(t, err)
	assert.False(t, exists)

	// values never collide across forms
	other := createContactForm(t, s)
	exists, err = s.Entries.Exists(ctx, other.ID, emailField, "jane@example.com")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestNotificationCRUD(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	form := createContactForm(t, s)

	id, err := s.Notifications.Create(ctx, &model.Notification{
		FormID:    form.ID,
		Name:      "Admin alert",
		Status:    "active",
		Subject:   "New submission",
		Recipient: "admin@example.com",
	})
	require.NoError(t, err)

	n, err := s.Notifications.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Admin alert", n.Name)

	n.Recipient = "ops@example.com"
	require.NoError(t, s.Notifications.Update(ctx, n))

	n, err = s.Notifications.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", n.Recipient)

	list, meta, err := s.Notifications.Search(ctx, model.QuerySpec{Search: "alert"})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, meta.Total)

	require.NoError(t, s.Notifications.Delete(ctx, id))
	_, err = s.Notifications.Get(ctx, id)
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.ErrorIs(t, s.Notifications.Delete(ctx, id), model.ErrNotFound)
}

func TestNotificationCreate_RequiresForm(t *testing.T) {
	s := testStore(t)
	_, err := s.Notifications.Create(context.Background(), &model.Notification{Name: "x"})
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
}
