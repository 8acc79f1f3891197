package model

import (
	"encoding/json"
	"time"
)

type Form struct {
	ID          int               `json:"id,omitempty"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Status      string            `json:"status,omitempty"`
	CreatedAt   time.Time         `json:"createdAt,omitempty"`
	UpdatedAt   time.Time         `json:"updatedAt,omitempty"`
	Fields      []FieldDefinition `json:"fields"`
}

type FieldType string

const (
	FieldText        FieldType = "text"
	FieldEmail       FieldType = "email"
	FieldTextarea    FieldType = "textarea"
	FieldNumber      FieldType = "number"
	FieldPhone       FieldType = "phone"
	FieldWebsite     FieldType = "website"
	FieldName        FieldType = "name"
	FieldAddress     FieldType = "address"
	FieldRadio       FieldType = "radio"
	FieldCheckbox    FieldType = "checkbox"
	FieldSelect      FieldType = "select"
	FieldMultiSelect FieldType = "multi-select"
	FieldTime        FieldType = "time"
	FieldDate        FieldType = "date"
	FieldRecaptcha   FieldType = "recaptcha"
	FieldHCaptcha    FieldType = "hcaptcha"
	FieldTurnstile   FieldType = "turnstile"
)

var fieldTypes = map[FieldType]bool{
	FieldText: true, FieldEmail: true, FieldTextarea: true, FieldNumber: true,
	FieldPhone: true, FieldWebsite: true, FieldName: true, FieldAddress: true,
	FieldRadio: true, FieldCheckbox: true, FieldSelect: true, FieldMultiSelect: true,
	FieldTime: true, FieldDate: true,
	FieldRecaptcha: true, FieldHCaptcha: true, FieldTurnstile: true,
}

func (t FieldType) Valid() bool {
	return fieldTypes[t]
}

// HasOptions reports whether the type carries a selectable option list.
func (t FieldType) HasOptions() bool {
	switch t {
	case FieldRadio, FieldCheckbox, FieldSelect, FieldMultiSelect:
		return true
	}
	return false
}

// Compound reports whether the type is assembled from child sub-fields.
func (t FieldType) Compound() bool {
	return t == FieldName || t == FieldAddress
}

func (t FieldType) Captcha() bool {
	return t == FieldRecaptcha || t == FieldHCaptcha || t == FieldTurnstile
}

// GeneralSettings are the user-facing settings of a field. Numeric bounds
// are pointers so that absent and zero stay distinguishable in the
// persisted settings blob.
type GeneralSettings struct {
	Label        string   `json:"label"`
	Description  string   `json:"description,omitempty"`
	Placeholder  string   `json:"placeholder,omitempty"`
	Required     bool     `json:"required"`
	Visible      bool     `json:"visible"`
	CSSClasses   string   `json:"cssClasses,omitempty"`
	MinValue     *float64 `json:"minValue,omitempty"`
	MaxValue     *float64 `json:"maxValue,omitempty"`
	Step         *float64 `json:"step,omitempty"`
	PhoneFormat  string   `json:"phoneFormat,omitempty"`
	NumberFormat string   `json:"numberFormat,omitempty"`
}

type AdvancedSettings struct {
	DefaultValue  string `json:"defaultValue,omitempty"`
	MaxLength     int    `json:"maxLength,omitempty"`
	LabelPosition string `json:"labelPosition,omitempty"`
	NoDuplicates  bool   `json:"noDuplicates,omitempty"`
	Prefix        string `json:"prefix,omitempty"`
	Suffix        string `json:"suffix,omitempty"`
}

// FieldDefinition is one validated form field. ParentID is non-zero when
// the field is a sub-part of a compound field; such a field never has
// children of its own.
type FieldDefinition struct {
	ID          int              `json:"id,omitempty"`
	FormID      int              `json:"formId,omitempty"`
	FieldIndex  int              `json:"fieldIndex"`
	Type        FieldType        `json:"type"`
	Position    int              `json:"position"`
	RowIndex    int              `json:"rowIndex"`
	ColumnIndex int              `json:"columnIndex"`
	Width       int              `json:"width"`
	ParentID    int              `json:"parentId,omitempty"`
	General     GeneralSettings  `json:"general"`
	Advanced    AdvancedSettings `json:"advanced"`
	Options     []FieldOption    `json:"options,omitempty"`
}

type FieldOption struct {
	ID        int    `json:"id,omitempty"`
	FieldID   int    `json:"fieldId,omitempty"`
	Label     string `json:"label"`
	Value     string `json:"value"`
	IsDefault bool   `json:"isDefault,omitempty"`
	Position  int    `json:"position"`
}

const (
	EntryUnread = "unread"
	EntryRead   = "read"
)

type Entry struct {
	ID        int       `json:"id"`
	FormID    int       `json:"formId"`
	UserID    *int      `json:"userId,omitempty"`
	Status    string    `json:"status"`
	Starred   bool      `json:"starred"`
	IPAddress string    `json:"ipAddress"`
	UserAgent string    `json:"userAgent"`
	SourceURL string    `json:"sourceUrl"`
	CreatedAt time.Time `json:"createdAt"`

	FormName string       `json:"formName,omitempty"`
	Fields   []EntryField `json:"fields,omitempty"`
}

type EntryField struct {
	ID         int    `json:"id,omitempty"`
	EntryID    int    `json:"entryId,omitempty"`
	FieldID    int    `json:"fieldId"`
	FieldValue string `json:"fieldValue"`
}

type Notification struct {
	ID        int       `json:"id,omitempty"`
	FormID    int       `json:"formId"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Subject   string    `json:"subject"`
	Recipient string    `json:"recipient"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// PerPageAll disables pagination on a QuerySpec.
const PerPageAll = "all"

// QuerySpec describes one search/filter/sort/paginate request. It is
// rebuilt per request and never persisted.
type QuerySpec struct {
	Search   string            `json:"search"`
	Filters  map[string]string `json:"filters"`
	DateFrom string            `json:"dateFrom"`
	DateTo   string            `json:"dateTo"`
	OrderBy  string            `json:"orderBy"`
	Order    string            `json:"order"`
	Page     int               `json:"page"`
	PerPage  string            `json:"perPage"`
}

// Payload is one raw end-user submission body, keyed by field id. Values
// stay raw so that compound sub-objects can be scanned in document order.
type Payload map[string]json.RawMessage
