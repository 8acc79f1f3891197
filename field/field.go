// Package field holds the field data model factory, the persisted settings
// codec, the option set reconciler and the compound field resolver.
package field

import (
	"fmt"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/hashicorp/go-multierror"
	"github.com/mbolis/formforge/model"
)

const (
	maxTextLen        = 255
	maxOptionValueLen = 255
)

// FlexID tolerates the 0 / "0" / null spellings clients use for a parent
// reference before the parent has been persisted.
type FlexID int

func (id *FlexID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*id = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("parent id %q: %w", s, err)
	}
	*id = FlexID(n)
	return nil
}

func (id FlexID) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Itoa(int(id))), nil
}

// Raw is a field as it arrives from the API or is read back from storage,
// before validation. Both paths go through New, so a field round-tripped
// through the settings blob comes back identical.
type Raw struct {
	ID          int                    `json:"id"`
	FormID      int                    `json:"formId"`
	FieldIndex  int                    `json:"fieldIndex"`
	Type        string                 `json:"type"`
	Position    int                    `json:"position"`
	RowIndex    *int                   `json:"rowIndex"`
	ColumnIndex *int                   `json:"columnIndex"`
	Width       *int                   `json:"width"`
	ParentID    FlexID                 `json:"parentId"`
	ParentIndex int                    `json:"parentIndex"`
	Settings    json.RawMessage        `json:"settings"`
	General     RawGeneral             `json:"general"`
	Advanced    model.AdvancedSettings `json:"advanced"`
	Options     []model.FieldOption    `json:"options"`
}

// RawGeneral keeps numeric settings as json.Number so that a non-numeric
// minValue fails in the factory instead of at decode time.
type RawGeneral struct {
	Label        string      `json:"label"`
	Description  string      `json:"description"`
	Placeholder  string      `json:"placeholder"`
	Required     bool        `json:"required"`
	Visible      *bool       `json:"visible"`
	CSSClasses   string      `json:"cssClasses"`
	MinValue     json.Number `json:"minValue"`
	MaxValue     json.Number `json:"maxValue"`
	Step         json.Number `json:"step"`
	PhoneFormat  string      `json:"phoneFormat"`
	NumberFormat string      `json:"numberFormat"`
}

var phoneFormats = []string{"international", "national"}
var numberFormats = []string{"comma_dot", "dot_comma"}

// New validates a raw field and produces the typed definition. All
// violations are collected before failing, so a caller sees every problem
// in one round.
func New(raw Raw) (model.FieldDefinition, error) {
	var errs *multierror.Error

	typ := model.FieldType(raw.Type)
	if !typ.Valid() {
		errs = multierror.Append(errs, fmt.Errorf("unknown field type %q", raw.Type))
	}

	checkLen(&errs, "label", raw.General.Label, maxTextLen)
	checkLen(&errs, "description", raw.General.Description, maxTextLen)
	checkLen(&errs, "placeholder", raw.General.Placeholder, maxTextLen)
	checkLen(&errs, "cssClasses", raw.General.CSSClasses, maxTextLen)

	general := model.GeneralSettings{
		Label:       raw.General.Label,
		Description: raw.General.Description,
		Placeholder: raw.General.Placeholder,
		Required:    raw.General.Required,
		Visible:     raw.General.Visible == nil || *raw.General.Visible,
		CSSClasses:  raw.General.CSSClasses,
	}
	general.MinValue = parseNumber(&errs, "minValue", raw.General.MinValue)
	general.MaxValue = parseNumber(&errs, "maxValue", raw.General.MaxValue)
	if step := parseNumber(&errs, "step", raw.General.Step); step != nil {
		if *step <= 0 {
			errs = multierror.Append(errs, fmt.Errorf("step must be > 0, got %v", *step))
		} else {
			general.Step = step
		}
	}
	if typ == model.FieldPhone {
		general.PhoneFormat = normalizeEnum(raw.General.PhoneFormat, phoneFormats, "international")
	}
	if typ == model.FieldNumber {
		general.NumberFormat = normalizeEnum(raw.General.NumberFormat, numberFormats, "")
	}

	var options []model.FieldOption
	for i, o := range raw.Options {
		checkLen(&errs, fmt.Sprintf("options[%d].label", i), o.Label, maxTextLen)
		checkLen(&errs, fmt.Sprintf("options[%d].value", i), o.Value, maxOptionValueLen)
		if o.Position == 0 {
			o.Position = i
		}
		options = append(options, o)
	}

	if err := errs.ErrorOrNil(); err != nil {
		return model.FieldDefinition{}, &model.ValidationError{Err: err}
	}

	row, col, width := layoutOf(raw)
	return model.FieldDefinition{
		ID:          raw.ID,
		FormID:      raw.FormID,
		FieldIndex:  raw.FieldIndex,
		Type:        typ,
		Position:    raw.Position,
		RowIndex:    row,
		ColumnIndex: col,
		Width:       width,
		ParentID:    int(raw.ParentID),
		General:     general,
		Advanced:    raw.Advanced,
		Options:     options,
	}, nil
}

func checkLen(errs **multierror.Error, name, v string, max int) {
	if len(v) > max {
		*errs = multierror.Append(*errs, fmt.Errorf("%s exceeds %d characters", name, max))
	}
}

func parseNumber(errs **multierror.Error, name string, n json.Number) *float64 {
	if n == "" {
		return nil
	}
	v, err := n.Float64()
	if err != nil {
		*errs = multierror.Append(*errs, fmt.Errorf("%s is not numeric: %q", name, n))
		return nil
	}
	return &v
}

func normalizeEnum(v string, allowed []string, fallback string) string {
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	return fallback
}

// layoutOf resolves grid layout, preferring an explicit top-level value
// over one nested in a legacy settings blob. Width defaults to 100.
func layoutOf(raw Raw) (row, col, width int) {
	var legacy struct {
		RowIndex    *int `json:"rowIndex"`
		ColumnIndex *int `json:"columnIndex"`
		Width       *int `json:"width"`
	}
	if len(raw.Settings) > 0 {
		// a malformed legacy blob just means no legacy layout
		_ = json.Unmarshal(raw.Settings, &legacy)
	}
	row = pick(raw.RowIndex, legacy.RowIndex, 0)
	col = pick(raw.ColumnIndex, legacy.ColumnIndex, 0)
	width = pick(raw.Width, legacy.Width, 100)
	return
}

func pick(explicit, legacy *int, fallback int) int {
	if explicit != nil {
		return *explicit
	}
	if legacy != nil {
		return *legacy
	}
	return fallback
}

// settingsBlob is the on-disk JSON shape of one form_field.settings column.
// Old rows may additionally carry layout keys from before layout moved to
// its own columns; those decode through layoutOf.
type settingsBlob struct {
	General  model.GeneralSettings  `json:"general"`
	Advanced model.AdvancedSettings `json:"advanced"`
}

func EncodeSettings(f model.FieldDefinition) ([]byte, error) {
	return json.Marshal(settingsBlob{General: f.General, Advanced: f.Advanced})
}

// DecodeRow rebuilds a validated definition from a storage row. Layout
// pointers are nil when the column was NULL, letting a legacy blob (or the
// documented defaults) fill in.
func DecodeRow(id, formID int, typ string, position int, rowIndex, columnIndex, width *int, parentID int, settings []byte, options []model.FieldOption) (model.FieldDefinition, error) {
	var decoded struct {
		General  RawGeneral             `json:"general"`
		Advanced model.AdvancedSettings `json:"advanced"`
	}
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &decoded); err != nil {
			return model.FieldDefinition{}, &model.ValidationError{Err: fmt.Errorf("settings blob: %w", err)}
		}
	}
	return New(Raw{
		ID:          id,
		FormID:      formID,
		Type:        typ,
		Position:    position,
		RowIndex:    rowIndex,
		ColumnIndex: columnIndex,
		Width:       width,
		ParentID:    FlexID(parentID),
		Settings:    settings,
		General:     decoded.General,
		Advanced:    decoded.Advanced,
		Options:     options,
	})
}
