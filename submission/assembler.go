// Package submission turns one raw end-user payload plus the form's field
// list into the stored per-field values of an entry.
package submission

import (
	"context"
	"strconv"

	"github.com/mbolis/formforge/field"
	"github.com/mbolis/formforge/model"
)

// DuplicateChecker answers whether a value was already submitted for a
// field on a form. The store provides the real implementation.
type DuplicateChecker interface {
	Exists(ctx context.Context, formID, fieldID int, value string) (bool, error)
}

// Assemble resolves one stored value per field, in form order. Parents of
// compound fields get their flattened value, children read through the
// positional sub-key mapping, everything else reads the payload directly
// and defaults to an empty string. CAPTCHA fields store nothing.
// Assembly never fails on missing data.
func Assemble(fields []model.FieldDefinition, payload model.Payload) []model.EntryField {
	parents := field.ParentChildrenMap(fields)
	keys := field.SubfieldKeys(parents, payload)

	values := make([]model.EntryField, 0, len(fields))
	for _, f := range fields {
		if f.Type.Captcha() {
			continue
		}
		var value string
		switch {
		case len(parents[f.ID]) > 0:
			value = field.CompoundValue(f.ID, parents, keys, payload)
		case f.ParentID > 0:
			value, _ = field.SubfieldValue(f.ID, f.ParentID, payload, keys)
		default:
			value = field.Stringify(payload[strconv.Itoa(f.ID)])
		}
		values = append(values, model.EntryField{FieldID: f.ID, FieldValue: value})
	}
	return values
}

// MissingRequired returns the ids of required fields whose resolved value
// is empty.
func MissingRequired(fields []model.FieldDefinition, payload model.Payload) []int {
	resolved := map[int]string{}
	for _, v := range Assemble(fields, payload) {
		resolved[v.FieldID] = v.FieldValue
	}
	var missing []int
	for _, f := range fields {
		if f.Type.Captcha() {
			continue
		}
		if f.General.Required && resolved[f.ID] == "" {
			missing = append(missing, f.ID)
		}
	}
	return missing
}

// DuplicateReport flags the fields whose "no duplicates" constraint is
// violated. It is data, not an error: whether a collision rejects the
// whole submission is the caller's policy.
type DuplicateReport struct {
	IsDuplicate bool  `json:"isDuplicate"`
	FieldIDs    []int `json:"fieldIds,omitempty"`
}

// DetectDuplicates checks every duplicate-protected field with a non-empty
// resolved value against prior entries. A collision marks the field and
// the scan continues.
func DetectDuplicates(ctx context.Context, checker DuplicateChecker, formID int, fields []model.FieldDefinition, payload model.Payload) (DuplicateReport, error) {
	report := DuplicateReport{}
	resolved := map[int]string{}
	for _, v := range Assemble(fields, payload) {
		resolved[v.FieldID] = v.FieldValue
	}
	for _, f := range fields {
		if !f.Advanced.NoDuplicates || resolved[f.ID] == "" {
			continue
		}
		exists, err := checker.Exists(ctx, formID, f.ID, resolved[f.ID])
		if err != nil {
			return report, err
		}
		if exists {
			report.IsDuplicate = true
			report.FieldIDs = append(report.FieldIDs, f.ID)
		}
	}
	return report, nil
}
