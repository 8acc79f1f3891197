package field

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/mbolis/formforge/model"
)

// A compound field (name, address) is one parent definition plus child
// rows stored as ordinary standalone fields. On the wire the sub-values
// arrive nested under the parent's submission key; pairing between the
// sub-object's keys and the child fields is positional, not by name.

// ParentChildrenMap groups child field ids by their parent id, in the
// order the fields appear in the input list.
func ParentChildrenMap(fields []model.FieldDefinition) map[int][]int {
	children := map[int][]int{}
	for _, f := range fields {
		if f.ParentID > 0 {
			children[f.ParentID] = append(children[f.ParentID], f.ID)
		}
	}
	return children
}

// SubfieldKeys pairs the i-th child of each parent with the i-th key of
// the parent's submitted sub-object. Children beyond the submitted key
// count get no mapping and later resolve to nothing.
func SubfieldKeys(parentChildren map[int][]int, payload model.Payload) map[int]string {
	keys := map[int]string{}
	for parentID, childIDs := range parentChildren {
		subKeys := objectKeys(payload[strconv.Itoa(parentID)])
		for i, childID := range childIDs {
			if i < len(subKeys) {
				keys[childID] = subKeys[i]
			}
		}
	}
	return keys
}

// SubfieldValue resolves one child field's submitted value through its
// parent's sub-object. The second return is false when the parent id is
// zero, the child has no key mapping, or the sub-object lacks the key.
func SubfieldValue(childID, parentID int, payload model.Payload, keys map[int]string) (string, bool) {
	if parentID == 0 {
		return "", false
	}
	key, ok := keys[childID]
	if !ok {
		return "", false
	}
	sub := subObject(payload, parentID)
	raw, ok := sub[key]
	if !ok {
		return "", false
	}
	return Stringify(raw), true
}

// CompoundValue renders a parent field's flattened value: every non-empty
// child sub-value in child order, joined by single spaces.
func CompoundValue(parentID int, parentChildren map[int][]int, keys map[int]string, payload model.Payload) string {
	sub := subObject(payload, parentID)
	var parts []string
	for _, childID := range parentChildren[parentID] {
		key, ok := keys[childID]
		if !ok {
			continue
		}
		if raw, ok := sub[key]; ok {
			if v := Stringify(raw); v != "" {
				parts = append(parts, v)
			}
		}
	}
	return strings.Join(parts, " ")
}

// ResolveParentID rewrites a child's parent reference once the parent's
// real id is known. Pre-persistence a child carries parentId 0 plus the
// parent's fieldIndex; parents are always saved first, so the index map is
// populated by the time children are processed.
func ResolveParentID(raw *Raw, parentIndexToID map[int]int) {
	if raw.ParentID > 0 {
		return
	}
	if id, ok := parentIndexToID[raw.ParentIndex]; ok && raw.ParentIndex > 0 {
		raw.ParentID = FlexID(id)
	}
}

func subObject(payload model.Payload, parentID int) map[string]json.RawMessage {
	raw, ok := payload[strconv.Itoa(parentID)]
	if !ok {
		return nil
	}
	sub := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil
	}
	return sub
}

// objectKeys scans a raw JSON object and returns its keys in document
// order. Go maps would scramble the order the client sent, and pairing
// depends on it.
func objectKeys(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	t, err := dec.Token()
	if err != nil {
		return nil
	}
	if d, ok := t.(json.Delim); !ok || d != '{' {
		return nil
	}
	var keys []string
	for dec.More() {
		t, err := dec.Token()
		if err != nil {
			return keys
		}
		key, ok := t.(string)
		if !ok {
			return keys
		}
		keys = append(keys, key)
		if err := skipValue(dec); err != nil {
			return keys
		}
	}
	return keys
}

func skipValue(dec *json.Decoder) error {
	t, err := dec.Token()
	if err != nil {
		return err
	}
	d, ok := t.(json.Delim)
	if !ok || (d != '{' && d != '[') {
		return nil
	}
	depth := 1
	for depth > 0 {
		t, err := dec.Token()
		if err != nil {
			return err
		}
		if d, ok := t.(json.Delim); ok {
			switch d {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}
	return nil
}

// Stringify renders one submitted value for storage. Arrays (checkbox,
// multi-select) join their items with a comma; objects fall back to their
// compact JSON form.
func Stringify(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	return stringifyValue(v)
}

func stringifyValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case []any:
		var parts []string
		for _, item := range v {
			if s := stringifyValue(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		if len(v) == 0 {
			return ""
		}
		// deterministic fallback for unexpected nested objects
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var parts []string
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s: %s", k, stringifyValue(v[k])))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(v)
	}
}
