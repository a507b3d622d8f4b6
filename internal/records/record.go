package records

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// IDKey is the document key holding the record identifier.
const IDKey = "record_id"

// ErrInvalidDocument reports a stored record that is not a JSON object of
// scalar or string-list values.
var ErrInvalidDocument = errors.New("invalid record document")

// Record is a reference bibliographic record as stored: an identifier plus raw
// field texts keyed by stored field name. A raw field may hold several values
// separated by ";" or "|".
type Record struct {
	ID  string
	Raw map[string]string
}

// Field is one atomic label/value pair produced by Expand.
type Field struct {
	Label Label
	Text  string
}

// ParseDocument decodes a stored JSON document. Values may be strings,
// numbers, or lists of strings; lists are joined with the value separator.
// The id argument wins over any record_id inside the document.
func ParseDocument(id string, data []byte) (Record, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	rec := Record{ID: strings.TrimSpace(id), Raw: make(map[string]string, len(raw))}
	for key, value := range raw {
		text, err := flattenValue(value)
		if err != nil {
			return Record{}, fmt.Errorf("%w: field %q: %v", ErrInvalidDocument, key, err)
		}
		if key == IDKey {
			if rec.ID == "" {
				rec.ID = strings.TrimSpace(text)
			}
			continue
		}
		rec.Raw[key] = text
	}
	if rec.ID == "" {
		return Record{}, fmt.Errorf("%w: missing %s", ErrInvalidDocument, IDKey)
	}
	return rec, nil
}

// MarshalDocument encodes a record the way ParseDocument expects it.
func MarshalDocument(rec Record) ([]byte, error) {
	doc := make(map[string]string, len(rec.Raw)+1)
	for key, value := range rec.Raw {
		doc[key] = value
	}
	doc[IDKey] = rec.ID
	return json.Marshal(doc)
}

func flattenValue(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			text, err := flattenValue(item)
			if err != nil {
				return "", err
			}
			if _, nested := item.([]any); nested {
				return "", errors.New("nested lists are not supported")
			}
			parts = append(parts, text)
		}
		return strings.Join(parts, "; "), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", value)
	}
}

// Expand splits the record's raw fields into atomic label/value pairs. Raw
// fields whose names are not known labels are skipped. The output is ordered
// by raw field name, then by value position, and contains no duplicate
// label/value pairs.
func Expand(rec Record) []Field {
	keys := make([]string, 0, len(rec.Raw))
	for key := range rec.Raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	type pair struct {
		label Label
		text  string
	}
	seen := make(map[pair]struct{})
	fields := make([]Field, 0, len(keys))
	for _, key := range keys {
		label, ok := labelForRawField(key)
		if !ok {
			continue
		}
		for _, value := range splitValues(rec.Raw[key]) {
			p := pair{label, value}
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			fields = append(fields, Field{Label: label, Text: value})
		}
	}
	return fields
}

func splitValues(raw string) []string {
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ';' || r == '|'
	})
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.Join(strings.Fields(part), " ")
		if part != "" {
			values = append(values, part)
		}
	}
	return values
}
