// ABOUTME: RecordID type identifying stored entities as table:key pairs
// ABOUTME: Stable for the life of a record, never reused after deletion

package store

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// RecordID is an opaque handle to a stored record, composed of the table
// name and a key. Its string form is "table:key".
type RecordID struct {
	Table string
	Key   string
}

// NewRecordID generates a fresh RecordID for the given table.
func NewRecordID(table string) RecordID {
	return RecordID{Table: table, Key: uuid.New().String()}
}

// ParseRecordID parses a "table:key" string into a RecordID.
func ParseRecordID(s string) (RecordID, error) {
	table, key, ok := strings.Cut(s, ":")
	if !ok || table == "" || key == "" {
		return RecordID{}, fmt.Errorf("invalid record id %q", s)
	}
	return RecordID{Table: table, Key: key}, nil
}

// IsZero reports whether the RecordID is unset.
func (r RecordID) IsZero() bool {
	return r.Table == "" && r.Key == ""
}

func (r RecordID) String() string {
	return r.Table + ":" + r.Key
}

// MarshalJSON encodes the RecordID as its "table:key" string form.
func (r RecordID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + r.String() + `"`), nil
}

// UnmarshalJSON decodes a "table:key" string into the RecordID.
func (r *RecordID) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := ParseRecordID(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
