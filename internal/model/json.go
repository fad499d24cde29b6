package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StringList maps a MySQL JSON column holding an array of strings.  A NULL
// column scans to nil; handlers normalize nil to an empty array before
// responding so frontends never have to null-check image lists.
type StringList []string

// Scan implements sql.Scanner.
func (l *StringList) Scan(src interface{}) error {
	if src == nil {
		*l = nil
		return nil
	}
	var bs []byte
	switch v := src.(type) {
	case []byte:
		bs = v
	case string:
		bs = []byte(v)
	default:
		return fmt.Errorf("unsupported type for StringList: %T", src)
	}
	if len(bs) == 0 {
		*l = nil
		return nil
	}
	return json.Unmarshal(bs, (*[]string)(l))
}

// Value implements driver.Valuer.  nil is stored as SQL NULL.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal([]string(l))
}

// OrEmpty returns the list, or an empty (non-nil) slice when nil, so JSON
// encoding produces [] instead of null.
func (l StringList) OrEmpty() []string {
	if l == nil {
		return []string{}
	}
	return l
}
