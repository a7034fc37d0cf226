package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StringSet is an ordered, duplicate-free string collection stored as a JSON
// array in a single text column. Insertion order is preserved so join order
// is recoverable.
type StringSet []string

func (s StringSet) Has(v string) bool {
	for _, e := range s {
		if e == v {
			return true
		}
	}
	return false
}

// With returns the set including v and whether the set changed.
func (s StringSet) With(v string) (StringSet, bool) {
	if s.Has(v) {
		return s, false
	}
	return append(s, v), true
}

// Without returns the set excluding v and whether the set changed.
func (s StringSet) Without(v string) (StringSet, bool) {
	for i, e := range s {
		if e == v {
			out := make(StringSet, 0, len(s)-1)
			out = append(out, s[:i]...)
			out = append(out, s[i+1:]...)
			return out, true
		}
	}
	return s, false
}

func (s StringSet) Value() (driver.Value, error) {
	if s == nil {
		s = StringSet{}
	}
	b, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *StringSet) Scan(src any) error {
	if src == nil {
		*s = StringSet{}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan StringSet: unsupported type %T", src)
	}
	if len(raw) == 0 {
		*s = StringSet{}
		return nil
	}
	return json.Unmarshal(raw, (*[]string)(s))
}
