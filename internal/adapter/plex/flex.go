package plex

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// flexString decodes a JSON string or number. Plex is not consistent about ids.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(data)
	return nil
}

// flexInt decodes a JSON number or a numeric string. Anything else decodes as zero.
type flexInt int64

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(data, `"`))
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexInt(n)
	return nil
}

// optionalInt returns nil for a missing value.
func optionalInt(f *flexInt) *int {
	if f == nil {
		return nil
	}
	n := int(*f)
	return &n
}
