package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlexibleInt accepts a JSON number or a numeric string ("2") so clients
// that serialize form fields as strings are not rejected. Anything else,
// including "abc" or 2.5, fails decoding.
type FlexibleInt int

func (fi *FlexibleInt) UnmarshalJSON(data []byte) error {
	if fi == nil {
		return fmt.Errorf("FlexibleInt: nil receiver")
	}
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("FlexibleInt: %q is not an integer", s)
		}
		*fi = FlexibleInt(n)
		return nil
	}

	var n int
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return fmt.Errorf("FlexibleInt: expected integer or numeric string, got %s", string(data))
	}
	*fi = FlexibleInt(n)
	return nil
}

func (fi FlexibleInt) Int() int {
	return int(fi)
}
