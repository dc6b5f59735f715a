package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Amount is a decimal amount as sent by the backend. Decimal columns arrive as
// strings while extracted document fields arrive as JSON numbers; both decode
// to the same textual form. null decodes to the empty amount.
type Amount string

// UnmarshalJSON accepts a JSON string, number or null.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	*a = Amount(n.String())
	return nil
}

// String returns the amount text.
func (a Amount) String() string {
	return string(a)
}
