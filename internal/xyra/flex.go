package xyra

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// flexDecimal accepts a JSON number, a numeric string, "" or null.
type flexDecimal struct {
	decimal.Decimal
	Set bool
}

func (f *flexDecimal) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	raw := string(b)
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
		if raw == "" {
			return nil
		}
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("invalid decimal %s: %w", raw, err)
	}
	f.Decimal = v
	f.Set = true
	return nil
}

// flexInt accepts a JSON integer or an integer string.
type flexInt struct {
	Value int64
	Set   bool
}

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	raw := strings.Trim(string(b), `"`)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		// Some endpoints report integral values as floats, e.g. 20.0.
		d, derr := decimal.NewFromString(raw)
		if derr != nil || !d.IsInteger() {
			return fmt.Errorf("invalid integer %s", raw)
		}
		v = d.IntPart()
	}
	f.Value = v
	f.Set = true
	return nil
}

// decodeAmount reads a balance that may be reported either as a bare
// number or as an object carrying a balance field.
func decodeAmount(data json.RawMessage) (decimal.Decimal, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return decimal.Zero, nil
	}
	if data[0] == '{' {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(data, &obj); err != nil {
			return decimal.Zero, err
		}
		for _, key := range []string{"balance", "available_balance", "availableBalance", "amount", "total"} {
			if v, ok := obj[key]; ok {
				return decodeAmount(v)
			}
		}
		return decimal.Zero, fmt.Errorf("balance field not found")
	}
	var f flexDecimal
	if err := f.UnmarshalJSON(data); err != nil {
		return decimal.Zero, err
	}
	return f.Decimal, nil
}
