package ir

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
)

// hex64Pattern is the strict wire form: "0x" followed by lowercase hex with
// no leading zeros (except the single digit "0").
var hex64Pattern = regexp.MustCompile(`^0x(0|[1-9a-f][0-9a-f]{0,15})$`)

// Hex64 is an unsigned 64-bit word encoded as "0x" + lowercase hex.
type Hex64 uint64

// String returns the wire form.
func (h Hex64) String() string {
	return "0x" + strconv.FormatUint(uint64(h), 16)
}

// MarshalJSON implements json.Marshaler.
func (h Hex64) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

// UnmarshalJSON implements json.Unmarshaler. Anything but the strict wire
// form is rejected.
func (h *Hex64) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("hex word: expected string: %w", err)
	}
	v, err := ParseHex64(s)
	if err != nil {
		return err
	}
	*h = v
	return nil
}

// ParseHex64 parses the strict wire form.
func ParseHex64(s string) (Hex64, error) {
	if !hex64Pattern.MatchString(s) {
		return 0, fmt.Errorf("hex word %q: must match %s", s, hex64Pattern)
	}
	v, err := strconv.ParseUint(s[2:], 16, 64)
	if err != nil {
		return 0, fmt.Errorf("hex word %q: %w", s, err)
	}
	return Hex64(v), nil
}
