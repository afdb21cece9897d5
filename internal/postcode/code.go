package postcode

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MaxLength is the longest code, in bytes, accepted for comparison.
const MaxLength = 9

// ErrInvalidLength is returned when a code is empty or longer than MaxLength.
var ErrInvalidLength = errors.New("postcode: invalid code length")

// ErrInvalidByte is returned when a hex byte string cannot be parsed.
var ErrInvalidByte = errors.New("postcode: invalid byte")

// Code is the secondary (byte payload) part of a POST code.
// The last byte is an instance counter and never takes part in a match.
type Code []byte

// Entry is a POST code as delivered by the post-code manager:
// a primary code and a variable-length byte payload.
type Entry struct {
	Primary   uint64
	Secondary Code
}

// String renders the code as space separated hex bytes.
func (c Code) String() string {
	parts := make([]string, len(c))
	for i, b := range c {
		parts[i] = fmt.Sprintf("%02x", b)
	}
	return strings.Join(parts, " ")
}

// Validate checks that the code length is within 1..MaxLength.
func (c Code) Validate() error {
	if len(c) == 0 || len(c) > MaxLength {
		return fmt.Errorf("%w: %d bytes", ErrInvalidLength, len(c))
	}
	return nil
}

// Match reports whether observed carries the same code as reference.
//
// The trailing instance byte of each code is dropped, and the remaining
// bytes are compared from the tail towards the head over the length of the
// shorter code. Leading bytes present only in the longer code are ignored,
// so [01 55 00] matches [55 00].
func Match(observed, reference Code) (bool, error) {
	if err := observed.Validate(); err != nil {
		return false, fmt.Errorf("observed code: %w", err)
	}
	if err := reference.Validate(); err != nil {
		return false, fmt.Errorf("reference code: %w", err)
	}

	a := observed[:len(observed)-1]
	b := reference[:len(reference)-1]

	for i, j := len(a)-1, len(b)-1; i >= 0 && j >= 0; i, j = i-1, j-1 {
		if a[i] != b[j] {
			return false, nil
		}
	}
	return true, nil
}

// ParseHex converts a list of hex byte strings ("0a", "0x0A", "A") into a Code.
func ParseHex(values []string) (Code, error) {
	code := make(Code, 0, len(values))
	for _, v := range values {
		s := strings.TrimSpace(v)
		s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
		if s == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidByte, v)
		}
		b, err := strconv.ParseUint(s, 16, 8)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidByte, v)
		}
		code = append(code, byte(b))
	}
	return code, nil
}
