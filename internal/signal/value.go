package signal

import (
	"math"
	"strconv"
	"strings"
)

// Kind identifies the type held by a Value.
type Kind int

const (
	KindInvalid Kind = iota
	KindNumber
	KindBytes
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindBytes:
		return "bytes"
	case KindText:
		return "text"
	default:
		return "invalid"
	}
}

// Value is a single cell of a signal table. The zero Value is invalid and
// never stored; absent cells have no entry at all.
type Value struct {
	kind Kind
	num  float64
	raw  []byte
	text string
}

// Number returns a numeric value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Bytes returns a payload value holding a copy of b.
func Bytes(b []byte) Value {
	return Value{kind: KindBytes, raw: append([]byte{}, b...)}
}

// Text returns a text value.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Kind returns the value's kind.
func (v Value) Kind() Kind { return v.kind }

// Float returns the numeric value, if v is a number.
func (v Value) Float() (float64, bool) {
	return v.num, v.kind == KindNumber
}

// Payload returns a copy of the bytes, if v is a payload.
func (v Value) Payload() ([]byte, bool) {
	if v.kind != KindBytes {
		return nil, false
	}
	return append([]byte{}, v.raw...), true
}

// String renders the value as it appears in exported artifacts. Numbers use
// the shortest representation that round-trips, integers never in exponent
// form; payloads use FormatHex.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return FormatNumber(v.num)
	case KindBytes:
		return FormatHex(v.raw)
	case KindText:
		return v.text
	default:
		return ""
	}
}

// Equal reports whether two values have the same kind and content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.num == o.num
	case KindBytes:
		return string(v.raw) == string(o.raw)
	case KindText:
		return v.text == o.text
	}
	return true
}

// FormatHex renders a payload as space separated 0xHH pairs, upper case.
// An empty payload renders as the empty string.
func FormatHex(b []byte) string {
	const digits = "0123456789ABCDEF"
	var sb strings.Builder
	sb.Grow(len(b) * 5)
	for i, c := range b {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString("0x")
		sb.WriteByte(digits[c>>4])
		sb.WriteByte(digits[c&0x0F])
	}
	return sb.String()
}

// FormatNumber formats f for export. Whole numbers below 2^53 are written
// without an exponent so identifiers stay readable.
func FormatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
