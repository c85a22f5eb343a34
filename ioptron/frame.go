package ioptron

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	FrameStart      = ':'
	FrameTerminator = '#'

	AckOK       = "1"
	AckRejected = "0"
)

// BuildFrame wraps a mnemonic and its already formatted payload.
func BuildFrame(mnemonic, payload string) string {
	return string(FrameStart) + mnemonic + payload + string(FrameTerminator)
}

// A Template describes a fixed-width response position by position:
//
//	v  sign (+ or -)
//	z  decimal digit
//	d  degree symbol
//	h  hour marker
//	m  minute marker (m or ')
//	s  second marker (s or ")
//	p  date/time separator (. or :)
//	n  hemisphere (N or S)
//	w  side (W or E)
//	#  terminator
//
// Any other rune must appear literally.
type Template string

// Match reports whether raw fits the template. A single mismatch anywhere,
// including a length difference, rejects the whole frame.
func (t Template) Match(raw string) bool {
	if utf8.RuneCountInString(raw) != utf8.RuneCountInString(string(t)) {
		return false
	}

	tr := []rune(string(t))
	for i, r := range []rune(raw) {
		if !matchRune(tr[i], r) {
			return false
		}
	}
	return true
}

// Validate is Match returning a *MalformedResponseError.
func (t Template) Validate(raw string) error {
	if !t.Match(raw) {
		return &MalformedResponseError{Raw: raw, Template: string(t)}
	}
	return nil
}

func matchRune(marker, r rune) bool {
	switch marker {
	case 'v':
		return r == '+' || r == '-'
	case 'z':
		return r >= '0' && r <= '9'
	case 'd':
		return r == '°'
	case 'h':
		return r == 'h'
	case 'm':
		return r == 'm' || r == '\''
	case 's':
		return r == 's' || r == '"'
	case 'p':
		return r == '.' || r == ':'
	case 'n':
		return r == 'N' || r == 'S'
	case 'w':
		return r == 'W' || r == 'E'
	default:
		return r == marker
	}
}

// Field declares how one numeric argument is laid out in a command payload.
type Field struct {
	Width  int     // digit count, zero padded
	Signed bool    // prefix with + or -
	Scale  float64 // multiplier applied before rounding, 1 when zero
}

// Format renders v. Values that do not fit the declared width are rejected.
func (f Field) Format(v float64) (string, error) {
	scale := f.Scale
	if scale == 0 {
		scale = 1
	}

	n := int64(math.Round(v * scale))
	if n < 0 && !f.Signed {
		return "", fmt.Errorf("unsigned field: negative value %v", v)
	}

	sign := "+"
	if n < 0 {
		sign = "-"
		n = -n
	}

	digits := strconv.FormatInt(n, 10)
	if len(digits) > f.Width {
		return "", fmt.Errorf("value %v does not fit %d digits", v, f.Width)
	}
	digits = strings.Repeat("0", f.Width-len(digits)) + digits

	if f.Signed {
		return sign + digits, nil
	}
	return digits, nil
}

// Reply tells how the mount answers a command.
type Reply uint8

const (
	ReplyNone  Reply = iota // nothing comes back
	ReplyAck                // "1" accepted, "0" rejected
	ReplyFrame              // fixed-width frame matching Command.Template
)

// Command is the static descriptor of one protocol command.
type Command struct {
	Mnemonic   string
	Fields     []Field
	Reply      Reply
	Template   Template
	Alternates []Template // other accepted shapes of the same response
}

// Check validates a ReplyFrame response against the template or one of its alternates.
func (c Command) Check(raw string) error {
	for _, t := range c.Alternates {
		if t.Match(raw) {
			return nil
		}
	}
	return c.Template.Validate(raw)
}

// Frame formats args against the declared fields and wraps the result.
func (c Command) Frame(args ...float64) (string, error) {
	if len(args) != len(c.Fields) {
		return "", fmt.Errorf("%s: expected %d arguments, got %d", c.Mnemonic, len(c.Fields), len(args))
	}

	var payload strings.Builder
	for i, f := range c.Fields {
		s, err := f.Format(args[i])
		if err != nil {
			return "", fmt.Errorf("%s: argument %d: %w", c.Mnemonic, i, err)
		}
		payload.WriteString(s)
	}

	return BuildFrame(c.Mnemonic, payload.String()), nil
}

// slice returns the runes [from, to) of a validated response.
func slice(raw string, from, to int) string {
	return string([]rune(raw)[from:to])
}

// number parses a slice of a validated response. A leading sign is accepted.
func number(raw string, from, to int) int64 {
	n, err := strconv.ParseInt(slice(raw, from, to), 10, 64)
	if err != nil {
		// Templates guarantee digits, reaching this is a broken command table.
		panic(fmt.Sprintf("ioptron: field [%d:%d] of %q: %v", from, to, raw, err))
	}
	return n
}
