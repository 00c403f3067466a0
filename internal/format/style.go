// Package format defines text formatting attributes and the per-view
// formatting table that maps classifications to styles.
package format

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Attribute is a bitset of text decorations.
type Attribute uint16

// Attribute bits. Only AttrItalic is ever changed by the decoration engine;
// the others ride along untouched.
const (
	AttrNone          Attribute = 0
	AttrBold          Attribute = 1 << 0
	AttrDim           Attribute = 1 << 1
	AttrItalic        Attribute = 1 << 2
	AttrUnderline     Attribute = 1 << 3
	AttrBlink         Attribute = 1 << 4
	AttrReverse       Attribute = 1 << 5
	AttrStrikethrough Attribute = 1 << 6
	AttrHidden        Attribute = 1 << 7
)

var attributeNames = [...]string{
	"bold", "dim", "italic", "underline", "blink", "reverse", "strikethrough", "hidden",
}

// Has reports whether every bit of attr is set.
func (a Attribute) Has(attr Attribute) bool {
	return attr != 0 && a&attr == attr
}

// With returns a with attr set.
func (a Attribute) With(attr Attribute) Attribute { return a | attr }

// Without returns a with attr cleared.
func (a Attribute) Without(attr Attribute) Attribute { return a &^ attr }

func (a Attribute) String() string {
	if a == AttrNone {
		return "none"
	}
	var b strings.Builder
	for bit, name := range attributeNames {
		if a&(1<<bit) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('|')
		}
		b.WriteString(name)
	}
	return b.String()
}

// ColorKind says how a Color is interpreted.
type ColorKind uint8

const (
	// ColorKindDefault is the terminal's own foreground or background.
	ColorKindDefault ColorKind = iota
	// ColorKindPalette is an index into the 256-color palette.
	ColorKindPalette
	// ColorKindRGB is a 24-bit color.
	ColorKindRGB
)

// Color is a terminal color. The zero value is the default color.
type Color struct {
	kind  ColorKind
	value uint32
}

// ColorDefault is the terminal's default color.
var ColorDefault = Color{}

// ErrInvalidColor is returned by ColorFromHex for malformed input.
var ErrInvalidColor = errors.New("invalid color")

// ColorFromRGB returns a 24-bit color.
func ColorFromRGB(r, g, b uint8) Color {
	return Color{kind: ColorKindRGB, value: uint32(r)<<16 | uint32(g)<<8 | uint32(b)}
}

// ColorFromIndex returns a palette color.
func ColorFromIndex(index uint8) Color {
	return Color{kind: ColorKindPalette, value: uint32(index)}
}

// ColorFromHex parses "#rrggbb" or the short "#rgb" form. The leading '#'
// is optional.
func ColorFromHex(s string) (Color, error) {
	digits := strings.TrimPrefix(s, "#")
	switch len(digits) {
	case 3:
		digits = strings.Repeat(digits[0:1], 2) + strings.Repeat(digits[1:2], 2) + strings.Repeat(digits[2:3], 2)
	case 6:
	default:
		return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	v, err := strconv.ParseUint(digits, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	return Color{kind: ColorKindRGB, value: uint32(v)}, nil
}

// Kind returns how the color is interpreted.
func (c Color) Kind() ColorKind { return c.kind }

// IsDefault reports whether c is the terminal default.
func (c Color) IsDefault() bool { return c.kind == ColorKindDefault }

// Index returns the palette index of a palette color.
func (c Color) Index() uint8 { return uint8(c.value) }

// RGB returns the components of a 24-bit color.
func (c Color) RGB() (r, g, b uint8) {
	return uint8(c.value >> 16), uint8(c.value >> 8), uint8(c.value)
}

// Equals reports whether both colors render the same.
func (c Color) Equals(other Color) bool {
	return c == other
}

func (c Color) String() string {
	switch c.kind {
	case ColorKindPalette:
		return "idx(" + strconv.Itoa(int(c.value)) + ")"
	case ColorKindRGB:
		return fmt.Sprintf("#%06X", c.value)
	default:
		return "default"
	}
}

// Style is the bag of formatting properties stored per classification. The
// zero value uses default colors and no attributes.
type Style struct {
	Foreground Color
	Background Color
	Attributes Attribute
}

// DefaultStyle returns the zero style.
func DefaultStyle() Style { return Style{} }

// NewStyle returns a style with the given foreground.
func NewStyle(fg Color) Style { return Style{Foreground: fg} }

// WithBackground returns a copy of s with a new background.
func (s Style) WithBackground(bg Color) Style {
	s.Background = bg
	return s
}

// WithAttributes returns a copy of s with attr added.
func (s Style) WithAttributes(attr Attribute) Style {
	s.Attributes = s.Attributes.With(attr)
	return s
}

// Bold returns a copy of s with bold added.
func (s Style) Bold() Style { return s.WithAttributes(AttrBold) }

// Italic returns a copy of s with italic added.
func (s Style) Italic() Style { return s.WithAttributes(AttrItalic) }

// Underline returns a copy of s with underline added.
func (s Style) Underline() Style { return s.WithAttributes(AttrUnderline) }

// Strikethrough returns a copy of s with strikethrough added.
func (s Style) Strikethrough() Style { return s.WithAttributes(AttrStrikethrough) }

// IsItalic reports whether the italic bit is set.
func (s Style) IsItalic() bool {
	return s.Attributes.Has(AttrItalic)
}

// WithItalic returns a copy of s with only the italic bit changed.
func (s Style) WithItalic(on bool) Style {
	if on {
		s.Attributes = s.Attributes.With(AttrItalic)
	} else {
		s.Attributes = s.Attributes.Without(AttrItalic)
	}
	return s
}

// Equals reports whether two styles are identical.
func (s Style) Equals(other Style) bool {
	return s == other
}

func (s Style) String() string {
	return fmt.Sprintf("fg=%s bg=%s attrs=%s", s.Foreground, s.Background, s.Attributes)
}
