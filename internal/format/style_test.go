package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttributeHas(t *testing.T) {
	attrs := AttrBold | AttrItalic

	assert.True(t, attrs.Has(AttrBold))
	assert.True(t, attrs.Has(AttrItalic))
	assert.False(t, attrs.Has(AttrUnderline))
}

func TestAttributeWithWithout(t *testing.T) {
	attrs := AttrBold.With(AttrItalic)
	assert.Equal(t, AttrBold|AttrItalic, attrs)

	attrs = attrs.Without(AttrBold)
	assert.Equal(t, AttrItalic, attrs)
}

func TestAttributeString(t *testing.T) {
	tests := []struct {
		attrs Attribute
		want  string
	}{
		{AttrNone, "none"},
		{AttrItalic, "italic"},
		{AttrBold | AttrItalic, "bold|italic"},
		{AttrUnderline | AttrStrikethrough, "underline|strikethrough"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.attrs.String())
	}
}

func TestColorFromHex(t *testing.T) {
	tests := []struct {
		in      string
		want    Color
		wantErr bool
	}{
		{"#FF8000", ColorFromRGB(255, 128, 0), false},
		{"ff8000", ColorFromRGB(255, 128, 0), false},
		{"#fff", ColorFromRGB(255, 255, 255), false},
		{"#12345", Color{}, true},
		{"#zzzzzz", Color{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ColorFromHex(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equals(tt.want), "got %s, want %s", got, tt.want)
		})
	}
}

func TestColorEquals(t *testing.T) {
	var zero Color
	assert.True(t, ColorDefault.Equals(zero))
	assert.False(t, ColorDefault.Equals(ColorFromRGB(0, 0, 0)))
	assert.True(t, ColorFromIndex(3).Equals(ColorFromIndex(3)))
	assert.False(t, ColorFromIndex(3).Equals(ColorFromRGB(0, 0, 3)))
}

func TestColorAccessors(t *testing.T) {
	c := ColorFromRGB(0x12, 0x34, 0x56)
	assert.Equal(t, ColorKindRGB, c.Kind())
	r, g, b := c.RGB()
	assert.Equal(t, []uint8{0x12, 0x34, 0x56}, []uint8{r, g, b})
	assert.Equal(t, "#123456", c.String())

	p := ColorFromIndex(200)
	assert.Equal(t, ColorKindPalette, p.Kind())
	assert.Equal(t, uint8(200), p.Index())
	assert.Equal(t, "idx(200)", p.String())

	assert.True(t, ColorDefault.IsDefault())
	assert.Equal(t, "default", ColorDefault.String())
}

func TestColorFromHexWrapsSentinel(t *testing.T) {
	_, err := ColorFromHex("#1234")
	assert.ErrorIs(t, err, ErrInvalidColor)
}

func TestZeroStyleIsDefault(t *testing.T) {
	var s Style
	assert.True(t, s.Equals(DefaultStyle()))
	assert.Equal(t, "fg=default bg=default attrs=none", s.String())
}

func TestStyleWithItalicPreservesOtherAttributes(t *testing.T) {
	base := NewStyle(ColorFromRGB(1, 2, 3)).Bold().Underline().WithBackground(ColorFromIndex(4))

	on := base.WithItalic(true)
	assert.True(t, on.IsItalic())
	assert.True(t, on.Attributes.Has(AttrBold))
	assert.True(t, on.Attributes.Has(AttrUnderline))
	assert.True(t, on.Foreground.Equals(base.Foreground))
	assert.True(t, on.Background.Equals(base.Background))

	off := on.WithItalic(false)
	assert.False(t, off.IsItalic())
	assert.True(t, off.Equals(base))
}

func TestStyleString(t *testing.T) {
	s := NewStyle(ColorFromRGB(255, 0, 0)).Italic()
	assert.Equal(t, "fg=#FF0000 bg=default attrs=italic", s.String())
}
