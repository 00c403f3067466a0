// Package theme seeds formatting tables with classification styles.
//
// Classification names follow TextMate scope naming at a high level
// ("comment.doc", "keyword.control"). A theme that has no style for a name
// falls back to the nearest parent scope, then to its foreground color.
package theme

import (
	"errors"
	"sort"
	"strings"

	"github.com/dshills/italics/internal/format"
)

// ErrUnknownTheme is returned by ByName.
var ErrUnknownTheme = errors.New("theme: unknown theme")

// Classifications lists the classification names a seeded table contains,
// highest priority first.
var Classifications = []string{
	"comment",
	"comment.line",
	"comment.block",
	"comment.doc",
	"string",
	"string.escape",
	"string.regexp",
	"number",
	"keyword",
	"keyword.control",
	"keyword.operator",
	"keyword.declaration",
	"operator",
	"punctuation",
	"variable",
	"variable.parameter",
	"constant",
	"constant.language",
	"function",
	"function.call",
	"function.builtin",
	"type",
	"type.builtin",
	"type.parameter",
	"storage",
	"storage.modifier",
	"namespace",
	"invalid",
	"invalid.deprecated",
	"markup.heading",
	"markup.bold",
	"markup.italic",
	"markup.link",
}

// Theme defines the styles of a formatting table.
type Theme struct {
	// Name is the display name of the theme.
	Name string

	// Background is the editor background color.
	Background format.Color

	// Foreground is the default text color.
	Foreground format.Color

	// Styles maps classification names to their styles.
	Styles map[string]format.Style
}

// StyleFor returns the style for a classification name, trying parent
// scopes ("comment.doc" then "comment") before the default style.
func (t *Theme) StyleFor(name string) format.Style {
	for scope := name; scope != ""; {
		if style, ok := t.Styles[scope]; ok {
			return style
		}
		i := strings.LastIndexByte(scope, '.')
		if i < 0 {
			break
		}
		scope = scope[:i]
	}
	return format.NewStyle(t.Foreground)
}

// Seed registers every name in Classifications on m with the theme's style.
// Names already registered keep their style. It returns m.
func (t *Theme) Seed(m *format.Map) *format.Map {
	for _, name := range Classifications {
		m.Register(name, t.StyleFor(name))
	}
	return m
}

// NewTable returns a new formatting table seeded with the theme.
func (t *Theme) NewTable() *format.Map {
	return t.Seed(format.NewMap())
}

var builtin = map[string]func() *Theme{
	"default": Default,
	"monokai": Monokai,
	"dracula": Dracula,
	"light":   Light,
}

// Names returns the names accepted by ByName.
func Names() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ByName returns a built-in theme. The empty name selects Default.
func ByName(name string) (*Theme, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return Default(), nil
	}
	ctor, ok := builtin[name]
	if !ok {
		return nil, ErrUnknownTheme
	}
	return ctor(), nil
}

// Default returns a dark theme.
func Default() *Theme {
	comment := format.ColorFromRGB(106, 153, 85)
	keyword := format.ColorFromRGB(86, 156, 214)
	str := format.ColorFromRGB(206, 145, 120)
	function := format.ColorFromRGB(220, 220, 170)
	typ := format.ColorFromRGB(78, 201, 176)
	variable := format.ColorFromRGB(156, 220, 254)
	invalid := format.ColorFromRGB(244, 71, 71)

	return &Theme{
		Name:       "Default Dark",
		Background: format.ColorFromRGB(30, 30, 30),
		Foreground: format.ColorFromRGB(212, 212, 212),
		Styles: map[string]format.Style{
			"comment":            format.NewStyle(comment).Italic(),
			"string":             format.NewStyle(str),
			"string.escape":      format.NewStyle(format.ColorFromRGB(215, 186, 125)),
			"number":             format.NewStyle(format.ColorFromRGB(181, 206, 168)),
			"keyword":            format.NewStyle(keyword),
			"variable":           format.NewStyle(variable),
			"constant":           format.NewStyle(format.ColorFromRGB(79, 193, 255)),
			"constant.language":  format.NewStyle(keyword),
			"function":           format.NewStyle(function),
			"type":               format.NewStyle(typ),
			"storage":            format.NewStyle(keyword),
			"namespace":          format.NewStyle(typ),
			"invalid":            format.NewStyle(invalid),
			"invalid.deprecated": format.NewStyle(invalid).Strikethrough(),
			"markup.heading":     format.NewStyle(keyword).Bold(),
			"markup.bold":        format.DefaultStyle().Bold(),
			"markup.italic":      format.DefaultStyle().Italic(),
			"markup.link":        format.NewStyle(typ).Underline(),
		},
	}
}

// Monokai returns a Monokai-inspired theme.
func Monokai() *Theme {
	pink := format.ColorFromRGB(249, 38, 114)
	green := format.ColorFromRGB(166, 226, 46)
	orange := format.ColorFromRGB(253, 151, 31)
	yellow := format.ColorFromRGB(230, 219, 116)
	blue := format.ColorFromRGB(102, 217, 239)
	purple := format.ColorFromRGB(174, 129, 255)
	white := format.ColorFromRGB(248, 248, 242)

	return &Theme{
		Name:       "Monokai",
		Background: format.ColorFromRGB(39, 40, 34),
		Foreground: white,
		Styles: map[string]format.Style{
			"comment":             format.NewStyle(format.ColorFromRGB(117, 113, 94)),
			"string":              format.NewStyle(yellow),
			"string.escape":       format.NewStyle(purple),
			"number":              format.NewStyle(purple),
			"keyword":             format.NewStyle(pink),
			"keyword.declaration": format.NewStyle(blue).Italic(),
			"operator":            format.NewStyle(pink),
			"variable.parameter":  format.NewStyle(orange).Italic(),
			"constant":            format.NewStyle(purple),
			"function":            format.NewStyle(green),
			"function.builtin":    format.NewStyle(blue),
			"type":                format.NewStyle(blue).Italic(),
			"type.parameter":      format.NewStyle(orange).Italic(),
			"storage":             format.NewStyle(pink),
			"invalid":             format.NewStyle(pink).WithBackground(format.ColorFromRGB(80, 20, 40)),
		},
	}
}

// Dracula returns a Dracula-inspired theme.
func Dracula() *Theme {
	pink := format.ColorFromRGB(255, 121, 198)
	green := format.ColorFromRGB(80, 250, 123)
	cyan := format.ColorFromRGB(139, 233, 253)
	purple := format.ColorFromRGB(189, 147, 249)

	return &Theme{
		Name:       "Dracula",
		Background: format.ColorFromRGB(40, 42, 54),
		Foreground: format.ColorFromRGB(248, 248, 242),
		Styles: map[string]format.Style{
			"comment":            format.NewStyle(format.ColorFromRGB(98, 114, 164)),
			"string":             format.NewStyle(format.ColorFromRGB(241, 250, 140)),
			"string.escape":      format.NewStyle(pink),
			"number":             format.NewStyle(purple),
			"keyword":            format.NewStyle(pink),
			"variable.parameter": format.NewStyle(format.ColorFromRGB(255, 184, 108)).Italic(),
			"constant":           format.NewStyle(purple),
			"function":           format.NewStyle(green),
			"function.builtin":   format.NewStyle(cyan),
			"type":               format.NewStyle(cyan).Italic(),
			"storage":            format.NewStyle(pink),
			"invalid":            format.NewStyle(format.ColorFromRGB(255, 85, 85)),
		},
	}
}

// Light returns a light theme.
func Light() *Theme {
	keyword := format.ColorFromRGB(0, 0, 255)

	return &Theme{
		Name:       "Light",
		Background: format.ColorFromRGB(255, 255, 255),
		Foreground: format.ColorFromRGB(0, 0, 0),
		Styles: map[string]format.Style{
			"comment":  format.NewStyle(format.ColorFromRGB(0, 128, 0)).Italic(),
			"string":   format.NewStyle(format.ColorFromRGB(163, 21, 21)),
			"number":   format.NewStyle(format.ColorFromRGB(9, 134, 88)),
			"keyword":  format.NewStyle(keyword),
			"function": format.NewStyle(format.ColorFromRGB(121, 94, 38)),
			"type":     format.NewStyle(format.ColorFromRGB(38, 127, 153)),
			"storage":  format.NewStyle(keyword),
			"invalid":  format.NewStyle(format.ColorFromRGB(205, 49, 49)).Underline(),
		},
	}
}
