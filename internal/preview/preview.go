// Package preview draws a formatting table on a terminal so the effect of
// the italics settings can be inspected.
package preview

import (
	"fmt"
	"sync"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"

	"github.com/dshills/italics/internal/format"
	"github.com/dshills/italics/internal/logging"
	"github.com/dshills/italics/internal/theme"
)

// Preview renders one table to a screen.
type Preview struct {
	screen tcell.Screen
	table  format.Table
	theme  *theme.Theme
	logger *zap.Logger

	ready     chan struct{}
	readyOnce sync.Once

	// OnKey, if set, receives keys that do not quit the preview.
	OnKey func(ev *tcell.EventKey)
}

// New creates a preview. The screen must not be initialized yet; Run
// initializes and finalizes it.
func New(screen tcell.Screen, table format.Table, th *theme.Theme, logger *zap.Logger) *Preview {
	if th == nil {
		th = theme.Default()
	}
	return &Preview{
		screen: screen,
		table:  table,
		theme:  th,
		logger: logging.OrNop(logger).Named("preview"),
		ready:  make(chan struct{}),
	}
}

// Ready is closed once Run has initialized the screen and drawn it.
func (p *Preview) Ready() <-chan struct{} {
	return p.ready
}

// Run shows the preview until Escape, Ctrl-C or q is pressed.
func (p *Preview) Run() error {
	if err := p.screen.Init(); err != nil {
		return fmt.Errorf("initializing screen: %w", err)
	}
	defer p.screen.Fini()

	p.Draw()
	p.readyOnce.Do(func() { close(p.ready) })
	for {
		switch ev := p.screen.PollEvent().(type) {
		case nil:
			return nil
		case *tcell.EventResize:
			p.screen.Sync()
			p.Draw()
		case *tcell.EventInterrupt:
			p.Draw()
		case *tcell.EventKey:
			if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC || ev.Rune() == 'q' {
				return nil
			}
			if p.OnKey != nil {
				p.OnKey(ev)
			}
			p.Draw()
		}
	}
}

// Refresh asks a running preview to redraw. Safe from any goroutine.
func (p *Preview) Refresh() {
	if err := p.screen.PostEvent(tcell.NewEventInterrupt(nil)); err != nil {
		p.logger.Debug("refresh dropped", zap.Error(err))
	}
}

// Draw renders every classification in priority order, one per row, in its
// own style.
func (p *Preview) Draw() {
	base := tcell.StyleDefault.
		Foreground(convertColor(p.theme.Foreground)).
		Background(convertColor(p.theme.Background))
	p.screen.SetStyle(base)
	p.screen.Clear()

	width, height := p.screen.Size()
	row := 0
	drawText(p.screen, 0, row, width, p.theme.Name, base.Bold(true))
	row += 2

	for _, c := range p.table.PriorityOrder() {
		if row >= height {
			break
		}
		if c == nil {
			continue
		}
		style, err := p.table.Style(c)
		if err != nil {
			p.logger.Debug("skipping classification", zap.Stringer("classification", c), zap.Error(err))
			continue
		}

		marker := " "
		if style.IsItalic() {
			marker = "*"
		}
		drawText(p.screen, 0, row, width, marker, base)
		drawText(p.screen, 2, row, width, c.Name(), mergeStyle(base, style))
		row++
	}
	p.screen.Show()
}

func drawText(screen tcell.Screen, x, y, width int, text string, style tcell.Style) {
	for _, r := range text {
		if x >= width {
			return
		}
		screen.SetContent(x, y, r, nil, style)
		x++
	}
}

// mergeStyle draws s over base; default colors in s keep base's.
func mergeStyle(base tcell.Style, s format.Style) tcell.Style {
	out := ConvertStyle(s)
	fg, bg, _ := base.Decompose()
	if s.Foreground.IsDefault() {
		out = out.Foreground(fg)
	}
	if s.Background.IsDefault() {
		out = out.Background(bg)
	}
	return out
}

// ConvertStyle converts a format.Style to a tcell.Style.
func ConvertStyle(s format.Style) tcell.Style {
	style := tcell.StyleDefault.
		Foreground(convertColor(s.Foreground)).
		Background(convertColor(s.Background))
	var mask tcell.AttrMask
	for _, m := range attrMap {
		if s.Attributes.Has(m.from) {
			mask |= m.to
		}
	}
	style = style.Attributes(mask)
	if s.Attributes.Has(format.AttrUnderline) {
		style = style.Underline(true)
	}
	return style
}

var attrMap = []struct {
	from format.Attribute
	to   tcell.AttrMask
}{
	{format.AttrBold, tcell.AttrBold},
	{format.AttrDim, tcell.AttrDim},
	{format.AttrItalic, tcell.AttrItalic},
	{format.AttrBlink, tcell.AttrBlink},
	{format.AttrReverse, tcell.AttrReverse},
	{format.AttrStrikethrough, tcell.AttrStrikeThrough},
}

func convertColor(c format.Color) tcell.Color {
	switch c.Kind() {
	case format.ColorKindPalette:
		return tcell.PaletteColor(int(c.Index()))
	case format.ColorKindRGB:
		r, g, b := c.RGB()
		return tcell.NewRGBColor(int32(r), int32(g), int32(b))
	default:
		return tcell.ColorDefault
	}
}
