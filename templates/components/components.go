package components

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// Writer accumulates HTML output and keeps the first write error
type Writer struct {
	w   io.Writer
	err error
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Printf writes raw markup. Interpolated text must go through Esc.
func (w *Writer) Printf(format string, args ...any) {
	if w.err != nil {
		return
	}
	_, w.err = fmt.Fprintf(w.w, format, args...)
}

// Render writes a nested component
func (w *Writer) Render(ctx context.Context, c templ.Component) {
	if w.err != nil {
		return
	}
	w.err = c.Render(ctx, w.w)
}

func (w *Writer) Err() error {
	return w.err
}

// Esc escapes text for HTML bodies and attributes
func Esc(s string) string {
	return templ.EscapeString(s)
}

// ErrorState renders an inline error message
func ErrorState(message string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := NewWriter(w)
		hw.Printf(`<div class="error-state" role="alert"><p>%s</p></div>`, Esc(message))
		return hw.Err()
	})
}

// EmptyState renders a placeholder for an empty list
func EmptyState(message string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := NewWriter(w)
		hw.Printf(`<div class="empty-state"><p>%s</p></div>`, Esc(message))
		return hw.Err()
	})
}

// Badge renders a colored label. Kind selects the CSS modifier.
func Badge(text, kind string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := NewWriter(w)
		hw.Printf(`<span class="badge badge-%s">%s</span>`, Esc(kind), Esc(text))
		return hw.Err()
	})
}

// SignClass maps the sign of a change to a CSS class
func SignClass(change float64) string {
	switch {
	case change > 0:
		return "up"
	case change < 0:
		return "down"
	default:
		return "flat"
	}
}
