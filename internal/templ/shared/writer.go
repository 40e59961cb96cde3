// Package shared holds the layout and form components used by every page.
//
// Components are plain templ.Components built with Component, so they
// compose with generated templ code and render through the same interface.
package shared

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"
)

// Writer accumulates HTML output, remembering the first write error so a
// component body can be written without checking each call.
type Writer struct {
	w   io.Writer
	err error
}

// Component adapts fn into a templ.Component.
func Component(fn func(ctx context.Context, h *Writer)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &Writer{w: w}
		fn(ctx, h)
		return h.err
	})
}

// Raw writes trusted markup as is.
func (h *Writer) Raw(s string) {
	if h.err != nil {
		return
	}
	_, h.err = io.WriteString(h.w, s)
}

// Text writes escaped text content.
func (h *Writer) Text(s string) {
	h.Raw(templ.EscapeString(s))
}

// Attr writes ` name="value"` with the value escaped. Empty values are
// skipped.
func (h *Writer) Attr(name, value string) {
	if value == "" {
		return
	}
	h.Raw(" " + name + `="` + templ.EscapeString(value) + `"`)
}

// IntAttr writes a numeric attribute when n is positive.
func (h *Writer) IntAttr(name string, n int) {
	if n > 0 {
		h.Attr(name, strconv.Itoa(n))
	}
}

// BoolAttr writes a boolean attribute when set.
func (h *Writer) BoolAttr(name string, set bool) {
	if set {
		h.Raw(" " + name)
	}
}

// Render writes a child component.
func (h *Writer) Render(ctx context.Context, c templ.Component) {
	if h.err != nil || c == nil {
		return
	}
	h.err = c.Render(ctx, h.w)
}

// Err returns the first error seen.
func (h *Writer) Err() error {
	return h.err
}
