package shared

import (
	"context"

	twmerge "github.com/Oudwins/tailwind-merge-go"
	"github.com/a-h/templ"
)

// =============================================================================
// Class Composition
// =============================================================================

// Class merges Tailwind class lists; later classes win on conflict, so a
// caller's "mt-6" replaces a default "mt-4".
func Class(classes ...string) string {
	return twmerge.Merge(classes...)
}

// =============================================================================
// Flash
// =============================================================================

// FlashMessage renders f, or nothing when f is nil.
func FlashMessage(f *Flash) templ.Component {
	return Component(func(ctx context.Context, h *Writer) {
		if f == nil || f.Message == "" {
			return
		}
		role := "status"
		if f.Type == FlashError {
			role = "alert"
		}
		h.Raw("<div")
		h.Attr("role", role)
		h.Attr("class", Class("mb-4 rounded-md border px-4 py-3 text-sm", f.Type.classes()))
		h.Attr("data-flash", string(f.Type))
		h.Raw(">")
		h.Text(f.Message)
		h.Raw("</div>")
	})
}

// =============================================================================
// Form Controls
// =============================================================================

// InputProps configures a labelled input.
type InputProps struct {
	Label        string
	Name         string
	Type         string // defaults to "text"
	Value        string
	Placeholder  string
	Autocomplete string
	InputMode    string
	Pattern      string
	MaxLength    int
	Required     bool
	Autofocus    bool
	Class        string
}

const inputBase = "mt-1 block w-full rounded-md border border-gray-300 px-3 py-2 text-sm shadow-sm focus:border-indigo-500 focus:outline-none focus:ring-1 focus:ring-indigo-500"

// Input renders a label and its input.
func Input(p InputProps) templ.Component {
	return Component(func(ctx context.Context, h *Writer) {
		typ := p.Type
		if typ == "" {
			typ = "text"
		}
		h.Raw(`<div class="mb-4"><label class="block text-sm font-medium text-gray-700"`)
		h.Attr("for", p.Name)
		h.Raw(">")
		h.Text(p.Label)
		h.Raw("</label><input")
		h.Attr("id", p.Name)
		h.Attr("name", p.Name)
		h.Attr("type", typ)
		// Password values are never echoed back.
		if typ != "password" {
			h.Attr("value", p.Value)
		}
		h.Attr("placeholder", p.Placeholder)
		h.Attr("autocomplete", p.Autocomplete)
		h.Attr("inputmode", p.InputMode)
		h.Attr("pattern", p.Pattern)
		h.IntAttr("maxlength", p.MaxLength)
		h.BoolAttr("required", p.Required)
		h.BoolAttr("autofocus", p.Autofocus)
		h.Attr("class", Class(inputBase, p.Class))
		h.Raw("></div>")
	})
}

// Hidden renders a hidden input. Empty values are still rendered so the
// field is always posted.
func Hidden(name, value string) templ.Component {
	return Component(func(ctx context.Context, h *Writer) {
		h.Raw(`<input type="hidden"`)
		h.Attr("name", name)
		h.Raw(` value="` + templ.EscapeString(value) + `">`)
	})
}

// ButtonVariant selects a button style.
type ButtonVariant int

const (
	ButtonPrimary ButtonVariant = iota
	ButtonSecondary
	ButtonLink
)

const buttonBase = "inline-flex w-full justify-center rounded-md px-4 py-2 text-sm font-semibold focus:outline-none focus:ring-2 focus:ring-offset-2"

func (v ButtonVariant) classes() string {
	switch v {
	case ButtonSecondary:
		return "bg-white text-gray-900 ring-1 ring-inset ring-gray-300 hover:bg-gray-50 focus:ring-gray-400"
	case ButtonLink:
		return "w-auto px-0 py-0 bg-transparent text-indigo-600 hover:underline focus:ring-0"
	default:
		return "bg-indigo-600 text-white hover:bg-indigo-500 focus:ring-indigo-500"
	}
}

// Button renders a submit button.
func Button(label string, variant ButtonVariant, class ...string) templ.Component {
	return Component(func(ctx context.Context, h *Writer) {
		h.Raw(`<button type="submit"`)
		h.Attr("class", Class(append([]string{buttonBase, variant.classes()}, class...)...))
		h.Raw(">")
		h.Text(label)
		h.Raw("</button>")
	})
}

// Form renders a POST form around children.
func Form(action string, children ...templ.Component) templ.Component {
	return Component(func(ctx context.Context, h *Writer) {
		h.Raw(`<form method="post" class="space-y-2"`)
		h.Attr("action", action)
		h.Raw(">")
		for _, c := range children {
			h.Render(ctx, c)
		}
		h.Raw("</form>")
	})
}

// Link renders an anchor. href must be a path built by the application.
func Link(href, label string) templ.Component {
	return Component(func(ctx context.Context, h *Writer) {
		h.Raw(`<a class="text-sm text-indigo-600 hover:underline"`)
		h.Attr("href", string(templ.URL(href)))
		h.Raw(">")
		h.Text(label)
		h.Raw("</a>")
	})
}

// Paragraph renders escaped text in a muted paragraph.
func Paragraph(text string, class ...string) templ.Component {
	return Component(func(ctx context.Context, h *Writer) {
		h.Raw("<p")
		h.Attr("class", Class(append([]string{"mt-2 text-sm text-gray-600"}, class...)...))
		h.Raw(">")
		h.Text(text)
		h.Raw("</p>")
	})
}

// Group renders children in order.
func Group(children ...templ.Component) templ.Component {
	return Component(func(ctx context.Context, h *Writer) {
		for _, c := range children {
			h.Render(ctx, c)
		}
	})
}
