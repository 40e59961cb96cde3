package shared

import (
	"context"

	"github.com/a-h/templ"

	"github.com/DukeRupert/pbgate/internal/domain"
)

// ScriptOrigin hosts every script the layout loads. The CSP allows it.
const ScriptOrigin = "https://cdn.jsdelivr.net"

// tailwindScript is the Tailwind browser build.
const tailwindScript = ScriptOrigin + "/npm/@tailwindcss/browser@4"

// LayoutData is the page chrome around every view.
type LayoutData struct {
	Title string
	// User is the signed-in user, nil for visitors.
	User *domain.Record
}

// Layout renders the HTML document with navigation and body.
func Layout(data LayoutData, body templ.Component) templ.Component {
	return Component(func(ctx context.Context, h *Writer) {
		h.Raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		h.Raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.Raw("<title>")
		if data.Title != "" {
			h.Text(data.Title + " · pbgate")
		} else {
			h.Text("pbgate")
		}
		h.Raw("</title><script")
		h.Attr("src", tailwindScript)
		h.Raw("></script></head>")
		h.Raw(`<body class="min-h-full bg-gray-50">`)
		h.Render(ctx, nav(data.User))
		h.Raw(`<main class="mx-auto max-w-md px-4 py-10">`)
		h.Render(ctx, body)
		h.Raw("</main></body></html>")
	})
}

func nav(user *domain.Record) templ.Component {
	return Component(func(ctx context.Context, h *Writer) {
		h.Raw(`<nav class="border-b border-gray-200 bg-white"><div class="mx-auto flex max-w-4xl items-center justify-between px-4 py-3">`)
		h.Raw(`<a href="/" class="font-semibold text-gray-900">pbgate</a><div class="flex items-center gap-4">`)
		if user == nil {
			h.Render(ctx, Link("/auth/signin", "Sign in"))
			h.Render(ctx, Link("/auth/signup", "Sign up"))
		} else {
			h.Render(ctx, Link("/dashboard", "Dashboard"))
			h.Render(ctx, Link("/profile", "Profile"))
			h.Raw(`<span class="text-sm text-gray-500" data-user>`)
			h.Text(user.DisplayName())
			h.Raw("</span>")
			h.Render(ctx, Form("/auth/logout", Button("Sign out", ButtonLink)))
		}
		h.Raw("</div></div></nav>")
	})
}

// Card renders a titled panel.
func Card(title string, children ...templ.Component) templ.Component {
	return Component(func(ctx context.Context, h *Writer) {
		h.Raw(`<div class="rounded-lg bg-white p-8 shadow">`)
		h.Raw(`<h1 class="mb-6 text-2xl font-bold text-gray-900">`)
		h.Text(title)
		h.Raw("</h1>")
		for _, c := range children {
			h.Render(ctx, c)
		}
		h.Raw("</div>")
	})
}
