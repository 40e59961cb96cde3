// Package app renders the pages behind and around the session gate.
package app

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/a-h/templ"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/DukeRupert/pbgate/internal/domain"
	"github.com/DukeRupert/pbgate/internal/templ/shared"
)

// HomePageData contains data for the public home page.
type HomePageData struct {
	User *domain.Record
}

// DashboardPageData contains data for the signed-in landing page.
type DashboardPageData struct {
	User  *domain.Record
	Flash *shared.Flash
}

// ProfilePageData contains data for the profile page.
type ProfilePageData struct {
	User  *domain.Record
	Flash *shared.Flash
	// Name is the value echoed into the name field after a failed update.
	Name     string
	NewEmail string
}

// hiddenFields are record fields never listed on the profile.
var hiddenFields = map[string]bool{
	"collectionId":    true,
	"collectionName":  true,
	"emailVisibility": true,
	"tokenKey":        true,
	"password":        true,
}

// HomePage renders the public landing page.
func HomePage(data HomePageData) templ.Component {
	body := shared.Card("Welcome",
		shared.Paragraph("Sign in to reach your dashboard."),
		shared.Component(func(ctx context.Context, h *shared.Writer) {
			h.Raw(`<div class="mt-6 flex gap-4">`)
			if data.User != nil {
				h.Render(ctx, shared.Link("/dashboard", "Go to your dashboard"))
			} else {
				h.Render(ctx, shared.Link("/auth/signin", "Sign in"))
				h.Render(ctx, shared.Link("/auth/signup", "Create an account"))
			}
			h.Raw("</div>")
		}),
	)
	return shared.Layout(shared.LayoutData{User: data.User}, body)
}

// DashboardPage renders the landing page for a confirmed session.
func DashboardPage(data DashboardPageData) templ.Component {
	body := shared.Card("Dashboard",
		shared.FlashMessage(data.Flash),
		shared.Paragraph("Signed in as "+data.User.DisplayName()+"."),
		verificationNotice(data.User),
	)
	return shared.Layout(shared.LayoutData{Title: "Dashboard", User: data.User}, body)
}

// ProfilePage lists the record's fields and the forms to change them.
func ProfilePage(data ProfilePageData) templ.Component {
	name := data.Name
	if name == "" {
		name = data.User.String("name")
	}

	body := shared.Card("Profile",
		shared.FlashMessage(data.Flash),
		fieldList(data.User),
		shared.Component(func(ctx context.Context, h *shared.Writer) {
			h.Raw(`<h2 class="mt-8 mb-2 text-lg font-semibold">Update profile</h2>`)
		}),
		shared.Form("/profile",
			shared.Input(shared.InputProps{Label: "Name", Name: "name", Value: name, Autocomplete: "name", Required: true}),
			shared.Button("Save", shared.ButtonPrimary),
		),
		shared.Component(func(ctx context.Context, h *shared.Writer) {
			h.Raw(`<h2 class="mt-8 mb-2 text-lg font-semibold">Change email</h2>`)
		}),
		shared.Form("/profile/email",
			shared.Input(shared.InputProps{Label: "New email", Name: "newEmail", Type: "email", Value: data.NewEmail, Autocomplete: "email", Required: true}),
			shared.Button("Send confirmation", shared.ButtonSecondary),
		),
	)
	return shared.Layout(shared.LayoutData{Title: "Profile", User: data.User}, body)
}

func verificationNotice(user *domain.Record) templ.Component {
	if user.Verified {
		return nil
	}
	return shared.Group(
		shared.FlashMessage(&shared.Flash{Type: shared.FlashWarning, Message: "Your email address is not verified yet."}),
		shared.Form("/auth/request-verification",
			shared.Hidden("email", user.Email),
			shared.Button("Resend verification email", shared.ButtonLink),
		),
	)
}

// fieldList renders the record as a definition list: identity fields first,
// then extra fields sorted by key.
func fieldList(user *domain.Record) templ.Component {
	return shared.Component(func(ctx context.Context, h *shared.Writer) {
		h.Raw(`<dl class="divide-y divide-gray-100">`)
		row := func(label, value string) {
			h.Raw(`<div class="flex justify-between py-2 text-sm"><dt class="font-medium text-gray-700">`)
			h.Text(label)
			h.Raw(`</dt><dd class="text-gray-900">`)
			h.Text(value)
			h.Raw("</dd></div>")
		}

		row("Email", user.Email)
		if user.Verified {
			row("Verified", "Yes")
		} else {
			row("Verified", "No")
		}

		keys := make([]string, 0, len(user.Extra))
		for k := range user.Extra {
			if !hiddenFields[k] {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			row(FieldLabel(k), formatValue(user.Extra[k]))
		}
		h.Raw("</dl>")
	})
}

// FieldLabel turns a record key into a label: "avatar_url" and "avatarUrl"
// both become "Avatar Url".
func FieldLabel(key string) string {
	var b strings.Builder
	for i, r := range key {
		switch {
		case r == '_' || r == '-':
			b.WriteRune(' ')
		case i > 0 && r >= 'A' && r <= 'Z':
			b.WriteRune(' ')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return cases.Title(language.English).String(strings.Join(strings.Fields(b.String()), " "))
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		if val {
			return "Yes"
		}
		return "No"
	default:
		return fmt.Sprint(val)
	}
}
