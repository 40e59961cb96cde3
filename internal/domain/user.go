// Package domain contains core business types and interfaces.
//
// This file defines the user record snapshot that the auth backend returns
// alongside every token. The backend owns the schema; only a handful of
// fields are typed here, the rest travel through Extra untouched.
package domain

import (
	"encoding/json"
	"fmt"
)

// Record is the user profile snapshot stored in the session envelope.
//
// ID, Email and Verified are the fields this application reads. Any other
// attribute the backend sends (name, avatar, created, custom fields) is kept
// in Extra so a cookie written today round-trips fields added tomorrow.
type Record struct {
	ID       string
	Email    string
	Verified bool
	Extra    map[string]any
}

// typed field names as they appear on the wire
const (
	recordFieldID       = "id"
	recordFieldEmail    = "email"
	recordFieldVerified = "verified"
)

// DisplayName returns the record's name attribute, falling back to the email.
func (r Record) DisplayName() string {
	if name, ok := r.Extra["name"].(string); ok && name != "" {
		return name
	}
	return r.Email
}

// String returns an extra attribute rendered for display, or "" when absent.
func (r Record) String(key string) string {
	v, ok := r.Extra[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// MarshalJSON flattens the typed fields and Extra into a single object.
func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Extra)+3)
	for k, v := range r.Extra {
		out[k] = v
	}
	out[recordFieldID] = r.ID
	out[recordFieldEmail] = r.Email
	out[recordFieldVerified] = r.Verified
	return json.Marshal(out)
}

// UnmarshalJSON splits a backend record into typed fields and Extra.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	rec := Record{Extra: make(map[string]any)}
	for k, v := range raw {
		switch k {
		case recordFieldID:
			s, ok := v.(string)
			if !ok && v != nil {
				return fmt.Errorf("record: %q must be a string", k)
			}
			rec.ID = s
		case recordFieldEmail:
			s, ok := v.(string)
			if !ok && v != nil {
				return fmt.Errorf("record: %q must be a string", k)
			}
			rec.Email = s
		case recordFieldVerified:
			b, ok := v.(bool)
			if !ok && v != nil {
				return fmt.Errorf("record: %q must be a boolean", k)
			}
			rec.Verified = b
		default:
			rec.Extra[k] = v
		}
	}

	*r = rec
	return nil
}
