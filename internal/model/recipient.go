// internal/model/recipient.go
package model

import (
	"sort"
	"strings"
)

// Recipient is one row of the uploaded list: field name -> value.
type Recipient map[string]string

// RecipientTable is the ordered list a campaign snapshots at creation.
type RecipientTable []Recipient

// identityFields are tried in order; the first non-empty value is the
// recipient's identity key. Lookup is case-sensitive.
var identityFields = []string{"id", "email"}

// overrideFields are the column names (lowercased) whose value, when present
// and non-empty, replaces the shared body template for that recipient.
var overrideFields = map[string]bool{
	"customemail":  true,
	"custom_email": true,
	"custom-email": true,
	"customcopy":   true,
	"custom_copy":  true,
}

// Key returns the recipient's identity key, or "" if it has neither an id nor
// an email.
func (r Recipient) Key() string {
	for _, f := range identityFields {
		if v := r[f]; v != "" {
			return v
		}
	}
	return ""
}

// Override returns the recipient's custom message content, if any.
func (r Recipient) Override() (string, bool) {
	for name, v := range r {
		if overrideFields[strings.ToLower(name)] && v != "" {
			return v, true
		}
	}
	return "", false
}

// IsOverrideField reports whether a column name holds per-recipient custom
// content rather than a template variable.
func IsOverrideField(name string) bool {
	return overrideFields[strings.ToLower(name)]
}

func (r Recipient) clone() Recipient {
	cp := make(Recipient, len(r))
	for k, v := range r {
		cp[k] = v
	}
	return cp
}

// Clone deep-copies the table so later edits to the source never leak into a
// campaign snapshot.
func (t RecipientTable) Clone() RecipientTable {
	cp := make(RecipientTable, len(t))
	for i, r := range t {
		cp[i] = r.clone()
	}
	return cp
}

// FieldNames returns the sorted union of field names across the table,
// excluding override columns. These are the variables available to templates.
func (t RecipientTable) FieldNames() []string {
	seen := map[string]bool{}
	names := []string{}
	for _, r := range t {
		for name := range r {
			if seen[name] || IsOverrideField(name) {
				continue
			}
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
