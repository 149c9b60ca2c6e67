// internal/service/template.go
package service

import (
	"regexp"

	"github.com/boardyhq/campaign-backend/internal/model"
)

var placeholderPattern = regexp.MustCompile(`\{([^{}]+)\}`)

// Signature is appended to every rendered body after substitution.
const Signature = `

---
Best regards,
The Boardy Team

boardy.com
Connect with us on LinkedIn
`

// RenderTemplate substitutes every {field} placeholder with the recipient's
// value for that field, or an empty string when the field is absent. Matching
// is literal, nothing is expanded recursively.
func RenderTemplate(template string, r model.Recipient) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		return r[match[1:len(match)-1]]
	})
}

// RenderSubject renders the campaign's subject template for one recipient.
func RenderSubject(c *model.Campaign, r model.Recipient) string {
	return RenderTemplate(c.Subject, r)
}

// RenderBody renders the message body for one recipient. A non-empty
// per-recipient override column supersedes the shared body template; either
// way the result is rendered against the recipient's own fields and gets the
// signature block.
func RenderBody(c *model.Campaign, r model.Recipient) string {
	if override, ok := r.Override(); ok {
		return RenderTemplate(override, r) + Signature
	}
	return RenderTemplate(c.Body, r) + Signature
}
