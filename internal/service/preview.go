// internal/service/preview.go
package service

import "fmt"

// PreviewResult is a rendered message for one recipient, plus the template
// variables the recipient table offers.
type PreviewResult struct {
	RecipientKey string   `json:"recipient_key"`
	Subject      string   `json:"subject"`
	Body         string   `json:"body"`
	Variables    []string `json:"variables"`
}

// Preview renders the campaign's subject and body for the recipient at the
// given table position, without delivering anything or touching the ledger.
func (s *CampaignService) Preview(id string, recipientIndex int) (*PreviewResult, error) {
	c, err := s.Store.GetByID(id)
	if err != nil {
		return nil, err
	}
	if recipientIndex < 0 || recipientIndex >= len(c.Recipients) {
		return nil, fmt.Errorf("recipient index %d out of range (campaign has %d recipients)", recipientIndex, len(c.Recipients))
	}
	r := c.Recipients[recipientIndex]
	return &PreviewResult{
		RecipientKey: r.Key(),
		Subject:      RenderSubject(c, r),
		Body:         RenderBody(c, r),
		Variables:    c.Recipients.FieldNames(),
	}, nil
}
