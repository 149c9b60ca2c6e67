// internal/service/summary.go
package service

import (
	"time"

	"github.com/boardyhq/campaign-backend/internal/model"
)

// CampaignSummary is the read-only projection backing the campaign listing.
type CampaignSummary struct {
	ID              string     `json:"id"`
	Subject         string     `json:"subject"`
	Status          string     `json:"status"`
	SendMode        string     `json:"send_mode"`
	ModeSummary     string     `json:"mode_summary"`
	TotalRecipients int        `json:"total_recipients"`
	SentCount       int        `json:"sent_count"`
	ErroredCount    int        `json:"errored_count"`
	SuccessRate     int        `json:"success_rate"`
	CreatedAt       time.Time  `json:"created_at"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

func Summarize(c *model.Campaign) CampaignSummary {
	sent, errored := c.Ledger.Counts()
	return CampaignSummary{
		ID:              c.ID,
		Subject:         c.Subject,
		Status:          c.Status,
		SendMode:        c.SendMode,
		ModeSummary:     c.ModeSummary(),
		TotalRecipients: len(c.Recipients),
		SentCount:       sent,
		ErroredCount:    errored,
		SuccessRate:     c.SuccessRate(),
		CreatedAt:       c.CreatedAt,
		StartedAt:       c.StartedAt,
		CompletedAt:     c.CompletedAt,
	}
}

// ListCampaignSummaries returns one summary per campaign, most recently
// created first.
func (s *CampaignService) ListCampaignSummaries() ([]CampaignSummary, error) {
	campaigns, err := s.Store.List()
	if err != nil {
		return nil, err
	}
	summaries := make([]CampaignSummary, len(campaigns))
	for i, c := range campaigns {
		summaries[i] = Summarize(c)
	}
	return summaries, nil
}
