// internal/model/campaign.go
package model

import (
	"fmt"
	"math"
	"time"
)

// Send modes
const (
	ModeBulk  = "bulk"
	ModeBatch = "batch"
	ModeDrip  = "drip"
)

// Campaign statuses
const (
	StatusDraft     = "draft"
	StatusSending   = "sending"
	StatusPaused    = "paused"
	StatusCompleted = "completed"
)

// Drip interval units
const (
	IntervalHourly = "hourly"
	IntervalDaily  = "daily"
)

type Campaign struct {
	ID           string         `db:"id" json:"id"`
	Subject      string         `db:"subject" json:"subject"`
	Body         string         `db:"body" json:"body"`
	SendMode     string         `db:"send_mode" json:"send_mode"`
	BatchSize    int            `db:"batch_size" json:"batch_size"`
	DripRate     int            `db:"drip_rate" json:"drip_rate"`
	DripInterval string         `db:"drip_interval" json:"drip_interval"`
	Status       string         `db:"status" json:"status"`
	Recipients   RecipientTable `json:"recipients"`
	Ledger       Ledger         `json:"ledger"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	StartedAt    *time.Time     `db:"started_at" json:"started_at,omitempty"`
	CompletedAt  *time.Time     `db:"completed_at" json:"completed_at,omitempty"`
}

// CampaignDraft is the compose-state handed to CreateCampaign. It carries
// everything a campaign snapshots at creation, so editing the working draft
// afterwards never touches a campaign that is already dispatching.
type CampaignDraft struct {
	Subject      string         `json:"subject"`
	Body         string         `json:"body"`
	SendMode     string         `json:"send_mode"`
	BatchSize    int            `json:"batch_size"`
	DripRate     int            `json:"drip_rate"`
	DripInterval string         `json:"drip_interval"`
	Recipients   RecipientTable `json:"recipients"`
}

// Clone deep-copies the campaign, including its recipient snapshot and ledger.
func (c *Campaign) Clone() *Campaign {
	cp := *c
	cp.Recipients = c.Recipients.Clone()
	cp.Ledger = c.Ledger.Clone()
	if c.StartedAt != nil {
		t := *c.StartedAt
		cp.StartedAt = &t
	}
	if c.CompletedAt != nil {
		t := *c.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}

// Pending returns the recipients not yet accounted for in the ledger, in table
// order. Duplicate identity keys collapse onto their first occurrence so the
// ledger never sees the same key twice.
func (c *Campaign) Pending() RecipientTable {
	seen := map[string]bool{}
	pending := RecipientTable{}
	for _, r := range c.Recipients {
		key := r.Key()
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		if _, ok := c.Ledger.Lookup(key); ok {
			continue
		}
		pending = append(pending, r)
	}
	return pending
}

// SuccessRate is round(sent / total * 100), 0 for an empty table.
func (c *Campaign) SuccessRate() int {
	total := len(c.Recipients)
	if total == 0 {
		return 0
	}
	sent, _ := c.Ledger.Counts()
	return int(math.Round(float64(sent) / float64(total) * 100))
}

// ModeSummary is a short human-readable description of the send configuration.
func (c *Campaign) ModeSummary() string {
	switch c.SendMode {
	case ModeBatch:
		return fmt.Sprintf("batch of %d", c.BatchSize)
	case ModeDrip:
		return fmt.Sprintf("drip %d %s", c.DripRate, c.DripInterval)
	default:
		return ModeBulk
	}
}
