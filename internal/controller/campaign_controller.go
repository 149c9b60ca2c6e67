// internal/controller/campaign_controller.go
package controller

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/boardyhq/campaign-backend/internal/errors"
	"github.com/boardyhq/campaign-backend/internal/ingest"
	"github.com/boardyhq/campaign-backend/internal/model"
	"github.com/boardyhq/campaign-backend/internal/queue"
	"github.com/boardyhq/campaign-backend/internal/service"
)

type CampaignController struct {
	CampaignService *service.CampaignService
	Queue           queue.Queue

	// currentID tracks the campaign loaded into the compose surface; deleting
	// that campaign resets the working draft.
	mu        sync.Mutex
	currentID string
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case appErrors.IsValidation(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case appErrors.IsNotFound(err):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// CreateCampaign accepts a compose draft. Recipients come either as a raw CSV
// string or as pre-structured rows.
func (c *CampaignController) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Subject      string               `json:"subject"`
		Body         string               `json:"body"`
		SendMode     string               `json:"send_mode"`
		BatchSize    int                  `json:"batch_size"`
		DripRate     int                  `json:"drip_rate"`
		DripInterval string               `json:"drip_interval"`
		CSV          string               `json:"csv"`
		Recipients   model.RecipientTable `json:"recipients"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	recipients := body.Recipients
	if body.CSV != "" {
		parsed, err := ingest.ParseRecipients(strings.NewReader(body.CSV))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		recipients = parsed
	}

	campaign, err := c.CampaignService.CreateCampaign(model.CampaignDraft{
		Subject:      body.Subject,
		Body:         body.Body,
		SendMode:     body.SendMode,
		BatchSize:    body.BatchSize,
		DripRate:     body.DripRate,
		DripInterval: body.DripInterval,
		Recipients:   recipients,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	c.mu.Lock()
	c.currentID = campaign.ID
	c.mu.Unlock()

	writeJSON(w, service.Summarize(campaign))
}

// SendCampaign creates a campaign from the posted compose draft and starts it
// in one step, for callers that never created an explicit draft campaign.
func (c *CampaignController) SendCampaign(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Subject      string               `json:"subject"`
		Body         string               `json:"body"`
		SendMode     string               `json:"send_mode"`
		BatchSize    int                  `json:"batch_size"`
		DripRate     int                  `json:"drip_rate"`
		DripInterval string               `json:"drip_interval"`
		CSV          string               `json:"csv"`
		Recipients   model.RecipientTable `json:"recipients"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	recipients := body.Recipients
	if body.CSV != "" {
		parsed, err := ingest.ParseRecipients(strings.NewReader(body.CSV))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		recipients = parsed
	}

	started, err := c.CampaignService.SendCampaign(model.CampaignDraft{
		Subject:      body.Subject,
		Body:         body.Body,
		SendMode:     body.SendMode,
		BatchSize:    body.BatchSize,
		DripRate:     body.DripRate,
		DripInterval: body.DripInterval,
		Recipients:   recipients,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	c.mu.Lock()
	c.currentID = started.ID
	c.mu.Unlock()

	writeJSON(w, service.Summarize(started))
}

func (c *CampaignController) StartCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	campaign, err := c.CampaignService.StartCampaign(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, service.Summarize(campaign))
}

// Activate queues one activation instead of running it inline; batch
// campaigns continue this way when a caller re-triggers them.
func (c *CampaignController) Activate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := c.Queue.Publish(queue.ActivationTopic, queue.ActivationJob{CampaignID: id}); err != nil {
		log.Println("Failed to enqueue activation for campaign", id, ":", err)
		http.Error(w, "failed to enqueue activation", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{
		"campaign_id": id,
		"status":      "queued",
	})
}

func (c *CampaignController) PauseCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	campaign, err := c.CampaignService.PauseCampaign(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, service.Summarize(campaign))
}

// ResumeCampaign flips the campaign back to sending and runs one activation
// right away, since resume alone never re-arms the drip timer.
func (c *CampaignController) ResumeCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := c.CampaignService.ResumeCampaign(id); err != nil {
		writeError(w, err)
		return
	}
	campaign, err := c.CampaignService.Activate(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, service.Summarize(campaign))
}

func (c *CampaignController) ResetCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	campaign, err := c.CampaignService.ResetCampaign(id)
	if err != nil {
		writeError(w, err)
		return
	}

	c.mu.Lock()
	if c.currentID == id {
		c.currentID = ""
	}
	c.mu.Unlock()

	writeJSON(w, service.Summarize(campaign))
}

func (c *CampaignController) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := c.CampaignService.DeleteCampaign(id); err != nil {
		writeError(w, err)
		return
	}

	c.mu.Lock()
	if c.currentID == id {
		c.currentID = ""
	}
	c.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

// LoadCampaign loads an existing campaign into the compose surface and
// returns its draft fields so the caller can edit and re-send them.
func (c *CampaignController) LoadCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	campaign, err := c.CampaignService.Store.GetByID(id)
	if err != nil {
		writeError(w, err)
		return
	}

	c.mu.Lock()
	c.currentID = campaign.ID
	c.mu.Unlock()

	writeJSON(w, map[string]interface{}{
		"id":            campaign.ID,
		"subject":       campaign.Subject,
		"body":          campaign.Body,
		"send_mode":     campaign.SendMode,
		"batch_size":    campaign.BatchSize,
		"drip_rate":     campaign.DripRate,
		"drip_interval": campaign.DripInterval,
		"recipients":    campaign.Recipients,
	})
}

func (c *CampaignController) PersonalizedPreview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body struct {
		RecipientIndex int `json:"recipient_index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	preview, err := c.CampaignService.Preview(id, body.RecipientIndex)
	if err != nil {
		if appErrors.IsNotFound(err) {
			writeError(w, err)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, preview)
}
