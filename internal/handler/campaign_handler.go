// internal/handler/campaign_handler.go
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/boardyhq/campaign-backend/internal/errors"
	"github.com/boardyhq/campaign-backend/internal/model"
	"github.com/boardyhq/campaign-backend/internal/service"
)

// CampaignHandler serves the read-only campaign projections.
type CampaignHandler struct {
	Service *service.CampaignService
}

// ListCampaignsHandler returns every campaign's summary, most recently
// created first.
func (h *CampaignHandler) ListCampaignsHandler(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.Service.ListCampaignSummaries()
	if err != nil {
		http.Error(w, "failed to fetch campaigns: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"data":  summaries,
		"total": len(summaries),
	})
}

// GetCampaignHandler returns one campaign's summary plus its per-status stats
// and the template variables its recipient table offers.
func (h *CampaignHandler) GetCampaignHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	c, err := h.Service.Store.GetByID(id)
	if err != nil {
		if appErrors.IsNotFound(err) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, "failed to fetch campaign: "+err.Error(), http.StatusInternalServerError)
		return
	}

	sent, errored := c.Ledger.Counts()
	stats := map[string]int{
		"total":   len(c.Recipients),
		"pending": len(c.Pending()),
		"sent":    sent,
		"errored": errored,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"campaign":  service.Summarize(c),
		"stats":     stats,
		"variables": c.Recipients.FieldNames(),
		"errors":    erroredDetails(c),
	})
}

// erroredDetails projects the errored ledger entries for display.
func erroredDetails(c *model.Campaign) map[string]string {
	details := map[string]string{}
	for key, o := range c.Ledger {
		if o.Status == model.OutcomeErrored {
			details[key] = o.ErrorDetail
		}
	}
	return details
}
