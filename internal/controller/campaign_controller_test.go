package controller_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/boardyhq/campaign-backend/internal/controller"
	"github.com/boardyhq/campaign-backend/internal/handler"
	"github.com/boardyhq/campaign-backend/internal/model"
	"github.com/boardyhq/campaign-backend/internal/queue"
	"github.com/boardyhq/campaign-backend/internal/repository"
	"github.com/boardyhq/campaign-backend/internal/service"
)

func newTestRouter(deliverer service.Deliverer) (*chi.Mux, *service.CampaignService) {
	svc := service.NewCampaignService(repository.NewMemoryCampaignStore(), deliverer, nil)

	q := queue.NewInMemoryQueue()
	queue.StartActivationSubscriber(q, func(id string) error {
		_, err := svc.Activate(id)
		return err
	})

	ctrl := &controller.CampaignController{CampaignService: svc, Queue: q}
	h := &handler.CampaignHandler{Service: svc}

	r := chi.NewRouter()
	r.Post("/campaigns", ctrl.CreateCampaign)
	r.Post("/campaigns/send", ctrl.SendCampaign)
	r.Get("/campaigns", h.ListCampaignsHandler)
	r.Get("/campaigns/{id}", h.GetCampaignHandler)
	r.Delete("/campaigns/{id}", ctrl.DeleteCampaign)
	r.Post("/campaigns/{id}/start", ctrl.StartCampaign)
	r.Post("/campaigns/{id}/pause", ctrl.PauseCampaign)
	r.Post("/campaigns/{id}/reset", ctrl.ResetCampaign)
	r.Post("/campaigns/{id}/load", ctrl.LoadCampaign)
	r.Post("/campaigns/{id}/personalized-preview", ctrl.PersonalizedPreview)
	return r, svc
}

func alwaysSucceed() service.Deliverer {
	return service.DeliverFunc(func(subject, body, key string) error { return nil })
}

func doJSON(t *testing.T, router *chi.Mux, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createCampaign(t *testing.T, router *chi.Mux) string {
	t.Helper()
	w := doJSON(t, router, "POST", "/campaigns", map[string]interface{}{
		"subject":   "Hi {firstName}",
		"body":      "Hello {firstName}!",
		"send_mode": "bulk",
		"csv":       "id,firstName,email\n1,Ana,a@x.com\n2,Bo,b@x.com\n",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("create returned %d: %s", w.Code, w.Body.String())
	}

	var res service.CampaignSummary
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if res.ID == "" {
		t.Fatal("campaign id missing from response")
	}
	if res.TotalRecipients != 2 {
		t.Fatalf("expected 2 recipients from CSV, got %d", res.TotalRecipients)
	}
	return res.ID
}

func TestCreateAndStartCampaign(t *testing.T) {
	router, _ := newTestRouter(alwaysSucceed())
	id := createCampaign(t, router)

	w := doJSON(t, router, "POST", "/campaigns/"+id+"/start", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("start returned %d: %s", w.Code, w.Body.String())
	}

	var res service.CampaignSummary
	json.NewDecoder(w.Body).Decode(&res)
	if res.Status != model.StatusCompleted {
		t.Errorf("expected completed, got %s", res.Status)
	}
	if res.SentCount != 2 || res.SuccessRate != 100 {
		t.Errorf("expected 2 sent at 100%%, got %d at %d%%", res.SentCount, res.SuccessRate)
	}
}

func TestSendCreatesAndStartsInOneStep(t *testing.T) {
	router, svc := newTestRouter(alwaysSucceed())

	w := doJSON(t, router, "POST", "/campaigns/send", map[string]interface{}{
		"subject":   "Hi {firstName}",
		"body":      "Hello {firstName}!",
		"send_mode": "bulk",
		"csv":       "id,firstName,email\n1,Ana,a@x.com\n2,Bo,b@x.com\n",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("send returned %d: %s", w.Code, w.Body.String())
	}

	var res service.CampaignSummary
	json.NewDecoder(w.Body).Decode(&res)
	if res.Status != model.StatusCompleted {
		t.Errorf("expected completed, got %s", res.Status)
	}

	stored, err := svc.Store.GetByID(res.ID)
	if err != nil {
		t.Fatalf("campaign not in store: %v", err)
	}
	if sent, _ := stored.Ledger.Counts(); sent != 2 {
		t.Errorf("expected 2 sent, got %d", sent)
	}
}

func TestFailedSendStoresNothing(t *testing.T) {
	router, svc := newTestRouter(alwaysSucceed())

	w := doJSON(t, router, "POST", "/campaigns/send", map[string]interface{}{
		"body": "Hello {firstName}!",
		"csv":  "id,firstName,email\n1,Ana,a@x.com\n",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty subject, got %d: %s", w.Code, w.Body.String())
	}

	all, err := svc.Store.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("failed send left %d campaign(s) behind", len(all))
	}
}

func TestLoadCampaignReturnsDraftFields(t *testing.T) {
	router, _ := newTestRouter(alwaysSucceed())
	id := createCampaign(t, router)

	w := doJSON(t, router, "POST", "/campaigns/"+id+"/load", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("load returned %d: %s", w.Code, w.Body.String())
	}

	var res struct {
		ID         string               `json:"id"`
		Subject    string               `json:"subject"`
		Body       string               `json:"body"`
		SendMode   string               `json:"send_mode"`
		Recipients model.RecipientTable `json:"recipients"`
	}
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if res.ID != id || res.Subject != "Hi {firstName}" || res.SendMode != model.ModeBulk {
		t.Errorf("unexpected draft fields: %+v", res)
	}
	if len(res.Recipients) != 2 || res.Recipients[0]["firstName"] != "Ana" {
		t.Errorf("recipient table not returned: %v", res.Recipients)
	}
}

func TestLoadUnknownCampaignReturns404(t *testing.T) {
	router, _ := newTestRouter(alwaysSucceed())

	w := doJSON(t, router, "POST", "/campaigns/nope/load", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestStartValidationReturns400(t *testing.T) {
	router, _ := newTestRouter(alwaysSucceed())

	w := doJSON(t, router, "POST", "/campaigns", map[string]interface{}{
		"subject": "Hi",
		"body":    "Hello",
	})
	var res service.CampaignSummary
	json.NewDecoder(w.Body).Decode(&res)

	w = doJSON(t, router, "POST", "/campaigns/"+res.ID+"/start", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty recipient list, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "recipients") {
		t.Errorf("error should name the missing field: %s", w.Body.String())
	}
}

func TestListCampaigns(t *testing.T) {
	router, _ := newTestRouter(alwaysSucceed())
	first := createCampaign(t, router)
	second := createCampaign(t, router)

	w := doJSON(t, router, "GET", "/campaigns", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list returned %d", w.Code)
	}

	var res struct {
		Data  []service.CampaignSummary `json:"data"`
		Total int                       `json:"total"`
	}
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if res.Total != 2 {
		t.Fatalf("expected 2 campaigns, got %d", res.Total)
	}
	if res.Data[0].ID != second || res.Data[1].ID != first {
		t.Error("campaigns not ordered most-recently-created first")
	}
}

func TestGetCampaignStats(t *testing.T) {
	failBo := service.DeliverFunc(func(subject, body, key string) error {
		if key == "2" {
			return fmt.Errorf("invalid email address")
		}
		return nil
	})
	router, _ := newTestRouter(failBo)
	id := createCampaign(t, router)
	doJSON(t, router, "POST", "/campaigns/"+id+"/start", nil)

	w := doJSON(t, router, "GET", "/campaigns/"+id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get returned %d", w.Code)
	}

	var res struct {
		Campaign service.CampaignSummary `json:"campaign"`
		Stats    map[string]int          `json:"stats"`
		Errors   map[string]string       `json:"errors"`
	}
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if res.Stats["sent"] != 1 || res.Stats["errored"] != 1 || res.Stats["pending"] != 0 {
		t.Errorf("unexpected stats: %v", res.Stats)
	}
	if res.Campaign.SuccessRate != 50 {
		t.Errorf("expected 50%% success rate, got %d", res.Campaign.SuccessRate)
	}
	if res.Errors["2"] != "invalid email address" {
		t.Errorf("expected error detail for recipient 2, got %v", res.Errors)
	}
}

func TestPersonalizedPreview(t *testing.T) {
	router, _ := newTestRouter(alwaysSucceed())
	id := createCampaign(t, router)

	w := doJSON(t, router, "POST", "/campaigns/"+id+"/personalized-preview", map[string]interface{}{
		"recipient_index": 0,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("preview returned %d: %s", w.Code, w.Body.String())
	}

	var res service.PreviewResult
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if res.Subject != "Hi Ana" {
		t.Errorf("expected \"Hi Ana\", got %q", res.Subject)
	}
	if !strings.Contains(res.Body, "Hello Ana!") || !strings.Contains(res.Body, "The Boardy Team") {
		t.Errorf(`expected rendered body with signature, got %q`, res.Body)
	}
}

func TestPreviewIndexOutOfRange(t *testing.T) {
	router, _ := newTestRouter(alwaysSucceed())
	id := createCampaign(t, router)

	w := doJSON(t, router, "POST", "/campaigns/"+id+"/personalized-preview", map[string]interface{}{
		"recipient_index": 99,
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestDeleteCampaignIsIdempotent(t *testing.T) {
	router, svc := newTestRouter(alwaysSucceed())
	id := createCampaign(t, router)

	w := doJSON(t, router, "DELETE", "/campaigns/"+id, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete returned %d", w.Code)
	}
	if _, err := svc.Store.GetByID(id); err == nil {
		t.Error("campaign still present after delete")
	}

	// deleting again is a silent no-op
	w = doJSON(t, router, "DELETE", "/campaigns/"+id, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("second delete returned %d", w.Code)
	}
}
