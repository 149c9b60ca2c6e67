// internal/service/campaign_service.go
package service

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	appErrors "github.com/boardyhq/campaign-backend/internal/errors"
	"github.com/boardyhq/campaign-backend/internal/model"
	"github.com/boardyhq/campaign-backend/internal/repository"
)

// DefaultIntervals maps drip interval units to wall-clock durations. Demo
// deployments override these via the service's Intervals field.
var DefaultIntervals = map[string]time.Duration{
	model.IntervalHourly: time.Hour,
	model.IntervalDaily:  24 * time.Hour,
}

// CampaignService is the dispatch engine: it owns campaign lifecycle
// transitions, runs activations, and schedules drip continuations. All
// campaign mutation goes through Store.Update, which serializes writers per
// campaign, so a resume racing a pending drip timer can never run two
// activations at once.
type CampaignService struct {
	Store     repository.CampaignStoreInterface
	Deliverer Deliverer
	Intervals map[string]time.Duration

	timerMu sync.Mutex
	timers  map[string]*time.Timer
}

func NewCampaignService(store repository.CampaignStoreInterface, deliverer Deliverer, intervals map[string]time.Duration) *CampaignService {
	if intervals == nil {
		intervals = DefaultIntervals
	}
	return &CampaignService{
		Store:     store,
		Deliverer: deliverer,
		Intervals: intervals,
		timers:    make(map[string]*time.Timer),
	}
}

// CreateCampaign snapshots the draft into a new campaign. The recipient table
// is copied, so editing the source list later leaves the campaign alone.
func (s *CampaignService) CreateCampaign(draft model.CampaignDraft) (*model.Campaign, error) {
	mode := draft.SendMode
	if mode == "" {
		mode = model.ModeBulk
	}
	c := &model.Campaign{
		ID:           uuid.NewString(),
		Subject:      draft.Subject,
		Body:         draft.Body,
		SendMode:     mode,
		BatchSize:    draft.BatchSize,
		DripRate:     draft.DripRate,
		DripInterval: draft.DripInterval,
		Status:       model.StatusDraft,
		Recipients:   draft.Recipients.Clone(),
		Ledger:       model.Ledger{},
		CreatedAt:    time.Now(),
	}
	if err := s.Store.Create(c); err != nil {
		return nil, err
	}
	return c, nil
}

// SendCampaign creates a campaign from the draft and starts it in one step.
// The draft is validated up front so a draft that cannot start is never
// stored.
func (s *CampaignService) SendCampaign(draft model.CampaignDraft) (*model.Campaign, error) {
	mode := draft.SendMode
	if mode == "" {
		mode = model.ModeBulk
	}
	if err := validateStart(&model.Campaign{
		Subject:      draft.Subject,
		Body:         draft.Body,
		SendMode:     mode,
		BatchSize:    draft.BatchSize,
		DripRate:     draft.DripRate,
		DripInterval: draft.DripInterval,
		Recipients:   draft.Recipients,
	}); err != nil {
		return nil, err
	}
	c, err := s.CreateCampaign(draft)
	if err != nil {
		return nil, err
	}
	return s.StartCampaign(c.ID)
}

// validateStart checks the start preconditions. Fields irrelevant to the
// selected mode are ignored.
func validateStart(c *model.Campaign) error {
	if len(c.Recipients) == 0 {
		return appErrors.NewValidation("recipients", "recipient list is empty")
	}
	if strings.TrimSpace(c.Subject) == "" {
		return appErrors.NewValidation("subject", "subject template is empty")
	}
	if strings.TrimSpace(c.Body) == "" {
		for i, r := range c.Recipients {
			if _, ok := r.Override(); !ok {
				return appErrors.NewValidation("body", fmt.Sprintf("body template is empty and recipient %d has no custom content", i+1))
			}
		}
	}
	for i, r := range c.Recipients {
		if r.Key() == "" {
			return appErrors.NewValidation("recipients", fmt.Sprintf("recipient %d has neither an id nor an email", i+1))
		}
	}
	switch c.SendMode {
	case model.ModeBulk:
	case model.ModeBatch:
		if c.BatchSize < 1 {
			return appErrors.NewValidation("batch_size", "batch size must be a positive integer")
		}
	case model.ModeDrip:
		if c.DripRate < 1 {
			return appErrors.NewValidation("drip_rate", "drip rate must be a positive integer")
		}
		if c.DripInterval != model.IntervalHourly && c.DripInterval != model.IntervalDaily {
			return appErrors.NewValidation("drip_interval", "drip interval must be hourly or daily")
		}
	default:
		return appErrors.NewValidation("send_mode", fmt.Sprintf("unknown send mode %q", c.SendMode))
	}
	return nil
}

// StartCampaign validates the campaign, moves it into sending, and runs one
// activation synchronously. Validation failures change nothing.
func (s *CampaignService) StartCampaign(id string) (*model.Campaign, error) {
	err := s.Store.Update(id, func(c *model.Campaign) error {
		if c.Status == model.StatusCompleted {
			return appErrors.NewValidation("status", "campaign is already completed")
		}
		if err := validateStart(c); err != nil {
			return err
		}
		if c.StartedAt == nil {
			now := time.Now()
			c.StartedAt = &now
		}
		c.Status = model.StatusSending
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Activate(id)
}

// Activate runs one activation: it takes the next chunk of pending recipients,
// delivers to each, records outcomes, and completes the campaign once every
// recipient is accounted for. On a drip campaign that is still unfinished it
// arms exactly one timer for the next activation. Activating a campaign that
// is not sending is a no-op.
func (s *CampaignService) Activate(id string) (*model.Campaign, error) {
	var dripInterval string
	scheduleNext := false

	err := s.Store.Update(id, func(c *model.Campaign) error {
		if c.Status != model.StatusSending {
			return nil
		}

		pending := c.Pending()
		chunk := len(pending)
		switch c.SendMode {
		case model.ModeBatch:
			if c.BatchSize < chunk {
				chunk = c.BatchSize
			}
		case model.ModeDrip:
			if c.DripRate < chunk {
				chunk = c.DripRate
			}
		}

		for _, r := range pending[:chunk] {
			subject := RenderSubject(c, r)
			body := RenderBody(c, r)
			key := r.Key()

			outcome := model.Outcome{Status: model.OutcomeSent, RecordedAt: time.Now()}
			if err := s.Deliverer.Deliver(subject, body, key); err != nil {
				outcome = model.Outcome{
					Status:      model.OutcomeErrored,
					ErrorDetail: err.Error(),
					RecordedAt:  time.Now(),
				}
			}
			if err := c.Ledger.Record(key, outcome); err != nil {
				return err
			}
		}

		if len(c.Pending()) == 0 {
			c.Status = model.StatusCompleted
			now := time.Now()
			c.CompletedAt = &now
		} else if c.SendMode == model.ModeDrip {
			dripInterval = c.DripInterval
			scheduleNext = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if scheduleNext {
		s.scheduleActivation(id, s.interval(dripInterval))
	}
	return s.Store.GetByID(id)
}

func (s *CampaignService) interval(unit string) time.Duration {
	if d, ok := s.Intervals[unit]; ok {
		return d
	}
	return DefaultIntervals[model.IntervalHourly]
}

// scheduleActivation arms a single cancellable timer for the campaign,
// replacing any timer already armed. The status is re-read under the timer
// lock: a pause that lands between the triggering activation and this call
// must not be trailed by a timer it never had a chance to cancel.
func (s *CampaignService) scheduleActivation(id string, d time.Duration) {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	c, err := s.Store.GetByID(id)
	if err != nil || c.Status != model.StatusSending {
		return
	}
	if t, ok := s.timers[id]; ok {
		t.Stop()
	}
	s.timers[id] = time.AfterFunc(d, func() {
		s.timerMu.Lock()
		delete(s.timers, id)
		s.timerMu.Unlock()
		if _, err := s.Activate(id); err != nil {
			log.Println("scheduled activation failed for campaign", id, ":", err)
		}
	})
}

func (s *CampaignService) cancelScheduled(id string) {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
}

// PauseCampaign cancels any pending drip continuation and flags the campaign
// paused. A timer that already fired and is waiting on the campaign lock will
// find the campaign paused and do nothing.
func (s *CampaignService) PauseCampaign(id string) (*model.Campaign, error) {
	s.cancelScheduled(id)
	err := s.Store.Update(id, func(c *model.Campaign) error {
		if c.Status != model.StatusSending {
			return appErrors.NewValidation("status", fmt.Sprintf("cannot pause a %s campaign", c.Status))
		}
		c.Status = model.StatusPaused
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Store.GetByID(id)
}

// ResumeCampaign flips a paused campaign back to sending. It does not re-arm
// the drip timer or process anything; callers wanting immediate progress
// compose this with Activate.
func (s *CampaignService) ResumeCampaign(id string) (*model.Campaign, error) {
	err := s.Store.Update(id, func(c *model.Campaign) error {
		if c.Status != model.StatusPaused {
			return appErrors.NewValidation("status", fmt.Sprintf("cannot resume a %s campaign", c.Status))
		}
		c.Status = model.StatusSending
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Store.GetByID(id)
}

// ResetCampaign clears the ledger and returns the campaign to draft so every
// recipient becomes pending again. Successes are forgotten along with errors.
// The campaign stays in the store.
func (s *CampaignService) ResetCampaign(id string) (*model.Campaign, error) {
	s.cancelScheduled(id)
	err := s.Store.Update(id, func(c *model.Campaign) error {
		if c.Status == model.StatusSending {
			return appErrors.NewValidation("status", "pause the campaign before resetting it")
		}
		c.Ledger.Clear()
		c.Status = model.StatusDraft
		c.StartedAt = nil
		c.CompletedAt = nil
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Store.GetByID(id)
}

// DeleteCampaign removes the campaign from the store. Unknown ids are a
// silent no-op.
func (s *CampaignService) DeleteCampaign(id string) error {
	s.cancelScheduled(id)
	return s.Store.Delete(id)
}
