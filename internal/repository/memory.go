// internal/repository/memory.go
package repository

import (
	"sync"

	appErrors "github.com/boardyhq/campaign-backend/internal/errors"
	"github.com/boardyhq/campaign-backend/internal/model"
)

type memoryEntry struct {
	mu       sync.Mutex
	campaign *model.Campaign
}

// MemoryCampaignStore keeps campaigns in memory. Each campaign carries its own
// lock, so distinct campaigns dispatch concurrently while mutations of one
// campaign are serialized.
type MemoryCampaignStore struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
	order   []string // creation order, oldest first
}

func NewMemoryCampaignStore() *MemoryCampaignStore {
	return &MemoryCampaignStore{
		entries: make(map[string]*memoryEntry),
	}
}

func (s *MemoryCampaignStore) Create(c *model.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[c.ID] = &memoryEntry{campaign: c.Clone()}
	s.order = append(s.order, c.ID)
	return nil
}

func (s *MemoryCampaignStore) entry(id string) (*memoryEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	return e, ok
}

// GetByID returns a copy; callers mutate through Update only.
func (s *MemoryCampaignStore) GetByID(id string) (*model.Campaign, error) {
	e, ok := s.entry(id)
	if !ok {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.campaign.Clone(), nil
}

// List returns campaigns most-recently-created first.
func (s *MemoryCampaignStore) List() ([]*model.Campaign, error) {
	s.mu.RLock()
	ids := make([]string, len(s.order))
	copy(ids, s.order)
	entries := make([]*memoryEntry, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		entries = append(entries, s.entries[ids[i]])
	}
	s.mu.RUnlock()

	campaigns := make([]*model.Campaign, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		campaigns = append(campaigns, e.campaign.Clone())
		e.mu.Unlock()
	}
	return campaigns, nil
}

// Delete is a silent no-op for unknown ids.
func (s *MemoryCampaignStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return nil
	}
	delete(s.entries, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Update runs the mutation against a working copy and swaps it in only on
// success, so a failed mutation leaves no partial state behind.
func (s *MemoryCampaignStore) Update(id string, mutate func(c *model.Campaign) error) error {
	e, ok := s.entry(id)
	if !ok {
		return appErrors.NewCampaignNotFound(id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	working := e.campaign.Clone()
	if err := mutate(working); err != nil {
		return err
	}
	e.campaign = working
	return nil
}

var _ CampaignStoreInterface = (*MemoryCampaignStore)(nil)
