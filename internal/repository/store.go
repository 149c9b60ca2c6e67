// internal/repository/store.go
package repository

import "github.com/boardyhq/campaign-backend/internal/model"

// CampaignStoreInterface is the campaign store boundary the dispatch engine
// talks to. Update applies the mutation atomically: concurrent mutations of
// the same campaign are serialized, and readers never observe a partial
// update. A mutation returning an error leaves the campaign unchanged.
type CampaignStoreInterface interface {
	Create(c *model.Campaign) error
	GetByID(id string) (*model.Campaign, error)
	List() ([]*model.Campaign, error)
	Delete(id string) error
	Update(id string, mutate func(c *model.Campaign) error) error
}
