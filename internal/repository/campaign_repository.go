// internal/repository/campaign_repository.go
package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	appErrors "github.com/boardyhq/campaign-backend/internal/errors"
	"github.com/boardyhq/campaign-backend/internal/model"
)

// CampaignRepository is the postgres-backed campaign store. The in-memory
// store is the default; deployments that need campaign history to survive a
// restart point the server and worker at the same database instead.
type CampaignRepository struct {
	DB *sql.DB
}

// Schema holds the DDL for the three campaign tables. The unique key on
// (campaign_id, recipient_key) backs the ledger's duplicate-key invariant.
const Schema = `
CREATE TABLE IF NOT EXISTS campaigns (
    id            TEXT PRIMARY KEY,
    subject       TEXT NOT NULL,
    body          TEXT NOT NULL,
    send_mode     TEXT NOT NULL,
    batch_size    INT NOT NULL DEFAULT 0,
    drip_rate     INT NOT NULL DEFAULT 0,
    drip_interval TEXT NOT NULL DEFAULT '',
    status        TEXT NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL,
    started_at    TIMESTAMPTZ,
    completed_at  TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS campaign_recipients (
    campaign_id TEXT NOT NULL REFERENCES campaigns(id) ON DELETE CASCADE,
    position    INT NOT NULL,
    fields      JSONB NOT NULL,
    PRIMARY KEY (campaign_id, position)
);

CREATE TABLE IF NOT EXISTS campaign_outcomes (
    campaign_id   TEXT NOT NULL REFERENCES campaigns(id) ON DELETE CASCADE,
    recipient_key TEXT NOT NULL,
    status        TEXT NOT NULL,
    error_detail  TEXT NOT NULL DEFAULT '',
    recorded_at   TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (campaign_id, recipient_key)
);
`

// Migrate creates the campaign tables if they do not exist.
func (r *CampaignRepository) Migrate() error {
	_, err := r.DB.Exec(Schema)
	return err
}

func (r *CampaignRepository) Create(c *model.Campaign) error {
	tx, err := r.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
        INSERT INTO campaigns (id, subject, body, send_mode, batch_size, drip_rate, drip_interval, status, created_at, started_at, completed_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `
	_, err = tx.Exec(query, c.ID, c.Subject, c.Body, c.SendMode, c.BatchSize, c.DripRate, c.DripInterval, c.Status, c.CreatedAt, c.StartedAt, c.CompletedAt)
	if err != nil {
		return err
	}

	if err := insertRecipients(tx, c.ID, c.Recipients); err != nil {
		return err
	}
	if err := insertOutcomes(tx, c.ID, c.Ledger, nil); err != nil {
		return err
	}
	return tx.Commit()
}

func insertRecipients(tx *sql.Tx, campaignID string, table model.RecipientTable) error {
	query := `INSERT INTO campaign_recipients (campaign_id, position, fields) VALUES ($1, $2, $3)`
	for i, recipient := range table {
		fields, err := json.Marshal(recipient)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(query, campaignID, i, fields); err != nil {
			return err
		}
	}
	return nil
}

// insertOutcomes writes ledger entries not present in prev. The ledger is
// append-only between resets, so new keys are the whole diff.
func insertOutcomes(tx *sql.Tx, campaignID string, ledger, prev model.Ledger) error {
	query := `
        INSERT INTO campaign_outcomes (campaign_id, recipient_key, status, error_detail, recorded_at)
        VALUES ($1, $2, $3, $4, $5)
    `
	for key, o := range ledger {
		if _, ok := prev[key]; ok {
			continue
		}
		if _, err := tx.Exec(query, campaignID, key, o.Status, o.ErrorDetail, o.RecordedAt); err != nil {
			return err
		}
	}
	return nil
}

func (r *CampaignRepository) GetByID(id string) (*model.Campaign, error) {
	return loadCampaign(r.DB, id, false)
}

type querier interface {
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

func loadCampaign(q querier, id string, forUpdate bool) (*model.Campaign, error) {
	query := `
        SELECT id, subject, body, send_mode, batch_size, drip_rate, drip_interval, status, created_at, started_at, completed_at
        FROM campaigns WHERE id=$1
    `
	if forUpdate {
		query += " FOR UPDATE"
	}

	var c model.Campaign
	err := q.QueryRow(query, id).Scan(
		&c.ID, &c.Subject, &c.Body, &c.SendMode, &c.BatchSize, &c.DripRate,
		&c.DripInterval, &c.Status, &c.CreatedAt, &c.StartedAt, &c.CompletedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, err
	}

	c.Recipients, err = loadRecipients(q, id)
	if err != nil {
		return nil, err
	}
	c.Ledger, err = loadOutcomes(q, id)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func loadRecipients(q querier, campaignID string) (model.RecipientTable, error) {
	rows, err := q.Query(`SELECT fields FROM campaign_recipients WHERE campaign_id=$1 ORDER BY position`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	table := model.RecipientTable{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		recipient := model.Recipient{}
		if err := json.Unmarshal(raw, &recipient); err != nil {
			return nil, err
		}
		table = append(table, recipient)
	}
	return table, rows.Err()
}

func loadOutcomes(q querier, campaignID string) (model.Ledger, error) {
	rows, err := q.Query(`SELECT recipient_key, status, error_detail, recorded_at FROM campaign_outcomes WHERE campaign_id=$1`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ledger := model.Ledger{}
	for rows.Next() {
		var key string
		var o model.Outcome
		if err := rows.Scan(&key, &o.Status, &o.ErrorDetail, &o.RecordedAt); err != nil {
			return nil, err
		}
		ledger[key] = o
	}
	return ledger, rows.Err()
}

// List returns campaigns most-recently-created first.
func (r *CampaignRepository) List() ([]*model.Campaign, error) {
	rows, err := r.DB.Query(`SELECT id FROM campaigns ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	campaigns := make([]*model.Campaign, 0, len(ids))
	for _, id := range ids {
		c, err := loadCampaign(r.DB, id, false)
		if err != nil {
			if appErrors.IsNotFound(err) {
				continue // deleted between the two queries
			}
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, nil
}

// Delete is a silent no-op for unknown ids; recipient and outcome rows go with
// the campaign via ON DELETE CASCADE.
func (r *CampaignRepository) Delete(id string) error {
	_, err := r.DB.Exec(`DELETE FROM campaigns WHERE id=$1`, id)
	return err
}

// Update loads the campaign inside a transaction with the row locked, applies
// the mutation, and persists the result. The row lock serializes concurrent
// activations on the same campaign across processes.
func (r *CampaignRepository) Update(id string, mutate func(c *model.Campaign) error) error {
	tx, err := r.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	c, err := loadCampaign(tx, id, true)
	if err != nil {
		return err
	}
	prev := c.Ledger.Clone()

	if err := mutate(c); err != nil {
		return err
	}

	query := `
        UPDATE campaigns
        SET subject=$1, body=$2, send_mode=$3, batch_size=$4, drip_rate=$5, drip_interval=$6, status=$7, started_at=$8, completed_at=$9
        WHERE id=$10
    `
	if _, err := tx.Exec(query, c.Subject, c.Body, c.SendMode, c.BatchSize, c.DripRate, c.DripInterval, c.Status, c.StartedAt, c.CompletedAt, c.ID); err != nil {
		return err
	}

	if len(c.Ledger) < len(prev) {
		// Only a reset shrinks the ledger; start over.
		if _, err := tx.Exec(`DELETE FROM campaign_outcomes WHERE campaign_id=$1`, c.ID); err != nil {
			return err
		}
		prev = nil
	}
	if err := insertOutcomes(tx, c.ID, c.Ledger, prev); err != nil {
		return fmt.Errorf("failed to persist outcomes: %w", err)
	}
	return tx.Commit()
}

var _ CampaignStoreInterface = (*CampaignRepository)(nil)
