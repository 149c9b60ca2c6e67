// internal/model/ledger.go
package model

import (
	"time"

	appErrors "github.com/boardyhq/campaign-backend/internal/errors"
)

// Outcome statuses
const (
	OutcomeSent    = "sent"
	OutcomeErrored = "errored"
)

// Outcome is a recipient's terminal processing result within one campaign.
type Outcome struct {
	Status      string    `json:"status"`
	ErrorDetail string    `json:"error_detail,omitempty"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// Ledger maps recipient identity key -> outcome. Append-only except for Clear.
// Serializing writers is the store's job, the ledger itself is plain data.
type Ledger map[string]Outcome

// Record stores an outcome for a key. A key already present means the engine's
// chunk computation is broken, not a user error.
func (l Ledger) Record(key string, o Outcome) error {
	if _, ok := l[key]; ok {
		return appErrors.NewDuplicateKey(key)
	}
	l[key] = o
	return nil
}

func (l Ledger) Lookup(key string) (Outcome, bool) {
	o, ok := l[key]
	return o, ok
}

// Clear removes every entry. Used only by campaign reset.
func (l Ledger) Clear() {
	for k := range l {
		delete(l, k)
	}
}

// Counts returns how many recipients are accounted as sent and as errored.
func (l Ledger) Counts() (sent, errored int) {
	for _, o := range l {
		switch o.Status {
		case OutcomeSent:
			sent++
		case OutcomeErrored:
			errored++
		}
	}
	return sent, errored
}

func (l Ledger) Clone() Ledger {
	cp := make(Ledger, len(l))
	for k, v := range l {
		cp[k] = v
	}
	return cp
}
