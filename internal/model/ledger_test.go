package model

import (
	"errors"
	"testing"
	"time"

	appErrors "github.com/boardyhq/campaign-backend/internal/errors"
)

func TestLedgerRecordAndCounts(t *testing.T) {
	l := Ledger{}

	if err := l.Record("1", Outcome{Status: OutcomeSent, RecordedAt: time.Now()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := l.Record("2", Outcome{Status: OutcomeErrored, ErrorDetail: "invalid email address", RecordedAt: time.Now()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sent, errored := l.Counts()
	if sent != 1 || errored != 1 {
		t.Errorf("expected 1 sent / 1 errored, got %d / %d", sent, errored)
	}

	o, ok := l.Lookup("2")
	if !ok {
		t.Fatal("expected outcome for key 2")
	}
	if o.ErrorDetail != "invalid email address" {
		t.Errorf("unexpected error detail %q", o.ErrorDetail)
	}
}

func TestLedgerRejectsDuplicateKey(t *testing.T) {
	l := Ledger{}
	if err := l.Record("1", Outcome{Status: OutcomeSent}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := l.Record("1", Outcome{Status: OutcomeErrored})
	var dup *appErrors.DuplicateKeyError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateKeyError, got %v", err)
	}

	// the original outcome must survive
	o, _ := l.Lookup("1")
	if o.Status != OutcomeSent {
		t.Errorf("duplicate record overwrote the outcome: %q", o.Status)
	}
}

func TestLedgerClear(t *testing.T) {
	l := Ledger{}
	l.Record("1", Outcome{Status: OutcomeSent})
	l.Record("2", Outcome{Status: OutcomeErrored})

	l.Clear()

	sent, errored := l.Counts()
	if sent != 0 || errored != 0 {
		t.Errorf("expected empty ledger after clear, got %d / %d", sent, errored)
	}
	if _, ok := l.Lookup("1"); ok {
		t.Error("key survived clear")
	}
}

func TestPendingPreservesOrderAndSkipsRecorded(t *testing.T) {
	c := &Campaign{
		Recipients: RecipientTable{
			{"id": "1"}, {"id": "2"}, {"id": "3"},
		},
		Ledger: Ledger{"2": {Status: OutcomeSent}},
	}

	pending := c.Pending()
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending, got %d", len(pending))
	}
	if pending[0].Key() != "1" || pending[1].Key() != "3" {
		t.Errorf("pending out of order: %v", pending)
	}
}

func TestPendingCollapsesDuplicateKeys(t *testing.T) {
	c := &Campaign{
		Recipients: RecipientTable{
			{"id": "1"}, {"id": "1"}, {"id": "2"},
		},
		Ledger: Ledger{},
	}
	if got := len(c.Pending()); got != 2 {
		t.Errorf("expected duplicates collapsed to 2 pending, got %d", got)
	}
}

func TestSuccessRate(t *testing.T) {
	c := &Campaign{
		Recipients: RecipientTable{{"id": "1"}, {"id": "2"}, {"id": "3"}},
		Ledger: Ledger{
			"1": {Status: OutcomeSent},
			"2": {Status: OutcomeSent},
			"3": {Status: OutcomeErrored},
		},
	}
	if got := c.SuccessRate(); got != 67 {
		t.Errorf("expected 67, got %d", got)
	}

	empty := &Campaign{Ledger: Ledger{}}
	if got := empty.SuccessRate(); got != 0 {
		t.Errorf("expected 0 for empty table, got %d", got)
	}
}
