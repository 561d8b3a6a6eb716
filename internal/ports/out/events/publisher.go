package events

import (
	"context"
	"time"
)

// SettlementEvent describes a terminal settlement transition. Amount is the
// two-decimal string form so consumers never see binary floats.
type SettlementEvent struct {
	Key       string    `json:"key"`
	Renter    string    `json:"renter"`
	Driver    string    `json:"driver"`
	ListingID string    `json:"listing_id"`
	Amount    string    `json:"amount"`
	At        time.Time `json:"at"`
}

// Publisher emits settlement lifecycle events for downstream consumers.
type Publisher interface {
	// SettlementCompleted is emitted after a booking commits.
	SettlementCompleted(ctx context.Context, ev SettlementEvent) error

	// SettlementStuck is emitted when a debit committed but the booking
	// insert failed: the event operators reconcile from.
	SettlementStuck(ctx context.Context, ev SettlementEvent) error
}

// Nop discards all events. Used when no broker is configured.
type Nop struct{}

func (Nop) SettlementCompleted(context.Context, SettlementEvent) error { return nil }
func (Nop) SettlementStuck(context.Context, SettlementEvent) error    { return nil }
