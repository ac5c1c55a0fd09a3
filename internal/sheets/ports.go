// Package sheets defines where the ledger journal is exported to.
package sheets

import (
	"context"

	"gastos/internal/ledger"
)

// Ports for outbound adapters.
type (
	// JournalWriter appends journaled ledger events, one row per event, in
	// the order given. Either all rows are written or an error is returned.
	JournalWriter interface {
		AppendEvents(ctx context.Context, events []ledger.Event) error
	}
)
