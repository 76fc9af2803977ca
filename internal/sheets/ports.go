package sheets

import (
	"context"

	"bilancio/internal/core"
)

// Ports for outbound export adapters.
type (
	// TransactionWriter appends one ledger movement to the export target.
	TransactionWriter interface {
		Append(ctx context.Context, t core.Transaction) (rowRef string, err error)
	}
)
