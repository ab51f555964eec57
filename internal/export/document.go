package export

import (
	"context"
	"fmt"

	"github.com/Veraticus/quotewright/internal/model"
	"github.com/Veraticus/quotewright/internal/pricing"
)

// QuoteSource loads stored quotes.
type QuoteSource interface {
	Draft(ctx context.Context, quoteID int64) (*model.Quote, pricing.Draft, error)
	Groups(ctx context.Context, quoteID int64) ([]model.QuoteGroup, error)
	Settings() pricing.Settings
}

// LoadDocument loads a quote with its groups and computed totals.
func LoadDocument(ctx context.Context, src QuoteSource, quoteID int64) (Document, error) {
	q, draft, err := src.Draft(ctx, quoteID)
	if err != nil {
		return Document{}, err
	}
	groups, err := src.Groups(ctx, quoteID)
	if err != nil {
		return Document{}, fmt.Errorf("failed to load groups for export: %w", err)
	}
	return Document{
		Quote:  q,
		Groups: groups,
		Totals: pricing.Aggregate(draft, src.Settings()),
	}, nil
}
