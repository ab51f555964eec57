// Package storage provides the data persistence layer for quotewright.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/quotewright/internal/model"
)

// Validation errors.
var (
	ErrNilContext        = errors.New("context cannot be nil")
	ErrEmptyString       = errors.New("string parameter cannot be empty")
	ErrNilParameter      = errors.New("parameter cannot be nil")
	ErrInvalidID         = errors.New("id must be positive")
	ErrInvalidItem       = errors.New("invalid catalog item")
	ErrInvalidQuote      = errors.New("invalid quote")
	ErrInvalidGroup      = errors.New("invalid quote group")
	ErrInvalidLineItem   = errors.New("invalid line item")
	ErrInvalidPreset     = errors.New("invalid trade preset")
	ErrInvalidPreference = errors.New("invalid table preference")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateID(id int64, paramName string) error {
	if id <= 0 {
		return fmt.Errorf("%w: %s=%d", ErrInvalidID, paramName, id)
	}
	return nil
}

func validateFormat(f model.QuoteFormat) error {
	if _, err := model.ParseQuoteFormat(string(f)); err != nil || f == "" {
		return fmt.Errorf("%w: quote format %q", ErrInvalidQuote, f)
	}
	return nil
}

// validateCatalogItem validates a catalog item.
func validateCatalogItem(item *model.CatalogItem) error {
	if item == nil {
		return fmt.Errorf("%w: catalog item", ErrNilParameter)
	}
	if strings.TrimSpace(item.SKU) == "" {
		return fmt.Errorf("%w: missing sku", ErrInvalidItem)
	}
	if strings.TrimSpace(item.Title) == "" {
		return fmt.Errorf("%w: missing title", ErrInvalidItem)
	}
	switch item.CatalogType {
	case model.CatalogStandard, model.CatalogInsurance:
	default:
		return fmt.Errorf("%w: catalog type %q", ErrInvalidItem, item.CatalogType)
	}
	return nil
}

// validateQuote validates a quote.
func validateQuote(q *model.Quote) error {
	if q == nil {
		return fmt.Errorf("%w: quote", ErrNilParameter)
	}
	if strings.TrimSpace(q.Title) == "" {
		return fmt.Errorf("%w: missing title", ErrInvalidQuote)
	}
	return validateFormat(q.Format)
}

// validateGroups validates a full group batch. Ids must be unique across
// the batch, for groups and for items.
func validateGroups(groups []model.QuoteGroup) error {
	groupIDs := make(map[string]struct{}, len(groups))
	itemIDs := make(map[string]struct{})

	for i, g := range groups {
		if strings.TrimSpace(g.ID) == "" {
			return fmt.Errorf("%w: group at index %d has no id", ErrInvalidGroup, i)
		}
		if _, dup := groupIDs[g.ID]; dup {
			return fmt.Errorf("%w: duplicate group id %s", ErrInvalidGroup, g.ID)
		}
		groupIDs[g.ID] = struct{}{}

		if _, err := model.ParseSelectionMode(string(g.SelectionMode)); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidGroup, err)
		}

		for j, it := range g.Items {
			if strings.TrimSpace(it.ID) == "" {
				return fmt.Errorf("%w: item %d of group %s has no id", ErrInvalidLineItem, j, g.ID)
			}
			if _, dup := itemIDs[it.ID]; dup {
				return fmt.Errorf("%w: duplicate item id %s", ErrInvalidLineItem, it.ID)
			}
			itemIDs[it.ID] = struct{}{}
		}
	}
	return nil
}

// validatePreset validates a trade preset.
func validatePreset(p *model.TradePreset) error {
	if p == nil {
		return fmt.Errorf("%w: preset", ErrNilParameter)
	}
	if p.TradeID <= 0 {
		return fmt.Errorf("%w: missing trade id", ErrInvalidPreset)
	}
	if err := validateFormat(p.Format); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPreset, err)
	}
	return nil
}
