package prefs

import (
	"context"
	"errors"
	"fmt"

	"github.com/Veraticus/quotewright/internal/common"
	"github.com/Veraticus/quotewright/internal/model"
)

// Backend saves and loads preference payloads.
type Backend interface {
	Saver
	Load(ctx context.Context, c Context) (Payload, bool, error)
}

// Store is the persistence surface used by StoreBackend.
type Store interface {
	SaveTablePreference(ctx context.Context, pref *model.TablePreference) error
	GetTablePreference(ctx context.Context, contextKey string) (*model.TablePreference, error)
}

// StoreBackend keeps preferences in the local database.
type StoreBackend struct {
	store Store
}

// NewStoreBackend wraps a Store.
func NewStoreBackend(store Store) *StoreBackend {
	return &StoreBackend{store: store}
}

// Save writes the payload under the context key.
func (b *StoreBackend) Save(ctx context.Context, c Context, p Payload) error {
	pref := &model.TablePreference{
		ContextKey: c.Key(),
		Widths:     p.Widths,
		Order:      p.Order,
	}
	if err := b.store.SaveTablePreference(ctx, pref); err != nil {
		return fmt.Errorf("failed to save preference %s: %w", c.Key(), err)
	}
	return nil
}

// Load returns the stored payload for c, if any.
func (b *StoreBackend) Load(ctx context.Context, c Context) (Payload, bool, error) {
	pref, err := b.store.GetTablePreference(ctx, c.Key())
	if errors.Is(err, common.ErrNotFound) {
		return Payload{}, false, nil
	}
	if err != nil {
		return Payload{}, false, fmt.Errorf("failed to load preference %s: %w", c.Key(), err)
	}
	return Payload{Widths: pref.Widths, Order: pref.Order}, true, nil
}
