package layout

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Markup contract errors.
var (
	ErrEmptyKey      = errors.New("header cell without column key")
	ErrDuplicateKey  = errors.New("duplicate column key")
	ErrUnknownColumn = errors.New("unknown column key")
	ErrPartialRow    = errors.New("row does not cover every column key")
	ErrUnknownTable  = errors.New("table not managed")
)

func validateHeaders(headers []Header) error {
	if len(headers) == 0 {
		return fmt.Errorf("%w: no header cells", ErrEmptyKey)
	}
	seen := make(map[string]struct{}, len(headers))
	for i, h := range headers {
		if h.Key == "" {
			return fmt.Errorf("%w at index %d", ErrEmptyKey, i)
		}
		if _, dup := seen[h.Key]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateKey, h.Key)
		}
		seen[h.Key] = struct{}{}
	}
	return nil
}

// validateRow checks a non-colspan row when reorder is on: either no managed
// cells at all, or exactly the header key set without duplicates.
func validateRow(headerKeys []string, r Row) error {
	if len(r.Cells) == 0 {
		return nil
	}

	allowed := make(map[string]struct{}, len(headerKeys))
	for _, k := range headerKeys {
		allowed[k] = struct{}{}
	}

	seen := make(map[string]struct{}, len(r.Cells))
	for _, c := range r.Cells {
		if _, ok := allowed[c.Key]; !ok {
			return fmt.Errorf("%w: %q in row %s", ErrUnknownColumn, c.Key, r.ID)
		}
		if _, dup := seen[c.Key]; dup {
			return fmt.Errorf("%w: %q in row %s", ErrDuplicateKey, c.Key, r.ID)
		}
		seen[c.Key] = struct{}{}
	}

	if len(seen) != len(allowed) {
		return fmt.Errorf("%w: row %s has %d of %d keys", ErrPartialRow, r.ID, len(seen), len(allowed))
	}
	return nil
}

// ContractReport is the outcome of validating one table's markup.
type ContractReport struct {
	HeaderErr error
	RowErrs   map[string]error
}

// OK reports whether the table and every row passed.
func (r ContractReport) OK() bool {
	return r.HeaderErr == nil && len(r.RowErrs) == 0
}

// Validator checks table markup and logs each table's first violation only,
// so repeated re-scans stay quiet.
type Validator struct {
	logger *slog.Logger
	logged map[string]struct{}
	mu     sync.Mutex
}

// NewValidator creates a validator that logs to logger.
func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{
		logger: logger,
		logged: make(map[string]struct{}),
	}
}

// Validate checks headers and, when reorder is enabled, every non-colspan row.
func (v *Validator) Validate(tableID string, headers []Header, rows []Row, reorder bool) ContractReport {
	report := ContractReport{}

	if err := validateHeaders(headers); err != nil {
		report.HeaderErr = err
		v.logOnce(tableID, "table markup rejected", "error", err)
		return report
	}

	if !reorder {
		return report
	}

	keys := make([]string, len(headers))
	for i, h := range headers {
		keys[i] = h.Key
	}
	for _, r := range rows {
		if r.Colspan {
			continue
		}
		if err := validateRow(keys, r); err != nil {
			if report.RowErrs == nil {
				report.RowErrs = make(map[string]error)
			}
			report.RowErrs[r.ID] = err
		}
	}
	if len(report.RowErrs) > 0 {
		v.logOnce(tableID, "table rows rejected for reorder", "rows", len(report.RowErrs))
	}

	return report
}

// Forget clears the logged flag for a torn-down table.
func (v *Validator) Forget(tableID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.logged, tableID)
}

func (v *Validator) logOnce(tableID, msg string, args ...any) {
	v.mu.Lock()
	_, done := v.logged[tableID]
	v.logged[tableID] = struct{}{}
	v.mu.Unlock()

	if done {
		return
	}
	v.logger.Warn(msg, append([]any{"table", tableID}, args...)...)
}
