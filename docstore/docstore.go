// Package docstore defines the narrow contract this module needs from the
// remote record store: point reads, merge writes, filtered queries, and
// serializable transactions over a small, explicit document set.
//
// Backends translate their native failure modes into the sentinel errors
// below; the session layer turns those into per-field degradation tags and
// never interprets a transport failure as a semantic result.
package docstore

import (
	"context"
	"errors"
	"time"
)

// Collection names used by the account core. These are part of the stored
// data contract and shared by every backend.
const (
	Users         = "users"
	Usernames     = "usernames"
	Organizations = "organizations"
	Stats         = "stats"
	Subscriptions = "subscriptions"
	Tokens        = "aero_tokens"
	Shortcuts     = "quicklaunch"
)

// StatsGlobal is the id of the single global stats document.
const StatsGlobal = "global"

// Sentinel errors for store failure modes.
var (
	ErrNotFound         = errors.New("docstore: not found")
	ErrPermissionDenied = errors.New("docstore: permission denied")
	ErrUnavailable      = errors.New("docstore: unavailable")
	ErrConflict         = errors.New("docstore: transaction conflict")
	ErrClosed           = errors.New("docstore: store is closed")
)

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsPermissionDenied returns true if the error is a permission error.
func IsPermissionDenied(err error) bool { return errors.Is(err, ErrPermissionDenied) }

// Op is a query filter operator.
type Op string

const (
	OpEqual         Op = "=="
	OpArrayContains Op = "array-contains"
)

// Filter restricts a Query to documents whose field matches the value.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Where builds an equality filter.
func Where(field string, value any) Filter {
	return Filter{Field: field, Op: OpEqual, Value: value}
}

// WhereContains builds an array-membership filter.
func WhereContains(field string, value any) Filter {
	return Filter{Field: field, Op: OpArrayContains, Value: value}
}

// Document is a stored record: an id plus a flat field map.
type Document struct {
	ID     string
	Fields map[string]any
}

// Exists reports whether the document carries any fields.
// Backends return a zero Document together with ErrNotFound on point-read
// misses; Exists is for query results.
func (d Document) Exists() bool { return d.Fields != nil }

// String returns the named field as a string, or "" when absent or mistyped.
func (d Document) String(field string) string {
	s, _ := d.Fields[field].(string)
	return s
}

// Int64 returns the named field as an int64, tolerating the numeric types
// different backends decode into.
func (d Document) Int64(field string) int64 {
	switch v := d.Fields[field].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

// Bool returns the named field as a bool, or false when absent or mistyped.
func (d Document) Bool(field string) bool {
	b, _ := d.Fields[field].(bool)
	return b
}

// Strings returns the named field as a string slice. Backends that decode
// arrays as []any are handled element-wise.
func (d Document) Strings(field string) []string {
	switch v := d.Fields[field].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Time returns the named field as a time.Time, accepting native timestamps
// and RFC 3339 strings. Returns the zero time when absent or unparseable.
func (d Document) Time(field string) time.Time {
	switch v := d.Fields[field].(type) {
	case time.Time:
		return v
	case string:
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}
		}
		return t
	default:
		return time.Time{}
	}
}

// Tx is the handle passed to a transaction function. Reads observe the
// pre-transaction state; writes are buffered and applied atomically when the
// function returns nil. Returning an error aborts with nothing applied.
type Tx interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	Set(ctx context.Context, collection, id string, fields map[string]any, merge bool)
	Delete(ctx context.Context, collection, id string)
}

// Store is the unified storage interface for the account core.
type Store interface {
	// Get reads a single document. Returns ErrNotFound when absent.
	Get(ctx context.Context, collection, id string) (Document, error)

	// Set writes a document. With merge, existing fields not present in
	// fields are preserved; without, the document is replaced.
	Set(ctx context.Context, collection, id string, fields map[string]any, merge bool) error

	// Delete removes a document. Deleting an absent document is not an error.
	Delete(ctx context.Context, collection, id string) error

	// Query returns documents matching all filters, up to limit
	// (limit <= 0 means no bound). Ordering is unspecified.
	Query(ctx context.Context, collection string, filters []Filter, limit int) ([]Document, error)

	// RunTransaction executes fn atomically relative to other transactions
	// touching the same documents. A contended commit fails with ErrConflict;
	// business errors returned by fn propagate unchanged.
	RunTransaction(ctx context.Context, fn func(tx Tx) error) error

	// Migrate prepares backend indexes. Safe to call repeatedly.
	Migrate(ctx context.Context) error

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
