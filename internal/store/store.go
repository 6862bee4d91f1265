// Package store persists JSON documents grouped into collections, with SQLite and
// Firestore backends, and the repositories the service is built on.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
)

var (
	ErrNotFound = errors.New("document not found")
	ErrConflict = errors.New("document was modified concurrently")
	ErrBadQuery = errors.New("invalid query")
)

// Collections.
const (
	CollectionSettings     = "settings"
	CollectionBlockedDates = "blockedDates"
	CollectionAppointments = "appointments"
	CollectionAdmins       = "admins"
	CollectionVehicles     = "vehicles"
)

// Op is a comparison operator in a query condition.
type Op string

const (
	OpEq  Op = "=="
	OpNe  Op = "!="
	OpLt  Op = "<"
	OpLte Op = "<="
	OpGt  Op = ">"
	OpGte Op = ">="
)

func (o Op) valid() bool {
	switch o {
	case OpEq, OpNe, OpLt, OpLte, OpGt, OpGte:
		return true
	}
	return false
}

// Condition filters documents on a top-level or dotted field path.
type Condition struct {
	Field string
	Op    Op
	Value any
}

func Where(field string, op Op, value any) Condition {
	return Condition{Field: field, Op: op, Value: value}
}

// Query selects documents in one collection.
type Query struct {
	Where   []Condition
	OrderBy string
	Desc    bool
	Limit   int
}

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// Validate rejects unknown operators and field paths that are not plain identifiers.
func (q Query) Validate() error {
	for _, c := range q.Where {
		if !fieldPattern.MatchString(c.Field) {
			return fmt.Errorf("%w: field %q", ErrBadQuery, c.Field)
		}
		if !c.Op.valid() {
			return fmt.Errorf("%w: operator %q", ErrBadQuery, c.Op)
		}
	}
	if q.OrderBy != "" && !fieldPattern.MatchString(q.OrderBy) {
		return fmt.Errorf("%w: order by %q", ErrBadQuery, q.OrderBy)
	}
	if q.Limit < 0 {
		return fmt.Errorf("%w: negative limit", ErrBadQuery)
	}
	return nil
}

// Document is a stored record: its id and raw JSON payload.
type Document struct {
	ID   string
	Data []byte
}

// Decode unmarshals the payload into v.
func (d Document) Decode(v any) error {
	return json.Unmarshal(d.Data, v)
}

// BuildFunc derives the replacement for a document from its current state. current is
// nil when the document does not exist. Returning an error aborts the write.
type BuildFunc func(current *Document) (any, error)

// DocumentStore is the persistence contract shared by the backends.
type DocumentStore interface {
	Get(ctx context.Context, collection, id string, out any) error
	List(ctx context.Context, collection string, q Query) ([]Document, error)
	Add(ctx context.Context, collection string, v any) (string, error)
	Set(ctx context.Context, collection, id string, v any) error
	// Replace atomically reads the document and writes what build returns.
	Replace(ctx context.Context, collection, id string, build BuildFunc) error
	Update(ctx context.Context, collection, id string, patch map[string]any) error
	Delete(ctx context.Context, collection, id string) error
	Ping(ctx context.Context) error
	Close() error
}

// toMap round-trips v through JSON so every backend stores the same shape.
func toMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("document must be a JSON object: %w", err)
	}
	return m, nil
}
