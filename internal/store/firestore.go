package store

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore keeps each collection as a Firestore collection of the same name.
// Payloads are stored as JSON-shaped maps so both backends read back identically.
type FirestoreStore struct {
	client *firestore.Client
	logger zerolog.Logger
}

func NewFirestoreStore(client *firestore.Client, logger *zerolog.Logger) *FirestoreStore {
	return &FirestoreStore{client: client, logger: logger.With().Str("component", "firestore").Logger()}
}

func (s *FirestoreStore) doc(collection, id string) *firestore.DocumentRef {
	return s.client.Collection(collection).Doc(id)
}

func notFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func (s *FirestoreStore) Ping(ctx context.Context) error {
	// Reading a missing document still needs a round trip.
	_, err := s.doc(CollectionSettings, "_ping").Get(ctx)
	if err != nil && !notFound(err) {
		return err
	}
	return nil
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

func (s *FirestoreStore) Get(ctx context.Context, collection, id string, out any) error {
	snap, err := s.doc(collection, id).Get(ctx)
	if notFound(err) {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return decodeSnapshot(snap, out)
}

func decodeSnapshot(snap *firestore.DocumentSnapshot, out any) error {
	data, err := json.Marshal(snap.Data())
	if err != nil {
		return fmt.Errorf("encode %s: %w", snap.Ref.Path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", snap.Ref.Path, err)
	}
	return nil
}

func (s *FirestoreStore) List(ctx context.Context, collection string, q Query) ([]Document, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	query := s.client.Collection(collection).Query
	for _, c := range q.Where {
		query = query.Where(c.Field, string(c.Op), c.Value)
	}
	if q.OrderBy != "" {
		dir := firestore.Asc
		if q.Desc {
			dir = firestore.Desc
		}
		query = query.OrderBy(q.OrderBy, dir)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var docs []Document
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", collection, err)
		}
		data, err := json.Marshal(snap.Data())
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", snap.Ref.Path, err)
		}
		docs = append(docs, Document{ID: snap.Ref.ID, Data: data})
	}
	return docs, nil
}

func (s *FirestoreStore) Add(ctx context.Context, collection string, v any) (string, error) {
	id := uuid.NewString()
	if err := s.Set(ctx, collection, id, v); err != nil {
		return "", err
	}
	return id, nil
}

func (s *FirestoreStore) Set(ctx context.Context, collection, id string, v any) error {
	m, err := toMap(v)
	if err != nil {
		return err
	}
	if _, err := s.doc(collection, id).Set(ctx, m); err != nil {
		return fmt.Errorf("set %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *FirestoreStore) Replace(ctx context.Context, collection, id string, build BuildFunc) error {
	ref := s.doc(collection, id)

	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		var current *Document
		snap, err := tx.Get(ref)
		switch {
		case notFound(err):
		case err != nil:
			return fmt.Errorf("get %s/%s: %w", collection, id, err)
		default:
			data, err := json.Marshal(snap.Data())
			if err != nil {
				return fmt.Errorf("encode %s/%s: %w", collection, id, err)
			}
			current = &Document{ID: id, Data: data}
		}

		v, err := build(current)
		if err != nil {
			return err
		}
		m, err := toMap(v)
		if err != nil {
			return err
		}
		return tx.Set(ref, m)
	})
}

func (s *FirestoreStore) Update(ctx context.Context, collection, id string, patch map[string]any) error {
	fields, err := toMap(patch)
	if err != nil {
		return err
	}
	updates := make([]firestore.Update, 0, len(fields))
	for k, v := range fields {
		updates = append(updates, firestore.Update{FieldPath: firestore.FieldPath{k}, Value: v})
	}

	_, err = s.doc(collection, id).Update(ctx, updates)
	if notFound(err) {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *FirestoreStore) Delete(ctx context.Context, collection, id string) error {
	_, err := s.doc(collection, id).Delete(ctx, firestore.Exists)
	if notFound(err) {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}
