package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aretw0/vigil/pkg/domain"
	bolt "go.etcd.io/bbolt"
)

var defaultBucket = []byte("reports")

// Store implements ports.ReportStore on a single bbolt database file.
type Store struct {
	db     *bolt.DB
	bucket []byte
}

type Option func(*Store)

// WithBucket sets the bucket reports are kept in.
func WithBucket(name string) Option {
	return func(s *Store) {
		s.bucket = []byte(name)
	}
}

// Open opens (or creates) the database at path.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{
		// open timeout when file is locked
		Timeout:      time.Second,
		FreelistType: bolt.FreelistMapType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db %s: %w", path, err)
	}
	store := &Store{db: db, bucket: defaultBucket}
	for _, opt := range opts {
		opt(store)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(store.bucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}
	return store, nil
}

// Save persists the report.
func (s *Store) Save(ctx context.Context, report *domain.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(report.ID), data)
	})
}

// Load retrieves a report.
func (s *Store) Load(ctx context.Context, id string) (*domain.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var report domain.Report
	err := s.db.View(func(tx *bolt.Tx) error {
		// Values are only valid inside the transaction; Unmarshal copies.
		data := tx.Bucket(s.bucket).Get([]byte(id))
		if data == nil {
			return domain.ErrReportNotFound
		}
		return json.Unmarshal(data, &report)
	})
	if err != nil {
		return nil, err
	}
	if report.Messages == nil {
		report.Messages = make(map[string]string)
	}
	return &report, nil
}

// Delete removes a report.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Delete([]byte(id))
	})
}

// List returns all report IDs in key order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var ids []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).ForEach(func(k, _ []byte) error {
			ids = append(ids, string(k))
			return nil
		})
	})
	return ids, err
}

// Close closes the database file.
func (s *Store) Close() error {
	return s.db.Close()
}
