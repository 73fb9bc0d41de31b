package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/eventide/rsvp/internal/model"
)

var rsvpBucket = []byte("rsvps")

// BoltRepository is an RSVP store in a local bbolt file, keyed by email.
type BoltRepository struct {
	db  *bolt.DB
	now func() time.Time
}

// NewBoltRepository opens (or creates) the bbolt file at path.
func NewBoltRepository(path string) (*BoltRepository, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db at %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(rsvpBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating rsvps bucket: %w", err)
	}

	return &BoltRepository{db: db, now: time.Now}, nil
}

// FindByEmail returns the RSVP stored under email.
func (r *BoltRepository) FindByEmail(_ context.Context, email string) (*model.RSVP, error) {
	var rsvp *model.RSVP

	err := r.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(rsvpBucket).Get([]byte(email))
		if data == nil {
			return ErrRSVPNotFound
		}

		var rec model.RSVP
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("unmarshaling rsvp: %w", err)
		}
		rsvp = &rec
		return nil
	})
	if err != nil {
		return nil, err
	}

	return rsvp, nil
}

// InsertRSVP stores a new RSVP, assigning its ID and CreatedAt.
// The existence check and the write share one transaction.
func (r *BoltRepository) InsertRSVP(_ context.Context, rsvp *model.RSVP) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(rsvpBucket)
		key := []byte(rsvp.Email)
		if b.Get(key) != nil {
			return ErrEmailExists
		}

		rec := *rsvp
		rec.ID = uuid.NewString()
		rec.CreatedAt = r.now().UTC()

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshaling rsvp: %w", err)
		}
		if err := b.Put(key, data); err != nil {
			return fmt.Errorf("writing rsvp: %w", err)
		}

		rsvp.ID = rec.ID
		rsvp.CreatedAt = rec.CreatedAt
		return nil
	})
}

// Ping verifies the database file is still open.
func (r *BoltRepository) Ping(_ context.Context) error {
	return r.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(rsvpBucket) == nil {
			return fmt.Errorf("rsvps bucket missing")
		}
		return nil
	})
}

// Close closes the bbolt file.
func (r *BoltRepository) Close() error {
	return r.db.Close()
}
