package registry

import (
	"encoding/json"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketGrants = []byte("grants")

// GrantRecord captures when a registry-confirmed passport was first observed.
type GrantRecord struct {
	Actor      string    `json:"actor"`
	ObservedAt time.Time `json:"observedAt"`
}

// Store persists registry-confirmed grants so the gate cache can be warmed
// after a restart without re-querying the registry for every known holder.
type Store struct {
	db *bolt.DB
}

// NewStore initialises (and migrates) the BoltDB-backed grant store.
func NewStore(path string, options *bolt.Options) (*Store, error) {
	if options == nil {
		options = &bolt.Options{Timeout: time.Second}
	} else if options.Timeout == 0 {
		options.Timeout = time.Second
	}
	db, err := bolt.Open(path, 0o600, options)
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketGrants)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying Bolt database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record stores a confirmed grant. Recording the same actor twice keeps the
// earliest observation.
func (s *Store) Record(actor string) error {
	normalized := strings.ToLower(strings.TrimSpace(actor))
	if normalized == "" {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketGrants)
		if bucket.Get([]byte(normalized)) != nil {
			return nil
		}
		encoded, err := json.Marshal(GrantRecord{Actor: normalized, ObservedAt: time.Now().UTC()})
		if err != nil {
			return err
		}
		return bucket.Put([]byte(normalized), encoded)
	})
}

// Grants returns every recorded holder.
func (s *Store) Grants() ([]string, error) {
	var actors []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketGrants).ForEach(func(key, _ []byte) error {
			actors = append(actors, string(key))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return actors, nil
}
