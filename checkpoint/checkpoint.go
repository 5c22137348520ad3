// Package checkpoint saves and restores optimizer state, so a long
// likelihood maximization can be resumed after an interruption.
package checkpoint

import (
	"encoding/json"
	"time"

	"github.com/op/go-logging"

	bolt "go.etcd.io/bbolt"
)

// log is the package logging variable.
var log = logging.MustGetLogger("checkpoint")

// main is the bucket name for all checkpoints.
var main = []byte("main")

// Data stores a single optimizer checkpoint.
type Data struct {
	// Parameters maps parameter names to their best values.
	Parameters map[string]float64 `json:"parameters"`
	// Likelihood is the best log-likelihood found so far.
	Likelihood float64 `json:"likelihood"`
	// Iter is the iteration of the best likelihood.
	Iter int `json:"iter"`
	// Final marks a finished optimization.
	Final bool `json:"final"`
}

// IO reads and writes checkpoints for one analysis.
type IO struct {
	db      *bolt.DB
	key     []byte
	last    time.Time
	seconds float64
}

// NewIO creates a checkpoint IO for the given database and analysis
// key; seconds is the minimal delay between two saves.
func NewIO(db *bolt.DB, key []byte, seconds float64) *IO {
	return &IO{
		db:      db,
		key:     key,
		seconds: seconds,
	}
}

// Save stores a checkpoint.
func (s *IO) Save(data *Data) error {
	// Even if saving fails, we do not want to run this code too often.
	s.SetNow()
	dataB, err := json.Marshal(data)
	if err != nil {
		log.Error("Error serializing checkpoint", err)
		return err
	}
	err = saveData(s.db, s.key, dataB)
	if err != nil {
		log.Error("Error saving checkpoint", err)
	}
	return err
}

// Load returns the stored checkpoint, nil if there is none.
func (s *IO) Load() (*Data, error) {
	var data *Data

	b, err := loadData(s.db, s.key)
	if err != nil || b == nil {
		return nil, err
	}

	err = json.Unmarshal(b, &data)
	if err != nil {
		return nil, err
	}

	if data == nil || len(data.Parameters) == 0 {
		return nil, nil
	}

	if data.Final {
		log.Noticef("Found finished optimization checkpoint (iter=%v, lnL=%v)",
			data.Iter, data.Likelihood)
	} else {
		log.Noticef("Found unfinished optimization checkpoint (iter=%v, lnL=%v)",
			data.Iter, data.Likelihood)
	}

	return data, nil
}

// Old returns true if the last save happened long enough ago.
func (s *IO) Old() bool {
	return time.Since(s.last).Seconds() > s.seconds
}

// SetNow sets the last save time to now.
func (s *IO) SetNow() {
	s.last = time.Now()
}

// saveData stores a value in the bolt database.
func saveData(db *bolt.DB, key, data []byte) error {
	if db == nil {
		return nil
	}
	return db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(main)
		if err != nil {
			return err
		}
		return b.Put(key, data)
	})
}

// loadData reads a value from the bolt database.
func loadData(db *bolt.DB, key []byte) ([]byte, error) {
	var data []byte
	if db == nil {
		return nil, nil
	}
	err := db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(main)
		if b == nil {
			return nil
		}

		v := b.Get(key)
		if v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}
