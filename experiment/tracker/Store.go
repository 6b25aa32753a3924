package tracker

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

// Buckets of the episode store
const (
	TrainBucket   = "train"
	EvalBucket    = "eval"
	SummaryBucket = "summary"
)

// Store is a Tracker which persists every episode to a bbolt database
// as it finishes. Training episodes are keyed by their number, which
// keeps growing across resumed runs. Evaluation episodes restart their
// numbering with every evaluation run, so they are keyed by the
// bucket's sequence instead. The mean reward of each evaluation run is
// kept in a separate bucket, keyed by the order of the run.
type Store struct {
	db        *bbolt.DB
	path      string
	summaries uint64
}

// NewStore opens or creates the episode database at path
func NewStore(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{
		Timeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("newStore: failed to open database: %w", err)
	}

	var summaries uint64
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{TrainBucket, EvalBucket, SummaryBucket} {
			b, err := tx.CreateBucketIfNotExists([]byte(name))
			if err != nil {
				return fmt.Errorf("create bucket %v: %w", name, err)
			}
			if name == SummaryBucket {
				summaries = uint64(b.Stats().KeyN)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("newStore: %w", err)
	}

	return &Store{db: db, path: path, summaries: summaries}, nil
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func bucketFor(training bool) []byte {
	if training {
		return []byte(TrainBucket)
	}
	return []byte(EvalBucket)
}

// Track implements the Tracker interface
func (s *Store) Track(e Episode) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("track: failed to marshal episode: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketFor(e.Training))
		key := uint64(e.Number)
		if !e.Training {
			seq, err := b.NextSequence()
			if err != nil {
				return err
			}
			key = seq
		}
		return b.Put(itob(key), data)
	})
	if err != nil {
		return fmt.Errorf("track: %w", err)
	}
	return nil
}

// Summarize implements the Summarizer interface
func (s *Store) Summarize(meanReward float64) error {
	data, err := json.Marshal(meanReward)
	if err != nil {
		return fmt.Errorf("summarize: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(SummaryBucket)).Put(itob(s.summaries), data)
	})
	if err != nil {
		return fmt.Errorf("summarize: %w", err)
	}
	s.summaries++
	return nil
}

// Episodes returns all stored training episodes in order of their
// number, or all evaluation episodes in the order they were tracked
func (s *Store) Episodes(training bool) ([]Episode, error) {
	var episodes []Episode
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketFor(training)).ForEach(func(_, v []byte) error {
			var e Episode
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			episodes = append(episodes, e)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("episodes: %w", err)
	}
	return episodes, nil
}

// Summaries returns the mean reward of each stored evaluation run
func (s *Store) Summaries() ([]float64, error) {
	var means []float64
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(SummaryBucket)).ForEach(func(_, v []byte) error {
			var mean float64
			if err := json.Unmarshal(v, &mean); err != nil {
				return err
			}
			means = append(means, mean)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("summaries: %w", err)
	}
	return means, nil
}

// Save implements the Tracker interface. Episodes are persisted as
// they are tracked, so Save closes the database.
func (s *Store) Save() error {
	if err := s.Close(); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}
