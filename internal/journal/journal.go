// Package journal persists an append-only record of each certification run
// for post-mortem inspection. Journal failures are observational only and
// never fail a run.
package journal

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Event is one recorded step of a run
type Event struct {
	Time    time.Time         `json:"time"`
	Phase   string            `json:"phase"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// RunSummary describes one recorded run
type RunSummary struct {
	RunID  string  `json:"run_id"`
	Events []Event `json:"events"`
}

// Journal is a BadgerDB-backed run journal. Keys are
// run/<runID>/<sequence>, so a prefix scan yields one run in order.
type Journal struct {
	db    *badger.DB
	runID string
	seq   atomic.Uint64
}

// Open opens (or creates) a journal at the given path and starts a new run
func Open(path string) (*Journal, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	return newJournal(db), nil
}

// OpenInMemory opens an in-memory journal, used in tests
func OpenInMemory() (*Journal, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory journal: %w", err)
	}
	return newJournal(db), nil
}

func newJournal(db *badger.DB) *Journal {
	return &Journal{
		db:    db,
		runID: time.Now().UTC().Format("20060102T150405Z"),
	}
}

// RunID returns the identifier of the current run
func (j *Journal) RunID() string {
	return j.runID
}

// Record appends an event to the current run
func (j *Journal) Record(event Event) error {
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode journal event: %w", err)
	}

	seq := j.seq.Add(1)
	key := fmt.Sprintf("run/%s/%08d", j.runID, seq)

	err = j.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("failed to write journal event: %w", err)
	}
	return nil
}

// Runs returns every recorded run, oldest first
func (j *Journal) Runs() ([]RunSummary, error) {
	byRun := make(map[string][]Event)

	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte("run/")
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.Key())
			parts := strings.SplitN(key, "/", 3)
			if len(parts) != 3 {
				continue
			}
			runID := parts[1]

			err := item.Value(func(val []byte) error {
				var event Event
				if err := json.Unmarshal(val, &event); err != nil {
					return fmt.Errorf("corrupt journal event at %s: %w", key, err)
				}
				byRun[runID] = append(byRun[runID], event)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	runIDs := make([]string, 0, len(byRun))
	for runID := range byRun {
		runIDs = append(runIDs, runID)
	}
	sort.Strings(runIDs)

	runs := make([]RunSummary, 0, len(runIDs))
	for _, runID := range runIDs {
		runs = append(runs, RunSummary{RunID: runID, Events: byRun[runID]})
	}
	return runs, nil
}

// Close closes the underlying database
func (j *Journal) Close() error {
	return j.db.Close()
}
