package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"render-crawler/pkg/models"
	"render-crawler/pkg/utils"
)

const (
	pageKeyPrefix = "page:"   // Prefix for page URL keys in DB
	runDBDir      = "runs_db" // Subdirectory name within stateDir for Badger DB files
)

// BadgerStore implements the RunStore interface using BadgerDB
type BadgerStore struct {
	db       *badger.DB
	log      *logrus.Entry
	ctx      context.Context // Parent context
	keyCount atomic.Int64    // Cached key count for O(1) GetVisitedCount
}

var _ RunStore = (*BadgerStore)(nil)

// NewBadgerStore opens a fresh run record database for runKey under stateDir
// Any database left by an earlier run with the same key is removed first
func NewBadgerStore(ctx context.Context, stateDir, runKey string, logger *logrus.Entry) (*BadgerStore, error) {
	store := &BadgerStore{
		log: logger.WithField("component", "run_store"),
		ctx: ctx,
	}

	dbPath := filepath.Join(stateDir, utils.SanitizeFilename(runKey)+"_"+runDBDir)
	if err := os.RemoveAll(dbPath); err != nil {
		store.log.Warnf("Failed to remove previous run database %s: %v", dbPath, err)
	}
	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("%w: cannot create state directory %s: %w", utils.ErrFilesystem, dbPath, err)
	}

	opts := badger.DefaultOptions(dbPath).
		WithLogger(newBadgerLogger(store.log.WithField("component", "badgerdb"))).
		WithNumVersionsToKeep(1) // Only the latest outcome matters

	var err error
	store.db, err = badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open badger database at %s: %w", utils.ErrDatabase, dbPath, err)
	}

	store.log.Infof("Run record database initialized at: %s", dbPath)
	return store, nil
}

const maxConflictRetries = 10

// dbUpdate wraps db.Update with a retry loop for BadgerDB transaction conflicts.
// Concurrent MVCC transactions on overlapping keys can return badger.ErrConflict;
// these resolve in microseconds, so a tight retry loop is sufficient.
func (s *BadgerStore) dbUpdate(fn func(txn *badger.Txn) error) error {
	for i := range maxConflictRetries {
		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		s.log.Debugf("BadgerDB transaction conflict (attempt %d/%d), retrying", i+1, maxConflictRetries)
	}
	return fmt.Errorf("%w: transaction conflict not resolved after %d retries", utils.ErrDatabase, maxConflictRetries)
}

// RecordPage implements the RunStore interface
func (s *BadgerStore) RecordPage(normalizedPageURL string, entry *models.PageDBEntry) error {
	if s.db == nil || s.db.IsClosed() {
		return fmt.Errorf("%w: run database not open", utils.ErrDatabase)
	}
	key := []byte(pageKeyPrefix + normalizedPageURL)

	entryBytes, errJson := json.Marshal(entry)
	if errJson != nil {
		return fmt.Errorf("%w: failed to marshal JSON PageDBEntry for key '%s': %w", utils.ErrParsing, string(key), errJson)
	}

	isNew := false
	err := s.dbUpdate(func(txn *badger.Txn) error {
		_, errGet := txn.Get(key)
		isNew = errors.Is(errGet, badger.ErrKeyNotFound)
		return txn.SetEntry(badger.NewEntry(key, entryBytes))
	})
	if err != nil {
		s.log.WithField("key", string(key)).Errorf("DB Update error in RecordPage: %v", err)
		return fmt.Errorf("%w: failed setting page outcome for key '%s': %w", utils.ErrDatabase, string(key), err)
	}
	if isNew {
		s.keyCount.Add(1)
	}

	s.log.Debugf("Recorded '%s' for key '%s'", entry.Status, string(key))
	return nil
}

// CheckPageStatus implements the RunStore interface
func (s *BadgerStore) CheckPageStatus(normalizedPageURL string) (models.PageStatus, *models.PageDBEntry, error) {
	status := models.PageStatusNotFound
	var entry *models.PageDBEntry
	key := []byte(pageKeyPrefix + normalizedPageURL)

	errView := s.db.View(func(txn *badger.Txn) error {
		item, errGet := txn.Get(key)
		if errors.Is(errGet, badger.ErrKeyNotFound) {
			return nil
		}
		if errGet != nil {
			return fmt.Errorf("%w: failed getting page key '%s': %w", utils.ErrDatabase, string(key), errGet)
		}

		return item.Value(func(val []byte) error {
			var decoded models.PageDBEntry
			if errJson := json.Unmarshal(val, &decoded); errJson != nil {
				return fmt.Errorf("%w: failed to unmarshal JSON PageDBEntry for key '%s': %w", utils.ErrParsing, string(key), errJson)
			}
			entry = &decoded
			status = decoded.Status
			return nil
		})
	})

	if errView != nil {
		s.log.Errorf("DB View error in CheckPageStatus for key '%s': %v", string(key), errView)
		return models.PageStatusDBError, nil, errView
	}
	return status, entry, nil
}

// ForEachPage implements the RunStore interface
func (s *BadgerStore) ForEachPage(ctx context.Context, fn func(pageURL string, entry models.PageDBEntry) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(pageKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			pageURL := string(item.Key()[len(prefix):])

			var entry models.PageDBEntry
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			}); err != nil {
				s.log.Warnf("Skipping unreadable entry for '%s': %v", pageURL, err)
				continue
			}
			if err := fn(pageURL, entry); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetVisitedCount implements the RunStore interface.
// Returns the cached key count (O(1)) maintained by atomic increments on writes.
func (s *BadgerStore) GetVisitedCount() (int, error) {
	return int(s.keyCount.Load()), nil
}

// RunGC runs BadgerDB's garbage collection periodically
func (s *BadgerStore) RunGC(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if s.db == nil || s.db.IsClosed() {
				continue
			}
			var err error
			// Loop GC until it returns ErrNoRewrite or another error
			for err == nil {
				err = s.db.RunValueLogGC(0.5)
			}
			if !errors.Is(err, badger.ErrNoRewrite) {
				s.log.Errorf("BadgerDB GC error: %v", err)
			}
		case <-ctx.Done():
			s.log.Debugf("Stopping BadgerDB garbage collection: %v", ctx.Err())
			return
		}
	}
}

// WriteVisitedLog implements the RunStore interface.
func (s *BadgerStore) WriteVisitedLog(filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("%w: create visited log '%s': %w", utils.ErrFilesystem, filePath, err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	written := 0
	var writeErr error

	iterErr := s.ForEachPage(s.ctx, func(pageURL string, _ models.PageDBEntry) error {
		if _, err := writer.WriteString(pageURL + "\n"); err != nil {
			writeErr = err
			return err
		}
		written++
		return nil
	})

	if flushErr := writer.Flush(); flushErr != nil && writeErr == nil {
		writeErr = flushErr
	}
	if syncErr := file.Sync(); syncErr != nil && writeErr == nil {
		writeErr = syncErr
	}

	if iterErr != nil && !errors.Is(iterErr, writeErr) {
		return fmt.Errorf("%w: iterating run database: %w", utils.ErrDatabase, iterErr)
	}
	if writeErr != nil {
		return fmt.Errorf("%w: writing visited log '%s': %w", utils.ErrFilesystem, filePath, writeErr)
	}
	s.log.Infof("Wrote %d URLs to visited log: %s", written, filePath)
	return nil
}

// Close implements the RunStore interface
func (s *BadgerStore) Close() error {
	if s.db == nil || s.db.IsClosed() {
		return nil
	}
	if err := s.db.Close(); err != nil {
		s.log.Errorf("Error closing run database: %v", err)
		return fmt.Errorf("%w: closing run database: %w", utils.ErrDatabase, err)
	}
	s.log.Debug("Run database closed.")
	return nil
}
