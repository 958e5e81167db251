package filevault

import (
	"encoding/json"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
)

// badgerKeyPrefix namespaces entry records inside the database
var badgerKeyPrefix = []byte("entry/")

// BadgerBackend keeps one key per record in a badger database. Save replaces the whole
// catalog inside a single transaction.
type BadgerBackend struct {
	db  *badger.DB
	dir string
}

// OpenBadgerBackend opens (or creates) the database in dir on the host filesystem
func OpenBadgerBackend(dir string) (*BadgerBackend, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, NewIOError("open", dir, err)
	}
	return &BadgerBackend{db: db, dir: dir}, nil
}

// Load reads every record under the entry prefix
func (b *BadgerBackend) Load() (map[string]EntryMetadata, error) {
	entries := make(map[string]EntryMetadata)

	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(badgerKeyPrefix); it.ValidForPrefix(badgerKeyPrefix); it.Next() {
			item := it.Item()
			key := string(item.Key()[len(badgerKeyPrefix):])

			err := item.Value(func(val []byte) error {
				var meta EntryMetadata
				if err := json.Unmarshal(val, &meta); err != nil {
					return NewCorruptionError(key, fmt.Errorf("failed to decode metadata: %w", err))
				}
				entries[key] = meta
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if IsCorruptionError(err) {
			return nil, err
		}
		return nil, NewIOError("load", b.dir, err)
	}
	return entries, nil
}

// Save writes every record and deletes records that are no longer present
func (b *BadgerBackend) Save(entries map[string]EntryMetadata) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		var stale [][]byte

		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		for it.Seek(badgerKeyPrefix); it.ValidForPrefix(badgerKeyPrefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			if _, ok := entries[string(key[len(badgerKeyPrefix):])]; !ok {
				stale = append(stale, key)
			}
		}
		it.Close()

		for _, key := range stale {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}

		for name, meta := range entries {
			val, err := json.Marshal(meta)
			if err != nil {
				return err
			}
			key := append(append([]byte{}, badgerKeyPrefix...), name...)
			if err := txn.Set(key, val); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return NewIOError("flush", b.dir, err)
	}
	return nil
}

// Close closes the database
func (b *BadgerBackend) Close() error {
	return b.db.Close()
}
