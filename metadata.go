package filevault

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"sync"

	"github.com/absfs/absfs"
)

// EntryMetadata is the per-entry record kept alongside each frame
type EntryMetadata struct {
	// Salt is the hex-encoded key derivation salt. It duplicates the first 16 bytes of
	// the frame and is not used for decryption.
	Salt string `json:"salt"`
}

// NewEntryMetadata creates the record for a frame salt
func NewEntryMetadata(salt []byte) EntryMetadata {
	return EntryMetadata{Salt: hex.EncodeToString(salt)}
}

// SaltBytes decodes the recorded salt
func (m EntryMetadata) SaltBytes() ([]byte, error) {
	return hex.DecodeString(m.Salt)
}

// MetadataBackend persists the complete metadata map
type MetadataBackend interface {
	// Load returns the persisted map, or an empty map when nothing was persisted yet
	Load() (map[string]EntryMetadata, error)

	// Save durably replaces the persisted map with entries
	Save(entries map[string]EntryMetadata) error

	// Close releases backend resources
	Close() error
}

// MetadataStore is the in-memory catalog of entry records. Every mutation is flushed to the
// backend before it becomes visible; a failed flush leaves the catalog unchanged.
type MetadataStore struct {
	backend MetadataBackend

	mu      sync.Mutex
	entries map[string]EntryMetadata
}

// OpenMetadataStore loads the catalog from backend once
func OpenMetadataStore(backend MetadataBackend) (*MetadataStore, error) {
	entries, err := backend.Load()
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = make(map[string]EntryMetadata)
	}
	return &MetadataStore{
		backend: backend,
		entries: entries,
	}, nil
}

// Get returns the record stored under key
func (m *MetadataStore) Get(key string) (EntryMetadata, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	meta, ok := m.entries[key]
	return meta, ok
}

// Put upserts the record for key and flushes the whole catalog
func (m *MetadataStore) Put(key string, meta EntryMetadata) error {
	return m.Update(func(entries map[string]EntryMetadata) {
		entries[key] = meta
	})
}

// Update applies fn to a copy of the catalog, flushes the copy and then swaps it in.
// The read-modify-write-flush sequence is serialized across callers.
func (m *MetadataStore) Update(fn func(entries map[string]EntryMetadata)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := make(map[string]EntryMetadata, len(m.entries)+1)
	for k, v := range m.entries {
		next[k] = v
	}
	fn(next)

	if err := m.backend.Save(next); err != nil {
		return err
	}
	m.entries = next
	return nil
}

// Keys returns all record keys in sorted order
func (m *MetadataStore) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of records
func (m *MetadataStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Close closes the backend
func (m *MetadataStore) Close() error {
	return m.backend.Close()
}

// JSONFileBackend stores the catalog as one JSON document on an absfs filesystem:
//
//	{"report.enc": {"salt": "00112233445566778899aabbccddeeff"}}
//
// The document is rewritten in full on every Save through a temp file and a rename.
type JSONFileBackend struct {
	fs   absfs.FileSystem
	path string
}

// NewJSONFileBackend creates a backend for the document at name
func NewJSONFileBackend(base absfs.FileSystem, name string) *JSONFileBackend {
	return &JSONFileBackend{fs: base, path: name}
}

// Load reads and decodes the document. A missing document is an empty catalog.
func (b *JSONFileBackend) Load() (map[string]EntryMetadata, error) {
	data, err := readFile(b.fs, b.path)
	if err != nil {
		if isNotExist(err) {
			return make(map[string]EntryMetadata), nil
		}
		return nil, err
	}

	entries := make(map[string]EntryMetadata)
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, NewCorruptionError(b.path, fmt.Errorf("failed to decode metadata: %w", err))
	}
	return entries, nil
}

// Save encodes entries and atomically replaces the document
func (b *JSONFileBackend) Save(entries map[string]EntryMetadata) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	if err := b.fs.MkdirAll(path.Dir(b.path), 0o700); err != nil {
		return NewIOError("mkdir", path.Dir(b.path), err)
	}
	return writeFileAtomic(b.fs, b.path, data, 0o600)
}

// Close is a no-op
func (b *JSONFileBackend) Close() error {
	return nil
}
