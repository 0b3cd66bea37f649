package storage

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/segmentio/ksuid"
	"k8s.io/klog/v2"
)

// Slot names of the two metadata copies.
const (
	PrimarySlot = "FWU-Metadata"
	BackupSlot  = "Bkup-FWU-Metadata"
)

var (
	slotPrefix     = []byte("slot/")
	revisionPrefix = []byte("rev/")
)

// ErrNotFound is returned when a slot or revision does not exist.
var ErrNotFound = errors.New("storage: not found")

// Revision is one historical write of a slot.
type Revision struct {
	ID   ksuid.KSUID `json:"id"`
	Slot string      `json:"slot"`
	Data []byte      `json:"-"`
}

// Time is when the revision was written, to the second.
func (r Revision) Time() time.Time {
	return r.ID.Time()
}

// MetadataStore keeps the named metadata slots in pebble together with an
// append-only history of every write, keyed by ksuid so it sorts by time.
type MetadataStore struct {
	db *pebble.DB

	mu   sync.Mutex
	last ksuid.KSUID
}

// Open opens or creates a store in dir.
func Open(dir string) (*MetadataStore, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("opening metadata store %s: %w", dir, err)
	}

	s := &MetadataStore{db: db}
	last, err := s.lastRevisionID()
	if err != nil {
		db.Close()
		return nil, err
	}
	s.last = last

	klog.V(2).Infof("opened metadata store at %s", dir)
	return s, nil
}

func slotKey(slot string) []byte {
	return append(append([]byte(nil), slotPrefix...), slot...)
}

func revisionKey(id ksuid.KSUID) []byte {
	return append(append([]byte(nil), revisionPrefix...), id.Bytes()...)
}

// prefixEnd returns the smallest key greater than every key with prefix.
func prefixEnd(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

// nextID returns a revision id strictly greater than every previous one,
// even for writes within the same second.
func (s *MetadataStore) nextID() ksuid.KSUID {
	id := ksuid.New()
	if ksuid.Compare(id, s.last) <= 0 {
		id = s.last.Next()
	}
	s.last = id
	return id
}

// Put writes data to slot and appends a revision, atomically and synced.
func (s *MetadataStore) Put(slot string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID()

	batch := s.db.NewBatch()
	defer batch.Close()

	if err := batch.Set(slotKey(slot), data, nil); err != nil {
		return err
	}
	value := make([]byte, 0, 1+len(slot)+len(data))
	value = append(value, byte(len(slot)))
	value = append(value, slot...)
	value = append(value, data...)
	if err := batch.Set(revisionKey(id), value, nil); err != nil {
		return err
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("writing %s: %w", slot, err)
	}

	klog.V(2).Infof("stored %d bytes in %s (revision %s)", len(data), slot, id)
	return nil
}

// Get returns a copy of the current contents of slot.
func (s *MetadataStore) Get(slot string) ([]byte, error) {
	data, closer, err := s.db.Get(slotKey(slot))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", slot, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	return append([]byte(nil), data...), nil
}

// Delete removes slot. Its history is kept.
func (s *MetadataStore) Delete(slot string) error {
	return s.db.Delete(slotKey(slot), pebble.Sync)
}

func decodeRevision(key, value []byte) (Revision, error) {
	id, err := ksuid.FromBytes(key[len(revisionPrefix):])
	if err != nil {
		return Revision{}, fmt.Errorf("revision key %x: %w", key, err)
	}
	if len(value) < 1 || len(value) < 1+int(value[0]) {
		return Revision{}, fmt.Errorf("revision %s: truncated value", id)
	}
	n := int(value[0])
	return Revision{
		ID:   id,
		Slot: string(value[1 : 1+n]),
		Data: append([]byte(nil), value[1+n:]...),
	}, nil
}

// History returns up to limit revisions, newest first. A limit of zero or
// less returns every revision.
func (s *MetadataStore) History(limit int) ([]Revision, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: revisionPrefix,
		UpperBound: prefixEnd(revisionPrefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []Revision
	for valid := iter.Last(); valid; valid = iter.Prev() {
		rev, err := decodeRevision(iter.Key(), iter.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, rev)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, iter.Error()
}

// RevisionCount returns the number of stored revisions without reading
// their data.
func (s *MetadataStore) RevisionCount() (int, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: revisionPrefix,
		UpperBound: prefixEnd(revisionPrefix),
	})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	n := 0
	for valid := iter.First(); valid; valid = iter.Next() {
		n++
	}
	return n, iter.Error()
}

// Revision returns a single revision by id.
func (s *MetadataStore) Revision(id ksuid.KSUID) (Revision, error) {
	key := revisionKey(id)
	value, closer, err := s.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return Revision{}, fmt.Errorf("revision %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Revision{}, err
	}
	defer closer.Close()

	return decodeRevision(key, value)
}

// Prune deletes all but the newest keep revisions and returns how many were
// removed.
func (s *MetadataStore) Prune(keep int) (int, error) {
	revs, err := s.History(0)
	if err != nil {
		return 0, err
	}
	if keep < 0 {
		keep = 0
	}
	if len(revs) <= keep {
		return 0, nil
	}

	// revs is newest first; everything from index keep on is older.
	oldestKept := prefixEnd(revisionPrefix)
	if keep > 0 {
		oldestKept = revisionKey(revs[keep-1].ID)
	}
	if err := s.db.DeleteRange(revisionPrefix, oldestKept, pebble.Sync); err != nil {
		return 0, err
	}
	return len(revs) - keep, nil
}

func (s *MetadataStore) lastRevisionID() (ksuid.KSUID, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: revisionPrefix,
		UpperBound: prefixEnd(revisionPrefix),
	})
	if err != nil {
		return ksuid.Nil, err
	}
	defer iter.Close()

	if !iter.Last() {
		return ksuid.Nil, iter.Error()
	}
	key := iter.Key()
	if !bytes.HasPrefix(key, revisionPrefix) {
		return ksuid.Nil, nil
	}
	return ksuid.FromBytes(key[len(revisionPrefix):])
}

// Close flushes and closes the underlying database.
func (s *MetadataStore) Close() error {
	return s.db.Close()
}
