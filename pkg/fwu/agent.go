package fwu

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/ssargent/fwumeta/pkg/codec"
	"github.com/ssargent/fwumeta/pkg/storage"
)

// MaxWriteAttempts bounds the writes of each metadata copy in Save.
const MaxWriteAttempts = 3

// SlotStore holds the primary and backup copies of the record.
type SlotStore interface {
	Get(slot string) ([]byte, error)
	Put(slot string, data []byte) error
}

// Agent loads and saves the record through a SlotStore, keeping the
// primary and backup copies in agreement.
type Agent struct {
	store  SlotStore
	record *Record
}

// LoadResult describes what Load found.
type LoadResult struct {
	PrimaryValid bool
	BackupValid  bool
	// Restored names the slot that was rewritten from the other copy, if any.
	Restored string
}

// NewAgent creates an agent over store.
func NewAgent(store SlotStore) *Agent {
	return &Agent{store: store}
}

// Record returns the record from the last Load or Save.
func (a *Agent) Record() *Record {
	return a.record
}

// Load reads and validates both copies. When only one is valid the other is
// rewritten from it. When neither is valid Load fails with InvalidState.
func (a *Agent) Load() (*Record, *LoadResult, error) {
	primary, primaryRaw, primaryErr := a.readSlot(storage.PrimarySlot)
	backup, backupRaw, backupErr := a.readSlot(storage.BackupSlot)

	for _, err := range []error{primaryErr, backupErr} {
		if err != nil && codec.KindOf(err) == "" {
			return nil, nil, err
		}
	}

	res := &LoadResult{PrimaryValid: primaryErr == nil, BackupValid: backupErr == nil}

	switch {
	case primaryErr != nil && backupErr != nil:
		klog.Errorf("both metadata copies are invalid: primary: %v, backup: %v", primaryErr, backupErr)
		return nil, res, codec.Wrap(codec.KindInvalidState, errors.Join(primaryErr, backupErr),
			"load: both metadata copies are invalid")

	case primaryErr != nil:
		klog.Warningf("primary metadata invalid (%v), restoring from backup", primaryErr)
		if err := a.store.Put(storage.PrimarySlot, backupRaw); err != nil {
			return nil, res, fmt.Errorf("restoring primary from backup: %w", err)
		}
		res.Restored = storage.PrimarySlot
		a.record = backup

	case backupErr != nil:
		klog.Warningf("backup metadata invalid (%v), restoring from primary", backupErr)
		if err := a.store.Put(storage.BackupSlot, primaryRaw); err != nil {
			return nil, res, fmt.Errorf("restoring backup from primary: %w", err)
		}
		res.Restored = storage.BackupSlot
		a.record = primary

	default:
		a.record = primary
	}

	klog.V(2).Infof("loaded metadata: active=%d previous=%d banks=%d images=%d",
		a.record.ActiveIndex, a.record.PreviousActiveIndex, a.record.NumBanks, len(a.record.Images))
	return a.record, res, nil
}

// readSlot returns a codec error for a missing or invalid copy and a plain
// error for a store failure.
func (a *Agent) readSlot(slot string) (*Record, []byte, error) {
	data, err := a.store.Get(slot)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil, codec.Wrap(codec.KindInvalidState, err, "%s", slot)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", slot, err)
	}

	r, err := ValidateBytes(data)
	if err != nil {
		return nil, nil, codec.Wrap(codec.KindOf(err), err, "%s", slot)
	}
	return r, data, nil
}

// Save reseals r and writes the primary then the backup copy, retrying
// each write up to MaxWriteAttempts times.
func (a *Agent) Save(r *Record) error {
	data, err := r.Encode()
	if err != nil {
		return err
	}

	if err := a.write(storage.PrimarySlot, data); err != nil {
		klog.Errorf("primary metadata failed to persist, firmware store may be inoperative: %v", err)
		return err
	}
	// The primary copy is authoritative from here on.
	a.record = r
	if err := a.write(storage.BackupSlot, data); err != nil {
		klog.Errorf("backup metadata failed to persist, firmware store may be inoperative: %v", err)
		return err
	}

	klog.V(2).Infof("saved metadata: crc32=0x%08x size=%d", r.Crc32, r.MetadataSize)
	return nil
}

func (a *Agent) write(slot string, data []byte) error {
	var err error
	for attempt := 1; attempt <= MaxWriteAttempts; attempt++ {
		if err = a.store.Put(slot, data); err == nil {
			return nil
		}
		klog.Warningf("writing %s failed (attempt %d/%d): %v", slot, attempt, MaxWriteAttempts, err)
	}
	return fmt.Errorf("writing %s: %w", slot, err)
}

// Install stores a freshly encoded record in both slots without validating
// the current contents.
func (a *Agent) Install(data []byte) (*Record, error) {
	r, err := ValidateBytes(data)
	if err != nil {
		return nil, err
	}
	if err := a.write(storage.PrimarySlot, data); err != nil {
		return nil, err
	}
	a.record = r
	if err := a.write(storage.BackupSlot, data); err != nil {
		return nil, err
	}
	return r, nil
}

func (a *Agent) loaded() (*Record, error) {
	if a.record != nil {
		return a.record, nil
	}
	r, _, err := a.Load()
	return r, err
}

// Accept marks typeID accepted in bank, recomputes the bank state and saves.
func (a *Agent) Accept(typeID uuid.UUID, bank int) error {
	r, err := a.loaded()
	if err != nil {
		return err
	}
	r = r.Clone()
	if err := r.SetAccept(typeID, bank, Accept); err != nil {
		return err
	}
	if err := r.UpdateBankState(bank); err != nil {
		return err
	}
	return a.Save(r)
}

// Stage records that imageID, a new copy of typeID, has been written to
// bank. The copy starts unaccepted and the bank is VALID until every image
// in it is accepted. The active bank cannot be staged into.
func (a *Agent) Stage(typeID uuid.UUID, bank int, imageID uuid.UUID) error {
	r, err := a.loaded()
	if err != nil {
		return err
	}
	if bank == int(r.ActiveIndex) {
		return codec.Errorf(codec.KindInvalidState, "stage: bank %d is active", bank)
	}
	r = r.Clone()
	if err := r.SetAccept(typeID, bank, WriteUnaccept); err != nil {
		return err
	}
	if err := r.SetImageID(typeID, bank, imageID); err != nil {
		return err
	}
	if err := r.UpdateBankState(bank); err != nil {
		return err
	}
	klog.V(2).Infof("staged image %s of type %s in bank %d", imageID, typeID, bank)
	return a.Save(r)
}

// Activate switches the active bank after an update has been written to it.
// The previous active bank is remembered for rollback.
func (a *Agent) Activate(bank int) error {
	r, err := a.loaded()
	if err != nil {
		return err
	}
	r = r.Clone()
	if err := r.SetActiveIndex(bank); err != nil {
		return err
	}
	if err := r.UpdateBankState(bank); err != nil {
		return err
	}
	klog.Infof("activating bank %d (previous %d)", r.ActiveIndex, r.PreviousActiveIndex)
	return a.Save(r)
}

// Rollback restores the active bank's metadata from the previous active
// bank, which must be accepted.
func (a *Agent) Rollback() error {
	r, err := a.loaded()
	if err != nil {
		return err
	}
	r = r.Clone()
	backup, target := int(r.PreviousActiveIndex), int(r.ActiveIndex)
	if err := r.Rollback(backup, target); err != nil {
		return err
	}
	klog.Infof("rolled back bank %d from bank %d", target, backup)
	return a.Save(r)
}
