package fwu

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/fwumeta/pkg/codec"
	"github.com/ssargent/fwumeta/pkg/storage"
)

type memStore struct {
	slots    map[string][]byte
	failPuts map[string]int
	puts     map[string]int
	getErr   error
}

func newMemStore() *memStore {
	return &memStore{
		slots:    map[string][]byte{},
		failPuts: map[string]int{},
		puts:     map[string]int{},
	}
}

func (m *memStore) Get(slot string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	data, ok := m.slots[slot]
	if !ok {
		return nil, fmt.Errorf("%s: %w", slot, storage.ErrNotFound)
	}
	return append([]byte(nil), data...), nil
}

func (m *memStore) Put(slot string, data []byte) error {
	m.puts[slot]++
	if m.failPuts[slot] > 0 {
		m.failPuts[slot]--
		return errors.New("write failed")
	}
	m.slots[slot] = append([]byte(nil), data...)
	return nil
}

func seededStore(t *testing.T) (*memStore, []byte) {
	t.Helper()
	_, encoded := buildRecord(t, 2, 2)
	s := newMemStore()
	s.slots[storage.PrimarySlot] = append([]byte(nil), encoded...)
	s.slots[storage.BackupSlot] = append([]byte(nil), encoded...)
	return s, encoded
}

func TestAgent_LoadBothValid(t *testing.T) {
	s, _ := seededStore(t)
	a := NewAgent(s)

	r, res, err := a.Load()
	require.NoError(t, err)
	assert.True(t, res.PrimaryValid)
	assert.True(t, res.BackupValid)
	assert.Empty(t, res.Restored)
	assert.Len(t, r.Images, 2)
	assert.Zero(t, s.puts[storage.PrimarySlot]+s.puts[storage.BackupSlot])
}

func TestAgent_LoadRestoresPrimary(t *testing.T) {
	s, encoded := seededStore(t)
	s.slots[storage.PrimarySlot][10] ^= 0xFF

	r, res, err := NewAgent(s).Load()
	require.NoError(t, err)
	assert.False(t, res.PrimaryValid)
	assert.True(t, res.BackupValid)
	assert.Equal(t, storage.PrimarySlot, res.Restored)
	assert.Equal(t, encoded, s.slots[storage.PrimarySlot])
	assert.NotNil(t, r)
}

func TestAgent_LoadRestoresMissingBackup(t *testing.T) {
	s, encoded := seededStore(t)
	delete(s.slots, storage.BackupSlot)

	_, res, err := NewAgent(s).Load()
	require.NoError(t, err)
	assert.Equal(t, storage.BackupSlot, res.Restored)
	assert.Equal(t, encoded, s.slots[storage.BackupSlot])
}

func TestAgent_LoadBothInvalid(t *testing.T) {
	s, _ := seededStore(t)
	s.slots[storage.PrimarySlot][0] ^= 0xFF
	delete(s.slots, storage.BackupSlot)

	_, res, err := NewAgent(s).Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, codec.ErrInvalidState)
	assert.ErrorIs(t, err, codec.ErrIntegrityCheckFailed)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.False(t, res.PrimaryValid)
	assert.False(t, res.BackupValid)
}

func TestAgent_LoadStoreFailure(t *testing.T) {
	s, _ := seededStore(t)
	s.getErr = errors.New("disk gone")

	_, _, err := NewAgent(s).Load()
	require.Error(t, err)
	assert.Equal(t, codec.Kind(""), codec.KindOf(err))
}

func TestAgent_SaveRetries(t *testing.T) {
	s, _ := seededStore(t)
	a := NewAgent(s)
	r, _, err := a.Load()
	require.NoError(t, err)

	s.failPuts[storage.PrimarySlot] = 2
	s.failPuts[storage.BackupSlot] = 1

	r = r.Clone()
	require.NoError(t, r.SetActiveIndex(1))
	require.NoError(t, a.Save(r))
	assert.Equal(t, 3, s.puts[storage.PrimarySlot])
	assert.Equal(t, 2, s.puts[storage.BackupSlot])
	assert.Equal(t, s.slots[storage.PrimarySlot], s.slots[storage.BackupSlot])

	loaded, _, err := NewAgent(s).Load()
	require.NoError(t, err)
	assert.Equal(t, uint32(1), loaded.ActiveIndex)
}

func TestAgent_SaveGivesUp(t *testing.T) {
	s, encoded := seededStore(t)
	a := NewAgent(s)
	r, _, err := a.Load()
	require.NoError(t, err)

	s.failPuts[storage.PrimarySlot] = MaxWriteAttempts

	r = r.Clone()
	require.NoError(t, r.SetActiveIndex(1))
	err = a.Save(r)
	require.Error(t, err)
	assert.Equal(t, MaxWriteAttempts, s.puts[storage.PrimarySlot])
	assert.Zero(t, s.puts[storage.BackupSlot], "backup is not written after the primary fails")
	assert.Equal(t, encoded, s.slots[storage.BackupSlot])
}

func TestAgent_SaveBackupFailureKeepsPrimary(t *testing.T) {
	s, encoded := seededStore(t)
	a := NewAgent(s)
	r, _, err := a.Load()
	require.NoError(t, err)

	s.failPuts[storage.BackupSlot] = MaxWriteAttempts

	r = r.Clone()
	require.NoError(t, r.SetActiveIndex(1))
	require.Error(t, a.Save(r))
	assert.Equal(t, encoded, s.slots[storage.BackupSlot])
	assert.Same(t, r, a.Record(), "cached record follows the written primary")

	loaded, res, err := NewAgent(s).Load()
	require.NoError(t, err)
	assert.Equal(t, a.Record().ActiveIndex, loaded.ActiveIndex)
	assert.True(t, res.PrimaryValid)
	assert.True(t, res.BackupValid)
}

func TestAgent_UpdateWorkflow(t *testing.T) {
	s, _ := seededStore(t)
	a := NewAgent(s)
	r, _, err := a.Load()
	require.NoError(t, err)

	// write new firmware to the update bank: both images unaccepted there
	update := r.UpdateIndex()
	r = r.Clone()
	for _, id := range r.ImageTypeIDs() {
		require.NoError(t, r.SetAccept(id, update, WriteUnaccept))
	}
	require.NoError(t, a.Save(r))

	require.NoError(t, a.Activate(update))
	r = a.Record()
	assert.Equal(t, uint32(update), r.ActiveIndex)
	assert.Equal(t, uint32(0), r.PreviousActiveIndex)
	trial, err := r.TrialRun()
	require.NoError(t, err)
	assert.True(t, trial)
	require.NoError(t, r.Validate())

	for _, id := range r.ImageTypeIDs() {
		require.NoError(t, a.Accept(id, update))
	}
	trial, err = a.Record().TrialRun()
	require.NoError(t, err)
	assert.False(t, trial)
	assert.Equal(t, codec.BankStateAccepted, a.Record().BankState[update])

	loaded, _, err := NewAgent(s).Load()
	require.NoError(t, err)
	assert.Equal(t, a.Record(), loaded)
}

func TestAgent_Stage(t *testing.T) {
	s, _ := seededStore(t)
	a := NewAgent(s)
	r, _, err := a.Load()
	require.NoError(t, err)

	typeID := r.Images[0].TypeID
	imageID := uuid.New()
	update := r.UpdateIndex()
	require.NoError(t, a.Stage(typeID, update, imageID))

	got, err := a.Record().ImageID(typeID, update)
	require.NoError(t, err)
	assert.Equal(t, imageID, got)
	ok, err := a.Record().Accepted(typeID, update)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, codec.BankStateValid, a.Record().BankState[update])

	// the staged record is still loadable from the store
	loaded, res, err := NewAgent(s).Load()
	require.NoError(t, err)
	assert.True(t, res.PrimaryValid)
	assert.Equal(t, a.Record(), loaded)

	err = a.Stage(typeID, int(a.Record().ActiveIndex), imageID)
	assert.True(t, codec.IsKind(err, codec.KindInvalidState))
	err = a.Stage(uuid.New(), update, imageID)
	assert.True(t, codec.IsKind(err, codec.KindNotFound))
}

func TestAgent_Rollback(t *testing.T) {
	s, _ := seededStore(t)
	a := NewAgent(s)
	r, _, err := a.Load()
	require.NoError(t, err)

	r = r.Clone()
	typeID := r.Images[0].TypeID
	require.NoError(t, r.SetAccept(typeID, 1, WriteUnaccept))
	require.NoError(t, a.Save(r))
	require.NoError(t, a.Activate(1))

	require.NoError(t, a.Rollback())
	ok, err := a.Record().Accepted(typeID, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, codec.BankStateAccepted, a.Record().BankState[1])
	require.NoError(t, a.Record().Validate())
}

func TestAgent_InstallWithPebble(t *testing.T) {
	st, err := storage.Open(t.TempDir())
	require.NoError(t, err)
	defer st.Close()

	_, encoded := buildRecord(t, 2, 1)
	a := NewAgent(st)
	_, err = a.Install(encoded)
	require.NoError(t, err)

	require.NoError(t, st.Put(storage.BackupSlot, []byte("garbage")))

	_, res, err := NewAgent(st).Load()
	require.NoError(t, err)
	assert.Equal(t, storage.BackupSlot, res.Restored)

	backup, err := st.Get(storage.BackupSlot)
	require.NoError(t, err)
	assert.Equal(t, encoded, backup)

	revs, err := st.History(0)
	require.NoError(t, err)
	assert.Len(t, revs, 4)
	assert.Equal(t, storage.BackupSlot, revs[0].Slot)
}
