package fwu

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/fwumeta/pkg/codec"
)

func buildRecord(t *testing.T, numBanks, numImages int) (*Record, []byte) {
	t.Helper()
	md, err := Build(withShape(numBanks, numImages))
	require.NoError(t, err)
	encoded, err := md.Reseal()
	require.NoError(t, err)
	r, err := FromMetadata(md)
	require.NoError(t, err)
	return r, encoded
}

func TestRecord_EncodeIsByteExact(t *testing.T) {
	for _, shape := range [][2]int{{1, 1}, {2, 1}, {2, 5}, {4, 3}} {
		r, encoded := buildRecord(t, shape[0], shape[1])

		again, err := r.Encode()
		require.NoError(t, err)
		assert.Equal(t, encoded, again)

		decoded, err := Decode(encoded, codec.WithChecksumVerification())
		require.NoError(t, err)
		assert.Equal(t, r, decoded)
	}
}

func TestRecord_EncodeRecomputesChecksum(t *testing.T) {
	r, encoded := buildRecord(t, 2, 2)
	oldCrc := r.Crc32

	require.NoError(t, r.SetAccept(r.Images[1].TypeID, 1, Unaccept))
	require.NoError(t, r.UpdateBankState(1))

	updated, err := r.Encode()
	require.NoError(t, err)
	assert.Len(t, updated, len(encoded))
	assert.NotEqual(t, oldCrc, r.Crc32)
	assert.Equal(t, codec.ComputeChecksum(updated), r.Crc32)

	md, err := codec.DecodeMetadata(updated, 2, 2, codec.WithChecksumVerification())
	require.NoError(t, err)
	assert.Equal(t, codec.BankStateValid, md.BankState[1])
}

func TestRecord_MetadataRejectsRaggedBanks(t *testing.T) {
	r, _ := buildRecord(t, 2, 1)
	r.Images[0].Banks = r.Images[0].Banks[:1]

	_, err := r.Encode()
	assert.ErrorIs(t, err, codec.ErrInvalidState)
}

func TestRecord_Clone(t *testing.T) {
	r, _ := buildRecord(t, 2, 2)
	c := r.Clone()

	c.Images[0].Banks[0].Accepted = codec.ImageUnaccepted
	c.BankState[0] = codec.BankStateValid

	assert.True(t, r.Images[0].Banks[0].IsAccepted())
	assert.Equal(t, codec.BankStateAccepted, r.BankState[0])
}

func TestRecord_JSON(t *testing.T) {
	typeID := uuid.MustParse("11111111-2222-3333-4444-555555555555")
	opts := DefaultOptions()
	opts.ImageTypeIDs = []uuid.UUID{typeID}
	md, err := Build(opts)
	require.NoError(t, err)
	r, err := FromMetadata(md)
	require.NoError(t, err)

	out, err := json.Marshal(r)
	require.NoError(t, err)

	var view map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &view))
	assert.Equal(t, float64(120), view["metadata_size"])
	assert.Equal(t, float64(2), view["num_banks"])

	images := view["images"].([]interface{})
	require.Len(t, images, 1)
	img := images[0].(map[string]interface{})
	assert.Equal(t, typeID.String(), img["image_type_id"])
	assert.Len(t, img["banks"], 2)
}
