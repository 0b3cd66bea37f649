package codec

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageEntry_EncodeDecode(t *testing.T) {
	typeID, locID := uuid.New(), uuid.New()

	for numBanks := 1; numBanks <= MaxBanks; numBanks++ {
		var blob []byte
		imageIDs := make([]uuid.UUID, numBanks)
		for b := range imageIDs {
			imageIDs[b] = uuid.New()
			blob = append(blob, EncodeBankInfo(imageIDs[b], uint32(b%2))...)
		}

		encoded := EncodeImageEntry(typeID, locID, blob)
		require.Len(t, encoded, ImageEntrySize(numBanks))
		require.Equal(t, 32+24*numBanks, len(encoded))

		entry, err := DecodeImageEntry(encoded, numBanks)
		require.NoError(t, err)
		assert.Equal(t, typeID, entry.ImageTypeID)
		assert.Equal(t, locID, entry.LocationID)
		assert.Equal(t, numBanks, entry.NumBanks())
		assert.Equal(t, blob, entry.BankInfoBytes())
		assert.Equal(t, encoded, entry.Encode())

		for b := 0; b < numBanks; b++ {
			info, err := entry.Bank(b)
			require.NoError(t, err)
			assert.Equal(t, imageIDs[b], info.ImageID)
			assert.Equal(t, uint32(b%2), info.Accepted)
		}
	}
}

func TestImageEntry_DecodeDoesNotAlias(t *testing.T) {
	encoded := EncodeImageEntry(uuid.New(), uuid.New(), EncodeBankInfo(uuid.New(), ImageAccepted))

	entry, err := DecodeImageEntry(encoded, 1)
	require.NoError(t, err)

	encoded[ImageEntryHeaderSize+16] = 0
	info, err := entry.Bank(0)
	require.NoError(t, err)
	assert.True(t, info.IsAccepted())
}

func TestImageEntry_Errors(t *testing.T) {
	encoded := EncodeImageEntry(uuid.New(), uuid.New(),
		append(EncodeBankInfo(uuid.New(), ImageAccepted), EncodeBankInfo(uuid.New(), ImageAccepted)...))

	_, err := DecodeImageEntry(encoded, 1)
	assert.ErrorIs(t, err, ErrLengthMismatch)

	_, err = DecodeImageEntry(encoded[:len(encoded)-1], 2)
	assert.ErrorIs(t, err, ErrLengthMismatch)

	entry, err := DecodeImageEntry(encoded, 2)
	require.NoError(t, err)

	_, err = entry.Bank(2)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = entry.Bank(-1)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	// bank info reserved bytes surface on access
	corrupt := append([]byte(nil), encoded...)
	corrupt[ImageEntryHeaderSize+BankInfoSize+21] = 1
	entry, err = DecodeImageEntry(corrupt, 2)
	require.NoError(t, err)
	_, err = entry.Bank(0)
	assert.NoError(t, err)
	_, err = entry.Bank(1)
	assert.ErrorIs(t, err, ErrReservedFieldViolation)
	_, err = entry.Banks()
	assert.ErrorIs(t, err, ErrReservedFieldViolation)
}

func TestNewImageEntry(t *testing.T) {
	typeID, locID := uuid.New(), uuid.New()
	banks := []BankInfo{
		{ImageID: typeID, Accepted: ImageAccepted},
		{ImageID: uuid.New(), Accepted: ImageUnaccepted},
	}

	entry := NewImageEntry(typeID, locID, banks)
	assert.Equal(t, ImageEntrySize(2), entry.Size())

	got, err := entry.Banks()
	require.NoError(t, err)
	assert.Equal(t, banks, got)
}
