package codec

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBankInfo_EncodeDecode(t *testing.T) {
	id := uuid.New()

	for _, accepted := range []uint32{ImageUnaccepted, ImageAccepted} {
		encoded := EncodeBankInfo(id, accepted)
		require.Len(t, encoded, BankInfoSize)
		assert.Equal(t, []byte{0, 0, 0, 0}, encoded[20:24], "reserved must be zero")

		info, err := DecodeBankInfo(encoded)
		require.NoError(t, err)
		assert.Equal(t, id, info.ImageID)
		assert.Equal(t, accepted, info.Accepted)
		assert.Equal(t, accepted == ImageAccepted, info.IsAccepted())
		assert.Equal(t, encoded, info.Encode())
	}
}

func TestBankInfo_DecodeErrors(t *testing.T) {
	valid := EncodeBankInfo(uuid.New(), ImageAccepted)

	t.Run("short buffer", func(t *testing.T) {
		_, err := DecodeBankInfo(valid[:BankInfoSize-1])
		assert.ErrorIs(t, err, ErrLengthMismatch)
		assert.True(t, IsFormatError(err))
	})

	t.Run("long buffer", func(t *testing.T) {
		_, err := DecodeBankInfo(append(append([]byte(nil), valid...), 0))
		assert.ErrorIs(t, err, ErrLengthMismatch)
	})

	t.Run("nonzero reserved", func(t *testing.T) {
		for i := 20; i < 24; i++ {
			corrupt := append([]byte(nil), valid...)
			corrupt[i] = 0x80
			_, err := DecodeBankInfo(corrupt)
			assert.ErrorIs(t, err, ErrReservedFieldViolation, "byte %d", i)
			assert.True(t, IsFormatError(err))
		}
	})
}
