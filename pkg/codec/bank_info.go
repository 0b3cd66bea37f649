package codec

import (
	"github.com/google/uuid"
)

// BankInfoSize is the encoded size of a BankInfo record.
//
//	[ImageGUID(16)][Accepted(4)][Reserved(4)]
const BankInfoSize = GUIDSize + 4 + 4

// Accepted flag values.
const (
	ImageUnaccepted uint32 = 0
	ImageAccepted   uint32 = 1
)

// BankInfo is one bank's copy of one image.
type BankInfo struct {
	ImageID  uuid.UUID
	Accepted uint32
}

// IsAccepted reports whether this copy has been confirmed good.
func (b BankInfo) IsAccepted() bool {
	return b.Accepted == ImageAccepted
}

// EncodeBankInfo serializes a bank info record. The reserved field is always
// written as zero.
func EncodeBankInfo(id uuid.UUID, accepted uint32) []byte {
	buf := make([]byte, BankInfoSize)
	putBankInfo(buf, id, accepted)
	return buf
}

func putBankInfo(buf []byte, id uuid.UUID, accepted uint32) {
	putGUID(buf[0:16], id)
	byteOrder.PutUint32(buf[16:20], accepted)
	byteOrder.PutUint32(buf[20:24], 0)
}

// Encode serializes b.
func (b BankInfo) Encode() []byte {
	return EncodeBankInfo(b.ImageID, b.Accepted)
}

// DecodeBankInfo parses exactly one bank info record.
func DecodeBankInfo(data []byte) (BankInfo, error) {
	if len(data) != BankInfoSize {
		return BankInfo{}, Errorf(KindLengthMismatch,
			"bank info: got %d bytes, want %d", len(data), BankInfoSize)
	}

	if reserved := byteOrder.Uint32(data[20:24]); reserved != 0 {
		return BankInfo{}, Errorf(KindReservedFieldViolation,
			"bank info: reserved field is 0x%08x, want 0", reserved)
	}

	return BankInfo{
		ImageID:  readGUID(data[0:16]),
		Accepted: byteOrder.Uint32(data[16:20]),
	}, nil
}
