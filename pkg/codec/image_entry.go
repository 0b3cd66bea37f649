package codec

import (
	"github.com/google/uuid"
)

// ImageEntryHeaderSize is the fixed part of an image entry: the image type
// and location GUIDs.
const ImageEntryHeaderSize = 2 * GUIDSize

// ImageEntrySize returns the encoded size of one image entry for numBanks.
func ImageEntrySize(numBanks int) int {
	return ImageEntryHeaderSize + BankInfoSize*numBanks
}

// ImageEntry is one image type and its per-bank copies. The bank info
// records are kept as an opaque blob and decoded on access.
type ImageEntry struct {
	ImageTypeID uuid.UUID
	LocationID  uuid.UUID

	numBanks int
	banks    []byte
}

// EncodeImageEntry concatenates the two identities with a bank info blob
// assembled by the caller. The blob is not inspected.
func EncodeImageEntry(imageTypeID, locationID uuid.UUID, bankInfo []byte) []byte {
	buf := make([]byte, ImageEntryHeaderSize+len(bankInfo))
	putGUID(buf[0:16], imageTypeID)
	putGUID(buf[16:32], locationID)
	copy(buf[ImageEntryHeaderSize:], bankInfo)
	return buf
}

// NewImageEntry builds an entry from decoded bank infos.
func NewImageEntry(imageTypeID, locationID uuid.UUID, banks []BankInfo) *ImageEntry {
	blob := make([]byte, BankInfoSize*len(banks))
	for i, b := range banks {
		putBankInfo(blob[i*BankInfoSize:], b.ImageID, b.Accepted)
	}
	return &ImageEntry{
		ImageTypeID: imageTypeID,
		LocationID:  locationID,
		numBanks:    len(banks),
		banks:       blob,
	}
}

// DecodeImageEntry parses one image entry holding numBanks bank infos.
func DecodeImageEntry(data []byte, numBanks int) (*ImageEntry, error) {
	if numBanks < 0 {
		return nil, Errorf(KindInvalidArgument, "image entry: negative bank count %d", numBanks)
	}
	if want := ImageEntrySize(numBanks); len(data) != want {
		return nil, Errorf(KindLengthMismatch,
			"image entry: got %d bytes, want %d for %d banks", len(data), want, numBanks)
	}

	banks := make([]byte, len(data)-ImageEntryHeaderSize)
	copy(banks, data[ImageEntryHeaderSize:])

	return &ImageEntry{
		ImageTypeID: readGUID(data[0:16]),
		LocationID:  readGUID(data[16:32]),
		numBanks:    numBanks,
		banks:       banks,
	}, nil
}

// NumBanks returns the number of bank info records in the entry.
func (e *ImageEntry) NumBanks() int {
	return e.numBanks
}

// BankInfoBytes returns the raw bank info blob.
func (e *ImageEntry) BankInfoBytes() []byte {
	return e.banks
}

// Bank decodes the bank info for bank i.
func (e *ImageEntry) Bank(i int) (BankInfo, error) {
	if i < 0 || i >= e.numBanks {
		return BankInfo{}, Errorf(KindInvalidArgument,
			"image entry: bank %d out of range [0,%d)", i, e.numBanks)
	}
	return DecodeBankInfo(e.banks[i*BankInfoSize : (i+1)*BankInfoSize])
}

// Banks decodes every bank info in order.
func (e *ImageEntry) Banks() ([]BankInfo, error) {
	out := make([]BankInfo, e.numBanks)
	for i := range out {
		b, err := e.Bank(i)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

// Size returns the encoded size of the entry.
func (e *ImageEntry) Size() int {
	return ImageEntryHeaderSize + len(e.banks)
}

// Encode serializes the entry.
func (e *ImageEntry) Encode() []byte {
	return EncodeImageEntry(e.ImageTypeID, e.LocationID, e.banks)
}
