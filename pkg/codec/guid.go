package codec

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// GUIDSize is the on-disk size of an identity.
const GUIDSize = 16

var byteOrder = binary.LittleEndian

// putGUID writes id into dst using the mixed-endian GUID wire layout: the
// first three fields (u32, u16, u16) are little-endian, the trailing 8 bytes
// are copied as is.
func putGUID(dst []byte, id uuid.UUID) {
	_ = dst[GUIDSize-1]
	byteOrder.PutUint32(dst[0:4], binary.BigEndian.Uint32(id[0:4]))
	byteOrder.PutUint16(dst[4:6], binary.BigEndian.Uint16(id[4:6]))
	byteOrder.PutUint16(dst[6:8], binary.BigEndian.Uint16(id[6:8]))
	copy(dst[8:16], id[8:16])
}

// readGUID is the inverse of putGUID.
func readGUID(src []byte) uuid.UUID {
	var id uuid.UUID
	binary.BigEndian.PutUint32(id[0:4], byteOrder.Uint32(src[0:4]))
	binary.BigEndian.PutUint16(id[4:6], byteOrder.Uint16(src[4:6]))
	binary.BigEndian.PutUint16(id[6:8], byteOrder.Uint16(src[6:8]))
	copy(id[8:16], src[8:16])
	return id
}

// GUIDBytes returns the 16-byte wire form of id.
func GUIDBytes(id uuid.UUID) []byte {
	b := make([]byte, GUIDSize)
	putGUID(b, id)
	return b
}

// ParseGUIDBytes decodes the 16-byte wire form of a GUID.
func ParseGUIDBytes(b []byte) (uuid.UUID, error) {
	if len(b) != GUIDSize {
		return uuid.Nil, Errorf(KindLengthMismatch, "guid: got %d bytes, want %d", len(b), GUIDSize)
	}
	return readGUID(b), nil
}
