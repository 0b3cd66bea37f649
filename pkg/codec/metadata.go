package codec

import (
	"hash/crc32"
)

// MetadataHeaderSize is the fixed metadata header preceding the descriptor.
//
//	[CRC32(4)][Version(4)][ActiveIndex(4)][PreviousActiveIndex(4)][MetadataSize(4)]
//	[DescriptorOffset(2)][Reserved2(2)][BankState(4)][Reserved4(4)]
const MetadataHeaderSize = 32

// Version is the only supported metadata format version.
const Version uint32 = 2

// LegacyVersion is recognized but not supported.
const LegacyVersion uint32 = 1

// DescriptorOffset is the fixed offset of the store descriptor in version 2.
const DescriptorOffset uint16 = MetadataHeaderSize

// Bank state values.
const (
	BankStateInvalid  uint8 = 0xFF
	BankStateValid    uint8 = 0xFE
	BankStateAccepted uint8 = 0xFC
)

// BankStateSlots is the number of bank state bytes in the header.
const BankStateSlots = 4

// MetadataSize returns the total encoded size of a record holding
// imagesPerBank images across numBanks banks.
func MetadataSize(imagesPerBank, numBanks int) int {
	return MetadataHeaderSize + StoreDescriptorSize(imagesPerBank, numBanks)
}

// Metadata is a firmware update metadata record. The store descriptor is kept
// in encoded form and decoded on access.
type Metadata struct {
	Crc32               uint32
	Version             uint32
	ActiveIndex         uint32
	PreviousActiveIndex uint32
	MetadataSize        uint32
	DescriptorOffset    uint16
	BankState           [BankStateSlots]uint8

	descriptor []byte
}

// NewMetadata creates a record around an encoded store descriptor with the
// default header: version 2, bank 0 active, bank 1 previously active, all
// bank states invalid.
func NewMetadata(descriptor []byte) *Metadata {
	blob := make([]byte, len(descriptor))
	copy(blob, descriptor)
	return &Metadata{
		Version:             Version,
		ActiveIndex:         0,
		PreviousActiveIndex: 1,
		DescriptorOffset:    DescriptorOffset,
		BankState:           [BankStateSlots]uint8{BankStateInvalid, BankStateInvalid, BankStateInvalid, BankStateInvalid},
		descriptor:          blob,
	}
}

// Encode marks banks [0,numBanks) as in use and serializes the record,
// recomputing MetadataSize and Crc32. Slots past numBanks keep their value.
func (m *Metadata) Encode(numBanks int) ([]byte, error) {
	if numBanks < 1 || numBanks > BankStateSlots {
		return nil, Errorf(KindInvalidArgument, "metadata: bank count %d out of range [1,%d]", numBanks, BankStateSlots)
	}
	for i := 0; i < numBanks; i++ {
		m.BankState[i] = BankStateAccepted
	}
	return m.Reseal()
}

// Reseal serializes the record with its current bank states, recomputing
// MetadataSize and Crc32.
func (m *Metadata) Reseal() ([]byte, error) {
	if err := checkVersion(m.Version); err != nil {
		return nil, err
	}

	m.MetadataSize = uint32(MetadataHeaderSize + len(m.descriptor))
	m.Crc32 = 0

	buf := m.marshal()
	m.Crc32 = ComputeChecksum(buf)
	byteOrder.PutUint32(buf[0:4], m.Crc32)

	return buf, nil
}

func (m *Metadata) marshal() []byte {
	buf := make([]byte, MetadataHeaderSize+len(m.descriptor))
	byteOrder.PutUint32(buf[0:4], m.Crc32)
	byteOrder.PutUint32(buf[4:8], m.Version)
	byteOrder.PutUint32(buf[8:12], m.ActiveIndex)
	byteOrder.PutUint32(buf[12:16], m.PreviousActiveIndex)
	byteOrder.PutUint32(buf[16:20], m.MetadataSize)
	byteOrder.PutUint16(buf[20:22], m.DescriptorOffset)
	byteOrder.PutUint16(buf[22:24], 0)
	copy(buf[24:28], m.BankState[:])
	byteOrder.PutUint32(buf[28:32], 0)
	copy(buf[MetadataHeaderSize:], m.descriptor)
	return buf
}

// DecodeOption tunes DecodeMetadata.
type DecodeOption func(*decodeOptions)

type decodeOptions struct {
	verifyChecksum bool
}

// WithChecksumVerification makes decode recompute the CRC-32 and fail with
// IntegrityCheckFailed when it does not match the stored value.
func WithChecksumVerification() DecodeOption {
	return func(o *decodeOptions) {
		o.verifyChecksum = true
	}
}

// DecodeMetadata parses a record whose shape (images per bank and number of
// banks) is known up front. The buffer length must match that shape exactly.
// The descriptor is checked strictly but kept in encoded form.
//
// The stored Crc32 is not verified unless WithChecksumVerification is given.
func DecodeMetadata(data []byte, imagesPerBank, numBanks int, opts ...DecodeOption) (*Metadata, error) {
	var o decodeOptions
	for _, opt := range opts {
		opt(&o)
	}

	if imagesPerBank < 0 || numBanks < 0 {
		return nil, Errorf(KindInvalidArgument,
			"metadata: negative shape %d images x %d banks", imagesPerBank, numBanks)
	}
	if len(data) < MetadataHeaderSize {
		return nil, Errorf(KindLengthMismatch,
			"metadata: got %d bytes, header needs %d", len(data), MetadataHeaderSize)
	}
	if err := checkVersion(byteOrder.Uint32(data[4:8])); err != nil {
		return nil, err
	}
	if want := MetadataSize(imagesPerBank, numBanks); len(data) != want {
		return nil, Errorf(KindLengthMismatch,
			"metadata: got %d bytes, want %d for %d images x %d banks", len(data), want, imagesPerBank, numBanks)
	}

	m, err := decodeHeader(data)
	if err != nil {
		return nil, err
	}
	if int(m.MetadataSize) != len(data) {
		return nil, Errorf(KindLengthMismatch,
			"metadata: metadata_size field is %d, buffer is %d bytes", m.MetadataSize, len(data))
	}

	desc, err := DecodeStoreDescriptor(data[MetadataHeaderSize:])
	if err != nil {
		return nil, err
	}
	if int(desc.NumBanks) != numBanks || int(desc.NumImages) != imagesPerBank {
		return nil, Errorf(KindLengthMismatch,
			"metadata: descriptor declares %d images x %d banks, expected %d x %d",
			desc.NumImages, desc.NumBanks, imagesPerBank, numBanks)
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	m.descriptor = make([]byte, len(data)-MetadataHeaderSize)
	copy(m.descriptor, data[MetadataHeaderSize:])

	if o.verifyChecksum {
		if err := m.VerifyChecksum(); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// DecodeMetadataAuto parses a record taking its shape from the descriptor
// header instead of from the caller.
func DecodeMetadataAuto(data []byte, opts ...DecodeOption) (*Metadata, error) {
	shapeEnd := MetadataHeaderSize + StoreDescriptorHeaderSize
	if len(data) < shapeEnd {
		return nil, Errorf(KindLengthMismatch,
			"metadata: got %d bytes, need at least %d to read the shape", len(data), shapeEnd)
	}
	numBanks := int(data[MetadataHeaderSize])
	numImages := int(byteOrder.Uint16(data[MetadataHeaderSize+2 : MetadataHeaderSize+4]))
	return DecodeMetadata(data, numImages, numBanks, opts...)
}

func decodeHeader(data []byte) (*Metadata, error) {
	m := &Metadata{
		Crc32:               byteOrder.Uint32(data[0:4]),
		Version:             byteOrder.Uint32(data[4:8]),
		ActiveIndex:         byteOrder.Uint32(data[8:12]),
		PreviousActiveIndex: byteOrder.Uint32(data[12:16]),
		MetadataSize:        byteOrder.Uint32(data[16:20]),
		DescriptorOffset:    byteOrder.Uint16(data[20:22]),
	}
	copy(m.BankState[:], data[24:28])

	if r := byteOrder.Uint16(data[22:24]); r != 0 {
		return nil, Errorf(KindReservedFieldViolation, "metadata: reserved_2 is 0x%04x, want 0", r)
	}
	if r := byteOrder.Uint32(data[28:32]); r != 0 {
		return nil, Errorf(KindReservedFieldViolation, "metadata: reserved_4 is 0x%08x, want 0", r)
	}

	return m, nil
}

func checkVersion(v uint32) error {
	switch v {
	case Version:
		return nil
	case LegacyVersion:
		return Errorf(KindUnsupportedVersion, "metadata: version 1 is not supported")
	default:
		return Errorf(KindUnsupportedVersion, "metadata: unknown version %d, want %d", v, Version)
	}
}

// DescriptorBytes returns the encoded store descriptor.
func (m *Metadata) DescriptorBytes() []byte {
	return m.descriptor
}

// Descriptor decodes the store descriptor.
func (m *Metadata) Descriptor() (*StoreDescriptor, error) {
	return DecodeStoreDescriptor(m.descriptor)
}

// SetDescriptor replaces the encoded store descriptor.
func (m *Metadata) SetDescriptor(descriptor []byte) {
	m.descriptor = make([]byte, len(descriptor))
	copy(m.descriptor, descriptor)
}

// Size returns the encoded size of the record.
func (m *Metadata) Size() int {
	return MetadataHeaderSize + len(m.descriptor)
}

// Checksum computes the IEEE CRC-32 (the zlib polynomial) of data.
func Checksum(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

// ComputeChecksum returns the CRC-32 of an encoded record, covering every
// byte after the crc32 field.
func ComputeChecksum(encoded []byte) uint32 {
	if len(encoded) < 4 {
		return Checksum(nil)
	}
	return Checksum(encoded[4:])
}

// VerifyChecksum recomputes the CRC-32 over the record and compares it with
// the stored Crc32.
func (m *Metadata) VerifyChecksum() error {
	stored := m.Crc32
	got := ComputeChecksum(m.marshal())
	if got != stored {
		return Errorf(KindIntegrityCheckFailed, "metadata: crc32 is 0x%08x, computed 0x%08x", stored, got)
	}
	return nil
}
