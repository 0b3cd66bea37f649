package codec

// StoreDescriptorHeaderSize is the fixed header of the firmware store
// descriptor:
//
//	[NumBanks(1)][Reserved(1)][NumImages(2)][ImageEntrySize(2)][BankInfoEntrySize(2)]
const StoreDescriptorHeaderSize = 8

// Limits imposed by the field widths and the four bank state slots.
const (
	MaxBanks  = 4
	MaxImages = 0xFFFF
)

// StoreDescriptorSize returns the encoded size of a descriptor holding
// numImages entries of numBanks banks each.
func StoreDescriptorSize(numImages, numBanks int) int {
	return StoreDescriptorHeaderSize + numImages*ImageEntrySize(numBanks)
}

// StoreDescriptor lists every image type and its per-bank copies. The
// image entries are kept as an opaque blob and decoded on access.
type StoreDescriptor struct {
	NumBanks          uint8
	NumImages         uint16
	ImageEntrySize    uint16
	BankInfoEntrySize uint16

	entries []byte
}

// NewStoreDescriptor wraps an already encoded image entry blob. The derived
// size fields are computed here from numBanks and are written unchanged by
// Encode, so the caller must keep entries consistent with them.
func NewStoreDescriptor(numBanks, numImages int, entries []byte) (*StoreDescriptor, error) {
	if numBanks < 0 || numBanks > 0xFF {
		return nil, Errorf(KindInvalidArgument, "store descriptor: bank count %d out of range", numBanks)
	}
	if numImages < 0 || numImages > MaxImages {
		return nil, Errorf(KindInvalidArgument, "store descriptor: image count %d out of range", numImages)
	}
	entrySize := ImageEntrySize(numBanks)
	if entrySize > 0xFFFF {
		return nil, Errorf(KindInvalidArgument, "store descriptor: entry size %d overflows", entrySize)
	}

	blob := make([]byte, len(entries))
	copy(blob, entries)

	return &StoreDescriptor{
		NumBanks:          uint8(numBanks),
		NumImages:         uint16(numImages),
		ImageEntrySize:    uint16(entrySize),
		BankInfoEntrySize: BankInfoSize,
		entries:           blob,
	}, nil
}

// Encode serializes the descriptor header followed by the entry blob.
func (d *StoreDescriptor) Encode() []byte {
	buf := make([]byte, StoreDescriptorHeaderSize+len(d.entries))
	buf[0] = d.NumBanks
	buf[1] = 0
	byteOrder.PutUint16(buf[2:4], d.NumImages)
	byteOrder.PutUint16(buf[4:6], d.ImageEntrySize)
	byteOrder.PutUint16(buf[6:8], d.BankInfoEntrySize)
	copy(buf[StoreDescriptorHeaderSize:], d.entries)
	return buf
}

// DecodeStoreDescriptor parses a descriptor. The buffer must be exactly as
// long as its header's bank and image counts imply.
func DecodeStoreDescriptor(data []byte) (*StoreDescriptor, error) {
	if len(data) < StoreDescriptorHeaderSize {
		return nil, Errorf(KindLengthMismatch,
			"store descriptor: got %d bytes, header needs %d", len(data), StoreDescriptorHeaderSize)
	}

	if data[1] != 0 {
		return nil, Errorf(KindReservedFieldViolation,
			"store descriptor: reserved byte is 0x%02x, want 0", data[1])
	}

	d := &StoreDescriptor{
		NumBanks:          data[0],
		NumImages:         byteOrder.Uint16(data[2:4]),
		ImageEntrySize:    byteOrder.Uint16(data[4:6]),
		BankInfoEntrySize: byteOrder.Uint16(data[6:8]),
	}

	if want := StoreDescriptorSize(int(d.NumImages), int(d.NumBanks)); len(data) != want {
		return nil, Errorf(KindLengthMismatch,
			"store descriptor: got %d bytes, want %d for %d images x %d banks",
			len(data), want, d.NumImages, d.NumBanks)
	}

	d.entries = make([]byte, len(data)-StoreDescriptorHeaderSize)
	copy(d.entries, data[StoreDescriptorHeaderSize:])

	return d, nil
}

// Size returns the encoded size of the descriptor.
func (d *StoreDescriptor) Size() int {
	return StoreDescriptorHeaderSize + len(d.entries)
}

// EntryBytes returns the raw image entry blob.
func (d *StoreDescriptor) EntryBytes() []byte {
	return d.entries
}

// Entry decodes image entry i, striding by the declared ImageEntrySize.
func (d *StoreDescriptor) Entry(i int) (*ImageEntry, error) {
	if i < 0 || i >= int(d.NumImages) {
		return nil, Errorf(KindInvalidArgument,
			"store descriptor: image %d out of range [0,%d)", i, d.NumImages)
	}
	stride := int(d.ImageEntrySize)
	start, end := i*stride, (i+1)*stride
	if end > len(d.entries) {
		return nil, Errorf(KindLengthMismatch,
			"store descriptor: image %d spans [%d,%d) past %d entry bytes", i, start, end, len(d.entries))
	}
	return DecodeImageEntry(d.entries[start:end], int(d.NumBanks))
}

// Entries decodes every image entry in order.
func (d *StoreDescriptor) Entries() ([]*ImageEntry, error) {
	out := make([]*ImageEntry, d.NumImages)
	for i := range out {
		e, err := d.Entry(i)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

// Validate checks the redundant size fields against NumBanks and decodes
// every entry and bank info, surfacing the first format error.
func (d *StoreDescriptor) Validate() error {
	if want := ImageEntrySize(int(d.NumBanks)); int(d.ImageEntrySize) != want {
		return Errorf(KindLengthMismatch,
			"store descriptor: image entry size %d, want %d for %d banks", d.ImageEntrySize, want, d.NumBanks)
	}
	if d.BankInfoEntrySize != BankInfoSize {
		return Errorf(KindLengthMismatch,
			"store descriptor: bank info entry size %d, want %d", d.BankInfoEntrySize, BankInfoSize)
	}

	entries, err := d.Entries()
	if err != nil {
		return err
	}
	for i, e := range entries {
		if _, err := e.Banks(); err != nil {
			return Wrap(KindOf(err), err, "image %d", i)
		}
	}
	return nil
}
