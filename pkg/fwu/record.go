package fwu

import (
	"github.com/google/uuid"

	"github.com/ssargent/fwumeta/pkg/codec"
)

// Bank is one bank's copy of an image.
type Bank struct {
	ImageID  uuid.UUID `json:"image_id"`
	Accepted uint32    `json:"accepted"`
}

// IsAccepted reports whether the copy has been confirmed good.
func (b Bank) IsAccepted() bool {
	return b.Accepted == codec.ImageAccepted
}

// Image is one image type with a copy per bank.
type Image struct {
	TypeID     uuid.UUID `json:"image_type_id"`
	LocationID uuid.UUID `json:"location_id"`
	Banks      []Bank    `json:"banks"`
}

// Record is the decoded, mutable view of a metadata record. The size fields
// are kept as read so that Validate can check them; Encode recomputes the
// derived ones.
type Record struct {
	Crc32               uint32                      `json:"crc32"`
	Version             uint32                      `json:"version"`
	ActiveIndex         uint32                      `json:"active_index"`
	PreviousActiveIndex uint32                      `json:"previous_active_index"`
	MetadataSize        uint32                      `json:"metadata_size"`
	DescriptorOffset    uint16                      `json:"descriptor_offset"`
	BankState           [codec.BankStateSlots]uint8 `json:"bank_state"`

	NumBanks          uint8  `json:"num_banks"`
	ImageEntrySize    uint16 `json:"image_entry_size"`
	BankInfoEntrySize uint16 `json:"bank_info_entry_size"`

	Images []Image `json:"images"`
}

// FromMetadata materializes every image entry and bank info of md.
func FromMetadata(md *codec.Metadata) (*Record, error) {
	desc, err := md.Descriptor()
	if err != nil {
		return nil, err
	}
	entries, err := desc.Entries()
	if err != nil {
		return nil, err
	}

	r := &Record{
		Crc32:               md.Crc32,
		Version:             md.Version,
		ActiveIndex:         md.ActiveIndex,
		PreviousActiveIndex: md.PreviousActiveIndex,
		MetadataSize:        md.MetadataSize,
		DescriptorOffset:    md.DescriptorOffset,
		BankState:           md.BankState,
		NumBanks:            desc.NumBanks,
		ImageEntrySize:      desc.ImageEntrySize,
		BankInfoEntrySize:   desc.BankInfoEntrySize,
		Images:              make([]Image, len(entries)),
	}

	for i, e := range entries {
		infos, err := e.Banks()
		if err != nil {
			return nil, codec.Wrap(codec.KindOf(err), err, "image %d", i)
		}
		img := Image{
			TypeID:     e.ImageTypeID,
			LocationID: e.LocationID,
			Banks:      make([]Bank, len(infos)),
		}
		for b, info := range infos {
			img.Banks[b] = Bank{ImageID: info.ImageID, Accepted: info.Accepted}
		}
		r.Images[i] = img
	}
	return r, nil
}

// Decode parses and materializes a record, reading its shape from the
// descriptor header.
func Decode(data []byte, opts ...codec.DecodeOption) (*Record, error) {
	md, err := codec.DecodeMetadataAuto(data, opts...)
	if err != nil {
		return nil, err
	}
	return FromMetadata(md)
}

// Metadata converts r back to its wire model without touching any stored
// field, Crc32 and the size fields included.
func (r *Record) Metadata() (*codec.Metadata, error) {
	var entries []byte
	for i, img := range r.Images {
		if len(img.Banks) != int(r.NumBanks) {
			return nil, codec.Errorf(codec.KindInvalidState,
				"record: image %d has %d banks, descriptor declares %d", i, len(img.Banks), r.NumBanks)
		}
		infos := make([]codec.BankInfo, len(img.Banks))
		for b, bank := range img.Banks {
			infos[b] = codec.BankInfo{ImageID: bank.ImageID, Accepted: bank.Accepted}
		}
		entries = append(entries, codec.NewImageEntry(img.TypeID, img.LocationID, infos).Encode()...)
	}

	desc, err := codec.NewStoreDescriptor(int(r.NumBanks), len(r.Images), entries)
	if err != nil {
		return nil, err
	}
	desc.ImageEntrySize = r.ImageEntrySize
	desc.BankInfoEntrySize = r.BankInfoEntrySize

	md := codec.NewMetadata(desc.Encode())
	md.Crc32 = r.Crc32
	md.Version = r.Version
	md.ActiveIndex = r.ActiveIndex
	md.PreviousActiveIndex = r.PreviousActiveIndex
	md.MetadataSize = r.MetadataSize
	md.DescriptorOffset = r.DescriptorOffset
	md.BankState = r.BankState
	return md, nil
}

// Encode serializes the record with its current bank states, normalizing the
// descriptor size fields and recomputing MetadataSize and Crc32.
func (r *Record) Encode() ([]byte, error) {
	r.ImageEntrySize = uint16(codec.ImageEntrySize(int(r.NumBanks)))
	r.BankInfoEntrySize = codec.BankInfoSize

	md, err := r.Metadata()
	if err != nil {
		return nil, err
	}
	out, err := md.Reseal()
	if err != nil {
		return nil, err
	}
	r.MetadataSize = md.MetadataSize
	r.Crc32 = md.Crc32
	return out, nil
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	c := *r
	c.Images = make([]Image, len(r.Images))
	for i, img := range r.Images {
		img.Banks = append([]Bank(nil), img.Banks...)
		c.Images[i] = img
	}
	return &c
}
