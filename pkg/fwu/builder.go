package fwu

import (
	"github.com/google/uuid"

	"github.com/ssargent/fwumeta/pkg/codec"
)

// Defaults applied by DefaultOptions.
const (
	DefaultNumBanks      = 2
	DefaultImagesPerBank = 1
)

// Options describes the record to generate. Fields are taken as given;
// start from DefaultOptions to get the usual shape.
type Options struct {
	// Version must be codec.Version.
	Version uint32 `json:"version" yaml:"version"`

	NumBanks      int `json:"num_banks" yaml:"num_banks"`
	ImagesPerBank int `json:"images_per_bank" yaml:"images_per_bank"`

	// ImageTypeIDs and LocationIDs are consumed in order, one per image.
	// An empty list is filled with random identifiers; a non-empty list
	// shorter than ImagesPerBank is an error.
	ImageTypeIDs []uuid.UUID `json:"image_type_ids,omitempty" yaml:"image_type_ids,omitempty"`
	LocationIDs  []uuid.UUID `json:"location_ids,omitempty" yaml:"location_ids,omitempty"`

	ActiveIndex int `json:"active_index" yaml:"active_index"`
	// PreviousActiveIndex defaults to 1, or 0 for a single bank.
	PreviousActiveIndex *int `json:"previous_active_index,omitempty" yaml:"previous_active_index,omitempty"`
}

// DefaultOptions returns a version 2, two bank, one image layout.
func DefaultOptions() Options {
	return Options{
		Version:       codec.Version,
		NumBanks:      DefaultNumBanks,
		ImagesPerBank: DefaultImagesPerBank,
	}
}

func (o Options) previousActiveIndex() int {
	if o.PreviousActiveIndex != nil {
		return *o.PreviousActiveIndex
	}
	if o.NumBanks == 1 {
		return 0
	}
	return 1
}

// Validate checks the options as given.
func (o Options) Validate() error {
	if o.Version != codec.Version {
		if o.Version == codec.LegacyVersion {
			return codec.Errorf(codec.KindUnsupportedVersion, "generate: version 1 is not supported")
		}
		return codec.Errorf(codec.KindUnsupportedVersion, "generate: unknown version %d", o.Version)
	}
	if o.NumBanks < 1 || o.NumBanks > codec.MaxBanks {
		return codec.Errorf(codec.KindInvalidArgument,
			"generate: bank count %d out of range [1,%d]", o.NumBanks, codec.MaxBanks)
	}
	if o.ImagesPerBank < 1 || o.ImagesPerBank > codec.MaxImages {
		return codec.Errorf(codec.KindInvalidArgument,
			"generate: images per bank %d out of range [1,%d]", o.ImagesPerBank, codec.MaxImages)
	}
	if o.ActiveIndex < 0 || o.ActiveIndex >= o.NumBanks {
		return codec.Errorf(codec.KindInvalidArgument,
			"generate: active index %d out of range [0,%d)", o.ActiveIndex, o.NumBanks)
	}
	if p := o.previousActiveIndex(); p < 0 || p >= o.NumBanks {
		return codec.Errorf(codec.KindInvalidArgument,
			"generate: previous active index %d out of range [0,%d)", p, o.NumBanks)
	}
	if n := len(o.ImageTypeIDs); n > 0 && n < o.ImagesPerBank {
		return codec.Errorf(codec.KindIdentifierListShortfall,
			"generate: %d image type ids for %d images", n, o.ImagesPerBank)
	}
	if n := len(o.LocationIDs); n > 0 && n < o.ImagesPerBank {
		return codec.Errorf(codec.KindIdentifierListShortfall,
			"generate: %d location ids for %d images", n, o.ImagesPerBank)
	}
	return nil
}

// Build assembles and encodes a fresh record. Every bank of every image
// carries the image type id and is accepted, and every bank in use is
// marked accepted. Extra identifiers past ImagesPerBank are ignored.
func Build(opts Options) (*codec.Metadata, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	typeIDs := fillIDs(opts.ImageTypeIDs, opts.ImagesPerBank)
	locIDs := fillIDs(opts.LocationIDs, opts.ImagesPerBank)

	entrySize := codec.ImageEntrySize(opts.NumBanks)
	entries := make([]byte, 0, opts.ImagesPerBank*entrySize)
	for i := 0; i < opts.ImagesPerBank; i++ {
		banks := make([]byte, 0, opts.NumBanks*codec.BankInfoSize)
		for b := 0; b < opts.NumBanks; b++ {
			banks = append(banks, codec.EncodeBankInfo(typeIDs[i], codec.ImageAccepted)...)
		}
		entries = append(entries, codec.EncodeImageEntry(typeIDs[i], locIDs[i], banks)...)
	}

	desc, err := codec.NewStoreDescriptor(opts.NumBanks, opts.ImagesPerBank, entries)
	if err != nil {
		return nil, err
	}

	md := codec.NewMetadata(desc.Encode())
	md.Version = opts.Version
	md.ActiveIndex = uint32(opts.ActiveIndex)
	md.PreviousActiveIndex = uint32(opts.previousActiveIndex())
	if _, err := md.Encode(opts.NumBanks); err != nil {
		return nil, err
	}
	return md, nil
}

func fillIDs(ids []uuid.UUID, n int) []uuid.UUID {
	if len(ids) >= n {
		return ids[:n]
	}
	out := make([]uuid.UUID, n)
	for i := range out {
		out[i] = uuid.New()
	}
	return out
}
