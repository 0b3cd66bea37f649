package fwu

import (
	"github.com/ssargent/fwumeta/pkg/codec"
)

// Validate applies the checks boot firmware performs before trusting a
// record, returning the first violation:
//
//   - the descriptor offset is codec.DescriptorOffset
//   - NumBanks is at most codec.MaxBanks
//   - the active and previous active indices name existing banks
//   - BankInfoEntrySize, ImageEntrySize and MetadataSize match the shape
//   - every bank in use is VALID or ACCEPTED, and an ACCEPTED bank holds
//     no unaccepted image
//   - bank state slots past NumBanks are INVALID
//   - the stored CRC-32 matches
func (r *Record) Validate() error {
	if r.Version != codec.Version {
		return codec.Errorf(codec.KindUnsupportedVersion, "validate: version %d, want %d", r.Version, codec.Version)
	}
	if r.DescriptorOffset != codec.DescriptorOffset {
		return codec.Errorf(codec.KindInvalidState,
			"validate: descriptor offset 0x%x, want 0x%x", r.DescriptorOffset, codec.DescriptorOffset)
	}

	numBanks := int(r.NumBanks)
	if numBanks > codec.MaxBanks {
		return codec.Errorf(codec.KindInvalidState, "validate: %d banks, at most %d supported", numBanks, codec.MaxBanks)
	}
	if int(r.ActiveIndex) >= numBanks || int(r.PreviousActiveIndex) >= numBanks {
		return codec.Errorf(codec.KindInvalidState,
			"validate: active index %d or previous active index %d not below bank count %d",
			r.ActiveIndex, r.PreviousActiveIndex, numBanks)
	}

	if r.BankInfoEntrySize != codec.BankInfoSize {
		return codec.Errorf(codec.KindLengthMismatch,
			"validate: bank info entry size %d, want %d", r.BankInfoEntrySize, codec.BankInfoSize)
	}
	if want := codec.ImageEntrySize(numBanks); int(r.ImageEntrySize) != want {
		return codec.Errorf(codec.KindLengthMismatch,
			"validate: image entry size %d, want %d", r.ImageEntrySize, want)
	}
	if want := codec.MetadataSize(len(r.Images), numBanks); int(r.MetadataSize) != want {
		return codec.Errorf(codec.KindLengthMismatch,
			"validate: metadata size %d, want %d", r.MetadataSize, want)
	}

	for i, img := range r.Images {
		if len(img.Banks) != numBanks {
			return codec.Errorf(codec.KindInvalidState, "validate: image %d has %d banks, want %d", i, len(img.Banks), numBanks)
		}
	}

	for b := 0; b < numBanks; b++ {
		state := r.BankState[b]
		if state != codec.BankStateValid && state != codec.BankStateAccepted {
			return codec.Errorf(codec.KindInvalidState, "validate: bank %d state is 0x%02x", b, state)
		}
		if state != codec.BankStateAccepted {
			continue
		}
		for i, img := range r.Images {
			if !img.Banks[b].IsAccepted() {
				return codec.Errorf(codec.KindInvalidState,
					"validate: bank %d is accepted but image %d (%s) is not", b, i, img.TypeID)
			}
		}
	}
	for b := numBanks; b < codec.BankStateSlots; b++ {
		if r.BankState[b] != codec.BankStateInvalid {
			return codec.Errorf(codec.KindInvalidState,
				"validate: unused bank %d state is 0x%02x, want 0x%02x", b, r.BankState[b], codec.BankStateInvalid)
		}
	}

	md, err := r.Metadata()
	if err != nil {
		return err
	}
	return md.VerifyChecksum()
}

// ValidateBytes decodes data and validates the result.
func ValidateBytes(data []byte) (*Record, error) {
	r, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if err := r.Validate(); err != nil {
		return r, err
	}
	return r, nil
}
