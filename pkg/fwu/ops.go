package fwu

import (
	"github.com/google/uuid"

	"github.com/ssargent/fwumeta/pkg/codec"
)

// AcceptRequest selects how SetAccept changes an image copy.
type AcceptRequest int

const (
	// Unaccept clears the accepted flag.
	Unaccept AcceptRequest = iota
	// Accept sets the accepted flag.
	Accept
	// WriteUnaccept clears the flag and marks the whole bank invalid, as
	// done before new firmware is written over it.
	WriteUnaccept
)

func (a AcceptRequest) String() string {
	switch a {
	case Unaccept:
		return "unaccept"
	case Accept:
		return "accept"
	case WriteUnaccept:
		return "write-unaccept"
	}
	return "unknown"
}

func (r *Record) checkBank(bank int) error {
	if bank < 0 || bank >= int(r.NumBanks) {
		return codec.Errorf(codec.KindInvalidArgument, "bank %d out of range [0,%d)", bank, r.NumBanks)
	}
	for i, img := range r.Images {
		if len(img.Banks) != int(r.NumBanks) {
			return codec.Errorf(codec.KindInvalidState, "image %d has %d banks, want %d", i, len(img.Banks), r.NumBanks)
		}
	}
	return nil
}

func (r *Record) image(typeID uuid.UUID) (*Image, error) {
	for i := range r.Images {
		if r.Images[i].TypeID == typeID {
			return &r.Images[i], nil
		}
	}
	return nil, codec.Errorf(codec.KindNotFound, "image type %s not found", typeID)
}

// ImageTypeIDs lists the image types in descriptor order.
func (r *Record) ImageTypeIDs() []uuid.UUID {
	out := make([]uuid.UUID, len(r.Images))
	for i, img := range r.Images {
		out[i] = img.TypeID
	}
	return out
}

// LocationID returns the location of an image type.
func (r *Record) LocationID(typeID uuid.UUID) (uuid.UUID, error) {
	img, err := r.image(typeID)
	if err != nil {
		return uuid.Nil, err
	}
	return img.LocationID, nil
}

// ImageID returns the image id stored for typeID in bank.
func (r *Record) ImageID(typeID uuid.UUID, bank int) (uuid.UUID, error) {
	if err := r.checkBank(bank); err != nil {
		return uuid.Nil, err
	}
	img, err := r.image(typeID)
	if err != nil {
		return uuid.Nil, err
	}
	return img.Banks[bank].ImageID, nil
}

// Accepted reports whether the copy of typeID in bank is accepted.
func (r *Record) Accepted(typeID uuid.UUID, bank int) (bool, error) {
	if err := r.checkBank(bank); err != nil {
		return false, err
	}
	img, err := r.image(typeID)
	if err != nil {
		return false, err
	}
	return img.Banks[bank].IsAccepted(), nil
}

// SetAccept changes the accepted flag of typeID in bank.
func (r *Record) SetAccept(typeID uuid.UUID, bank int, req AcceptRequest) error {
	if req < Unaccept || req > WriteUnaccept {
		return codec.Errorf(codec.KindInvalidArgument, "unknown accept request %d", int(req))
	}
	if err := r.checkBank(bank); err != nil {
		return err
	}
	img, err := r.image(typeID)
	if err != nil {
		return err
	}

	if req == Accept {
		img.Banks[bank].Accepted = codec.ImageAccepted
		return nil
	}
	img.Banks[bank].Accepted = codec.ImageUnaccepted
	if req == WriteUnaccept {
		r.BankState[bank] = codec.BankStateInvalid
	}
	return nil
}

// SetImageID records a new image id for typeID in bank.
func (r *Record) SetImageID(typeID uuid.UUID, bank int, imageID uuid.UUID) error {
	if err := r.checkBank(bank); err != nil {
		return err
	}
	img, err := r.image(typeID)
	if err != nil {
		return err
	}
	img.Banks[bank].ImageID = imageID
	return nil
}

// UpdateBankState recomputes the state of bank from its images: ACCEPTED
// when every image is accepted, VALID otherwise.
func (r *Record) UpdateBankState(bank int) error {
	if err := r.checkBank(bank); err != nil {
		return err
	}
	state := codec.BankStateAccepted
	for _, img := range r.Images {
		if !img.Banks[bank].IsAccepted() {
			state = codec.BankStateValid
			break
		}
	}
	r.BankState[bank] = state
	return nil
}

// Rollback copies every image's bank info and the bank state from backup to
// target. The backup bank must be ACCEPTED.
func (r *Record) Rollback(backup, target int) error {
	if err := r.checkBank(backup); err != nil {
		return err
	}
	if err := r.checkBank(target); err != nil {
		return err
	}
	if r.BankState[backup] != codec.BankStateAccepted {
		return codec.Errorf(codec.KindInvalidState,
			"rollback: backup bank %d state is 0x%02x, not accepted", backup, r.BankState[backup])
	}

	for i := range r.Images {
		r.Images[i].Banks[target] = r.Images[i].Banks[backup]
	}
	r.BankState[target] = r.BankState[backup]
	return nil
}

// TrialRun reports whether the active bank has booted but not yet been
// accepted.
func (r *Record) TrialRun() (bool, error) {
	if int(r.ActiveIndex) >= codec.BankStateSlots {
		return false, codec.Errorf(codec.KindInvalidState, "active index %d out of range", r.ActiveIndex)
	}
	return r.BankState[r.ActiveIndex] == codec.BankStateValid, nil
}

// SetActiveIndex makes bank active, remembering the current active bank as
// the previous one.
func (r *Record) SetActiveIndex(bank int) error {
	if err := r.checkBank(bank); err != nil {
		return err
	}
	r.PreviousActiveIndex = r.ActiveIndex
	r.ActiveIndex = uint32(bank)
	return nil
}

// SetPreviousActiveIndex sets the bank to fall back to.
func (r *Record) SetPreviousActiveIndex(bank int) error {
	if err := r.checkBank(bank); err != nil {
		return err
	}
	r.PreviousActiveIndex = uint32(bank)
	return nil
}

// UpdateIndex is the bank the next update should be written to.
func (r *Record) UpdateIndex() int {
	if r.NumBanks == 0 {
		return 0
	}
	return int((r.ActiveIndex + 1) % uint32(r.NumBanks))
}
