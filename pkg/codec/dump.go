package codec

import (
	"fmt"
	"io"
)

// Dump writes a human-readable rendering of every field of the record,
// decoding the descriptor, its image entries and their bank infos.
func (m *Metadata) Dump(w io.Writer) error {
	fmt.Fprintln(w, "FWU METADATA HEADER:")
	fmt.Fprintf(w, "\tcrc32: 0x%08x\n", m.Crc32)
	fmt.Fprintf(w, "\tversion: 0x%x\n", m.Version)
	fmt.Fprintf(w, "\tactive_index: %d\n", m.ActiveIndex)
	fmt.Fprintf(w, "\tprevious_active_index: %d\n", m.PreviousActiveIndex)
	fmt.Fprintf(w, "\tmetadata_size: %d\n", m.MetadataSize)
	fmt.Fprintf(w, "\tdescriptor_offset: %d\n", m.DescriptorOffset)
	fmt.Fprintf(w, "\treserved: 0x%04x\n", 0)
	for i, s := range m.BankState {
		fmt.Fprintf(w, "\tbank_state[%d]: 0x%02x\n", i, s)
	}
	fmt.Fprintf(w, "\treserved: 0x%08x\n", 0)

	desc, err := m.Descriptor()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "FIRMWARE STORE DESCRIPTION:")
	return desc.Dump(w)
}

// Dump writes the descriptor header and every image entry.
func (d *StoreDescriptor) Dump(w io.Writer) error {
	fmt.Fprintf(w, "\tnum_banks: %d\n", d.NumBanks)
	fmt.Fprintf(w, "\treserved: 0x%02x\n", 0)
	fmt.Fprintf(w, "\tnum_images: %d\n", d.NumImages)
	fmt.Fprintf(w, "\timg_entry_size: %d\n", d.ImageEntrySize)
	fmt.Fprintf(w, "\tbank_info_entry_size: %d\n", d.BankInfoEntrySize)
	fmt.Fprintln(w, "\tIMAGE_ENTRIES:")

	for i := 0; i < int(d.NumImages); i++ {
		e, err := d.Entry(i)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "\tIMAGE[%d]:\n", i)
		if err := e.Dump(w); err != nil {
			return err
		}
	}
	return nil
}

// Dump writes the entry identities and each bank info.
func (e *ImageEntry) Dump(w io.Writer) error {
	fmt.Fprintf(w, "\t\timg_type_guid: %s\n", e.ImageTypeID)
	fmt.Fprintf(w, "\t\tlocation_guid: %s\n", e.LocationID)
	for i := 0; i < e.numBanks; i++ {
		b, err := e.Bank(i)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "\t\tBank[%d]:\n", i)
		fmt.Fprintf(w, "\t\t\timg_guid: %s\n", b.ImageID)
		fmt.Fprintf(w, "\t\t\taccept: %d\n", b.Accepted)
		fmt.Fprintf(w, "\t\t\treserved_4: 0x%08x\n", 0)
	}
	return nil
}
