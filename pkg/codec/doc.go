// Package codec encodes and decodes firmware update (FWU) metadata, format
// version 2.
//
// The metadata record tells boot firmware which bank of firmware images is
// active and tells update agents which images live in each bank and whether
// each copy has been accepted. An incorrect record can leave a device
// unbootable, so every layer checks its exact length and its reserved
// fields.
//
// # Record Format
//
// All integers are little-endian. GUIDs use the mixed-endian GUID wire
// layout (first three fields little-endian).
//
//	Metadata (32 byte header + descriptor):
//	  [CRC32(4)][Version(4)][ActiveIndex(4)][PreviousActiveIndex(4)]
//	  [MetadataSize(4)][DescriptorOffset(2)][Reserved(2)][BankState(4)][Reserved(4)]
//	  StoreDescriptor
//
//	StoreDescriptor (8 byte header + entries):
//	  [NumBanks(1)][Reserved(1)][NumImages(2)][ImageEntrySize(2)][BankInfoEntrySize(2)]
//	  ImageEntry x NumImages
//
//	ImageEntry (32 + 24*NumBanks bytes):
//	  [ImageTypeGUID(16)][LocationGUID(16)] BankInfo x NumBanks
//
//	BankInfo (24 bytes):
//	  [ImageGUID(16)][Accepted(4)][Reserved(4)]
//
// # CRC32 Calculation
//
// The CRC-32 (IEEE polynomial, as computed by zlib) covers every byte of
// the record after the crc32 field itself. Encode serializes the record
// once with a zero checksum, computes the CRC over bytes [4:], and stores
// it in the first four bytes.
//
// Decoding does not verify the checksum unless asked to with
// WithChecksumVerification or Metadata.VerifyChecksum.
//
// # Usage
//
//	entry := codec.EncodeImageEntry(typeID, locID,
//	    append(codec.EncodeBankInfo(typeID, codec.ImageAccepted),
//	        codec.EncodeBankInfo(typeID, codec.ImageAccepted)...))
//	desc, err := codec.NewStoreDescriptor(2, 1, entry)
//	if err != nil {
//	    return err
//	}
//	encoded, err := codec.NewMetadata(desc.Encode()).Encode(2)
//	if err != nil {
//	    return err
//	}
//
//	md, err := codec.DecodeMetadata(encoded, 1, 2, codec.WithChecksumVerification())
//
// # Error Handling
//
// Every failure is a *Error carrying a stable Kind. Match with errors.Is
// against the Err* sentinels or with IsKind.
//
// # Thread Safety
//
// The package holds no global mutable state. Independent encode and decode
// calls may run in parallel; a single *Metadata must not be mutated
// concurrently.
package codec
