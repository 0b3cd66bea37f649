// Package fwu builds firmware update metadata records and applies the
// update agent's operations to them: accepting images, recomputing bank
// states, switching the active bank and rolling back.
//
// A Record is the fully decoded form of a codec.Metadata. An Agent keeps a
// primary and a backup copy of the record in a SlotStore and repairs one
// from the other when it fails validation.
package fwu
