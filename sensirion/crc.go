// Package sensirion implements the word framing shared by Sensirion I2C sensors (SHTC3, SCD4x):
// 16-bit big-endian command words, and data words each followed by a CRC-8 checksum byte.
package sensirion

import "github.com/sigurn/crc8"

// CRC-8, polynomial 0x31 (x8 + x5 + x4 + 1), init 0xFF, no reflection, no final XOR.
var checksumTable = crc8.MakeTable(crc8.Params{
	Poly:   0x31,
	Init:   0xFF,
	RefIn:  false,
	RefOut: false,
	XorOut: 0x00,
	Check:  0xF7,
	Name:   "CRC-8/NRSC-5",
})

// Checksum calculates the checksum of data. On the wire it always covers exactly one
// 2-byte word.
func Checksum(data []byte) byte {
	return crc8.Checksum(data, checksumTable)
}

// CheckChecksum reports whether expected is the checksum of data.
func CheckChecksum(data []byte, expected byte) bool {
	return Checksum(data) == expected
}
