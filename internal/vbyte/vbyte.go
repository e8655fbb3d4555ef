// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

// Package vbyte implements wide byte-comparison and byte-search kernels used
// on the hot paths of tape navigation and equality checking. The kernels
// operate on register-width lanes so that scanning long runs of string data
// costs close to a single pass over memory with no per-byte branch.
package vbyte

import "encoding/binary"

const (
	lsb = 0x0101010101010101 // low bit of each lane
	msb = 0x8080808080808080 // high bit of each lane
)

// hasZero reports a nonzero value when any byte lane of v is zero.
func hasZero(v uint64) uint64 { return (v - lsb) &^ v & msb }

// Equal reports whether a and b have the same length and contents.
// Comparison proceeds stride bytes at a time with a scalar tail.
func Equal(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	i, n := 0, len(a)
	for n-i >= stride {
		var acc uint64
		for k := 0; k < stride; k += 8 {
			acc |= binary.LittleEndian.Uint64(a[i+k:]) ^ binary.LittleEndian.Uint64(b[i+k:])
		}
		if acc != 0 {
			return false
		}
		i += stride
	}
	for n-i >= 8 {
		if binary.LittleEndian.Uint64(a[i:]) != binary.LittleEndian.Uint64(b[i:]) {
			return false
		}
		i += 8
	}
	for ; i < n; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// IndexQuoteOrBackslash returns the index of the first '"' or '\\' byte in b,
// or -1 if neither occurs. Lanes that contain neither byte are skipped in
// bulk; only a lane with a candidate falls back to per-byte handling.
func IndexQuoteOrBackslash(b []byte) int {
	i, n := 0, len(b)
	for n-i >= 8 {
		v := binary.LittleEndian.Uint64(b[i:])
		m := hasZero(v^(lsb*'"')) | hasZero(v^(lsb*'\\'))
		if m != 0 {
			for j := i; ; j++ {
				if b[j] == '"' || b[j] == '\\' {
					return j
				}
			}
		}
		i += 8
	}
	for ; i < n; i++ {
		if b[i] == '"' || b[i] == '\\' {
			return i
		}
	}
	return -1
}

// Fingerprint returns a cheap 64-bit summary of b: the byte length in the
// high half and up to the first four bytes, zero padded, in the low half.
// Equal slices always share a fingerprint; unequal slices rarely do unless
// they agree on length and leading bytes.
func Fingerprint(b []byte) uint64 {
	fp := uint64(len(b)) << 32
	for i := 0; i < 4 && i < len(b); i++ {
		fp |= uint64(b[i]) << (8 * i)
	}
	return fp
}
