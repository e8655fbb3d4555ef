// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package vbyte

import "golang.org/x/sys/cpu"

// stride is the number of bytes compared per iteration of the wide loop in
// Equal. Cores with wider vector units profit from a larger unroll factor;
// the compiler keeps the whole stride in registers either way.
var stride = 16

func init() {
	switch {
	case cpu.X86.HasAVX512BW:
		stride = 64
	case cpu.X86.HasAVX2, cpu.ARM64.HasASIMD:
		stride = 32
	}
}
