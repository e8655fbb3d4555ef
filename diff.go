// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package jtape

import (
	"math"
	"strconv"

	"github.com/creachadair/jtape/internal/vbyte"
)

// A DiffKind classifies one structural divergence between two tapes.
type DiffKind int

const (
	DiffChanged     DiffKind = iota // same path, different scalar value
	DiffAdded                       // path present only in the second tape
	DiffRemoved                     // path present only in the first tape
	DiffTypeChanged                 // incompatible value types at the same path
)

var diffKindStr = [...]string{"changed", "added", "removed", "type_changed"}

func (k DiffKind) String() string {
	if k < 0 || int(k) >= len(diffKindStr) {
		return "invalid"
	}
	return diffKindStr[k]
}

// A DiffEntry reports one divergence found by Diff, located by a path of the
// form "$" followed by ".key" for object members and "[index]" for array
// elements.
type DiffEntry struct {
	Path string
	Kind DiffKind
}

// Diff reports the structural divergences between the root values of ta and
// tb, one entry per path at which the documents disagree. Matching subtrees
// produce no entries, and the children of a divergent subtree are not
// descended further once the divergence is reported.
//
// Array elements always pair positionally. Object members pair by key when
// ordered is false, and positionally when ordered is true. Number values
// compare as 64-bit floats with NaN equal to NaN, matching Equal.
func Diff(ta, tb *Tape, ordered bool) []DiffEntry {
	d := differ{a: ta.Tokens(), b: tb.Tokens(), ordered: ordered}
	ia, ib := 0, 0
	if d.a[ia].Tag == RootOpen {
		ia++
	}
	if d.b[ib].Tag == RootOpen {
		ib++
	}
	d.value(ia, ib, "$")
	return d.out
}

type differ struct {
	a, b    []Token
	ordered bool
	out     []DiffEntry
}

func (d *differ) emit(path string, kind DiffKind) {
	d.out = append(d.out, DiffEntry{Path: path, Kind: kind})
}

func (d *differ) value(ia, ib int, path string) {
	ka, kb := d.a[ia], d.b[ib]
	ca, cb := typeClass(ka.Tag), typeClass(kb.Tag)
	if ca != cb {
		d.emit(path, DiffTypeChanged)
		return
	}
	switch ca {
	case classNull:
		// always equal
	case classBool:
		if ka.Tag != kb.Tag {
			d.emit(path, DiffChanged)
		}
	case classNumber:
		if ka.Num != kb.Num && !(math.IsNaN(ka.Num) && math.IsNaN(kb.Num)) {
			d.emit(path, DiffChanged)
		}
	case classString:
		if !vbyte.Equal(ka.Str, kb.Str) {
			d.emit(path, DiffChanged)
		}
	case classArray:
		d.array(ia, ib, path)
	case classObject:
		d.object(ia, ib, path)
	}
}

func (d *differ) array(ia, ib int, path string) {
	na, nb := d.a[ia].N, d.b[ib].N
	ca, cb := ia+1, ib+1
	for i := 0; i < min(na, nb); i++ {
		d.value(ca, cb, path+"["+strconv.Itoa(i)+"]")
		ca, cb = next(d.a, ca), next(d.b, cb)
	}
	for i := nb; i < na; i++ {
		d.emit(path+"["+strconv.Itoa(i)+"]", DiffRemoved)
		ca = next(d.a, ca)
	}
	for i := na; i < nb; i++ {
		d.emit(path+"["+strconv.Itoa(i)+"]", DiffAdded)
		cb = next(d.b, cb)
	}
}

func (d *differ) object(ia, ib int, path string) {
	if d.ordered {
		d.objectInOrder(ia, ib, path)
		return
	}

	// Pair members by key. Keys of b are indexed by value token position;
	// entries of a consume their matches, and whatever remains is reported
	// added in b's member order.
	nb := d.b[ib].N
	bval := make(map[string]int, nb)
	for kb, i := ib+1, 0; i < nb; i++ {
		bval[string(d.b[kb].Str)] = kb + 1
		kb = next(d.b, kb+1)
	}
	na := d.a[ia].N
	for ka, i := ia+1, 0; i < na; i++ {
		key := string(d.a[ka].Str)
		if vi, ok := bval[key]; ok {
			d.value(ka+1, vi, path+"."+key)
			delete(bval, key)
		} else {
			d.emit(path+"."+key, DiffRemoved)
		}
		ka = next(d.a, ka+1)
	}
	for kb, i := ib+1, 0; i < nb; i++ {
		key := string(d.b[kb].Str)
		if _, ok := bval[key]; ok {
			d.emit(path+"."+key, DiffAdded)
			delete(bval, key)
		}
		kb = next(d.b, kb+1)
	}
}

// objectInOrder pairs members positionally. A key mismatch at a shared
// position reports the first tape's member removed and the second's added.
func (d *differ) objectInOrder(ia, ib int, path string) {
	na, nb := d.a[ia].N, d.b[ib].N
	ka, kb := ia+1, ib+1
	for i := 0; i < min(na, nb); i++ {
		keyA, keyB := d.a[ka].Str, d.b[kb].Str
		if vbyte.Equal(keyA, keyB) {
			d.value(ka+1, kb+1, path+"."+string(keyA))
		} else {
			d.emit(path+"."+string(keyA), DiffRemoved)
			d.emit(path+"."+string(keyB), DiffAdded)
		}
		ka, kb = next(d.a, ka+1), next(d.b, kb+1)
	}
	for i := nb; i < na; i++ {
		d.emit(path+"."+string(d.a[ka].Str), DiffRemoved)
		ka = next(d.a, ka+1)
	}
	for i := na; i < nb; i++ {
		d.emit(path+"."+string(d.b[kb].Str), DiffAdded)
		kb = next(d.b, kb+1)
	}
}

type class int

const (
	classNull class = iota
	classBool
	classNumber
	classString
	classArray
	classObject
)

func typeClass(t Tag) class {
	switch t {
	case True, False:
		return classBool
	case Uint, Int, Double:
		return classNumber
	case String:
		return classString
	case ArrayOpen:
		return classArray
	case ObjectOpen:
		return classObject
	}
	return classNull
}
