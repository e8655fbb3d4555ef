// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package jtape

import (
	"math"
	"slices"

	"github.com/creachadair/jtape/internal/vbyte"
)

// Equal reports whether the value at index ia of ta is structurally equal to
// the value at index ib of tb. Both tapes are walked in lock step; no values
// are materialized and no string content is copied or decoded.
//
// Numbers compare by value across representations, so an integer and a
// double holding the same value are equal. NaN compares equal to NaN, a
// deliberate deviation from IEEE-754 that keeps comparison well-defined over
// values containing NaN sentinels. Arrays always compare positionally. When
// ordered is false (the usual mode) objects compare as unordered key-value
// sets; when ordered is true their members must also agree in source order.
func Equal(ta *Tape, ia int, tb *Tape, ib int, ordered bool) bool {
	if ta.TagAt(ia) == RootOpen {
		ia++
	}
	if tb.TagAt(ib) == RootOpen {
		ib++
	}
	e := eq{ta: ta, tb: tb, ordered: ordered}
	return e.values(ia, ib)
}

type eq struct {
	ta, tb  *Tape
	ordered bool
}

func (e eq) values(ia, ib int) bool {
	tagA, tagB := e.ta.TagAt(ia), e.tb.TagAt(ib)
	if isNumber(tagA) && isNumber(tagB) {
		if tagA == tagB && e.ta.words[ia+1] == e.tb.words[ib+1] {
			return true // bit-identical representation
		}
		fa, _ := e.ta.NumberAt(ia)
		fb, _ := e.tb.NumberAt(ib)
		return fa == fb || math.IsNaN(fa) && math.IsNaN(fb)
	}
	if tagA != tagB {
		return false
	}
	switch tagA {
	case Null, True, False:
		return true
	case String:
		return vbyte.Equal(e.ta.StringBytesAt(ia), e.tb.StringBytesAt(ib))
	case ArrayOpen:
		return e.array(ia, ib)
	case ObjectOpen:
		return e.object(ia, ib)
	}
	return false
}

func isNumber(t Tag) bool { return t == Uint || t == Int || t == Double }

func (e eq) array(ia, ib int) bool {
	na, _ := e.ta.ChildCount(ia)
	nb, _ := e.tb.ChildCount(ib)
	if na != nb {
		return false
	}
	ca, cb := ia+1, ib+1
	for n := 0; n < na; n++ {
		if !e.values(ca, cb) {
			return false
		}
		ca, cb = e.ta.Skip(ca), e.tb.Skip(cb)
	}
	return true
}

func (e eq) object(ia, ib int) bool {
	na, _ := e.ta.ChildCount(ia)
	nb, _ := e.tb.ChildCount(ib)
	if na != nb {
		return false
	}

	// Optimistic positional walk: when both sides share key order, members
	// pair up directly and no table is needed. Under ordered comparison this
	// walk is the whole algorithm.
	ka, kb := ia+1, ib+1
	for n := 0; n < na; n++ {
		if !vbyte.Equal(e.ta.StringBytesAt(ka), e.tb.StringBytesAt(kb)) {
			if e.ordered {
				return false
			}
			return e.objectByKey(ia, ib, na)
		}
		if !e.values(ka+1, kb+1) {
			if e.ordered {
				return false
			}
			// Key order matched but the values differ; a permuted match
			// could still pair this key differently only if keys repeat,
			// which the table handles.
			return e.objectByKey(ia, ib, na)
		}
		ka, kb = e.ta.Skip(ka+1), e.tb.Skip(kb+1)
	}
	return true
}

// objectByKey matches members of two same-arity objects irrespective of
// order. Keys of b are summarized by a sorted fingerprint table; each key of
// a is binary-searched into the table, with collisions resolved by a full
// byte compare before the paired values are compared. This bounds unordered
// comparison to O(n log n).
func (e eq) objectByKey(ia, ib, n int) bool {
	type entry struct {
		fp   uint64
		key  int
		used bool
	}
	tab := make([]entry, 0, n)
	for kb := ib + 1; len(tab) < n; kb = e.tb.Skip(kb + 1) {
		tab = append(tab, entry{fp: vbyte.Fingerprint(e.tb.StringBytesAt(kb)), key: kb})
	}
	slices.SortFunc(tab, func(x, y entry) int {
		switch {
		case x.fp < y.fp:
			return -1
		case x.fp > y.fp:
			return 1
		}
		return 0
	})

	ka := ia + 1
	for i := 0; i < n; i++ {
		key := e.ta.StringBytesAt(ka)
		fp := vbyte.Fingerprint(key)
		j, _ := slices.BinarySearchFunc(tab, fp, func(x entry, t uint64) int {
			switch {
			case x.fp < t:
				return -1
			case x.fp > t:
				return 1
			}
			return 0
		})
		found := false
		for ; j < len(tab) && tab[j].fp == fp; j++ {
			if tab[j].used || !vbyte.Equal(key, e.tb.StringBytesAt(tab[j].key)) {
				continue
			}
			if e.values(ka+1, tab[j].key+1) {
				tab[j].used = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
		ka = e.ta.Skip(ka + 1)
	}
	return true
}
