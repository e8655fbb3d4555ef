// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package jtape

import (
	"math"

	"github.com/creachadair/jtape/internal/vbyte"
)

// A Tag identifies the type of a single tape word.
type Tag byte

// Constants defining the valid Tag values.
const (
	Invalid     Tag = iota // invalid word
	Null                   // constant: null
	True                   // constant: true
	False                  // constant: false
	Uint                   // unsigned integer; second word holds the value
	Int                    // signed integer; second word holds the value
	Double                 // floating-point number; second word holds the IEEE-754 bits
	String                 // string; payload is a source reference
	ObjectOpen             // object open; payload is skip target and child count
	ObjectClose            // object close
	ArrayOpen              // array open; payload is skip target and child count
	ArrayClose             // array close
	RootOpen               // synthetic root open, always at index 0
	RootClose              // synthetic root close, always the final word
)

var tagStr = [...]string{
	Invalid: "invalid", Null: "null", True: "true", False: "false",
	Uint: "uint", Int: "int", Double: "double", String: "string",
	ObjectOpen: "object open", ObjectClose: "object close",
	ArrayOpen: "array open", ArrayClose: "array close",
	RootOpen: "root open", RootClose: "root close",
}

func (t Tag) String() string {
	if int(t) >= len(tagStr) {
		return tagStr[Invalid]
	}
	return tagStr[t]
}

// Word layout. The low byte of every word is its Tag. The remaining 56 bits
// carry tag-specific payload:
//
//	String:      bits 8..39 source offset, bits 40..62 byte length,
//	             bit 63 set when the text contains escape sequences.
//	Open words:  bits 8..39 skip target (the index one past the matching
//	             close word), bits 40..63 immediate child count, saturating.
//	Uint, Int, Double: no payload; the following word is the raw value.
//
// The packing imposes hard ceilings: source text is limited to 4 GiB, a
// single string to just under 8 MiB, and a tape to 2^32 words. Exceeding a
// ceiling is reported as an exceeded-capacity error by Build.
const (
	maxSourceLen = 1<<32 - 1
	maxStringLen = 1<<23 - 1
	maxTapeWords = 1<<32 - 1
	maxChildren  = 1<<24 - 1 // counts saturate here; see ChildCount
)

func packString(offset, length int, escaped bool) uint64 {
	w := uint64(String) | uint64(offset)<<8 | uint64(length)<<40
	if escaped {
		w |= 1 << 63
	}
	return w
}

func packOpen(tag Tag, target, count int) uint64 {
	if count > maxChildren {
		count = maxChildren
	}
	return uint64(tag) | uint64(target)<<8 | uint64(count)<<40
}

// A Tape is a flat, index-addressed binary encoding of a parsed JSON
// document. Word 0 is a synthetic root-open word and the final word is a
// synthetic root-close word; the root value begins at index 1. A tape is
// immutable once built. Tapes housed in a Pool slot are invalidated the
// moment that slot is released; see Pool.
type Tape struct {
	words  []uint64
	src    []byte // source text, padded; only the first srcLen bytes are meaningful
	srcLen int
}

// Len returns the number of words on the tape, including the synthetic root
// words.
func (t *Tape) Len() int { return len(t.words) }

// Source returns the source text the tape was built from, without padding.
// The returned slice is owned by the tape and must not be modified.
func (t *Tape) Source() []byte { return t.src[:t.srcLen] }

// TagAt returns the tag of the word at index i, or Invalid if i is out of
// range.
func (t *Tape) TagAt(i int) Tag {
	if i < 0 || i >= len(t.words) {
		return Invalid
	}
	return Tag(t.words[i] & 0xFF)
}

// NumberAt returns the numeric value at index i converted to float64,
// regardless of its stored representation. It reports false if the word at i
// is not a number.
func (t *Tape) NumberAt(i int) (float64, bool) {
	switch t.TagAt(i) {
	case Uint:
		return float64(t.words[i+1]), true
	case Int:
		return float64(int64(t.words[i+1])), true
	case Double:
		return math.Float64frombits(t.words[i+1]), true
	}
	return 0, false
}

// Int64At returns the integer value at index i. It reports false if the word
// at i is not an integer, or is an unsigned value out of int64 range.
func (t *Tape) Int64At(i int) (int64, bool) {
	switch t.TagAt(i) {
	case Uint:
		if t.words[i+1] > math.MaxInt64 {
			return 0, false
		}
		return int64(t.words[i+1]), true
	case Int:
		return int64(t.words[i+1]), true
	}
	return 0, false
}

// A StringRef locates the undecoded text of a string value within its tape's
// source buffer, excluding the enclosing quotation marks. Escaped reports
// whether the text contains backslash escapes that must be decoded before
// use; when it is false the raw bytes are the string's contents.
type StringRef struct {
	Offset  int
	Length  int
	Escaped bool
}

// StringRefAt returns the source reference for the string at index i.
// It reports false if the word at i is not a string.
func (t *Tape) StringRefAt(i int) (StringRef, bool) {
	if t.TagAt(i) != String {
		return StringRef{}, false
	}
	w := t.words[i]
	return StringRef{
		Offset:  int(w >> 8 & maxSourceLen),
		Length:  int(w >> 40 & maxStringLen),
		Escaped: w>>63 != 0,
	}, true
}

// StringBytesAt returns a view of the raw, undecoded bytes of the string at
// index i, without quotation marks. It returns nil if the word at i is not a
// string. The engine never copies string contents; the view aliases the
// tape's source buffer.
func (t *Tape) StringBytesAt(i int) []byte {
	ref, ok := t.StringRefAt(i)
	if !ok {
		return nil
	}
	return t.src[ref.Offset : ref.Offset+ref.Length]
}

// ChildCount returns the number of immediate children of the container at
// index i: members for an object, elements for an array. It reports false if
// the word at i is not a container open word. Counts larger than can be
// stored in the open word are counted by walking the children.
func (t *Tape) ChildCount(i int) (int, bool) {
	switch t.TagAt(i) {
	case ObjectOpen, ArrayOpen, RootOpen:
	default:
		return 0, false
	}
	n := int(t.words[i] >> 40 & maxChildren)
	if n < maxChildren {
		return n, true
	}
	// Saturated: count the hard way.
	n = 0
	for c := i + 1; c < t.skipTarget(i)-1; c = t.Skip(c) {
		n++
	}
	if t.TagAt(i) == ObjectOpen {
		n /= 2
	}
	return n, true
}

// skipTarget returns the stored skip target of the open word at i: the index
// one past the matching close word.
func (t *Tape) skipTarget(i int) int { return int(t.words[i] >> 8 & maxSourceLen) }

// CloseIndex returns the index of the close word matching the container open
// word at index i. It reports false if the word at i is not a container open
// word.
func (t *Tape) CloseIndex(i int) (int, bool) {
	switch t.TagAt(i) {
	case ObjectOpen, ArrayOpen, RootOpen:
		return t.skipTarget(i) - 1, true
	}
	return 0, false
}

// Skip returns the index of the first word after the complete value starting
// at index i. Containers jump via their stored skip target, numbers advance
// by two words, and every other word advances by one. Skip never walks the
// interior of a container and so runs in constant time.
func (t *Tape) Skip(i int) int {
	switch t.TagAt(i) {
	case ObjectOpen, ArrayOpen, RootOpen:
		return t.skipTarget(i)
	case Uint, Int, Double:
		return i + 2
	}
	return i + 1
}

// FindField returns the tape index of the value of the member of the object
// at index obj whose key's raw source bytes equal key. By construction a
// member's value immediately follows its key, so the result is the index
// just past the matching key word. It reports false if obj is not an object
// or no member matches. Keys are compared byte for byte without unescaping.
func (t *Tape) FindField(obj int, key []byte) (int, bool) {
	if t.TagAt(obj) != ObjectOpen {
		return 0, false
	}
	end := t.skipTarget(obj) - 1
	for ki := obj + 1; ki < end; {
		vi := ki + 1 // keys are strings, always one word
		if vbyte.Equal(t.StringBytesAt(ki), key) {
			return vi, true
		}
		ki = t.Skip(vi)
	}
	return 0, false
}

// MaxChildren is the largest number of child indices a single Children call
// returns. Containers with greater fan-out are walked in multiple calls
// using the resumption cursor.
const MaxChildren = 4096

// Children appends to kids the tape indices of the immediate children of the
// container at index i, starting from the child index cursor (0 for the
// first call), and returns the extended slice together with the cursor for
// the next call. For objects the returned indices are the key words; each
// value follows its key. At most MaxChildren indices are produced per call;
// next is -1 once the container is exhausted.
func (t *Tape) Children(i int, kids []int, cursor int) (_ []int, next int) {
	switch t.TagAt(i) {
	case ObjectOpen, ArrayOpen, RootOpen:
	default:
		return kids, -1
	}
	isObj := t.TagAt(i) == ObjectOpen
	end := t.skipTarget(i) - 1
	c := cursor
	if c == 0 {
		c = i + 1
	}
	for n := 0; c < end; n++ {
		if n == MaxChildren {
			return kids, c
		}
		kids = append(kids, c)
		if isObj {
			c = t.Skip(c + 1) // skip key and value
		} else {
			c = t.Skip(c)
		}
	}
	return kids, -1
}
