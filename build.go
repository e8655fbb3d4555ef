// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package jtape

import (
	"math"
	"strconv"
)

const (
	// maxDepth is the nesting limit enforced by Build.
	maxDepth = 1024

	// padBlock is the fixed block width fixed-width scans assume. The source
	// copy is padded with spaces to a multiple of this size so no scan reads
	// past the logical end of input.
	padBlock = 64
)

// Build parses src as a single JSON value and returns its tape. The input is
// processed in one pass; string contents are referenced, never copied. In
// case of error the result is nil and the error has concrete type
// *ParseError.
func Build(src []byte) (*Tape, error) {
	t := new(Tape)
	if err := buildInto(t, src); err != nil {
		return nil, err
	}
	return t, nil
}

// buildInto builds the tape for src into t, reusing t's retained buffers.
func buildInto(t *Tape, src []byte) error {
	if len(src) > maxSourceLen {
		return parseErrorf(KindCapacity, 0, "source exceeds %d bytes", maxSourceLen)
	}
	padded := len(src) + padBlock - len(src)%padBlock
	if cap(t.src) < padded {
		t.src = make([]byte, 0, padded)
	}
	t.src = append(t.src[:0], src...)
	for len(t.src) < padded {
		t.src = append(t.src, ' ')
	}
	t.srcLen = len(src)
	t.words = t.words[:0]

	b := builder{t: t, src: t.src, n: len(src)}
	return b.run()
}

type openFrame struct {
	word     int // index of the open word, patched on close
	isObject bool
}

type builder struct {
	t     *Tape
	src   []byte // padded source
	n     int    // logical input length
	pos   int
	stack []openFrame
}

func (b *builder) emit(w uint64) int {
	b.t.words = append(b.t.words, w)
	return len(b.t.words) - 1
}

func (b *builder) fail(kind Kind, msg string, args ...any) error {
	return parseErrorf(kind, b.pos, msg, args...)
}

func (b *builder) skipSpace() {
	for b.pos < b.n && isSpace(b.src[b.pos]) {
		b.pos++
	}
}

// run drives the parse. Containers are handled iteratively with an explicit
// stack so input depth cannot overflow the goroutine stack; the depth limit
// exists to bound tape and stack growth, not recursion.
func (b *builder) run() error {
	b.emit(uint64(RootOpen)) // patched when the parse completes
	b.skipSpace()
	if b.pos >= b.n {
		return b.fail(KindUnknown, "empty input")
	}

	wantValue := true
	for {
		if wantValue {
			open, err := b.value()
			if err != nil {
				return err
			}
			if open {
				closed, err := b.containerStart()
				if err != nil {
					return err
				}
				if !closed {
					continue // parse the first member or element
				}
				// An empty container is a complete value; fall through.
			}
		}

		// A complete value just ended.
		if len(b.stack) == 0 {
			break
		}
		more, err := b.containerNext()
		if err != nil {
			return err
		}
		wantValue = more
	}

	b.skipSpace()
	if b.pos < b.n {
		return b.fail(KindTrailing, "")
	}
	if len(b.t.words) >= maxTapeWords {
		return b.fail(KindCapacity, "tape exceeds %d words", maxTapeWords)
	}
	ci := b.emit(uint64(RootClose))
	b.t.words[0] = packOpen(RootOpen, ci+1, 1)
	return nil
}

// value parses a single value at the cursor. It reports true if the value is
// a container whose body remains to be parsed.
func (b *builder) value() (open bool, err error) {
	b.skipSpace()
	if b.pos >= b.n {
		return false, b.unterminated()
	}
	switch c := b.src[b.pos]; {
	case c == '{' || c == '[':
		if len(b.stack) >= maxDepth {
			return false, b.fail(KindDepth, "nesting exceeds %d", maxDepth)
		}
		tag := ObjectOpen
		if c == '[' {
			tag = ArrayOpen
		}
		w := b.emit(uint64(tag))
		b.stack = append(b.stack, openFrame{word: w, isObject: c == '{'})
		b.pos++
		return true, nil
	case c == '"':
		return false, b.scanString()
	case c == '-' || isDigit(c):
		return false, b.scanNumber()
	case c == 't':
		return false, b.scanKeyword("true", True)
	case c == 'f':
		return false, b.scanKeyword("false", False)
	case c == 'n':
		return false, b.scanKeyword("null", Null)
	case c == '}' || c == ']':
		return false, b.fail(KindUnmatchedClose, "unexpected %q", c)
	default:
		return false, b.fail(KindUnknown, "unexpected %q", c)
	}
}

// containerStart handles the first token after an open bracket: either the
// matching close for an empty container, or the first member or element.
// It reports whether the container was closed.
func (b *builder) containerStart() (closed bool, err error) {
	b.skipSpace()
	top := &b.stack[len(b.stack)-1]
	if b.pos >= b.n {
		return false, b.unterminated()
	}
	if c := b.src[b.pos]; c == '}' && top.isObject || c == ']' && !top.isObject {
		b.pos++
		b.closeTop(0)
		return true, nil
	}
	if top.isObject {
		return false, b.memberKey()
	}
	return false, nil // next iteration parses the first element
}

// containerNext handles the token after a complete member or element:
// a separating comma or the container's close bracket. It reports whether a
// further value is expected.
func (b *builder) containerNext() (more bool, err error) {
	b.skipSpace()
	top := &b.stack[len(b.stack)-1]
	if b.pos >= b.n {
		return false, b.unterminated()
	}
	sep, wantClose := byte(']'), KindArraySep
	if top.isObject {
		sep, wantClose = '}', KindObjectSep
	}
	switch c := b.src[b.pos]; c {
	case sep:
		b.pos++
		b.closeTop(b.childCount())
		return false, nil
	case ',':
		b.pos++
		if top.isObject {
			if err := b.memberKey(); err != nil {
				return false, err
			}
		}
		return true, nil
	default:
		return false, b.fail(wantClose, "got %q", c)
	}
}

// childCount counts the immediate children between the top open word and the
// cursor by skipping siblings. The count is folded into the open word so
// arity checks are O(1) later.
func (b *builder) childCount() int {
	top := b.stack[len(b.stack)-1]
	n := 0
	for c := top.word + 1; c < len(b.t.words); n++ {
		c = b.t.Skip(c)
	}
	if top.isObject {
		n /= 2
	}
	return n
}

func (b *builder) closeTop(count int) {
	top := b.stack[len(b.stack)-1]
	b.stack = b.stack[:len(b.stack)-1]
	tag, open := ArrayClose, ArrayOpen
	if top.isObject {
		tag, open = ObjectClose, ObjectOpen
	}
	ci := b.emit(uint64(tag))
	b.t.words[top.word] = packOpen(open, ci+1, count)
}

// memberKey parses an object member's key string and its colon separator.
func (b *builder) memberKey() error {
	b.skipSpace()
	if b.pos >= b.n {
		return b.unterminated()
	}
	if b.src[b.pos] != '"' {
		return b.fail(KindKey, "got %q", b.src[b.pos])
	}
	if err := b.scanString(); err != nil {
		return err
	}
	b.skipSpace()
	if b.pos >= b.n {
		return b.unterminated()
	}
	if b.src[b.pos] != ':' {
		return b.fail(KindColon, "got %q", b.src[b.pos])
	}
	b.pos++
	return nil
}

func (b *builder) unterminated() error {
	if len(b.stack) == 0 {
		return b.fail(KindUnknown, "unexpected end of input")
	}
	if b.stack[len(b.stack)-1].isObject {
		return b.fail(KindIncompleteObject, "")
	}
	return b.fail(KindIncompleteArray, "")
}

// scanString scans a string token at the cursor, validating its escape
// sequences, and emits a string word referencing the undecoded contents.
func (b *builder) scanString() error {
	start := b.pos + 1 // past the opening quote
	p := start
	escaped := false
	for {
		if p >= b.n {
			return parseErrorf(KindUnknown, b.pos, "unterminated string")
		}
		switch c := b.src[p]; {
		case c == '"':
			if p-start > maxStringLen {
				return parseErrorf(KindCapacity, start, "string exceeds %d bytes", maxStringLen)
			}
			b.emit(packString(start, p-start, escaped))
			b.pos = p + 1
			return nil
		case c == '\\':
			escaped = true
			p++
			if p >= b.n {
				return parseErrorf(KindEscape, p, "incomplete escape")
			}
			switch b.src[p] {
			case '"', '\\', '/', 'b', 'f', 'n', 'r', 't':
				p++
			case 'u':
				p++
				for i := 0; i < 4; i++ {
					if p >= b.n || !isHexDigit(b.src[p]) {
						return parseErrorf(KindCodePoint, p, "invalid Unicode escape")
					}
					p++
				}
			default:
				return parseErrorf(KindEscape, p, "invalid %q after backslash", b.src[p])
			}
		case c < ' ':
			return parseErrorf(KindCodePoint, p, "unescaped control %q", c)
		default:
			p++
		}
	}
}

// scanNumber scans a number token with the strict JSON grammar and emits an
// integer or double word pair.
func (b *builder) scanNumber() error {
	start := b.pos
	p := b.pos
	if b.src[p] == '-' {
		p++
	}
	ds := p
	for p < b.n && isDigit(b.src[p]) {
		p++
	}
	if p == ds {
		return parseErrorf(KindNumber, p, "missing digits")
	}
	if b.src[ds] == '0' && p-ds > 1 {
		return parseErrorf(KindNumber, start, "extra leading zeroes")
	}
	isFloat := false
	if p < b.n && b.src[p] == '.' {
		isFloat = true
		p++
		fs := p
		for p < b.n && isDigit(b.src[p]) {
			p++
		}
		if p == fs {
			return parseErrorf(KindNumber, p, "no digits after decimal point")
		}
	}
	if p < b.n && (b.src[p] == 'e' || b.src[p] == 'E') {
		isFloat = true
		p++
		if p < b.n && (b.src[p] == '-' || b.src[p] == '+') {
			p++
		}
		es := p
		for p < b.n && isDigit(b.src[p]) {
			p++
		}
		if p == es {
			return parseErrorf(KindNumber, p, "missing exponent digits")
		}
	}
	text := b.src[start:p]
	b.pos = p

	if !isFloat {
		if text[0] == '-' {
			v, err := strconv.ParseInt(string(text), 10, 64)
			if err == nil {
				b.emit(uint64(Int))
				b.emit(uint64(v))
				return nil
			}
		} else {
			v, err := strconv.ParseUint(string(text), 10, 64)
			if err == nil {
				b.emit(uint64(Uint))
				b.emit(v)
				return nil
			}
		}
		// Integer out of 64-bit range: fall through to double.
	}
	v, err := strconv.ParseFloat(string(text), 64)
	if err != nil {
		return parseErrorf(KindNumber, start, "%v", err)
	}
	b.emit(uint64(Double))
	b.emit(math.Float64bits(v))
	return nil
}

func (b *builder) scanKeyword(want string, tag Tag) error {
	if b.pos+len(want) > b.n || string(b.src[b.pos:b.pos+len(want)]) != want {
		return b.fail(KindUnknown, "unknown literal")
	}
	b.pos += len(want)
	b.emit(uint64(tag))
	return nil
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\r' || c == '\n' }
func isDigit(c byte) bool { return '0' <= c && c <= '9' }

func isHexDigit(c byte) bool {
	return isDigit(c) || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}
