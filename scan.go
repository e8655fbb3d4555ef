// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package jtape

import "github.com/creachadair/jtape/internal/vbyte"

// A Status reports the structural completeness of scanned input.
type Status int

// Constants defining the valid Status values. Incomplete is not a failure:
// it means the input so far could still be extended into a complete value.
const (
	Incomplete Status = iota // more bytes are needed
	Complete                 // a root value is complete; only whitespace follows
	EndEarly                 // a root value is complete; non-whitespace bytes follow
	StatusInvalid            // structurally invalid (e.g. unmatched close bracket)
)

var statusStr = [...]string{
	Incomplete:    "incomplete",
	Complete:      "complete",
	EndEarly:      "end early",
	StatusInvalid: "invalid",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusStr) {
		return "unknown status"
	}
	return statusStr[s]
}

// A Stream incrementally classifies the structural completeness of JSON text
// arriving in chunks. Bytes are accumulated, never discarded; each Feed call
// scans only the newly appended range, so total work across a session is
// linear in the input size regardless of chunking.
//
// A Stream is owned by a single caller. One Feed call must complete before
// the next begins; the engine provides no internal synchronization.
type Stream struct {
	buf []byte
	pos int // scan cursor; everything before it has been classified

	stack     []byte // kinds of open containers, '{' or '[', innermost last
	inString  bool
	escaped   bool // a backslash was seen; the next string byte is escaped
	strCtx    byte // value of lastSig when the current string opened
	lastSig   byte // last significant byte outside strings: '{' '[' ',' ':' or 'v'
	keyClosed bool // an object key has been scanned but not yet its colon

	scalarStart int // start of a pending bare scalar, -1 when none
	valueStart  int // offset of the root value's first byte, -1 before one is seen

	done     bool // the root value is complete
	valueEnd int  // one past the completed root value
	trailing bool // non-whitespace bytes follow the completed root value
	invalid  bool
}

// NewStream constructs a new, empty stream session.
func NewStream() *Stream { return &Stream{scalarStart: -1, valueStart: -1} }

// Reset returns s to its initial state, retaining its accumulation buffer
// for reuse.
func (s *Stream) Reset() {
	*s = Stream{buf: s.buf[:0], stack: s.stack[:0], scalarStart: -1, valueStart: -1}
}

// Feed appends data to the accumulation buffer, scans the appended range,
// and returns the resulting status.
func (s *Stream) Feed(data []byte) Status {
	s.buf = append(s.buf, data...)
	s.scan()
	return s.Status()
}

// Buffer returns the accumulated input. The returned slice is owned by the
// stream and is invalidated by the next Feed or Reset.
func (s *Stream) Buffer() []byte { return s.buf }

// ValueLen returns the byte length of the completed root value, not counting
// any whitespace around it, or 0 if the status is not Complete or EndEarly.
// Callers splitting newline-delimited input should use Remaining rather than
// computing an offset from ValueLen.
func (s *Stream) ValueLen() int {
	switch s.Status() {
	case Complete, EndEarly:
		if s.done {
			return s.valueEnd - s.valueStart
		}
		return len(s.buf) - s.valueStart // bare scalar completed by end of input
	}
	return 0
}

// Remaining returns the bytes following the completed root value, or nil if
// the status is not EndEarly.
func (s *Stream) Remaining() []byte {
	if s.Status() != EndEarly {
		return nil
	}
	return s.buf[s.valueEnd:]
}

// Status reports the classification of the input accumulated so far.
func (s *Stream) Status() Status {
	switch {
	case s.invalid:
		return StatusInvalid
	case s.done:
		if s.trailing {
			return EndEarly
		}
		return Complete
	case s.inString || len(s.stack) > 0:
		return Incomplete
	case s.scalarStart >= 0:
		// A bare scalar runs to the end of input. It is complete unless its
		// tail could still be extended by the next chunk.
		if scalarOpenAtEOF(s.buf[s.scalarStart:]) {
			return Incomplete
		}
		return Complete
	}
	return Incomplete // nothing but whitespace so far
}

// Classify reports the structural completeness of src in a single stateless
// call, applying the same decision logic as a streaming session.
func Classify(src []byte) Status {
	s := Stream{buf: src, scalarStart: -1, valueStart: -1}
	s.scan()
	return s.Status()
}

// scan advances the cursor over any unscanned bytes, updating structural
// state. Depth errors and bracket mismatches mark the stream invalid; once
// the root value completes, scanning degenerates to a whitespace check.
func (s *Stream) scan() {
	if s.invalid {
		s.pos = len(s.buf)
		return
	}
	b := s.buf
	for s.pos < len(b) {
		if s.done {
			if s.trailing {
				s.pos = len(b)
				return
			}
			if !isSpace(b[s.pos]) {
				s.trailing = true
				s.pos = len(b)
				return
			}
			s.pos++
			continue
		}

		if s.inString {
			if s.escaped {
				s.escaped = false
				s.pos++
				continue
			}
			// Bulk-skip ordinary string content to the nearest quote or
			// backslash.
			i := vbyte.IndexQuoteOrBackslash(b[s.pos:])
			if i < 0 {
				s.pos = len(b)
				return
			}
			s.pos += i
			if b[s.pos] == '\\' {
				s.escaped = true
				s.pos++
				continue
			}
			s.inString = false
			s.pos++
			if len(s.stack) > 0 && s.stack[len(s.stack)-1] == '{' &&
				(s.strCtx == '{' || s.strCtx == ',') {
				s.keyClosed = true
			}
			s.endValue(s.pos)
			continue
		}

		if s.scalarStart >= 0 {
			if isScalarByte(b[s.pos]) {
				s.pos++
				continue
			}
			s.scalarStart = -1
			s.endValue(s.pos)
			continue // reprocess the terminating byte
		}

		c := b[s.pos]
		if s.valueStart < 0 && !isSpace(c) {
			s.valueStart = s.pos
		}
		switch {
		case isSpace(c):
			s.pos++
		case c == '{' || c == '[':
			if len(s.stack) >= maxDepth {
				s.fail()
				return
			}
			s.stack = append(s.stack, c)
			s.lastSig = c
			s.pos++
		case c == '}' || c == ']':
			if len(s.stack) == 0 || (c == '}') != (s.stack[len(s.stack)-1] == '{') {
				s.fail()
				return
			}
			s.stack = s.stack[:len(s.stack)-1]
			s.pos++
			s.endValue(s.pos)
		case c == '"':
			s.strCtx = s.lastSig
			s.inString = true
			s.pos++
		case c == ',' || c == ':':
			if c == ':' {
				s.keyClosed = false
			}
			s.lastSig = c
			s.pos++
		case isScalarByte(c):
			s.scalarStart = s.pos
			s.pos++
		default:
			s.fail()
			return
		}
	}
}

// endValue records that a complete value ended at offset end. At depth zero
// this completes the root.
func (s *Stream) endValue(end int) {
	s.lastSig = 'v'
	if len(s.stack) == 0 {
		s.done = true
		s.valueEnd = end
	}
}

func (s *Stream) fail() {
	s.invalid = true
	s.pos = len(s.buf)
}

// isScalarByte reports whether c can occur in a bare scalar: a keyword or
// number token. The check deliberately over-accepts (e.g. "1.2.3"); the
// scanner classifies cheaply and the build step validates authoritatively.
func isScalarByte(c byte) bool {
	return 'a' <= c && c <= 'z' || isDigit(c) ||
		c == '-' || c == '+' || c == '.' || c == 'E'
}

// scalarOpenAtEOF reports whether a bare scalar ending exactly at end of
// input could still be extended by a later chunk: it is a strict, non-empty
// prefix of a reserved keyword, or ends in a bare sign, decimal point, or
// exponent marker.
func scalarOpenAtEOF(text []byte) bool {
	for _, kw := range [...]string{"true", "false", "null"} {
		if string(text) == kw {
			return false
		}
		if len(text) < len(kw) && kw[:len(text)] == string(text) {
			return true
		}
	}
	switch text[len(text)-1] {
	case '-', '+', '.', 'e', 'E':
		return true
	}
	return false
}
