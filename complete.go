// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package jtape

// Autocomplete synthesizes the minimal valid suffix for a structurally
// incomplete buffer, so that a caller can obtain a best-effort, parseable
// snapshot of an in-flight document. The repairs, applied in order:
//
//  1. An unterminated string has its tail repaired (a lone trailing
//     backslash becomes a newline escape; an incomplete \uXXXX escape is
//     stripped) and is closed. A truncated object key additionally gets a
//     ":null" member body.
//  2. A partially-typed keyword is completed to its full spelling; a number
//     with a dangling sign, decimal point, or exponent marker has the
//     dangling characters stripped.
//  3. A value position left open by a colon or an array comma gets null; a
//     trailing comma in an object gets an empty placeholder key and null.
//  4. Every still-open container is closed, innermost first.
//
// Autocomplete never reports an error: input that is already complete, or
// for which no clean repair exists (including structurally invalid input and
// an empty buffer), is returned unchanged. The result never aliases src.
func Autocomplete(src []byte) []byte {
	s := Stream{buf: src, scalarStart: -1, valueStart: -1}
	s.scan()
	return s.autocomplete()
}

// Autocomplete returns a repaired snapshot of the accumulated input without
// disturbing the stream's state.
func (s *Stream) Autocomplete() []byte { return s.autocomplete() }

func (s *Stream) autocomplete() []byte {
	out := append([]byte(nil), s.buf...)
	if s.Status() != Incomplete {
		return out
	}

	if s.inString {
		out = closeString(out)
		// A truncated object key has no colon or value yet.
		if len(s.stack) > 0 && s.stack[len(s.stack)-1] == '{' &&
			(s.strCtx == '{' || s.strCtx == ',') {
			out = append(out, `:null`...)
		}
	} else if s.keyClosed {
		out = append(out, `:null`...)
	} else {
		out = completeScalarTail(out)
		switch lastByte(out) {
		case ':':
			out = append(out, `null`...)
		case ',':
			if len(s.stack) > 0 && s.stack[len(s.stack)-1] == '{' {
				out = append(out, `"":null`...)
			} else {
				out = append(out, `null`...)
			}
		}
	}

	for i := len(s.stack) - 1; i >= 0; i-- {
		if s.stack[i] == '{' {
			out = append(out, '}')
		} else {
			out = append(out, ']')
		}
	}
	return out
}

// closeString repairs the tail of an unterminated string and appends the
// closing quote. A trailing unescaped backslash becomes "\n"; a trailing
// "\u" escape with fewer than four hex digits is removed entirely.
func closeString(buf []byte) []byte {
	p := len(buf)
	h := 0
	for h < 4 && p > 0 && isHexDigit(buf[p-1]) {
		p--
		h++
	}
	if h < 4 && p >= 2 && buf[p-1] == 'u' && buf[p-2] == '\\' && oddBackslashRun(buf, p-2) {
		buf = buf[:p-2]
	} else if n := len(buf); n > 0 && buf[n-1] == '\\' && oddBackslashRun(buf, n-1) {
		buf = append(buf, 'n')
	}
	return append(buf, '"')
}

// oddBackslashRun reports whether the run of consecutive backslashes ending
// at index i (inclusive) has odd length, i.e. the backslash at i begins an
// escape rather than completing one.
func oddBackslashRun(buf []byte, i int) bool {
	n := 0
	for i >= 0 && buf[i] == '\\' {
		n++
		i--
	}
	return n%2 == 1
}

// completeScalarTail repairs a partially-typed keyword or number at the end
// of buf: a recognized keyword prefix is completed to its full spelling; a
// number is truncated past any dangling sign, decimal point, or exponent
// marker. Anything else is left alone for the build step to judge.
func completeScalarTail(buf []byte) []byte {
	end := len(buf)
	for end > 0 && isSpace(buf[end-1]) {
		end--
	}
	start := end
	for start > 0 && isScalarByte(buf[start-1]) {
		start--
	}
	if start == end {
		return buf
	}
	run := buf[start:end]

	for _, kw := range [...]string{"true", "false", "null"} {
		if string(run) == kw {
			return buf
		}
		if len(run) < len(kw) && kw[:len(run)] == string(run) {
			return append(buf[:end], kw[len(run):]...)
		}
	}
	for end > start {
		switch buf[end-1] {
		case '.', 'e', 'E', '-', '+':
			end--
			continue
		}
		break
	}
	return buf[:end]
}

func lastByte(buf []byte) byte {
	for i := len(buf) - 1; i >= 0; i-- {
		if !isSpace(buf[i]) {
			return buf[i]
		}
	}
	return 0
}
