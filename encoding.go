// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package jtape

import (
	"errors"
	"strings"

	"github.com/creachadair/jtape/internal/escape"

	"go4.org/mem"
)

// Unquote decodes a JSON string value.  Double quotation marks are removed,
// and escape sequences are replaced with their unescaped equivalents.
//
// Invalid escapes are replaced by the Unicode replacement rune. Unquote
// reports an error for an incomplete escape sequence.
func Unquote(src string) ([]byte, error) {
	if len(src) < 2 || !strings.HasPrefix(src, `"`) || !strings.HasSuffix(src, `"`) {
		return nil, errors.New("missing quotations")
	}
	return escape.Unquote(mem.S(src[1 : len(src)-1]))
}

// Unquote decodes the string value at index i of the tape. When the word's
// escape flag is clear the raw source bytes are returned directly, aliasing
// the tape's source buffer; otherwise a decoded copy is returned. It reports
// an error if i does not address a string word.
func (t *Tape) Unquote(i int) ([]byte, error) {
	ref, ok := t.StringRefAt(i)
	if !ok {
		return nil, errors.New("not a string value")
	}
	raw := t.src[ref.Offset : ref.Offset+ref.Length]
	if !ref.Escaped {
		return raw, nil
	}
	return escape.Unquote(mem.B(raw))
}
