// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package jtape

import "fmt"

// A Kind classifies the failure reported by a ParseError. Every kind maps to
// a distinct stable integer code, so callers on the far side of a foreign
// function boundary can dispatch on Code without string matching.
type Kind int

// Constants defining the valid Kind values.
const (
	KindUnknown         Kind = iota // unclassified failure
	KindDepth                       // nesting exceeds the depth limit
	KindCapacity                    // slot pool full, or buffer over a hard size ceiling
	KindEscape                      // invalid escape sequence in a string
	KindCodePoint                   // invalid (or unescaped control) code point
	KindNumber                      // malformed number literal
	KindColon                       // expected ":" after an object key
	KindKey                         // expected a string key in an object
	KindArraySep                    // expected "," or "]" in an array
	KindObjectSep                   // expected "," or "}" in an object
	KindIncompleteArray             // array not terminated before end of input
	KindIncompleteObject            // object not terminated before end of input
	KindTrailing                    // non-whitespace input after the root value
	KindAlloc                       // allocation failed or would exceed limits
	KindUnmatchedClose              // closing bracket with no matching open
)

var kindStr = [...]string{
	KindUnknown:          "unknown error",
	KindDepth:            "exceeded depth limit",
	KindCapacity:         "exceeded capacity",
	KindEscape:           "invalid escape",
	KindCodePoint:        "invalid code point",
	KindNumber:           "invalid number literal",
	KindColon:            "expected colon",
	KindKey:              "expected object key",
	KindArraySep:         "expected comma or close bracket",
	KindObjectSep:        "expected comma or close brace",
	KindIncompleteArray:  "unterminated array",
	KindIncompleteObject: "unterminated object",
	KindTrailing:         "trailing content after value",
	KindAlloc:            "allocation failed",
	KindUnmatchedClose:   "unmatched closing bracket",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindStr) {
		return kindStr[KindUnknown]
	}
	return kindStr[k]
}

// Code returns the stable negative integer code for k, suitable for return
// through an exported-function boundary where the non-negative range is
// reserved for slot IDs.
func (k Kind) Code() int { return -(int(k) + 1) }

// A ParseError is the concrete type of all errors reported by Build, Acquire,
// and the scanner. Offset is the byte offset in the source input where the
// error was detected, when known.
type ParseError struct {
	Kind    Kind
	Offset  int
	Message string
}

// Error satisfies the error interface.
func (p *ParseError) Error() string {
	if p.Message == "" {
		return fmt.Sprintf("at offset %d: %s", p.Offset, p.Kind)
	}
	return fmt.Sprintf("at offset %d: %s: %s", p.Offset, p.Kind, p.Message)
}

// Is reports whether target matches p. A *ParseError matches another
// *ParseError having the same Kind, so that errors.Is can be used to test for
// a kind without regard to position:
//
//	errors.Is(err, &jtape.ParseError{Kind: jtape.KindNumber})
func (p *ParseError) Is(target error) bool {
	t, ok := target.(*ParseError)
	return ok && t.Kind == p.Kind
}

func parseErrorf(kind Kind, offset int, msg string, args ...any) *ParseError {
	return &ParseError{Kind: kind, Offset: offset, Message: fmt.Sprintf(msg, args...)}
}

// ErrorCode returns the stable integer code for err: the Kind code if err is
// a *ParseError, or the KindUnknown code for any other non-nil error. It
// returns 0 if err == nil.
func ErrorCode(err error) int {
	if err == nil {
		return 0
	}
	if p, ok := err.(*ParseError); ok {
		return p.Kind.Code()
	}
	return KindUnknown.Code()
}
