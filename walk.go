// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package jtape

// A Token is one element of the flattened serial form of a tape. Unlike raw
// tape words, tokens are self-describing: numbers carry their decoded value,
// strings carry their source bytes, and container opens carry the token index
// of their next sibling. This lets a walker move forward and backward freely
// without re-deriving word widths or skip targets.
type Token struct {
	Tag   Tag
	Index int     // index of the originating word in the tape
	Num   float64 // decoded value, for number tags
	Str   []byte  // raw source bytes, for String; aliases the tape source
	End   int     // token index one past the matching close, for open tags
	N     int     // child count, for open tags
}

// next returns the token index of the sibling following the token at i.
func next(toks []Token, i int) int {
	if t := toks[i].Tag; t == ObjectOpen || t == ArrayOpen || t == RootOpen {
		return toks[i].End
	}
	return i + 1
}

// Tokens renders t as a flat token slice, including the synthetic root open
// and close. The result aliases the tape's source buffer and is valid only
// as long as the tape is.
func (t *Tape) Tokens() []Token {
	toks := make([]Token, 0, t.Len())
	var open []int // token indices of unmatched opens
	for i := 0; i < t.Len(); {
		tag := t.TagAt(i)
		tok := Token{Tag: tag, Index: i}
		switch tag {
		case Uint, Int, Double:
			tok.Num, _ = t.NumberAt(i)
			i += 2
		case String:
			tok.Str = t.StringBytesAt(i)
			i++
		case ObjectOpen, ArrayOpen, RootOpen:
			tok.N, _ = t.ChildCount(i)
			open = append(open, len(toks))
			i++
		case ObjectClose, ArrayClose, RootClose:
			j := open[len(open)-1]
			open = open[:len(open)-1]
			toks[j].End = len(toks) + 1
			i++
		default:
			i++
		}
		toks = append(toks, tok)
	}
	return toks
}
