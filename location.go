package jtape

// A Span describes a contiguous span of a source input.
type Span struct {
	Pos int // the start offset, 0-based
	End int // the end offset, 0-based (noninclusive)
}

// A LineCol describes the line number and column offset of a location in
// source text.
type LineCol struct {
	Line   int // line number, 1-based
	Column int // byte offset of column in line, 0-based
}

// Locate converts the byte offset pos within src into a line and column
// position. Offsets past the end of src report the position just after the
// final byte.
func Locate(src []byte, pos int) LineCol {
	lc := LineCol{Line: 1}
	for i := 0; i < pos && i < len(src); i++ {
		if src[i] == '\n' {
			lc.Line++
			lc.Column = 0
		} else {
			lc.Column++
		}
	}
	return lc
}

// Span reports the source byte range covered by the value at index i of the
// tape: the whole subtree for containers, the token for scalars. It reports
// false if i does not address a value word.
func (t *Tape) Span(i int) (Span, bool) {
	switch t.TagAt(i) {
	case String:
		ref, _ := t.StringRefAt(i)
		return Span{Pos: ref.Offset - 1, End: ref.Offset + ref.Length + 1}, true
	case Null, True, False, Uint, Int, Double, ObjectOpen, ArrayOpen:
		pos := sourcePositions(t, nil)
		end := t.Skip(i)
		if end >= t.Len() {
			end = t.Len() - 1
		}
		return Span{Pos: pos[i], End: spanEnd(t, pos, end)}, true
	}
	return Span{}, false
}

// spanEnd backs up from the position of the word at j to the end of the
// preceding token, skipping separators.
func spanEnd(t *Tape, pos []int, j int) int {
	src, e := t.Source(), pos[j]
	for e > 0 && (isSpace(src[e-1]) || src[e-1] == ',') {
		e--
	}
	return e
}
