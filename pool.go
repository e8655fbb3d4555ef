// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package jtape

import (
	"errors"
	"log/slog"
)

// ErrStaleHandle is reported by pool accessors when a handle refers to a
// slot generation that has already been released or reassigned.
var ErrStaleHandle = errors.New("stale slot handle")

// A Handle identifies one acquired slot of a Pool. The generation ties the
// handle to a single acquire, so a handle kept past its Release is detected
// at every access rather than silently reading a reassigned slot.
type Handle struct {
	Slot int
	Gen  uint32
}

// A Pool is a fixed-capacity arena of reusable parser slots. Each slot owns
// tape storage and scratch buffers that are retained across reuse, so a
// steady-state caller parses with no per-document allocation. A Pool is not
// safe for concurrent use; the caller serializes access by contract.
type Pool struct {
	slots []slot
	free  []int // slot indices available for acquire
	log   *slog.Logger

	acquires int64
	stale    int64
}

type slot struct {
	tape   Tape
	gen    uint32
	active bool

	// lazily built word-index to source-offset table, valid for posGen
	pos    []int
	posGen uint32
}

// NewPool constructs a pool with n slots. It panics if n < 1.
func NewPool(n int) *Pool {
	if n < 1 {
		panic("pool size must be positive")
	}
	p := &Pool{slots: make([]slot, n), free: make([]int, 0, n)}
	for i := n - 1; i >= 0; i-- {
		p.free = append(p.free, i)
	}
	return p
}

// SetLogger directs debug-level slot lifecycle events to log.
// A nil logger (the default) disables logging.
func (p *Pool) SetLogger(log *slog.Logger) { p.log = log }

// Acquire builds a tape for src in a free slot and returns its handle.
// It reports a KindCapacity error if every slot is in use, or the build
// error if src does not parse; a failed build does not consume a slot.
func (p *Pool) Acquire(src []byte) (Handle, error) {
	if len(p.free) == 0 {
		return Handle{}, parseErrorf(KindCapacity, 0, "slot pool exhausted (%d slots)", len(p.slots))
	}
	i := p.free[len(p.free)-1]
	s := &p.slots[i]
	if err := buildInto(&s.tape, src); err != nil {
		return Handle{}, err
	}
	p.free = p.free[:len(p.free)-1]
	s.gen++
	s.active = true
	p.acquires++
	if p.log != nil {
		p.log.Debug("slot acquired", "slot", i, "gen", s.gen, "bytes", len(src))
	}
	return Handle{Slot: i, Gen: s.gen}, nil
}

// Release returns the slot named by h to the pool. A stale handle, or one
// whose slot was already released, is a no-op; releasing is idempotent.
func (p *Pool) Release(h Handle) {
	s, ok := p.lookup(h)
	if !ok {
		p.stale++
		if p.log != nil {
			p.log.Debug("stale release ignored", "slot", h.Slot, "gen", h.Gen)
		}
		return
	}
	s.active = false
	p.free = append(p.free, h.Slot)
	if p.log != nil {
		p.log.Debug("slot released", "slot", h.Slot, "gen", h.Gen)
	}
}

// Tape returns the tape owned by the slot named by h. The tape remains
// valid only until the handle is released.
func (p *Pool) Tape(h Handle) (*Tape, error) {
	s, ok := p.lookup(h)
	if !ok {
		return nil, ErrStaleHandle
	}
	return &s.tape, nil
}

// SourcePos reports the source byte offset at which the token for tape word
// i begins, or false if h is stale or i is out of range. The offset table is
// computed on first use per acquire and cached for the slot's generation.
func (p *Pool) SourcePos(h Handle, i int) (int, bool) {
	s, ok := p.lookup(h)
	if !ok {
		return 0, false
	}
	if s.posGen != s.gen {
		s.pos = sourcePositions(&s.tape, s.pos)
		s.posGen = s.gen
	}
	if i < 0 || i >= len(s.pos) {
		return 0, false
	}
	return s.pos[i], true
}

// PoolStats summarize pool activity since construction.
type PoolStats struct {
	Capacity      int   // total slots
	InUse         int   // slots currently acquired
	Acquires      int64 // successful acquires
	StaleReleases int64 // releases ignored by the generation guard
}

// Stats returns a snapshot of pool usage counters.
func (p *Pool) Stats() PoolStats {
	return PoolStats{
		Capacity:      len(p.slots),
		InUse:         len(p.slots) - len(p.free),
		Acquires:      p.acquires,
		StaleReleases: p.stale,
	}
}

func (p *Pool) lookup(h Handle) (*slot, bool) {
	if h.Slot < 0 || h.Slot >= len(p.slots) {
		return nil, false
	}
	s := &p.slots[h.Slot]
	if !s.active || s.gen != h.Gen {
		return nil, false
	}
	return s, true
}

// sourcePositions builds the word-index to source-offset table for t,
// reusing the capacity of pos. Outside of string bodies the source contains
// only tokens, whitespace, commas, and colons, so a forward cursor that
// skips separators lands exactly on each word's token. String bodies are
// jumped over using the offsets already packed in their words.
func sourcePositions(t *Tape, pos []int) []int {
	if cap(pos) < t.Len() {
		pos = make([]int, t.Len())
	} else {
		pos = pos[:t.Len()]
	}
	src, c := t.Source(), 0
	skip := func() {
		for c < len(src) && (isSpace(src[c]) || src[c] == ',' || src[c] == ':') {
			c++
		}
	}
	for i := 0; i < t.Len(); i++ {
		switch t.TagAt(i) {
		case RootOpen:
			pos[i] = 0
		case RootClose:
			pos[i] = len(src)
		case String:
			ref, _ := t.StringRefAt(i)
			pos[i] = ref.Offset - 1 // the opening quote
			c = ref.Offset + ref.Length + 1
		case Uint, Int, Double:
			skip()
			pos[i] = c
			for c < len(src) && isNumberByte(src[c]) {
				c++
			}
			i++
			pos[i] = pos[i-1] // the raw-bits word shares its token
		case Null, True:
			skip()
			pos[i] = c
			c += 4
		case False:
			skip()
			pos[i] = c
			c += 5
		default: // container brackets
			skip()
			pos[i] = c
			c++
		}
	}
	return pos
}

func isNumberByte(c byte) bool {
	return isDigit(c) || c == '-' || c == '+' || c == '.' || c == 'e' || c == 'E'
}
