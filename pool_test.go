// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package jtape_test

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/creachadair/jtape"
	"github.com/creachadair/mds/mtest"
	"github.com/google/go-cmp/cmp"
)

func TestPool_basic(t *testing.T) {
	p := jtape.NewPool(2)

	h1, err := p.Acquire([]byte(`{"a":1}`))
	if err != nil {
		t.Fatalf("Acquire: unexpected error: %v", err)
	}
	tp, err := p.Tape(h1)
	if err != nil {
		t.Fatalf("Tape: unexpected error: %v", err)
	}
	vi, ok := tp.FindField(1, []byte("a"))
	if !ok {
		t.Fatal("FindField(a): not found")
	}
	if got, _ := tp.Int64At(vi); got != 1 {
		t.Errorf("Int64At(%d): got %d, want 1", vi, got)
	}

	h2, err := p.Acquire([]byte(`[2]`))
	if err != nil {
		t.Fatalf("Acquire: unexpected error: %v", err)
	}

	// The pool is now full.
	if _, err := p.Acquire([]byte(`3`)); !errors.Is(err, &jtape.ParseError{Kind: jtape.KindCapacity}) {
		t.Errorf("Acquire on full pool: got %v, want %v", err, jtape.KindCapacity)
	}

	p.Release(h1)
	if _, err := p.Acquire([]byte(`4`)); err != nil {
		t.Errorf("Acquire after release: unexpected error: %v", err)
	}
	p.Release(h2)
}

// A release carrying a stale generation must be ignored and must not
// disturb the document that has since taken over the slot.
func TestPool_staleRelease(t *testing.T) {
	p := jtape.NewPool(1)

	h1, err := p.Acquire([]byte(`{"old":true}`))
	if err != nil {
		t.Fatalf("Acquire: unexpected error: %v", err)
	}
	p.Release(h1)

	h2, err := p.Acquire([]byte(`{"new":[1,2]}`))
	if err != nil {
		t.Fatalf("Acquire: unexpected error: %v", err)
	}
	if h2.Slot != h1.Slot {
		t.Fatalf("Acquire reused slot %d, want %d", h2.Slot, h1.Slot)
	}
	if h2.Gen == h1.Gen {
		t.Fatalf("Acquire reused generation %d", h2.Gen)
	}

	p.Release(h1) // stale: must be a no-op

	tp, err := p.Tape(h2)
	if err != nil {
		t.Fatalf("Tape(h2) after stale release: %v", err)
	}
	vi, ok := tp.FindField(1, []byte("new"))
	if !ok || tp.TagAt(vi) != jtape.ArrayOpen {
		t.Errorf("Document corrupted: FindField(new) = %d (%v), %v", vi, tp.TagAt(vi), ok)
	}

	// The stale handle is rejected everywhere.
	if _, err := p.Tape(h1); !errors.Is(err, jtape.ErrStaleHandle) {
		t.Errorf("Tape(h1): got %v, want %v", err, jtape.ErrStaleHandle)
	}
	if _, ok := p.SourcePos(h1, 0); ok {
		t.Error("SourcePos(h1): unexpectedly succeeded")
	}

	want := jtape.PoolStats{Capacity: 1, InUse: 1, Acquires: 2, StaleReleases: 1}
	if diff := cmp.Diff(want, p.Stats()); diff != "" {
		t.Errorf("Stats (-want, +got):\n%s", diff)
	}
}

func TestPool_buildError(t *testing.T) {
	p := jtape.NewPool(1)
	if _, err := p.Acquire([]byte(`{"a":`)); !errors.Is(err, &jtape.ParseError{Kind: jtape.KindIncompleteObject}) {
		t.Fatalf("Acquire: got %v, want %v", err, jtape.KindIncompleteObject)
	}

	// A failed build does not consume the slot.
	if got := p.Stats().InUse; got != 0 {
		t.Errorf("InUse after failed build: got %d, want 0", got)
	}
	if _, err := p.Acquire([]byte(`{"a":1}`)); err != nil {
		t.Errorf("Acquire: unexpected error: %v", err)
	}
}

func TestPool_sourcePos(t *testing.T) {
	//             0         1         2
	//             0123456789012345678901
	const input = `{"a": 1, "bc": [true]}`
	p := jtape.NewPool(1)
	h, err := p.Acquire([]byte(input))
	if err != nil {
		t.Fatalf("Acquire: unexpected error: %v", err)
	}

	want := []int{
		0,  // root open
		0,  // {
		1,  // "a"
		6,  // 1
		6,  // 1, value word
		9,  // "bc"
		15, // [
		16, // true
		20, // ]
		21, // }
		22, // root close
	}
	tp, _ := p.Tape(h)
	if tp.Len() != len(want) {
		t.Fatalf("Tape has %d words, want %d", tp.Len(), len(want))
	}
	for i, wpos := range want {
		got, ok := p.SourcePos(h, i)
		if !ok || got != wpos {
			t.Errorf("SourcePos(%d): got %d, %v; want %d", i, got, ok, wpos)
		}
	}
	if _, ok := p.SourcePos(h, tp.Len()); ok {
		t.Error("SourcePos out of range: unexpectedly succeeded")
	}
}

func TestNewPool_badSize(t *testing.T) {
	mtest.MustPanic(t, func() { jtape.NewPool(0) })
	mtest.MustPanic(t, func() { jtape.NewPool(-3) })
}

func TestPool_logger(t *testing.T) {
	p := jtape.NewPool(1)
	p.SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	h, err := p.Acquire([]byte(`[]`))
	if err != nil {
		t.Fatalf("Acquire: unexpected error: %v", err)
	}
	p.Release(h)
	p.Release(h) // logged as stale
}
