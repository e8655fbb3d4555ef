// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

// Package jtape implements a JSON parsing engine built around a flat binary
// tape representation, designed for zero-copy navigation and for operation
// on partial input produced by incremental sources.
//
// # Tapes
//
// Build parses a complete JSON document into a Tape, a flat sequence of
// tagged 64-bit words navigated by integer index. Index 0 is a synthetic
// root open word; the document value starts at index 1. Container words
// carry the index of their next sibling, so skipping an entire subtree is a
// single jump regardless of its size:
//
//	t, err := jtape.Build(data)
//	if err != nil {
//	   log.Fatalf("Parse failed: %v", err)
//	}
//	if v, ok := t.FindField(1, []byte("name")); ok {
//	   log.Printf("name: %s", t.StringBytesAt(v))
//	}
//
// String accessors return views of the original source bytes; nothing is
// decoded or copied until Unquote is called.
//
// # Pools
//
// A Pool holds a fixed number of reusable parser slots whose buffers are
// retained across documents, so steady-state parsing does not allocate.
// Acquire parses a document into a free slot and returns a Handle carrying
// the slot index and its generation. Every access revalidates the
// generation, so a handle kept after Release is a defined error rather than
// a read of someone else's document:
//
//	h, err := pool.Acquire(data)
//	...
//	pool.Release(h)     // invalidates h
//	pool.Release(h)     // no-op
//
// # Streaming
//
// A Stream accumulates input chunk by chunk and classifies the buffer after
// each Feed: Incomplete (more bytes needed), Complete, EndEarly (a complete
// root value with content after it), or StatusInvalid. The classification is
// chunking-invariant. Autocomplete repairs an Incomplete buffer into the
// nearest parseable document, closing strings and containers and completing
// dangling literals, which makes an in-flight document inspectable at any
// moment during streaming:
//
//	s := jtape.NewStream()
//	for _, chunk := range chunks {
//	   if s.Feed(chunk) != jtape.Incomplete {
//	      break
//	   }
//	   snapshot, _ := jtape.Build(s.Autocomplete())
//	   ...
//	}
//
// # Comparison
//
// Equal walks two tapes in lock step without materializing values, with
// order-sensitive and order-insensitive object modes. Diff reports each
// structural divergence between two tapes with a path of the form
// "$.key[index]".
package jtape
