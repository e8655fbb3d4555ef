// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package jtape_test

import (
	"strconv"
	"strings"
	"testing"

	"github.com/creachadair/jtape"
	"github.com/google/go-cmp/cmp"
	"github.com/tailscale/hujson"
)

func mustBuild(t *testing.T, src string) *jtape.Tape {
	t.Helper()
	tp, err := jtape.Build([]byte(src))
	if err != nil {
		t.Fatalf("Build %#q: unexpected error: %v", src, err)
	}
	return tp
}

func TestTape_navigation(t *testing.T) {
	const input = `{"name":"aloysius","age":41,"tags":["a","b\n","c"],"ok":true,"score":-1.25,"extra":null}`
	tp := mustBuild(t, input)

	if got := tp.TagAt(0); got != jtape.RootOpen {
		t.Errorf("TagAt(0): got %v, want %v", got, jtape.RootOpen)
	}
	if got := tp.TagAt(tp.Len() - 1); got != jtape.RootClose {
		t.Errorf("TagAt(%d): got %v, want %v", tp.Len()-1, got, jtape.RootClose)
	}
	if got := tp.TagAt(1); got != jtape.ObjectOpen {
		t.Fatalf("TagAt(1): got %v, want %v", got, jtape.ObjectOpen)
	}
	if got, ok := tp.ChildCount(1); !ok || got != 6 {
		t.Errorf("ChildCount(1): got %d, %v; want 6, true", got, ok)
	}

	// Skipping the root object lands on the synthetic root close.
	if got, want := tp.Skip(1), tp.Len()-1; got != want {
		t.Errorf("Skip(1): got %d, want %d", got, want)
	}
	ci, ok := tp.CloseIndex(1)
	if !ok || tp.TagAt(ci) != jtape.ObjectClose {
		t.Errorf("CloseIndex(1): got %d (%v), want an object close", ci, tp.TagAt(ci))
	}

	vi, ok := tp.FindField(1, []byte("name"))
	if !ok {
		t.Fatal("FindField(name): not found")
	}
	if got := tp.StringBytesAt(vi); string(got) != "aloysius" {
		t.Errorf("StringBytesAt(%d): got %q, want aloysius", vi, got)
	}

	ai, ok := tp.FindField(1, []byte("age"))
	if !ok {
		t.Fatal("FindField(age): not found")
	}
	if got, ok := tp.Int64At(ai); !ok || got != 41 {
		t.Errorf("Int64At(%d): got %d, %v; want 41, true", ai, got, ok)
	}
	if got, ok := tp.NumberAt(ai); !ok || got != 41 {
		t.Errorf("NumberAt(%d): got %v, %v; want 41, true", ai, got, ok)
	}

	ti, ok := tp.FindField(1, []byte("tags"))
	if !ok || tp.TagAt(ti) != jtape.ArrayOpen {
		t.Fatalf("FindField(tags): got index %d (%v), want an array", ti, tp.TagAt(ti))
	}
	if got, ok := tp.ChildCount(ti); !ok || got != 3 {
		t.Errorf("ChildCount(%d): got %d, %v; want 3, true", ti, got, ok)
	}

	si, ok := tp.FindField(1, []byte("score"))
	if !ok {
		t.Fatal("FindField(score): not found")
	}
	if got, ok := tp.NumberAt(si); !ok || got != -1.25 {
		t.Errorf("NumberAt(%d): got %v, %v; want -1.25, true", si, got, ok)
	}
	if _, ok := tp.Int64At(si); ok {
		t.Errorf("Int64At(%d): unexpectedly succeeded on a double", si)
	}

	ei, ok := tp.FindField(1, []byte("extra"))
	if !ok || tp.TagAt(ei) != jtape.Null {
		t.Errorf("FindField(extra): got index %d (%v), want null", ei, tp.TagAt(ei))
	}
	if _, ok := tp.FindField(1, []byte("nonesuch")); ok {
		t.Error("FindField(nonesuch): unexpectedly found")
	}
	if _, ok := tp.FindField(ti, []byte("x")); ok {
		t.Error("FindField on an array: unexpectedly succeeded")
	}
}

func TestTape_children(t *testing.T) {
	tp := mustBuild(t, `{"a":[10,[20],30],"b":{"c":null},"d":true}`)

	kids, next := tp.Children(1, nil, 0)
	if next != -1 {
		t.Errorf("Children(1): next=%d, want -1", next)
	}
	if len(kids) != 3 {
		t.Fatalf("Children(1): got %d keys, want 3", len(kids))
	}
	var keys []string
	for _, ki := range kids {
		keys = append(keys, string(tp.StringBytesAt(ki)))
	}
	if diff := cmp.Diff([]string{"a", "b", "d"}, keys); diff != "" {
		t.Errorf("Object keys (-want, +got):\n%s", diff)
	}

	// Array children are the element indices themselves.
	ai, _ := tp.FindField(1, []byte("a"))
	elts, next := tp.Children(ai, nil, 0)
	if next != -1 || len(elts) != 3 {
		t.Fatalf("Children(%d): got %d elements (next=%d), want 3 (-1)", ai, len(elts), next)
	}
	if v, ok := tp.Int64At(elts[0]); !ok || v != 10 {
		t.Errorf("element 0: got %d, %v; want 10, true", v, ok)
	}
	if tp.TagAt(elts[1]) != jtape.ArrayOpen {
		t.Errorf("element 1: got %v, want an array", tp.TagAt(elts[1]))
	}
	if v, ok := tp.Int64At(elts[2]); !ok || v != 30 {
		t.Errorf("element 2: got %d, %v; want 30, true", v, ok)
	}

	// Non-containers report no children.
	if kids, next := tp.Children(elts[0], nil, 0); len(kids) != 0 || next != -1 {
		t.Errorf("Children of a scalar: got %v, next=%d; want empty, -1", kids, next)
	}
}

// A container with more than MaxChildren elements is walked in batches, the
// cursor from each call resuming where the previous one stopped.
func TestTape_childrenResume(t *testing.T) {
	const numElts = jtape.MaxChildren + 904

	var sb strings.Builder
	sb.WriteByte('[')
	for i := 0; i < numElts; i++ {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(i))
	}
	sb.WriteByte(']')
	tp := mustBuild(t, sb.String())

	kids, next := tp.Children(1, nil, 0)
	if len(kids) != jtape.MaxChildren {
		t.Fatalf("First call: got %d children, want %d", len(kids), jtape.MaxChildren)
	}
	if next < 0 {
		t.Fatal("First call: no resumption cursor, want one")
	}
	kids, next = tp.Children(1, kids, next)
	if next != -1 {
		t.Errorf("Second call: next=%d, want -1", next)
	}
	if len(kids) != numElts {
		t.Fatalf("Walk produced %d children, want %d", len(kids), numElts)
	}
	for i, ki := range kids {
		if v, ok := tp.Int64At(ki); !ok || v != int64(i) {
			t.Fatalf("Child %d (index %d): got %d, %v; want %d, true", i, ki, v, ok, i)
		}
	}
}

func TestTape_strings(t *testing.T) {
	tp := mustBuild(t, `["ab","a\nb",""]`)
	elts, _ := tp.Children(1, nil, 0)

	ref, ok := tp.StringRefAt(elts[0])
	if !ok {
		t.Fatal("StringRefAt(ab): not a string")
	}
	if ref.Offset != 2 || ref.Length != 2 || ref.Escaped {
		t.Errorf("StringRefAt(ab): got %+v, want offset 2 length 2 unescaped", ref)
	}

	ref, _ = tp.StringRefAt(elts[1])
	if !ref.Escaped {
		t.Errorf("StringRefAt(a\\nb): got %+v, want escaped", ref)
	}
	if got := tp.StringBytesAt(elts[1]); string(got) != `a\nb` {
		t.Errorf("StringBytesAt: got %q, want raw text a\\nb", got)
	}
	dec, err := tp.Unquote(elts[1])
	if err != nil {
		t.Errorf("Unquote: unexpected error: %v", err)
	} else if string(dec) != "a\nb" {
		t.Errorf("Unquote: got %q, want \"a\\nb\"", dec)
	}

	if got := tp.StringBytesAt(elts[2]); len(got) != 0 {
		t.Errorf("StringBytesAt(empty): got %q, want empty", got)
	}
	if got := tp.StringBytesAt(1); got != nil {
		t.Errorf("StringBytesAt on an array: got %q, want nil", got)
	}
	if _, err := tp.Unquote(1); err == nil {
		t.Error("Unquote on an array: unexpectedly succeeded")
	}
}

func TestTape_numbers(t *testing.T) {
	tests := []struct {
		input string
		tag   jtape.Tag
		num   float64
	}{
		{`0`, jtape.Uint, 0},
		{`41`, jtape.Uint, 41},
		{`-7`, jtape.Int, -7},
		{`3.5`, jtape.Double, 3.5},
		{`1e3`, jtape.Double, 1000},
		{`-0.001E-2`, jtape.Double, -0.00001},
		{`18446744073709551615`, jtape.Uint, 18446744073709551615},
		{`-9223372036854775808`, jtape.Int, -9223372036854775808},
		{`99999999999999999999`, jtape.Double, 1e20}, // out of integer range
	}
	for _, test := range tests {
		tp := mustBuild(t, test.input)
		if got := tp.TagAt(1); got != test.tag {
			t.Errorf("Input: %#q\nTagAt(1): got %v, want %v", test.input, got, test.tag)
		}
		if got, ok := tp.NumberAt(1); !ok || got != test.num {
			t.Errorf("Input: %#q\nNumberAt(1): got %v, %v; want %v", test.input, got, ok, test.num)
		}
	}

	// An unsigned value out of int64 range is not an int64.
	tp := mustBuild(t, `18446744073709551615`)
	if v, ok := tp.Int64At(1); ok {
		t.Errorf("Int64At: got %d, want failure on out-of-range uint", v)
	}
}

func TestTape_span(t *testing.T) {
	//              0123456789012345678901
	const input = `{"a": [1, 20], "b": 3}`
	tp := mustBuild(t, input)

	ai, _ := tp.FindField(1, []byte("a"))
	sp, ok := tp.Span(ai)
	if !ok || string(tp.Source()[sp.Pos:sp.End]) != "[1, 20]" {
		t.Errorf("Span(%d): got %+v (%q), want [1, 20]", ai, sp, tp.Source()[sp.Pos:sp.End])
	}
	bi, _ := tp.FindField(1, []byte("b"))
	sp, ok = tp.Span(bi)
	if !ok || string(tp.Source()[sp.Pos:sp.End]) != "3" {
		t.Errorf("Span(%d): got %+v, want the token 3", bi, sp)
	}
	if _, ok := tp.Span(0); ok {
		t.Error("Span(0): unexpectedly succeeded on the root word")
	}
}

func TestLocate(t *testing.T) {
	src := []byte("{\n  \"a\": 1,\n  \"b\": 2\n}")
	tests := []struct {
		pos  int
		want jtape.LineCol
	}{
		{0, jtape.LineCol{Line: 1, Column: 0}},
		{4, jtape.LineCol{Line: 2, Column: 2}},
		{14, jtape.LineCol{Line: 3, Column: 2}},
		{21, jtape.LineCol{Line: 4, Column: 0}},
		{len(src), jtape.LineCol{Line: 4, Column: 1}},
	}
	for _, test := range tests {
		if got := jtape.Locate(src, test.pos); got != test.want {
			t.Errorf("Locate(%d): got %+v, want %+v", test.pos, got, test.want)
		}
	}
}

func TestUnquote(t *testing.T) {
	tests := []struct {
		input, want string
		ok          bool
	}{
		{`""`, "", true},
		{`"abc"`, "abc", true},
		{`"a\tb\nc"`, "a\tb\nc", true},
		{`"\"\\\/"`, `"\/`, true},
		{`"Aé"`, "Aé", true},
		{`"unclosed`, "", false},
		{`plain`, "", false},
		{`"bad\u12"`, "", false},
	}
	for _, test := range tests {
		got, err := jtape.Unquote(test.input)
		if test.ok != (err == nil) {
			t.Errorf("Unquote(%#q): err=%v, want ok=%v", test.input, err, test.ok)
		} else if err == nil && string(got) != test.want {
			t.Errorf("Unquote(%#q): got %q, want %q", test.input, got, test.want)
		}
	}
}

// Human-maintained fixtures are allowed comments and trailing commas;
// standardizing them yields plain JSON the engine accepts.
func TestBuild_humanFixture(t *testing.T) {
	const fixture = `{
	   // run parameters
	   "iterations": 250,
	   "labels": ["a", "b",],  /* trailing comma is fine */
	}`
	std, err := hujson.Standardize([]byte(fixture))
	if err != nil {
		t.Fatalf("Standardize: unexpected error: %v", err)
	}
	tp, err := jtape.Build(std)
	if err != nil {
		t.Fatalf("Build: unexpected error: %v", err)
	}
	vi, ok := tp.FindField(1, []byte("iterations"))
	if !ok {
		t.Fatal("FindField(iterations): not found")
	}
	if got, ok := tp.Int64At(vi); !ok || got != 250 {
		t.Errorf("Int64At(%d): got %d, %v; want 250", vi, got, ok)
	}
}
