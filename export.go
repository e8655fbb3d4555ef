// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package jtape

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// A Codec selects the block compression applied by Export.
type Codec byte

const (
	CodecNone Codec = iota // store blocks uncompressed
	CodecLZ4               // LZ4 block compression, fastest
	CodecZstd              // zstd compression, better ratio
)

const (
	exportMagic   = "JTAP"
	exportVersion = 1

	blockHeaderLen = 8 // uncompressed length + stored length, uint32 each
)

// Export serializes t (raw tape words plus source bytes) for transfer to
// another engine instance, compressing each section with codec. The format
// is a transport convenience only and carries no compatibility promise
// across builds; pair Export with the Import of the same build.
func Export(t *Tape, codec Codec) ([]byte, error) {
	switch codec {
	case CodecNone, CodecLZ4, CodecZstd:
	default:
		return nil, fmt.Errorf("invalid codec %d", codec)
	}
	words := make([]byte, 8*len(t.words))
	for i, w := range t.words {
		binary.LittleEndian.PutUint64(words[8*i:], w)
	}
	out := make([]byte, 0, len(exportMagic)+2+2*blockHeaderLen+len(words)+t.srcLen)
	out = append(out, exportMagic...)
	out = append(out, exportVersion, byte(codec))
	out, err := appendBlock(out, words, codec)
	if err != nil {
		return nil, err
	}
	return appendBlock(out, t.Source(), codec)
}

// Import reconstructs a navigable tape from the output of Export.
func Import(data []byte) (*Tape, error) {
	if len(data) < len(exportMagic)+2 || string(data[:4]) != exportMagic {
		return nil, fmt.Errorf("invalid export header")
	}
	if v := data[4]; v != exportVersion {
		return nil, fmt.Errorf("unsupported export version %d", v)
	}
	codec := Codec(data[5])
	words, rest, err := readBlock(data[6:], codec)
	if err != nil {
		return nil, fmt.Errorf("tape words: %w", err)
	}
	if len(words)%8 != 0 || len(words) == 0 {
		return nil, fmt.Errorf("tape words: invalid length %d", len(words))
	}
	src, rest, err := readBlock(rest, codec)
	if err != nil {
		return nil, fmt.Errorf("tape source: %w", err)
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%d bytes of trailing garbage", len(rest))
	}
	t := &Tape{words: make([]uint64, len(words)/8), src: src, srcLen: len(src)}
	for i := range t.words {
		t.words[i] = binary.LittleEndian.Uint64(words[8*i:])
	}
	if err := checkImported(t); err != nil {
		return nil, fmt.Errorf("malformed tape: %w", err)
	}
	return t, nil
}

// checkImported validates the structural payloads of an imported tape so that
// navigation cannot index outside the word array or the source buffer. Only
// offsets, lengths, and skip targets are checked; values are not re-parsed.
func checkImported(t *Tape) error {
	n := t.Len()
	if t.TagAt(0) != RootOpen || t.TagAt(n-1) != RootClose {
		return fmt.Errorf("missing root words")
	}
	for i := 0; i < n; i++ {
		switch tag := t.TagAt(i); tag {
		case Null, True, False, ObjectClose, ArrayClose, RootClose:
		case Uint, Int, Double:
			if i+1 >= n {
				return fmt.Errorf("word %d: number missing its value word", i)
			}
			i++ // the value word carries raw bits, not a tag
		case String:
			ref, _ := t.StringRefAt(i)
			if ref.Offset+ref.Length > t.srcLen {
				return fmt.Errorf("word %d: string %d+%d exceeds %d source bytes",
					i, ref.Offset, ref.Length, t.srcLen)
			}
		case ObjectOpen, ArrayOpen, RootOpen:
			target := t.skipTarget(i)
			if target <= i+1 || target > n {
				return fmt.Errorf("word %d: skip target %d out of range", i, target)
			}
			// Each close tag directly follows its open tag in the enumeration.
			if t.TagAt(target-1) != tag+1 {
				return fmt.Errorf("word %d: skip target %d is not its matching close", i, target)
			}
		default:
			return fmt.Errorf("word %d: invalid tag %d", i, tag)
		}
	}
	return nil
}

// appendBlock appends one length-prefixed section to out. A section whose
// compressed form would not be smaller is stored raw, marked by a zero
// stored-length field.
func appendBlock(out, data []byte, codec Codec) ([]byte, error) {
	var packed []byte
	switch codec {
	case CodecLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, err
		}
		packed = buf[:n] // n == 0 means incompressible
	case CodecZstd:
		enc := getZstdEncoder()
		defer putZstdEncoder(enc)
		packed = enc.EncodeAll(data, nil)
	}
	if len(packed) == 0 || len(packed) >= len(data) {
		packed = nil
	}
	var hdr [blockHeaderLen]byte
	binary.LittleEndian.PutUint32(hdr[0:], uint32(len(data)))
	binary.LittleEndian.PutUint32(hdr[4:], uint32(len(packed)))
	out = append(out, hdr[:]...)
	if packed == nil {
		return append(out, data...), nil
	}
	return append(out, packed...), nil
}

// readBlock decodes one section from the front of data, returning the
// section payload and the unconsumed remainder.
func readBlock(data []byte, codec Codec) (payload, rest []byte, _ error) {
	if len(data) < blockHeaderLen {
		return nil, nil, fmt.Errorf("truncated block header")
	}
	ulen := int(binary.LittleEndian.Uint32(data[0:]))
	slen := int(binary.LittleEndian.Uint32(data[4:]))
	body, rest := data[blockHeaderLen:], []byte(nil)
	if slen == 0 {
		if len(body) < ulen {
			return nil, nil, fmt.Errorf("truncated block (%d of %d bytes)", len(body), ulen)
		}
		return body[:ulen], body[ulen:], nil
	}
	if len(body) < slen {
		return nil, nil, fmt.Errorf("truncated block (%d of %d bytes)", len(body), slen)
	}
	body, rest = body[:slen], body[slen:]

	out := make([]byte, ulen)
	switch codec {
	case CodecLZ4:
		n, err := lz4.UncompressBlock(body, out)
		if err != nil {
			return nil, nil, err
		}
		out = out[:n]
	case CodecZstd:
		dec := getZstdDecoder()
		defer putZstdDecoder(dec)
		var err error
		out, err = dec.DecodeAll(body, out[:0])
		if err != nil {
			return nil, nil, err
		}
	default:
		return nil, nil, fmt.Errorf("compressed block under codec %d", codec)
	}
	if len(out) != ulen {
		return nil, nil, fmt.Errorf("decompressed size mismatch (%d, want %d)", len(out), ulen)
	}
	return out, rest, nil
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func putZstdEncoder(enc *zstd.Encoder) { zstdEncoderPool.Put(enc) }

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

func putZstdDecoder(dec *zstd.Decoder) { zstdDecoderPool.Put(dec) }
