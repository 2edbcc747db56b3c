package seiparse

import "testing"

func TestReadBitsMSBFirst(t *testing.T) {
	r := newBitReader([]byte{0b10110000})
	if r.ReadBit() != 1 {
		t.Fatalf("first bit should be 1")
	}
	if r.ReadBit() != 0 {
		t.Fatalf("second bit should be 0")
	}
	if v := r.ReadBits(3); v != 0b110 {
		t.Fatalf("ReadBits(3) = %b, want 110", v)
	}
}

func TestReadBitsAcrossByteBoundary(t *testing.T) {
	r := newBitReader([]byte{0xFF, 0x00})
	if v := r.ReadBits(12); v != 0xFF0 {
		t.Fatalf("ReadBits(12) = %x, want FF0", v)
	}
}

func TestReadUEExamples(t *testing.T) {
	// Exp-Golomb code table: 1 -> 0, 010 -> 1, 011 -> 2, 00100 -> 3.
	cases := []struct {
		bits []byte // raw bits packed MSB-first into one byte, padded with 0
		want uint64
	}{
		{[]byte{0b1_0000000}, 0},
		{[]byte{0b010_00000}, 1},
		{[]byte{0b011_00000}, 2},
		{[]byte{0b00100_000}, 3},
	}
	for _, c := range cases {
		r := newBitReader(c.bits)
		if got := r.ReadUE(); got != c.want {
			t.Errorf("ReadUE(%08b) = %d, want %d", c.bits[0], got, c.want)
		}
	}
}

func TestBitReaderErrorOnOverread(t *testing.T) {
	r := newBitReader([]byte{0xFF})
	r.ReadBits(8)
	if !r.Ok() {
		t.Fatalf("reader should still be ok after reading exactly 8 bits")
	}
	r.ReadBit()
	if r.Ok() {
		t.Fatalf("reader should report an error after reading past the end")
	}
}
