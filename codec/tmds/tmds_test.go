/*
NAME
  tmds_test.go

DESCRIPTION
  tmds_test.go provides tests for the TMDS codec in tmds.go.

AUTHOR
  Tomasz Gorochowik <tgorochowik@gmail.com>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package tmds

import "testing"

// encode mirrors the transmitter side of the TMDS 8b/10b transform described
// in spec section 4.1, used only to generate legal encodings of a byte for
// round-trip testing of Decode. xorMethod selects bit 8 (true = XOR chain,
// false = XNOR chain); invert sets bit 9.
func encode(b byte, xorMethod, invert bool) Symbol {
	var q [8]byte
	q[0] = b & 0x1
	for i := 1; i < 8; i++ {
		bit := (b >> uint(i)) & 0x1
		if xorMethod {
			q[i] = q[i-1] ^ bit
		} else {
			q[i] = 1 ^ q[i-1] ^ bit
		}
	}

	var mid byte
	for i := 0; i < 8; i++ {
		mid |= q[i] << uint(i)
	}

	low := mid
	if invert {
		low = ^mid
	}

	var t Symbol
	if invert {
		t |= 0x200
	}
	if xorMethod {
		t |= 0x100
	}
	t |= Symbol(low)
	return t
}

// TestDecodeRoundTrip checks invariant 1: for every byte and every legal
// encoding (all four combinations of the XOR/XNOR group bit and the invert
// bit), Decode inverts back to the original byte.
func TestDecodeRoundTrip(t *testing.T) {
	for b := 0; b <= 0xFF; b++ {
		for _, xorMethod := range []bool{false, true} {
			for _, invert := range []bool{false, true} {
				sym := encode(byte(b), xorMethod, invert)
				got := Decode(sym)
				if got != byte(b) {
					t.Fatalf("Decode(encode(%#02x, xor=%v, inv=%v)=%#04x) = %#02x, want %#02x",
						b, xorMethod, invert, sym, got, b)
				}
			}
		}
	}
}

// TestDecodeUninvertedXORZero covers scenario S1's first worked example:
// byte 0x00 encoded with the XOR group (bit 8 set) and no inversion
// produces symbol 0x100, and Decode inverts it back to 0x00.
func TestDecodeUninvertedXORZero(t *testing.T) {
	const sym Symbol = 0x100
	if got := Decode(sym); got != 0x00 {
		t.Errorf("Decode(%#04x) = %#02x, want 0x00", sym, got)
	}
}

// TestDecodeDeterministic covers invariant 2: decoding any non-control
// symbol is deterministic and always in [0,255] (trivially true of a byte
// return, but we assert repeatability explicitly).
func TestDecodeDeterministic(t *testing.T) {
	for _, sym := range []Symbol{0x000, 0x0FF, 0x155, 0x3FE, 0x1AA} {
		first := Decode(sym)
		for i := 0; i < 10; i++ {
			if got := Decode(sym); got != first {
				t.Fatalf("Decode(%#04x) not deterministic: got %#02x then %#02x", sym, first, got)
			}
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		p    Pixel
		want Class
	}{
		{"blank on every lane", Pixel{Blank, Blank, Blank}, ClassBlank},
		{"hsync on lane 0 only", Pixel{Hsync, 0x000, 0x000}, ClassHsync},
		{"mixed hsync and vsync tokens across lanes", Pixel{VHsync, Vsync, Hsync}, ClassVHsync},
		{"all active data", Pixel{0x0FF, 0x155, 0x2AA}, ClassActive},
		{"vsync only", Pixel{0x000, Vsync, 0x000}, ClassVsync},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.p); got != tt.want {
				t.Errorf("Classify(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestIsCtrl(t *testing.T) {
	tests := []struct {
		name string
		p    Pixel
		want bool
	}{
		{"blank", Pixel{Blank, Blank, Blank}, true},
		{"hsync", Pixel{Hsync, 0x000, 0x000}, true},
		{"vhsync plus others", Pixel{VHsync, Vsync, Hsync}, true},
		{"pure data", Pixel{0x0FF, 0x155, 0x2AA}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsCtrl(tt.p); got != tt.want {
				t.Errorf("IsCtrl(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}
