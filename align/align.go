/*
NAME
  align.go

DESCRIPTION
  align.go provides the word unpacker and the bit-shift realigner: the two
  collaborators responsible for turning a raw captured word stream into a
  correctly framed sequence of TMDS pixels.

AUTHOR
  Tomasz Gorochowik <tgorochowik@gmail.com>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package align implements the word unpacker and the bit-shift realigner
// that recover TMDS pixel framing from a captured word stream whose bit
// alignment within each 32-bit word is unknown.
package align

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/tgorochowik/tmds2rgb/codec/tmds"
	"github.com/tgorochowik/tmds2rgb/decode"
)

// Word is a captured 32-bit unit: [pad:2][d0:10][d1:10][d2:10], most
// significant bit first.
type Word uint32

// Unpack splits a captured Word into its three 10-bit TMDS symbols,
// discarding the two pad bits.
func Unpack(w Word) tmds.Pixel {
	return tmds.Pixel{
		tmds.Symbol(w>>20) & tmds.Mask,
		tmds.Symbol(w>>10) & tmds.Mask,
		tmds.Symbol(w) & tmds.Mask,
	}
}

// readWord reads one little-endian 32-bit word from r. A short read at the
// end of the stream is reported as io.EOF, matching spec's "truncated
// input ends the pass cleanly" behaviour rather than as a hard error.
func readWord(r io.Reader) (Word, error) {
	var buf [4]byte
	_, err := io.ReadFull(r, buf[:])
	switch err {
	case nil:
		return Word(binary.LittleEndian.Uint32(buf[:])), nil
	case io.ErrUnexpectedEOF:
		return 0, io.EOF
	default:
		return 0, err
	}
}

// shiftPixel combines the low (10-shift) bits of prev with the high shift
// bits of curr, per lane, to produce one aligned pixel. shift must be in
// [0,9]. The shift==0 case is special-cased to avoid a 10-bit right shift
// of curr by 10 (well-defined in Go but pointless to compute): at shift 0
// the formula degenerates to prev, since curr contributes nothing.
func shiftPixel(prev, curr tmds.Pixel, shift uint) tmds.Pixel {
	var out tmds.Pixel
	if shift == 0 {
		return prev
	}
	for i := range out {
		out[i] = ((prev[i] << shift) | (curr[i] >> (10 - shift))) & tmds.Mask
	}
	return out
}

// Source is a lazy sequence of aligned TMDS pixels produced by combining
// consecutive raw captured words at a fixed bit shift. It satisfies
// decode.PixelSource.
type Source struct {
	r      io.Reader
	shift  uint
	prev   tmds.Pixel
	curr   tmds.Pixel
	primed bool
	done   bool
}

// NewSource returns a Source that reads raw words from r and combines them
// at the given bit shift (0-9).
func NewSource(r io.Reader, shift uint) *Source {
	return &Source{r: r, shift: shift}
}

// Next returns the next aligned pixel. ok is false once the source is
// exhausted; err is non-nil only on a genuine I/O failure (a short read at
// end-of-stream is not an error).
func (s *Source) Next() (tmds.Pixel, bool, error) {
	if s.done {
		return tmds.Pixel{}, false, nil
	}

	if !s.primed {
		w0, err := readWord(s.r)
		if err == io.EOF {
			s.done = true
			return tmds.Pixel{}, false, nil
		}
		if err != nil {
			return tmds.Pixel{}, false, err
		}
		w1, err := readWord(s.r)
		if err == io.EOF {
			s.done = true
			return tmds.Pixel{}, false, nil
		}
		if err != nil {
			return tmds.Pixel{}, false, err
		}
		s.prev = Unpack(w0)
		s.curr = Unpack(w1)
		s.primed = true
	}

	aligned := shiftPixel(s.prev, s.curr, s.shift)

	next, err := readWord(s.r)
	if err == io.EOF {
		// This is the last pixel we can produce; further calls report
		// exhaustion.
		s.done = true
		return aligned, true, nil
	}
	if err != nil {
		return tmds.Pixel{}, false, err
	}
	s.prev = s.curr
	s.curr = Unpack(next)
	return aligned, true, nil
}

// Realigner searches for the global bit shift at which a capture decodes
// to a structurally valid video signal, per spec section 4.3.
type Realigner struct {
	r io.ReadSeeker
}

// NewRealigner returns a Realigner reading from r, which must support
// Seek(0, io.SeekStart) to rewind between trial shifts.
func NewRealigner(r io.ReadSeeker) *Realigner {
	return &Realigner{r: r}
}

// Search tries shifts 0 through 9 in order, running a full discriminator
// pass at each shift, and returns the locked shift along with a Pass that
// has already consumed the entire input once at that shift using opts (the
// "canonical" second pass described in spec section 4.3). The discriminator
// pass itself is discarded; only its determination of whether a non-zero
// active resolution was reached is used.
//
// Search returns decode.ErrAlignmentNotFound if no shift in [0,10) locks.
func (re *Realigner) Search(opts decode.Options) (shift uint, canonical *decode.Pass, err error) {
	for s := uint(0); s < 10; s++ {
		locked, err := re.trialLocks(s)
		if err != nil {
			return 0, nil, err
		}
		if !locked {
			continue
		}

		if _, err := re.r.Seek(0, io.SeekStart); err != nil {
			return 0, nil, errors.Wrap(err, "cannot rewind input for canonical pass")
		}
		pass := decode.NewPass(opts)
		src := NewSource(re.r, s)
		if err := pass.Run(src); err != nil {
			return 0, nil, err
		}
		return s, pass, nil
	}
	return 0, nil, errors.Wrapf(decode.ErrAlignmentNotFound, "tried shifts 0-9")
}

// trialLocks runs a discriminator pass at the given shift (discarding its
// output) and reports whether the state machine reached a non-zero active
// resolution by the time the first frame completed.
func (re *Realigner) trialLocks(shift uint) (bool, error) {
	if _, err := re.r.Seek(0, io.SeekStart); err != nil {
		return false, errors.Wrap(err, "cannot rewind input for trial pass")
	}
	pass := decode.NewPass(decode.Options{OneFrame: true})
	src := NewSource(re.r, shift)
	err := pass.Run(src)
	if err != nil && errors.Cause(err) != decode.ErrAlignmentNotFound {
		return false, err
	}
	res := pass.ActiveResolution()
	return res.X > 0 && res.Y > 0, nil
}
