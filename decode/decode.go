/*
NAME
  decode.go

DESCRIPTION
  decode.go implements the frame/line state machine and active/virtual
  resolution estimator that classifies an aligned TMDS pixel stream,
  tracks frame boundaries, counts per-channel control tokens, and writes
  the decoded image when requested.

AUTHOR
  Tomasz Gorochowik <tgorochowik@gmail.com>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package decode implements the TMDS frame/line state machine and
// resolution estimator described in spec sections 4.4 and 4.5. It consumes
// an aligned pixel sequence (see package align) and produces per-channel
// control-token statistics, active and virtual resolutions, and (when
// requested) a decoded RGB image.
package decode

import (
	"io"

	"github.com/pkg/errors"

	"github.com/tgorochowik/tmds2rgb/codec/tmds"
)

// ErrAlignmentNotFound is returned when a pass cannot establish a valid
// frame: either the realigner exhausted all 10 candidate shifts without
// one locking (spec section 7), or, per spec section 9 open question (b),
// OneFrame was requested but data never aligned to a VSYNC edge before the
// source was exhausted.
var ErrAlignmentNotFound = errors.New("tmds2rgb: alignment not found")

// PixelSource is anything that can produce a sequence of aligned TMDS
// pixels, one at a time. align.Source implements this.
type PixelSource interface {
	// Next returns the next aligned pixel. ok is false once the source is
	// exhausted.
	Next() (tmds.Pixel, bool, error)
}

// ChannelStats counts control tokens observed on a single lane during a
// pass.
type ChannelStats struct {
	Blanks  uint64
	Hsyncs  uint64
	Vsyncs  uint64
	VHsyncs uint64
}

// Total returns the sum of all control token counts for the channel.
func (c ChannelStats) Total() uint64 {
	return c.Blanks + c.Hsyncs + c.Vsyncs + c.VHsyncs
}

// Resolution is a latched (X) and accumulated (Y) measurement of frame
// dimensions, per spec section 3.
type Resolution struct {
	X uint64
	Y uint64

	// locked is true once X has been latched; it is never unset.
	locked bool
	// lastCtrl is the index of the last control pixel seen for the
	// purpose of measuring the first gap greater than one. -1 means
	// "none seen yet" — using a signed sentinel rather than 0 avoids
	// misreading a control pixel at index 0 as "unset" (see SPEC_FULL.md).
	lastCtrl int64
}

func newResolution() Resolution {
	return Resolution{lastCtrl: -1}
}

// Options configures a Pass. It carries the three user-facing booleans of
// spec section 6 that change how the pass runs or what it writes; the
// reporting options (channel info and the resolutions) are applied by the
// caller to the finished Pass.
type Options struct {
	// Align drops pixels from output until data is aligned to a VSYNC
	// falling edge.
	Align bool

	// OneFrame terminates the pass at the second VSYNC falling edge.
	// Setting OneFrame implies Align (enforced by NewPass).
	OneFrame bool

	// ShowSyncs renders sentinel colors for control pixels in the output
	// instead of skipping them.
	ShowSyncs bool

	// Output receives the decoded image bytes. If nil, no image is
	// written (used for discriminator passes during alignment search).
	Output io.Writer
}

// sentinel colors for rendered control pixels, spec section 6. Values are
// 0xRRGGBB; written as three bytes low-to-high (blue, green, red) to match
// the d0,d1,d2 = blue,green,red channel order of an active pixel.
const (
	colorHsync  = 0x90C3D4
	colorVsync  = 0xC390D4
	colorVHsync = 0xD4A190
	colorBlank  = 0xA1D490
)

// Pass owns all state for a single run of the frame state machine over an
// aligned pixel sequence. A Pass is not reused across runs; call NewPass
// for each trial or canonical pass.
type Pass struct {
	opts Options

	stats [3]ChannelStats

	res  Resolution // active resolution, measured between control regions.
	resV Resolution // virtual resolution, measured HSYNC-to-HSYNC.

	// totalY/totalYVirtual accumulate the "total output resolution"
	// line counts reported by TotalResolution (spec section 4.4).
	totalY        uint64
	totalYVirtual uint64

	dataAligned     bool
	firstFrameEnded bool

	prevCtrl  bool
	prevHsync bool
	prevVsync bool

	index int64
}

// NewPass returns a new Pass configured with opts. OneFrame implies Align.
func NewPass(opts Options) *Pass {
	if opts.OneFrame {
		opts.Align = true
	}
	return &Pass{
		opts: opts,
		res:  newResolution(),
		resV: newResolution(),
	}
}

// Run drives the state machine to completion over src, classifying every
// pixel, updating statistics and resolutions, and writing decoded output
// when opts.Output is non-nil. It returns ErrAlignmentNotFound if
// opts.OneFrame was set but the pass never reached a VSYNC falling edge
// before src was exhausted (spec section 9, open question (b)).
func (p *Pass) Run(src PixelSource) error {
	for {
		px, ok, err := src.Next()
		if err != nil {
			return errors.Wrap(err, "reading aligned pixel")
		}
		if !ok {
			break
		}

		terminate := p.advance(px)

		if err := p.emit(px); err != nil {
			return errors.Wrap(err, "writing decoded output")
		}

		if terminate {
			break
		}
	}

	if p.opts.OneFrame && !p.dataAligned {
		return errors.Wrapf(ErrAlignmentNotFound, "never reached a VSYNC falling edge")
	}
	return nil
}

// advance updates stats, resolutions and frame-boundary state for one
// aligned pixel, and reports whether the pass should terminate after this
// pixel (OneFrame reaching the second VSYNC falling edge).
func (p *Pass) advance(px tmds.Pixel) (terminate bool) {
	curCtrl := tmds.IsCtrl(px)
	curHsync := tmds.IsHsync(px)
	curVsync := tmds.IsVsync(px)

	p.updateStats(px)
	p.updateActiveWidth(curCtrl)
	p.updateVirtualWidth(curHsync)

	if p.dataAligned && !p.firstFrameEnded {
		if curCtrl && !p.prevCtrl {
			p.res.Y++
		}
		if curHsync && !p.prevHsync {
			p.resV.Y++
		}
	}

	// Total line counters: gated the same way the reference counts them
	// (falling edges of the control predicate, not rising).
	countTotals := true
	if p.opts.OneFrame || p.opts.Align {
		countTotals = p.dataAligned && !(p.opts.OneFrame && p.firstFrameEnded)
	}
	if countTotals {
		if p.prevCtrl && !curCtrl {
			p.totalY++
		}
		if p.prevHsync && !curHsync {
			p.totalYVirtual++
		}
	}

	// Frame border: a VSYNC falling edge either aligns data for the first
	// time or closes the first frame.
	if !curVsync && p.prevVsync {
		if p.dataAligned {
			p.firstFrameEnded = true
			if p.opts.OneFrame {
				terminate = true
			}
		} else {
			p.dataAligned = true
		}
	}

	p.prevCtrl = curCtrl
	p.prevHsync = curHsync
	p.prevVsync = curVsync
	p.index++

	return terminate
}

// updateStats increments the per-lane control token counters.
func (p *Pass) updateStats(px tmds.Pixel) {
	for lane, sym := range px {
		switch sym {
		case tmds.Blank:
			p.stats[lane].Blanks++
		case tmds.Hsync:
			p.stats[lane].Hsyncs++
		case tmds.Vsync:
			p.stats[lane].Vsyncs++
		case tmds.VHsync:
			p.stats[lane].VHsyncs++
		}
	}
}

// updateActiveWidth latches Resolution.X for the active resolution once
// a gap greater than one is seen between control pixels (spec section 4.4).
func (p *Pass) updateActiveWidth(curCtrl bool) {
	if p.res.locked || !curCtrl {
		return
	}
	if p.res.lastCtrl >= 0 && p.index-p.res.lastCtrl > 1 {
		p.res.X = uint64(p.index - p.res.lastCtrl - 1)
		p.res.locked = true
		return
	}
	p.res.lastCtrl = p.index
}

// updateVirtualWidth latches Resolution.X for the virtual (HSYNC-to-HSYNC)
// resolution on the rising edge of HSYNC, without the "-1" used for the
// active measurement (spec section 4.4).
func (p *Pass) updateVirtualWidth(curHsync bool) {
	if !curHsync || p.prevHsync {
		return
	}
	if p.resV.locked {
		return
	}
	if p.resV.lastCtrl >= 0 && p.index-p.resV.lastCtrl > 1 {
		p.resV.X = uint64(p.index - p.resV.lastCtrl)
		p.resV.locked = true
		return
	}
	p.resV.lastCtrl = p.index
}

// emit writes the decoded bytes for px to p.opts.Output, if set, honouring
// Align and ShowSyncs.
func (p *Pass) emit(px tmds.Pixel) error {
	if p.opts.Output == nil {
		return nil
	}
	if p.opts.Align && !p.dataAligned {
		return nil
	}

	class := tmds.Classify(px)
	var buf [3]byte
	switch class {
	case tmds.ClassActive:
		buf[0] = tmds.Decode(px[0])
		buf[1] = tmds.Decode(px[1])
		buf[2] = tmds.Decode(px[2])
	default:
		if !p.opts.ShowSyncs {
			return nil
		}
		var color uint32
		switch class {
		case tmds.ClassVHsync:
			color = colorVHsync
		case tmds.ClassHsync:
			color = colorHsync
		case tmds.ClassVsync:
			color = colorVsync
		default:
			color = colorBlank
		}
		buf[0] = byte(color)
		buf[1] = byte(color >> 8)
		buf[2] = byte(color >> 16)
	}

	_, err := p.opts.Output.Write(buf[:])
	return err
}

// Stats returns the final per-lane control token counts.
func (p *Pass) Stats() [3]ChannelStats {
	return p.stats
}

// ActiveResolution returns the active (control-token-excluded) resolution.
func (p *Pass) ActiveResolution() Resolution {
	return p.res
}

// VirtualResolution returns the virtual (HSYNC-inclusive) resolution.
func (p *Pass) VirtualResolution() Resolution {
	return p.resV
}

// TotalResolution returns the "total output resolution" used when writing
// container headers: the X dimension is the virtual width if syncs are
// rendered, else the active width; the Y dimension is the matching
// accumulated line count (spec section 4.4).
func (p *Pass) TotalResolution() (x, y uint64) {
	if p.opts.ShowSyncs {
		return p.resV.X, p.totalYVirtual
	}
	return p.res.X, p.totalY
}
