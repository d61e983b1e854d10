/*
NAME
  netpbm.go

DESCRIPTION
  netpbm.go provides an optional thin formatter that wraps the raw decoded
  RGB byte stream with a netpbm-style "P6" binary image header, rewriting
  the header in place once the final width and height are known.

AUTHOR
  Tomasz Gorochowik <tgorochowik@gmail.com>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package netpbm wraps a raw RGB byte stream (as produced by package
// decode) with a netpbm "P6" binary header. The header is fixed-width so
// it can be written as a placeholder up front and patched once the true
// width/height are known at the end of the pass, following the
// construct-then-patch shape of codec/wav's in-memory WAV header, adapted
// for a stream that cannot be buffered in memory (see DESIGN.md).
package netpbm

import (
	"fmt"
	"io"
)

// dimWidth is the number of decimal digits in each zero-padded dimension
// field of the "P6 WWW... HHH... 255\n" header. The fields are fixed-width
// so the header size never changes once written.
const dimWidth = 20

// Writer wraps an io.WriteSeeker with a netpbm P6 header, patched at Close.
type Writer struct {
	w io.WriteSeeker
}

// NewWriter writes a placeholder P6 header to w and returns a Writer ready
// to have the raw RGB body written to it via Write.
func NewWriter(w io.WriteSeeker) (*Writer, error) {
	nw := &Writer{w: w}
	if err := nw.writeHeader(0, 0); err != nil {
		return nil, fmt.Errorf("could not write placeholder header: %w", err)
	}
	return nw, nil
}

// Write appends raw RGB body bytes.
func (nw *Writer) Write(p []byte) (int, error) {
	return nw.w.Write(p)
}

// Close patches the header in place with the measured width and height.
// width/height are in pixels; the caller (the decoded-image formatter)
// is responsible for knowing the final measured resolution (typically
// decode.Pass.TotalResolution).
func (nw *Writer) Close(width, height uint64) error {
	if _, err := nw.w.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("could not seek to header: %w", err)
	}
	return nw.writeHeader(width, height)
}

func (nw *Writer) writeHeader(width, height uint64) error {
	header := fmt.Sprintf("P6 %0*d %0*d 255\n", dimWidth, width, dimWidth, height)
	_, err := nw.w.Write([]byte(header))
	return err
}

// HeaderSize returns the number of bytes occupied by the header, useful
// for callers that want to know where the raw body begins.
func HeaderSize() int {
	return len(fmt.Sprintf("P6 %0*d %0*d 255\n", dimWidth, 0, dimWidth, 0))
}
