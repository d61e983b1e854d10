/*
NAME
  netpbm_test.go

DESCRIPTION
  netpbm_test.go provides tests for the P6 header writer in netpbm.go.

AUTHOR
  Tomasz Gorochowik <tgorochowik@gmail.com>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package netpbm

import (
	"bytes"
	"strings"
	"testing"
)

// seekBuf is an io.WriteSeeker backed by a plain byte slice, enough for
// exercising the header patch-in-place behaviour.
type seekBuf struct {
	buf []byte
	pos int
}

func (s *seekBuf) Write(p []byte) (int, error) {
	end := s.pos + len(p)
	if end > len(s.buf) {
		grown := make([]byte, end)
		copy(grown, s.buf)
		s.buf = grown
	}
	copy(s.buf[s.pos:end], p)
	s.pos = end
	return len(p), nil
}

func (s *seekBuf) Seek(offset int64, whence int) (int64, error) {
	if whence != 0 {
		panic("unsupported whence in test seekBuf")
	}
	s.pos = int(offset)
	return offset, nil
}

func TestWriterHeaderPatch(t *testing.T) {
	sb := &seekBuf{}
	w, err := NewWriter(sb)
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}

	body := []byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}
	if _, err := w.Write(body); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	if err := w.Close(2, 1); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	got := sb.buf
	headerLen := HeaderSize()
	header := string(got[:headerLen])

	if !strings.HasPrefix(header, "P6 ") {
		t.Errorf("header = %q, want prefix %q", header, "P6 ")
	}
	wantDims := "P6 " + strings.Repeat("0", dimWidth-1) + "2 " + strings.Repeat("0", dimWidth-1) + "1 "
	if !strings.HasPrefix(header, wantDims) {
		t.Errorf("header %q does not contain expected dimensions, want prefix %q", header, wantDims)
	}
	if !strings.HasSuffix(header, "255\n") {
		t.Errorf("header = %q, want suffix %q", header, "255\n")
	}
	if !bytes.Equal(got[headerLen:], body) {
		t.Errorf("body = %v, want %v", got[headerLen:], body)
	}
}

func TestHeaderSizeFixed(t *testing.T) {
	if HeaderSize() != len("P6 "+strings.Repeat("0", dimWidth)+" "+strings.Repeat("0", dimWidth)+" 255\n") {
		t.Errorf("HeaderSize() = %d, unexpected", HeaderSize())
	}
}
