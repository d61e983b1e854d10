/*
NAME
  tda/main.go

DESCRIPTION
  tda (tmds decode analyzer) decodes a raw captured TMDS word stream into
  an RGB image, recovering the unknown bit-shift alignment if required.
  Input is read from the file given by the -in flag and raw (or, with
  -netpbm, netpbm P6) decoded RGB output is written to the file given by
  -out. Channel statistics and measured resolutions are reported through
  the log at Info level.

AUTHOR
  Tomasz Gorochowik <tgorochowik@gmail.com>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package main

import (
	"flag"
	"io"
	"os"

	"github.com/ausocean/utils/logging"
	"github.com/pkg/errors"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/tgorochowik/tmds2rgb/align"
	"github.com/tgorochowik/tmds2rgb/container/netpbm"
	"github.com/tgorochowik/tmds2rgb/decode"
)

// Logging related constants.
const (
	logMaxSize   = 100 // MB
	logMaxBackup = 10
	logMaxAge    = 28 // days
	logSuppress  = true
)

// Errors that can be encountered while setting up I/O.
var (
	ErrInputOpenFailed  = errors.New("tda: could not open input file")
	ErrOutputOpenFailed = errors.New("tda: could not create output file")
)

func main() {
	inPtr := flag.String("in", "", "path to the raw captured TMDS word stream")
	outPtr := flag.String("out", "out.rgb", "path to write the decoded image to")
	logPtr := flag.String("log", "", "path to a log file; if empty, logs go to stderr only")
	verbosityPtr := flag.Int("verbosity", int(logging.Info), "log verbosity (0=Debug .. 4=Fatal)")

	alignPtr := flag.Bool("align", false, "drop output pixels until data is aligned to a VSYNC edge")
	oneFramePtr := flag.Bool("one_frame", false, "stop after the first complete frame (implies -align)")
	showSyncsPtr := flag.Bool("show_syncs", false, "render sentinel colors for control pixels instead of skipping them")
	channelInfoPtr := flag.Bool("channel_info", false, "log per-channel control token counts at the end of the pass")
	showResPtr := flag.Bool("show_resolution", false, "log the measured active resolution")
	showResVPtr := flag.Bool("show_resolution_virtual", false, "log the measured virtual (HSYNC-to-HSYNC) resolution")
	showResTotalPtr := flag.Bool("show_resolution_total", false, "log the total output resolution")
	netpbmPtr := flag.Bool("netpbm", false, "wrap the decoded output in a netpbm P6 header")
	flag.Parse()

	var logWriter io.Writer = os.Stderr
	if *logPtr != "" {
		fileLog := &lumberjack.Logger{
			Filename:   *logPtr,
			MaxSize:    logMaxSize,
			MaxBackups: logMaxBackup,
			MaxAge:     logMaxAge,
		}
		logWriter = io.MultiWriter(fileLog, os.Stderr)
	}
	l := logging.New(int8(*verbosityPtr), logWriter, logSuppress)

	inFile, err := os.Open(*inPtr)
	if err != nil {
		l.Fatal(ErrInputOpenFailed.Error(), "path", *inPtr, "error", err.Error())
	}
	defer inFile.Close()

	outFile, err := os.Create(*outPtr)
	if err != nil {
		l.Fatal(ErrOutputOpenFailed.Error(), "path", *outPtr, "error", err.Error())
	}
	defer outFile.Close()

	var out io.Writer = outFile
	var pw *netpbm.Writer
	if *netpbmPtr {
		pw, err = netpbm.NewWriter(outFile)
		if err != nil {
			l.Fatal("could not write netpbm header", "error", err.Error())
		}
		out = pw
	}

	opts := decode.Options{
		Align:     *alignPtr,
		OneFrame:  *oneFramePtr,
		ShowSyncs: *showSyncsPtr,
		Output:    out,
	}

	l.Debug("searching for bit-shift alignment")
	re := align.NewRealigner(inFile)
	shift, pass, err := re.Search(opts)
	if err != nil {
		l.Fatal("alignment search failed", "error", err.Error())
	}
	l.Info("locked bit-shift alignment", "shift", shift)

	if pw != nil {
		x, y := pass.TotalResolution()
		if err := pw.Close(x, y); err != nil {
			l.Fatal("could not patch netpbm header", "error", err.Error())
		}
	}

	if *showResPtr {
		res := pass.ActiveResolution()
		l.Info("active resolution", "x", res.X, "y", res.Y)
	}
	if *showResVPtr {
		res := pass.VirtualResolution()
		l.Info("virtual resolution", "x", res.X, "y", res.Y)
	}
	if *showResTotalPtr {
		x, y := pass.TotalResolution()
		l.Info("total output resolution", "x", x, "y", y)
	}
	if *channelInfoPtr {
		for i, stats := range pass.Stats() {
			l.Info("channel stats", "channel", i, "blanks", stats.Blanks, "hsyncs", stats.Hsyncs,
				"vsyncs", stats.Vsyncs, "vhsyncs", stats.VHsyncs, "total", stats.Total())
		}
	}
}
