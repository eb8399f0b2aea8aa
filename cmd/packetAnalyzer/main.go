/*
 *    packetanalyzer, passive TCP connection and SYN flood analysis
 *
 *    Copyright (C) 2026  The packetanalyzer Authors
 *
 *    This program is free software: you can redistribute it and/or modify
 *    it under the terms of the GNU General Public License as published by
 *    the Free Software Foundation, either version 3 of the License, or
 *    (at your option) any later version.
 *
 *    This program is distributed in the hope that it will be useful,
 *    but WITHOUT ANY WARRANTY; without even the implied warranty of
 *    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 *    GNU General Public License for more details.
 *
 *    You should have received a copy of the GNU General Public License
 *    along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	packetanalyzer "github.com/liquidfortress/packetanalyzer"
	"github.com/liquidfortress/packetanalyzer/drivers"
	"github.com/liquidfortress/packetanalyzer/logging"
	"github.com/liquidfortress/packetanalyzer/metrics"
	"github.com/liquidfortress/packetanalyzer/types"
)

const (
	// ExitFailure is returned for bad arguments and unreadable captures.
	ExitFailure = 1
	// ExitDecodeFailure is returned when a capture holds a frame that
	// announces TCP but is not a valid TCP segment.
	ExitDecodeFailure = 2
)

func main() {
	os.Exit(run())
}

// run returns the process exit status once every log is flushed.
func run() int {
	var (
		pcapfile          = flag.String("pcapfile", "", "pcap filename to read packets from; more files may follow as arguments")
		mode              = flag.String("mode", "basic", "analysis mode: basic, detailed or attacks")
		daq               = flag.String("daq", "pcapgo", fmt.Sprintf("Data AcQuisition packet source, one of %s", strings.Join(drivers.Names(), ", ")))
		filter            = flag.String("f", "", "BPF filter, libpcap DAQ only")
		logFile           = flag.String("o", "", "write diagnostics to this file instead of stderr")
		maxLogSize        = flag.Int("max_log_size", 10, "diagnostic log quota in megabytes")
		maxLogRotations   = flag.Int("max_log_rotations", 5, "number of diagnostic log files the quota is spread over")
		debug             = flag.Bool("debug", false, "log rejected packets and per packet traces")
		synFloodThreshold = flag.Int("syn_flood_threshold", packetanalyzer.DefaultSynFloodThreshold, "pending SYNs per destination before a SYN flood is reported")
		synFloodWindow    = flag.Duration("syn_flood_window", 0, "only count pending SYNs this recent, in capture time; 0 counts the whole capture")
		attackLogDir      = flag.String("attack_log_dir", "", "directory for JSON attack reports")
		metricsTextfile   = flag.String("metrics_textfile", "", "write Prometheus metrics to this file when done")
		showActive        = flag.Bool("show_active", false, "also print connections that never finished their teardown")
		noColor           = flag.Bool("no_color", false, "disable colored output")
		concurrency       = flag.Int("j", 0, "number of captures analysed at once, 0 for one per CPU")
	)
	flag.Parse()

	var diagnostics io.Writer = os.Stderr
	if *logFile != "" {
		writer, err := logging.NewRotatingQuotaWriter(*logFile, *maxLogSize, *maxLogRotations)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return ExitFailure
		}
		defer writer.Close()
		diagnostics = writer
	}
	logger := logging.NewDiagnosticLogger(diagnostics, *debug)
	color.NoColor = color.NoColor || *noColor

	files := flag.Args()
	if *pcapfile != "" {
		files = append([]string{*pcapfile}, files...)
	}
	if len(files) == 0 {
		return usage(logger, "must specify at least one pcap file")
	}
	analysisMode, err := types.ParseMode(*mode)
	if err != nil {
		return usage(logger, err.Error())
	}
	if *filter != "" && *daq != "libpcap" {
		return usage(logger, "only the libpcap DAQ supports BPF filters")
	}

	synFloodOptions := packetanalyzer.SynFloodOptions{
		Threshold: *synFloodThreshold,
		Window:    *synFloodWindow,
	}
	if *attackLogDir != "" {
		attackLogger := logging.NewAttackJsonLogger(*attackLogDir, logger)
		attackLogger.Start()
		defer attackLogger.Stop()
		synFloodOptions.Logger = attackLogger
	}

	logger.Info("analysing captures", "files", len(files), "mode", analysisMode, "daq", *daq)
	started := time.Now()
	supervisor := packetanalyzer.NewSupervisor(packetanalyzer.SupervisorOptions{
		Files: files,
		SnifferDriverOptions: types.SnifferDriverOptions{
			DAQ:     *daq,
			Snaplen: 65536,
			Filter:  *filter,
		},
		Mode:            analysisMode,
		SynFloodOptions: synFloodOptions,
		Concurrency:     *concurrency,
		Logger:          logger,
	})
	if err := supervisor.Run(context.Background()); err != nil {
		var decodeErr *types.DecodeError
		if errors.As(err, &decodeErr) {
			logger.Error("analysis aborted", "error", err)
			return ExitDecodeFailure
		}
		logger.Error("analysis failed", "error", err)
		return ExitFailure
	}
	logger.Info("analysis done", "elapsed", time.Since(started))

	for _, summary := range supervisor.Summaries() {
		printSummary(os.Stdout, summary, *showActive)
	}
	if *metricsTextfile != "" {
		if err := metrics.WriteTextfile(*metricsTextfile, metrics.NewCaptureCollector(supervisor.Summaries()...)); err != nil {
			logger.Error("writing metrics", "file", *metricsTextfile, "error", err)
			return ExitFailure
		}
	}
	return 0
}

func usage(logger *slog.Logger, message string) int {
	logger.Error(message)
	flag.Usage()
	return ExitFailure
}
