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

package packetanalyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/liquidfortress/packetanalyzer/types"
)

type SupervisorOptions struct {
	// Files are the capture files to analyse.
	Files []string
	// SnifferDriverOptions is the template every file's driver options are
	// copied from; its Filename is ignored.
	SnifferDriverOptions types.SnifferDriverOptions
	Mode                 types.Mode
	SynFloodOptions      SynFloodOptions
	// Concurrency limits how many captures are analysed at once. Zero
	// means one per CPU.
	Concurrency int
	Logger      *slog.Logger
}

// Supervisor analyses a set of capture files, each with its own
// CaptureSummary, and stops them all on interrupt.
type Supervisor struct {
	options   SupervisorOptions
	summaries []*CaptureSummary
	log       *slog.Logger
}

func NewSupervisor(options SupervisorOptions) *Supervisor {
	logger := options.Logger
	if logger == nil {
		logger = discardLogger()
	}
	names := captureNames(options.Files)
	summaries := make([]*CaptureSummary, len(options.Files))
	for i := range options.Files {
		summaries[i] = NewCaptureSummary(names[i], options.Mode, options.SynFloodOptions, logger)
	}
	return &Supervisor{
		options:   options,
		summaries: summaries,
		log:       logger,
	}
}

// captureNames names each capture after its file's base name. Base names
// shared by several files get the file's position appended, starting at 1.
func captureNames(files []string) []string {
	seen := make(map[string]int, len(files))
	for _, file := range files {
		seen[filepath.Base(file)] += 1
	}
	names := make([]string, len(files))
	for i, file := range files {
		name := filepath.Base(file)
		if seen[name] > 1 {
			name = fmt.Sprintf("%s#%d", name, i+1)
		}
		names[i] = name
	}
	return names
}

// Summaries returns one CaptureSummary per file, in the order given.
func (b *Supervisor) Summaries() []*CaptureSummary {
	return b.summaries
}

// Run analyses every file and returns the first error met. The remaining
// captures are cancelled once one fails.
func (b *Supervisor) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	limit := b.options.Concurrency
	if limit <= 0 {
		limit = runtime.NumCPU()
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, file := range b.options.Files {
		summary := b.summaries[i]
		options := b.options.SnifferDriverOptions
		options.Filename = file
		g.Go(func() error {
			sniffer := NewSniffer(&options, summary, b.log.With("capture", summary.Name))
			return sniffer.Run(ctx)
		})
	}
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		b.log.Info("graceful shutdown: user force quit")
	}
	return err
}
