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
	"io"
	"log/slog"

	"github.com/liquidfortress/packetanalyzer/drivers"
	"github.com/liquidfortress/packetanalyzer/types"
)

// Sniffer reads every frame of one capture, decodes it and feeds the TCP
// packets to the capture's dispatcher in capture order.
type Sniffer struct {
	options          *types.SnifferDriverOptions
	summary          *CaptureSummary
	packetDataSource types.PacketDataSourceCloser
	log              *slog.Logger
}

// NewSniffer creates a Sniffer that opens options.Filename with the
// options.DAQ driver when run.
func NewSniffer(options *types.SnifferDriverOptions, summary *CaptureSummary, logger *slog.Logger) *Sniffer {
	if logger == nil {
		logger = discardLogger()
	}
	return &Sniffer{
		options: options,
		summary: summary,
		log:     logger,
	}
}

// NewSnifferFromSource creates a Sniffer reading an already opened source.
func NewSnifferFromSource(source types.PacketDataSourceCloser, summary *CaptureSummary, logger *slog.Logger) *Sniffer {
	i := NewSniffer(&types.SnifferDriverOptions{}, summary, logger)
	i.packetDataSource = source
	return i
}

func (i *Sniffer) setupHandle() error {
	if i.packetDataSource != nil {
		return nil
	}
	factory, ok := drivers.Drivers[i.options.DAQ]
	if !ok {
		return fmt.Errorf("%s sniffer not supported on this system", i.options.DAQ)
	}
	source, err := factory(i.options)
	if err != nil {
		return fmt.Errorf("opening %s: %w", i.options.Filename, err)
	}
	i.packetDataSource = source
	i.log.Info("starting packet capture", "daq", i.options.DAQ, "file", i.options.Filename)
	return nil
}

// Run processes the capture until end of file. A frame that carries a
// broken TCP segment stops the run with a *types.DecodeError.
func (i *Sniffer) Run(ctx context.Context) error {
	if err := i.setupHandle(); err != nil {
		return err
	}
	defer i.Close()

	decoder, err := types.NewDecoder(i.packetDataSource.LinkType())
	if err != nil {
		return err
	}
	registry := i.summary.Registry
	dispatcher := i.summary.Dispatcher
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, ci, err := i.packetDataSource.ReadPacketData()
		if err == io.EOF {
			i.log.Info("capture done", "packets", i.summary.Packets, "tcp", i.summary.TcpPackets)
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading packet %d: %w", i.summary.Packets+1, err)
		}
		i.summary.Packets += 1

		frame, err := decoder.Decode(data, ci, i.summary.Packets)
		if frame.HasIP {
			registry.AddAddress(frame.SrcAddr)
			registry.AddAddress(frame.DstAddr)
		}
		if err != nil {
			var decodeErr *types.DecodeError
			if errors.As(err, &decodeErr) {
				i.log.Error("decode failure", "packet", decodeErr.Number, "error", decodeErr.Err)
			}
			return err
		}
		if !frame.IsTCP {
			continue
		}
		i.summary.TcpPackets += 1
		dispatcher.Process(&frame.Packet)
	}
}

func (i *Sniffer) Close() error {
	if i.packetDataSource == nil {
		return nil
	}
	err := i.packetDataSource.Close()
	i.packetDataSource = nil
	return err
}
