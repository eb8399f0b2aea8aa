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
	"log/slog"

	"github.com/liquidfortress/packetanalyzer/types"
)

// CaptureSummary holds everything one analysis run learns about a single
// capture file. Nothing in it is shared with other captures.
type CaptureSummary struct {
	Name       string
	Registry   *ConnectionRegistry
	Detector   *SynFloodDetector
	Dispatcher *PacketDispatcher

	// Packets counts every frame read, TcpPackets those handed to the
	// dispatcher.
	Packets    uint64
	TcpPackets uint64
}

// NewCaptureSummary wires a fresh registry, detector and dispatcher for
// the capture called name. Diagnostics carry the capture name.
func NewCaptureSummary(name string, mode types.Mode, synFlood SynFloodOptions, logger *slog.Logger) *CaptureSummary {
	if logger == nil {
		logger = discardLogger()
	}
	logger = logger.With("capture", name)
	registry := NewConnectionRegistry(logger)
	detector := NewSynFloodDetector(synFlood, logger)
	return &CaptureSummary{
		Name:       name,
		Registry:   registry,
		Detector:   detector,
		Dispatcher: NewPacketDispatcher(registry, detector, mode, logger),
	}
}
