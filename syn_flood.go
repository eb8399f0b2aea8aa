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
	"sort"
	"time"

	"github.com/liquidfortress/packetanalyzer/types"
)

const (
	// DefaultSynFloodThreshold is the number of pending half-open SYNs a
	// single destination may accumulate before an alert is raised.
	DefaultSynFloodThreshold = 100
)

// PacketMetadata identifies the packet a half-open SYN was seen in.
type PacketMetadata struct {
	Flow      types.FlowKey
	Seq       uint64
	Length    int
	Timestamp time.Time
	Number    uint64
}

// NewPacketMetadata returns the metadata of a decoded packet.
func NewPacketMetadata(p *types.TcpPacket) PacketMetadata {
	return PacketMetadata{
		Flow:      p.Flow,
		Seq:       p.Seq,
		Length:    p.Length,
		Timestamp: p.Timestamp,
		Number:    p.Number,
	}
}

// SynFloodOptions are user set parameters of the SYN flood heuristic.
type SynFloodOptions struct {
	// Threshold is exceeded when a destination has more than this many
	// pending SYNs. Zero or less means DefaultSynFloodThreshold.
	Threshold int
	// Window, when non-zero, only counts pending SYNs captured at most
	// this long before the SYN being evaluated. Older entries stay
	// pending but no longer count. Zero counts the entire capture.
	Window time.Duration
	// Logger, if set, receives every alert as it is raised.
	Logger types.Logger
}

// SynFloodDetector tracks, per destination endpoint, the SYNs that have
// not yet been answered by a valid SYN-ACK and raises a single alert for
// a destination once too many of them pile up.
//
// Pending entries are only removed by AckReceived; SYNs that are never
// answered stay pending for the whole analysis.
type SynFloodDetector struct {
	options SynFloodOptions
	pending map[types.Endpoint][]PacketMetadata
	alerted map[types.Endpoint]bool
	alerts  []*types.Event
	log     *slog.Logger
}

// NewSynFloodDetector returns a SynFloodDetector with no pending SYNs.
func NewSynFloodDetector(options SynFloodOptions, logger *slog.Logger) *SynFloodDetector {
	if options.Threshold <= 0 {
		options.Threshold = DefaultSynFloodThreshold
	}
	if logger == nil {
		logger = discardLogger()
	}
	return &SynFloodDetector{
		options: options,
		pending: make(map[types.Endpoint][]PacketMetadata),
		alerted: make(map[types.Endpoint]bool),
		alerts:  make([]*types.Event, 0),
		log:     logger,
	}
}

func (d *SynFloodDetector) Threshold() int {
	return d.options.Threshold
}

// Detect records a new half-open SYN towards destination and evaluates
// the threshold. It returns the alert if this SYN raised one.
func (d *SynFloodDetector) Detect(destination types.Endpoint, meta PacketMetadata, summary RegistrySummary) *types.Event {
	d.pending[destination] = append(d.pending[destination], meta)
	if d.alerted[destination] {
		return nil
	}
	count := d.countPending(destination, meta.Timestamp)
	if count <= d.options.Threshold {
		return nil
	}

	event := &types.Event{
		Type:                   types.EventSynFlood,
		Destination:            destination,
		Flow:                   meta.Flow,
		Time:                   meta.Timestamp,
		PacketCount:            meta.Number,
		PendingSyns:            count,
		Threshold:              d.options.Threshold,
		ActiveConnections:      summary.ActiveConnections,
		EstablishedConnections: summary.EstablishedConnections,
	}
	d.alerted[destination] = true
	d.alerts = append(d.alerts, event)
	d.log.Warn("possible SYN flood", "destination", destination, "pending", count, "threshold", d.options.Threshold, "packet", meta.Number)
	if d.options.Logger != nil {
		d.options.Logger.Log(event)
	}
	return event
}

func (d *SynFloodDetector) countPending(destination types.Endpoint, now time.Time) int {
	entries := d.pending[destination]
	if d.options.Window <= 0 {
		return len(entries)
	}
	cutoff := now.Add(-d.options.Window)
	count := 0
	for _, entry := range entries {
		if !entry.Timestamp.Before(cutoff) {
			count += 1
		}
	}
	return count
}

// AckReceived retires the pending SYN of meta.Flow, the client to server
// flow whose SYN-ACK was validated. It returns false if no such SYN was
// pending. Alerts already raised are kept.
func (d *SynFloodDetector) AckReceived(destination types.Endpoint, meta PacketMetadata) bool {
	entries := d.pending[destination]
	for i, entry := range entries {
		if entry.Flow != meta.Flow {
			continue
		}
		entries = append(entries[:i], entries[i+1:]...)
		if len(entries) == 0 {
			delete(d.pending, destination)
		} else {
			d.pending[destination] = entries
		}
		return true
	}
	d.log.Debug("SYN-ACK without pending SYN", "destination", destination, "flow", meta.Flow)
	return false
}

// Pending returns the number of unanswered SYNs towards destination.
func (d *SynFloodDetector) Pending(destination types.Endpoint) int {
	return len(d.pending[destination])
}

// Destinations returns every destination with pending SYNs, ordered by
// their string form.
func (d *SynFloodDetector) Destinations() []types.Endpoint {
	destinations := make([]types.Endpoint, 0, len(d.pending))
	for destination := range d.pending {
		destinations = append(destinations, destination)
	}
	sort.Slice(destinations, func(i, j int) bool {
		return destinations[i].String() < destinations[j].String()
	})
	return destinations
}

// Alerts returns the raised alerts in the order they were raised.
func (d *SynFloodDetector) Alerts() []*types.Event {
	alerts := make([]*types.Event, len(d.alerts))
	copy(alerts, d.alerts)
	return alerts
}
