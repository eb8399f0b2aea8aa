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

package types

import (
	"time"
)

// Logger receives attack events as they are raised.
type Logger interface {
	Log(r *Event)
}

const (
	// EventSynFlood is the Event.Type of a possible SYN flood alert.
	EventSynFlood = "syn-flood"
)

// Event describes one suspected attack observed in a capture.
type Event struct {
	Type string
	// Destination is the attacked server endpoint.
	Destination Endpoint
	// Flow is the flow of the SYN that pushed the destination over the threshold.
	Flow FlowKey
	// Time is the capture timestamp of that SYN.
	Time time.Time
	// PacketCount is that SYN's position in the capture, starting at 1.
	PacketCount uint64
	// PendingSyns is the number of half-open SYNs counted when the alert fired.
	PendingSyns int
	Threshold   int
	// ActiveConnections and EstablishedConnections snapshot the registry.
	ActiveConnections      int
	EstablishedConnections uint64
}
