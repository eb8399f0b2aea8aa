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
	"fmt"
	"io"

	"github.com/fatih/color"

	packetanalyzer "github.com/liquidfortress/packetanalyzer"
	"github.com/liquidfortress/packetanalyzer/types"
)

var (
	heading = color.New(color.FgCyan, color.Bold)
	closed  = color.New(color.FgGreen)
	active  = color.New(color.FgYellow)
	alert   = color.New(color.FgRed, color.Bold)
)

// printSummary prints what was learnt about one capture: the counters,
// every closed connection and, in attack mode, the SYN flood alerts.
func printSummary(w io.Writer, summary *packetanalyzer.CaptureSummary, showActive bool) {
	registry := summary.Registry
	heading.Fprintf(w, "=== %s: %s ===\n", summary.Name, summary.Dispatcher.Mode())
	fmt.Fprintf(w, "Packets: %d (TCP: %d)\n", summary.Packets, summary.TcpPackets)
	fmt.Fprintf(w, "Unique IP Addresses: %d\n", registry.UniqueAddressCount())
	fmt.Fprintf(w, "Established Connections: %d\n", registry.EstablishedCount())
	fmt.Fprintf(w, "Closed Connections: %d\n", registry.ClosedCount())
	fmt.Fprintf(w, "Active Connections: %d\n", registry.ActiveCount())
	fmt.Fprintf(w, "Total Bytes in Flows: %d\n", registry.TotalBytes())

	for _, conn := range registry.Closed() {
		fmt.Fprintln(w)
		closed.Fprint(w, conn.Report())
	}
	if showActive {
		for _, conn := range registry.Active() {
			fmt.Fprintln(w)
			active.Fprintf(w, "State: %s\n", conn.State())
			active.Fprint(w, conn.Report())
		}
	}
	if summary.Dispatcher.Mode() != types.PossibleAttacksAnalysis {
		return
	}
	fmt.Fprintln(w)
	alerts := summary.Detector.Alerts()
	if len(alerts) == 0 {
		fmt.Fprintf(w, "No possible SYN flood detected (threshold %d)\n", summary.Detector.Threshold())
		return
	}
	for _, event := range alerts {
		alert.Fprintf(w, "Possible SYN flood against %s: %d pending SYNs exceeded threshold %d at packet %d (%s)\n",
			event.Destination, event.PendingSyns, event.Threshold, event.PacketCount, event.Time.UTC().Format("2006-01-02T15:04:05.000000Z"))
	}
}
