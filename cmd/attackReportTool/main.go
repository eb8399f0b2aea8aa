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
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/fatih/color"

	"github.com/liquidfortress/packetanalyzer/logging"
)

var (
	title   = color.New(color.FgCyan, color.Bold)
	warning = color.New(color.FgRed)
)

func printEvent(w io.Writer, event logging.SerializedEvent) {
	warning.Fprintf(w, "Event Type: %s\nDestination: %s\n", event.Type, event.Destination)
	fmt.Fprintf(w, "Flow: %s\nTime: %s\n", event.Flow, event.Time)
	fmt.Fprintf(w, "Packet Number: %d\n", event.PacketCount)
	fmt.Fprintf(w, "Pending SYNs: %d Threshold: %d\n", event.PendingSyns, event.Threshold)
	fmt.Fprintf(w, "Active Connections: %d Established Connections: %d\n\n", event.ActiveConnections, event.EstablishedConnections)
}

func expandReport(w io.Writer, reportPath string) error {
	file, err := os.Open(reportPath)
	if err != nil {
		return err
	}
	defer file.Close()
	events, err := logging.ReadEvents(file)
	if err != nil {
		return fmt.Errorf("%s: %w", reportPath, err)
	}
	title.Fprintf(w, "attack report: %s\n", reportPath)
	for _, event := range events {
		printEvent(w, event)
	}
	return nil
}

// reportPaths expands directories into the attack reports they contain.
func reportPaths(args []string) ([]string, error) {
	paths := make([]string, 0, len(args))
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		found := make([]string, 0, len(entries))
		for _, entry := range entries {
			if !entry.IsDir() && logging.IsAttackReport(entry.Name()) {
				found = append(found, filepath.Join(arg, entry.Name()))
			}
		}
		sort.Strings(found)
		paths = append(paths, found...)
	}
	return paths, nil
}

func main() {
	noColor := flag.Bool("no_color", false, "disable colored output")
	flag.Parse()
	color.NoColor = color.NoColor || *noColor

	reports, err := reportPaths(flag.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	for i := 0; i < len(reports); i++ {
		if err := expandReport(os.Stdout, reports[i]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
}
