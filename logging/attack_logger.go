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

package logging

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/liquidfortress/packetanalyzer/types"
)

const attackReportSuffix = ".attackreport.json"

// SerializedEvent is the JSON form of one attack report line.
type SerializedEvent struct {
	Type                   string
	Time                   time.Time
	PacketCount            uint64
	Destination            string
	Flow                   string
	PendingSyns            int
	Threshold              int
	ActiveConnections      int
	EstablishedConnections uint64
}

// AttackJsonLogger is responsible for recording all attack reports as JSON
// objects, one file per attacked destination.
type AttackJsonLogger struct {
	ArchiveDir       string
	stopChan         chan bool
	attackReportChan chan *types.Event
	openWriter       func(name string) (io.WriteCloser, error)
	log              *slog.Logger
}

// NewAttackJsonLogger returns a pointer to a AttackJsonLogger struct.
// Write failures are reported to logger.
func NewAttackJsonLogger(archiveDir string, logger *slog.Logger) *AttackJsonLogger {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	a := AttackJsonLogger{
		ArchiveDir:       archiveDir,
		stopChan:         make(chan bool),
		attackReportChan: make(chan *types.Event),
		openWriter:       openAppend,
		log:              logger,
	}
	return &a
}

func openAppend(name string) (io.WriteCloser, error) {
	return os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
}

func (a *AttackJsonLogger) Start() {
	go a.receiveReports()
}

// Stop returns once every event handed to Log has been written.
func (a *AttackJsonLogger) Stop() {
	a.stopChan <- true
}

func (a *AttackJsonLogger) receiveReports() {
	for {
		select {
		case <-a.stopChan:
			return
		case event := <-a.attackReportChan:
			if err := a.SerializeAndWrite(event); err != nil {
				a.log.Error("writing attack report", "destination", event.Destination, "error", err)
			}
		}
	}
}

// Log is safe to call from several captures at once.
func (a *AttackJsonLogger) Log(event *types.Event) {
	a.attackReportChan <- event
}

func Serialize(event *types.Event) *SerializedEvent {
	return &SerializedEvent{
		Type:                   event.Type,
		Time:                   event.Time,
		PacketCount:            event.PacketCount,
		Destination:            event.Destination.String(),
		Flow:                   event.Flow.String(),
		PendingSyns:            event.PendingSyns,
		Threshold:              event.Threshold,
		ActiveConnections:      event.ActiveConnections,
		EstablishedConnections: event.EstablishedConnections,
	}
}

func (a *AttackJsonLogger) SerializeAndWrite(event *types.Event) error {
	return a.Publish(Serialize(event))
}

// ReportPath returns the attack report file of a destination.
func (a *AttackJsonLogger) ReportPath(destination string) string {
	return filepath.Join(a.ArchiveDir, destination+attackReportSuffix)
}

// Publish appends a JSON report to the attack report file for its destination.
func (a *AttackJsonLogger) Publish(event *SerializedEvent) error {
	b, err := json.Marshal(event)
	if err != nil {
		return err
	}
	writer, err := a.openWriter(a.ReportPath(event.Destination))
	if err != nil {
		return fmt.Errorf("error opening file: %w", err)
	}
	defer writer.Close()
	_, err = writer.Write([]byte(fmt.Sprintf("%s\n", string(b))))
	return err
}

// IsAttackReport reports whether name looks like a file written by
// AttackJsonLogger.
func IsAttackReport(name string) bool {
	return strings.HasSuffix(name, attackReportSuffix)
}

// ReadEvents decodes every report line of r. Blank lines are skipped.
func ReadEvents(r io.Reader) ([]SerializedEvent, error) {
	events := make([]SerializedEvent, 0)
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line += 1
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		event := SerializedEvent{}
		if err := json.Unmarshal([]byte(text), &event); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		events = append(events, event)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return events, nil
}
