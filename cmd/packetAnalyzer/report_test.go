package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	packetanalyzer "github.com/liquidfortress/packetanalyzer"
	"github.com/liquidfortress/packetanalyzer/types"
)

func init() {
	color.NoColor = true
}

var (
	client = types.MustParseEndpoint("10.0.0.1:1234")
	server = types.MustParseEndpoint("10.0.0.2:80")
)

func process(summary *packetanalyzer.CaptureSummary, src, dst types.Endpoint, flags string, seq, ack uint64) {
	summary.TcpPackets += 1
	summary.Packets += 1
	summary.Dispatcher.Process(&types.TcpPacket{
		Flow:   types.NewFlowKey(src, dst),
		SYN:    strings.Contains(flags, "S"),
		ACK:    strings.Contains(flags, "A"),
		FIN:    strings.Contains(flags, "F"),
		Seq:    seq,
		Ack:    ack,
		Length: 20,
		Number: summary.Packets,
	})
}

func TestPrintSummary(t *testing.T) {
	summary := packetanalyzer.NewCaptureSummary("session.pcap", types.BasicAnalysis, packetanalyzer.SynFloodOptions{}, nil)
	process(summary, client, server, "S", 1, 0)
	process(summary, server, client, "SA", 9, 2)
	process(summary, client, server, "A", 2, 10)
	process(summary, client, server, "F", 2, 10)
	process(summary, server, client, "FA", 10, 3)
	process(summary, client, server, "A", 3, 11)
	process(summary, types.MustParseEndpoint("10.0.0.3:1"), server, "S", 1, 0)

	var buffer bytes.Buffer
	printSummary(&buffer, summary, false)
	out := buffer.String()
	assert.True(t, strings.HasPrefix(out, "=== session.pcap: BASIC_ANALYSIS ===\n"))
	assert.Contains(t, out, "Packets: 7 (TCP: 7)\n")
	assert.Contains(t, out, "Unique IP Addresses: 3\n")
	assert.Contains(t, out, "Closed Connections: 1\n")
	assert.Contains(t, out, "Active Connections: 1\n")
	assert.Contains(t, out, "TCP Flow Details: 10.0.0.1:1234 => 10.0.0.2:80\n")
	assert.NotContains(t, out, "10.0.0.3:1 =>")
	assert.NotContains(t, out, "SYN flood")

	buffer.Reset()
	printSummary(&buffer, summary, true)
	assert.Contains(t, buffer.String(), "State: SYN_SENT\nTCP Flow Details: 10.0.0.3:1 => 10.0.0.2:80\n")
}

func TestPrintSummaryAlerts(t *testing.T) {
	summary := packetanalyzer.NewCaptureSummary("flood.pcap", types.PossibleAttacksAnalysis, packetanalyzer.SynFloodOptions{Threshold: 1}, nil)
	var buffer bytes.Buffer
	printSummary(&buffer, summary, false)
	assert.Contains(t, buffer.String(), "No possible SYN flood detected (threshold 1)\n")

	process(summary, client, server, "S", 1, 0)
	process(summary, types.MustParseEndpoint("10.0.0.3:1"), server, "S", 1, 0)
	buffer.Reset()
	printSummary(&buffer, summary, false)
	assert.Contains(t, buffer.String(), "Possible SYN flood against 10.0.0.2:80: 2 pending SYNs exceeded threshold 1 at packet 2")
}
