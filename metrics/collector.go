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

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	packetanalyzer "github.com/liquidfortress/packetanalyzer"
)

// CaptureCollector exposes the counters of analysed captures. Collect
// reads the summaries without locking, so it must only be gathered once
// their captures have been fully processed.
type CaptureCollector struct {
	summaries []*packetanalyzer.CaptureSummary

	packets           *prometheus.Desc
	tcpPackets        *prometheus.Desc
	activeConnections *prometheus.Desc
	closedConnections *prometheus.Desc
	established       *prometheus.Desc
	uniqueAddresses   *prometheus.Desc
	flowBytes         *prometheus.Desc
	synFloodAlerts    *prometheus.Desc
	pendingSyns       *prometheus.Desc
}

func NewCaptureCollector(summaries ...*packetanalyzer.CaptureSummary) *CaptureCollector {
	return &CaptureCollector{
		summaries: summaries,
		packets: prometheus.NewDesc(
			"packetanalyzer_packets_total", "Number of frames read from the capture",
			[]string{"capture"}, nil,
		),
		tcpPackets: prometheus.NewDesc(
			"packetanalyzer_tcp_packets_total", "Number of TCP segments dispatched",
			[]string{"capture"}, nil,
		),
		activeConnections: prometheus.NewDesc(
			"packetanalyzer_active_connections", "Number of connections whose teardown did not complete",
			[]string{"capture"}, nil,
		),
		closedConnections: prometheus.NewDesc(
			"packetanalyzer_closed_connections", "Number of connections that completed their teardown",
			[]string{"capture"}, nil,
		),
		established: prometheus.NewDesc(
			"packetanalyzer_established_connections_total", "Number of completed three way handshakes",
			[]string{"capture"}, nil,
		),
		uniqueAddresses: prometheus.NewDesc(
			"packetanalyzer_unique_ip_addresses", "Number of distinct IP addresses seen",
			[]string{"capture"}, nil,
		),
		flowBytes: prometheus.NewDesc(
			"packetanalyzer_flow_bytes_total", "TCP bytes counted towards tracked connections",
			[]string{"capture"}, nil,
		),
		synFloodAlerts: prometheus.NewDesc(
			"packetanalyzer_syn_flood_alerts_total", "Number of destinations flagged as SYN flooded",
			[]string{"capture"}, nil,
		),
		pendingSyns: prometheus.NewDesc(
			"packetanalyzer_pending_syns", "Half open SYNs never answered by a valid SYN-ACK",
			[]string{"capture", "destination"}, nil,
		),
	}
}

func (c *CaptureCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.packets
	ch <- c.tcpPackets
	ch <- c.activeConnections
	ch <- c.closedConnections
	ch <- c.established
	ch <- c.uniqueAddresses
	ch <- c.flowBytes
	ch <- c.synFloodAlerts
	ch <- c.pendingSyns
}

func (c *CaptureCollector) Collect(ch chan<- prometheus.Metric) {
	for _, summary := range c.summaries {
		name := summary.Name
		registry := summary.Registry
		ch <- prometheus.MustNewConstMetric(c.packets, prometheus.CounterValue, float64(summary.Packets), name)
		ch <- prometheus.MustNewConstMetric(c.tcpPackets, prometheus.CounterValue, float64(summary.TcpPackets), name)
		ch <- prometheus.MustNewConstMetric(c.activeConnections, prometheus.GaugeValue, float64(registry.ActiveCount()), name)
		ch <- prometheus.MustNewConstMetric(c.closedConnections, prometheus.GaugeValue, float64(registry.ClosedCount()), name)
		ch <- prometheus.MustNewConstMetric(c.established, prometheus.CounterValue, float64(registry.EstablishedCount()), name)
		ch <- prometheus.MustNewConstMetric(c.uniqueAddresses, prometheus.GaugeValue, float64(registry.UniqueAddressCount()), name)
		ch <- prometheus.MustNewConstMetric(c.flowBytes, prometheus.CounterValue, float64(registry.TotalBytes()), name)
		ch <- prometheus.MustNewConstMetric(c.synFloodAlerts, prometheus.CounterValue, float64(len(summary.Detector.Alerts())), name)
		for _, destination := range summary.Detector.Destinations() {
			ch <- prometheus.MustNewConstMetric(c.pendingSyns, prometheus.GaugeValue,
				float64(summary.Detector.Pending(destination)), name, destination.String())
		}
	}
}

// WriteTextfile writes the collected metrics in the text exposition
// format for node_exporter's textfile collector.
func WriteTextfile(filename string, collector *CaptureCollector) error {
	registry := prometheus.NewRegistry()
	if err := registry.Register(collector); err != nil {
		return err
	}
	return prometheus.WriteToTextfile(filename, registry)
}
