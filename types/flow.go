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
	"encoding/binary"
	"fmt"
	"net/netip"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// Endpoint is one end of a TCP flow: an IP address and a TCP port.
type Endpoint struct {
	Addr netip.Addr
	Port uint16
}

// NewEndpoint returns an Endpoint for the given address and port.
func NewEndpoint(addr netip.Addr, port uint16) Endpoint {
	return Endpoint{
		Addr: addr.Unmap(),
		Port: port,
	}
}

// MustParseEndpoint parses an "addr:port" string and panics on failure.
// It is meant for tests and static tables.
func MustParseEndpoint(s string) Endpoint {
	ap := netip.MustParseAddrPort(s)
	return NewEndpoint(ap.Addr(), ap.Port())
}

// String returns the "addr:port" form of the endpoint; IPv6 addresses
// are bracketed.
func (e Endpoint) String() string {
	return netip.AddrPortFrom(e.Addr, e.Port).String()
}

// FlowKey is used for tracking unidirectional TCP flows.
// FlowKey{A, B} and FlowKey{B, A} are different keys.
type FlowKey struct {
	Src Endpoint
	Dst Endpoint
}

// NewFlowKey returns the FlowKey for packets sent from src to dst
func NewFlowKey(src, dst Endpoint) FlowKey {
	return FlowKey{
		Src: src,
		Dst: dst,
	}
}

// NewFlowKeyFromFlows given a net flow (either ipv4 or ipv6) and TCP
// flow returns a FlowKey
func NewFlowKeyFromFlows(netFlow gopacket.Flow, tcpFlow gopacket.Flow) (FlowKey, error) {
	if tcpFlow.EndpointType() != layers.EndpointTCPPort {
		return FlowKey{}, fmt.Errorf("not a TCP port flow: %s", tcpFlow.EndpointType())
	}
	netSrc, netDst := netFlow.Endpoints()
	tcpSrc, tcpDst := tcpFlow.Endpoints()
	src, err := endpointFromRaw(netSrc.Raw(), tcpSrc.Raw())
	if err != nil {
		return FlowKey{}, err
	}
	dst, err := endpointFromRaw(netDst.Raw(), tcpDst.Raw())
	if err != nil {
		return FlowKey{}, err
	}
	return NewFlowKey(src, dst), nil
}

// NewFlowKeyFromLayers given an IPv4 or IPv6 flow and a TCP layer returns
// a FlowKey
func NewFlowKeyFromLayers(netFlow gopacket.Flow, tcpLayer *layers.TCP) (FlowKey, error) {
	return NewFlowKeyFromFlows(netFlow, tcpLayer.TransportFlow())
}

func endpointFromRaw(rawAddr, rawPort []byte) (Endpoint, error) {
	addr, ok := netip.AddrFromSlice(rawAddr)
	if !ok {
		return Endpoint{}, fmt.Errorf("invalid IP endpoint of length %d", len(rawAddr))
	}
	if len(rawPort) != 2 {
		return Endpoint{}, fmt.Errorf("invalid TCP port endpoint of length %d", len(rawPort))
	}
	return NewEndpoint(addr, binary.BigEndian.Uint16(rawPort)), nil
}

// String returns the string representation of a FlowKey
func (f FlowKey) String() string {
	return fmt.Sprintf("%s-%s", f.Src, f.Dst)
}

// Reverse returns the FlowKey of the opposite direction.
func (f FlowKey) Reverse() FlowKey {
	return NewFlowKey(f.Dst, f.Src)
}
