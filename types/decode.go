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
	"fmt"
	"net/netip"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// DecodeError is returned when a frame that is carrying TCP cannot be
// interpreted as a structurally valid TCP segment. It is fatal for the
// analysis run.
type DecodeError struct {
	Number uint64
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("packet %d is not a valid TCP segment: %v", e.Number, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Frame is the result of decoding one captured frame.
type Frame struct {
	// HasIP is set when an IPv4 or IPv6 header was decoded; SrcAddr and
	// DstAddr are then valid.
	HasIP   bool
	SrcAddr netip.Addr
	DstAddr netip.Addr
	// IsTCP is set when Packet holds a decoded TCP segment.
	IsTCP  bool
	Packet TcpPacket
}

// Decoder turns raw frames of a single link type into TcpPackets.
// IPv6 extension headers are skipped. Fragments are not reassembled and
// are treated as frames without TCP.
// A Decoder reuses its layers between calls and is not safe for
// concurrent use.
type Decoder struct {
	linkType layers.LinkType
	parser   *gopacket.DecodingLayerParser
	parser6  *gopacket.DecodingLayerParser
	decoded  []gopacket.LayerType

	eth      layers.Ethernet
	dot1q    layers.Dot1Q
	sll      layers.LinuxSLL
	loopback layers.Loopback
	ip4      layers.IPv4
	ip6      layers.IPv6
	ip6ext   layers.IPv6ExtensionSkipper
	tcp      layers.TCP
	payload  gopacket.Payload
}

// NewDecoder returns a Decoder for frames of the given link type.
func NewDecoder(linkType layers.LinkType) (*Decoder, error) {
	d := &Decoder{
		linkType: linkType,
		decoded:  make([]gopacket.LayerType, 0, 8),
	}
	first, err := d.firstLayer(nil)
	if err != nil {
		return nil, err
	}
	d.parser = d.newParser(first)
	if linkType == layers.LinkTypeRaw {
		d.parser6 = d.newParser(layers.LayerTypeIPv6)
	}
	return d, nil
}

func (d *Decoder) newParser(first gopacket.LayerType) *gopacket.DecodingLayerParser {
	return gopacket.NewDecodingLayerParser(first, &d.eth, &d.dot1q, &d.sll, &d.loopback, &d.ip4, &d.ip6, &d.ip6ext, &d.tcp, &d.payload)
}

// firstLayer maps the link type to the first layer to decode. Raw IP
// captures carry both IPv4 and IPv6, so the version nibble decides.
func (d *Decoder) firstLayer(data []byte) (gopacket.LayerType, error) {
	switch d.linkType {
	case layers.LinkTypeEthernet:
		return layers.LayerTypeEthernet, nil
	case layers.LinkTypeLinuxSLL:
		return layers.LayerTypeLinuxSLL, nil
	case layers.LinkTypeNull, layers.LinkTypeLoop:
		return layers.LayerTypeLoopback, nil
	case layers.LinkTypeIPv4:
		return layers.LayerTypeIPv4, nil
	case layers.LinkTypeIPv6:
		return layers.LayerTypeIPv6, nil
	case layers.LinkTypeRaw:
		if len(data) > 0 && data[0]>>4 == 6 {
			return layers.LayerTypeIPv6, nil
		}
		return layers.LayerTypeIPv4, nil
	}
	return gopacket.LayerTypeZero, fmt.Errorf("unsupported link type %s", d.linkType)
}

// Decode decodes one frame. number is the frame's position in the capture.
// Frames that do not carry TCP are returned with IsTCP unset and a nil
// error; a frame whose IP header announces TCP but whose TCP header does
// not parse yields a *DecodeError.
func (d *Decoder) Decode(data []byte, ci gopacket.CaptureInfo, number uint64) (Frame, error) {
	var frame Frame

	parser := d.parser
	if d.parser6 != nil {
		if first, _ := d.firstLayer(data); first == layers.LayerTypeIPv6 {
			parser = d.parser6
		}
	}
	d.payload = nil
	err := parser.DecodeLayers(data, &d.decoded)
	if _, unsupported := err.(gopacket.UnsupportedLayerType); unsupported {
		err = nil
	}

	var netFlow gopacket.Flow
	carriesTCP := false
	haveTCP := false
	fragment := false
	for _, layerType := range d.decoded {
		switch layerType {
		case layers.LayerTypeIPv4:
			frame.HasIP = true
			frame.SrcAddr, _ = netip.AddrFromSlice(d.ip4.SrcIP.To4())
			frame.DstAddr, _ = netip.AddrFromSlice(d.ip4.DstIP.To4())
			netFlow = d.ip4.NetworkFlow()
			carriesTCP = d.ip4.Protocol == layers.IPProtocolTCP && d.ip4.NextLayerType() == layers.LayerTypeTCP
		case layers.LayerTypeIPv6:
			frame.HasIP = true
			frame.SrcAddr, _ = netip.AddrFromSlice(d.ip6.SrcIP.To16())
			frame.DstAddr, _ = netip.AddrFromSlice(d.ip6.DstIP.To16())
			netFlow = d.ip6.NetworkFlow()
			carriesTCP = d.ip6.NextLayerType() == layers.LayerTypeTCP
		case layers.LayerTypeIPv6HopByHop, layers.LayerTypeIPv6Routing, layers.LayerTypeIPv6Destination:
			carriesTCP = !fragment && d.ip6ext.NextHeader == layers.IPProtocolTCP
		case layers.LayerTypeIPv6Fragment:
			// only reassembled segments could be checked
			fragment = true
			carriesTCP = false
		case layers.LayerTypeTCP:
			haveTCP = true
		}
	}
	frame.SrcAddr = frame.SrcAddr.Unmap()
	frame.DstAddr = frame.DstAddr.Unmap()

	if !carriesTCP {
		// not a TCP segment; an error below the transport layer only
		// means we could not find out what it was
		return frame, nil
	}
	if err != nil || !haveTCP {
		if err == nil {
			err = fmt.Errorf("TCP layer missing")
		}
		return frame, &DecodeError{Number: number, Err: err}
	}

	flow, err := NewFlowKeyFromLayers(netFlow, &d.tcp)
	if err != nil {
		return frame, &DecodeError{Number: number, Err: err}
	}
	frame.IsTCP = true
	frame.Packet = TcpPacket{
		Flow:      flow,
		SYN:       d.tcp.SYN,
		ACK:       d.tcp.ACK,
		FIN:       d.tcp.FIN,
		Seq:       uint64(d.tcp.Seq),
		Ack:       uint64(d.tcp.Ack),
		Length:    len(d.tcp.Contents) + len(d.tcp.Payload),
		Timestamp: ci.Timestamp,
		Number:    number,
	}
	return frame, nil
}
