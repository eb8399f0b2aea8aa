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
	"bytes"
	"fmt"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

type SnifferDriverOptions struct {
	DAQ      string
	Filename string
	Snaplen  int32
	Filter   string
}

// PacketDataSourceCloser is an interface for some source of packet data.
type PacketDataSourceCloser interface {
	// ReadPacketData returns the next packet available from this data source.
	// It returns:
	//  data:  The bytes of an individual packet.
	//  ci:  Metadata about the capture
	//  err:  An error encountered while reading packet data.  If err != nil,
	//    then data/ci will be ignored.
	ReadPacketData() (data []byte, ci gopacket.CaptureInfo, err error)
	// LinkType returns the link layer type of every packet in the source.
	LinkType() layers.LinkType
	// Close closes the capture and returns nil if no error was found.
	Close() error
}

// TcpPacket holds the decoded header fields of one TCP segment. It is all
// the connection tracking core ever sees of a packet.
type TcpPacket struct {
	Flow FlowKey
	SYN  bool
	ACK  bool
	FIN  bool
	// Seq and Ack are the unsigned 32 bit header values widened to 64 bits.
	Seq uint64
	Ack uint64
	// Length is the segment's byte length, TCP header plus payload.
	Length int
	// Timestamp is the capture timestamp.
	Timestamp time.Time
	// Number is the packet's position in the capture, starting at 1.
	Number uint64
}

// IsBareSyn reports whether the packet is a SYN without ACK, the only
// packet that may open a new connection record.
func (p *TcpPacket) IsBareSyn() bool {
	return p.SYN && !p.ACK
}

// Flags renders the SYN, ACK and FIN flags in tcpdump's bracket style.
func (p *TcpPacket) Flags() string {
	var buffer bytes.Buffer
	buffer.WriteString("[")
	if p.SYN {
		buffer.WriteString("S")
	}
	if p.FIN {
		buffer.WriteString("F")
	}
	if p.ACK {
		buffer.WriteString(".")
	}
	buffer.WriteString("]")
	return buffer.String()
}

func (p TcpPacket) String() string {
	return fmt.Sprintf("TCP{ flow: %s, flags: %s, seq: %d, ack: %d, length: %d }", p.Flow, p.Flags(), p.Seq, p.Ack, p.Length)
}
