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

package drivers

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/liquidfortress/packetanalyzer/types"
)

func init() {
	SnifferRegister("pcapgo", NewPcapgoHandle)
}

// pcapng files start with a section header block
var pcapngMagic = []byte{0x0a, 0x0d, 0x0d, 0x0a}

type packetReader interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	LinkType() layers.LinkType
}

// PcapgoHandle reads pcap and pcapng files without libpcap.
type PcapgoHandle struct {
	reader     packetReader
	fileReader io.ReadCloser
}

func NewPcapgoHandle(options *types.SnifferDriverOptions) (types.PacketDataSourceCloser, error) {
	fileReader, err := os.Open(options.Filename)
	if err != nil {
		return nil, err
	}
	handle, err := NewPcapgoReader(fileReader)
	if err != nil {
		fileReader.Close()
		return nil, fmt.Errorf("%s: %w", options.Filename, err)
	}
	return handle, nil
}

// NewPcapgoReader reads a pcap or pcapng stream from r. Closing the handle
// closes r.
func NewPcapgoReader(r io.ReadCloser) (*PcapgoHandle, error) {
	buffered := bufio.NewReader(r)
	magic, err := buffered.Peek(len(pcapngMagic))
	if err != nil {
		return nil, fmt.Errorf("reading capture header: %w", err)
	}
	var reader packetReader
	if bytes.Equal(magic, pcapngMagic) {
		reader, err = pcapgo.NewNgReader(buffered, pcapgo.DefaultNgReaderOptions)
	} else {
		reader, err = pcapgo.NewReader(buffered)
	}
	if err != nil {
		return nil, err
	}
	return &PcapgoHandle{
		reader:     reader,
		fileReader: r,
	}, nil
}

func (a *PcapgoHandle) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	return a.reader.ReadPacketData()
}

func (a *PcapgoHandle) LinkType() layers.LinkType {
	return a.reader.LinkType()
}

func (a *PcapgoHandle) Close() error {
	return a.fileReader.Close()
}
