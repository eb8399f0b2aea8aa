package drivers

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liquidfortress/packetanalyzer/types"
)

func writePcap(t *testing.T, linkType layers.LinkType, packets ...[]byte) []byte {
	t.Helper()
	var buffer bytes.Buffer
	w := pcapgo.NewWriter(&buffer)
	require.NoError(t, w.WriteFileHeader(65536, linkType))
	for i, data := range packets {
		ci := gopacket.CaptureInfo{
			Timestamp:     time.Unix(1700000000+int64(i), 0),
			CaptureLength: len(data),
			Length:        len(data),
		}
		require.NoError(t, w.WritePacket(ci, data))
	}
	return buffer.Bytes()
}

func TestPcapgoRegistered(t *testing.T) {
	assert.Contains(t, Names(), "pcapgo")
	assert.Panics(t, func() { SnifferRegister("pcapgo", NewPcapgoHandle) })
	assert.Panics(t, func() { SnifferRegister("nil-driver", nil) })
}

func TestPcapgoHandle(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "capture.pcap")
	require.NoError(t, os.WriteFile(filename, writePcap(t, layers.LinkTypeRaw, []byte{0x45, 1, 2}, []byte{0x60, 3}), 0644))

	handle, err := Drivers["pcapgo"](&types.SnifferDriverOptions{Filename: filename})
	require.NoError(t, err)
	defer handle.Close()
	assert.Equal(t, layers.LinkTypeRaw, handle.LinkType())

	data, ci, err := handle.ReadPacketData()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x45, 1, 2}, data)
	assert.Equal(t, int64(1700000000), ci.Timestamp.Unix())
	data, _, err = handle.ReadPacketData()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x60, 3}, data)
	_, _, err = handle.ReadPacketData()
	assert.Equal(t, io.EOF, err)
}

func TestPcapgoHandleErrors(t *testing.T) {
	_, err := NewPcapgoHandle(&types.SnifferDriverOptions{Filename: filepath.Join(t.TempDir(), "missing.pcap")})
	assert.Error(t, err)

	_, err = NewPcapgoReader(io.NopCloser(bytes.NewReader([]byte{1, 2})))
	assert.Error(t, err, "short header")

	_, err = NewPcapgoReader(io.NopCloser(bytes.NewReader(bytes.Repeat([]byte{0xff}, 64))))
	assert.Error(t, err, "unknown magic")
}
