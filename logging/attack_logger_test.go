package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liquidfortress/packetanalyzer/types"
)

func synFloodEvent() *types.Event {
	return &types.Event{
		Type:        types.EventSynFlood,
		Destination: types.MustParseEndpoint("10.0.0.2:80"),
		Flow: types.NewFlowKey(
			types.MustParseEndpoint("10.0.0.1:1234"),
			types.MustParseEndpoint("10.0.0.2:80"),
		),
		Time:                   time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		PacketCount:            102,
		PendingSyns:            101,
		Threshold:              100,
		ActiveConnections:      101,
		EstablishedConnections: 0,
	}
}

func TestAttackJsonLogger(t *testing.T) {
	testWriter := NewTestSignalWriter()
	opened := ""
	logger := NewAttackJsonLogger("archive", nil)
	logger.openWriter = func(name string) (io.WriteCloser, error) {
		opened = name
		return testWriter, nil
	}
	logger.Start()
	defer logger.Stop()

	logger.Log(synFloodEvent())
	<-testWriter.signalChan

	want := "{\"Type\":\"syn-flood\",\"Time\":\"2024-01-02T03:04:05Z\",\"PacketCount\":102,\"Destination\":\"10.0.0.2:80\",\"Flow\":\"10.0.0.1:1234-10.0.0.2:80\",\"PendingSyns\":101,\"Threshold\":100,\"ActiveConnections\":101,\"EstablishedConnections\":0}\n"
	if string(testWriter.lastWrite) != want {
		t.Errorf("syn flood report is wrong\n%s", testWriter.lastWrite)
	}
	if opened != filepath.Join("archive", "10.0.0.2:80.attackreport.json") {
		t.Errorf("report written to %s", opened)
	}
}

func TestAttackJsonLoggerAppends(t *testing.T) {
	dir := t.TempDir()
	logger := NewAttackJsonLogger(dir, nil)
	logger.Start()

	first := synFloodEvent()
	second := synFloodEvent()
	second.PacketCount = 300
	logger.Log(first)
	logger.Log(second)
	logger.Stop()

	reportPath := logger.ReportPath("10.0.0.2:80")
	assert.True(t, IsAttackReport(reportPath))
	fp, err := os.Open(reportPath)
	require.NoError(t, err)
	defer fp.Close()

	events, err := ReadEvents(fp)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, uint64(102), events[0].PacketCount)
	assert.Equal(t, uint64(300), events[1].PacketCount)
	assert.Equal(t, "10.0.0.1:1234-10.0.0.2:80", events[0].Flow)
	assert.True(t, first.Time.Equal(events[0].Time))
}

func TestReadEvents(t *testing.T) {
	input := fmt.Sprintf("%s\n\n%s\n",
		`{"Type":"syn-flood","Destination":"[2001:db8::1]:443","PendingSyns":7}`,
		`{"Type":"syn-flood","Destination":"10.0.0.2:80","PendingSyns":9}`)
	events, err := ReadEvents(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "[2001:db8::1]:443", events[0].Destination)
	assert.Equal(t, 9, events[1].PendingSyns)

	_, err = ReadEvents(strings.NewReader("{\"Type\":\n"))
	assert.Error(t, err)
}
