package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandReports(t *testing.T) {
	color.NoColor = true
	dir := t.TempDir()
	report := `{"Type":"syn-flood","Time":"2024-01-02T03:04:05Z","PacketCount":102,"Destination":"10.0.0.2:80","Flow":"10.0.0.1:1234-10.0.0.2:80","PendingSyns":101,"Threshold":100,"ActiveConnections":101,"EstablishedConnections":0}` + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "10.0.0.2:80.attackreport.json"), []byte(report), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0644))

	paths, err := reportPaths([]string{dir})
	require.NoError(t, err)
	require.Len(t, paths, 1)

	var buffer bytes.Buffer
	require.NoError(t, expandReport(&buffer, paths[0]))
	out := buffer.String()
	assert.Contains(t, out, "Event Type: syn-flood\nDestination: 10.0.0.2:80\n")
	assert.Contains(t, out, "Packet Number: 102\n")
	assert.Contains(t, out, "Pending SYNs: 101 Threshold: 100\n")

	_, err = reportPaths([]string{filepath.Join(dir, "missing")})
	assert.Error(t, err)
}
