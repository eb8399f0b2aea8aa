package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewDiagnosticLogger(t *testing.T) {
	var buffer bytes.Buffer
	logger := NewDiagnosticLogger(&buffer, false)
	logger.Debug("hidden")
	logger.Info("shown", "capture", "a.pcap")
	assert.NotContains(t, buffer.String(), "hidden")
	assert.Contains(t, buffer.String(), "msg=shown capture=a.pcap")

	buffer.Reset()
	logger = NewDiagnosticLogger(&buffer, true)
	logger.Debug("traced")
	assert.Contains(t, buffer.String(), "level=DEBUG msg=traced")
}
