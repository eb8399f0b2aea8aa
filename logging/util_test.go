package logging

// TestSignalWriter signals every Write so tests can wait for the
// asynchronous loggers.
type TestSignalWriter struct {
	lastWrite  []byte
	closed     int
	signalChan chan bool
}

func NewTestSignalWriter() *TestSignalWriter {
	return &TestSignalWriter{
		signalChan: make(chan bool),
	}
}

func (w *TestSignalWriter) Write(data []byte) (int, error) {
	w.lastWrite = append([]byte{}, data...)
	w.signalChan <- true
	return len(data), nil
}

func (w *TestSignalWriter) Close() error {
	w.closed += 1
	return nil
}
