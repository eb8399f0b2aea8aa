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

package logging

import (
	"fmt"
	"os"
	"sync"
)

// RotatingQuotaWriter is an io.WriteCloser for diagnostic log files. Once
// the current file would grow past its share of the quota it is renamed
// to filename.1, older files shift up by one and the oldest is removed,
// so no more than quotaSize megabytes ever sit on disk.
type RotatingQuotaWriter struct {
	mu       sync.Mutex
	filename string
	fp       *os.File
	numLogs  int
	logSize  int64
	size     int64
}

// NewRotatingQuotaWriter takes a "starting filename", a quota size in
// megabytes and the number of files the quota is spread over.
func NewRotatingQuotaWriter(filename string, quotaSize int, numLogs int) (*RotatingQuotaWriter, error) {
	if quotaSize <= 0 || numLogs <= 0 {
		return nil, fmt.Errorf("invalid log quota: %d MB over %d files", quotaSize, numLogs)
	}
	return newRotatingWriter(filename, int64(quotaSize)*1024*1024/int64(numLogs), numLogs), nil
}

func newRotatingWriter(filename string, logSize int64, numLogs int) *RotatingQuotaWriter {
	return &RotatingQuotaWriter{
		filename: filename,
		numLogs:  numLogs,
		logSize:  logSize,
	}
}

func (w *RotatingQuotaWriter) Write(output []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.fp != nil && w.size > 0 && w.size+int64(len(output)) > w.logSize {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}
	if w.fp == nil {
		fp, err := os.Create(w.filename)
		if err != nil {
			return 0, err
		}
		w.fp = fp
		w.size = 0
	}
	n, err := w.fp.Write(output)
	w.size += int64(n)
	return n, err
}

func (w *RotatingQuotaWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fp == nil {
		return nil
	}
	err := w.fp.Close()
	w.fp = nil
	return err
}

func (w *RotatingQuotaWriter) rotate() error {
	if err := w.fp.Close(); err != nil {
		return err
	}
	w.fp = nil
	for i := w.numLogs - 1; i > 0; i-- {
		if err := w.shiftLog(i); err != nil {
			return err
		}
	}
	if w.numLogs == 1 {
		return os.Remove(w.filename)
	}
	return os.Rename(w.filename, fmt.Sprintf("%s.1", w.filename))
}

// shiftLog renames filename.N to filename.N+1, dropping the file that
// would exceed the configured count.
func (w *RotatingQuotaWriter) shiftLog(logNum int) error {
	oldName := fmt.Sprintf("%s.%d", w.filename, logNum)
	if logNum == w.numLogs-1 {
		err := os.Remove(oldName)
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	_, err := os.Stat(oldName)
	if os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return err
	}
	return os.Rename(oldName, fmt.Sprintf("%s.%d", w.filename, logNum+1))
}
