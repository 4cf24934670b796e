// Package serialport opens the receiver's serial device and frames its
// byte stream into lines. NUL bytes are dropped before framing, matching
// the behaviour of the original bridge which never forwarded them.
package serialport

import (
	"bufio"
	"io"
	"strings"
	"sync/atomic"

	"github.com/tarm/serial"
)

// Opener opens a serial device. It exists so that tests can feed the
// reader from an in-memory stream instead of real hardware.
type Opener func(device string, baud int) (io.ReadWriteCloser, error)

// Open opens the serial device with blocking reads. A blocked Read is
// released by closing the returned port.
func Open(device string, baud int) (io.ReadWriteCloser, error) {
	return serial.OpenPort(&serial.Config{Name: device, Baud: baud})
}

// nulFilter strips NUL bytes from the wrapped stream. A read that yields
// only NULs is retried so the caller never observes an empty read.
type nulFilter struct {
	r io.Reader
}

func (f *nulFilter) Read(p []byte) (int, error) {
	for {
		n, err := f.r.Read(p)
		kept := 0
		for i := 0; i < n; i++ {
			if p[i] != 0 {
				p[kept] = p[i]
				kept++
			}
		}
		if kept > 0 || err != nil {
			return kept, err
		}
	}
}

// LineReader frames a serial byte stream into lines of at most maxLine
// bytes. Oversized lines are discarded rather than ending the stream,
// since a glitching receiver can emit arbitrary garbage between valid
// sentences.
type LineReader struct {
	br        *bufio.Reader
	oversized atomic.Uint64
}

// NewLineReader wraps r. maxLine bounds the line length; values <= 0
// fall back to 1024 which is ample for NMEA 0183 sentences.
func NewLineReader(r io.Reader, maxLine int) *LineReader {
	if maxLine <= 0 {
		maxLine = 1024
	}
	return &LineReader{br: bufio.NewReaderSize(&nulFilter{r: r}, maxLine)}
}

// ReadLine returns the next non-empty line with trailing CR/LF removed.
// It blocks until a line is available or the underlying stream fails.
func (lr *LineReader) ReadLine() (string, error) {
	for {
		slice, err := lr.br.ReadSlice('\n')
		if err == bufio.ErrBufferFull {
			lr.oversized.Add(1)
			for err == bufio.ErrBufferFull {
				_, err = lr.br.ReadSlice('\n')
			}
			if err != nil {
				return "", err
			}
			continue
		}
		if err != nil {
			// Hand back a final unterminated line before reporting EOF.
			if line := strings.TrimRight(string(slice), "\r\n"); line != "" && err == io.EOF {
				return line, nil
			}
			return "", err
		}
		line := strings.TrimRight(string(slice), "\r\n")
		if line == "" {
			continue
		}
		return line, nil
	}
}

// Oversized returns the number of discarded oversized lines.
func (lr *LineReader) Oversized() uint64 {
	return lr.oversized.Load()
}
