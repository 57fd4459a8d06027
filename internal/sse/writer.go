// Package sse frames provider chunks as server-sent events and drives the
// single-producer, single-consumer relay loop.
package sse

import (
	"bytes"
	"fmt"
	"net/http"
	"sync"
)

var bufferPool = sync.Pool{
	New: func() any {
		return new(bytes.Buffer)
	},
}

var (
	dataPrefix = []byte("data: ")
	frameEnd   = []byte("\n\n")
	doneFrame  = []byte("data: [DONE]\n\n")
)

// Writer writes SSE frames to an http.ResponseWriter, flushing after each one.
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewWriter sends the event-stream headers and a 200 status. After this call
// the HTTP status can no longer change.
func NewWriter(w http.ResponseWriter) *Writer {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	s := &Writer{w: w, flusher: flusher}
	s.flush()
	return s
}

// WriteData writes one "data: <payload>\n\n" frame. A write error means the
// client is gone.
func (s *Writer) WriteData(payload []byte) error {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	buf.Grow(len(dataPrefix) + len(payload) + len(frameEnd))
	buf.Write(dataPrefix)
	buf.Write(payload)
	buf.Write(frameEnd)

	if _, err := s.w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("sse: write frame: %w", err)
	}
	s.flush()
	return nil
}

// WriteDone writes the terminal "data: [DONE]" sentinel.
func (s *Writer) WriteDone() error {
	if _, err := s.w.Write(doneFrame); err != nil {
		return fmt.Errorf("sse: write done: %w", err)
	}
	s.flush()
	return nil
}

func (s *Writer) flush() {
	if s.flusher != nil {
		s.flusher.Flush()
	}
}
