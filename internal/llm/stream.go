package llm

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/tidwall/gjson"
)

const streamScannerBuffer = 20 << 20

var (
	sseDataField = []byte("data:")
	sseDoneValue = []byte("[DONE]")
)

// ChunkStream yields provider stream chunks one at a time. Next returns io.EOF
// once the provider signals the end of the stream; any other error means the
// stream broke. Nothing is read ahead of the caller.
type ChunkStream interface {
	Next() ([]byte, error)
	Close() error
}

type sseStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	done    bool
}

func newSSEStream(body io.ReadCloser) *sseStream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(nil, streamScannerBuffer)
	return &sseStream{body: body, scanner: scanner}
}

// Next returns the JSON payload of the next data event. Comments, event names,
// ids and blank keep-alive lines are skipped. A payload carrying a top-level
// "error" is reported as a ProviderError and ends the stream.
func (s *sseStream) Next() ([]byte, error) {
	if s.done {
		return nil, io.EOF
	}

	for s.scanner.Scan() {
		line := bytes.TrimRight(s.scanner.Bytes(), "\r")
		if !bytes.HasPrefix(line, sseDataField) {
			continue
		}
		payload := bytes.TrimSpace(line[len(sseDataField):])
		if len(payload) == 0 {
			continue
		}
		if bytes.Equal(payload, sseDoneValue) {
			s.done = true
			return nil, io.EOF
		}
		if errField := gjson.GetBytes(payload, "error"); errField.Exists() && errField.Type != gjson.Null {
			s.done = true
			return nil, newProviderError(StageStream, 0, payload)
		}
		return bytes.Clone(payload), nil
	}

	s.done = true
	if err := s.scanner.Err(); err != nil {
		return nil, transportError(StageStream, fmt.Errorf("read stream: %w", err))
	}
	// The provider closed the body without a [DONE] marker; treat it as a normal end.
	return nil, io.EOF
}

func (s *sseStream) Close() error {
	s.done = true
	return s.body.Close()
}
