package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// ErrInputCancelled is returned when a prompt's context ends before the user
// answers.
var ErrInputCancelled = errors.New("input canceled")

// LineReader reads prompt answers from stdin or a pipe. A single goroutine
// scans the input, so a line that arrives after an abandoned prompt is handed
// to the next ReadLine rather than dropped.
type LineReader struct {
	scanner *bufio.Scanner
	lines   chan string
	err     error
	start   sync.Once
}

// NewLineReader wraps src. A nil src reads as empty input.
func NewLineReader(src io.Reader) *LineReader {
	if src == nil {
		src = strings.NewReader("")
	}
	return &LineReader{
		scanner: bufio.NewScanner(src),
		lines:   make(chan string),
	}
}

func (r *LineReader) pump() {
	for r.scanner.Scan() {
		r.lines <- r.scanner.Text()
	}
	r.err = r.scanner.Err()
	if r.err == nil {
		r.err = io.EOF
	}
	close(r.lines)
}

// ReadLine returns the next line with surrounding space trimmed. A final line
// without a newline is still returned; after it ReadLine reports io.EOF.
func (r *LineReader) ReadLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInputCancelled, err)
	}
	r.start.Do(func() { go r.pump() })

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %w", ErrInputCancelled, ctx.Err())
	case line, ok := <-r.lines:
		if !ok {
			return "", r.err
		}
		return strings.TrimSpace(line), nil
	}
}
