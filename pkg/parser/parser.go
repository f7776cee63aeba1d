package parser

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// MaxLineSize caps how much of a single line is kept. Longer lines are
// still read to their end and returned with Truncated set.
const MaxLineSize = 1024 * 1024

// FileSource implements LineSource for reading a log file.
type FileSource struct {
	path string

	file   *os.File
	reader *lineReader
	line   int
	done   bool
}

// NewFileSource creates a LineSource that reads the given file.
// The file is opened lazily on the first call to Next.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// FileOpener returns an Opener that yields a new FileSource for path on every call.
func FileOpener(path string) Opener {
	return func() (LineSource, error) {
		return NewFileSource(path), nil
	}
}

// Next returns the next raw line.
// Returns io.EOF when the file has been exhausted.
func (s *FileSource) Next(ctx context.Context) (*Line, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if s.done {
		return nil, io.EOF
	}

	if s.reader == nil {
		if err := s.open(); err != nil {
			return nil, err
		}
	}

	content, truncated, err := s.reader.next()
	if err == nil {
		s.line++
		return &Line{
			Content:   content,
			Source:    s.path,
			LineNum:   s.line,
			Truncated: truncated,
		}, nil
	}
	if !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading %s: %w", s.path, err)
	}

	s.done = true
	if err := s.Close(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// Close releases resources.
func (s *FileSource) Close() error {
	if s.file != nil {
		err := s.file.Close()
		s.file = nil
		s.reader = nil
		return err
	}
	return nil
}

func (s *FileSource) open() error {
	f, err := os.Open(s.path) // #nosec G304 -- user-provided paths are expected
	if err != nil {
		return fmt.Errorf("opening log file %s: %w", s.path, err)
	}

	s.file = f
	s.reader = newLineReader(f)
	s.line = 0

	return nil
}

// ReaderSource implements LineSource over an in-memory or streamed reader.
type ReaderSource struct {
	label  string
	reader *lineReader
	line   int
}

// NewReaderSource creates a LineSource reading lines from r.
// label is reported as the Source of every line.
func NewReaderSource(r io.Reader, label string) *ReaderSource {
	return &ReaderSource{
		label:  label,
		reader: newLineReader(r),
	}
}

// StringOpener returns an Opener over a fixed string, useful for tests and
// piped input that has been buffered.
func StringOpener(content, label string) Opener {
	return func() (LineSource, error) {
		return NewReaderSource(strings.NewReader(content), label), nil
	}
}

// Next returns the next raw line.
func (s *ReaderSource) Next(ctx context.Context) (*Line, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	content, truncated, err := s.reader.next()
	if err == nil {
		s.line++
		return &Line{
			Content:   content,
			Source:    s.label,
			LineNum:   s.line,
			Truncated: truncated,
		}, nil
	}
	if !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading %s: %w", s.label, err)
	}
	return nil, io.EOF
}

// Close is a no-op; the caller owns the underlying reader.
func (s *ReaderSource) Close() error {
	return nil
}

// lineReader splits a stream into lines of any length. Unlike
// bufio.Scanner it never fails on a long line: the first MaxLineSize bytes
// are kept and the rest is discarded up to the newline.
type lineReader struct {
	r   *bufio.Reader
	buf []byte
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{r: bufio.NewReaderSize(r, 64*1024)}
}

// next returns the next line without its line ending, or io.EOF.
func (lr *lineReader) next() (string, bool, error) {
	lr.buf = lr.buf[:0]
	truncated := false
	for {
		chunk, more, err := lr.r.ReadLine()
		if err != nil {
			return "", false, err
		}
		if room := MaxLineSize - len(lr.buf); len(chunk) > room {
			chunk = chunk[:room]
			truncated = true
		}
		lr.buf = append(lr.buf, chunk...)
		if !more {
			return string(lr.buf), truncated, nil
		}
	}
}
