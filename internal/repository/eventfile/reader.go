package eventfile

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/kailas-cloud/mindseye/internal/domain"
	"github.com/kailas-cloud/mindseye/internal/domain/event"
)

// Format is the on-disk layout of an event file.
type Format int

const (
	// FormatDocument is `{"events":[...]}` or a bare JSON array.
	FormatDocument Format = iota
	// FormatLines is one JSON event per line.
	FormatLines
)

// maxLineBytes bounds a single JSON Lines record.
const maxLineBytes = 16 << 20

// DetectFormat picks the format from the file name, ignoring a compression suffix.
func DetectFormat(path string) Format {
	name := strings.ToLower(stripCompression(filepath.Base(path)))
	switch filepath.Ext(name) {
	case ".jsonl", ".ndjson":
		return FormatLines
	default:
		return FormatDocument
	}
}

func stripCompression(name string) string {
	for _, ext := range []string{".gz", ".zst"} {
		if strings.HasSuffix(strings.ToLower(name), ext) {
			return name[:len(name)-len(ext)]
		}
	}
	return name
}

// Source reads a whole collection from one file on every call.
type Source[T any] struct {
	path string
}

// NewSource creates a file-backed event source.
func NewSource[T any](path string) *Source[T] {
	return &Source[T]{path: filepath.Clean(path)}
}

// Path returns the cleaned file path.
func (s *Source[T]) Path() string { return s.path }

// LoadEvents reads and decodes the file.
func (s *Source[T]) LoadEvents(_ context.Context) ([]event.Event[T], error) {
	return ReadFile[T](s.path)
}

// ReadFile opens path, decompresses it according to its extension and decodes events.
func ReadFile[T any](path string) ([]event.Event[T], error) {
	f, err := os.Open(path) //nolint:gosec // path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("open event file: %w", err)
	}
	defer f.Close()

	r, closeFn, err := decompress(f, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	defer closeFn()

	events, err := Decode[T](r, DetectFormat(path))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return events, nil
}

func decompress(r io.Reader, path string) (io.Reader, func(), error) {
	switch lower := strings.ToLower(path); {
	case strings.HasSuffix(lower, ".gz"):
		gzr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("gzip: %w", err)
		}
		return gzr, func() { _ = gzr.Close() }, nil
	case strings.HasSuffix(lower, ".zst"):
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("zstd: %w", err)
		}
		return zr, zr.Close, nil
	default:
		return r, func() {}, nil
	}
}

// Decode parses events in the given format.
func Decode[T any](r io.Reader, format Format) ([]event.Event[T], error) {
	if format == FormatLines {
		return decodeLines[T](r)
	}
	return decodeDocument[T](r)
}

func decodeDocument[T any](r io.Reader) ([]event.Event[T], error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty document", domain.ErrMalformedInput)
	}

	if data[0] == '[' {
		var events []event.Event[T]
		if err := json.Unmarshal(data, &events); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrMalformedInput, err)
		}
		return nonNil(events), nil
	}

	var doc struct {
		Events *[]event.Event[T] `json:"events"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedInput, err)
	}
	if doc.Events == nil {
		return nil, fmt.Errorf("%w: events array is required", domain.ErrMalformedInput)
	}
	return nonNil(*doc.Events), nil
}

func decodeLines[T any](r io.Reader) ([]event.Event[T], error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	events := make([]event.Event[T], 0)
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		var e event.Event[T]
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", domain.ErrMalformedInput, line, err)
		}
		events = append(events, e)
	}
	if err := sc.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, fmt.Errorf("%w: line %d exceeds %d bytes", domain.ErrMalformedInput, line+1, maxLineBytes)
		}
		return nil, fmt.Errorf("scan: %w", err)
	}
	return events, nil
}

func nonNil[T any](events []event.Event[T]) []event.Event[T] {
	if events == nil {
		return []event.Event[T]{}
	}
	return events
}
