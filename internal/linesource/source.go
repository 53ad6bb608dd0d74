package linesource

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog/log"
)

// SizeUnknown is reported for streams whose uncompressed size cannot be known up front
const SizeUnknown int64 = -1

// DefaultBufferSize is the read chunk size; longer lines are reassembled from several chunks
const DefaultBufferSize = 40960

// Source reads raw lines from a plain or gzip-compressed dump file
// and tracks the byte position of the next unread byte
type Source struct {
	path       string
	file       *os.File
	gz         *gzip.Reader
	raw        io.Reader
	reader     *bufio.Reader
	bufSize    int
	compressed bool
	size       int64
	pos        int64
}

// IsCompressed reports whether the path names a gzip stream
func IsCompressed(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".gz")
}

// StatSize returns the byte size of a plain dump, or SizeUnknown for gzip
func StatSize(path string) (int64, error) {
	if IsCompressed(path) {
		return SizeUnknown, nil
	}
	stat, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("failed to stat dump file: %w", err)
	}
	return stat.Size(), nil
}

// Open opens a dump file. Files ending in .gz are decompressed on the fly.
func Open(path string, bufSize int) (*Source, error) {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dump file: %w", err)
	}

	s := &Source{
		path:    path,
		file:    file,
		raw:     file,
		bufSize: bufSize,
		size:    SizeUnknown,
	}

	if IsCompressed(path) {
		gz, err := gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		s.gz = gz
		s.raw = gz
		s.compressed = true
	} else {
		stat, err := file.Stat()
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to stat dump file: %w", err)
		}
		s.size = stat.Size()
	}

	s.reader = bufio.NewReaderSize(s.raw, bufSize)
	return s, nil
}

// Seek positions the source at offset. For gzip streams the decompressed
// bytes before offset are read and discarded, so the cost grows with offset.
// The offset is a hard seek point: a position in the middle of a line is not corrected.
func (s *Source) Seek(offset int64) error {
	if offset < 0 {
		return fmt.Errorf("invalid offset %d", offset)
	}
	if offset == 0 {
		return nil
	}

	if !s.compressed {
		if _, err := s.file.Seek(offset, io.SeekStart); err != nil {
			return fmt.Errorf("failed to seek to offset %d: %w", offset, err)
		}
		s.reader.Reset(s.file)
		s.pos = offset
		return nil
	}

	skipped, err := io.CopyN(io.Discard, s.reader, offset)
	s.pos += skipped
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to skip to offset %d in gzip stream: %w", offset, err)
	}
	if skipped < offset {
		log.Warn().
			Str("file", s.path).
			Int64("offset", offset).
			Int64("stream_end", s.pos).
			Msg("Resume offset is past the end of the decompressed stream")
		// offsets never move backwards, even past the end
		s.pos = offset
	}
	return nil
}

// ReadLine returns the next line including its terminator. Lines longer than
// the buffer are reassembled from several reads, never truncated.
// A last line without terminator is returned before io.EOF.
func (s *Source) ReadLine() (string, error) {
	chunk, err := s.reader.ReadSlice('\n')
	if err == nil {
		s.pos += int64(len(chunk))
		return string(chunk), nil
	}

	var line []byte
	for {
		line = append(line, chunk...)
		if !errors.Is(err, bufio.ErrBufferFull) {
			break
		}
		chunk, err = s.reader.ReadSlice('\n')
		if err == nil {
			line = append(line, chunk...)
			break
		}
	}

	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read line at offset %d: %w", s.pos, err)
	}
	if len(line) == 0 {
		return "", io.EOF
	}

	s.pos += int64(len(line))
	return string(line), nil
}

// Position returns the byte offset of the next unread byte
func (s *Source) Position() int64 {
	return s.pos
}

// Size returns the total size, or SizeUnknown for compressed streams
func (s *Source) Size() int64 {
	return s.size
}

// Compressed reports whether the source is a gzip stream
func (s *Source) Compressed() bool {
	return s.compressed
}

// Close releases the file handle
func (s *Source) Close() error {
	if s.gz != nil {
		s.gz.Close()
	}
	return s.file.Close()
}
