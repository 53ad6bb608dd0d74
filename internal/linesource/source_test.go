package linesource

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

func writeGzip(t *testing.T, name, content string) string {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(content)); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return writeFile(t, name, buf.String())
}

func readAll(t *testing.T, s *Source) []string {
	t.Helper()
	var lines []string
	for {
		line, err := s.ReadLine()
		if err == io.EOF {
			return lines
		}
		if err != nil {
			t.Fatalf("ReadLine() error = %v", err)
		}
		lines = append(lines, line)
	}
}

func TestSource_ReadLine(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{
			name:    "terminated lines",
			content: "a;\nb;\n",
			want:    []string{"a;\n", "b;\n"},
		},
		{
			name:    "last line without terminator",
			content: "a;\nb;",
			want:    []string{"a;\n", "b;"},
		},
		{
			name:    "crlf kept",
			content: "a;\r\nb;\r\n",
			want:    []string{"a;\r\n", "b;\r\n"},
		},
		{
			name:    "empty file",
			content: "",
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "dump.sql", tt.content)
			s, err := Open(path, 0)
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			defer s.Close()

			got := readAll(t, s)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d lines, want %d (%q)", len(got), len(tt.want), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("line %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
			if s.Position() != int64(len(tt.content)) {
				t.Errorf("Position() = %d, want %d", s.Position(), len(tt.content))
			}
			if s.Size() != int64(len(tt.content)) {
				t.Errorf("Size() = %d, want %d", s.Size(), len(tt.content))
			}
		})
	}
}

func TestSource_LongLineIsNotTruncated(t *testing.T) {
	long := "INSERT INTO t VALUES " + strings.Repeat("(1,'xxxxxxxx'),", 5000) + "(2,'y');\n"
	path := writeFile(t, "long.sql", long+"SELECT 1;\n")

	s, err := Open(path, 64)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	lines := readAll(t, s)
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if lines[0] != long {
		t.Errorf("long line corrupted: got %d bytes, want %d", len(lines[0]), len(long))
	}
}

func TestSource_SeekPlain(t *testing.T) {
	content := "first;\nsecond;\nthird;\n"
	path := writeFile(t, "dump.sql", content)

	s, err := Open(path, 0)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	// offset 10 lands inside "second;" and must not be corrected backwards
	if err := s.Seek(10); err != nil {
		t.Fatalf("Seek() error = %v", err)
	}
	line, err := s.ReadLine()
	if err != nil {
		t.Fatalf("ReadLine() error = %v", err)
	}
	if line != "ond;\n" {
		t.Errorf("ReadLine() after mid-line seek = %q, want %q", line, "ond;\n")
	}
	if s.Position() != 15 {
		t.Errorf("Position() = %d, want 15", s.Position())
	}
}

func TestSource_Gzip(t *testing.T) {
	content := "first;\nsecond;\nthird;\n"
	path := writeGzip(t, "dump.sql.gz", content)

	size, err := StatSize(path)
	if err != nil {
		t.Fatalf("StatSize() error = %v", err)
	}
	if size != SizeUnknown {
		t.Errorf("StatSize() = %d, want SizeUnknown", size)
	}

	s, err := Open(path, 0)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	if !s.Compressed() {
		t.Error("expected compressed source")
	}
	if err := s.Seek(7); err != nil {
		t.Fatalf("Seek() error = %v", err)
	}
	lines := readAll(t, s)
	if len(lines) != 2 || lines[0] != "second;\n" || lines[1] != "third;\n" {
		t.Errorf("lines after gzip seek = %q", lines)
	}
	if s.Position() != int64(len(content)) {
		t.Errorf("Position() = %d, want %d", s.Position(), len(content))
	}
}

func TestSource_SeekPastEnd(t *testing.T) {
	path := writeGzip(t, "dump.sql.gz", "a;\n")

	s, err := Open(path, 0)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	if err := s.Seek(100); err != nil {
		t.Fatalf("Seek() error = %v", err)
	}
	if _, err := s.ReadLine(); err != io.EOF {
		t.Errorf("ReadLine() error = %v, want io.EOF", err)
	}
	if s.Position() != 100 {
		t.Errorf("Position() = %d, want 100", s.Position())
	}
}

func TestOpen_MissingFile(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "missing.sql"), 0); err == nil {
		t.Error("expected error for missing file")
	}
}
