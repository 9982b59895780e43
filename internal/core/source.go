package core

// source.go prepares raw export files for the CSV reader.
//
// Exports produced on Windows often start with a UTF-8 byte order mark, and
// files stitched together from several tools occasionally contain bytes that
// are not valid UTF-8. NewSourceReader strips the former and replaces the
// latter with U+FFFD, one line at a time, so memory use stays bounded by the
// longest line rather than the file size.

import (
	"bufio"
	"bytes"
	"io"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var replacementChar = []byte("�")

// NewSourceReader wraps r, dropping a leading UTF-8 BOM and replacing
// invalid UTF-8 sequences.
func NewSourceReader(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return &lineSanitizer{r: br}
}

// lineSanitizer repairs input one line at a time. '\n' is ASCII, so a line
// boundary never splits a multi-byte sequence.
type lineSanitizer struct {
	r   *bufio.Reader
	buf []byte
	err error
}

func (s *lineSanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for len(s.buf) == 0 {
		if s.err != nil {
			return 0, s.err
		}
		line, err := s.r.ReadBytes('\n')
		s.buf = bytes.ToValidUTF8(line, replacementChar)
		s.err = err
	}
	n := copy(p, s.buf)
	s.buf = s.buf[n:]
	return n, nil
}
