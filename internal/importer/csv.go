package importer

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
)

// csvSource reads delimiter-detected CSV. Spreadsheet exports disagree
// on the separator, so the first line decides between comma, semicolon
// and tab.
type csvSource struct {
	reader  *csv.Reader
	headers []string
	closer  io.Closer
}

func NewCSVSource(r io.Reader) (RowSource, error) {
	buf := bufio.NewReader(r)

	// Skip a UTF-8 BOM if present.
	if b, err := buf.Peek(3); err == nil && bytes.Equal(b, []byte{0xEF, 0xBB, 0xBF}) {
		buf.Discard(3)
	}

	line, err := buf.Peek(4096)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if i := bytes.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}

	cr := csv.NewReader(buf)
	cr.Comma = detectDelimiter(line)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	headers, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: file is empty", ErrMalformedHeader)
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	src := &csvSource{reader: cr, headers: headers}
	if c, ok := r.(io.Closer); ok {
		src.closer = c
	}
	return src, nil
}

func detectDelimiter(line []byte) rune {
	best, count := ',', bytes.Count(line, []byte{','})
	if n := bytes.Count(line, []byte{';'}); n > count {
		best, count = ';', n
	}
	if n := bytes.Count(line, []byte{'\t'}); n > count {
		best = '\t'
	}
	return rune(best)
}

func (s *csvSource) Headers() ([]string, error) { return s.headers, nil }

func (s *csvSource) Next() ([]string, error) {
	return s.reader.Read()
}

func (s *csvSource) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
