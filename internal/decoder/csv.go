package decoder

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
)

// CSVOptions configures CSV parsing.
type CSVOptions struct {
	// HasHeader skips the first row; it is parsed but not counted as a record
	HasHeader bool

	// Delimiter separates fields (default ',')
	Delimiter rune

	// Comment starts a comment line when non-zero
	Comment rune

	// LazyQuotes tolerates bare quotes inside unquoted fields
	LazyQuotes bool

	// TrimLeadingSpace ignores leading white space in fields
	TrimLeadingSpace bool
}

// DefaultCSVOptions returns options matching a comma-separated file with a header row.
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{
		HasHeader: true,
		Delimiter: ',',
	}
}

// CSVDecoder decodes delimited text files.
// Every record must have the same number of fields as the first row.
type CSVDecoder struct {
	opts CSVOptions
}

// NewCSVDecoder creates a CSV decoder.
func NewCSVDecoder(opts CSVOptions) *CSVDecoder {
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}
	return &CSVDecoder{opts: opts}
}

// Open opens path as a CSV file.
func (d *CSVDecoder) Open(path string) (RecordReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, openError(path, err)
	}
	return d.newReader(path, f, f), nil
}

func (d *CSVDecoder) newReader(path string, r io.Reader, closer io.Closer) *csvRecordReader {
	cr := csv.NewReader(r)
	cr.Comma = d.opts.Delimiter
	cr.Comment = d.opts.Comment
	cr.LazyQuotes = d.opts.LazyQuotes
	cr.TrimLeadingSpace = d.opts.TrimLeadingSpace
	cr.ReuseRecord = true

	return &csvRecordReader{
		path:       path,
		r:          cr,
		closer:     closer,
		skipHeader: d.opts.HasHeader,
	}
}

type csvRecordReader struct {
	path       string
	r          *csv.Reader
	closer     io.Closer
	skipHeader bool
	n          int64
}

func (c *csvRecordReader) Next() ([]string, error) {
	if c.skipHeader {
		c.skipHeader = false
		if _, err := c.r.Read(); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, recordError(c.path, 0, err)
		}
	}

	rec, err := c.r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, recordError(c.path, c.n+1, err)
	}
	c.n++
	return rec, nil
}

func (c *csvRecordReader) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}
