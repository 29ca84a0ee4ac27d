package decoder

import (
	"os"

	"github.com/golang/snappy"
)

// SnappyCSVDecoder decodes CSV files compressed with the snappy framing format
// (conventionally named *.csv.sz).
type SnappyCSVDecoder struct {
	csv *CSVDecoder
}

// NewSnappyCSVDecoder creates a decoder for snappy-framed CSV files.
func NewSnappyCSVDecoder(opts CSVOptions) *SnappyCSVDecoder {
	return &SnappyCSVDecoder{csv: NewCSVDecoder(opts)}
}

// Open opens path and decompresses it while records are read.
// A corrupt stream surfaces as a record error on the first affected read.
func (d *SnappyCSVDecoder) Open(path string) (RecordReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, openError(path, err)
	}
	return d.csv.newReader(path, snappy.NewReader(f), f), nil
}
