// Package decoder turns a tabular file into a stream of raw records.
// The benchmark only iterates records to exhaustion; it never looks inside them.
package decoder

import (
	"errors"
	"fmt"
	"io"

	loaderr "github.com/arkilian/tabload/internal/errors"
)

// RecordReader iterates the records of one opened file.
type RecordReader interface {
	// Next returns the next record, or io.EOF once the file is exhausted.
	// The returned slice may be reused by the following call.
	Next() ([]string, error)

	// Close releases the underlying file or connection.
	Close() error
}

// Decoder opens files of one tabular format.
type Decoder interface {
	Open(path string) (RecordReader, error)
}

// Drain iterates rr until exhaustion and returns the number of records seen.
func Drain(rr RecordReader) (int64, error) {
	var n int64
	for {
		_, err := rr.Next()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		n++
	}
}

func openError(path string, cause error) error {
	return loaderr.NewDecodeError(loaderr.CodeOpenFailed, fmt.Sprintf("open %s", path), cause).
		WithDetails(map[string]interface{}{"file": path})
}

func recordError(path string, record int64, cause error) error {
	return loaderr.NewDecodeError(loaderr.CodeMalformedRecord, fmt.Sprintf("read record %d of %s", record, path), cause).
		WithDetails(map[string]interface{}{"file": path, "record": record})
}
