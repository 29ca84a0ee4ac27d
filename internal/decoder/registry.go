package decoder

import (
	"fmt"
	"sort"
	"strings"
)

// Registry selects a decoder by file-name suffix. The longest registered
// suffix wins, so "csv.sz" takes precedence over "sz".
type Registry struct {
	decoders map[string]Decoder
	suffixes []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{decoders: make(map[string]Decoder)}
}

// NewDefaultRegistry registers every built-in format:
// csv, tsv, csv.sz (snappy), sqlite and db.
func NewDefaultRegistry(opts CSVOptions, sqliteTable string) *Registry {
	tsv := opts
	tsv.Delimiter = '\t'

	r := NewRegistry()
	r.Register("csv", NewCSVDecoder(opts))
	r.Register("tsv", NewCSVDecoder(tsv))
	r.Register("csv.sz", NewSnappyCSVDecoder(opts))
	r.Register("sqlite", NewSQLiteDecoder(sqliteTable))
	r.Register("db", NewSQLiteDecoder(sqliteTable))
	return r
}

// Register associates a suffix (without the leading dot) with a decoder.
// Registering the same suffix again replaces the previous decoder.
func (r *Registry) Register(suffix string, d Decoder) {
	suffix = strings.TrimPrefix(suffix, ".")
	if _, exists := r.decoders[suffix]; !exists {
		r.suffixes = append(r.suffixes, suffix)
		sort.SliceStable(r.suffixes, func(i, j int) bool {
			return len(r.suffixes[i]) > len(r.suffixes[j])
		})
	}
	r.decoders[suffix] = d
}

// Lookup returns the decoder for path, if any.
func (r *Registry) Lookup(path string) (Decoder, bool) {
	for _, s := range r.suffixes {
		if strings.HasSuffix(path, "."+s) {
			return r.decoders[s], true
		}
	}
	return nil, false
}

// Suffixes returns the registered suffixes, longest first.
func (r *Registry) Suffixes() []string {
	out := make([]string, len(r.suffixes))
	copy(out, r.suffixes)
	return out
}

// Open implements Decoder by dispatching on the file name.
func (r *Registry) Open(path string) (RecordReader, error) {
	d, ok := r.Lookup(path)
	if !ok {
		return nil, openError(path, fmt.Errorf("no decoder registered for file"))
	}
	return d.Open(path)
}
