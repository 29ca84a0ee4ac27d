// Package types provides core data types for tabload.
package types

import "path/filepath"

// WorkItem identifies one file to be loaded and timed.
// It is a path-like identifier produced by enumeration and never mutated afterwards.
type WorkItem string

// Name returns the base name of the file, used for operator output.
func (w WorkItem) Name() string {
	return filepath.Base(string(w))
}

// String returns the identifier as a plain string.
func (w WorkItem) String() string {
	return string(w)
}

// FileList is the ordered sequence of work items of one run.
// Order is enumeration order, which is filesystem order and not necessarily sorted.
type FileList []WorkItem
