// Package source produces the fixed list of files a benchmark run loads,
// either from a local folder or from an object store staged to local disk.
package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	loaderr "github.com/arkilian/tabload/internal/errors"
	"github.com/arkilian/tabload/internal/storage"
	"github.com/arkilian/tabload/pkg/types"
)

// DefaultExtensions is used when no extension is configured.
var DefaultExtensions = []string{"csv"}

// EnumerateDir lists folder without recursing and keeps entries whose name
// ends in "."+ext for one of extensions. Matching is case-sensitive.
// Entries are returned in the order the filesystem yields them; they are not sorted.
func EnumerateDir(folder string, extensions []string) (types.FileList, error) {
	info, err := os.Stat(folder)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, loaderr.NewEnumerationError(loaderr.CodeFolderNotFound,
				fmt.Sprintf("folder %s does not exist", folder), err)
		}
		return nil, loaderr.NewEnumerationError(loaderr.CodeFolderUnreadable,
			fmt.Sprintf("cannot stat folder %s", folder), err)
	}
	if !info.IsDir() {
		return nil, loaderr.NewEnumerationError(loaderr.CodeNotADirectory,
			fmt.Sprintf("%s is not a directory", folder), nil)
	}

	dir, err := os.Open(folder)
	if err != nil {
		return nil, loaderr.NewEnumerationError(loaderr.CodeFolderUnreadable,
			fmt.Sprintf("cannot open folder %s", folder), err)
	}
	defer dir.Close()

	// File.ReadDir keeps directory order; os.ReadDir would sort by name.
	entries, err := dir.ReadDir(-1)
	if err != nil {
		return nil, loaderr.NewEnumerationError(loaderr.CodeFolderUnreadable,
			fmt.Sprintf("cannot read folder %s", folder), err)
	}

	suffixes := suffixesFor(extensions)
	files := make(types.FileList, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !matches(entry.Name(), suffixes) {
			continue
		}
		files = append(files, types.WorkItem(filepath.Join(folder, entry.Name())))
	}
	return files, nil
}

// EnumerateStore lists the objects under prefix, keeps those matching
// extensions, stages them to local disk and returns the local paths in
// listing order. Every object must stage; a partial list would change what
// the run measures, so any staging failure fails enumeration.
func EnumerateStore(ctx context.Context, store storage.ObjectStorage, prefix string, extensions []string, stager *storage.Stager) (types.FileList, error) {
	objects, err := store.ListObjects(ctx, prefix)
	if err != nil {
		return nil, loaderr.NewEnumerationError(loaderr.CodeListFailed,
			fmt.Sprintf("cannot list objects under %q", prefix),
			loaderr.NewStorageError(loaderr.CodeListFailed, "list "+store.Location(), err))
	}

	suffixes := suffixesFor(extensions)
	selected := make([]string, 0, len(objects))
	for _, obj := range objects {
		if matches(path.Base(obj), suffixes) {
			selected = append(selected, obj)
		}
	}
	if len(selected) == 0 {
		return types.FileList{}, nil
	}

	staged, err := stager.Stage(ctx, selected)
	if err != nil {
		return nil, loaderr.NewEnumerationError(loaderr.CodeStagingFailed, "staging failed", err)
	}
	if len(staged.Errors) > 0 {
		failed := make([]string, 0, len(staged.Errors))
		for obj := range staged.Errors {
			failed = append(failed, obj)
		}
		sort.Strings(failed)
		return nil, loaderr.NewEnumerationError(loaderr.CodeStagingFailed,
			fmt.Sprintf("%d of %d objects could not be staged", len(failed), len(selected)),
			staged.Errors[failed[0]]).
			WithDetails(map[string]interface{}{"objects": failed})
	}

	files := make(types.FileList, 0, len(selected))
	for _, obj := range selected {
		files = append(files, types.WorkItem(staged.LocalPaths[obj]))
	}
	return files, nil
}

func suffixesFor(extensions []string) []string {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	suffixes := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		ext = strings.TrimPrefix(ext, ".")
		if ext == "" {
			continue
		}
		suffixes = append(suffixes, "."+ext)
	}
	return suffixes
}

// matches requires a non-empty stem, so a file named ".csv" is not a CSV file.
func matches(name string, suffixes []string) bool {
	for _, s := range suffixes {
		if len(name) > len(s) && strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}
