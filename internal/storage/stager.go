package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spaolacci/murmur3"
	"golang.org/x/sync/semaphore"

	loaderr "github.com/arkilian/tabload/internal/errors"
)

// Stager copies objects from an ObjectStorage into a local staging directory
// with bounded parallelism, so the benchmark can time loads of local files only.
// Objects already staged from the same store with the same size are not
// downloaded again.
type Stager struct {
	storage     ObjectStorage
	concurrency int
	stageDir    string
	namespace   string
}

// StageResult contains the outcome of a staging operation.
type StageResult struct {
	LocalPaths map[string]string
	Errors     map[string]error
	CacheHits  int
	Downloads  int
}

// NewStager creates a new stager.
// storage: the ObjectStorage implementation to download from
// concurrency: maximum number of parallel downloads (values < 1 mean 1)
// stageDir: local directory receiving the staged files
func NewStager(storage ObjectStorage, concurrency int, stageDir string) *Stager {
	if concurrency < 1 {
		concurrency = 1
	}
	s := &Stager{
		storage:     storage,
		concurrency: concurrency,
		stageDir:    stageDir,
	}
	if storage != nil {
		s.namespace = fmt.Sprintf("%016x", murmur3.Sum64([]byte(storage.Location())))
	}
	return s
}

// Stage downloads every object in objectPaths that is not already staged.
// Successful objects are reported in LocalPaths, failed ones in Errors; a
// failure of one object never stops the others.
func (s *Stager) Stage(ctx context.Context, objectPaths []string) (*StageResult, error) {
	result := &StageResult{
		LocalPaths: make(map[string]string),
		Errors:     make(map[string]error),
	}
	if len(objectPaths) == 0 {
		return result, nil
	}
	if s.stageDir == "" {
		return nil, fmt.Errorf("storage: stager requires a staging directory")
	}

	var queue []string
	seen := make(map[string]bool, len(objectPaths))
	for _, p := range objectPaths {
		if seen[p] {
			continue
		}
		seen[p] = true
		local := s.LocalPath(p)
		if s.staged(ctx, p, local) {
			result.LocalPaths[p] = local
			result.CacheHits++
			continue
		}
		queue = append(queue, p)
	}

	sem := semaphore.NewWeighted(int64(s.concurrency))
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, p := range queue {
		if err := sem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			result.Errors[p] = fmt.Errorf("semaphore acquire failed: %w", err)
			mu.Unlock()
			continue
		}

		wg.Add(1)
		go func(objectPath string) {
			defer sem.Release(1)
			defer wg.Done()

			local := s.LocalPath(objectPath)
			if err := s.stageOne(ctx, objectPath, local); err != nil {
				mu.Lock()
				result.Errors[objectPath] = stageError(ctx, objectPath, err)
				mu.Unlock()
				return
			}

			mu.Lock()
			result.LocalPaths[objectPath] = local
			result.Downloads++
			mu.Unlock()
		}(p)
	}

	wg.Wait()

	return result, nil
}

// staged reports whether local holds a complete copy of objectPath. The size
// is compared against the store, so a replaced object is fetched again.
func (s *Stager) staged(ctx context.Context, objectPath, local string) bool {
	info, err := os.Stat(local)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	size, err := s.storage.Size(ctx, objectPath)
	return err == nil && size == info.Size()
}

// stageError classifies a failed download. Missing objects are permanent,
// other store failures may pass on a later run.
func stageError(ctx context.Context, objectPath string, err error) error {
	if ctx.Err() != nil {
		return err
	}
	code := loaderr.CodeDownloadFailed
	if errors.Is(err, ErrObjectNotFound) {
		code = loaderr.CodeObjectNotFound
	}
	return loaderr.NewStorageError(code, fmt.Sprintf("stage %s", objectPath), err).
		WithDetails(map[string]interface{}{"object": objectPath})
}

// stageOne downloads into a temporary name first so an interrupted download
// is never mistaken for a staged file on the next run.
func (s *Stager) stageOne(ctx context.Context, objectPath, local string) error {
	if err := os.MkdirAll(filepath.Dir(local), 0755); err != nil {
		return fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}

	tmp := local + ".part"
	if err := s.storage.Download(ctx, objectPath, tmp); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, local); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	return nil
}

// LocalPath returns the staging path for an object. Files from different stores
// live under separate subdirectories keyed by a hash of the store location.
// The object's key structure is kept below that; ".." segments cannot escape it.
func (s *Stager) LocalPath(objectPath string) string {
	clean := path.Clean("/" + strings.ReplaceAll(objectPath, "\\", "/"))
	return filepath.Join(s.stageDir, s.namespace, filepath.FromSlash(strings.TrimPrefix(clean, "/")))
}
