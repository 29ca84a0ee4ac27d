package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	loaderr "github.com/arkilian/tabload/internal/errors"
)

func seedStore(t *testing.T, paths []string, content []byte) *LocalStorage {
	t.Helper()

	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	src := filepath.Join(t.TempDir(), "seed")
	require.NoError(t, os.WriteFile(src, content, 0644))
	for _, p := range paths {
		require.NoError(t, store.Upload(context.Background(), src, p))
	}
	return store
}

func TestStager_BasicStage(t *testing.T) {
	paths := []string{"d/obj1.csv", "d/obj2.csv", "d/obj3.csv", "d/obj4.csv", "d/obj5.csv",
		"d/obj6.csv", "d/obj7.csv", "d/obj8.csv", "d/obj9.csv", "d/obj10.csv"}
	content := []byte("a,b\n1,2\n")
	store := seedStore(t, paths, content)

	stager := NewStager(store, 3, t.TempDir())
	result, err := stager.Stage(context.Background(), paths)
	require.NoError(t, err)

	assert.Len(t, result.LocalPaths, len(paths))
	assert.Empty(t, result.Errors)
	assert.Equal(t, 0, result.CacheHits)
	assert.Equal(t, len(paths), result.Downloads)

	for p, local := range result.LocalPaths {
		got, err := os.ReadFile(local)
		require.NoError(t, err, p)
		assert.Equal(t, string(content), string(got))
		_, err = os.Stat(local + ".part")
		assert.True(t, os.IsNotExist(err), "temporary file left behind for %s", p)
	}
}

func TestStager_CacheHit(t *testing.T) {
	store := seedStore(t, []string{"x/a.csv"}, []byte("h\n1\n"))
	stager := NewStager(store, 2, t.TempDir())
	ctx := context.Background()

	first, err := stager.Stage(ctx, []string{"x/a.csv"})
	require.NoError(t, err)
	assert.Equal(t, 0, first.CacheHits)
	assert.Equal(t, 1, first.Downloads)

	second, err := stager.Stage(ctx, []string{"x/a.csv"})
	require.NoError(t, err)
	assert.Equal(t, 1, second.CacheHits)
	assert.Equal(t, 0, second.Downloads)
	assert.Equal(t, first.LocalPaths["x/a.csv"], second.LocalPaths["x/a.csv"])
}

func TestStager_PartialFailure(t *testing.T) {
	paths := []string{"exists1.csv", "exists2.csv", "exists3.csv", "nonexistent1.csv", "nonexistent2.csv"}
	store := seedStore(t, paths[:3], []byte("h\n1\n"))

	stager := NewStager(store, 3, t.TempDir())
	result, err := stager.Stage(context.Background(), paths)
	require.NoError(t, err)

	assert.Len(t, result.LocalPaths, 3)
	assert.Len(t, result.Errors, 2)
	assert.Equal(t, 3, result.Downloads)
	for _, p := range paths[3:] {
		assert.ErrorIs(t, result.Errors[p], ErrObjectNotFound)
		assert.Equal(t, loaderr.ErrCategoryStorage, loaderr.GetCategory(result.Errors[p]))
		assert.Equal(t, loaderr.CodeObjectNotFound, loaderr.GetCode(result.Errors[p]))
		assert.False(t, loaderr.IsRetryable(result.Errors[p]))
	}
}

// failingStore fails every download with a transport error.
type failingStore struct{ *LocalStorage }

func (failingStore) Download(context.Context, string, string) error {
	return ErrDownloadFailed
}

func TestStager_DownloadFailureIsRetryable(t *testing.T) {
	store := failingStore{seedStore(t, []string{"a.csv"}, []byte("h\n1\n"))}

	result, err := NewStager(store, 1, t.TempDir()).Stage(context.Background(), []string{"a.csv"})
	require.NoError(t, err)
	require.Contains(t, result.Errors, "a.csv")

	got := result.Errors["a.csv"]
	assert.ErrorIs(t, got, ErrDownloadFailed)
	assert.Equal(t, loaderr.CodeDownloadFailed, loaderr.GetCode(got))
	assert.True(t, loaderr.IsRetryable(got))
	assert.Empty(t, result.LocalPaths)
}

func TestStager_SameBaseNameDifferentPrefix(t *testing.T) {
	paths := []string{"2023/data.csv", "2024/data.csv"}
	store := seedStore(t, paths, []byte("h\n1\n"))

	stager := NewStager(store, 2, t.TempDir())
	result, err := stager.Stage(context.Background(), paths)
	require.NoError(t, err)

	require.Len(t, result.LocalPaths, 2)
	assert.NotEqual(t, result.LocalPaths["2023/data.csv"], result.LocalPaths["2024/data.csv"])
}

func TestStager_EmptyRequest(t *testing.T) {
	stager := NewStager(seedStore(t, nil, nil), 3, "")

	result, err := stager.Stage(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, result.LocalPaths)
	assert.Empty(t, result.Errors)
}

func TestStager_RequiresStageDir(t *testing.T) {
	stager := NewStager(seedStore(t, []string{"a.csv"}, []byte("x")), 3, "")

	result, err := stager.Stage(context.Background(), []string{"a.csv"})
	assert.Error(t, err)
	assert.Nil(t, result)
}

func TestStager_LocalPathStaysInsideStageDir(t *testing.T) {
	dir := t.TempDir()
	stager := NewStager(nil, 1, dir)

	tests := []struct {
		object string
		want   string
	}{
		{"a.csv", filepath.Join(dir, "a.csv")},
		{"bench/a.csv", filepath.Join(dir, "bench", "a.csv")},
		{"../../etc/passwd", filepath.Join(dir, "etc", "passwd")},
		{"/abs/b.csv", filepath.Join(dir, "abs", "b.csv")},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stager.LocalPath(tt.object), tt.object)
	}
}

func TestStager_SameKeyDifferentStores(t *testing.T) {
	stageDir := t.TempDir()
	ctx := context.Background()
	storeA := seedStore(t, []string{"data/x.csv"}, []byte("FROM_STORE_A\n"))
	storeB := seedStore(t, []string{"data/x.csv"}, []byte("FROM_STORE_B\n"))

	first, err := NewStager(storeA, 1, stageDir).Stage(ctx, []string{"data/x.csv"})
	require.NoError(t, err)
	require.Equal(t, 1, first.Downloads)

	second, err := NewStager(storeB, 1, stageDir).Stage(ctx, []string{"data/x.csv"})
	require.NoError(t, err)
	assert.Equal(t, 0, second.CacheHits)
	assert.Equal(t, 1, second.Downloads)
	assert.NotEqual(t, first.LocalPaths["data/x.csv"], second.LocalPaths["data/x.csv"])

	got, err := os.ReadFile(second.LocalPaths["data/x.csv"])
	require.NoError(t, err)
	assert.Equal(t, "FROM_STORE_B\n", string(got))

	got, err = os.ReadFile(first.LocalPaths["data/x.csv"])
	require.NoError(t, err)
	assert.Equal(t, "FROM_STORE_A\n", string(got))
}

func TestStager_ResizedObjectIsFetchedAgain(t *testing.T) {
	store := seedStore(t, []string{"x/a.csv"}, []byte("h\n1\n"))
	stager := NewStager(store, 1, t.TempDir())
	ctx := context.Background()

	_, err := stager.Stage(ctx, []string{"x/a.csv"})
	require.NoError(t, err)

	src := filepath.Join(t.TempDir(), "grown.csv")
	require.NoError(t, os.WriteFile(src, []byte("h\n1\n2\n3\n"), 0644))
	require.NoError(t, store.Upload(ctx, src, "x/a.csv"))

	result, err := stager.Stage(ctx, []string{"x/a.csv"})
	require.NoError(t, err)
	assert.Equal(t, 0, result.CacheHits)
	assert.Equal(t, 1, result.Downloads)

	got, err := os.ReadFile(result.LocalPaths["x/a.csv"])
	require.NoError(t, err)
	assert.Equal(t, "h\n1\n2\n3\n", string(got))
}

func TestStager_NamespaceFollowsStoreLocation(t *testing.T) {
	dir := t.TempDir()
	store := seedStore(t, nil, nil)

	a := NewStager(store, 1, dir).LocalPath("k/a.csv")
	b := NewStager(store, 4, dir).LocalPath("k/a.csv")
	assert.Equal(t, a, b)

	rel, err := filepath.Rel(dir, a)
	require.NoError(t, err)
	parts := strings.Split(filepath.ToSlash(rel), "/")
	require.Len(t, parts, 3)
	assert.Len(t, parts[0], 16)
	assert.Equal(t, []string{"k", "a.csv"}, parts[1:])
}
