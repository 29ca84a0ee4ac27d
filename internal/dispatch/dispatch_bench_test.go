package dispatch

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/arkilian/tabload/internal/decoder"
	"github.com/arkilian/tabload/internal/executor"
	"github.com/arkilian/tabload/pkg/types"
)

// writeBenchFiles creates n CSV files of rows records each.
func writeBenchFiles(b *testing.B, n, rows int) types.FileList {
	b.Helper()
	dir := b.TempDir()

	var sb strings.Builder
	sb.WriteString("id,name,value\n")
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&sb, "%d,row-%d,%d.5\n", i, i, i*7)
	}
	content := []byte(sb.String())

	files := make(types.FileList, n)
	for i := range files {
		path := filepath.Join(dir, fmt.Sprintf("bench-%03d.csv", i))
		if err := os.WriteFile(path, content, 0644); err != nil {
			b.Fatal(err)
		}
		files[i] = types.WorkItem(path)
	}
	return files
}

func benchmarkStrategy(b *testing.B, s Strategy, files types.FileList) {
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		res, err := s.Run(files)
		if err != nil {
			b.Fatal(err)
		}
		if res.Count != len(files) {
			b.Fatalf("collected %d of %d results", res.Count, len(files))
		}
	}
}

func BenchmarkSequential(b *testing.B) {
	files := writeBenchFiles(b, 32, 2000)
	exec := executor.New(decoder.NewCSVDecoder(decoder.DefaultCSVOptions()))
	benchmarkStrategy(b, NewSequential(exec, Options{}), files)
}

func BenchmarkConcurrent(b *testing.B) {
	files := writeBenchFiles(b, 32, 2000)
	exec := executor.New(decoder.NewCSVDecoder(decoder.DefaultCSVOptions()))
	benchmarkStrategy(b, NewConcurrent(exec, Options{}), files)
}

func BenchmarkMulticore(b *testing.B) {
	files := writeBenchFiles(b, 32, 2000)
	exec := executor.New(decoder.NewCSVDecoder(decoder.DefaultCSVOptions()))
	benchmarkStrategy(b, NewPartitioned(exec, runtime.NumCPU(), Options{}), files)
}
