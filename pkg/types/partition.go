package types

// StrategyName names one of the interchangeable execution strategies.
type StrategyName string

const (
	// StrategySequential loads files one at a time in list order
	StrategySequential StrategyName = "sequential"

	// StrategyConcurrent launches one task per file with no cap
	StrategyConcurrent StrategyName = "concurrent"

	// StrategyMulticore partitions the list into contiguous chunks, one worker per chunk
	StrategyMulticore StrategyName = "multicore"
)

// Chunk is a contiguous, non-empty slice of the FileList assigned to one worker.
type Chunk struct {
	// Index is the position of the chunk in the partitioning, starting at 0
	Index int `json:"index"`

	// Items are the chunk's files in original order
	Items FileList `json:"items"`
}

// Len returns the number of items in the chunk.
func (c Chunk) Len() int {
	return len(c.Items)
}
