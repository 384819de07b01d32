package chunking

// Batcher cuts a word stream into oracle-sized batches.
type Batcher struct {
	BatchSize int
}

func NewBatcher(batchSize int) *Batcher {
	if batchSize <= 0 {
		batchSize = 256
	}
	return &Batcher{BatchSize: batchSize}
}

// Split returns consecutive sub-slices of at most BatchSize words. The
// sub-slices share the backing array of words.
func (b *Batcher) Split(words []string) [][]string {
	if len(words) == 0 {
		return nil
	}

	out := make([][]string, 0, len(words)/b.BatchSize+1)
	for start := 0; start < len(words); start += b.BatchSize {
		end := start + b.BatchSize
		if end > len(words) {
			end = len(words)
		}
		out = append(out, words[start:end])
	}
	return out
}
