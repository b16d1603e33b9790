package knowledge

import "strings"

// Chunker splits extracted document text into overlapping windows so each
// embedding keeps some context from its neighbors.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker builds a chunker with the given window size and overlap.
// Overlap is clamped below size so the window always advances.
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}
	return &Chunker{size: size, overlap: overlap}
}

// Split breaks text into overlapping chunks. For example size=5 overlap=2
// turns "ABCDEFGHIJ" into ["ABCDE", "DEFGH", "GHIJ"]. Size and overlap
// count characters, not bytes, so multi-byte text never splits mid rune.
// Empty or whitespace-only text yields no chunks. The last chunk may be
// shorter than size.
func (c *Chunker) Split(text string) []string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}

	var chunks []string
	n := len(runes)
	start := 0
	for start < n {
		end := start + c.size
		if end > n {
			end = n
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == n {
			break
		}
		start = end - c.overlap
	}
	return chunks
}
