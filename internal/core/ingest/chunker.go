package ingest

import (
	"fmt"
	"strings"

	"github.com/vea-digital/asistente/internal/core"
)

const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 100
)

// Chunk is a contiguous text window, the unit of embedding. Index is the
// stable zero-based position inside the document.
type Chunk struct {
	Index int
	Text  string
}

// Chunker splits normalized text into overlapping fixed-size windows.
// Sizes are in runes so multi-byte input chunks the same as its character
// count suggests.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker validates the window geometry up front: an overlap equal to
// or larger than the chunk size would make the loop never advance.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size %d", core.ErrInvalidConfiguration, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: overlap %d with chunk size %d", core.ErrInvalidConfiguration, overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Chunk normalizes text and slides a window of c.size runes over it,
// stepping by size-overlap. Windows come out in increasing start order;
// consecutive windows share exactly c.overlap runes, except the final
// window which may be shorter.
func (c *Chunker) Chunk(text string) []Chunk {
	text = Normalize(text)
	if text == "" {
		return nil
	}

	runes := []rune(text)
	if len(runes) <= c.size {
		return []Chunk{{Index: 0, Text: text}}
	}

	var chunks []Chunk
	start := 0
	for start < len(runes) {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, Chunk{Index: len(chunks), Text: string(runes[start:end])})
		start = start + c.size - c.overlap
	}
	return chunks
}

// Normalize collapses whitespace runs to single spaces, strips NUL bytes
// and trims the ends.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\x00", "")
	return strings.Join(strings.Fields(text), " ")
}
