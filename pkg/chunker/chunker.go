package chunker

import (
	"strings"
)

type ChunkerConfig struct {
	// ChunkChars is the character budget per chunk. A sentence that would
	// push the running chunk past this budget starts a new one.
	ChunkChars int
}

// Chunker splits article text into sentence-aligned chunks.
type Chunker struct {
	config ChunkerConfig
}

func NewWithConfig(config ChunkerConfig) Chunker {
	if config.ChunkChars == 0 {
		config.ChunkChars = 1500
	}

	return Chunker{
		config: config,
	}
}

func New() Chunker {
	return NewWithConfig(ChunkerConfig{})
}

// Split segments text into sentences and accumulates them into chunks of at
// most ChunkChars characters. Sentences are never split across chunks; empty
// sentences are dropped.
func (c *Chunker) Split(text string) []string {
	sentences := splitIntoSentences(text)

	var chunks []string
	var current []string
	currentChars := 0

	for _, sentence := range sentences {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}

		if currentChars+len(sentence) > c.config.ChunkChars && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))
			current = nil
			currentChars = 0
		}

		current = append(current, sentence)
		currentChars += len(sentence)
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}

	return chunks
}

func splitIntoSentences(text string) []string {
	sentenceEnders := []string{". ", "! ", "? ", ".\n", "!\n", "?\n"}
	var sentences []string

	current := strings.Builder{}

	for i := 0; i < len(text); i++ {
		current.WriteByte(text[i])

		for _, ender := range sentenceEnders {
			if strings.HasSuffix(current.String(), ender) {
				sentences = append(sentences, strings.TrimSpace(current.String()))
				current.Reset()
				break
			}
		}
	}

	if current.Len() > 0 {
		sentences = append(sentences, strings.TrimSpace(current.String()))
	}

	return sentences
}
