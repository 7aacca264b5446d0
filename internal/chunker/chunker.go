// Package chunker groups record lines into bounded text chunks so a corpus
// can be fed to the model in fragments that fit its context.
package chunker

import (
	"strings"
)

const DefaultMaxChars = 5000

// Options configures chunking behavior.
type Options struct {
	MaxChars int
}

// DefaultOptions returns default chunking options.
func DefaultOptions() Options {
	return Options{MaxChars: DefaultMaxChars}
}

// Chunk joins records into newline-separated chunks of at most MaxChars
// characters. A record is never split across chunks; a single record longer
// than MaxChars becomes its own chunk.
func Chunk(records []string, opts Options) []string {
	if opts.MaxChars <= 0 {
		opts = DefaultOptions()
	}

	var chunks []string
	var current []string
	currentLen := 0

	for _, record := range records {
		record = strings.TrimSpace(record)
		if record == "" {
			continue
		}
		recordLen := len(record) + 1
		if currentLen+recordLen > opts.MaxChars && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, "\n"))
			current = []string{record}
			currentLen = recordLen
			continue
		}
		current = append(current, record)
		currentLen += recordLen
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, "\n"))
	}
	return chunks
}
