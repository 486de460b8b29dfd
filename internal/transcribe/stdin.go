package transcribe

import (
	"bufio"
	"context"
	"io"
	"time"
)

// #region stdin-source

// ReaderSource streams utterances from a line-oriented reader, one
// utterance per line. Used for stdin-driven development and replay
// fixtures.
type ReaderSource struct {
	reader     io.Reader
	sourceName string
	deduper    *Deduper
}

// NewReaderSource creates a source over r.
func NewReaderSource(r io.Reader, sourceName string) *ReaderSource {
	return &ReaderSource{reader: r, sourceName: sourceName, deduper: NewDeduper()}
}

// Start begins scanning lines. The channel closes at EOF or context
// cancellation.
func (s *ReaderSource) Start(ctx context.Context) (<-chan Utterance, error) {
	out := make(chan Utterance)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(s.reader)
		for scanner.Scan() {
			text := Clean(scanner.Text())
			if !s.deduper.Admit(text) {
				continue
			}
			select {
			case out <- Utterance{Text: text, Source: s.sourceName, At: time.Now()}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// #endregion stdin-source
