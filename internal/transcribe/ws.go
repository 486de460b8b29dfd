package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	ws "github.com/gorilla/websocket"
)

// #region ws-source

// wsMessage is one frame from the transcription server.
type wsMessage struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}

// WSSource streams utterances from a remote transcription server over
// a websocket, reconnecting with a fixed delay when the connection
// drops.
type WSSource struct {
	url        string
	sourceName string
	reconnect  time.Duration
	deduper    *Deduper
	dial       func(url string) (wsConn, error)
}

// wsConn is the subset of *websocket.Conn the source reads from.
type wsConn interface {
	ReadMessage() (int, []byte, error)
	Close() error
}

// NewWSSource creates a source reading from the given websocket URL.
// sourceName tags each utterance for room resolution.
func NewWSSource(url, sourceName string) (*WSSource, error) {
	if url == "" {
		return nil, fmt.Errorf("transcription url is required")
	}
	return &WSSource{
		url:        url,
		sourceName: sourceName,
		reconnect:  3 * time.Second,
		deduper:    NewDeduper(),
		dial: func(url string) (wsConn, error) {
			conn, _, err := ws.DefaultDialer.Dial(url, nil)
			return conn, err
		},
	}, nil
}

// Start connects and begins streaming. Reconnection continues until
// the context is cancelled.
func (s *WSSource) Start(ctx context.Context) (<-chan Utterance, error) {
	conn, err := s.dial(s.url)
	if err != nil {
		return nil, fmt.Errorf("dial transcription server: %w", err)
	}

	out := make(chan Utterance)
	go s.readLoop(ctx, conn, out)
	return out, nil
}

func (s *WSSource) readLoop(ctx context.Context, conn wsConn, out chan<- Utterance) {
	defer close(out)
	defer conn.Close()

	for {
		if ctx.Err() != nil {
			return
		}

		_, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("[Transcribe] read failed: %v, reconnecting", err)
			conn.Close()
			next, ok := s.redial(ctx)
			if !ok {
				return
			}
			conn = next
			continue
		}

		var msg wsMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			log.Printf("[Transcribe] bad frame: %v", err)
			continue
		}

		text := Clean(msg.Text)
		if !s.deduper.Admit(text) {
			continue
		}

		source := msg.Source
		if source == "" {
			source = s.sourceName
		}
		select {
		case out <- Utterance{Text: text, Source: source, At: time.Now()}:
		case <-ctx.Done():
			return
		}
	}
}

// redial retries the connection until it succeeds or the context ends.
func (s *WSSource) redial(ctx context.Context) (wsConn, bool) {
	for {
		conn, err := s.dial(s.url)
		if err == nil {
			return conn, true
		}
		select {
		case <-time.After(s.reconnect):
		case <-ctx.Done():
			return nil, false
		}
	}
}

// #endregion ws-source
