// Package minestub is an in-process stand-in for a node's POST /mine
// endpoint. It records what it receives so tests can inspect the traffic.
package minestub

import (
	"io"
	"net/http"
	"sync"

	"github.com/rs/zerolog"
)

// DefaultReply is what a node answers after mining a block.
const DefaultReply = "Block mined"

// Request is one request as received by the stub.
type Request struct {
	Method      string
	Path        string
	ContentType string
	Body        []byte
}

type Stub struct {
	mu        sync.Mutex
	requests  []Request
	status    int
	reply     string
	dropAfter int
	log       zerolog.Logger
}

type Option func(s *Stub)

// WithReply sets the status code and body sent back for POST /mine.
func WithReply(status int, body string) Option {
	return func(s *Stub) {
		s.status = status
		s.reply = body
	}
}

// WithDropAfter answers the first n requests and closes the connection
// without a response for every one after that.
func WithDropAfter(n int) Option {
	return func(s *Stub) {
		s.dropAfter = n
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Stub) {
		s.log = l
	}
}

func New(opts ...Option) *Stub {
	s := &Stub{
		status:    http.StatusOK,
		reply:     DefaultReply,
		dropAfter: -1,
		log:       zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Stub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Method:      r.Method,
		Path:        r.URL.Path,
		ContentType: r.Header.Get("Content-Type"),
		Body:        body,
	})
	n := len(s.requests)
	s.mu.Unlock()

	s.log.Debug().Str("method", r.Method).Str("remote", r.RemoteAddr).Int("n", n).Msg("received request")

	if s.dropAfter >= 0 && n > s.dropAfter {
		// closes the connection without writing anything
		panic(http.ErrAbortHandler)
	}

	if r.Method != http.MethodPost || r.URL.Path != "/mine" {
		http.NotFound(w, r)
		return
	}

	w.WriteHeader(s.status)
	w.Write([]byte(s.reply))
}

// Requests returns a copy of everything received so far.
func (s *Stub) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

func (s *Stub) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}
