// Package chat maintains per-dashboard conversation transcripts and mediates
// exchanges with the remote assistant.
//
// A Session owns one ordered transcript. Sending a message appends the user
// entry plus an empty assistant placeholder, then streams the reply into that
// placeholder chunk by chunk: each received chunk extends an accumulator and
// the placeholder's text is replaced with the full accumulator, so partial
// replies are always a prefix of the final one. Chunks are applied strictly
// in arrival order.
//
// Sends cannot fail upward. Any transport problem, before the first chunk or
// mid-stream, replaces the placeholder with a fixed apology message.
//
// Each send captures a generation number. If a newer send starts while an
// older one is still streaming, the older generation's chunks and completion
// are discarded so a late reply cannot clobber the newer exchange.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/dermacare/go-derma-backend/internal/domain"
)

// ApologyMessage replaces the assistant placeholder when a reply cannot be
// delivered.
const ApologyMessage = "I apologize, but I'm having trouble connecting to the server right now. Please try again later."

// State describes where a session is within one send.
type State int

const (
	// StateIdle means no send is in flight.
	StateIdle State = iota
	// StateAwaitingResponse means a request was issued but no chunk arrived yet.
	StateAwaitingResponse
	// StateStreaming means reply chunks are being applied to the transcript.
	StateStreaming
)

// Streamer delivers assistant replies as an ordered sequence of chunks.
// upstream.AssistantClient satisfies it.
type Streamer interface {
	Stream(ctx context.Context, input string, onChunk func(chunk string) error) error
}

// errSuperseded aborts a stale generation's read loop.
var errSuperseded = errors.New("send superseded")

// Session is one logical conversation. Safe for concurrent use; transcript
// mutations are serialized internally.
type Session struct {
	mu        sync.Mutex
	assistant Streamer

	transcript []domain.ChatMessage
	state      State
	generation uint64

	// Pending voice input. Partial transcripts overwrite pendingInput until
	// the user explicitly submits; the transcript itself is never touched by
	// voice capture.
	pendingInput string
	recording    bool
}

// NewSession returns an empty session backed by the given assistant.
func NewSession(assistant Streamer) *Session {
	return &Session{assistant: assistant}
}

// SendMessage appends a user entry and an empty assistant placeholder, then
// streams the reply into the placeholder. onChunk, when non-nil, observes the
// accumulated reply after each applied chunk (the full text so far, not the
// delta); the HTTP layer uses it to relay the stream to the browser.
//
// Empty input after trimming is a no-op: nothing is appended and no request
// is issued. SendMessage never returns an error; failures surface as the
// apology message in the transcript.
func (s *Session) SendMessage(ctx context.Context, text string, onChunk func(accumulated string)) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.transcript = append(s.transcript,
		domain.ChatMessage{Sender: domain.SenderUser, Text: text},
		domain.ChatMessage{Sender: domain.SenderAssistant, Text: ""},
	)
	placeholder := len(s.transcript) - 1
	s.state = StateAwaitingResponse
	s.mu.Unlock()

	var accumulated strings.Builder
	err := s.assistant.Stream(ctx, text, func(chunk string) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.generation != gen {
			return errSuperseded
		}
		accumulated.WriteString(chunk)
		s.transcript[placeholder].Text = accumulated.String()
		s.state = StateStreaming
		if onChunk != nil {
			onChunk(accumulated.String())
		}
		return nil
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		// A newer send owns the session now; this completion is discarded.
		return
	}
	if err != nil && !errors.Is(err, errSuperseded) {
		s.transcript[placeholder].Text = ApologyMessage
	}
	s.state = StateIdle
}

// PushAssistantNote appends an assistant entry outside the send flow. The
// image analysis workflow uses it to surface its error message in the
// transcript.
func (s *Session) PushAssistantNote(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = append(s.transcript, domain.ChatMessage{Sender: domain.SenderAssistant, Text: text})
}

// Transcript returns a copy of the current transcript.
func (s *Session) Transcript() []domain.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ChatMessage, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// State reports the session's position within the current send.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// StartVoice begins a voice capture. It is an explicit toggle; capture never
// starts or stops on its own.
func (s *Session) StartVoice() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recording = true
}

// StopVoice ends a voice capture, keeping whatever partial input was
// collected so the user can still submit or edit it.
func (s *Session) StopVoice() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recording = false
}

// Recording reports whether a voice capture is active.
func (s *Session) Recording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recording
}

// SetPartialInput overwrites the pending input with the latest interim voice
// transcript. Partials are ignored when no capture is active.
func (s *Session) SetPartialInput(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recording {
		s.pendingInput = text
	}
}

// PendingInput returns the current pending (not yet submitted) input.
func (s *Session) PendingInput() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingInput
}

// SubmitPending sends the pending input as a message and clears it.
func (s *Session) SubmitPending(ctx context.Context, onChunk func(accumulated string)) {
	s.mu.Lock()
	text := s.pendingInput
	s.pendingInput = ""
	s.mu.Unlock()
	s.SendMessage(ctx, text, onChunk)
}
