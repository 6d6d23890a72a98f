package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dermacare/go-derma-backend/internal/domain"
)

// ----- Fake streamer -----

type fakeStreamer struct {
	chunks []string
	err    error // returned after delivering chunks

	gotInput string
}

func (f *fakeStreamer) Stream(_ context.Context, input string, onChunk func(string) error) error {
	f.gotInput = input
	for _, c := range f.chunks {
		if err := onChunk(c); err != nil {
			return err
		}
	}
	return f.err
}

// ----- Tests -----

func TestSendMessage_AppendsUserAndPlaceholder(t *testing.T) {
	// A streamer that inspects the transcript before delivering anything.
	var observed []domain.ChatMessage
	s := NewSession(nil)
	s.assistant = streamFunc(func(_ context.Context, _ string, onChunk func(string) error) error {
		observed = s.Transcript()
		return onChunk("hi")
	})

	s.SendMessage(context.Background(), "  hello  ", nil)

	if len(observed) != 2 {
		t.Fatalf("want 2 entries before any completion, got %d", len(observed))
	}
	if observed[0].Sender != domain.SenderUser || observed[0].Text != "hello" {
		t.Fatalf("first entry = %+v", observed[0])
	}
	if observed[1].Sender != domain.SenderAssistant || observed[1].Text != "" {
		t.Fatalf("placeholder = %+v", observed[1])
	}
}

func TestSendMessage_EmptyInputIsNoOp(t *testing.T) {
	f := &fakeStreamer{chunks: []string{"x"}}
	s := NewSession(f)
	for _, in := range []string{"", "   ", "\n\t"} {
		s.SendMessage(context.Background(), in, nil)
	}
	if len(s.Transcript()) != 0 {
		t.Fatalf("transcript must stay empty, got %v", s.Transcript())
	}
	if f.gotInput != "" {
		t.Fatalf("no request may be issued for empty input, streamer saw %q", f.gotInput)
	}
}

func TestStreamingIngestion_AccumulatesInArrivalOrder(t *testing.T) {
	chunks := []string{"The ", "condition ", "looks ", "benign."}
	f := &fakeStreamer{chunks: chunks}
	s := NewSession(f)

	var seen []string
	s.SendMessage(context.Background(), "what is this?", func(acc string) {
		seen = append(seen, acc)
	})

	tr := s.Transcript()
	if len(tr) != 2 {
		t.Fatalf("transcript length changed during streaming: %d", len(tr))
	}
	want := strings.Join(chunks, "")
	if tr[1].Text != want {
		t.Fatalf("last entry = %q, want %q", tr[1].Text, want)
	}
	// Each observation is the full accumulator, so every one is a prefix of
	// the final text.
	for i, acc := range seen {
		if !strings.HasPrefix(want, acc) {
			t.Fatalf("observation %d = %q is not a prefix of %q", i, acc, want)
		}
	}
	if len(seen) != len(chunks) {
		t.Fatalf("want %d observations, got %d", len(chunks), len(seen))
	}
	if s.State() != StateIdle {
		t.Fatalf("state must return to idle, got %v", s.State())
	}
}

func TestSendMessage_TransportFailureYieldsApology(t *testing.T) {
	f := &fakeStreamer{err: errors.New("connection refused")}
	s := NewSession(f)

	s.SendMessage(context.Background(), "hello", nil)

	tr := s.Transcript()
	if len(tr) != 2 {
		t.Fatalf("want 2 entries, got %d", len(tr))
	}
	if tr[1].Text != ApologyMessage {
		t.Fatalf("placeholder = %q, want apology", tr[1].Text)
	}
}

func TestSendMessage_MidStreamFailureReplacesPartialWithApology(t *testing.T) {
	f := &fakeStreamer{chunks: []string{"partial "}, err: errors.New("reset")}
	s := NewSession(f)

	s.SendMessage(context.Background(), "hello", nil)

	tr := s.Transcript()
	if tr[1].Text != ApologyMessage {
		t.Fatalf("partial text must be replaced with apology, got %q", tr[1].Text)
	}
}

func TestSendMessage_SupersededSendIsDiscarded(t *testing.T) {
	// First call blocks until released and then delivers a stale chunk;
	// the second call replies immediately.
	release := make(chan struct{})
	var calls int
	var mu sync.Mutex
	s := NewSession(streamFunc(func(_ context.Context, _ string, onChunk func(string) error) error {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()
		if first {
			<-release
			return onChunk("stale reply")
		}
		return onChunk("fresh reply")
	}))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.SendMessage(context.Background(), "first", nil)
	}()

	// Wait for the first send to append its entries and hit the stream.
	deadline := time.Now().Add(time.Second)
	for len(s.Transcript()) < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	// Second send supersedes the first.
	s.SendMessage(context.Background(), "second", nil)

	// Release the stale stream and let it finish.
	close(release)
	wg.Wait()

	tr := s.Transcript()
	if len(tr) != 4 {
		t.Fatalf("want 4 entries, got %d: %v", len(tr), tr)
	}
	if tr[1].Text != "" {
		t.Fatalf("stale placeholder must stay untouched, got %q", tr[1].Text)
	}
	if tr[3].Text != "fresh reply" {
		t.Fatalf("newest reply = %q", tr[3].Text)
	}
}

func TestVoiceCapture_PartialsOverwritePendingInputOnly(t *testing.T) {
	s := NewSession(&fakeStreamer{chunks: []string{"ok"}})

	// Partials before starting are ignored.
	s.SetPartialInput("ignored")
	if s.PendingInput() != "" {
		t.Fatalf("partial applied while not recording")
	}

	s.StartVoice()
	s.SetPartialInput("what is")
	s.SetPartialInput("what is melanoma")
	if got := s.PendingInput(); got != "what is melanoma" {
		t.Fatalf("pending input = %q", got)
	}
	if len(s.Transcript()) != 0 {
		t.Fatal("voice partials must never touch the transcript")
	}
	s.StopVoice()
	if s.Recording() {
		t.Fatal("stop must end the capture")
	}

	s.SubmitPending(context.Background(), nil)
	tr := s.Transcript()
	if len(tr) != 2 || tr[0].Text != "what is melanoma" {
		t.Fatalf("submit did not send pending input: %v", tr)
	}
	if s.PendingInput() != "" {
		t.Fatal("pending input must be cleared on submit")
	}
}

func TestPushAssistantNote_AppendsEntry(t *testing.T) {
	s := NewSession(&fakeStreamer{})
	s.PushAssistantNote("I'm sorry, there was an error analyzing your image. Please try again.")
	tr := s.Transcript()
	if len(tr) != 1 || tr[0].Sender != domain.SenderAssistant {
		t.Fatalf("unexpected transcript: %v", tr)
	}
}

func TestManager_CreatesAndDropsSessions(t *testing.T) {
	m := NewManager(&fakeStreamer{}, time.Minute)
	a := m.Get("sid-1")
	if a == nil {
		t.Fatal("nil session")
	}
	if m.Get("sid-1") != a {
		t.Fatal("same id must return same session")
	}
	if m.Get("sid-2") == a {
		t.Fatal("distinct ids must not share sessions")
	}
	m.Drop("sid-1")
	if m.Get("sid-1") == a {
		t.Fatal("dropped session must not be returned again")
	}
}

// streamFunc adapts a function to the Streamer interface.
type streamFunc func(ctx context.Context, input string, onChunk func(string) error) error

func (f streamFunc) Stream(ctx context.Context, input string, onChunk func(string) error) error {
	return f(ctx, input, onChunk)
}
