// Chat HTTP handlers.
//
// This file exposes the assistant endpoints:
//   - POST /ai-response             (send a message, stream the reply)
//   - GET  /api/chat                (transcript and session state)
//   - POST /api/chat/voice/start    (begin voice capture)
//   - POST /api/chat/voice/stop     (end voice capture)
//   - PUT  /api/chat/voice          (update the partial voice transcript)
//   - POST /api/chat/voice/submit   (send the pending voice input, streamed)
//
// Replies are relayed as chunked text/plain. The transcript is authoritative:
// when the upstream fails mid-stream, the final transcript entry carries the
// apology message and the handler emits whatever the client has not seen yet.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dermacare/go-derma-backend/internal/chat"
	"github.com/dermacare/go-derma-backend/internal/domain"
)

//
// DTOs
//

// SendMessageRequest is the JSON payload for sending a chat message.
type SendMessageRequest struct {
	Message string `json:"message" binding:"required,min=1"`
}

// VoicePartialRequest carries an interim voice transcription.
type VoicePartialRequest struct {
	Text string `json:"text"`
}

// TranscriptResponse is the JSON envelope for the conversation state.
type TranscriptResponse struct {
	Messages     []domain.ChatMessage `json:"messages"`
	State        string               `json:"state"`
	Recording    bool                 `json:"recording"`
	PendingInput string               `json:"pending_input"`
}

// stateLabel maps session states to their wire names.
func stateLabel(s chat.State) string {
	switch s {
	case chat.StateAwaitingResponse:
		return "awaiting_response"
	case chat.StateStreaming:
		return "streaming"
	default:
		return "idle"
	}
}

//
// Handlers
//

// SendMessage relays the user's message to the assistant and streams the
// reply back as plain text chunks.
func (h *Handlers) SendMessage(c *gin.Context) {
	uid, proceed := requireUser(c)
	if !proceed {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message required")
		return
	}

	sess := h.sessions.Get(uid)
	h.streamReply(c, sess, func(onChunk func(string)) {
		sess.SendMessage(c.Request.Context(), req.Message, onChunk)
	})
}

// SubmitVoiceInput sends the pending voice transcription as a message and
// streams the reply. A 204 is returned when there is nothing pending.
func (h *Handlers) SubmitVoiceInput(c *gin.Context) {
	uid, proceed := requireUser(c)
	if !proceed {
		return
	}

	sess := h.sessions.Get(uid)
	if strings.TrimSpace(sess.PendingInput()) == "" {
		noContent(c)
		return
	}
	h.streamReply(c, sess, func(onChunk func(string)) {
		sess.SubmitPending(c.Request.Context(), onChunk)
	})
}

// streamReply runs send under a chunked text/plain response. Each chunk is
// flushed as the delta between the accumulated reply and what was already
// written. After completion the final transcript entry is compared with the
// streamed text so replacement messages (the apology) still reach the client.
func (h *Handlers) streamReply(c *gin.Context, sess *chat.Session, send func(onChunk func(string))) {
	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	flusher, canFlush := c.Writer.(http.Flusher)

	streamed := ""
	send(func(accumulated string) {
		if !strings.HasPrefix(accumulated, streamed) {
			return
		}
		delta := accumulated[len(streamed):]
		if delta == "" {
			return
		}
		if _, err := c.Writer.WriteString(delta); err != nil {
			return
		}
		streamed = accumulated
		if canFlush {
			flusher.Flush()
		}
	})

	final := lastAssistantText(sess.Transcript())
	if final != streamed {
		if streamed != "" {
			c.Writer.WriteString("\n")
		}
		c.Writer.WriteString(final)
		if canFlush {
			flusher.Flush()
		}
	}
}

// lastAssistantText returns the text of the newest assistant entry.
func lastAssistantText(msgs []domain.ChatMessage) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Sender == domain.SenderAssistant {
			return msgs[i].Text
		}
	}
	return ""
}

// Transcript returns the caller's conversation and session state.
func (h *Handlers) Transcript(c *gin.Context) {
	uid, proceed := requireUser(c)
	if !proceed {
		return
	}

	sess := h.sessions.Get(uid)
	ok(c, http.StatusOK, TranscriptResponse{
		Messages:     sess.Transcript(),
		State:        stateLabel(sess.State()),
		Recording:    sess.Recording(),
		PendingInput: sess.PendingInput(),
	})
}

// StartVoice begins voice capture for the caller's session.
func (h *Handlers) StartVoice(c *gin.Context) {
	uid, proceed := requireUser(c)
	if !proceed {
		return
	}
	h.sessions.Get(uid).StartVoice()
	noContent(c)
}

// StopVoice ends voice capture. The pending input is kept for submission.
func (h *Handlers) StopVoice(c *gin.Context) {
	uid, proceed := requireUser(c)
	if !proceed {
		return
	}
	h.sessions.Get(uid).StopVoice()
	noContent(c)
}

// VoicePartial updates the interim transcription. Updates outside an active
// recording are ignored.
func (h *Handlers) VoicePartial(c *gin.Context) {
	uid, proceed := requireUser(c)
	if !proceed {
		return
	}

	var req VoicePartialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "text required")
		return
	}
	h.sessions.Get(uid).SetPartialInput(req.Text)
	noContent(c)
}
