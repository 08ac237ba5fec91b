package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/brightpath/brainstorm/internal/chat"
	"github.com/brightpath/brainstorm/internal/conversation"
)

// maxBodyBytes limits mutation request bodies.
const maxBodyBytes = 1 << 20

type conversationHandler struct {
	registry *chat.Registry
	logger   *slog.Logger
}

// CreateConversationResponse is the body returned by create.
type CreateConversationResponse struct {
	ID uuid.UUID `json:"id"`
}

// MessageRequest carries user-authored content for submit and edit.
type MessageRequest struct {
	Content string `json:"content"`
}

// MessageResponse identifies the message a mutation produced.
type MessageResponse struct {
	MessageID uuid.UUID `json:"messageId"`
}

// MessagesResponse is a conversation snapshot.
type MessagesResponse struct {
	State    chat.State             `json:"state"`
	Messages []conversation.Message `json:"messages"`
}

func (h *conversationHandler) create(w http.ResponseWriter, _ *http.Request) {
	id, _, err := h.registry.Create()
	if err != nil {
		h.logger.Error("creating conversation", "error", err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreateConversationResponse{ID: id})
}

func (h *conversationHandler) list(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.registry.List())
}

func (h *conversationHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.registry.Delete(id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *conversationHandler) messages(w http.ResponseWriter, r *http.Request) {
	c, ok := h.conversation(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, MessagesResponse{
		State:    c.State(),
		Messages: c.Snapshot(),
	})
}

func (h *conversationHandler) submit(w http.ResponseWriter, r *http.Request) {
	c, ok := h.conversation(w, r)
	if !ok {
		return
	}
	req, ok := decodeMessage(w, r)
	if !ok {
		return
	}

	msgID, err := c.Submit(req.Content)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, MessageResponse{MessageID: msgID})
}

func (h *conversationHandler) edit(w http.ResponseWriter, r *http.Request) {
	c, ok := h.conversation(w, r)
	if !ok {
		return
	}
	msgID, ok := pathID(w, r, "msgID")
	if !ok {
		return
	}
	req, ok := decodeMessage(w, r)
	if !ok {
		return
	}

	newID, err := c.EditUserMessage(msgID, req.Content)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, MessageResponse{MessageID: newID})
}

func (h *conversationHandler) reload(w http.ResponseWriter, r *http.Request) {
	c, ok := h.conversation(w, r)
	if !ok {
		return
	}
	msgID, ok := pathID(w, r, "msgID")
	if !ok {
		return
	}

	newID, err := c.ReloadAssistantMessage(msgID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, MessageResponse{MessageID: newID})
}

func (h *conversationHandler) deleteMessage(w http.ResponseWriter, r *http.Request) {
	c, ok := h.conversation(w, r)
	if !ok {
		return
	}
	msgID, ok := pathID(w, r, "msgID")
	if !ok {
		return
	}

	if err := c.DeleteMessage(msgID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *conversationHandler) clear(w http.ResponseWriter, r *http.Request) {
	c, ok := h.conversation(w, r)
	if !ok {
		return
	}
	c.ClearAll()
	w.WriteHeader(http.StatusNoContent)
}

func (h *conversationHandler) stop(w http.ResponseWriter, r *http.Request) {
	c, ok := h.conversation(w, r)
	if !ok {
		return
	}
	c.Stop()
	w.WriteHeader(http.StatusNoContent)
}

// conversation resolves the {id} path segment to a live chat, writing the
// error response itself on failure.
func (h *conversationHandler) conversation(w http.ResponseWriter, r *http.Request) (*chat.Chat, bool) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return nil, false
	}
	c, ok := h.registry.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", fmt.Sprintf("conversation %s not found", id))
		return nil, false
	}
	return c, true
}

func pathID(w http.ResponseWriter, r *http.Request, segment string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(segment))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", fmt.Sprintf("invalid %s: %v", segment, err))
		return uuid.Nil, false
	}
	return id, true
}

func decodeMessage(w http.ResponseWriter, r *http.Request) (MessageRequest, bool) {
	var req MessageRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return MessageRequest{}, false
	}
	return req, true
}
