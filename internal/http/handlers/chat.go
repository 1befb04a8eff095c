package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/cookgpt-backend/internal/http/response"
	"github.com/yungbote/cookgpt-backend/internal/media"
	"github.com/yungbote/cookgpt-backend/internal/modules/chat"
	"github.com/yungbote/cookgpt-backend/internal/modules/chat/stream"
	"github.com/yungbote/cookgpt-backend/internal/platform/logger"
	"github.com/yungbote/cookgpt-backend/internal/services"
)

// DefaultMaxUploadBytes caps a single attachment.
const DefaultMaxUploadBytes = 10 << 20

// attachmentFields are the multipart fields read as attachments.
var attachmentFields = []string{"image", "attachment"}

// StreamObserver counts read-stream outcomes.
type StreamObserver interface {
	ObserveStreamRead(outcome string)
}

type ChatHandler struct {
	log       *logger.Logger
	chat      services.ChatService
	maxUpload int64
	streams   StreamObserver
}

// NewChatHandler builds the chat handler. streams may be nil.
func NewChatHandler(log *logger.Logger, chatService services.ChatService, maxUpload int64, streams StreamObserver) *ChatHandler {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadBytes
	}
	return &ChatHandler{log: log.With("handler", "ChatHandler"), chat: chatService, maxUpload: maxUpload, streams: streams}
}

func chatIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("chat_id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_chat_id", err)
		return uuid.Nil, false
	}
	return id, true
}

// threadIDFrom reads thread_id from the query string or, failing that, a
// JSON body.
func threadIDFrom(c *gin.Context) (uuid.UUID, bool) {
	raw := strings.TrimSpace(c.Query("thread_id"))
	if raw == "" && c.Request.ContentLength != 0 {
		var body struct {
			ThreadID string `json:"thread_id"`
		}
		if err := c.ShouldBindJSON(&body); err == nil {
			raw = strings.TrimSpace(body.ThreadID)
		}
	}
	if raw == "" {
		response.RespondError(c, http.StatusBadRequest, "missing_thread", errors.New("thread_id is required"))
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		response.RespondError(c, http.StatusUnprocessableEntity, "invalid_thread", chat.ErrInvalidThread)
		return uuid.Nil, false
	}
	return id, true
}

// POST /api/chat?stream=true
//
// Form fields: query, thread_id (optional), image and attachment files
// (optional). A 200 carries an unsaved placeholder; 201 a saved reply.
func (h *ChatHandler) Post(c *gin.Context) {
	in := services.PostChatInput{Query: c.PostForm("query")}
	if raw := strings.TrimSpace(c.Query("stream")); raw != "" {
		streamed, err := strconv.ParseBool(raw)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_stream", err)
			return
		}
		in.Stream = streamed
	}
	if raw := strings.TrimSpace(c.PostForm("thread_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.RespondError(c, http.StatusUnprocessableEntity, "invalid_thread", chat.ErrInvalidThread)
			return
		}
		in.ThreadID = &id
	}
	for _, field := range attachmentFields {
		fh, err := c.FormFile(field)
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			continue
		}
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_attachment", err)
			return
		}
		f, err := h.readFile(fh)
		if err != nil {
			response.RespondError(c, http.StatusRequestEntityTooLarge, "attachment_too_large", err)
			return
		}
		in.Attachments = append(in.Attachments, f)
	}

	res, err := h.chat.Post(c.Request.Context(), in)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	status := http.StatusCreated
	if res.Dummy {
		status = http.StatusOK
	}
	c.JSON(status, res)
}

func (h *ChatHandler) readFile(fh *multipart.FileHeader) (media.File, error) {
	if fh.Size > h.maxUpload {
		return media.File{}, fmt.Errorf("%s is larger than %d bytes", fh.Filename, h.maxUpload)
	}
	f, err := fh.Open()
	if err != nil {
		return media.File{}, err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, h.maxUpload+1))
	if err != nil {
		return media.File{}, err
	}
	if int64(len(data)) > h.maxUpload {
		return media.File{}, fmt.Errorf("%s is larger than %d bytes", fh.Filename, h.maxUpload)
	}
	return media.File{Name: fh.Filename, ContentType: fh.Header.Get("Content-Type"), Data: data}, nil
}

// GET /api/chat/:chat_id
func (h *ChatHandler) Get(c *gin.Context) {
	id, ok := chatIDParam(c)
	if !ok {
		return
	}
	view, err := h.chat.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, view)
}

// DELETE /api/chat/:chat_id
func (h *ChatHandler) Delete(c *gin.Context) {
	id, ok := chatIDParam(c)
	if !ok {
		return
	}
	if err := h.chat.Delete(c.Request.Context(), id); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondMessage(c, http.StatusOK, "Chat deleted")
}

// GET /api/chat/all?thread_id=
func (h *ChatHandler) List(c *gin.Context) {
	threadID, ok := threadIDFrom(c)
	if !ok {
		return
	}
	chats, err := h.chat.List(c.Request.Context(), threadID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"chats": chats})
}

// DELETE /api/chat/all
func (h *ChatHandler) Clear(c *gin.Context) {
	threadID, ok := threadIDFrom(c)
	if !ok {
		return
	}
	if err := h.chat.Clear(c.Request.Context(), threadID); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondMessage(c, http.StatusOK, "All chats deleted")
}

// GET /api/chat/stream/:chat_id writes the response text as it arrives.
func (h *ChatHandler) ReadStream(c *gin.Context) {
	id, ok := chatIDParam(c)
	if !ok {
		return
	}
	started := false
	begin := func() {
		if started {
			return
		}
		started = true
		c.Header("Content-Type", "text/plain; charset=utf-8")
		c.Header("Cache-Control", "no-cache")
		c.Header("X-Accel-Buffering", "no")
		c.Status(http.StatusOK)
	}
	err := h.chat.ReadStream(c.Request.Context(), id, func(tok string) error {
		begin()
		if _, err := io.WriteString(c.Writer, tok); err != nil {
			return err
		}
		c.Writer.Flush()
		return nil
	})
	h.observe(err)
	if err != nil && !started {
		response.RespondAPIError(c, err)
		return
	}
	if err != nil {
		h.log.Warn("Stream read ended early", "chat_id", id, "error", err)
	}
	begin()
	c.Writer.WriteHeaderNow()
}

func (h *ChatHandler) observe(err error) {
	if h.streams == nil {
		return
	}
	switch {
	case err == nil:
		h.streams.ObserveStreamRead("ok")
	case errors.Is(err, stream.ErrTimeout):
		h.streams.ObserveStreamRead("timeout")
	case errors.Is(err, context.Canceled):
		h.streams.ObserveStreamRead("cancelled")
	default:
		h.streams.ObserveStreamRead("error")
	}
}
