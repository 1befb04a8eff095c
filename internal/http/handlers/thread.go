package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/cookgpt-backend/internal/http/response"
	"github.com/yungbote/cookgpt-backend/internal/modules/chat"
	"github.com/yungbote/cookgpt-backend/internal/services"
)

type ThreadHandler struct {
	threads services.ThreadService
}

func NewThreadHandler(threads services.ThreadService) *ThreadHandler {
	return &ThreadHandler{threads: threads}
}

func threadIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("thread_id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_thread_id", err)
		return uuid.Nil, false
	}
	return id, true
}

// POST /api/thread
func (h *ThreadHandler) Create(c *gin.Context) {
	var req struct {
		Title string `json:"title"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
	}
	thread, err := h.threads.Create(c.Request.Context(), req.Title)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"message": "Thread created successfully", "thread": thread})
}

// GET /api/thread/:thread_id
func (h *ThreadHandler) Get(c *gin.Context) {
	id, ok := threadIDParam(c)
	if !ok {
		return
	}
	thread, err := h.threads.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, thread)
}

// PATCH /api/thread/:thread_id
func (h *ThreadHandler) Update(c *gin.Context) {
	id, ok := threadIDParam(c)
	if !ok {
		return
	}
	var req struct {
		Title  *string `json:"title"`
		Closed *bool   `json:"closed"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	thread, err := h.threads.Update(c.Request.Context(), id, chat.ThreadUpdate{Title: req.Title, Closed: req.Closed})
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"message": "Thread updated successfully", "thread": thread})
}

// DELETE /api/thread/:thread_id
func (h *ThreadHandler) Delete(c *gin.Context) {
	id, ok := threadIDParam(c)
	if !ok {
		return
	}
	if err := h.threads.Delete(c.Request.Context(), id); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondMessage(c, http.StatusOK, "Thread deleted successfully")
}

// GET /api/threads
func (h *ThreadHandler) List(c *gin.Context) {
	threads, err := h.threads.ListActive(c.Request.Context())
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"threads": threads})
}

// DELETE /api/threads removes the caller's open threads.
func (h *ThreadHandler) DeleteAll(c *gin.Context) {
	n, err := h.threads.DeleteOpen(c.Request.Context())
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondMessage(c, http.StatusOK, services.DeletedThreadsMessage(n))
}
