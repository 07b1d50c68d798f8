package handlers

import (
	"time"

	"govportal/internal/services"

	"github.com/gin-gonic/gin"
)

type AssistantHandler struct {
	assistant *services.Assistant
	now       func() time.Time
}

func NewAssistantHandler(assistant *services.Assistant) *AssistantHandler {
	return &AssistantHandler{assistant: assistant, now: time.Now}
}

func (h *AssistantHandler) Chat(c *gin.Context) {
	var body struct {
		Message string `json:"message"`
	}
	if !bind(c, &body) {
		return
	}
	reply, err := h.assistant.Reply(c.Request.Context(), body.Message)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, gin.H{"reply": reply.Reply, "source": reply.Source})
}

func (h *AssistantHandler) Insights(c *gin.Context) {
	OK(c, gin.H{"insights": services.StaticInsights(h.now())})
}
