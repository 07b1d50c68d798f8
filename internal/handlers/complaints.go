package handlers

import (
	"govportal/internal/models"
	"govportal/internal/services"

	"github.com/gin-gonic/gin"
)

type ComplaintHandler struct {
	register *services.ComplaintRegister
}

func NewComplaintHandler(register *services.ComplaintRegister) *ComplaintHandler {
	return &ComplaintHandler{register: register}
}

func (h *ComplaintHandler) File(c *gin.Context) {
	var in services.ComplaintInput
	if !bind(c, &in) {
		return
	}
	complaint, err := h.register.File(c.Request.Context(), identity(c), in)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, gin.H{"message": "Complaint filed successfully", "complaintId": complaint.ID, "complaint": complaint})
}

func (h *ComplaintHandler) List(c *gin.Context) {
	list, src, err := h.register.List(c.Request.Context(), identity(c))
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, gin.H{"complaints": list, "source": src})
}

// Review sets the admin status decision.
func (h *ComplaintHandler) Review(c *gin.Context) {
	var body struct {
		Status     models.ComplaintStatus `json:"status"`
		AdminNotes string                 `json:"adminNotes"`
	}
	if !bind(c, &body) {
		return
	}
	complaint, err := h.register.Review(c.Request.Context(), identity(c), c.Param("id"), body.Status, body.AdminNotes)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, gin.H{"message": "Complaint updated", "complaint": complaint})
}

func (h *ComplaintHandler) Delete(c *gin.Context) {
	if err := h.register.Delete(c.Request.Context(), identity(c), c.Param("id")); err != nil {
		Fail(c, err)
		return
	}
	OK(c, gin.H{"message": "Complaint deleted"})
}
