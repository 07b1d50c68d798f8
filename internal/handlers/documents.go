package handlers

import (
	"net/http"

	"govportal/internal/services"

	"github.com/gin-gonic/gin"
)

type DocumentHandler struct {
	register *services.DocumentRegister
}

func NewDocumentHandler(register *services.DocumentRegister) *DocumentHandler {
	return &DocumentHandler{register: register}
}

func (h *DocumentHandler) Register(c *gin.Context) {
	var in services.DocumentInput
	if !bind(c, &in) {
		return
	}
	doc, err := h.register.Register(c.Request.Context(), identity(c), in)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, gin.H{"message": "Document registered successfully", "documentId": doc.ID, "document": doc})
}

func (h *DocumentHandler) List(c *gin.Context) {
	docs, src, err := h.register.List(c.Request.Context(), identity(c))
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, gin.H{"documents": docs, "source": src})
}

// Content redirects to the document on the IPFS gateway.
func (h *DocumentHandler) Content(c *gin.Context) {
	url, err := h.register.ContentURL(c.Request.Context(), identity(c), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, url)
}
