package api

import (
	"net/http"
	"path/filepath"

	"sms-gateway/internal/templates"

	"github.com/gin-gonic/gin"
)

type TemplateHandler struct {
	service *templates.Service
}

func NewTemplateHandler(service *templates.Service) *TemplateHandler {
	return &TemplateHandler{service: service}
}

func (h *TemplateHandler) GetTemplates(c *gin.Context) {
	list, err := h.service.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	detail, err := h.service.Detail(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	var req templates.CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tpl, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tpl)
}

func (h *TemplateHandler) UpdateTemplate(c *gin.Context) {
	var req templates.UpdateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tpl, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tpl)
}

func (h *TemplateHandler) DeleteTemplate(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "Template deleted"})
}

// UploadFile drops a spreadsheet into the template's folder for the next scan.
func (h *TemplateHandler) UploadFile(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer f.Close()

	name := filepath.Base(fh.Filename)
	if err := h.service.Upload(c.Request.Context(), c.Param("id"), name, f); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "File uploaded", "file": name})
}
