package handler

import (
	"io"
	"net/http"
	"strings"

	appErrors "github.com/alpinesboltltd/docwell/internal/errors"
	"github.com/alpinesboltltd/docwell/internal/ingest"
	"github.com/alpinesboltltd/docwell/internal/logging"
	"github.com/gin-gonic/gin"
)

// IngestHandler exposes the ingest pipeline over HTTP.
type IngestHandler struct {
	pipeline *ingest.Pipeline
	log      *logging.Logger
}

func NewIngestHandler(pipeline *ingest.Pipeline, log *logging.Logger) *IngestHandler {
	return &IngestHandler{pipeline: pipeline, log: log}
}

// IngestPDF handles a multipart PDF upload: POST /ingest/pdf.
func (h *IngestHandler) IngestPDF(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		appErrors.HandleError(c, appErrors.NewValidationError("file is required"), "IngestPDF")
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") {
		appErrors.HandleError(c, appErrors.NewValidationError("file must be a PDF"), "IngestPDF")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		appErrors.HandleError(c, appErrors.NewInternalError("failed to read upload", err.Error()), "IngestPDF")
		return
	}
	if len(data) == 0 {
		c.JSON(http.StatusOK, gin.H{"detail": "Skipped (duplicate or empty)"})
		return
	}

	documentID, duplicate, err := h.pipeline.Run(c.Request.Context(), data, header.Filename)
	if err != nil {
		h.log.Errorf("ingest pdf %q failed: %v", header.Filename, err)
		appErrors.HandleError(c, err, "IngestPDF")
		return
	}
	if duplicate {
		c.JSON(http.StatusOK, gin.H{"detail": "Skipped (duplicate or empty)"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"document_id": documentID, "status": "indexed"})
}
