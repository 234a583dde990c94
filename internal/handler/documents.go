package handler

import (
	"net/http"
	"strconv"

	"github.com/alpinesboltltd/docwell/internal/contentstore"
	"github.com/alpinesboltltd/docwell/internal/entity"
	appErrors "github.com/alpinesboltltd/docwell/internal/errors"
	"github.com/gin-gonic/gin"
)

// DocumentsHandler serves the indexed-document catalog.
type DocumentsHandler struct {
	content *contentstore.Store
}

func NewDocumentsHandler(content *contentstore.Store) *DocumentsHandler {
	return &DocumentsHandler{content: content}
}

// ListDocuments handles GET /documents?limit=&offset=.
func (h *DocumentsHandler) ListDocuments(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	if offset < 0 {
		offset = 0
	}

	docs, err := h.content.ListDocuments(c.Request.Context(), limit, offset)
	if err != nil {
		appErrors.HandleError(c, err, "ListDocuments")
		return
	}
	total, err := h.content.CountDocuments(c.Request.Context())
	if err != nil {
		appErrors.HandleError(c, err, "ListDocuments")
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs, "total": total, "limit": limit, "offset": offset})
}

type documentDetail struct {
	entity.Document
	Pages []entity.Page `json:"pages"`
}

// GetDocument handles GET /documents/{id}, returning the document plus
// every rendered page.
func (h *DocumentsHandler) GetDocument(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		appErrors.HandleError(c, appErrors.NewValidationError("invalid document id"), "GetDocument")
		return
	}
	doc, err := h.content.GetDocument(c.Request.Context(), id)
	if err != nil {
		appErrors.HandleError(c, err, "GetDocument")
		return
	}
	pages, err := h.content.ListPages(c.Request.Context(), id)
	if err != nil {
		appErrors.HandleError(c, err, "GetDocument")
		return
	}
	c.JSON(http.StatusOK, documentDetail{Document: *doc, Pages: pages})
}

// ListPageRegions handles GET /documents/{id}/pages/{n}/regions.
func (h *DocumentsHandler) ListPageRegions(c *gin.Context) {
	docID, err := parseID(c, "id")
	if err != nil {
		appErrors.HandleError(c, appErrors.NewValidationError("invalid document id"), "ListPageRegions")
		return
	}
	pageNum, err := strconv.Atoi(c.Param("n"))
	if err != nil {
		appErrors.HandleError(c, appErrors.NewValidationError("invalid page number"), "ListPageRegions")
		return
	}

	page, err := h.content.GetPageByNum(c.Request.Context(), docID, pageNum)
	if err != nil {
		appErrors.HandleError(c, err, "ListPageRegions")
		return
	}
	regions, err := h.content.ListRegions(c.Request.Context(), page.ID)
	if err != nil {
		appErrors.HandleError(c, err, "ListPageRegions")
		return
	}
	c.JSON(http.StatusOK, gin.H{"regions": regions})
}

func parseID(c *gin.Context, param string) (int64, error) {
	return strconv.ParseInt(c.Param(param), 10, 64)
}
