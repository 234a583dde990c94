package handler

import (
	"net/http"
	"strconv"

	"github.com/alpinesboltltd/docwell/internal/contentstore"
	appErrors "github.com/alpinesboltltd/docwell/internal/errors"
	"github.com/alpinesboltltd/docwell/internal/storage"
	"github.com/gin-gonic/gin"
)

// RenderHandler serves raster page and crop images straight off disk.
type RenderHandler struct {
	content *contentstore.Store
	storage *storage.FileStorage
}

func NewRenderHandler(content *contentstore.Store, fileStorage *storage.FileStorage) *RenderHandler {
	return &RenderHandler{content: content, storage: fileStorage}
}

// RenderPage handles GET /render/page/{doc}/{n}.
func (h *RenderHandler) RenderPage(c *gin.Context) {
	docID, err := strconv.ParseInt(c.Param("doc"), 10, 64)
	if err != nil {
		appErrors.HandleError(c, appErrors.NewValidationError("invalid document id"), "RenderPage")
		return
	}
	pageNum, err := strconv.Atoi(c.Param("n"))
	if err != nil {
		appErrors.HandleError(c, appErrors.NewValidationError("invalid page number"), "RenderPage")
		return
	}

	page, err := h.content.GetPageByNum(c.Request.Context(), docID, pageNum)
	if err != nil {
		appErrors.HandleError(c, err, "RenderPage")
		return
	}
	data, err := h.storage.ReadFile(page.ImagePath)
	if err != nil {
		appErrors.HandleError(c, appErrors.NewNotFoundError("page image not found"), "RenderPage")
		return
	}
	c.Data(http.StatusOK, "image/png", data)
}

// RenderCrop handles GET /render/crop/{doc}/{region}.
func (h *RenderHandler) RenderCrop(c *gin.Context) {
	docID, err := strconv.ParseInt(c.Param("doc"), 10, 64)
	if err != nil {
		appErrors.HandleError(c, appErrors.NewValidationError("invalid document id"), "RenderCrop")
		return
	}
	regionID, err := strconv.ParseInt(c.Param("region"), 10, 64)
	if err != nil {
		appErrors.HandleError(c, appErrors.NewValidationError("invalid region id"), "RenderCrop")
		return
	}

	region, err := h.content.GetRegion(c.Request.Context(), docID, regionID)
	if err != nil {
		appErrors.HandleError(c, err, "RenderCrop")
		return
	}
	if region.CropPath == "" {
		appErrors.HandleError(c, appErrors.NewNotFoundError("region has no crop"), "RenderCrop")
		return
	}
	data, err := h.storage.ReadFile(region.CropPath)
	if err != nil {
		appErrors.HandleError(c, appErrors.NewNotFoundError("crop image not found"), "RenderCrop")
		return
	}
	c.Data(http.StatusOK, "image/png", data)
}
