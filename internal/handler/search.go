package handler

import (
	"net/http"
	"strconv"

	appErrors "github.com/alpinesboltltd/docwell/internal/errors"
	"github.com/alpinesboltltd/docwell/internal/search"
	"github.com/gin-gonic/gin"
)

// SearchHandler exposes the hybrid search core over HTTP.
type SearchHandler struct {
	engine *search.Engine
}

func NewSearchHandler(engine *search.Engine) *SearchHandler {
	return &SearchHandler{engine: engine}
}

type searchRequest struct {
	Query string `json:"query" form:"q"`
	TopK  int    `json:"top_k" form:"top_k"`
	Mode  string `json:"mode" form:"mode"`
}

type searchResponse struct {
	Results []search.Result `json:"results"`
}

// Search serves both GET /search?q=&top_k=&mode= and POST /search with a
// JSON body of the same shape.
func (h *SearchHandler) Search(c *gin.Context) {
	var req searchRequest
	if c.Request.Method == http.MethodPost {
		if err := c.ShouldBindJSON(&req); err != nil {
			appErrors.HandleError(c, appErrors.NewValidationError("invalid request body"), "Search")
			return
		}
	} else {
		req.Query = c.Query("q")
		req.Mode = c.Query("mode")
		if v := c.Query("top_k"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				appErrors.HandleError(c, appErrors.NewValidationError("top_k must be an integer"), "Search")
				return
			}
			req.TopK = n
		}
	}

	if req.Query == "" {
		appErrors.HandleError(c, appErrors.NewValidationError("q is required"), "Search")
		return
	}

	mode := search.ModeHybrid
	if req.Mode != "" {
		mode = search.Mode(req.Mode)
	}
	switch mode {
	case search.ModeKeyword, search.ModeSemantic, search.ModeHybrid:
	default:
		appErrors.HandleError(c, appErrors.NewValidationError("mode must be keyword, semantic, or hybrid"), "Search")
		return
	}

	topK := req.TopK
	if topK <= 0 {
		topK = 10
	}

	results, err := h.engine.Search(c.Request.Context(), req.Query, mode, topK)
	if err != nil {
		appErrors.HandleError(c, appErrors.NewInternalError("search failed", err.Error()), "Search")
		return
	}
	c.JSON(http.StatusOK, searchResponse{Results: results})
}
