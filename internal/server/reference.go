package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	archivedomain "github.com/syaokifaradisa9/e-office-app-sub001/internal/archive/domain"
	divisiondomain "github.com/syaokifaradisa9/e-office-app-sub001/internal/division/domain"
)

type setDivisionActiveRequest struct {
	Active *bool `json:"active"`
}

func (s *Server) CreateDivision(c *gin.Context) {
	var req divisiondomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	division, err := s.divisionSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": division})
}

func (s *Server) ListDivisions(c *gin.Context) {
	var query struct {
		Name    string `form:"name"`
		Active  string `form:"active"`
		SortBy  string `form:"sort_by"`
		OrderBy string `form:"order_by"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	active, err := parseOptionalBool(query.Active)
	if err != nil {
		AbortWithError(c, newValidationError("active", "invalid_active", "invalid active"))
		return
	}

	divisions, err := s.divisionSvc.List(c.Request.Context(), divisiondomain.ListRequest{
		Name:    strings.TrimSpace(query.Name),
		Active:  active,
		SortBy:  query.SortBy,
		OrderBy: query.OrderBy,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": divisions})
}

func (s *Server) SetDivisionActive(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req setDivisionActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Active == nil {
		AbortWithError(c, newValidationError("active", "required", "active is required"))
		return
	}

	division, err := s.divisionSvc.SetActive(c.Request.Context(), id, *req.Active)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": division})
}

func (s *Server) CreateCategoryContext(c *gin.Context) {
	var req archivedomain.CreateContextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	resp, err := s.archiveSvc.CreateContext(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListCategoryContexts(c *gin.Context) {
	resp, err := s.archiveSvc.ListContexts(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateCategory(c *gin.Context) {
	var req archivedomain.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	resp, err := s.archiveSvc.CreateCategory(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListCategories(c *gin.Context) {
	contextID, err := parseOptionalInt64(c.Query("context_id"))
	if err != nil {
		AbortWithError(c, newValidationError("context_id", "invalid_context_id", "invalid context_id"))
		return
	}
	resp, err := s.archiveSvc.ListCategories(c.Request.Context(), contextID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateClassification(c *gin.Context) {
	var req archivedomain.CreateClassificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	resp, err := s.archiveSvc.CreateClassification(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListClassifications(c *gin.Context) {
	resp, err := s.archiveSvc.ListClassifications(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
