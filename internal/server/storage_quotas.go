package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	quotadomain "github.com/syaokifaradisa9/e-office-app-sub001/internal/quota/domain"
)

type setStorageQuotaRequest struct {
	MaxSize *int64 `json:"max_size"`
}

func (s *Server) ListStorageQuotas(c *gin.Context) {
	actor, _ := actorFrom(c)
	ctx := c.Request.Context()

	if isScoped(actor) {
		usage, err := s.quotaSvc.Usage(ctx, *actor.DivisionID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": []quotadomain.Usage{*usage}})
		return
	}

	usages, err := s.quotaSvc.ListUsage(ctx)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": usages})
}

func (s *Server) GetStorageQuota(c *gin.Context) {
	actor, _ := actorFrom(c)
	divisionID, err := pathID(c, "division_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if _, err := divisionScope(actor, &divisionID); err != nil {
		AbortWithError(c, err)
		return
	}

	usage, err := s.quotaSvc.Usage(c.Request.Context(), divisionID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": usage})
}

func (s *Server) SetStorageQuota(c *gin.Context) {
	divisionID, err := pathID(c, "division_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req setStorageQuotaRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.MaxSize == nil {
		AbortWithError(c, newValidationError("max_size", "required", "max_size is required"))
		return
	}
	ctx := c.Request.Context()
	if err := s.divisionSvc.EnsureExist(ctx, []int64{divisionID}); err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.quotaSvc.SetMax(ctx, divisionID, *req.MaxSize); err != nil {
		AbortWithError(c, err)
		return
	}
	usage, err := s.quotaSvc.Usage(ctx, divisionID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": usage})
}

func (s *Server) ReconcileStorageQuota(c *gin.Context) {
	divisionID, err := pathID(c, "division_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.quotaSvc.Reconcile(c.Request.Context(), divisionID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}
