package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	inventorydomain "github.com/syaokifaradisa9/e-office-app-sub001/internal/inventory/domain"
	obscontext "github.com/syaokifaradisa9/e-office-app-sub001/internal/observability/context"
)

func (s *Server) CreateItem(c *gin.Context) {
	actor, _ := actorFrom(c)
	var req inventorydomain.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	divisionID, err := divisionScope(actor, req.DivisionID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	req.DivisionID = divisionID
	req.ActorID = actor.UserID

	item, err := s.inventorySvc.CreateItem(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": item})
}

func (s *Server) GetItem(c *gin.Context) {
	actor, _ := actorFrom(c)
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	item, err := s.visibleItem(c, actor, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) ListItemTransactions(c *gin.Context) {
	actor, _ := actorFrom(c)
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if _, err := s.visibleItem(c, actor, id); err != nil {
		AbortWithError(c, err)
		return
	}

	trxs, err := s.inventorySvc.ListTransactions(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": trxs})
}

func (s *Server) RecordItemTransaction(c *gin.Context) {
	actor, _ := actorFrom(c)
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req inventorydomain.RecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if _, err := s.visibleItem(c, actor, id); err != nil {
		AbortWithError(c, err)
		return
	}
	req.ItemID = id
	req.ActorID = actor.UserID

	trx, err := s.inventorySvc.Record(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": trx})
}

func (s *Server) visibleItem(c *gin.Context, actor obscontext.Actor, id int64) (*inventorydomain.Item, error) {
	item, err := s.inventorySvc.Get(c.Request.Context(), id)
	if err != nil {
		return nil, err
	}
	if isScoped(actor) && (item.DivisionID == nil || *item.DivisionID != *actor.DivisionID) {
		return nil, inventorydomain.ErrNotFound
	}
	return item, nil
}
