package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	obscontext "github.com/syaokifaradisa9/e-office-app-sub001/internal/observability/context"
	stockopnamedomain "github.com/syaokifaradisa9/e-office-app-sub001/internal/stockopname/domain"
)

type createStockOpnameRequest struct {
	DivisionID *int64 `json:"division_id,string"`
	OpnameDate string `json:"opname_date"`
	Notes      string `json:"notes"`
}

type processStockOpnameRequest struct {
	Lines []struct {
		ItemID        int64  `json:"item_id,string"`
		PhysicalStock *int64 `json:"physical_stock"`
		Notes         string `json:"notes"`
	} `json:"lines"`
	Confirm bool `json:"confirm"`
}

type finalizeStockOpnameRequest struct {
	Lines []struct {
		ItemID     int64  `json:"item_id,string"`
		FinalStock *int64 `json:"final_stock"`
		FinalNotes string `json:"final_notes"`
	} `json:"lines"`
}

func (s *Server) CreateStockOpname(c *gin.Context) {
	actor, _ := actorFrom(c)
	var req createStockOpnameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	opnameDate, err := parseDate(req.OpnameDate)
	if err != nil {
		AbortWithError(c, stockopnamedomain.ErrInvalidDate)
		return
	}
	divisionID, err := divisionScope(actor, req.DivisionID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	ctx := c.Request.Context()
	if divisionID != nil {
		if err := s.divisionSvc.EnsureExist(ctx, []int64{*divisionID}); err != nil {
			AbortWithError(c, err)
			return
		}
	}

	opname, err := s.stockOpnameSvc.Create(ctx, stockopnamedomain.CreateRequest{
		DivisionID: divisionID,
		OpnameDate: opnameDate,
		Notes:      req.Notes,
		ActorID:    actor.UserID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": opname})
}

func (s *Server) ProcessStockOpname(c *gin.Context) {
	actor, _ := actorFrom(c)
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req processStockOpnameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if _, err := s.visibleStockOpname(c, actor, id); err != nil {
		AbortWithError(c, err)
		return
	}

	lines := make([]stockopnamedomain.ProcessLine, 0, len(req.Lines))
	for _, line := range req.Lines {
		lines = append(lines, stockopnamedomain.ProcessLine{
			ItemID:        line.ItemID,
			PhysicalStock: line.PhysicalStock,
			Notes:         line.Notes,
		})
	}
	opname, err := s.stockOpnameSvc.Process(c.Request.Context(), stockopnamedomain.ProcessRequest{
		OpnameID: id,
		ActorID:  actor.UserID,
		Lines:    lines,
		Confirm:  req.Confirm,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": opname})
}

func (s *Server) FinalizeStockOpname(c *gin.Context) {
	actor, _ := actorFrom(c)
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req finalizeStockOpnameRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}
	if _, err := s.visibleStockOpname(c, actor, id); err != nil {
		AbortWithError(c, err)
		return
	}

	lines := make([]stockopnamedomain.FinalizeLine, 0, len(req.Lines))
	for _, line := range req.Lines {
		lines = append(lines, stockopnamedomain.FinalizeLine{
			ItemID:     line.ItemID,
			FinalStock: line.FinalStock,
			FinalNotes: line.FinalNotes,
		})
	}
	opname, err := s.stockOpnameSvc.Finalize(c.Request.Context(), stockopnamedomain.FinalizeRequest{
		OpnameID: id,
		ActorID:  actor.UserID,
		Lines:    lines,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": opname})
}

func (s *Server) GetStockOpname(c *gin.Context) {
	actor, _ := actorFrom(c)
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	opname, err := s.visibleStockOpname(c, actor, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": opname})
}

func (s *Server) ListStockOpnames(c *gin.Context) {
	actor, _ := actorFrom(c)
	var query struct {
		DivisionID    string `form:"division_id"`
		MainWarehouse string `form:"main_warehouse"`
		Status        string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	divisionID, err := parseOptionalInt64(query.DivisionID)
	if err != nil {
		AbortWithError(c, newValidationError("division_id", "invalid_division_id", "invalid division_id"))
		return
	}
	mainWarehouse, err := parseOptionalBool(query.MainWarehouse)
	if err != nil {
		AbortWithError(c, newValidationError("main_warehouse", "invalid_main_warehouse", "invalid main_warehouse"))
		return
	}

	req := stockopnamedomain.ListRequest{}
	if mainWarehouse != nil && *mainWarehouse {
		if isScoped(actor) {
			AbortWithError(c, ErrForbidden)
			return
		}
		req.MainWarehouse = true
	} else if req.DivisionID, err = divisionScope(actor, divisionID); err != nil {
		AbortWithError(c, err)
		return
	}
	if query.Status != "" {
		status := stockopnamedomain.Status(query.Status)
		req.Status = &status
	}

	opnames, err := s.stockOpnameSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": opnames})
}

// visibleStockOpname hides opnames outside a division-scoped actor's division.
func (s *Server) visibleStockOpname(c *gin.Context, actor obscontext.Actor, id int64) (*stockopnamedomain.StockOpname, error) {
	opname, err := s.stockOpnameSvc.Get(c.Request.Context(), id)
	if err != nil {
		return nil, err
	}
	if isScoped(actor) && (opname.DivisionID == nil || *opname.DivisionID != *actor.DivisionID) {
		return nil, stockopnamedomain.ErrNotFound
	}
	return opname, nil
}
