package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	documentdomain "github.com/syaokifaradisa9/e-office-app-sub001/internal/document/domain"
	obscontext "github.com/syaokifaradisa9/e-office-app-sub001/internal/observability/context"
	"github.com/syaokifaradisa9/e-office-app-sub001/pkg/db/pagination"
)

func (s *Server) UploadDocument(c *gin.Context) {
	actor, _ := actorFrom(c)

	divisionIDs, err := parseIDs(c.PostFormArray("division_ids"))
	if err != nil {
		AbortWithError(c, newValidationError("division_ids", "invalid_division_ids", "invalid division_ids"))
		return
	}
	if len(divisionIDs) == 0 && actor.DivisionID != nil {
		divisionIDs = []int64{*actor.DivisionID}
	}
	if err := ensureDivisions(actor, divisionIDs); err != nil {
		AbortWithError(c, err)
		return
	}
	categoryIDs, err := parseIDs(c.PostFormArray("category_ids"))
	if err != nil {
		AbortWithError(c, newValidationError("category_ids", "invalid_category_ids", "invalid category_ids"))
		return
	}
	userIDs, err := parseIDs(c.PostFormArray("user_ids"))
	if err != nil {
		AbortWithError(c, newValidationError("user_ids", "invalid_user_ids", "invalid user_ids"))
		return
	}
	classificationID, err := parseOptionalInt64(c.PostForm("classification_id"))
	if err != nil {
		AbortWithError(c, newValidationError("classification_id", "invalid_classification_id", "invalid classification_id"))
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		AbortWithError(c, newValidationError("file", "required", "file is required"))
		return
	}
	file, err := readUpload(header)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	doc, err := s.documentSvc.Upload(c.Request.Context(), documentdomain.UploadRequest{
		ActorID:          actor.UserID,
		Title:            c.PostForm("title"),
		Description:      c.PostForm("description"),
		ClassificationID: classificationID,
		CategoryIDs:      categoryIDs,
		DivisionIDs:      divisionIDs,
		UserIDs:          userIDs,
		File:             file,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": doc})
}

func (s *Server) UpdateDocument(c *gin.Context) {
	actor, _ := actorFrom(c)
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if _, err := s.visibleDocument(c, actor, id, true); err != nil {
		AbortWithError(c, err)
		return
	}

	req := documentdomain.UpdateRequest{ActorID: actor.UserID, DocumentID: id}
	if title, ok := c.GetPostForm("title"); ok {
		req.Title = &title
	}
	if description, ok := c.GetPostForm("description"); ok {
		req.Description = &description
	}
	if raw, ok := c.GetPostForm("classification_id"); ok {
		classificationID, err := parseOptionalInt64(raw)
		if err != nil {
			AbortWithError(c, newValidationError("classification_id", "invalid_classification_id", "invalid classification_id"))
			return
		}
		if classificationID == nil {
			zero := int64(0)
			classificationID = &zero
		}
		req.ClassificationID = classificationID
	}
	for field, target := range map[string]**[]int64{
		"division_ids": &req.DivisionIDs,
		"category_ids": &req.CategoryIDs,
		"user_ids":     &req.UserIDs,
	} {
		values, ok := c.GetPostFormArray(field)
		if !ok {
			continue
		}
		ids, err := parseIDs(values)
		if err != nil {
			AbortWithError(c, newValidationError(field, "invalid_"+field, "invalid "+field))
			return
		}
		*target = &ids
	}
	if req.DivisionIDs != nil {
		if err := ensureDivisions(actor, *req.DivisionIDs); err != nil {
			AbortWithError(c, err)
			return
		}
	}

	header, err := c.FormFile("file")
	switch {
	case err == nil:
		file, err := readUpload(header)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		req.File = &file
	case !errors.Is(err, http.ErrMissingFile):
		AbortWithError(c, invalidRequestError())
		return
	}

	doc, err := s.documentSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": doc})
}

func (s *Server) DeleteDocument(c *gin.Context) {
	actor, _ := actorFrom(c)
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if _, err := s.visibleDocument(c, actor, id, true); err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.documentSvc.Delete(c.Request.Context(), documentdomain.DeleteRequest{ActorID: actor.UserID, DocumentID: id}); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) GetDocument(c *gin.Context) {
	actor, _ := actorFrom(c)
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	doc, err := s.visibleDocument(c, actor, id, false)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": doc})
}

func (s *Server) DownloadDocument(c *gin.Context) {
	actor, _ := actorFrom(c)
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	doc, err := s.visibleDocument(c, actor, id, false)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	reader, err := s.blobs.Open(c.Request.Context(), doc.FilePath)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	defer reader.Close()

	c.DataFromReader(http.StatusOK, doc.FileSize, "application/octet-stream", reader, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", doc.FileName),
	})
}

func (s *Server) ListDocuments(c *gin.Context) {
	actor, _ := actorFrom(c)
	var query struct {
		pagination.Pagination
		DivisionID string `form:"division_id"`
		CategoryID string `form:"category_id"`
		Mine       string `form:"mine"`
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
	categoryID, err := parseOptionalInt64(query.CategoryID)
	if err != nil {
		AbortWithError(c, newValidationError("category_id", "invalid_category_id", "invalid category_id"))
		return
	}
	mine, err := parseOptionalBool(query.Mine)
	if err != nil {
		AbortWithError(c, newValidationError("mine", "invalid_mine", "invalid mine"))
		return
	}

	req := documentdomain.ListRequest{CategoryID: categoryID, Pagination: query.Pagination}
	if mine != nil && *mine {
		req.UserID = &actor.UserID
	} else {
		if req.DivisionID, err = divisionScope(actor, divisionID); err != nil {
			AbortWithError(c, err)
			return
		}
	}

	resp, err := s.documentSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// visibleDocument loads a document the actor may see. Division-scoped actors
// see documents of their division, their own uploads and documents shared
// with them; write access excludes shared documents. Anything else reads as
// not found.
func (s *Server) visibleDocument(c *gin.Context, actor obscontext.Actor, id int64, write bool) (*documentdomain.Document, error) {
	doc, err := s.documentSvc.Get(c.Request.Context(), id)
	if err != nil {
		return nil, err
	}
	if !isScoped(actor) {
		return doc, nil
	}
	if doc.UploaderID == actor.UserID {
		return doc, nil
	}
	for _, allocation := range doc.Divisions {
		if allocation.DivisionID == *actor.DivisionID {
			return doc, nil
		}
	}
	if !write && slices.Contains(doc.UserIDs, actor.UserID) {
		return doc, nil
	}
	return nil, documentdomain.ErrNotFound
}

func readUpload(header *multipart.FileHeader) (documentdomain.File, error) {
	f, err := header.Open()
	if err != nil {
		return documentdomain.File{}, invalidRequestError()
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil {
		return documentdomain.File{}, invalidRequestError()
	}
	if len(content) > maxUploadBytes {
		return documentdomain.File{}, newValidationError("file", "too_large", "file is too large")
	}
	return documentdomain.File{Name: strings.TrimSpace(header.Filename), Content: content}, nil
}
