package v1

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/AlessandroMondin/Journey/plugin/rag"
	apierrors "github.com/AlessandroMondin/Journey/server/internal/errors"
)

type conversationRequest struct {
	Conversation string `json:"conversation"`
}

type queryRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type memoryDocumentResponse struct {
	ID        string     `json:"id"`
	OwnerID   string     `json:"owner_id"`
	Text      string     `json:"text,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

func (s *APIV1Service) registerRAGRoutes(g *echo.Group) {
	g.POST("/memory/create/:owner_id", s.CreateMemoryDocument)
	g.POST("/memory/update/:owner_id", s.UpdateMemoryDocument)
	g.GET("/memory/:owner_id", s.GetMemoryDocument)
	g.POST("/memory/query-similar-memories/:owner_id", s.QuerySimilarMemories)
	g.POST("/delete/:owner_id", s.DeleteOwnerVectors)
}

func (s *APIV1Service) CreateMemoryDocument(c echo.Context) error {
	ownerID := c.Param("owner_id")
	doc, err := s.RAG.CreateBaseMemory(c.Request().Context(), ownerID)
	if err != nil {
		if errors.Is(err, rag.ErrDocumentExists) {
			return apierrors.Conflict("Memory document already exists").WithStatus(http.StatusConflict)
		}
		return apierrors.Internal("failed to create memory document", err)
	}
	return c.JSON(http.StatusCreated, &memoryDocumentResponse{
		ID:        doc.ID,
		OwnerID:   doc.OwnerID,
		CreatedAt: doc.CreatedAt,
	})
}

func (s *APIV1Service) UpdateMemoryDocument(c echo.Context) error {
	req := &conversationRequest{}
	if err := c.Bind(req); err != nil || req.Conversation == "" {
		return apierrors.InvalidRequest("conversation is required")
	}
	ownerID := c.Param("owner_id")
	if err := s.RAG.UpdateMemory(c.Request().Context(), ownerID, req.Conversation); err != nil {
		if errors.Is(err, rag.ErrDocumentNotFound) {
			return apierrors.NotFound("Memory document not found")
		}
		return apierrors.Internal("failed to update memory document", err)
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Memory updated for " + ownerID,
	})
}

func (s *APIV1Service) GetMemoryDocument(c echo.Context) error {
	doc, err := s.RAG.GetMemory(c.Request().Context(), c.Param("owner_id"))
	if err != nil {
		if errors.Is(err, rag.ErrDocumentNotFound) {
			return apierrors.NotFound("Memory document not found")
		}
		return apierrors.Internal("failed to load memory document", err)
	}
	updatedAt := doc.UpdatedAt
	return c.JSON(http.StatusOK, &memoryDocumentResponse{
		ID:        doc.ID,
		OwnerID:   doc.OwnerID,
		Text:      doc.Text,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: &updatedAt,
	})
}

func (s *APIV1Service) QuerySimilarMemories(c echo.Context) error {
	req := &queryRequest{}
	if err := c.Bind(req); err != nil || req.Query == "" {
		return apierrors.InvalidRequest("query is required")
	}
	matches, err := s.RAG.QuerySimilar(c.Request().Context(), c.Param("owner_id"), req.Query, req.Limit)
	if err != nil {
		return apierrors.Internal("failed to query memories", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"matches": matches})
}

func (s *APIV1Service) DeleteOwnerVectors(c echo.Context) error {
	deleted, err := s.RAG.DeleteOwner(c.Request().Context(), c.Param("owner_id"))
	if err != nil {
		return apierrors.Internal("failed to delete memories", err)
	}
	return c.JSON(http.StatusOK, map[string]int{"deleted_count": deleted})
}
