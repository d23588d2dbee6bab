package v1

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	apierrors "github.com/AlessandroMondin/Journey/server/internal/errors"
	"github.com/AlessandroMondin/Journey/server/service/memory"
)

type updateMemoryRequest struct {
	AgentID  string `json:"agent_id"`
	MemoryID string `json:"memory_id"`
	Text     string `json:"text"`
}

type getMemoryRequest struct {
	AgentID string `json:"agent_id"`
	Text    string `json:"text"`
}

type memoryResponse struct {
	Text string `json:"text"`
}

type allMemoriesResponse struct {
	Memories []memory.DailyMemory `json:"memories"`
}

// UpdateMemory corrects a ledger entry. Called by the voice agent as a tool.
func (s *APIV1Service) UpdateMemory(c echo.Context) error {
	req := &updateMemoryRequest{}
	if err := c.Bind(req); err != nil {
		return apierrors.InvalidRequest("Missing required fields")
	}
	entry, err := s.Memory.CorrectEntry(c.Request().Context(), req.AgentID, req.MemoryID, req.Text)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &memoryResponse{Text: entry.Text})
}

// GetMemory answers a question about the ledger. Called by the voice agent as a tool.
func (s *APIV1Service) GetMemory(c echo.Context) error {
	req := &getMemoryRequest{}
	if err := c.Bind(req); err != nil {
		return apierrors.InvalidRequest("Missing required fields")
	}
	answer, err := s.Memory.QueryAgentMemories(c.Request().Context(), req.AgentID, req.Text)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &memoryResponse{Text: answer})
}

func (s *APIV1Service) GetAllMemories(c echo.Context) error {
	principal := principalFrom(c)
	memories, err := s.Memory.DailyMemories(c.Request().Context(), principal.User.UserID, time.Now())
	if err != nil {
		return err
	}
	if memories == nil {
		memories = []memory.DailyMemory{}
	}
	return c.JSON(http.StatusOK, &allMemoriesResponse{Memories: memories})
}
