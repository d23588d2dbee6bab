package v1

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	apierrors "github.com/AlessandroMondin/Journey/server/internal/errors"
	"github.com/AlessandroMondin/Journey/server/internal/observability"
	"github.com/AlessandroMondin/Journey/store"
)

type voiceResponse struct {
	Success bool   `json:"success"`
	VoiceID string `json:"voice_id,omitempty"`
}

type signedURLResponse struct {
	SignedURL   *string `json:"signed_url"`
	HasVoiceSet bool    `json:"has_voice_set"`
}

type createDocumentRequest struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
}

type documentResponse struct {
	DocumentID  string            `json:"document_id"`
	Content     string            `json:"content"`
	ContentHTML string            `json:"content_html"`
	Metadata    map[string]string `json:"metadata"`
	CreatedAt   time.Time         `json:"created_at"`
}

// SetAgentVoice clones the uploaded sample as the agent voice.
func (s *APIV1Service) SetAgentVoice(c echo.Context) error {
	fileHeader, err := c.FormFile("audio_file")
	if err != nil {
		return apierrors.InvalidRequest("audio_file is required")
	}
	if fileHeader.Size > maxVoiceSample {
		return apierrors.InvalidRequest("audio_file is too large")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return apierrors.InvalidRequest("failed to read audio_file")
	}
	defer file.Close()
	sample, err := io.ReadAll(io.LimitReader(file, maxVoiceSample))
	if err != nil {
		return apierrors.InvalidRequest("failed to read audio_file")
	}

	voiceID, err := s.Accounts.SetVoice(c.Request().Context(), principalFrom(c), sample)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &voiceResponse{Success: true, VoiceID: voiceID})
}

func (s *APIV1Service) GetSignedURL(c echo.Context) error {
	signedURL, hasVoiceSet := s.Accounts.SignedURL(c.Request().Context(), principalFrom(c))
	response := &signedURLResponse{HasVoiceSet: hasVoiceSet}
	if signedURL != "" {
		response.SignedURL = &signedURL
	}
	return c.JSON(http.StatusOK, response)
}

func (s *APIV1Service) CreateDocument(c echo.Context) error {
	req := &createDocumentRequest{}
	if err := c.Bind(req); err != nil {
		return apierrors.InvalidRequest("invalid document payload")
	}
	doc, err := s.Accounts.CreateDocument(c.Request().Context(), principalFrom(c), req.Content, req.Metadata)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, s.convertDocumentFromStore(c, doc))
}

func (s *APIV1Service) ListDocuments(c echo.Context) error {
	docs, err := s.Accounts.ListDocuments(c.Request().Context(), principalFrom(c))
	if err != nil {
		return err
	}
	response := make([]*documentResponse, 0, len(docs))
	for _, doc := range docs {
		response = append(response, s.convertDocumentFromStore(c, doc))
	}
	return c.JSON(http.StatusOK, map[string]any{"documents": response})
}

func (s *APIV1Service) convertDocumentFromStore(c echo.Context, doc *store.Document) *documentResponse {
	response := &documentResponse{
		DocumentID: doc.DocumentID,
		Content:    doc.Content,
		Metadata:   map[string]string{},
		CreatedAt:  time.Unix(doc.CreatedTs, 0).UTC(),
	}
	if doc.Metadata != "" {
		if err := json.Unmarshal([]byte(doc.Metadata), &response.Metadata); err != nil {
			observability.LoggerFromContext(c.Request().Context()).Warn("invalid document metadata")
		}
	}
	var html bytes.Buffer
	if err := s.markdown.Convert([]byte(doc.Content), &html); err == nil {
		response.ContentHTML = html.String()
	}
	return response
}
