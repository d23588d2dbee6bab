package v1

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/AlessandroMondin/Journey/server/auth"
	apierrors "github.com/AlessandroMondin/Journey/server/internal/errors"
	"github.com/AlessandroMondin/Journey/server/internal/observability"
	"github.com/AlessandroMondin/Journey/server/service/account"
)

type registerResponse struct {
	Message     string `json:"message"`
	SignedURL   string `json:"signed_url"`
	AccessToken string `json:"access_token"`
	HasVoiceSet bool   `json:"has_voice_set"`
	AgentID     string `json:"agent_id"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	SignedURL   string `json:"signed_url"`
	HasVoiceSet bool   `json:"has_voice_set"`
	AgentID     string `json:"agent_id"`
}

func (s *APIV1Service) Register(c echo.Context) error {
	req := &account.RegisterRequest{}
	if err := c.Bind(req); err != nil {
		return apierrors.InvalidRequest("invalid registration payload")
	}
	session, err := s.Accounts.Register(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, &registerResponse{
		Message:     "User registered successfully",
		SignedURL:   session.SignedURL,
		AccessToken: session.AccessToken,
		HasVoiceSet: session.HasVoiceSet,
		AgentID:     session.AgentID,
	})
}

// Login implements the OAuth2 password flow on form fields.
func (s *APIV1Service) Login(c echo.Context) error {
	username, password := c.FormValue("username"), c.FormValue("password")
	if username == "" || password == "" {
		return apierrors.InvalidRequest("username and password are required")
	}
	session, err := s.Accounts.Login(c.Request().Context(), username, password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &loginResponse{
		AccessToken: session.AccessToken,
		TokenType:   session.TokenType,
		SignedURL:   session.SignedURL,
		HasVoiceSet: session.HasVoiceSet,
		AgentID:     session.AgentID,
	})
}

// RequireUser authenticates the bearer token and stores the principal.
func (s *APIV1Service) RequireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := auth.BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
		if !ok {
			c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
			return apierrors.AuthFailure("Not authenticated")
		}
		ctx := c.Request().Context()
		principal, err := s.Accounts.Authenticate(ctx, token)
		if err != nil {
			if apierrors.IsCode(err, apierrors.ErrCodeAuthFailure) {
				c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
			}
			return err
		}
		if reqCtx, ok := observability.FromContext(ctx); ok {
			reqCtx.UserID = principal.User.UserID
		}
		c.Set(principalKey, principal)
		return next(c)
	}
}

// RequireServiceKey guards the service-to-service routes.
func (s *APIV1Service) RequireServiceKey(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		key := c.Request().Header.Get(headerAPIKey)
		expected := s.Profile.ServiceAPIKey
		if expected == "" || subtle.ConstantTimeCompare([]byte(key), []byte(expected)) != 1 {
			return apierrors.AuthFailure("Invalid API key")
		}
		return next(c)
	}
}

func principalFrom(c echo.Context) *account.Principal {
	principal, _ := c.Get(principalKey).(*account.Principal)
	return principal
}
