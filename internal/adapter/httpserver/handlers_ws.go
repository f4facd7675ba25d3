package httpserver

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/roomhub/internal/adapter/websocket"
	apperrors "github.com/pscheid92/roomhub/internal/platform/errors"
)

func (s *Server) registerWebSocketRoutes() {
	s.echo.GET("/ws", s.handleWebSocket)
}

// handleWebSocket authenticates the client and hands the connection to the transport.
// Browsers cannot set headers on a WebSocket handshake, so the token usually arrives as the
// "token" query parameter; a bearer header is accepted as well.
func (s *Server) handleWebSocket(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		token = strings.TrimPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
	}
	if token == "" {
		return apperrors.UnauthorizedError("missing token", nil)
	}

	identity, err := s.verifier.Verify(token)
	if err != nil {
		return apperrors.UnauthorizedError("invalid token", err)
	}

	err = s.transport.Accept(c.Response(), c.Request(), identity)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, websocket.ErrTooManyFromAddress):
		return apperrors.RateLimitedError("too many connections from this address")
	case errors.Is(err, websocket.ErrTooManyConnections):
		return apperrors.UnavailableError("too many connections", err)
	case errors.Is(err, websocket.ErrTransportClosed):
		return apperrors.UnavailableError("server is shutting down", err)
	default:
		// The upgrader has already answered the handshake.
		slog.DebugContext(c.Request().Context(), "WebSocket upgrade failed", "user_id", identity.UserID, "error", err)
		return nil
	}
}
