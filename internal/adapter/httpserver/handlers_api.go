package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/roomhub/internal/domain"
	apperrors "github.com/pscheid92/roomhub/internal/platform/errors"
	"github.com/pscheid92/roomhub/internal/platform/version"
)

type broadcastRequest struct {
	Event   string              `json:"event"`
	Payload json.RawMessage     `json:"payload,omitempty"`
	Exclude domain.ConnectionID `json:"exclude,omitempty"`
	Roles   []domain.Role       `json:"roles,omitempty"`
}

type broadcastResponse struct {
	Targeted int `json:"targeted"`
}

type sweepRequest struct {
	MaxAgeSeconds *int64 `json:"max_age_seconds"`
}

type sweepResponse struct {
	Evicted int `json:"evicted"`
}

type identityConnectionsResponse struct {
	UserID      string                `json:"user_id"`
	Connections []domain.ConnectionID `json:"connections"`
}

func (s *Server) registerAPIRoutes() {
	api := s.echo.Group("/api",
		newAPIKeyAuth(s.config.APIToken),
		newRateLimiter(s.config.BroadcastRateLimit, s.config.BroadcastBurst),
	)

	api.GET("/stats", s.handleStats)
	api.GET("/connections/:id", s.handleConnection)
	api.GET("/users/:id/connections", s.handleIdentityConnections)
	api.POST("/rooms/:room/broadcast", s.handleRoomBroadcast)
	api.POST("/admins/broadcast", s.handleAdminsBroadcast)
	api.POST("/sweep", s.handleSweep)
	api.GET("/instances", s.handleInstances)
}

func (s *Server) handleStats(c echo.Context) error {
	if err := c.JSON(http.StatusOK, s.registry.Stats()); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleConnection(c echo.Context) error {
	id := domain.ConnectionID(c.Param("id"))

	info, ok := s.registry.Connection(id)
	if !ok {
		return apperrors.NotFoundError("connection not found").WithContext("connection_id", string(id))
	}

	if err := c.JSON(http.StatusOK, info); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleIdentityConnections(c echo.Context) error {
	userID := c.Param("id")

	ids := s.registry.IdentityConnections(userID)
	if ids == nil {
		ids = []domain.ConnectionID{}
	}

	if err := c.JSON(http.StatusOK, identityConnectionsResponse{UserID: userID, Connections: ids}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleRoomBroadcast(c echo.Context) error {
	var req broadcastRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body").WithContext("cause", err.Error())
	}

	return s.dispatch(c, domain.Broadcast{
		Target:  domain.TargetRoom,
		Room:    domain.RoomID(c.Param("room")),
		Event:   req.Event,
		Payload: req.Payload,
		Exclude: req.Exclude,
		Roles:   req.Roles,
	})
}

func (s *Server) handleAdminsBroadcast(c echo.Context) error {
	var req broadcastRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body").WithContext("cause", err.Error())
	}
	if len(req.Roles) > 0 {
		return apperrors.ValidationError("roles are not supported for admin broadcasts")
	}

	return s.dispatch(c, domain.Broadcast{
		Target:  domain.TargetAdmins,
		Event:   req.Event,
		Payload: req.Payload,
		Exclude: req.Exclude,
	})
}

func (s *Server) dispatch(c echo.Context, b domain.Broadcast) error {
	targeted, err := s.dispatcher.Dispatch(c.Request().Context(), b)
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusOK, broadcastResponse{Targeted: targeted}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

// handleSweep runs an immediate sweep. Without max_age_seconds the configured maximum
// connection age applies; zero evicts every connection.
func (s *Server) handleSweep(c echo.Context) error {
	var req sweepRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body").WithContext("cause", err.Error())
	}

	maxAge := s.config.MaxConnectionAge
	if req.MaxAgeSeconds != nil {
		if *req.MaxAgeSeconds < 0 {
			return apperrors.ValidationError("max_age_seconds must not be negative")
		}
		maxAge = time.Duration(*req.MaxAgeSeconds) * time.Second
	}

	evicted := s.registry.Sweep(maxAge)

	if err := c.JSON(http.StatusOK, sweepResponse{Evicted: evicted}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

// handleInstances lists the instances sharing the relay. A single instance reports itself.
func (s *Server) handleInstances(c echo.Context) error {
	if s.instances == nil {
		local := domain.InstanceInfo{
			InstanceID:  s.config.InstanceID,
			Version:     version.Get().Version,
			Connections: s.registry.Stats().TotalConnections,
			LastSeen:    s.clock.Now().UTC(),
		}
		if err := c.JSON(http.StatusOK, []domain.InstanceInfo{local}); err != nil {
			return fmt.Errorf("failed to send JSON response: %w", err)
		}
		return nil
	}

	infos, err := s.instances.Instances(c.Request().Context())
	if err != nil {
		return apperrors.UnavailableError("instance registry unavailable", err)
	}

	if err := c.JSON(http.StatusOK, infos); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}
