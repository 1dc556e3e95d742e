package web

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/purelab/lis-gateway/internal/config"
	"github.com/purelab/lis-gateway/internal/hl7"
	"github.com/purelab/lis-gateway/internal/store"
)

// HL7Server is the JSON API over the message store: receive, validate,
// list and clear.
type HL7Server struct {
	echo   *echo.Echo
	config *config.Config
	store  *store.MessageStore
}

func NewHL7Server(cfg *config.Config, st *store.MessageStore) *HL7Server {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	return &HL7Server{
		echo:   e,
		config: cfg,
		store:  st,
	}
}

func (s *HL7Server) Start(ctx context.Context) error {
	// Setup routes
	s.setupRoutes()

	// Start server
	addr := fmt.Sprintf(":%d", s.config.HL7ListenPort)
	slog.Info("HL7 API server starting", "port", s.config.HL7ListenPort)

	go func() {
		if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			slog.Error("HL7 API server error", "error", err)
		}
	}()

	// Wait for context cancellation
	<-ctx.Done()

	// Shutdown gracefully
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.echo.Shutdown(shutdownCtx)
}

func (s *HL7Server) setupRoutes() {
	s.echo.GET("/health", s.handleHealth)

	api := s.echo.Group("/api/v1/hl7")
	api.POST("/message", s.handleReceiveMessage)
	api.POST("/validate", s.handleValidateMessage)
	api.GET("/messages", s.handleGetMessages)
	api.DELETE("/messages", s.handleClearMessages)
}

func (s *HL7Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

func (s *HL7Server) handleReceiveMessage(c echo.Context) error {
	raw := readBody(c)
	if raw == "" {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "No message data provided",
		})
	}

	msg, err := hl7.Parse(raw)
	if err != nil {
		// Parser detail stays in the log, never in the response
		slog.Error("HL7 message parse failed", "error", err)
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "Failed to parse HL7 message",
		})
	}

	messageType, ok := msg.MessageType()
	if !ok {
		messageType = "Unknown"
	}

	rec := store.NewMessageRecord(messageType, raw, len(msg.Segments))
	s.store.Append(rec)

	slog.Info("HL7 message received",
		"id", rec.ID,
		"messageType", messageType,
		"segments", rec.SegmentCount)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":        "success",
		"message_type":  messageType,
		"segment_count": rec.SegmentCount,
		"timestamp":     rec.Timestamp,
	})
}

func (s *HL7Server) handleValidateMessage(c echo.Context) error {
	raw := readBody(c)
	if raw == "" {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"valid": false,
			"error": "No message data provided",
		})
	}

	msg, err := hl7.Parse(raw)
	if err != nil {
		slog.Debug("HL7 validation rejected message", "error", err)
		return c.JSON(http.StatusOK, map[string]interface{}{
			"valid": false,
			"error": "Invalid HL7 message format",
		})
	}

	// Unlike the receive path, a missing MSH reports as null here
	var messageType interface{}
	if mt, ok := msg.MessageType(); ok {
		messageType = mt
	}
	_, hasMSH := msg.Segment("MSH")

	return c.JSON(http.StatusOK, map[string]interface{}{
		"valid":         true,
		"message_type":  messageType,
		"segment_count": len(msg.Segments),
		"has_msh":       hasMSH,
		"segments":      msg.SegmentNames(),
	})
}

func (s *HL7Server) handleGetMessages(c echo.Context) error {
	records := s.store.List()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"count":    len(records),
		"messages": records,
	})
}

func (s *HL7Server) handleClearMessages(c echo.Context) error {
	cleared := s.store.Clear()
	slog.Info("Message store cleared", "cleared", cleared)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":        "success",
		"cleared_count": cleared,
	})
}

func readBody(c echo.Context) string {
	data, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return ""
	}
	return string(data)
}
