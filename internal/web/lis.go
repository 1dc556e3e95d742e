package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/purelab/lis-gateway/internal/auth"
	"github.com/purelab/lis-gateway/internal/bridge"
	"github.com/purelab/lis-gateway/internal/config"
	"github.com/purelab/lis-gateway/internal/lis"
)

// TokenHeader is the request header the analyzer sends its token in.
const TokenHeader = "token"

// LISServer is the analyzer-facing API. Every response body is a single
// pipe-joined text line in the legacy analyzer convention.
type LISServer struct {
	echo      *echo.Echo
	config    *config.Config
	tokens    *auth.TokenService
	directory *lis.Directory
	forwarder *bridge.ResultForwarder
}

func NewLISServer(cfg *config.Config, tokens *auth.TokenService, directory *lis.Directory, forwarder *bridge.ResultForwarder) *LISServer {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	return &LISServer{
		echo:      e,
		config:    cfg,
		tokens:    tokens,
		directory: directory,
		forwarder: forwarder,
	}
}

func (s *LISServer) Start(ctx context.Context) error {
	// Setup routes
	s.setupRoutes()

	// Start server
	addr := fmt.Sprintf(":%d", s.config.LISListenPort)
	slog.Info("LIS API server starting", "port", s.config.LISListenPort)

	go func() {
		if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			slog.Error("LIS API server error", "error", err)
		}
	}()

	// Wait for context cancellation
	<-ctx.Done()

	// Shutdown gracefully
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.echo.Shutdown(shutdownCtx)
}

func (s *LISServer) setupRoutes() {
	s.echo.GET("/", s.handleRoot)

	api := s.echo.Group("/lis_apis")
	api.GET("/applogin", s.handleAppLogin)
	api.GET("/tests_lis_download/:sample_id", s.handleTestsDownload)
	api.POST("/results_lis_upload/:path_data", s.handleResultsUpload)
	api.GET("/get_tests_list", s.handleTestsList)
}

func (s *LISServer) handleRoot(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "PURELAB LIS Gateway API",
		"version": "1.0.0",
		"endpoints": []string{
			"/lis_apis/applogin",
			"/lis_apis/tests_lis_download/{sample_id}",
			"/lis_apis/results_lis_upload/{path_data}",
			"/lis_apis/get_tests_list",
		},
	})
}

func (s *LISServer) handleAppLogin(c echo.Context) error {
	userName := c.QueryParam("userName")
	password := c.QueryParam("password")

	token, err := s.tokens.Issue(userName, password)
	if err != nil {
		slog.Warn("Analyzer login rejected", "userName", userName)
		return c.String(http.StatusOK, lis.EncodeLoginResult(false, ""))
	}

	slog.Info("Analyzer logged in", "userName", userName)
	return c.String(http.StatusOK, lis.EncodeLoginResult(true, token))
}

func (s *LISServer) handleTestsDownload(c echo.Context) error {
	if err := s.requireToken(c); err != nil {
		return c.String(http.StatusOK, authStatus(err))
	}

	sampleID := c.Param("sample_id")
	sample, ok := s.directory.Sample(sampleID)
	if !ok {
		slog.Warn("Unknown sample queried", "sampleID", sampleID)
		return c.String(http.StatusOK, lis.StatusNotFound)
	}

	slog.Info("Pending tests downloaded", "sampleID", sampleID, "tests", len(sample.Tests))
	return c.String(http.StatusOK, lis.EncodePendingTests(sample))
}

func (s *LISServer) handleResultsUpload(c echo.Context) error {
	if err := s.requireToken(c); err != nil {
		return c.String(http.StatusOK, authStatus(err))
	}

	pathData := c.Param("path_data")
	if decoded, err := url.PathUnescape(pathData); err == nil {
		pathData = decoded
	}

	upload, ok := lis.DecodeResultsUpload(pathData)
	if !ok {
		return c.String(http.StatusOK, lis.StatusNotFound)
	}

	sample, ok := s.directory.Sample(upload.SampleID)
	if !ok {
		slog.Warn("Results uploaded for unknown sample", "sampleID", upload.SampleID)
		return c.String(http.StatusOK, lis.StatusNotFound)
	}

	flags := lis.UploadStatuses(sample, upload.Results)
	s.forwarder.Forward(sample, upload.Results, flags)

	slog.Info("Results upload processed",
		"sampleID", upload.SampleID,
		"results", len(upload.Results))
	return c.String(http.StatusOK, lis.EncodeUploadStatus(flags))
}

func (s *LISServer) handleTestsList(c echo.Context) error {
	if err := s.requireToken(c); err != nil {
		return c.String(http.StatusOK, authStatus(err))
	}

	return c.String(http.StatusOK, lis.EncodeTestList(s.directory.Tests()))
}

// requireToken validates the analyzer token header before any protocol
// logic runs.
func (s *LISServer) requireToken(c echo.Context) error {
	_, err := s.tokens.Validate(c.Request().Header.Get(TokenHeader))
	return err
}

func authStatus(err error) string {
	if errors.Is(err, auth.ErrExpiredToken) {
		return lis.StatusExpiredToken
	}
	return lis.StatusInvalidLogin
}
