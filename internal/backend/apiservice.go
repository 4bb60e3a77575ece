package backend

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/jo-hoe/cardreader/internal/backend/database"
	"github.com/jo-hoe/cardreader/internal/backend/export"
	"github.com/jo-hoe/cardreader/internal/common"
	"github.com/jo-hoe/cardreader/internal/core"
)

const (
	msgMissingParameters = "missing required parameters"
	msgStoreNotFound     = "result file not found"
	msgTooManyUploads    = "too many uploads, please retry later"
)

type APIService struct {
	config      *core.ServiceConfig
	coreService *core.CoreService
	now         func() time.Time
}

type updateResultRequest struct {
	Timestamp string         `json:"timestamp" validate:"required"`
	Analyzed  map[string]any `json:"analyzed" validate:"required,min=1"`
}

type deleteResultRequest struct {
	Timestamp string `json:"timestamp" validate:"required"`
}

type successResponse struct {
	Success bool  `json:"success"`
	Updated *bool `json:"updated,omitempty"`
	Removed *int  `json:"removed,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewAPIService(config *core.ServiceConfig, coreService *core.CoreService) *APIService {
	return &APIService{
		config:      config,
		coreService: coreService,
		now:         time.Now,
	}
}

func (s *APIService) SetRoutes(e *echo.Echo) {
	// Set health route
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "API Service is running")
	})

	e.POST("/upload", s.uploadHandler, s.uploadRateLimiter())
	e.GET("/results", s.resultsHandler)
	e.POST("/update_result", s.updateResultHandler)
	e.POST("/delete_result", s.deleteResultHandler)
	e.GET("/export_csv", s.exportCSVHandler)
	e.GET("/export_xlsx", s.exportXLSXHandler)
}

// uploadRateLimiter bounds recognition calls per client IP
func (s *APIService) uploadRateLimiter() echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(s.config.Upload.RequestsPerSecond),
		Burst:     s.config.Upload.Burst,
		ExpiresIn: 3 * time.Minute,
	})
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		ErrorHandler: func(ctx echo.Context, err error) error {
			return ctx.JSON(http.StatusForbidden, errorResponse{Error: "unable to identify client"})
		},
		DenyHandler: func(ctx echo.Context, identifier string, err error) error {
			slog.Warn("upload rate limited", "client", identifier)
			return ctx.JSON(http.StatusTooManyRequests, errorResponse{Error: msgTooManyUploads})
		},
	})
}

func (s *APIService) uploadHandler(ctx echo.Context) error {
	file, err := ctx.FormFile("file")
	if err != nil || file.Filename == "" {
		slog.Warn("uploadHandler: no file in request", "status", http.StatusBadRequest, "error", err)
		return s.errorJSON(ctx, core.ErrMissingFile)
	}
	if !s.coreService.IsAllowedFile(file.Filename) {
		slog.Warn("uploadHandler: unsupported file type", "status", http.StatusBadRequest, "filename", file.Filename)
		return s.errorJSON(ctx, core.ErrUnsupportedFileType)
	}

	src, err := file.Open()
	if err != nil {
		slog.Error("uploadHandler: failed to open uploaded file", "error", err, "filename", file.Filename)
		return s.errorJSON(ctx, err)
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			slog.Error("uploadHandler: failed to close uploaded file reader", "error", cerr, "filename", file.Filename)
		}
	}()

	data, err := io.ReadAll(src)
	if err != nil {
		slog.Error("uploadHandler: failed to read uploaded file", "error", err, "filename", file.Filename)
		return s.errorJSON(ctx, err)
	}

	result, err := s.coreService.ProcessUpload(ctx.Request().Context(), file.Filename, data)
	if err != nil {
		return s.errorJSON(ctx, err)
	}
	return ctx.JSON(http.StatusOK, result)
}

func (s *APIService) resultsHandler(ctx echo.Context) error {
	records, err := s.coreService.GetRecords(ctx.Request().Context())
	if err != nil {
		return s.errorJSON(ctx, err)
	}
	return ctx.JSON(http.StatusOK, records)
}

func (s *APIService) updateResultHandler(ctx echo.Context) error {
	var request updateResultRequest
	if err := s.bindAndValidate(ctx, &request); err != nil {
		slog.Warn("rejected request body", "route", ctx.Path(), "error", err)
		return s.errorJSON(ctx, err)
	}

	found, err := s.coreService.UpdateAnalyzed(ctx.Request().Context(), request.Timestamp, database.AnalyzedFromMap(request.Analyzed))
	if err != nil {
		return s.errorJSON(ctx, err)
	}
	return ctx.JSON(http.StatusOK, successResponse{Success: true, Updated: &found})
}

func (s *APIService) deleteResultHandler(ctx echo.Context) error {
	var request deleteResultRequest
	if err := s.bindAndValidate(ctx, &request); err != nil {
		slog.Warn("rejected request body", "route", ctx.Path(), "error", err)
		return s.errorJSON(ctx, err)
	}

	removed, err := s.coreService.DeleteRecords(ctx.Request().Context(), request.Timestamp)
	if err != nil {
		return s.errorJSON(ctx, err)
	}
	return ctx.JSON(http.StatusOK, successResponse{Success: true, Removed: &removed})
}

func (s *APIService) exportCSVHandler(ctx echo.Context) error {
	path, err := s.coreService.ExportCSV(ctx.Request().Context())
	if err != nil {
		return s.errorJSON(ctx, err)
	}
	return ctx.Attachment(path, export.AttachmentName(s.now(), export.CSVExtension))
}

func (s *APIService) exportXLSXHandler(ctx echo.Context) error {
	var buf bytes.Buffer
	if err := s.coreService.ExportXLSX(ctx.Request().Context(), &buf); err != nil {
		return s.errorJSON(ctx, err)
	}
	name := export.AttachmentName(s.now(), export.XLSXExtension)
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return ctx.Blob(http.StatusOK, export.XLSXMimeType, buf.Bytes())
}

// bindAndValidate decodes the JSON body into request and checks its
// validate tags
func (s *APIService) bindAndValidate(ctx echo.Context, request any) error {
	if err := ctx.Bind(request); err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidRequest, err)
	}
	return ctx.Validate(request)
}

func (s *APIService) errorJSON(ctx echo.Context, err error) error {
	status, message := statusForError(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "route", ctx.Path(), "status", status, "error", err)
	}
	return ctx.JSON(status, errorResponse{Error: message})
}

// statusForError maps service errors to a status code and client message
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrMissingFile):
		return http.StatusBadRequest, core.ErrMissingFile.Error()
	case errors.Is(err, core.ErrUnsupportedFileType):
		return http.StatusBadRequest, core.ErrUnsupportedFileType.Error()
	case errors.Is(err, core.ErrInvalidImage):
		return http.StatusBadRequest, core.ErrInvalidImage.Error()
	case errors.Is(err, core.ErrNoTextRecognized):
		return http.StatusBadRequest, core.ErrNoTextRecognized.Error()
	case errors.Is(err, common.ErrInvalidRequest):
		return http.StatusBadRequest, msgMissingParameters
	case errors.Is(err, database.ErrStoreNotFound):
		return http.StatusNotFound, msgStoreNotFound
	default:
		return http.StatusInternalServerError, err.Error()
	}
}
