package core

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/jo-hoe/cardreader/internal/backend/commands"
	"github.com/jo-hoe/cardreader/internal/backend/commandstructure"
	"github.com/jo-hoe/cardreader/internal/backend/database"
	"github.com/jo-hoe/cardreader/internal/backend/export"
	"github.com/jo-hoe/cardreader/internal/backend/recognition"
	"github.com/jo-hoe/cardreader/internal/backend/recognition/gemini"
	"github.com/jo-hoe/cardreader/internal/observability/metrics"
)

var (
	ErrMissingFile         = errors.New("no file selected")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrInvalidImage        = errors.New("invalid image")
	ErrNoTextRecognized    = errors.New("could not recognize text in image")
)

// UploadResult is returned to the client after a card has been processed
type UploadResult struct {
	Text      string            `json:"text"`
	Analyzed  database.Analyzed `json:"analyzed"`
	Timestamp string            `json:"timestamp"`
}

// Dependencies lets callers replace the collaborators NewCoreService would
// build from configuration
type Dependencies struct {
	Database   database.DatabaseService
	Recognizer recognition.Recognizer
	Classifier recognition.Classifier
	Metrics    *metrics.Metrics
}

type CoreService struct {
	config            *ServiceConfig
	databaseService   database.DatabaseService
	invoker           *commandstructure.CommandInvoker
	pngConverter      commandstructure.Command
	recognizer        recognition.Recognizer
	classifier        recognition.Classifier
	timestamps        *database.TimestampGenerator
	metrics           *metrics.Metrics
	allowedExtensions map[string]struct{}
}

// NewCoreService builds the store, the preprocessing pipeline and the
// recognition clients from config
func NewCoreService(ctx context.Context, config *ServiceConfig, m *metrics.Metrics) (*CoreService, error) {
	databaseService, err := getDatabaseService(ctx, config)
	if err != nil {
		return nil, err
	}

	client := gemini.New(config.Recognition.Gemini)
	var recognizer recognition.Recognizer = client
	if config.Recognition.Engine != EngineGemini {
		recognizer, err = recognition.NewEngine(config.Recognition.Engine, recognition.EngineOptions{
			Languages: config.Recognition.Languages,
		})
		if err != nil {
			_ = databaseService.Close()
			return nil, err
		}
	}
	slog.Info("recognition configured", "engine", config.Recognition.Engine, "classifier", EngineGemini, "model", config.Recognition.Gemini.Model)

	service, err := NewCoreServiceWithDependencies(config, Dependencies{
		Database:   databaseService,
		Recognizer: recognizer,
		Classifier: client,
		Metrics:    m,
	})
	if err != nil {
		_ = databaseService.Close()
		return nil, err
	}
	return service, nil
}

func NewCoreServiceWithDependencies(config *ServiceConfig, deps Dependencies) (*CoreService, error) {
	if deps.Database == nil || deps.Recognizer == nil || deps.Classifier == nil {
		return nil, fmt.Errorf("core service requires a database, a recognizer and a classifier")
	}

	invoker, err := commandstructure.NewCommandInvokerFromConfigs(nil, config.CommandConfigs())
	if err != nil {
		return nil, fmt.Errorf("failed to build preprocessing pipeline: %w", err)
	}
	slog.Info("preprocessing pipeline configured", "commands", invoker.Names())

	allowed := make(map[string]struct{}, len(config.Upload.AllowedExtensions))
	for _, ext := range config.Upload.AllowedExtensions {
		allowed[strings.ToLower(ext)] = struct{}{}
	}

	return &CoreService{
		config:            config,
		databaseService:   deps.Database,
		invoker:           invoker,
		pngConverter:      commands.NewPngConverterCommandDirect(),
		recognizer:        deps.Recognizer,
		classifier:        deps.Classifier,
		timestamps:        database.NewTimestampGenerator(),
		metrics:           deps.Metrics,
		allowedExtensions: allowed,
	}, nil
}

// IsAllowedFile reports whether the file name carries an accepted extension
func (service *CoreService) IsAllowedFile(filename string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext == "" {
		return false
	}
	_, ok := service.allowedExtensions[ext]
	return ok
}

// ProcessUpload runs an uploaded card through preprocessing, recognition and
// classification and stores the result
func (service *CoreService) ProcessUpload(ctx context.Context, filename string, data []byte) (UploadResult, error) {
	if strings.TrimSpace(filename) == "" {
		return UploadResult{}, ErrMissingFile
	}
	if !service.IsAllowedFile(filename) {
		return UploadResult{}, fmt.Errorf("%w: %s", ErrUnsupportedFileType, filename)
	}

	png, err := service.preprocess(data)
	if err != nil {
		slog.Warn("failed to preprocess upload", "filename", filename, "size", len(data), "error", err)
		return UploadResult{}, err
	}

	text := service.recognize(ctx, png)
	if text == "" {
		return UploadResult{}, ErrNoTextRecognized
	}
	analyzed := service.classify(ctx, text)

	record := database.Record{
		Timestamp: service.timestamps.Next(),
		Filename:  filename,
		Text:      text,
		Analyzed:  analyzed,
	}
	if !service.config.Upload.DiscardImage {
		record.Image = base64.StdEncoding.EncodeToString(png)
	}

	stored, err := service.databaseService.AppendRecord(ctx, record)
	service.metrics.ObserveStoreOperation("append", err)
	if err != nil {
		return UploadResult{}, fmt.Errorf("failed to store result: %w", err)
	}
	slog.Info("card processed", "filename", filename, "timestamp", stored.Timestamp, "textLength", len(stored.Text))

	return UploadResult{
		Text:      stored.Text,
		Analyzed:  stored.Analyzed,
		Timestamp: stored.Timestamp,
	}, nil
}

// preprocess runs the configured pipeline and makes sure the result is PNG
func (service *CoreService) preprocess(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrInvalidImage)
	}
	processed, err := service.invoker.Execute(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}
	png, err := service.pngConverter.Execute(processed)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}
	return png, nil
}

func (service *CoreService) recognize(ctx context.Context, png []byte) string {
	start := time.Now()
	outcome := service.recognizer.Recognize(ctx, png)
	service.metrics.ObserveRecognition("recognize", outcome.Status.String(), time.Since(start))
	if outcome.Status != recognition.OutcomeOK {
		slog.Warn("no text recognized", "status", outcome.Status.String(), "error", outcome.Err)
	}
	return outcome.Text()
}

func (service *CoreService) classify(ctx context.Context, text string) database.Analyzed {
	start := time.Now()
	outcome := service.classifier.Classify(ctx, text)
	service.metrics.ObserveRecognition("classify", outcome.Status.String(), time.Since(start))
	if outcome.Status != recognition.OutcomeOK {
		slog.Warn("classification produced no fields", "status", outcome.Status.String(), "error", outcome.Err)
	}
	return outcome.Analyzed()
}

func (service *CoreService) GetRecords(ctx context.Context) ([]database.Record, error) {
	records, err := service.databaseService.GetRecords(ctx)
	service.metrics.ObserveStoreOperation("list", err)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	service.metrics.SetStoredRecords(len(records))
	return records, nil
}

// UpdateAnalyzed replaces the fields of the record with timestamp. It
// reports false when no record matched.
func (service *CoreService) UpdateAnalyzed(ctx context.Context, timestamp string, analyzed database.Analyzed) (bool, error) {
	if err := service.requireStore(ctx); err != nil {
		return false, err
	}
	found, err := service.databaseService.UpdateAnalyzed(ctx, timestamp, analyzed)
	service.metrics.ObserveStoreOperation("update", err)
	if err != nil {
		return false, fmt.Errorf("failed to update result %s: %w", timestamp, err)
	}
	if !found {
		slog.Warn("update for unknown result", "timestamp", timestamp)
	}
	return found, nil
}

// DeleteRecords removes every record with timestamp and returns how many
// were removed
func (service *CoreService) DeleteRecords(ctx context.Context, timestamp string) (int, error) {
	if err := service.requireStore(ctx); err != nil {
		return 0, err
	}
	removed, err := service.databaseService.DeleteRecords(ctx, timestamp)
	service.metrics.ObserveStoreOperation("delete", err)
	if err != nil {
		return 0, fmt.Errorf("failed to delete result %s: %w", timestamp, err)
	}
	slog.Info("result deleted", "timestamp", timestamp, "removed", removed)
	return removed, nil
}

// ExportCSV writes all records to the export directory and returns the path
func (service *CoreService) ExportCSV(ctx context.Context) (string, error) {
	records, err := service.exportRecords(ctx)
	if err != nil {
		return "", err
	}
	path, err := export.WriteCSVFile(service.config.ExportDir, records)
	if err != nil {
		return "", fmt.Errorf("failed to export csv: %w", err)
	}
	return path, nil
}

func (service *CoreService) ExportXLSX(ctx context.Context, w io.Writer) error {
	records, err := service.exportRecords(ctx)
	if err != nil {
		return err
	}
	if err := export.WriteXLSX(w, records); err != nil {
		return fmt.Errorf("failed to export xlsx: %w", err)
	}
	return nil
}

func (service *CoreService) exportRecords(ctx context.Context) ([]database.Record, error) {
	if err := service.requireStore(ctx); err != nil {
		return nil, err
	}
	records, err := database.ReadAllRecords(ctx, service.databaseService)
	service.metrics.ObserveStoreOperation("export", err)
	if err != nil {
		return nil, fmt.Errorf("failed to read results for export: %w", err)
	}
	return records, nil
}

// requireStore returns database.ErrStoreNotFound until the first record has
// been stored
func (service *CoreService) requireStore(ctx context.Context) error {
	exists, err := service.databaseService.DoesDatabaseExist(ctx)
	if err != nil {
		return fmt.Errorf("failed to check result store: %w", err)
	}
	if !exists {
		return database.ErrStoreNotFound
	}
	return nil
}

func (service *CoreService) Close() error {
	return service.databaseService.Close()
}

func getDatabaseService(ctx context.Context, config *ServiceConfig) (database.DatabaseService, error) {
	databaseService, err := database.NewDatabase(ctx, config.Database.Type, config.Database.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	slog.Info("database initialized successfully", "type", config.Database.Type)
	return databaseService, nil
}
