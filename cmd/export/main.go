package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/jo-hoe/cardreader/internal/backend/database"
	"github.com/jo-hoe/cardreader/internal/backend/export"
	"github.com/jo-hoe/cardreader/internal/core"
	"github.com/jo-hoe/cardreader/internal/observability/logging"
)

const serviceName = "cardreader-export"

func main() {
	configPath := flag.String("config", "config.yaml", "path to the service configuration")
	format := flag.String("format", export.CSVExtension, "output format: csv or xlsx")
	out := flag.String("out", "", "output file; '-' writes to stdout (default: timestamped file in the working directory)")
	flag.Parse()

	if err := run(context.Background(), *configPath, *format, *out); err != nil {
		slog.Error("export failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, format, out string) error {
	config, err := core.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", configPath, err)
	}
	logging.Setup(serviceName, config.LogLevel, config.LogFormat)

	write, err := writerFor(format)
	if err != nil {
		return err
	}

	store, err := database.NewDatabase(ctx, config.Database.Type, config.Database.ConnectionString)
	if err != nil {
		return err
	}
	defer func() {
		_ = store.Close()
	}()

	exists, err := store.DoesDatabaseExist(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return database.ErrStoreNotFound
	}
	records, err := database.ReadAllRecords(ctx, store)
	if err != nil {
		return err
	}

	if out == "-" {
		return write(os.Stdout, records)
	}
	if out == "" {
		out = export.AttachmentName(time.Now(), format)
	}
	file, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := write(file, records); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	slog.Info("exported records", "count", len(records), "format", format, "path", out)
	return nil
}

func writerFor(format string) (func(io.Writer, []database.Record) error, error) {
	switch format {
	case export.CSVExtension:
		return export.WriteCSV, nil
	case export.XLSXExtension:
		return export.WriteXLSX, nil
	default:
		return nil, errors.New("unsupported export format: " + format)
	}
}
