package loader

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"

	"github.com/zhangjyr/gocsv"
	"go.uber.org/zap"

	"github.com/scusemua/trace-analyzer/m/v2/internal/domain"
)

var (
	logger, _ = zap.NewDevelopment()
	sugarLog  = logger.Sugar()
)

// SetLogger replaces the package logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		return
	}
	logger = l
	sugarLog = l.Sugar()
}

// LoadStats describes one loaded input file.
type LoadStats struct {
	Path    string `yaml:"path"`
	Rows    int    `yaml:"rows"`
	Skipped int    `yaml:"skipped"`
}

// rowHandler consumes one decoded row. The record goes back to the pool once the handler returns.
type rowHandler func(rec Record) error

// streamCSV decodes a CSV file row by row into pooled records. Rows that fail to decode or that the
// handler rejects with ErrFormat abort the load, unless skipMalformed is set.
func streamCSV(ctx context.Context, path string, provider RecordProvider, handle rowHandler, skipMalformed bool) (*LoadStats, error) {
	if path == "" {
		return nil, domain.ErrNoPathSpecified
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	stats := &LoadStats{Path: path}
	reader := gocsv.NewSimpleDecoderFromCSVReader(csv.NewReader(file))
	record := provider.Get()

	ctxCSV, err := gocsv.UnmarshalDecoderWithContext(ctx, reader, record) // use clean context to start read a file.
	lineNo := 2
	for err != io.EOF {
		if err == nil {
			err = handle(record)
		}

		if err != nil {
			err = asFormatError(err)
			if !skipMalformed || !errors.Is(err, domain.ErrFormat) {
				provider.Recycle(record)
				return stats, domain.Errorf(err, "%s line %d", path, lineNo)
			}
			sugarLog.Warnf("Unable to parse csv on line %d(%s): %v", lineNo, path, err)
			stats.Skipped++
		} else {
			stats.Rows++
		}

		select {
		case <-ctxCSV.Done():
			provider.Recycle(record)
			return stats, context.Canceled
		default:
		}

		provider.Recycle(record)
		record = provider.Get()
		ctxCSV, err = gocsv.UnmarshalDecoderWithContext(ctxCSV, reader, record)
		lineNo++
	}
	provider.Recycle(record)

	if stats.Rows == 0 {
		sugarLog.Warnf("No usable rows in \"%s\".", path)
	}
	logger.Debug("Loaded CSV.", zap.String("path", path), zap.Int("rows", stats.Rows), zap.Int("skipped", stats.Skipped))
	return stats, nil
}

// asFormatError maps decoding failures to ErrFormat. csv.ParseError unwraps to whatever the field
// decoder returned.
func asFormatError(err error) error {
	if errors.Is(err, domain.ErrFormat) {
		return err
	}

	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return domain.Errorf(domain.ErrFormat, "column %d: %v", parseErr.Column, parseErr.Err)
	}
	return err
}
