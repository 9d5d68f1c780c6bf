package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"

	"github.com/sqlagent/sqlagent/internal/observability"
	"github.com/sqlagent/sqlagent/internal/query"
	"github.com/sqlagent/sqlagent/internal/storage"
)

const contentType = "application/vnd.apache.parquet"

type resultRow struct {
	TraceID          string `parquet:"trace_id"`
	SQL              string `parquet:"sql"`
	RowIndex         int64  `parquet:"row_index"`
	RowJSON          string `parquet:"row_json"`
	ExecutedAtUnixMs int64  `parquet:"executed_at_unix_ms"`
}

// Row is one archived result row read back from the store.
type Row struct {
	TraceID    string         `json:"trace_id"`
	SQL        string         `json:"sql"`
	Index      int64          `json:"row_index"`
	Values     map[string]any `json:"values"`
	ExecutedAt time.Time      `json:"executed_at"`
}

// Archiver writes successful query results to an object store as one
// Parquet file per execution.
type Archiver struct {
	store  storage.ObjectStore
	logger *slog.Logger
}

func New(store storage.ObjectStore, logger *slog.Logger) (*Archiver, error) {
	if store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Archiver{store: store, logger: logger}, nil
}

// Archive uploads record. Records without rows are skipped.
func (a *Archiver) Archive(ctx context.Context, record query.ArchiveRecord) (err error) {
	if len(record.Rows) == 0 {
		return nil
	}
	defer func() { observability.IncrementArchiveUpload(err) }()

	if record.TraceID == "" {
		record.TraceID = uuid.NewString()
	}
	if record.ExecutedAt.IsZero() {
		record.ExecutedAt = time.Now().UTC()
	}

	key, err := storage.BuildResultPath(record.TraceID, record.ExecutedAt)
	if err != nil {
		return err
	}
	data, err := EncodeRecord(record)
	if err != nil {
		return err
	}
	info, err := a.store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), storage.PutOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("upload result archive: %w", err)
	}
	a.logger.Debug("archived query result",
		slog.String("trace_id", record.TraceID),
		slog.String("key", info.Key),
		slog.Int("rows", len(record.Rows)),
	)
	return nil
}

// Load reads back the archive of traceID written on day.
func (a *Archiver) Load(ctx context.Context, traceID string, day time.Time) ([]Row, error) {
	key, err := storage.BuildResultPath(traceID, day)
	if err != nil {
		return nil, err
	}
	reader, err := a.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer func() { _ = reader.Close() }()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read result archive: %w", err)
	}
	return DecodeRows(data)
}

// EncodeRecord renders record as Parquet, one row per result row with the
// row values stored as a JSON object.
func EncodeRecord(record query.ArchiveRecord) ([]byte, error) {
	executedAt := record.ExecutedAt.UnixMilli()
	rows := make([]resultRow, 0, len(record.Rows))
	for idx, values := range record.Rows {
		payload, err := json.Marshal(values)
		if err != nil {
			return nil, fmt.Errorf("encode row %d: %w", idx, err)
		}
		rows = append(rows, resultRow{
			TraceID:          record.TraceID,
			SQL:              record.SQL,
			RowIndex:         int64(idx),
			RowJSON:          string(payload),
			ExecutedAtUnixMs: executedAt,
		})
	}

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[resultRow](buf)
	if _, err := writer.Write(rows); err != nil {
		return nil, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}

func DecodeRows(data []byte) ([]Row, error) {
	reader := parquet.NewGenericReader[resultRow](bytes.NewReader(data))
	defer func() { _ = reader.Close() }()

	raw := make([]resultRow, reader.NumRows())
	count, err := reader.Read(raw)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read parquet rows: %w", err)
	}

	out := make([]Row, 0, count)
	for _, row := range raw[:count] {
		values := map[string]any{}
		if err := json.Unmarshal([]byte(row.RowJSON), &values); err != nil {
			return nil, fmt.Errorf("decode row %d: %w", row.RowIndex, err)
		}
		out = append(out, Row{
			TraceID:    row.TraceID,
			SQL:        row.SQL,
			Index:      row.RowIndex,
			Values:     values,
			ExecutedAt: time.UnixMilli(row.ExecutedAtUnixMs).UTC(),
		})
	}
	return out, nil
}
