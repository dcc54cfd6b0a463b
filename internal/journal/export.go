package journal

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/parquet-go/parquet-go"
)

// Row is the parquet layout of a journal entry.
type Row struct {
	SessionID      string `parquet:"session_id"`
	Kind           string `parquet:"kind"`
	RemoteID       string `parquet:"remote_id"`
	Token          string `parquet:"token"`
	URL            string `parquet:"url"`
	Placa          string `parquet:"placa"`
	Modelo         string `parquet:"modelo"`
	NomeCliente    string `parquet:"nome_cliente"`
	NomeConferente string `parquet:"nome_conferente"`
	Photos         int32  `parquet:"photos"`
	HasDocument    bool   `parquet:"has_document"`
	MediaBytes     int64  `parquet:"media_bytes"`
	SubmittedAt    int64  `parquet:"submitted_at_ms"`
}

// Export writes every journal entry to w as parquet and returns the row count.
func (j *Journal) Export(ctx context.Context, w io.Writer) (int, error) {
	receipts, err := j.List(ctx, 0)
	if err != nil {
		return 0, err
	}

	rows := make([]Row, 0, len(receipts))
	for _, r := range receipts {
		rows = append(rows, Row{
			SessionID:      r.SessionID,
			Kind:           string(r.Kind),
			RemoteID:       r.RemoteID,
			Token:          r.Token,
			URL:            r.URL,
			Placa:          r.Placa,
			Modelo:         r.Modelo,
			NomeCliente:    r.NomeCliente,
			NomeConferente: r.NomeConferente,
			Photos:         int32(r.Photos),
			HasDocument:    r.HasDocument,
			MediaBytes:     r.MediaBytes,
			SubmittedAt:    r.SubmittedAt.UnixMilli(),
		})
	}

	writer := parquet.NewGenericWriter[Row](w)
	if _, err := writer.Write(rows); err != nil {
		return 0, fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return 0, fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return len(rows), nil
}

// ExportFile writes the journal to a parquet file at path.
func (j *Journal) ExportFile(ctx context.Context, path string) (int, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	n, err := j.Export(ctx, file)
	if err != nil {
		return 0, err
	}
	return n, file.Close()
}

// ReadExport loads rows written by Export.
func ReadExport(path string) ([]Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[Row](pf)
	defer reader.Close()

	rows := make([]Row, pf.NumRows())
	n, err := reader.Read(rows)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read parquet rows: %w", err)
	}
	return rows[:n], nil
}

func (r Row) Time() time.Time {
	return time.UnixMilli(r.SubmittedAt).UTC()
}
