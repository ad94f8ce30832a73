package arrowio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/ipc"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet"
	"github.com/apache/arrow/go/v14/parquet/compress"
	"github.com/apache/arrow/go/v14/parquet/file"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"
	"github.com/specialistvlad/tempogrid/internal/ctxlog"
	"github.com/specialistvlad/tempogrid/internal/eventset"
	"github.com/specialistvlad/tempogrid/internal/schema"
)

// Format is an on-disk container for records.
type Format string

const (
	FormatIPC     Format = "arrow"
	FormatParquet Format = "parquet"
)

const parquetBatchSize = 8192

// FormatFor picks the format from a file extension. Anything that is not
// .parquet is read and written as an Arrow IPC file.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		return FormatParquet
	}
	return FormatIPC
}

// ReadFile loads an event set with schema s from path.
func ReadFile(ctx context.Context, path string, s *schema.Schema) (*eventset.EventSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	mem := memory.NewGoAllocator()
	var es *eventset.EventSet
	switch FormatFor(path) {
	case FormatParquet:
		es, err = readParquet(ctx, mem, f, s)
	default:
		es, err = readIPC(mem, f, s)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	ctxlog.FromContext(ctx).Debug("Event set read.", "path", path, "events", es.NumEvents(), "keys", es.NumKeys())
	return es, nil
}

func readIPC(mem memory.Allocator, f *os.File, s *schema.Schema) (*eventset.EventSet, error) {
	r, err := ipc.NewFileReader(f, ipc.WithAllocator(mem))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	recs := make([]arrow.Record, 0, r.NumRecords())
	defer func() {
		for _, rec := range recs {
			rec.Release()
		}
	}()
	for i := 0; i < r.NumRecords(); i++ {
		rec, err := r.RecordAt(i)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return FromRecords(recs, s)
}

func readParquet(ctx context.Context, mem memory.Allocator, f *os.File, s *schema.Schema) (*eventset.EventSet, error) {
	reader, err := file.NewParquetReader(f)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	arrowReader, err := pqarrow.NewFileReader(reader, pqarrow.ArrowReadProperties{BatchSize: parquetBatchSize}, mem)
	if err != nil {
		return nil, err
	}
	table, err := arrowReader.ReadTable(ctx)
	if err != nil {
		return nil, err
	}
	defer table.Release()

	tr := array.NewTableReader(table, parquetBatchSize)
	defer tr.Release()

	var recs []arrow.Record
	defer func() {
		for _, rec := range recs {
			rec.Release()
		}
	}()
	for tr.Next() {
		rec := tr.Record()
		rec.Retain()
		recs = append(recs, rec)
	}
	return FromRecords(recs, s)
}

// WriteFile stores es at path in the format chosen by FormatFor. The file
// is written next to path and renamed into place once complete.
func WriteFile(ctx context.Context, path string, es *eventset.EventSet) (err error) {
	mem := memory.NewGoAllocator()
	rec, err := ToRecord(mem, es)
	if err != nil {
		return err
	}
	defer rec.Release()

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmp, err)
	}
	defer func() {
		if err != nil {
			os.Remove(tmp)
		}
	}()

	switch FormatFor(path) {
	case FormatParquet:
		err = writeParquet(f, rec)
	default:
		err = writeIPC(mem, f, rec)
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmp, err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to rename %s: %w", tmp, err)
	}
	ctxlog.FromContext(ctx).Debug("Event set written.", "path", path, "rows", rec.NumRows())
	return nil
}

func writeIPC(mem memory.Allocator, f *os.File, rec arrow.Record) error {
	w, err := ipc.NewFileWriter(f, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(mem))
	if err != nil {
		return err
	}
	if err := w.Write(rec); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// writeParquet leaves f open; the caller closes it.
func writeParquet(f *os.File, rec arrow.Record) error {
	writerProps := parquet.NewWriterProperties(
		parquet.WithCompression(compress.Codecs.Snappy),
		parquet.WithStats(true),
		parquet.WithCreatedBy("tempogrid"),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

	w, err := pqarrow.NewFileWriter(rec.Schema(), nopCloser{f}, writerProps, arrowProps)
	if err != nil {
		return err
	}
	if err := w.Write(rec); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

type nopCloser struct{ *os.File }

func (nopCloser) Close() error { return nil }
