// Package arrowio converts event sets to and from flat Apache Arrow records
// and reads and writes them as Arrow IPC or Parquet files.
//
// A record holds one row per event. Index columns come first, then a float64
// column named "timestamp", then the features in schema order.
package arrowio

import (
	"fmt"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/specialistvlad/tempogrid/internal/dtype"
	"github.com/specialistvlad/tempogrid/internal/errdefs"
	"github.com/specialistvlad/tempogrid/internal/eventset"
	"github.com/specialistvlad/tempogrid/internal/schema"
)

// TimestampColumn is the name of the event timestamp column.
const TimestampColumn = "timestamp"

// ArrowType returns the Arrow type used for d.
func ArrowType(d dtype.DType) arrow.DataType {
	switch d {
	case dtype.Boolean:
		return arrow.FixedWidthTypes.Boolean
	case dtype.Int32:
		return arrow.PrimitiveTypes.Int32
	case dtype.Int64:
		return arrow.PrimitiveTypes.Int64
	case dtype.Float32:
		return arrow.PrimitiveTypes.Float32
	case dtype.Float64:
		return arrow.PrimitiveTypes.Float64
	case dtype.String:
		return arrow.BinaryTypes.String
	}
	panic(fmt.Sprintf("arrowio: no arrow type for %s", d))
}

// ArrowSchema returns the Arrow schema of records produced for s.
func ArrowSchema(s *schema.Schema) (*arrow.Schema, error) {
	fields := make([]arrow.Field, 0, len(s.Indexes())+1+s.NumFeatures())
	seen := map[string]bool{TimestampColumn: true}
	add := func(name string, d dtype.DType) error {
		if seen[name] {
			return errdefs.Newf(errdefs.ErrInvalidArgument, "", name, "column name collides with another column")
		}
		seen[name] = true
		fields = append(fields, arrow.Field{Name: name, Type: ArrowType(d)})
		return nil
	}
	for _, idx := range s.Indexes() {
		if err := add(idx.Name, idx.DType); err != nil {
			return nil, err
		}
	}
	fields = append(fields, arrow.Field{Name: TimestampColumn, Type: arrow.PrimitiveTypes.Float64})
	for _, f := range s.Features() {
		if err := add(f.Name, f.DType); err != nil {
			return nil, err
		}
	}
	return arrow.NewSchema(fields, nil), nil
}

// ToRecord flattens es into a single record. The caller releases it.
func ToRecord(mem memory.Allocator, es *eventset.EventSet) (arrow.Record, error) {
	s := es.Schema()
	as, err := ArrowSchema(s)
	if err != nil {
		return nil, err
	}

	builders := make([]array.Builder, len(as.Fields()))
	for i, f := range as.Fields() {
		builders[i] = array.NewBuilder(mem, f.Type)
	}
	defer func() {
		for _, b := range builders {
			b.Release()
		}
	}()

	numIndexes := len(s.Indexes())
	rows := 0
	err = es.Each(func(key eventset.IndexKey, d *eventset.IndexData) error {
		n := d.Len()
		rows += n
		for i, v := range key {
			appendRepeated(builders[i], v, n)
		}
		builders[numIndexes].(*array.Float64Builder).AppendValues(d.Timestamps(), nil)
		for i, f := range d.Features() {
			appendFeature(builders[numIndexes+1+i], f)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	arrays := make([]arrow.Array, len(builders))
	for i, b := range builders {
		arrays[i] = b.NewArray()
	}
	defer func() {
		for _, a := range arrays {
			a.Release()
		}
	}()
	return array.NewRecord(as, arrays, int64(rows)), nil
}

func appendFeature(b array.Builder, f *eventset.Feature) {
	switch b := b.(type) {
	case *array.BooleanBuilder:
		b.AppendValues(f.Bools(), nil)
	case *array.Int32Builder:
		b.AppendValues(f.Int32s(), nil)
	case *array.Int64Builder:
		b.AppendValues(f.Int64s(), nil)
	case *array.Float32Builder:
		b.AppendValues(f.Float32s(), nil)
	case *array.Float64Builder:
		b.AppendValues(f.Float64s(), nil)
	case *array.StringBuilder:
		b.AppendValues(f.Strings(), nil)
	}
}

func appendRepeated(b array.Builder, v any, n int) {
	b.Reserve(n)
	for i := 0; i < n; i++ {
		switch b := b.(type) {
		case *array.BooleanBuilder:
			b.Append(v.(bool))
		case *array.Int32Builder:
			b.Append(v.(int32))
		case *array.Int64Builder:
			b.Append(v.(int64))
		case *array.StringBuilder:
			b.Append(v.(string))
		}
	}
}

// FromRecord rebuilds an event set with schema s from one record.
func FromRecord(rec arrow.Record, s *schema.Schema) (*eventset.EventSet, error) {
	return FromRecords([]arrow.Record{rec}, s)
}

// FromRecords rebuilds an event set with schema s from records that share a
// layout. Columns are matched by name; extra columns are ignored. Nulls and
// type mismatches are rejected. The result gets a fresh sampling.
func FromRecords(recs []arrow.Record, s *schema.Schema) (*eventset.EventSet, error) {
	type wanted struct {
		name string
		d    dtype.DType
	}
	var cols []wanted
	for _, idx := range s.Indexes() {
		cols = append(cols, wanted{idx.Name, idx.DType})
	}
	for _, f := range s.Features() {
		cols = append(cols, wanted{f.Name, f.DType})
	}

	var timestamps []float64
	parts := make([][]*eventset.Feature, len(cols))
	for _, rec := range recs {
		ts, err := column(rec, TimestampColumn, dtype.Float64)
		if err != nil {
			return nil, err
		}
		timestamps = append(timestamps, ts.Float64s()...)
		for i, c := range cols {
			f, err := column(rec, c.name, c.d)
			if err != nil {
				return nil, err
			}
			parts[i] = append(parts[i], f)
		}
	}
	if timestamps == nil {
		timestamps = []float64{}
	}

	columns := make([]eventset.Column, len(cols))
	for i, c := range cols {
		values := emptyValues(c.d)
		if len(parts[i]) > 0 {
			f, err := eventset.ConcatFeatures(parts[i]...)
			if err != nil {
				return nil, errdefs.WithSlot(err, c.name)
			}
			values = f.Values()
		}
		columns[i] = eventset.Column{Name: c.name, Values: values}
	}

	es, err := eventset.FromColumns(timestamps, columns, s.IndexNames(), s.IsUnixTimestamp())
	if err != nil {
		return nil, err
	}
	if !es.Schema().Equal(s) {
		return nil, errdefs.Newf(errdefs.ErrSchemaMismatch, "", "", "record yields %s, expected %s", es.Schema(), s)
	}
	return es, nil
}

// column copies the named column of rec out of Arrow memory.
func column(rec arrow.Record, name string, d dtype.DType) (*eventset.Feature, error) {
	idx := rec.Schema().FieldIndices(name)
	if len(idx) == 0 {
		return nil, errdefs.Newf(errdefs.ErrInvalidArgument, "", name, "column not found")
	}
	if len(idx) > 1 {
		return nil, errdefs.Newf(errdefs.ErrInvalidArgument, "", name, "column appears %d times", len(idx))
	}
	col := rec.Column(idx[0])
	if want := ArrowType(d); !arrow.TypeEqual(col.DataType(), want) {
		return nil, errdefs.Newf(errdefs.ErrInvalidArgument, "", name, "column has type %s, expected %s", col.DataType(), want)
	}
	if col.NullN() > 0 {
		return nil, errdefs.Newf(errdefs.ErrInvalidArgument, "", name, "column has %d null values", col.NullN())
	}

	n := col.Len()
	switch a := col.(type) {
	case *array.Boolean:
		out := make([]bool, n)
		for i := range out {
			out[i] = a.Value(i)
		}
		return eventset.NewFeature(out), nil
	case *array.Int32:
		return eventset.NewFeature(append(make([]int32, 0, n), a.Int32Values()...)), nil
	case *array.Int64:
		return eventset.NewFeature(append(make([]int64, 0, n), a.Int64Values()...)), nil
	case *array.Float32:
		return eventset.NewFeature(append(make([]float32, 0, n), a.Float32Values()...)), nil
	case *array.Float64:
		return eventset.NewFeature(append(make([]float64, 0, n), a.Float64Values()...)), nil
	case *array.String:
		out := make([]string, n)
		for i := range out {
			out[i] = a.Value(i)
		}
		return eventset.NewFeature(out), nil
	}
	return nil, errdefs.Newf(errdefs.ErrInvalidArgument, "", name, "unsupported array %T", col)
}

func emptyValues(d dtype.DType) any {
	switch d {
	case dtype.Boolean:
		return []bool{}
	case dtype.Int32:
		return []int32{}
	case dtype.Int64:
		return []int64{}
	case dtype.Float32:
		return []float32{}
	case dtype.Float64:
		return []float64{}
	}
	return []string{}
}
