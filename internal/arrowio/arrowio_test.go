package arrowio

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/specialistvlad/tempogrid/internal/dtype"
	"github.com/specialistvlad/tempogrid/internal/errdefs"
	"github.com/specialistvlad/tempogrid/internal/eventset"
	"github.com/specialistvlad/tempogrid/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *eventset.EventSet {
	return eventset.MustFromColumns([]float64{3, 1, 2, 5}, []eventset.Column{
		{Name: "user", Values: []string{"a", "b", "a", "b"}},
		{Name: "price", Values: []float64{1.5, 2.5, 3.5, 4.5}},
		{Name: "qty", Values: []int32{1, 2, 3, 4}},
		{Name: "ok", Values: []bool{true, false, true, true}},
	}, []string{"user"}, true)
}

func assertSameEvents(t *testing.T, want, got *eventset.EventSet) {
	t.Helper()
	require.True(t, want.Schema().Equal(got.Schema()), "schema %s vs %s", want.Schema(), got.Schema())
	require.Equal(t, want.NumKeys(), got.NumKeys())
	for _, key := range want.Keys() {
		w, ok := want.Get(key)
		require.True(t, ok)
		g, ok := got.Get(key)
		require.True(t, ok, "missing key %s", key)
		assert.Equal(t, w.Timestamps(), g.Timestamps())
		for i := range w.Features() {
			assert.Equal(t, w.Feature(i).Values(), g.Feature(i).Values())
		}
	}
}

func TestToRecord(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	rec, err := ToRecord(mem, sample())
	require.NoError(t, err)
	defer rec.Release()

	assert.EqualValues(t, 4, rec.NumRows())
	names := make([]string, 0, rec.NumCols())
	for _, f := range rec.Schema().Fields() {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"user", "timestamp", "price", "qty", "ok"}, names)
	assert.Equal(t, []float64{2, 3, 1, 5}, rec.Column(1).(*array.Float64).Float64Values())
	assert.Equal(t, "a", rec.Column(0).(*array.String).Value(0))
	assert.Equal(t, "b", rec.Column(0).(*array.String).Value(2))
}

func TestRecordRoundTrip(t *testing.T) {
	es := sample()
	rec, err := ToRecord(memory.DefaultAllocator, es)
	require.NoError(t, err)
	defer rec.Release()

	got, err := FromRecord(rec, es.Schema())
	require.NoError(t, err)
	assertSameEvents(t, es, got)
	assert.NotEqual(t, es.SamplingID(), got.SamplingID())
}

func TestFromRecordsEmpty(t *testing.T) {
	s := sample().Schema()
	got, err := FromRecords(nil, s)
	require.NoError(t, err)
	assert.True(t, s.Equal(got.Schema()))
	assert.Zero(t, got.NumEvents())
}

func TestFromRecordErrors(t *testing.T) {
	mem := memory.DefaultAllocator
	s := schema.MustNew([]schema.FeatureSchema{{Name: "x", DType: dtype.Int64}}, nil, false)

	build := func(fields []arrow.Field, fill func(b *array.RecordBuilder)) arrow.Record {
		b := array.NewRecordBuilder(mem, arrow.NewSchema(fields, nil))
		defer b.Release()
		fill(b)
		return b.NewRecord()
	}
	ts := arrow.Field{Name: TimestampColumn, Type: arrow.PrimitiveTypes.Float64}

	testCases := []struct {
		name     string
		rec      arrow.Record
		contains string
	}{
		{
			name: "missing column",
			rec: build([]arrow.Field{ts}, func(b *array.RecordBuilder) {
				b.Field(0).(*array.Float64Builder).Append(0)
			}),
			contains: "column not found",
		},
		{
			name: "wrong type",
			rec: build([]arrow.Field{ts, {Name: "x", Type: arrow.PrimitiveTypes.Int32}}, func(b *array.RecordBuilder) {
				b.Field(0).(*array.Float64Builder).Append(0)
				b.Field(1).(*array.Int32Builder).Append(1)
			}),
			contains: "expected int64",
		},
		{
			name: "null value",
			rec: build([]arrow.Field{ts, {Name: "x", Type: arrow.PrimitiveTypes.Int64, Nullable: true}}, func(b *array.RecordBuilder) {
				b.Field(0).(*array.Float64Builder).Append(0)
				b.Field(1).(*array.Int64Builder).AppendNull()
			}),
			contains: "null",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			defer tc.rec.Release()
			_, err := FromRecord(tc.rec, s)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errdefs.ErrInvalidArgument), err.Error())
			assert.Contains(t, err.Error(), tc.contains)
		})
	}
}

func TestTimestampNameCollision(t *testing.T) {
	es := eventset.MustFromColumns([]float64{0}, []eventset.Column{
		{Name: "timestamp", Values: []int64{1}},
	}, nil, false)
	_, err := ToRecord(memory.DefaultAllocator, es)
	assert.True(t, errors.Is(err, errdefs.ErrInvalidArgument))
}

func TestFileRoundTrip(t *testing.T) {
	testCases := []struct {
		name   string
		file   string
		format Format
	}{
		{"ipc", "prices.arrow", FormatIPC},
		{"parquet", "prices.parquet", FormatParquet},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			path := filepath.Join(t.TempDir(), tc.file)
			assert.Equal(t, tc.format, FormatFor(path))

			es := sample()
			require.NoError(t, WriteFile(ctx, path, es))
			assert.NoFileExists(t, path+".tmp")

			got, err := ReadFile(ctx, path, es.Schema())
			require.NoError(t, err)
			assertSameEvents(t, es, got)
		})
	}
}

func TestReadFileMissing(t *testing.T) {
	_, err := ReadFile(context.Background(), filepath.Join(t.TempDir(), "nope.arrow"), sample().Schema())
	assert.ErrorContains(t, err, "failed to open")
}
