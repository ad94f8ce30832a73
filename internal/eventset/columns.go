package eventset

import (
	"sort"

	"github.com/specialistvlad/tempogrid/internal/errdefs"
	"github.com/specialistvlad/tempogrid/internal/sampling"
	"github.com/specialistvlad/tempogrid/internal/schema"
)

// Column is one named array of a flat, row-oriented table.
type Column struct {
	Name   string
	Values any
}

// FromColumns builds an event set from a flat table. Columns named in
// indexNames become index columns, the rest become features in the given
// order. Rows are grouped by index key in order of first appearance and
// stably sorted by timestamp within each group. The result gets a fresh
// sampling.
func FromColumns(timestamps []float64, columns []Column, indexNames []string, isUnixTimestamp bool) (*EventSet, error) {
	isIndex := make(map[string]int, len(indexNames))
	for i, n := range indexNames {
		isIndex[n] = i
	}

	indexCols := make([]*Feature, len(indexNames))
	indexSchemas := make([]schema.IndexSchema, len(indexNames))
	var featureCols []*Feature
	var featureSchemas []schema.FeatureSchema

	for _, c := range columns {
		f, err := FeatureFromAny(c.Values)
		if err != nil {
			return nil, errdefs.WithSlot(err, c.Name)
		}
		if f.Len() != len(timestamps) {
			return nil, errdefs.Newf(errdefs.ErrInvalidArgument, "", c.Name,
				"column has %d values but there are %d timestamps", f.Len(), len(timestamps))
		}
		if pos, ok := isIndex[c.Name]; ok {
			indexCols[pos] = f
			indexSchemas[pos] = schema.IndexSchema{Name: c.Name, DType: f.DType()}
			continue
		}
		featureCols = append(featureCols, f)
		featureSchemas = append(featureSchemas, schema.FeatureSchema{Name: c.Name, DType: f.DType()})
	}
	for i, c := range indexCols {
		if c == nil {
			return nil, errdefs.Newf(errdefs.ErrInvalidArgument, "", indexNames[i], "index column not found")
		}
	}

	s, err := schema.New(featureSchemas, indexSchemas, isUnixTimestamp)
	if err != nil {
		return nil, err
	}

	groups := make(map[string][]int)
	var order []IndexKey
	for row := range timestamps {
		key := make(IndexKey, len(indexCols))
		for i, c := range indexCols {
			key[i] = c.Value(row)
		}
		id := key.String()
		if _, ok := groups[id]; !ok {
			order = append(order, key)
		}
		groups[id] = append(groups[id], row)
	}
	if len(indexCols) == 0 && len(order) == 0 {
		order = append(order, IndexKey{})
	}

	out := New(s, sampling.New())
	for _, key := range order {
		rows := groups[key.String()]
		sort.SliceStable(rows, func(a, b int) bool {
			return timestamps[rows[a]] < timestamps[rows[b]]
		})
		ts := make([]float64, len(rows))
		for i, r := range rows {
			ts[i] = timestamps[r]
		}
		features := make([]*Feature, len(featureCols))
		for i, f := range featureCols {
			features[i] = f.Take(rows)
		}
		d, err := NewIndexData(ts, features, s)
		if err != nil {
			return nil, err
		}
		if err := out.Set(key, d); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// MustFromColumns is like FromColumns but panics on error.
func MustFromColumns(timestamps []float64, columns []Column, indexNames []string, isUnixTimestamp bool) *EventSet {
	e, err := FromColumns(timestamps, columns, indexNames, isUnixTimestamp)
	if err != nil {
		panic(err)
	}
	return e
}
