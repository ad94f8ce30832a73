// Package eventset holds the concrete, in-process realization of a schema
// and sampling pair: per index key, an ordered timestamp array and one
// feature array per schema feature.
package eventset

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/specialistvlad/tempogrid/internal/dtype"
	"github.com/specialistvlad/tempogrid/internal/errdefs"
	"github.com/specialistvlad/tempogrid/internal/sampling"
	"github.com/specialistvlad/tempogrid/internal/schema"
)

// IndexKey is the tuple of index column values naming one sub-sequence.
// An event set without index columns has a single empty key.
type IndexKey []any

func (k IndexKey) String() string {
	parts := make([]string, len(k))
	for i, v := range k {
		if s, ok := v.(string); ok {
			parts[i] = strconv.Quote(s)
		} else {
			parts[i] = fmt.Sprint(v)
		}
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// IndexData is the block of events owned by one index key.
type IndexData struct {
	timestamps []float64
	features   []*Feature
}

// NewIndexData validates a block against s: one feature per schema feature
// with the declared dtype, every array as long as timestamps, and
// non-decreasing timestamps.
func NewIndexData(timestamps []float64, features []*Feature, s *schema.Schema) (*IndexData, error) {
	if len(features) != s.NumFeatures() {
		return nil, errdefs.Newf(errdefs.ErrSchemaMismatch, "", "",
			"index data has %d features but the schema declares %d", len(features), s.NumFeatures())
	}
	for i, f := range features {
		want := s.Feature(i)
		if f == nil {
			return nil, errdefs.Newf(errdefs.ErrInvalidArgument, "", want.Name, "nil feature")
		}
		if f.DType() != want.DType {
			return nil, errdefs.Newf(errdefs.ErrSchemaMismatch, "", want.Name,
				"feature has dtype %s but the schema declares %s", f.DType(), want.DType)
		}
		if f.Len() != len(timestamps) {
			return nil, errdefs.Newf(errdefs.ErrInvalidArgument, "", want.Name,
				"feature has %d values but there are %d timestamps", f.Len(), len(timestamps))
		}
	}
	for i, ts := range timestamps {
		if math.IsNaN(ts) {
			return nil, errdefs.Newf(errdefs.ErrInvalidArgument, "", "", "timestamp %d is NaN", i)
		}
		if i > 0 && ts < timestamps[i-1] {
			return nil, errdefs.Newf(errdefs.ErrInvalidArgument, "", "",
				"timestamps are not sorted: %v follows %v", ts, timestamps[i-1])
		}
	}
	if timestamps == nil {
		timestamps = []float64{}
	}
	return &IndexData{timestamps: timestamps, features: features}, nil
}

// Timestamps returns the shared timestamp array. Callers must not modify it.
func (d *IndexData) Timestamps() []float64 {
	return d.timestamps
}

// Features returns a copy of the feature list in schema order.
func (d *IndexData) Features() []*Feature {
	return append([]*Feature(nil), d.features...)
}

// Feature returns the i-th feature array.
func (d *IndexData) Feature(i int) *Feature {
	return d.features[i]
}

// Len returns the number of events.
func (d *IndexData) Len() int {
	return len(d.timestamps)
}

// EventSet maps index keys to their event blocks. It is filled by the step
// that produces it and treated as read-only once handed to a consumer.
type EventSet struct {
	schema   *schema.Schema
	sampling sampling.ID
	keys     []IndexKey
	data     map[string]*IndexData
}

// New returns an empty event set. A zero sampling ID gets a fresh one.
func New(s *schema.Schema, id sampling.ID) *EventSet {
	if id.IsZero() {
		id = sampling.New()
	}
	return &EventSet{
		schema:   s,
		sampling: id,
		data:     make(map[string]*IndexData),
	}
}

// Schema returns the event set's schema.
func (e *EventSet) Schema() *schema.Schema {
	return e.schema
}

// SamplingID returns the alignment token of the event set.
func (e *EventSet) SamplingID() sampling.ID {
	return e.sampling
}

// WithSampling returns a shallow copy tagged with another alignment token.
// Blocks and arrays are shared.
func (e *EventSet) WithSampling(id sampling.ID) *EventSet {
	if id == e.sampling {
		return e
	}
	out := *e
	out.sampling = id
	return &out
}

// Set stores the block for key, replacing any previous one. Keys keep the
// order in which they were first set.
func (e *EventSet) Set(key IndexKey, d *IndexData) error {
	norm, err := e.normalizeKey(key)
	if err != nil {
		return err
	}
	if d == nil {
		return errdefs.Newf(errdefs.ErrInvalidArgument, "", "", "nil index data for key %s", norm)
	}
	if len(d.features) != e.schema.NumFeatures() {
		return errdefs.Newf(errdefs.ErrSchemaMismatch, "", "",
			"index data for key %s has %d features but the schema declares %d", norm, len(d.features), e.schema.NumFeatures())
	}
	for i, f := range d.features {
		if f.DType() != e.schema.Feature(i).DType {
			return errdefs.Newf(errdefs.ErrSchemaMismatch, "", e.schema.Feature(i).Name,
				"feature has dtype %s but the schema declares %s", f.DType(), e.schema.Feature(i).DType)
		}
	}
	id := norm.String()
	if _, ok := e.data[id]; !ok {
		e.keys = append(e.keys, norm)
	}
	e.data[id] = d
	return nil
}

func (e *EventSet) normalizeKey(key IndexKey) (IndexKey, error) {
	indexes := e.schema.Indexes()
	if len(key) != len(indexes) {
		return nil, errdefs.Newf(errdefs.ErrInvalidArgument, "", "",
			"index key %s has %d values but the schema has %d index columns", key, len(key), len(indexes))
	}
	out := make(IndexKey, len(key))
	for i, v := range key {
		nv, d, err := dtype.Normalize(v)
		if err != nil {
			return nil, errdefs.Newf(errdefs.ErrInvalidArgument, "", indexes[i].Name, "%v", err)
		}
		if d != indexes[i].DType {
			return nil, errdefs.Newf(errdefs.ErrSchemaMismatch, "", indexes[i].Name,
				"index value %v has dtype %s but the schema declares %s", v, d, indexes[i].DType)
		}
		out[i] = nv
	}
	return out, nil
}

// Get returns the block stored for key.
func (e *EventSet) Get(key IndexKey) (*IndexData, bool) {
	norm, err := e.normalizeKey(key)
	if err != nil {
		return nil, false
	}
	d, ok := e.data[norm.String()]
	return d, ok
}

// Keys returns the index keys in insertion order.
func (e *EventSet) Keys() []IndexKey {
	return append([]IndexKey(nil), e.keys...)
}

// NumKeys returns the number of index keys.
func (e *EventSet) NumKeys() int {
	return len(e.keys)
}

// NumEvents returns the number of events across all index keys.
func (e *EventSet) NumEvents() int {
	n := 0
	for _, d := range e.data {
		n += d.Len()
	}
	return n
}

// Each calls fn for every index key in order and stops at the first error.
func (e *EventSet) Each(fn func(key IndexKey, d *IndexData) error) error {
	for _, k := range e.keys {
		if err := fn(k, e.data[k.String()]); err != nil {
			return err
		}
	}
	return nil
}

func (e *EventSet) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "EventSet %s sampling=%s\n", e.schema, e.sampling)
	for _, k := range e.keys {
		d := e.data[k.String()]
		fmt.Fprintf(&sb, "  %s: %d events\n", k, d.Len())
	}
	return sb.String()
}
