// Package schema describes the shape of a dataset: its ordered features, its
// index columns and whether its timestamps are unix epochs.
package schema

import (
	"fmt"
	"strings"

	"github.com/specialistvlad/tempogrid/internal/dtype"
	"github.com/specialistvlad/tempogrid/internal/errdefs"
)

// FeatureSchema is the name and type of a value column.
type FeatureSchema struct {
	Name  string
	DType dtype.DType
}

func (f FeatureSchema) String() string {
	return fmt.Sprintf("(%q, %s)", f.Name, f.DType)
}

// IndexSchema is the name and type of one component of the index key.
type IndexSchema struct {
	Name  string
	DType dtype.DType
}

func (i IndexSchema) String() string {
	return fmt.Sprintf("(%q, %s)", i.Name, i.DType)
}

// Schema is immutable once built. Accessors return copies.
type Schema struct {
	features        []FeatureSchema
	indexes         []IndexSchema
	isUnixTimestamp bool
}

// New validates and builds a schema. Feature names must be unique, index names
// must be unique and must not collide with a feature name.
func New(features []FeatureSchema, indexes []IndexSchema, isUnixTimestamp bool) (*Schema, error) {
	seen := make(map[string]string, len(features)+len(indexes))
	for _, f := range features {
		if f.Name == "" {
			return nil, errdefs.Newf(errdefs.ErrInvalidArgument, "", "", "feature names cannot be empty")
		}
		if !f.DType.IsValid() {
			return nil, errdefs.Newf(errdefs.ErrInvalidArgument, "", "", "feature %q has invalid dtype %s", f.Name, f.DType)
		}
		if _, dup := seen[f.Name]; dup {
			return nil, errdefs.Newf(errdefs.ErrInvalidArgument, "", "", "duplicate feature name %q", f.Name)
		}
		seen[f.Name] = "feature"
	}
	for _, i := range indexes {
		if i.Name == "" {
			return nil, errdefs.Newf(errdefs.ErrInvalidArgument, "", "", "index names cannot be empty")
		}
		if !i.DType.IsIndexable() {
			return nil, errdefs.Newf(errdefs.ErrInvalidArgument, "", "", "index %q cannot have dtype %s", i.Name, i.DType)
		}
		if kind, dup := seen[i.Name]; dup {
			return nil, errdefs.Newf(errdefs.ErrInvalidArgument, "", "", "index name %q already used by a %s", i.Name, kind)
		}
		seen[i.Name] = "index"
	}

	return &Schema{
		features:        append([]FeatureSchema(nil), features...),
		indexes:         append([]IndexSchema(nil), indexes...),
		isUnixTimestamp: isUnixTimestamp,
	}, nil
}

// MustNew is like New but panics on error. Intended for static schemas and tests.
func MustNew(features []FeatureSchema, indexes []IndexSchema, isUnixTimestamp bool) *Schema {
	s, err := New(features, indexes, isUnixTimestamp)
	if err != nil {
		panic(err)
	}
	return s
}

// Features returns the ordered feature list.
func (s *Schema) Features() []FeatureSchema {
	return append([]FeatureSchema(nil), s.features...)
}

// Indexes returns the ordered index list.
func (s *Schema) Indexes() []IndexSchema {
	return append([]IndexSchema(nil), s.indexes...)
}

// IsUnixTimestamp reports whether timestamps are seconds since the unix epoch.
func (s *Schema) IsUnixTimestamp() bool {
	return s.isUnixTimestamp
}

// NumFeatures returns the number of features.
func (s *Schema) NumFeatures() int {
	return len(s.features)
}

// Feature returns the i-th feature.
func (s *Schema) Feature(i int) FeatureSchema {
	return s.features[i]
}

// FeatureNames returns feature names in schema order.
func (s *Schema) FeatureNames() []string {
	out := make([]string, len(s.features))
	for i, f := range s.features {
		out[i] = f.Name
	}
	return out
}

// FeatureDTypes returns feature dtypes in schema order.
func (s *Schema) FeatureDTypes() []dtype.DType {
	out := make([]dtype.DType, len(s.features))
	for i, f := range s.features {
		out[i] = f.DType
	}
	return out
}

// IndexNames returns index names in schema order.
func (s *Schema) IndexNames() []string {
	out := make([]string, len(s.indexes))
	for i, idx := range s.indexes {
		out[i] = idx.Name
	}
	return out
}

// FeatureIndex returns the position of the named feature, or -1.
func (s *Schema) FeatureIndex(name string) int {
	for i, f := range s.features {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// FeatureNameToDType maps each feature name to its dtype.
func (s *Schema) FeatureNameToDType() map[string]dtype.DType {
	out := make(map[string]dtype.DType, len(s.features))
	for _, f := range s.features {
		out[f.Name] = f.DType
	}
	return out
}

// Equal reports whether both schemas have identical features, indexes and
// unix flag, order included.
func (s *Schema) Equal(other *Schema) bool {
	if s == nil || other == nil {
		return s == other
	}
	if s.isUnixTimestamp != other.isUnixTimestamp ||
		len(s.features) != len(other.features) ||
		len(s.indexes) != len(other.indexes) {
		return false
	}
	for i := range s.features {
		if s.features[i] != other.features[i] {
			return false
		}
	}
	for i := range s.indexes {
		if s.indexes[i] != other.indexes[i] {
			return false
		}
	}
	return true
}

// CheckCompatibleFeatures fails with ErrSchemaMismatch unless both schemas
// have the same feature names and dtypes. With checkOrder the order must
// match as well.
func (s *Schema) CheckCompatibleFeatures(other *Schema, checkOrder bool) error {
	if checkOrder {
		if !featuresEqual(s.features, other.features) {
			return errdefs.Newf(errdefs.ErrSchemaMismatch, "", "",
				"features %v and %v are not equal", s.features, other.features)
		}
		return nil
	}

	if len(s.features) != len(other.features) {
		return errdefs.Newf(errdefs.ErrSchemaMismatch, "", "",
			"features %v and %v have different sizes", s.features, other.features)
	}
	mine := s.FeatureNameToDType()
	for _, f := range other.features {
		d, ok := mine[f.Name]
		if !ok {
			return errdefs.Newf(errdefs.ErrSchemaMismatch, "", "",
				"feature %q is missing from %v", f.Name, s.features)
		}
		if d != f.DType {
			return errdefs.Newf(errdefs.ErrSchemaMismatch, "", "",
				"feature %q has dtype %s and %s", f.Name, d, f.DType)
		}
	}
	return nil
}

// CheckCompatibleIndex fails with ErrSchemaMismatch unless both schemas have
// the same index columns in the same order.
func (s *Schema) CheckCompatibleIndex(other *Schema, label string) error {
	if len(s.indexes) == len(other.indexes) {
		same := true
		for i := range s.indexes {
			if s.indexes[i] != other.indexes[i] {
				same = false
				break
			}
		}
		if same {
			return nil
		}
	}
	return errdefs.Newf(errdefs.ErrSchemaMismatch, "", "",
		"the indexes of %s don't match: %v != %v", label, s.indexes, other.indexes)
}

func featuresEqual(a, b []FeatureSchema) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (s *Schema) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("features: %v\n", s.features))
	sb.WriteString(fmt.Sprintf("indexes: %v\n", s.indexes))
	sb.WriteString(fmt.Sprintf("is_unix_timestamp: %t\n", s.isUnixTimestamp))
	return sb.String()
}
