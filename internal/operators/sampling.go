package operators

import (
	"github.com/specialistvlad/tempogrid/internal/dtype"
	"github.com/specialistvlad/tempogrid/internal/errdefs"
	"github.com/specialistvlad/tempogrid/internal/node"
	"github.com/specialistvlad/tempogrid/internal/operator"
	"github.com/specialistvlad/tempogrid/internal/schema"
)

func unaryDefinition(key string) *operator.Definition {
	return &operator.Definition{
		Key:     key,
		Inputs:  []operator.InputDef{{Key: "input"}},
		Outputs: []operator.OutputDef{{Key: "output"}},
	}
}

var (
	BeginDefinition            = unaryDefinition("BEGIN")
	EndDefinition              = unaryDefinition("END")
	UniqueTimestampsDefinition = unaryDefinition("UNIQUE_TIMESTAMPS")
	TimestampsDefinition       = unaryDefinition("TIMESTAMPS")
)

// TimestampsFeature is the name of the feature produced by TIMESTAMPS.
const TimestampsFeature = "timestamps"

// Resample is an operator whose output is a feature-less sampling derived
// from its input's timestamps: BEGIN, END or UNIQUE_TIMESTAMPS.
type Resample struct {
	operator.Base
}

func newResample(def *operator.Definition, input *node.Node) (*Resample, error) {
	if err := notNil(def.Key, "input", input); err != nil {
		return nil, err
	}
	op := &Resample{}
	op.Init(op, def)
	op.AddInput("input", input)
	s := input.Schema()
	if _, err := op.NewOutputNewSampling("output", nil, s.Indexes(), s.IsUnixTimestamp()); err != nil {
		return nil, err
	}
	return op, op.Check()
}

// NewBegin produces one event per index key at its first timestamp.
func NewBegin(input *node.Node) (*Resample, error) {
	return newResample(BeginDefinition, input)
}

// NewEnd produces one event per index key at its last timestamp.
func NewEnd(input *node.Node) (*Resample, error) {
	return newResample(EndDefinition, input)
}

// NewUniqueTimestamps produces one event per distinct timestamp.
func NewUniqueTimestamps(input *node.Node) (*Resample, error) {
	return newResample(UniqueTimestampsDefinition, input)
}

// Timestamps exposes each event's timestamp as a FLOAT64 feature.
type Timestamps struct {
	operator.Base
}

func NewTimestamps(input *node.Node) (*Timestamps, error) {
	if err := notNil(TimestampsDefinition.Key, "input", input); err != nil {
		return nil, err
	}
	op := &Timestamps{}
	op.Init(op, TimestampsDefinition)
	op.AddInput("input", input)
	features := []schema.FeatureSchema{{Name: TimestampsFeature, DType: dtype.Float64}}
	if _, err := op.NewOutputExistingSampling("output", features, input); err != nil {
		return nil, err
	}
	return op, op.Check()
}

var FilterDefinition = &operator.Definition{
	Key: "FILTER",
	Inputs: []operator.InputDef{
		{Key: "input"},
		{Key: "condition"},
	},
	Outputs: []operator.OutputDef{{Key: "output"}},
}

// Filter keeps the events of input where condition is true.
type Filter struct {
	operator.Base
}

// NewFilter builds a FILTER operator. condition must be aligned with input
// and hold a single BOOLEAN feature.
func NewFilter(input, condition *node.Node) (*Filter, error) {
	key := FilterDefinition.Key
	if err := notNil(key, "input", input); err != nil {
		return nil, err
	}
	if err := notNil(key, "condition", condition); err != nil {
		return nil, err
	}
	d, err := singleFeature(key, "condition", condition)
	if err != nil {
		return nil, err
	}
	if d != dtype.Boolean {
		return nil, errdefs.Newf(errdefs.ErrDTypeConstraint, key, "condition", "condition should be a boolean feature, got %s", d)
	}
	if err := sameSampling(key, "condition", input, condition); err != nil {
		return nil, err
	}

	op := &Filter{}
	op.Init(op, FilterDefinition)
	op.AddInput("input", input)
	op.AddInput("condition", condition)
	s := input.Schema()
	if _, err := op.NewOutputNewSampling("output", s.Features(), s.Indexes(), s.IsUnixTimestamp()); err != nil {
		return nil, err
	}
	return op, op.Check()
}

func unaryBuild(def *operator.Definition, ctor func(*node.Node) (operator.Operator, error)) func(map[string]*node.Node, map[string]any) (operator.Operator, error) {
	return func(inputs map[string]*node.Node, _ map[string]any) (operator.Operator, error) {
		input, err := requireInput(def.Key, "input", inputs)
		if err != nil {
			return nil, err
		}
		return ctor(input)
	}
}

func buildFilter(inputs map[string]*node.Node, _ map[string]any) (operator.Operator, error) {
	input, err := requireInput(FilterDefinition.Key, "input", inputs)
	if err != nil {
		return nil, err
	}
	condition, err := requireInput(FilterDefinition.Key, "condition", inputs)
	if err != nil {
		return nil, err
	}
	return NewFilter(input, condition)
}
