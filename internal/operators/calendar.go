package operators

import (
	"strings"
	"time"

	"github.com/specialistvlad/tempogrid/internal/dtype"
	"github.com/specialistvlad/tempogrid/internal/errdefs"
	"github.com/specialistvlad/tempogrid/internal/node"
	"github.com/specialistvlad/tempogrid/internal/operator"
	"github.com/specialistvlad/tempogrid/internal/schema"
)

// CalendarUnit is the calendar component extracted by a CALENDAR_* operator.
type CalendarUnit string

const (
	Second     CalendarUnit = "second"
	Minute     CalendarUnit = "minute"
	Hour       CalendarUnit = "hour"
	DayOfMonth CalendarUnit = "day_of_month"
	DayOfWeek  CalendarUnit = "day_of_week"
	DayOfYear  CalendarUnit = "day_of_year"
	ISOWeek    CalendarUnit = "iso_week"
	Month      CalendarUnit = "month"
	Year       CalendarUnit = "year"
)

// CalendarUnits lists every supported unit.
var CalendarUnits = []CalendarUnit{Second, Minute, Hour, DayOfMonth, DayOfWeek, DayOfYear, ISOWeek, Month, Year}

// Key returns the operator key, e.g. "CALENDAR_DAY_OF_WEEK".
func (u CalendarUnit) Key() string {
	return "CALENDAR_" + strings.ToUpper(string(u))
}

// FeatureName returns the name of the produced feature, e.g. "calendar_hour".
func (u CalendarUnit) FeatureName() string {
	return "calendar_" + string(u)
}

// Extract returns the unit's value for t. Days of the week count from
// Monday = 0.
func (u CalendarUnit) Extract(t time.Time) int32 {
	switch u {
	case Second:
		return int32(t.Second())
	case Minute:
		return int32(t.Minute())
	case Hour:
		return int32(t.Hour())
	case DayOfMonth:
		return int32(t.Day())
	case DayOfWeek:
		return int32((t.Weekday() + 6) % 7)
	case DayOfYear:
		return int32(t.YearDay())
	case ISOWeek:
		_, w := t.ISOWeek()
		return int32(w)
	case Month:
		return int32(t.Month())
	case Year:
		return int32(t.Year())
	}
	return 0
}

var calendarDefinitions = func() map[CalendarUnit]*operator.Definition {
	defs := make(map[CalendarUnit]*operator.Definition, len(CalendarUnits))
	for _, u := range CalendarUnits {
		defs[u] = &operator.Definition{
			Key:        u.Key(),
			Inputs:     []operator.InputDef{{Key: "sampling"}},
			Outputs:    []operator.OutputDef{{Key: "output"}},
			Attributes: []operator.AttributeDef{{Key: "tz", Type: operator.AttrScalarString, Optional: true}},
		}
	}
	return defs
}()

// CalendarDefinition returns the definition of the unit's operator.
func CalendarDefinition(u CalendarUnit) *operator.Definition {
	return calendarDefinitions[u]
}

// Calendar extracts a calendar component from every timestamp of its
// sampling input. Features of the input are ignored.
type Calendar struct {
	operator.Base
	unit     CalendarUnit
	location *time.Location
}

// NewCalendar builds the CALENDAR_* operator of unit. The input timestamps
// must be unix timestamps. tz names an IANA time zone; empty means UTC.
func NewCalendar(unit CalendarUnit, input *node.Node, tz string) (*Calendar, error) {
	def, ok := calendarDefinitions[unit]
	if !ok {
		return nil, errdefs.Newf(errdefs.ErrInvalidArgument, "CALENDAR", "", "unknown calendar unit %q", unit)
	}
	if err := notNil(def.Key, "sampling", input); err != nil {
		return nil, err
	}
	if !input.Schema().IsUnixTimestamp() {
		return nil, errdefs.Newf(errdefs.ErrDTypeConstraint, def.Key, "sampling",
			"calendar operators require unix timestamps; build the input with unix timestamps enabled")
	}
	loc := time.UTC
	if tz != "" {
		var err error
		if loc, err = time.LoadLocation(tz); err != nil {
			return nil, errdefs.Newf(errdefs.ErrInvalidArgument, def.Key, "tz", "%v", err)
		}
	}

	op := &Calendar{unit: unit, location: loc}
	op.Init(op, def)
	op.AddInput("sampling", input)
	if tz != "" {
		op.AddAttribute("tz", tz)
	}
	features := []schema.FeatureSchema{{Name: unit.FeatureName(), DType: dtype.Int32}}
	if _, err := op.NewOutputExistingSampling("output", features, input); err != nil {
		return nil, err
	}
	return op, op.Check()
}

// Unit returns the extracted calendar component.
func (c *Calendar) Unit() CalendarUnit { return c.unit }

// Location returns the time zone timestamps are interpreted in.
func (c *Calendar) Location() *time.Location { return c.location }

func calendarBuild(u CalendarUnit) func(map[string]*node.Node, map[string]any) (operator.Operator, error) {
	return func(inputs map[string]*node.Node, attrs map[string]any) (operator.Operator, error) {
		key := u.Key()
		input, err := requireInput(key, "sampling", inputs)
		if err != nil {
			return nil, err
		}
		tz, err := stringAttr(key, "tz", attrs, true)
		if err != nil {
			return nil, err
		}
		return NewCalendar(u, input, tz)
	}
}
