package config

import (
	"fmt"
	"time"

	"github.com/rickgao/refdata-normalizer/internal/refdata"
)

// FieldSpec returns the configured fields in request order.
func (r RequestConfig) FieldSpec() refdata.FieldSpec {
	return refdata.FieldSpec{
		Scalar: append([]string(nil), r.Fields...),
		Bulk:   append([]string(nil), r.BulkFields...),
	}
}

// OverrideSpec converts the configured overrides, preserving order.
func (r RequestConfig) OverrideSpec() (refdata.OverrideSpec, error) {
	spec := make(refdata.OverrideSpec, 0, len(r.Overrides))
	for i, o := range r.Overrides {
		if o.FieldID == "" {
			return nil, fmt.Errorf("request.overrides[%d].field_id is required", i)
		}
		v, err := refdata.ValueOf(o.Value)
		if err != nil {
			return nil, fmt.Errorf("request.overrides[%d].value: %w", i, err)
		}
		spec = append(spec, refdata.Override{FieldID: o.FieldID, Value: v})
	}
	return spec, nil
}

// Clock parses Time into hour and minute.
func (s ScheduleConfig) Clock() (hour, minute int, err error) {
	t, err := time.Parse("15:04", s.Time)
	if err != nil {
		return 0, 0, fmt.Errorf("schedule.time must be HH:MM, got %q", s.Time)
	}
	return t.Hour(), t.Minute(), nil
}

// Location resolves Timezone. An empty value is the local zone.
func (s ScheduleConfig) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("schedule.timezone: %w", err)
	}
	return loc, nil
}
