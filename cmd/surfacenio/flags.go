package main

import (
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// secondsValue is a duration flag that also takes a bare number of seconds,
// so both --timeout 10 and --timeout 1500ms work.
type secondsValue struct {
	d *time.Duration
}

func newSecondsValue(def time.Duration, p *time.Duration) *secondsValue {
	*p = def
	return &secondsValue{d: p}
}

func (v *secondsValue) Set(s string) error {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		*v.d = time.Duration(f * float64(time.Second))
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return errors.Errorf("%q is neither seconds nor a duration", s)
	}
	*v.d = d
	return nil
}

func (v *secondsValue) String() string { return v.d.String() }

func (v *secondsValue) Type() string { return "seconds" }
