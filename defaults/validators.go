package defaults

import (
	"fmt"
	"time"
)

// EnumValidator checks if the supplied string value is in the `options` list.
func EnumValidator(options ...string) func(val interface{}) error {
	return func(val interface{}) error {
		s, ok := val.(string)
		if !ok {
			return fmt.Errorf("enum value is not a string: %v", val)
		}

		for _, option := range options {
			if option == s {
				return nil
			}
		}

		return fmt.Errorf("not a valid enum value: %v (allowed: %v)", s, options)
	}
}

// IntRangeValidator checks if the supplied integer value lies in the
// inclusive boundaries of `min` and `max`.
func IntRangeValidator(min, max int64) func(val interface{}) error {
	return func(val interface{}) error {
		var i int64
		switch v := val.(type) {
		case int64:
			i = v
		case int:
			i = int64(v)
		default:
			return fmt.Errorf("value is not an int64: %v", val)
		}

		if i < min {
			return fmt.Errorf("value may not be less than %d", min)
		}

		if i > max {
			return fmt.Errorf("value may not be more than %d", max)
		}

		return nil
	}
}

// DurationValidator checks if the supplied string can be parsed
// by time.ParseDuration and is not negative.
func DurationValidator() func(val interface{}) error {
	return func(val interface{}) error {
		s, ok := val.(string)
		if !ok {
			return fmt.Errorf("duration is not a string: %v", val)
		}

		d, err := time.ParseDuration(s)
		if err != nil {
			return err
		}

		if d < 0 {
			return fmt.Errorf("duration may not be negative: %v", s)
		}

		return nil
	}
}
