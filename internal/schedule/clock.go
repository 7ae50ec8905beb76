package schedule

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Clock is a wall-clock time of day, stored as minutes since midnight.
type Clock int

func ParseClock(s string) (Clock, error) {
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Second() != 0 {
				return 0, fmt.Errorf("time of day %q has seconds", s)
			}
			return Clock(t.Hour()*60 + t.Minute()), nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q", s)
}

func (c Clock) Hour() int   { return int(c) / 60 }
func (c Clock) Minute() int { return int(c) % 60 }

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// On returns the instant at which this clock time occurs on the given
// calendar day in loc.
func (c Clock) On(year int, month time.Month, day int, loc *time.Location) time.Time {
	return time.Date(year, month, day, 0, int(c), 0, 0, loc)
}

func (c Clock) Value() (driver.Value, error) {
	return c.String() + ":00", nil
}

func (c *Clock) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*c = Clock(v.Hour()*60 + v.Minute())
		return nil
	case []byte:
		return c.parseInto(string(v))
	case string:
		return c.parseInto(v)
	default:
		return fmt.Errorf("cannot scan %T into Clock", src)
	}
}

func (c *Clock) parseInto(s string) error {
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func (c Clock) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Clock) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	return c.parseInto(s)
}
