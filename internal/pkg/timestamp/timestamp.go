package timestamp

import (
	"encoding/json"
	"math"
	"regexp"
	"strings"
	"time"
)

// ISOLayout is the wire format for every instant sent to or returned by the API.
const ISOLayout = "2006-01-02T15:04:05.000Z"

// RecordKeys are the timestamp fields normalized whenever a task record
// crosses the provider boundary.
var RecordKeys = []string{"start_at", "end_at", "next_run_at", "created_at", "updated_at"}

var (
	// zonedPattern matches strings that already carry an offset or zone marker.
	zonedPattern = regexp.MustCompile(`(?i)(\dz$|[+-]\d{2}:?\d{2}$|\bgmt\b|\butc\b)`)
	// barePattern matches wall-clock ISO strings without a zone.
	barePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}(:\d{2}(\.\d{1,6})?)?$`)
	// jsDateSuffix strips the "(Coordinated Universal Time)" tail of JS Date strings.
	jsDateSuffix = regexp.MustCompile(`\s*\([^)]*\)\s*$`)
)

// zonedLayouts are tried in order for strings that carry their own zone.
var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04Z0700",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05Z0700",
	time.RFC1123,
	time.RFC1123Z,
	"Mon Jan 02 2006 15:04:05 GMT-0700",
	"Mon Jan 02 2006 15:04:05 MST",
	time.RFC850,
	time.UnixDate,
	time.RubyDate,
}

// genericLayouts are the fallback for everything else; all of them are read as UTC.
var genericLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
	time.ANSIC,
}

// Instant is a UTC instant with millisecond precision. The zero value means "absent".
type Instant struct {
	time.Time
}

// Of wraps t as an Instant, normalized to UTC and millisecond precision.
func Of(t time.Time) Instant {
	if t.IsZero() {
		return Instant{}
	}
	return Instant{Time: t.UTC().Truncate(time.Millisecond)}
}

// Equal reports whether both instants are absent or denote the same moment.
func (i Instant) Equal(o Instant) bool {
	if i.IsZero() || o.IsZero() {
		return i.IsZero() && o.IsZero()
	}
	return i.Time.Equal(o.Time)
}

// String renders the instant in ISOLayout, or "" when absent.
func (i Instant) String() string {
	if i.IsZero() {
		return ""
	}
	return ISO(i.Time)
}

// MarshalJSON encodes the instant as an ISO string, or null when absent.
func (i Instant) MarshalJSON() ([]byte, error) {
	if i.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(ISO(i.Time))
}

// UnmarshalJSON accepts anything Normalize accepts. Malformed input leaves the instant absent.
func (i *Instant) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		*i = Instant{}
		return nil
	}
	parsed, _ := Normalize(raw)
	*i = parsed
	return nil
}

// ISO renders t the way browsers render Date.toISOString.
func ISO(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}

// Normalize converts v into a UTC instant. It never fails: anything it cannot
// read is reported as absent.
func Normalize(v any) (Instant, bool) {
	switch t := v.(type) {
	case nil:
		return Instant{}, false
	case Instant:
		return t, !t.IsZero()
	case *Instant:
		if t == nil {
			return Instant{}, false
		}
		return *t, !t.IsZero()
	case time.Time:
		i := Of(t)
		return i, !i.IsZero()
	case *time.Time:
		if t == nil {
			return Instant{}, false
		}
		i := Of(*t)
		return i, !i.IsZero()
	case float64:
		return fromEpoch(t)
	case int64:
		return fromEpoch(float64(t))
	case int:
		return fromEpoch(float64(t))
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Instant{}, false
		}
		return fromEpoch(f)
	case string:
		return parseString(t)
	case *string:
		if t == nil {
			return Instant{}, false
		}
		return parseString(*t)
	}
	return Instant{}, false
}

// NormalizeString returns the canonical ISO form of v, or "" when absent.
func NormalizeString(v any) string {
	i, ok := Normalize(v)
	if !ok {
		return ""
	}
	return ISO(i.Time)
}

// NormalizeRecord rewrites the timestamp keys of a decoded JSON record in place.
// Present but unreadable values become null.
func NormalizeRecord(rec map[string]any) {
	if rec == nil {
		return
	}
	for _, key := range RecordKeys {
		v, ok := rec[key]
		if !ok {
			continue
		}
		if s := NormalizeString(v); s != "" {
			rec[key] = s
		} else {
			rec[key] = nil
		}
	}
}

// secondsCutoff separates epoch seconds from epoch milliseconds. Below it a
// value read as millis would fall before March 1973.
const secondsCutoff = 1e11

func fromEpoch(v float64) (Instant, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Instant{}, false
	}
	if math.Abs(v) < secondsCutoff {
		sec, frac := math.Modf(v)
		i := Of(time.Unix(int64(sec), int64(frac*1e9)))
		return i, !i.IsZero()
	}
	i := Of(time.UnixMilli(int64(v)))
	return i, !i.IsZero()
}

func parseString(s string) (Instant, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Instant{}, false
	}

	if barePattern.MatchString(s) {
		if len(s) == len("2006-01-02T15:04") {
			s += ":00"
		}
		if t, err := time.Parse(time.RFC3339Nano, s+"Z"); err == nil {
			return Of(t), true
		}
		return Instant{}, false
	}

	if zonedPattern.MatchString(s) {
		zoned := jsDateSuffix.ReplaceAllString(s, "")
		for _, layout := range zonedLayouts {
			if t, err := time.Parse(layout, zoned); err == nil {
				return Of(t), true
			}
		}
	}

	for _, layout := range genericLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return Of(t), true
		}
	}
	return Instant{}, false
}
