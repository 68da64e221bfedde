package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	time.DateOnly,
}

// ParseTimestamp parses a textual timestamp. Purely numeric text is treated as
// an epoch value; anything else must match one of the supported layouts and
// is interpreted as UTC when it carries no offset.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return fromEpoch(v)
	}

	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// fromEpoch picks the epoch unit by magnitude: seconds, then ms, us, ns.
func fromEpoch(v float64) (time.Time, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return time.Time{}, fmt.Errorf("invalid epoch value %v", v)
	}

	var nanos float64
	switch {
	case v < 1e11:
		nanos = v * 1e9
	case v < 1e14:
		nanos = v * 1e6
	case v < 1e17:
		nanos = v * 1e3
	default:
		nanos = v
	}
	if nanos > math.MaxInt64 {
		return time.Time{}, fmt.Errorf("epoch value %v out of range", v)
	}
	return time.Unix(0, int64(nanos)).UTC(), nil
}

// parseJSONTimestamp accepts a JSON number, string, or {"$date": ...} /
// {"$numberLong": ...} wrapper. Wrapped numbers are epoch milliseconds.
func parseJSONTimestamp(raw json.RawMessage) (time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}, fmt.Errorf("missing timestamp")
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}, fmt.Errorf("invalid timestamp: %w", err)
		}
		return ParseTimestamp(s)
	case '{':
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(raw, &wrapper); err != nil {
			return time.Time{}, fmt.Errorf("invalid timestamp: %w", err)
		}
		for _, key := range []string{"$date", "$numberLong"} {
			inner, ok := wrapper[key]
			if !ok {
				continue
			}
			inner = bytes.TrimSpace(inner)
			if len(inner) > 0 && (inner[0] == '{' || (inner[0] == '"' && key == "$date")) {
				return parseJSONTimestamp(inner)
			}
			var ms json.Number
			if err := json.Unmarshal(bytes.Trim(inner, `"`), &ms); err != nil {
				return time.Time{}, fmt.Errorf("invalid %s value: %w", key, err)
			}
			v, err := ms.Float64()
			if err != nil {
				return time.Time{}, fmt.Errorf("invalid %s value: %w", key, err)
			}
			return time.UnixMilli(int64(v)).UTC(), nil
		}
		return time.Time{}, fmt.Errorf("unrecognized timestamp object %s", raw)
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return time.Time{}, fmt.Errorf("invalid timestamp: %w", err)
		}
		v, err := n.Float64()
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid timestamp: %w", err)
		}
		return fromEpoch(v)
	}
}
