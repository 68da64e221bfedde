// Package payload decodes the loosely structured actionData text attached to each
// transaction. Exports of the protocol data frequently carry this field as a
// Python-style dict literal (single quotes, None/True/False), sometimes truncated
// or with unescaped quotes, so decoding is a two-stage, best-effort process:
//
//  1. Strict JSON decode after normalizing quotes and Python literals.
//  2. On failure, pattern recovery of quoted key/value pairs followed by
//     unquoted key: number pairs, merged into one mapping.
//
// Decoding never fails; the worst case is an empty Payload.
package payload

import (
	"encoding/json"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// Payload is the decoded key/value view of an actionData string. Values are
// string, json.Number, bool, nil, or nested JSON values for strict decodes, and
// always string for recovered pairs.
type Payload map[string]any

// Method reports which decoding stage produced a Payload.
type Method int

const (
	// MethodEmpty means the input was absent or blank.
	MethodEmpty Method = iota
	// MethodStrict means the normalized text decoded as a JSON object.
	MethodStrict
	// MethodRecovered means the pattern fallback produced the mapping.
	MethodRecovered
)

func (m Method) String() string {
	switch m {
	case MethodStrict:
		return "strict"
	case MethodRecovered:
		return "recovered"
	default:
		return "empty"
	}
}

var literalReplacer = strings.NewReplacer(
	"'", `"`,
	"None", "null",
	"True", "true",
	"False", "false",
)

var (
	quotedPairPatterns = []*regexp.Regexp{
		regexp.MustCompile(`'([^']+)':\s*'([^']+)'`),
		regexp.MustCompile(`"([^"]+)":\s*"([^"]+)"`),
	}
	numericPairPattern = regexp.MustCompile(`['"]?(\w+)['"]?:\s*([0-9.]+)`)
)

// Parse decodes raw into a Payload. See Decode.
func Parse(raw string) Payload {
	p, _ := Decode(raw)
	return p
}

// Decode decodes raw into a Payload and reports which stage succeeded.
// An empty or whitespace-only input yields an empty Payload and MethodEmpty.
func Decode(raw string) (Payload, Method) {
	if strings.TrimSpace(raw) == "" {
		return Payload{}, MethodEmpty
	}

	if p, ok := decodeStrict(literalReplacer.Replace(raw)); ok {
		return p, MethodStrict
	}

	return recoverPairs(raw), MethodRecovered
}

// decodeStrict accepts exactly one JSON object with nothing but whitespace after it.
func decodeStrict(text string) (Payload, bool) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var p Payload
	if err := dec.Decode(&p); err != nil || p == nil {
		return nil, false
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, false
	}
	return p, true
}

// recoverPairs extracts quoted pairs first, then numeric pairs. Numeric pairs win on
// key collisions.
func recoverPairs(raw string) Payload {
	p := Payload{}
	for _, re := range quotedPairPatterns {
		for _, m := range re.FindAllStringSubmatch(raw, -1) {
			p[m[1]] = m[2]
		}
	}
	for _, m := range numericPairPattern.FindAllStringSubmatch(raw, -1) {
		p[m[1]] = m[2]
	}
	return p
}

// String returns the value under key rendered as text, or "" when absent or null.
func (p Payload) String(key string) string {
	switch v := p[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
