package feed

import (
	"encoding/base64"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Layouts accepted for Edm.DateTime values, which carry no zone and are read
// as UTC.
var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.9999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// convertTyped converts element text according to its declared m:type.
// Unknown types and values that fail to parse are kept as text.
func convertTyped(edmType, text string) any {
	switch edmType {
	case "", "Edm.String":
		return text
	case "Edm.Int16", "Edm.Int32", "Edm.Int64", "Edm.Byte", "Edm.SByte":
		if n, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64); err == nil {
			return n
		}
	case "Edm.Double", "Edm.Single", "Edm.Decimal":
		if f, err := strconv.ParseFloat(strings.TrimSpace(text), 64); err == nil {
			return f
		}
	case "Edm.Boolean":
		if b, err := strconv.ParseBool(strings.TrimSpace(text)); err == nil {
			return b
		}
	case "Edm.DateTime":
		if t, ok := parseDateTime(text); ok {
			return t
		}
	case "Edm.DateTimeOffset":
		if t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(text)); err == nil {
			return t
		}
	case "Edm.Guid":
		if id, err := uuid.Parse(strings.TrimSpace(text)); err == nil {
			return id
		}
	case "Edm.Binary":
		if b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(text)); err == nil {
			return b
		}
	}
	return text
}

func parseDateTime(text string) (time.Time, bool) {
	text = strings.TrimSpace(text)
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, text, time.UTC); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// parseScalarText interprets an untyped scalar body: integer, then float,
// then boolean, falling back to the text itself.
func parseScalarText(text string) any {
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(text); err == nil {
		return b
	}
	return text
}

// parseJSONDate recognises the verbose-JSON "/Date(ms)/" and
// "/Date(ms+hhmm)/" encodings. The offset is ignored; ms is UTC epoch time.
func parseJSONDate(s string) (time.Time, bool) {
	const prefix, suffix = "/Date(", ")/"
	if !strings.HasPrefix(s, prefix) || !strings.HasSuffix(s, suffix) {
		return time.Time{}, false
	}
	body := s[len(prefix) : len(s)-len(suffix)]
	if body == "" {
		return time.Time{}, false
	}
	if i := strings.IndexAny(body[1:], "+-"); i >= 0 {
		body = body[:i+1]
	}
	ms, err := strconv.ParseInt(body, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms).UTC(), true
}

// typeName strips a namespace qualifier and a leading '#'.
func typeName(qualified string) string {
	qualified = strings.TrimPrefix(qualified, "#")
	if i := strings.LastIndexByte(qualified, '.'); i >= 0 {
		return qualified[i+1:]
	}
	return qualified
}

func resultRecord(v any) *PropertyMap {
	rec := NewPropertyMap()
	rec.Set(ResultKey, v)
	return rec
}
