package database

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MaxRecords is the number of most recent records a store retains
const MaxRecords = 100

// Analyzed holds the six classified business card fields. Every field is
// always present when serialized; missing values are empty strings.
type Analyzed struct {
	Company string `json:"company"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Notes   string `json:"notes"`
}

// Record is one persisted recognition result
type Record struct {
	Timestamp string   `json:"timestamp"`
	Filename  string   `json:"filename"`
	Text      string   `json:"text"`
	Analyzed  Analyzed `json:"analyzed"`
	Image     string   `json:"image,omitempty"` // base64 PNG snapshot
}

// UnmarshalJSON accepts loosely typed model output: null or missing fields
// become "", numbers and booleans keep their JSON text.
func (a *Analyzed) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("analyzed must be a JSON object: %w", err)
	}
	*a = Analyzed{
		Company: rawToString(fields["company"]),
		Name:    rawToString(fields["name"]),
		Address: rawToString(fields["address"]),
		Phone:   rawToString(fields["phone"]),
		Email:   rawToString(fields["email"]),
		Notes:   rawToString(fields["notes"]),
	}
	return nil
}

// AnalyzedFromMap builds Analyzed from a decoded JSON object with the same
// coercion rules as UnmarshalJSON.
func AnalyzedFromMap(fields map[string]any) Analyzed {
	return Analyzed{
		Company: anyToString(fields["company"]),
		Name:    anyToString(fields["name"]),
		Address: anyToString(fields["address"]),
		Phone:   anyToString(fields["phone"]),
		Email:   anyToString(fields["email"]),
		Notes:   anyToString(fields["notes"]),
	}
}

// IsEmpty reports whether no field carries a value
func (a Analyzed) IsEmpty() bool {
	return a == Analyzed{}
}

func rawToString(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return trimmed
}

func anyToString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		raw, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(raw)
	}
}

// timestampLayouts are tried in order when parsing stored timestamps.
// The zone-less layout matches records written by earlier versions.
var timestampLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	time.RFC3339Nano,
}

// RegisteredAt parses the record timestamp
func (r Record) RegisteredAt() (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, r.Timestamp, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid record timestamp %q", r.Timestamp)
}
