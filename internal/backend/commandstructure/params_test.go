package commandstructure

import (
	"testing"
)

func TestGetStringParam(t *testing.T) {
	params := map[string]any{
		"key1": "value1",
		"key2": 123,
	}

	if val := GetStringParam(params, "key1", "default"); val != "value1" {
		t.Errorf("Expected 'value1', got '%s'", val)
	}
	if val := GetStringParam(params, "key2", "default"); val != "default" {
		t.Errorf("Expected 'default' for non-string value, got '%s'", val)
	}
	if val := GetStringParam(params, "key3", "default"); val != "default" {
		t.Errorf("Expected 'default' for missing key, got '%s'", val)
	}
}

func TestGetIntParam(t *testing.T) {
	params := map[string]any{
		"maxDimension": 2000,
		"int64":        int64(456),
		"float":        float64(789),
		"string":       "not-an-int",
	}

	if val := GetIntParam(params, "maxDimension", 0); val != 2000 {
		t.Errorf("Expected 2000, got %d", val)
	}
	if val := GetIntParam(params, "int64", 0); val != 456 {
		t.Errorf("Expected 456, got %d", val)
	}
	if val := GetIntParam(params, "float", 0); val != 789 {
		t.Errorf("Expected 789, got %d", val)
	}
	if val := GetIntParam(params, "string", 999); val != 999 {
		t.Errorf("Expected 999, got %d", val)
	}
	if val := GetIntParam(params, "missing", 999); val != 999 {
		t.Errorf("Expected 999, got %d", val)
	}
}

func TestGetBoolParam(t *testing.T) {
	params := map[string]any{
		"yamlBool":   true,
		"quotedTrue": " TRUE ",
		"quotedNo":   "false",
		"garbage":    "maybe",
		"number":     1,
	}

	if !GetBoolParam(params, "yamlBool", false) {
		t.Error("Expected native bool true to be honored")
	}
	if !GetBoolParam(params, "quotedTrue", false) {
		t.Error("Expected quoted TRUE to be parsed case-insensitively")
	}
	if GetBoolParam(params, "quotedNo", true) {
		t.Error("Expected quoted false to be parsed")
	}
	if !GetBoolParam(params, "garbage", true) {
		t.Error("Expected default for unparsable string")
	}
	if GetBoolParam(params, "number", false) {
		t.Error("Expected default for numeric value")
	}
	if !GetBoolParam(params, "missing", true) {
		t.Error("Expected default for missing key")
	}
}

func TestValidateRequiredParams(t *testing.T) {
	params := map[string]any{
		"param1": "value1",
		"param2": 123,
	}

	if err := ValidateRequiredParams(params, []string{"param1", "param2"}); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if err := ValidateRequiredParams(params, []string{"param1", "param3"}); err == nil {
		t.Error("Expected error for missing required param")
	}
}
