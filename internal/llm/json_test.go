package llm

import "testing"

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no fences", `[{"a":1}]`, `[{"a":1}]`},
		{"plain fences", "```\n[1,2]\n```", "[1,2]"},
		{"language tag", "```json\n[1,2]\n```", "[1,2]"},
		{"leading whitespace", "  ```json\n[1,2]\n```  ", "[1,2]"},
		{"multiline content", "```json\n[\n  1,\n  2\n]\n```", "[\n  1,\n  2\n]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripFences(tt.in); got != tt.want {
				t.Errorf("StripFences(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseJSONArray(t *testing.T) {
	arr, err := ParseJSONArray("```json\n[{\"index\": 1, \"summary\": \"s\"}]\n```")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(arr) != 1 || GetString(arr[0], "summary", "") != "s" {
		t.Errorf("parsed %v", arr)
	}
}

func TestParseJSONArrayRejectsNonArrays(t *testing.T) {
	for _, in := range []string{
		`{"index": 1}`,
		`"just a string"`,
		`Sure! Here are the results: [{"index":1}]`,
		``,
		`[1, 2, 3]`,
	} {
		if _, err := ParseJSONArray(in); err == nil {
			t.Errorf("ParseJSONArray(%q) should fail", in)
		}
	}
}

func TestGetInt(t *testing.T) {
	m := map[string]any{"score": float64(7), "name": "x"}
	if got := GetInt(m, "score", 0); got != 7 {
		t.Errorf("GetInt(score) = %d, want 7", got)
	}
	if got := GetInt(m, "name", 3); got != 3 {
		t.Errorf("non-numeric field should fall back, got %d", got)
	}
	if got := GetInt(m, "missing", 5); got != 5 {
		t.Errorf("missing field should fall back, got %d", got)
	}
}

func TestIntField(t *testing.T) {
	m := map[string]any{"score": float64(7), "name": "x"}
	if got, ok := IntField(m, "score"); !ok || got != 7 {
		t.Errorf("IntField(score) = %d, %v", got, ok)
	}
	if _, ok := IntField(m, "name"); ok {
		t.Error("non-numeric field should report absent")
	}
	if _, ok := IntField(m, "missing"); ok {
		t.Error("missing field should report absent")
	}
}

func TestGetString(t *testing.T) {
	m := map[string]any{"a": "x", "b": 2}
	if got := GetString(m, "a", ""); got != "x" {
		t.Errorf("GetString(a) = %q", got)
	}
	if got := GetString(m, "b", "fb"); got != "fb" {
		t.Errorf("non-string field should fall back, got %q", got)
	}
}
