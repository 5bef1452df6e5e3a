package gate

import (
	"math"
	"reflect"
	"strings"
	"testing"
)

func TestSerializeParams_PositionalMapping(t *testing.T) {
	tests := []struct {
		name       string
		paramNames []string
		args       Args
		want       map[string]any
	}{
		{
			name:       "positional mapped to declared names",
			paramNames: []string{"a", "b"},
			args:       Args{Positional: []any{1, 2}},
			want:       map[string]any{"a": 1, "b": 2},
		},
		{
			name:       "overflow gets synthetic name by position index",
			paramNames: []string{"a", "b"},
			args:       Args{Positional: []any{1, 2, 3}},
			want:       map[string]any{"a": 1, "b": 2, "arg2": 3},
		},
		{
			name:       "no declared names at all",
			paramNames: nil,
			args:       Args{Positional: []any{"x", "y"}},
			want:       map[string]any{"arg0": "x", "arg1": "y"},
		},
		{
			name:       "mixed positional overflow and named",
			paramNames: []string{"a", "b"},
			args: Args{
				Positional: []any{1, "x", "e1", "e2"},
				Named:      map[string]any{"c": "z", "opt": true},
			},
			want: map[string]any{"a": 1, "b": "x", "arg2": "e1", "arg3": "e2", "c": "z", "opt": true},
		},
		{
			name:       "empty call",
			paramNames: []string{"a"},
			args:       Args{},
			want:       map[string]any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SerializeParams(tt.paramNames, tt.args)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SerializeParams() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestSerializeParams_UnserializableSentinel(t *testing.T) {
	// Функция тотальна: что угодно на входе, никаких паник,
	// несериализуемое заменяется sentinel-строкой с именем типа
	tests := []struct {
		name  string
		value any
	}{
		{"channel", make(chan int)},
		{"function", func() {}},
		{"NaN", math.NaN()},
		{"positive infinity", math.Inf(1)},
		{"nested channel", map[string]any{"inner": make(chan int)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SerializeParams([]string{"v"}, Args{Positional: []any{tt.value}})
			s, ok := got["v"].(string)
			if !ok {
				t.Fatalf("value %T was not replaced by sentinel: %#v", tt.value, got["v"])
			}
			if !strings.HasPrefix(s, "<unserializable: ") || !strings.HasSuffix(s, ">") {
				t.Errorf("sentinel format mismatch: %q", s)
			}
		})
	}
}

func TestSerializeParams_NamedCheckedIndependently(t *testing.T) {
	got := SerializeParams(nil, Args{Named: map[string]any{
		"good": "value",
		"bad":  make(chan int),
	}})

	if got["good"] != "value" {
		t.Errorf("serializable named value corrupted: %#v", got["good"])
	}
	s, ok := got["bad"].(string)
	if !ok || !strings.Contains(s, "chan int") {
		t.Errorf("expected sentinel with type name, got %#v", got["bad"])
	}
}

func TestSerializeParams_NilValue(t *testing.T) {
	got := SerializeParams([]string{"v"}, Args{Positional: []any{nil}})
	if got["v"] != nil {
		t.Errorf("nil is json-safe and must pass through, got %#v", got["v"])
	}
}
