package utils

import "testing"

func TestGetEnv(t *testing.T) {
	t.Setenv("TEST_ENV_STR", "value")
	if got := GetEnv("TEST_ENV_STR", "fallback", nil); got != "value" {
		t.Fatalf("got %q", got)
	}
	if got := GetEnv("TEST_ENV_STR_MISSING", "fallback", nil); got != "fallback" {
		t.Fatalf("got %q", got)
	}
}

func TestGetEnvAsInt(t *testing.T) {
	t.Setenv("TEST_ENV_INT", "42")
	if got := GetEnvAsInt("TEST_ENV_INT", 7, nil); got != 42 {
		t.Fatalf("got %d", got)
	}
	t.Setenv("TEST_ENV_INT_BAD", "not-a-number")
	if got := GetEnvAsInt("TEST_ENV_INT_BAD", 7, nil); got != 7 {
		t.Fatalf("got %d", got)
	}
	if got := GetEnvAsInt("TEST_ENV_INT_MISSING", 7, nil); got != 7 {
		t.Fatalf("got %d", got)
	}
}

func TestGetEnvAsBool(t *testing.T) {
	cases := []struct {
		val        string
		defaultVal bool
		want       bool
	}{
		{"true", false, true},
		{"false", true, false},
		{"1", false, true},
		{"0", true, false},
		{"TRUE", false, true},
		{"yes", false, false}, // unparseable, falls back to default
		{"", true, true},
	}
	for _, tc := range cases {
		t.Run(tc.val, func(t *testing.T) {
			t.Setenv("TEST_ENV_BOOL", tc.val)
			if got := GetEnvAsBool("TEST_ENV_BOOL", tc.defaultVal, nil); got != tc.want {
				t.Fatalf("value %q: got %v, want %v", tc.val, got, tc.want)
			}
		})
	}
	if got := GetEnvAsBool("TEST_ENV_BOOL_MISSING", true, nil); !got {
		t.Fatal("missing key must return the default")
	}
}
