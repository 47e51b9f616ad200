package util

import (
	"testing"
	"time"
)

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("GRAPH_MAX_CLUSTER_SIZE", "8")
	t.Setenv("GRAPH_SORTED", "false")
	t.Setenv("AI_TIMEOUT_MIN", "1.5")
	t.Setenv("BROKEN_NUMBER", "x")
	t.Setenv("EMPTY_STRING", "")

	if got := GetEnvInt("GRAPH_MAX_CLUSTER_SIZE", 5); got != 8 {
		t.Errorf("GetEnvInt() = %d, want 8", got)
	}
	if got := GetEnvInt("BROKEN_NUMBER", 5); got != 5 {
		t.Errorf("GetEnvInt() on invalid value = %d, want default", got)
	}
	if GetEnvBool("GRAPH_SORTED", true) {
		t.Errorf("GetEnvBool() should read false")
	}
	if got := GetEnvMinutes("AI_TIMEOUT_MIN", 5); got != 90*time.Second {
		t.Errorf("GetEnvMinutes() = %v", got)
	}
	if got := GetEnvString("EMPTY_STRING", "gpt-4o-mini"); got != "gpt-4o-mini" {
		t.Errorf("GetEnvString() with empty value = %q", got)
	}
	if got := GetEnv("UNSET_KEY_FOR_TEST"); got != "" {
		t.Errorf("GetEnv() = %q", got)
	}
}
