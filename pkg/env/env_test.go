package env

import "testing"

func TestFirst(t *testing.T) {
	t.Setenv("TRUCKFLOW_LOG_FORMAT", "")
	t.Setenv("LOG_FORMAT", "console")
	if got := First("json", "TRUCKFLOW_LOG_FORMAT", "LOG_FORMAT"); got != "console" {
		t.Fatalf("expected platform value, got %q", got)
	}

	t.Setenv("TRUCKFLOW_LOG_FORMAT", "json")
	if got := First("console", "TRUCKFLOW_LOG_FORMAT", "LOG_FORMAT"); got != "json" {
		t.Fatalf("expected prefixed value to win, got %q", got)
	}

	t.Setenv("TRUCKFLOW_LOG_FORMAT", "   ")
	t.Setenv("LOG_FORMAT", "")
	if got := First("json", "TRUCKFLOW_LOG_FORMAT", "LOG_FORMAT"); got != "json" {
		t.Fatalf("blank values should fall back, got %q", got)
	}
}
