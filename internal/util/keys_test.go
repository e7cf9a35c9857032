package util

import (
	"strings"
	"testing"
)

type filters struct {
	Period string `json:"period,omitempty"`
	TeamID string `json:"teamId,omitempty"`
}

func TestFilterKeyStable(t *testing.T) {
	a := FilterKey("advanced_analytics:churn", filters{Period: "30d", TeamID: "t1"})
	b := FilterKey("advanced_analytics:churn", filters{Period: "30d", TeamID: "t1"})
	if a != b {
		t.Fatalf("same filters produced different keys: %q vs %q", a, b)
	}
	if !strings.HasPrefix(a, "advanced_analytics:churn:") {
		t.Fatalf("missing prefix: %q", a)
	}
	if got := len(a) - len("advanced_analytics:churn:"); got != 16 {
		t.Fatalf("hash suffix length = %d, want 16", got)
	}
}

func TestFilterKeyDiffers(t *testing.T) {
	a := FilterKey("p", filters{Period: "30d"})
	b := FilterKey("p", filters{Period: "90d"})
	if a == b {
		t.Fatalf("different filters collided on %q", a)
	}
}

func TestFilterKeyMapOrderInsensitive(t *testing.T) {
	a := FilterKey("p", map[string]string{"a": "1", "b": "2"})
	b := FilterKey("p", map[string]string{"b": "2", "a": "1"})
	if a != b {
		t.Fatalf("map order changed key: %q vs %q", a, b)
	}
}

func TestCoalesce(t *testing.T) {
	if got := Coalesce("", "def"); got != "def" {
		t.Fatalf("Coalesce zero = %q", got)
	}
	if got := Coalesce("v", "def"); got != "v" {
		t.Fatalf("Coalesce non-zero = %q", got)
	}
}
