package util

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestFormatINR(t *testing.T) {
	cases := map[int64]string{
		0:         "₹0",
		999:       "₹999",
		1000:      "₹1,000",
		55000:     "₹55,000",
		550000:    "₹5,50,000",
		1250000:   "₹12,50,000",
		123456789: "₹12,34,56,789",
		-45000:    "-₹45,000",
	}
	for in, want := range cases {
		if got := FormatINR(in); got != want {
			t.Errorf("FormatINR(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestSplitCSV(t *testing.T) {
	got := SplitCSV(" a, b,,a , c ")
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SplitCSV() = %v, want %v", got, want)
	}
	if SplitCSV("") != nil {
		t.Error("SplitCSV(\"\") should be nil")
	}
}

func TestParseEnvHelpers(t *testing.T) {
	t.Setenv("DP_TEST_BOOL", "yes")
	t.Setenv("DP_TEST_INT", "12")
	t.Setenv("DP_TEST_BAD_INT", "twelve")
	t.Setenv("DP_TEST_DURATION", "90s")
	t.Setenv("DP_TEST_FLOAT", "2.5")

	if !ParseBoolEnv("DP_TEST_BOOL", false) {
		t.Error("ParseBoolEnv should accept yes")
	}
	if ParseIntEnv("DP_TEST_INT", 1) != 12 || ParseIntEnv("DP_TEST_BAD_INT", 7) != 7 {
		t.Error("ParseIntEnv mismatch")
	}
	if ParseDurationEnv("DP_TEST_DURATION", time.Second) != 90*time.Second {
		t.Error("ParseDurationEnv mismatch")
	}
	if ParseFloatEnv("DP_TEST_FLOAT", 1) != 2.5 || ParseFloatEnv("DP_TEST_MISSING", 1) != 1 {
		t.Error("ParseFloatEnv mismatch")
	}
}

func TestRedactSecrets(t *testing.T) {
	in := `request failed: api_key=abc123 Authorization: Bearer xyz.789 key sk-proj-ABCDEFGHIJK`
	out := RedactSecrets(in)
	for _, leaked := range []string{"abc123", "xyz.789", "sk-proj-ABCDEFGHIJK"} {
		if strings.Contains(out, leaked) {
			t.Errorf("RedactSecrets leaked %q: %s", leaked, out)
		}
	}
	if !strings.Contains(out, "request failed") {
		t.Errorf("RedactSecrets removed context: %s", out)
	}
}

func TestJitter(t *testing.T) {
	for i := 0; i < 50; i++ {
		d := Jitter(300*time.Millisecond, 400*time.Millisecond)
		if d < 300*time.Millisecond || d >= 700*time.Millisecond {
			t.Fatalf("Jitter out of range: %v", d)
		}
	}
	if Jitter(time.Second, 0) != time.Second {
		t.Error("zero spread should return base")
	}
}
