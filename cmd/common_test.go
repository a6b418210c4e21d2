package cmd

import "testing"

func TestFormatSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{3 * 1024 * 1024 * 1024, "3.0 GB"},
	}
	for _, tt := range tests {
		if got := formatSize(tt.size); got != tt.want {
			t.Errorf("formatSize(%d) = %q, want %q", tt.size, got, tt.want)
		}
	}
}

func TestParseVersion(t *testing.T) {
	for _, s := range []string{"latest", "0"} {
		v, err := ParseVersion(s)
		if err != nil || v != 0 {
			t.Errorf("ParseVersion(%q) = %d, %v; want latest", s, v, err)
		}
	}

	v, err := ParseVersion("12")
	if err != nil || v != 12 {
		t.Errorf("ParseVersion(12) = %d, %v", v, err)
	}

	for _, s := range []string{"", "-1", "v2", "1.5"} {
		if _, err := ParseVersion(s); err == nil {
			t.Errorf("ParseVersion(%q) should fail", s)
		}
	}
}
