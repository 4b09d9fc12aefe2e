package metadata

import "testing"

func TestHumanSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		size int64
		want string
	}{
		{0, "0 B"},
		{1, "1 B"},
		{1023, "1023 B"},
		{1024, "1 KiB"},
		{1536, "1.5 KiB"},
		{10 * 1024, "10 KiB"},
		{1234567, "1.18 MiB"},
		{1073741824, "1 GiB"},
		{5 * 1024 * 1024 * 1024 * 1024, "5 TiB"},
		{1 << 60, "1024 PiB"},
	}
	for _, tt := range tests {
		if got := HumanSize(tt.size); got != tt.want {
			t.Errorf("HumanSize(%d) = %q, want %q", tt.size, got, tt.want)
		}
	}
}
