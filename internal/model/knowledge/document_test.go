package knowledge

import "testing"

func TestFormatSizeZero(t *testing.T) {
	if got := FormatSize(0); got != "0 Bytes" {
		t.Fatalf(`expected "0 Bytes", got %q`, got)
	}
}

func TestFormatSizeUnits(t *testing.T) {
	cases := []struct {
		size int
		want string
	}{
		{11, "11 Bytes"},
		{1023, "1023 Bytes"},
		{1024, "1 KB"},
		{1536, "1.5 KB"},
		{2048, "2 KB"},
		{1048576, "1 MB"},
		{1234567, "1.18 MB"},
		{1073741824, "1024 MB"},
	}

	for _, tc := range cases {
		if got := FormatSize(tc.size); got != tc.want {
			t.Fatalf("FormatSize(%d): expected %q, got %q", tc.size, tc.want, got)
		}
	}
}
