package utils

import "testing"

func TestTruncateForLog(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		limit  int
		expect string
	}{
		{name: "disabled preview", input: `{"best_match_id": 0}`, limit: 0, expect: ""},
		{name: "fits", input: "Python Developer", limit: 50, expect: "Python Developer"},
		{name: "cut", input: "Senior Go Engineer at Tech Corp", limit: 9, expect: "Senior Go..."},
		{name: "surrounding whitespace ignored", input: "\n  Data Scientist \n", limit: 4, expect: "Data..."},
		{name: "counts runes", input: "Développeur Go", limit: 11, expect: "Développeur..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := TruncateForLog(tt.input, tt.limit); got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}
