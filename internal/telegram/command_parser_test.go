package telegram

import (
	"testing"
)

func TestParseSearchArgs(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		wantQuery    string
		wantKeywords string
	}{
		{"plain query", "golang jobs", "golang jobs", ""},
		{"extra spaces", "  golang    jobs  ", "golang jobs", ""},
		{"query with keywords", "shoes | red, blue", "shoes", "red, blue"},
		{"no spaces around pipe", "shoes|red,blue", "shoes", "red,blue"},
		{"keywords only", "| red, blue", "", "red, blue"},
		{"single keyword after pipe", "shoes | red", "shoes", "red"},
		{"only first pipe splits", "a | b | c", "a", "b | c"},
		{"empty", "   ", "", ""},
		{"cyrillic", "кроссовки | красные, синие", "кроссовки", "красные, синие"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, keywords := ParseSearchArgs(tt.text)
			if query != tt.wantQuery {
				t.Errorf("query = %q, want %q", query, tt.wantQuery)
			}
			if keywords != tt.wantKeywords {
				t.Errorf("keywords = %q, want %q", keywords, tt.wantKeywords)
			}
		})
	}
}

func TestParseUpgradeArgs(t *testing.T) {
	tests := []struct {
		name        string
		args        string
		wantPlan    string
		wantQueries int
		wantResults int
		wantErr     bool
	}{
		{"fixed plan", "sub1", "sub1", 0, 0, false},
		{"enterprise with values", "enterprise 500 20", "enterprise", 500, 20, false},
		{"padded", "  sub2  ", "sub2", 0, 0, false},
		{"empty", "", "", 0, 0, true},
		{"two args", "enterprise 500", "", 0, 0, true},
		{"not a number", "enterprise many 20", "", 0, 0, true},
		{"bad results", "enterprise 10 x", "", 0, 0, true},
		{"too many args", "enterprise 1 2 3", "", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, queries, results, err := ParseUpgradeArgs(tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseUpgradeArgs() error = %v, wantErr %v", err, tt.wantErr)
			}
			if plan != tt.wantPlan || queries != tt.wantQueries || results != tt.wantResults {
				t.Errorf("ParseUpgradeArgs() = (%q, %d, %d), want (%q, %d, %d)",
					plan, queries, results, tt.wantPlan, tt.wantQueries, tt.wantResults)
			}
		})
	}
}

func TestParseHistoryLimit(t *testing.T) {
	tests := []struct {
		args string
		want int
	}{
		{"", 0},
		{"5", 5},
		{" 12 ", 12},
		{"-1", 0},
		{"abc", 0},
	}

	for _, tt := range tests {
		if got := ParseHistoryLimit(tt.args); got != tt.want {
			t.Errorf("ParseHistoryLimit(%q) = %d, want %d", tt.args, got, tt.want)
		}
	}
}
