package services

import "testing"

func TestCleanPrice(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"45000", "$45,000"},
		{"999", "$999"},
		{"1500000", "$1,500,000"},
		{"100000", "$100,000"},
		{"1000", "$1,000"},
		{"7", "$7"},
		{"$45000", "$45,000"},
		{"$450000", "$450,000"},
		{"  38900 ", "$38,900"},
		{"45,000", "$45,000"},
		{"$45,000", "$45,000"},
		{"", ""},
		{"   ", ""},
		{"TBD", ""},
	}

	for _, tt := range tests {
		got := CleanPrice(tt.raw)
		if got != tt.want {
			t.Errorf("CleanPrice(%q) = %q; want %q", tt.raw, got, tt.want)
		}
	}
}

func TestCleanPriceIdempotent(t *testing.T) {
	inputs := []string{"45000", "999", "1500000", "$450000", "45,000", "$1,234", "12", "1,2,3", "$"}
	for _, in := range inputs {
		once := CleanPrice(in)
		twice := CleanPrice(once)
		if once != twice {
			t.Errorf("CleanPrice not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestFilterText(t *testing.T) {
	tests := []struct {
		raw   string
		extra string
		want  string
	}{
		{"TLX A-Spec", TrimExtras, "TLX A-Spec"},
		{"  Sport   Touring  ", TrimExtras, "Sport Touring"},
		{"F-150® Lariat", ModelExtras, "F-150 Lariat"},
		{`Tacoma 6' Bed 20" Wheels`, TrimExtras, `Tacoma 6' Bed 20" Wheels`},
		{`Tacoma 6' Bed`, ModelExtras, "Tacoma 6 Bed"},
		{"3.0L/V6", ModelExtras, "3.0L/V6"},
		{"Citroën C5", ModelExtras, "Citroen C5"},
		{"EX AWD", TrimExtras, "EX AWD"},
		{"Model Y™", ModelExtras, "Model Y"},
		{"", TrimExtras, ""},
		{"***", TrimExtras, ""},
	}

	for _, tt := range tests {
		got := FilterText(tt.raw, tt.extra)
		if got != tt.want {
			t.Errorf("FilterText(%q, %q) = %q; want %q", tt.raw, tt.extra, got, tt.want)
		}
	}
}

func TestStripTags(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"<span>Sport</span>", "Sport"},
		{" EX-L <sup>1</sup>", "EX-L 1"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := StripTags(tt.raw); got != tt.want {
			t.Errorf("StripTags(%q) = %q; want %q", tt.raw, got, tt.want)
		}
	}
}
