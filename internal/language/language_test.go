package language

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "en"},
		{"   ", "en"},
		{"en", "en"},
		{"HI", "hi"},
		{"en_us", "en-US"},
		{"te-in", "te-IN"},
		{"Hindi", "hi"},
		{"telugu", "te"},
		{"englsh", "en"},
		{"xx", "xx"},
		{"yue-HK", "yue-HK"},
		{"auto", "auto"},
		{"Swedish", "Swedish"},
		{"Klingon", "Klingon"},
		{"  fil  ", "fil"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestBCP47(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"en", "en-US"},
		{"hi", "hi-IN"},
		{"en-GB", "en-GB"},
		{"zz", "en-US"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := BCP47(tt.in); got != tt.want {
				t.Errorf("BCP47(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"english", "english", 0},
		{"englsh", "english", 1},
		{"swedish", "english", 4},
		{"", "abc", 3},
	}

	for _, tt := range tests {
		if got := distance(tt.a, tt.b); got != tt.want {
			t.Errorf("distance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
