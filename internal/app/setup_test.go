package app

import "testing"

func TestQualifyModelName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare name gets provider prefix", "gemini-2.5-flash", "googleai/gemini-2.5-flash"},
		{"qualified name passes through", "googleai/gemini-2.5-pro", "googleai/gemini-2.5-pro"},
		{"other provider untouched", "vertexai/gemini-2.5-flash", "vertexai/gemini-2.5-flash"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := qualifyModelName(tt.in); got != tt.want {
				t.Errorf("qualifyModelName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
