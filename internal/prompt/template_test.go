package prompt

import (
	"reflect"
	"strings"
	"testing"
)

func TestRender(t *testing.T) {
	got, err := Render("{{a}} and {{b}} and {{a}}", map[string]string{"a": "x", "b": "y", "unused": "z"})
	if err != nil {
		t.Fatal(err)
	}
	if got != "x and y and x" {
		t.Errorf("got %q", got)
	}
}

func TestRenderMissing(t *testing.T) {
	_, err := Render(TranslateFrom, map[string]string{"target": "German"})
	if err == nil || !strings.Contains(err.Error(), "source") {
		t.Fatalf("err = %v", err)
	}
}

func TestVariables(t *testing.T) {
	tests := []struct {
		tmpl string
		want []string
	}{
		{TranslateAuto, []string{"target"}},
		{TranslateFrom, []string{"target", "source"}},
		{"no placeholders", nil},
		{"{{x}}{{x}}", []string{"x"}},
	}
	for _, tt := range tests {
		if got := Variables(tt.tmpl); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Variables(%q) = %v, want %v", tt.tmpl, got, tt.want)
		}
	}
}
