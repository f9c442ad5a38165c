package textutil

import (
	"reflect"
	"testing"
)

func TestCleanData(t *testing.T) {
	t.Run("trims keys and string values", func(t *testing.T) {
		input := map[string]any{
			" orderId ": " ord_1 ",
			"quantity":  2,
			"empty":     " ",
			"missing":   nil,
			" ":         "ignored",
		}
		expected := map[string]any{
			"orderId":  "ord_1",
			"quantity": 2,
		}
		if actual := CleanData(input); !reflect.DeepEqual(actual, expected) {
			t.Fatalf("expected %#v got %#v", expected, actual)
		}
	})

	t.Run("returns nil when nothing remains", func(t *testing.T) {
		if actual := CleanData(map[string]any{" ": "x", "k": ""}); actual != nil {
			t.Fatalf("expected nil got %#v", actual)
		}
	})
}

func TestPlainText(t *testing.T) {
	cases := []struct {
		name  string
		input string
		max   int
		want  string
	}{
		{name: "strips tags", input: `<b>Hello</b> <script>alert(1)</script>camper`, want: "Hello camper"},
		{name: "keeps entities readable", input: "Tom & Jerry's tent", want: "Tom & Jerry's tent"},
		{name: "truncates by rune", input: "Xin chào bạn", max: 8, want: "Xin chào"},
		{name: "trims", input: "  hi  ", want: "hi"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := PlainText(tc.input, tc.max); got != tc.want {
				t.Fatalf("expected %q got %q", tc.want, got)
			}
		})
	}
}
