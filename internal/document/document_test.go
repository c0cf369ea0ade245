package document

import (
	"reflect"
	"testing"
)

func TestCleanName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "marker_prefix", in: "~id", want: "id"},
		{name: "marker_from", in: "~from", want: "from"},
		{name: "no_marker", in: "name", want: "name"},
		{name: "marker_inside", in: "a~b~", want: "ab"},
		{name: "only_marker", in: "~", want: ""},
		{name: "decomposed_to_nfc", in: "cafe\u0301", want: "caf\u00e9"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := CleanName(tt.in); got != tt.want {
				t.Fatalf("CleanName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestValueString(t *testing.T) {
	t.Parallel()

	if got := Scalar("x").String(); got != "x" {
		t.Fatalf("Scalar(x).String() = %q, want %q", got, "x")
	}
	if got := List("a", "b", "c").String(); got != "a| b| c" {
		t.Fatalf("List(a,b,c).String() = %q, want %q", got, "a| b| c")
	}
	if got := List().String(); got != "" {
		t.Fatalf("List().String() = %q, want empty", got)
	}
}

func TestNewCleansNamesAndKeepsOrder(t *testing.T) {
	t.Parallel()

	d := New(
		Field{Name: "~id", Value: Scalar("1")},
		Field{Name: "~label", Value: Scalar("person")},
		Field{Name: "name", Value: List("Ann", "Anna")},
	)

	if got, want := d.Names(), []string{"id", "label", "name"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	if got, want := d.Values(), []string{"1", "person", "Ann| Anna"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Values() = %v, want %v", got, want)
	}
	v, ok := d.Get("id")
	if !ok || v.String() != "1" {
		t.Fatalf("Get(id) = (%v, %v), want (1, true)", v, ok)
	}
	if _, ok := d.Get("~id"); ok {
		t.Fatalf("Get(~id) found a field; names should be cleaned")
	}
}
