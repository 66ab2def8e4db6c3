package pagination

import "testing"

func TestNormalizeLimit(t *testing.T) {
	cases := map[int]int{0: DefaultLimit, -3: DefaultLimit, 5: 5, 500: MaxLimit}
	for in, want := range cases {
		if got := NormalizeLimit(in); got != want {
			t.Fatalf("NormalizeLimit(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestParamsOffset(t *testing.T) {
	if got := (Params{Page: 3, PageSize: 5}).Offset(); got != 10 {
		t.Fatalf("expected offset 10, got %d", got)
	}
	if got := (Params{}).Offset(); got != 0 {
		t.Fatalf("expected offset 0 for defaults, got %d", got)
	}
}

func TestParseParams(t *testing.T) {
	params, err := ParseParams("2", "")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if params.Page != 2 || params.PageSize != DefaultLimit {
		t.Fatalf("unexpected params %+v", params)
	}
	if _, err := ParseParams("zero", "5"); err == nil {
		t.Fatal("expected error for non-numeric page")
	}
	if _, err := ParseParams("1", "-1"); err == nil {
		t.Fatal("expected error for negative page size")
	}
}
