package citation

import (
	"context"
	"reflect"
	"testing"
)

func suppliedFixture(n int) []Citation {
	citations := make([]Citation, n)
	for i := range citations {
		citations[i] = Citation{Index: i + 1, Title: "source", Source: "journal"}
	}
	return citations
}

func TestVerifyRoundTrip(t *testing.T) {
	answer := "Direct evidence [CITATION:2] supports this, as do [1,3] and later work [5-6]."
	v := Verify(context.Background(), answer, suppliedFixture(6))

	if !v.HasCitations {
		t.Error("HasCitations = false, want true")
	}
	if want := []int{1, 2, 3, 5, 6}; !reflect.DeepEqual(v.Indices, want) {
		t.Errorf("Indices = %v, want %v", v.Indices, want)
	}
	if len(v.Referenced) != 5 {
		t.Errorf("got %d referenced citations, want 5", len(v.Referenced))
	}
	if v.Stats.TotalSupplied != 6 || v.Stats.TotalReferenced != 5 {
		t.Errorf("stats = %+v, want 6 supplied / 5 referenced", v.Stats)
	}
	if want := []int{4}; !reflect.DeepEqual(v.Stats.Unreferenced, want) {
		t.Errorf("Unreferenced = %v, want %v", v.Stats.Unreferenced, want)
	}
}

func TestVerifyNoMarkers(t *testing.T) {
	v := Verify(context.Background(), "Prose without any markers.", suppliedFixture(4))

	if v.HasCitations {
		t.Error("HasCitations = true, want false")
	}
	if v.Stats.TotalReferenced != 0 {
		t.Errorf("TotalReferenced = %d, want 0", v.Stats.TotalReferenced)
	}
	if v.Stats.TotalSupplied != 4 {
		t.Errorf("TotalSupplied = %d, want 4", v.Stats.TotalSupplied)
	}
	if len(v.Referenced) != 0 {
		t.Errorf("Referenced = %v, want empty", v.Referenced)
	}
}

func TestVerifyDropsOutOfRangeIndices(t *testing.T) {
	answer := "Supported by [1] and [9], per the AFFIRM trial (2002)."
	v := Verify(context.Background(), answer, suppliedFixture(2))

	if want := []int{1}; !reflect.DeepEqual(v.Indices, want) {
		t.Errorf("Indices = %v, want %v (out-of-range dropped silently)", v.Indices, want)
	}
}

func TestVerifyDuplicateMarkersCountOnce(t *testing.T) {
	answer := "Shown in [1], repeated in [1] and again (1)."
	v := Verify(context.Background(), answer, suppliedFixture(2))

	if want := []int{1}; !reflect.DeepEqual(v.Indices, want) {
		t.Errorf("Indices = %v, want %v", v.Indices, want)
	}
	if v.Stats.TotalReferenced != 1 {
		t.Errorf("TotalReferenced = %d, want 1", v.Stats.TotalReferenced)
	}
}

func TestVerifyAllReferenced(t *testing.T) {
	v := Verify(context.Background(), "Both [1] and [2] agree.", suppliedFixture(2))

	if len(v.Stats.Unreferenced) != 0 {
		t.Errorf("Unreferenced = %v, want empty", v.Stats.Unreferenced)
	}
	if v.Stats.TotalReferenced != 2 {
		t.Errorf("TotalReferenced = %d, want 2", v.Stats.TotalReferenced)
	}
}

func TestVerifyNoSupplied(t *testing.T) {
	v := Verify(context.Background(), "Citing [1] anyway.", nil)

	if v.HasCitations {
		t.Error("HasCitations = true with nothing supplied, want false")
	}
	if v.Stats.TotalSupplied != 0 {
		t.Errorf("TotalSupplied = %d, want 0", v.Stats.TotalSupplied)
	}
}
