package testutil

import (
	"net/http"
	"net/url"
	"testing"
)

func TestAssertStatusCode_Matching(t *testing.T) {
	fakeT := &testing.T{}
	AssertStatusCode(fakeT, http.StatusOK, http.StatusOK)
	if fakeT.Failed() {
		t.Error("expected no failure for matching status codes")
	}
}

func TestAssertNoError_NilErr(t *testing.T) {
	fakeT := &testing.T{}
	AssertNoError(fakeT, nil)
	if fakeT.Failed() {
		t.Error("expected no failure for nil error")
	}
}

func TestNewGetRequest(t *testing.T) {
	req := NewGetRequest("/tracks", url.Values{"car_id": {"42"}})
	if req.Method != http.MethodGet {
		t.Errorf("method = %s, want GET", req.Method)
	}
	if got := req.URL.Query().Get("car_id"); got != "42" {
		t.Errorf("car_id = %q, want 42", got)
	}
	if req := NewGetRequest("/health", nil); req.URL.RawQuery != "" {
		t.Errorf("unexpected query %q", req.URL.RawQuery)
	}
}

func TestDecodeJSON(t *testing.T) {
	got := DecodeJSON(t, []byte(`{"a":[1]}`))
	m, ok := got.(map[string]interface{})
	if !ok || len(m["a"].([]interface{})) != 1 {
		t.Errorf("unexpected decode result %#v", got)
	}
}

func TestStraightTrack(t *testing.T) {
	tr := StraightTrack(100, 4, 60, 30, 500)
	if len(tr) != 4 {
		t.Fatalf("len = %d, want 4", len(tr))
	}
	if !tr.IsSorted() {
		t.Error("track is not sorted")
	}
	if got := tr.DistanceBetween(100, 280); got != 2000 {
		t.Errorf("distance = %v, want 2000", got)
	}
}
