package main

import (
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

func TestRegisterProxyMatchesPrefixAndSubpaths(t *testing.T) {
	mux := http.NewServeMux()
	registerProxy(mux, "/api/v1/autos", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for _, path := range []string{"/api/v1/autos", "/api/v1/autos/", "/api/v1/autos/abc123"} {
		req := httptest.NewRequest(http.MethodGet, "http://example.com"+path, nil)
		rw := httptest.NewRecorder()
		mux.ServeHTTP(rw, req)
		if rw.Code != http.StatusNoContent {
			t.Errorf("%s: got %d, want 204", path, rw.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "http://example.com/api/v1/other", nil)
	rw := httptest.NewRecorder()
	mux.ServeHTTP(rw, req)
	if rw.Code != http.StatusNotFound {
		t.Errorf("unrelated path: got %d, want 404", rw.Code)
	}
}

func TestIsTruthy(t *testing.T) {
	for _, s := range []string{"1", "true", "TRUE", " yes ", "on", "Y"} {
		if !isTruthy(s) {
			t.Errorf("isTruthy(%q) = false, want true", s)
		}
	}
	for _, s := range []string{"", "0", "false", "off", "nope"} {
		if isTruthy(s) {
			t.Errorf("isTruthy(%q) = true, want false", s)
		}
	}
}

func TestParseList(t *testing.T) {
	got := parseList(" a, b ,,c ")
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("parseList = %v, want %v", got, want)
	}
	if got := parseList(""); len(got) != 0 {
		t.Fatalf("parseList(empty) = %v, want empty", got)
	}
}
