package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type readyFunc func() bool

func (f readyFunc) Ready() bool { return f() }

type healthyFunc func() bool

func (f healthyFunc) Healthy() bool { return f() }

func readyz(t *testing.T, h *Handler) (int, result) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest("GET", "/readyz", nil))

	var body result
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return rec.Code, body
}

func TestHealthz_AlwaysReturns200(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	New(nil).Healthz(rec, httptest.NewRequest("GET", "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}

func TestReadyz_AllCheckersPass(t *testing.T) {
	t.Parallel()

	h := New([]Checker{
		ReadyCheck("engine", readyFunc(func() bool { return true })),
		HealthyCheck("learnstore", healthyFunc(func() bool { return true })),
	})

	code, body := readyz(t, h)
	if code != http.StatusOK || body.Status != "ok" {
		t.Errorf("got %d %q, want 200 ok", code, body.Status)
	}
	if body.Checks["engine"] != "ok" || body.Checks["learnstore"] != "ok" {
		t.Errorf("checks = %v", body.Checks)
	}
}

func TestReadyz_CheckerFails(t *testing.T) {
	t.Parallel()

	h := New([]Checker{
		ReadyCheck("engine", readyFunc(func() bool { return false })),
		HealthyCheck("learnstore", healthyFunc(func() bool { return false })),
		{Name: "custom", Check: func(context.Context) error { return errors.New("connection refused") }},
		{Name: "fine", Check: func(context.Context) error { return nil }},
	})

	code, body := readyz(t, h)
	if code != http.StatusServiceUnavailable || body.Status != "fail" {
		t.Errorf("got %d %q, want 503 fail", code, body.Status)
	}
	want := map[string]string{
		"engine":     "fail: not ready",
		"learnstore": "fail: no healthy backend",
		"custom":     "fail: connection refused",
		"fine":       "ok",
	}
	for name, w := range want {
		if body.Checks[name] != w {
			t.Errorf("check %q = %q, want %q", name, body.Checks[name], w)
		}
	}
}

func TestReadyz_NoCheckers(t *testing.T) {
	t.Parallel()

	code, body := readyz(t, New(nil))
	if code != http.StatusOK || body.Status != "ok" {
		t.Errorf("got %d %q, want 200 ok", code, body.Status)
	}
}

func TestReadyz_Timeout(t *testing.T) {
	t.Parallel()

	h := New([]Checker{{Name: "slow", Check: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}}, WithTimeout(20*time.Millisecond))

	code, body := readyz(t, h)
	if code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", code)
	}
	if body.Checks["slow"] != "fail: "+context.DeadlineExceeded.Error() {
		t.Errorf("slow = %q", body.Checks["slow"])
	}
}

func TestRegister(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	New(nil).Register(mux)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}
