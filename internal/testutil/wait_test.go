package testutil

import (
	"flinkrest/pkg/flink"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"
)

func TestWaitFor_ImmediateSuccess(t *testing.T) {
	t.Parallel()
	result := WaitFor(t, func() bool {
		return true
	}, WithTimeout(time.Second))

	if !result {
		t.Error("expected WaitFor to return true for immediate success")
	}
}

func TestWaitFor_EventualSuccess(t *testing.T) {
	t.Parallel()
	counter := 0
	result := WaitFor(t, func() bool {
		counter++
		return counter >= 3
	}, WithTimeout(time.Second), WithInterval(10*time.Millisecond))

	if !result {
		t.Error("expected WaitFor to return true for eventual success")
	}
	if counter < 3 {
		t.Errorf("expected counter >= 3, got %d", counter)
	}
}

func TestWaitFor_Timeout(t *testing.T) {
	t.Parallel()
	result := WaitFor(t, func() bool {
		return false
	}, WithTimeout(50*time.Millisecond), WithInterval(10*time.Millisecond))

	if result {
		t.Error("expected WaitFor to return false on timeout")
	}
}

func TestMustWaitForJobState(t *testing.T) {
	t.Parallel()
	var polls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/jobs/a1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		state := "CREATED"
		if polls.Add(1) >= 3 {
			state = "RUNNING"
		}
		w.Write([]byte(`{"jid":"a1","state":"` + state + `"}`))
	}))
	defer server.Close()

	u, _ := url.Parse(server.URL)
	c, err := flink.New(flink.Target{Host: u.Hostname(), Port: u.Port()})
	if err != nil {
		t.Fatalf("flink.New() error = %v", err)
	}

	MustWaitForJobState(t, c, "a1", "RUNNING", WithTimeout(time.Second), WithInterval(10*time.Millisecond))

	if n := polls.Load(); n != 3 {
		t.Errorf("expected 3 polls, got %d", n)
	}
}
