package httpc

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNew_Defaults(t *testing.T) {
	c := New(Options{})
	if c.Timeout != DefaultOptions().Timeout {
		t.Errorf("Timeout = %s", c.Timeout)
	}
	tr, ok := c.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("Transport = %T", c.Transport)
	}
	if tr.MaxIdleConnsPerHost != 4 || tr.IdleConnTimeout != 90*time.Second {
		t.Errorf("transport = idle/host %d, idle timeout %s", tr.MaxIdleConnsPerHost, tr.IdleConnTimeout)
	}
}

func TestNewClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(50 * time.Millisecond)
	start := time.Now()
	if _, err := c.Get(srv.URL); err == nil {
		t.Fatal("expected timeout")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("request took %s", elapsed)
	}
}
