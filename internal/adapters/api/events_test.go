package api

import (
	"bufio"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/poyrazK/licenseHub/internal/adapters/notifier"
)

func newEventsServer(t *testing.T) (*httptest.Server, *notifier.Hub) {
	t.Helper()
	hub := notifier.NewHub()
	handler := NewAPIHandler(&mockRegService{}, fakeCreds{}, hub)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, hub
}

func TestEventsRequireToken(t *testing.T) {
	srv, _ := newEventsServer(t)

	resp, err := http.Get(srv.URL + "/admin/events")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/admin/events?access_token=forged")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 with bad token, got %d", resp.StatusCode)
	}
}

func TestEventsStreamDeliversChangeSignal(t *testing.T) {
	srv, hub := newEventsServer(t)

	resp, err := http.Get(srv.URL + "/admin/events?access_token=" + testToken)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected event-stream content type, got %q", ct)
	}

	// Wait for the session to register before announcing.
	deadline := time.Now().Add(2 * time.Second)
	for hub.Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("session never subscribed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.Broadcast()

	scanner := bufio.NewScanner(resp.Body)
	lineCh := make(chan string, 8)
	go func() {
		for scanner.Scan() {
			lineCh <- scanner.Text()
		}
		close(lineCh)
	}()

	timeout := time.After(3 * time.Second)
	for {
		select {
		case line, ok := <-lineCh:
			if !ok {
				t.Fatal("stream closed before a change event arrived")
			}
			if strings.HasPrefix(line, "event: change") {
				return
			}
		case <-timeout:
			t.Fatal("no change event within timeout")
		}
	}
}

func TestEventsHeaderAuthAlsoAccepted(t *testing.T) {
	srv, _ := newEventsServer(t)

	req, _ := http.NewRequest("GET", srv.URL+"/admin/events", nil)
	req.Header.Set("Authorization", "Bearer "+testToken)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 with header token, got %d", resp.StatusCode)
	}
}
