// Package client implements the administrator dashboard session: an
// authenticated in-memory snapshot of all registrations kept in sync by
// full-refetch reconciliation. The session never interprets a change
// signal's payload; every signal means "re-read everything".
package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/poyrazK/licenseHub/internal/core/domain"
)

// State is the session lifecycle: Disconnected -> Authenticating ->
// Connected, and back to Disconnected on logout or credential expiry.
type State int

const (
	StateDisconnected State = iota
	StateAuthenticating
	StateConnected
)

var (
	// ErrNotConnected is returned by operations that require a session.
	ErrNotConnected = errors.New("not connected")
	// ErrSessionExpired is returned when the server rejects the bearer
	// token mid-session; the local snapshot and token are discarded.
	ErrSessionExpired = errors.New("session expired")
)

const (
	initialBackoff = 500 * time.Millisecond
	maxBackoff     = 10 * time.Second
)

// Dashboard is an admin session client against the licenseHub API.
type Dashboard struct {
	baseURL string
	http    *http.Client

	mu       sync.Mutex
	state    State
	token    string
	snapshot []domain.Registration
}

// NewDashboard creates a disconnected session for the given API base URL.
func NewDashboard(baseURL string) *Dashboard {
	return &Dashboard{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
	}
}

// State returns the current session state.
func (d *Dashboard) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Snapshot returns a copy of the current local record set.
func (d *Dashboard) Snapshot() []domain.Registration {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]domain.Registration, len(d.snapshot))
	copy(out, d.snapshot)
	return out
}

// Login authenticates and, on success, performs the initial full snapshot
// read and enters Connected.
func (d *Dashboard) Login(ctx context.Context, username, password string) error {
	d.mu.Lock()
	d.state = StateAuthenticating
	d.mu.Unlock()

	body, err := json.Marshal(map[string]string{"username": username, "password": password})
	if err != nil {
		return err
	}
	resp, err := d.http.Post(d.baseURL+"/admin/login", "application/json", bytes.NewReader(body))
	if err != nil {
		d.Logout()
		return fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		d.Logout()
		return domain.ErrBadCredentials
	}

	var loginResp struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&loginResp); err != nil || loginResp.Token == "" {
		d.Logout()
		return fmt.Errorf("malformed login response")
	}

	d.mu.Lock()
	d.token = loginResp.Token
	d.mu.Unlock()

	if err := d.Refetch(ctx); err != nil {
		d.Logout()
		return err
	}

	d.mu.Lock()
	d.state = StateConnected
	d.mu.Unlock()
	return nil
}

// Resume restores a previously issued token, re-reads the snapshot and
// enters Connected. A rejected token leaves the session Disconnected.
func (d *Dashboard) Resume(ctx context.Context, token string) error {
	d.mu.Lock()
	d.state = StateAuthenticating
	d.token = token
	d.mu.Unlock()

	if err := d.Refetch(ctx); err != nil {
		d.Logout()
		return err
	}

	d.mu.Lock()
	d.state = StateConnected
	d.mu.Unlock()
	return nil
}

// Logout discards the token and local snapshot and disconnects. Safe to
// call in any state.
func (d *Dashboard) Logout() {
	d.mu.Lock()
	d.state = StateDisconnected
	d.token = ""
	d.snapshot = nil
	d.mu.Unlock()
}

// Refetch replaces the entire local snapshot with the server's current
// record set. There is no merge; total replacement keeps the local copy
// from ever diverging from authoritative state.
func (d *Dashboard) Refetch(ctx context.Context) error {
	resp, err := d.get(ctx, "/admin/records")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := d.checkAuth(resp); err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d fetching records", resp.StatusCode)
	}

	var regs []domain.Registration
	if err := json.NewDecoder(resp.Body).Decode(&regs); err != nil {
		return fmt.Errorf("decode records: %w", err)
	}

	d.mu.Lock()
	d.snapshot = regs
	d.mu.Unlock()
	return nil
}

// Run subscribes to the realtime channel and keeps the snapshot in sync
// until ctx is cancelled or the session ends. Transport-level stream drops
// are retried with capped exponential backoff; an auth rejection ends the
// session with ErrSessionExpired.
func (d *Dashboard) Run(ctx context.Context) error {
	if d.State() != StateConnected {
		return ErrNotConnected
	}

	backoff := initialBackoff
	for {
		err := d.stream(ctx)
		switch {
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, ErrSessionExpired):
			d.Logout()
			return ErrSessionExpired
		}

		// Transport drop: re-enter from scratch after a pause, with a
		// fresh snapshot before the new subscription.
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}

		if err := d.Refetch(ctx); err != nil {
			if errors.Is(err, ErrSessionExpired) {
				d.Logout()
				return ErrSessionExpired
			}
			continue
		}
		backoff = initialBackoff
	}
}

// stream opens one SSE subscription and refetches on every change event.
func (d *Dashboard) stream(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"/admin/events", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+d.currentToken())
	req.Header.Set("Accept", "text/event-stream")

	resp, err := d.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrSessionExpired
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from event stream", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "event:") {
			continue
		}
		if strings.TrimSpace(strings.TrimPrefix(line, "event:")) != "change" {
			continue
		}
		if err := d.Refetch(ctx); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return errors.New("event stream closed")
}

// Register submits a client key and returns the server's message.
func (d *Dashboard) Register(ctx context.Context, clientKey string) (string, error) {
	resp, err := d.postJSON(ctx, "/register", map[string]string{"client_key": clientKey}, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	msg, err := decodeMessage(resp)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("register rejected: %s", msg)
	}
	return msg, nil
}

// Validate probes the registration status of a client key.
func (d *Dashboard) Validate(ctx context.Context, clientKey string) (domain.Status, error) {
	resp, err := d.postJSON(ctx, "/validate", map[string]string{"client_key": clientKey}, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	if resp.StatusCode == http.StatusNotFound {
		return "", domain.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d from validate", resp.StatusCode)
	}
	return domain.Status(body.Status), nil
}

// Decide approves or rejects a pending registration.
func (d *Dashboard) Decide(ctx context.Context, id int64, action domain.Action) error {
	resp, err := d.postJSON(ctx, fmt.Sprintf("/admin/decide/%d", id), map[string]string{"action": string(action)}, true)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := d.checkAuth(resp); err != nil {
		return err
	}
	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusBadRequest:
		return domain.ErrInvalidAction
	default:
		return fmt.Errorf("unexpected status %d from decide", resp.StatusCode)
	}
}

// Delete removes a registration.
func (d *Dashboard) Delete(ctx context.Context, id int64) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, fmt.Sprintf("%s/admin/record/%d", d.baseURL, id), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+d.currentToken())

	resp, err := d.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := d.checkAuth(resp); err != nil {
		return err
	}
	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return domain.ErrNotFound
	default:
		return fmt.Errorf("unexpected status %d from delete", resp.StatusCode)
	}
}

func (d *Dashboard) currentToken() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.token
}

// checkAuth turns a mid-session credential rejection into session teardown:
// token and snapshot are gone, re-authentication is required.
func (d *Dashboard) checkAuth(resp *http.Response) error {
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		d.Logout()
		return ErrSessionExpired
	}
	return nil
}

func (d *Dashboard) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+d.currentToken())
	return d.http.Do(req)
}

func (d *Dashboard) postJSON(ctx context.Context, path string, payload any, authed bool) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+d.currentToken())
	}
	return d.http.Do(req)
}

func decodeMessage(resp *http.Response) (string, error) {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	if body.Message != "" {
		return body.Message, nil
	}
	return body.Error, nil
}
