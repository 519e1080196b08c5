package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/snapview/snapview/internal/render"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeFrames implements FrameSource with fixed bytes or a fixed error.
type fakeFrames struct {
	data []byte
	err  error
}

func (f *fakeFrames) Snapshot() ([]byte, error) {
	return f.data, f.err
}

// fakeLifecycle implements Lifecycle with plain guarded flags.
type fakeLifecycle struct {
	mu      sync.Mutex
	ready   bool
	stopped bool
}

func (l *fakeLifecycle) arm() {
	l.mu.Lock()
	l.ready = true
	l.mu.Unlock()
}

func (l *fakeLifecycle) ReadyToStop() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ready
}

func (l *fakeLifecycle) MarkStopped() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.ready || l.stopped {
		return false
	}
	l.stopped = true
	return true
}

func (l *fakeLifecycle) Stopped() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stopped
}

func testTemplate(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "viewer.html")
	content := `<title>_TITLE_</title><body data-delay="_DELAY_SECS_">` +
		`_NAME_ _WIDTH_x_HEIGHT_ <img src="_IMAGE_FNAME_"></body>`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}
	return path
}

func newTestServer(t *testing.T, frames FrameSource, lc Lifecycle) *Server {
	t.Helper()
	return New(frames, render.New(testTemplate(t), nil), lc, Config{
		Host:             "127.0.0.1",
		Port:             0,
		CameraName:       "testcam",
		Width:            100,
		Height:           50,
		DefaultDelaySecs: 1,
	}, testLogger())
}

// --- Handler tests ---

func TestHandleIndex_RedirectsWithDefaultDelay(t *testing.T) {
	srv := newTestServer(t, &fakeFrames{}, &fakeLifecycle{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("GET / status = %d, want %d", rec.Code, http.StatusFound)
	}
	if got, want := rec.Header().Get("Location"), "/image?delay=1"; got != want {
		t.Errorf("GET / Location = %q, want %q", got, want)
	}
}

func TestHandleViewer_DelayOverrides(t *testing.T) {
	tests := []struct {
		name   string
		target string
		want   string
	}{
		{"default delay", "/image", `data-delay="1"`},
		{"query override", "/image?delay=2.5", `data-delay="2.5"`},
		{"path override", "/image/2.5", `data-delay="2.5"`},
		{"path overrides regardless of default", "/image/0.25", `data-delay="0.25"`},
		{"unparseable falls back to default", "/image?delay=soon", `data-delay="1"`},
	}

	srv := newTestServer(t, &fakeFrames{}, &fakeLifecycle{})
	handler := srv.routes()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("GET %s status = %d, want 200", tt.target, rec.Code)
			}
			body := rec.Body.String()
			if !strings.Contains(body, tt.want) {
				t.Errorf("GET %s body missing %q:\n%s", tt.target, tt.want, body)
			}
		})
	}
}

func TestHandleViewer_RendersPageValues(t *testing.T) {
	srv := newTestServer(t, &fakeFrames{}, &fakeLifecycle{})

	req := httptest.NewRequest(http.MethodGet, "/image", nil)
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, req)

	body := rec.Body.String()
	for _, want := range []string{"testcam camera", "testcam 100x50", `src="/image.jpg"`} {
		if !strings.Contains(body, want) {
			t.Errorf("viewer body missing %q:\n%s", want, body)
		}
	}
}

func TestHandleViewer_TemplateFailure(t *testing.T) {
	oldPause := templateFailurePause
	templateFailurePause = 0
	defer func() { templateFailurePause = oldPause }()

	srv := New(&fakeFrames{}, render.New(filepath.Join(t.TempDir(), "missing.html"), nil),
		&fakeLifecycle{}, Config{CameraName: "testcam", DefaultDelaySecs: 1}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/image", nil)
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("GET /image with missing template status = %d, want 500", rec.Code)
	}
}

func TestHandleSnapshot_ServesBytesWithNoCacheHeaders(t *testing.T) {
	jpegBytes := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10}
	srv := newTestServer(t, &fakeFrames{data: jpegBytes}, &fakeLifecycle{})

	req := httptest.NewRequest(http.MethodGet, ImagePath, nil)
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("GET %s status = %d, want 200", ImagePath, rec.Code)
	}
	if got := rec.Body.Bytes(); string(got) != string(jpegBytes) {
		t.Errorf("GET %s body = %v, want %v", ImagePath, got, jpegBytes)
	}

	headers := map[string]string{
		"Content-Type":  "image/jpeg",
		"Cache-Control": "no-cache, no-store, must-revalidate",
		"Pragma":        "no-cache",
	}
	for k, want := range headers {
		if got := rec.Header().Get(k); got != want {
			t.Errorf("GET %s header %s = %q, want %q", ImagePath, k, got, want)
		}
	}
}

func TestHandleSnapshot_EncodeErrorReturns500(t *testing.T) {
	srv := newTestServer(t, &fakeFrames{err: errors.New("codec exploded")}, &fakeLifecycle{})

	req := httptest.NewRequest(http.MethodGet, ImagePath, nil)
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("GET %s with encoder failure status = %d, want 500", ImagePath, rec.Code)
	}
}

func TestHandleShutdown_NotArmed(t *testing.T) {
	lc := &fakeLifecycle{}
	srv := newTestServer(t, &fakeFrames{}, lc)

	req := httptest.NewRequest(http.MethodPost, ShutdownPath, nil)
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, req)

	if got := rec.Body.String(); got != "Not ready to stop" {
		t.Errorf("unarmed shutdown body = %q, want %q", got, "Not ready to stop")
	}
	if lc.Stopped() {
		t.Error("unarmed shutdown POST finalized the stop")
	}
}

func TestHandleShutdown_Armed(t *testing.T) {
	lc := &fakeLifecycle{}
	lc.arm()
	srv := newTestServer(t, &fakeFrames{}, lc)

	req := httptest.NewRequest(http.MethodPost, ShutdownPath, nil)
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, req)

	if got := rec.Body.String(); got != "Shutting down..." {
		t.Errorf("armed shutdown body = %q, want %q", got, "Shutting down...")
	}
	if !lc.Stopped() {
		t.Error("armed shutdown POST did not finalize the stop")
	}
}

func TestHandleShutdown_GetRejected(t *testing.T) {
	lc := &fakeLifecycle{}
	lc.arm()
	srv := newTestServer(t, &fakeFrames{}, lc)

	req := httptest.NewRequest(http.MethodGet, ShutdownPath, nil)
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET %s status = %d, want 405", ShutdownPath, rec.Code)
	}
	if lc.Stopped() {
		t.Error("GET to shutdown path finalized the stop")
	}
}

// --- Serve loop tests ---

// waitForAddr polls until the server has a bound listener or the deadline passes.
func waitForAddr(t *testing.T, srv *Server, timeout time.Duration) string {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if addr := srv.Addr(); addr != "" {
			return addr
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("server never bound a listener")
	return ""
}

func TestRun_ServesUntilShutdownHandshake(t *testing.T) {
	lc := &fakeLifecycle{}
	srv := newTestServer(t, &fakeFrames{data: []byte("jpeg")}, lc)

	done := make(chan struct{})
	go func() {
		srv.Run()
		close(done)
	}()

	addr := waitForAddr(t, srv, 2*time.Second)
	base := "http://" + addr

	resp, err := http.Get(base + ImagePath)
	if err != nil {
		t.Fatalf("GET %s: %v", ImagePath, err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "jpeg" {
		t.Errorf("snapshot body = %q, want %q", body, "jpeg")
	}

	// unarmed POST must not take the listener down
	resp, err = http.Post(base+ShutdownPath, "", nil)
	if err != nil {
		t.Fatalf("unarmed POST: %v", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	select {
	case <-done:
		t.Fatal("serve loop exited after unarmed shutdown POST")
	case <-time.After(100 * time.Millisecond):
	}

	// armed POST runs the real handshake
	lc.arm()
	resp, err = http.Post(base+ShutdownPath, "", nil)
	if err != nil {
		t.Fatalf("armed POST: %v", err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "Shutting down..." {
		t.Errorf("armed shutdown body = %q", body)
	}

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("serve loop did not exit after armed shutdown")
	}
	if !lc.Stopped() {
		t.Error("lifecycle not stopped after handshake")
	}
}

func TestRun_RestartsAfterBindFailure(t *testing.T) {
	lc := &fakeLifecycle{}
	srv := newTestServer(t, &fakeFrames{data: []byte("jpeg")}, lc)

	var mu sync.Mutex
	failures := 1
	srv.listen = func(network, address string) (net.Listener, error) {
		mu.Lock()
		defer mu.Unlock()
		if failures > 0 {
			failures--
			return nil, fmt.Errorf("injected bind failure")
		}
		return net.Listen(network, address)
	}

	done := make(chan struct{})
	go func() {
		srv.Run()
		close(done)
	}()

	// first attempt fails; within one backoff interval the listener must be up
	addr := waitForAddr(t, srv, restartBackoff+2*time.Second)

	resp, err := http.Get("http://" + addr + ImagePath)
	if err != nil {
		t.Fatalf("GET after restart: %v", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET after restart status = %d, want 200", resp.StatusCode)
	}

	lc.arm()
	resp, err = http.Post("http://"+addr+ShutdownPath, "", nil)
	if err != nil {
		t.Fatalf("shutdown POST: %v", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("serve loop did not exit after shutdown")
	}
}

func TestRun_RestartsAfterListenerCrash(t *testing.T) {
	lc := &fakeLifecycle{}
	srv := newTestServer(t, &fakeFrames{data: []byte("jpeg")}, lc)

	listeners := make(chan net.Listener, 2)
	srv.listen = func(network, address string) (net.Listener, error) {
		ln, err := net.Listen(network, address)
		if err == nil {
			listeners <- ln
		}
		return ln, err
	}

	done := make(chan struct{})
	go func() {
		srv.Run()
		close(done)
	}()

	waitForAddr(t, srv, 2*time.Second)

	// kill the listener out from under Serve; the loop must treat it as a
	// transient fault and rebind
	ln := <-listeners
	ln.Close()

	var second string
	select {
	case reborn := <-listeners:
		second = reborn.Addr().String()
	case <-time.After(restartBackoff + 2*time.Second):
		t.Fatal("listener did not come back after crash")
	}

	resp, err := http.Get("http://" + second + ImagePath)
	if err != nil {
		t.Fatalf("GET after crash restart: %v", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET after crash restart status = %d, want 200", resp.StatusCode)
	}

	lc.arm()
	resp, err = http.Post("http://"+second+ShutdownPath, "", nil)
	if err != nil {
		t.Fatalf("shutdown POST: %v", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("serve loop did not exit after shutdown")
	}
}
