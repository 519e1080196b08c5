package config

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("camera_name: before\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	got := make(chan *Config, 1)
	go func() {
		_ = Watch(ctx, path, logger, func(cfg *Config) {
			select {
			case got <- cfg:
			default:
			}
		})
	}()

	// give the watcher a moment to arm before the write
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("camera_name: after\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case cfg := <-got:
		if cfg.CameraName != "after" {
			t.Errorf("reloaded CameraName = %q, want after", cfg.CameraName)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no reload observed after config write")
	}
}

func TestWatch_KeepsPreviousOnInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("camera_name: before\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	got := make(chan *Config, 2)
	go func() {
		_ = Watch(ctx, path, logger, func(cfg *Config) {
			got <- cfg
		})
	}()

	time.Sleep(100 * time.Millisecond)

	// an invalid write must not reach onChange
	if err := os.WriteFile(path, []byte("refresh_delay: fast\n"), 0o644); err != nil {
		t.Fatalf("write invalid config: %v", err)
	}
	time.Sleep(200 * time.Millisecond)

	if err := os.WriteFile(path, []byte("camera_name: recovered\n"), 0o644); err != nil {
		t.Fatalf("write valid config: %v", err)
	}

	select {
	case cfg := <-got:
		if cfg.CameraName != "recovered" {
			t.Errorf("first delivered config = %q, want recovered (invalid config must be skipped)", cfg.CameraName)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no reload observed after recovery write")
	}
}
