package config

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope"))
	if err != nil || cfg != nil {
		t.Fatalf("expected (nil, nil), got (%v, %v)", cfg, err)
	}
}

func TestSaveLoadResolve(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config")
	cfg := &Config{}
	if err := cfg.SetContext("stanford", &Context{Server: "moss.stanford.edu", Port: 7690, UserID: "42"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := cfg.SetContext("local", &Context{Server: "127.0.0.1", Language: "java"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if cfg.CurrentContext != "stanford" {
		t.Fatalf("first context should become current, got %q", cfg.CurrentContext)
	}
	if err := cfg.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	ctx, name, err := loaded.Resolve("")
	if err != nil || name != "stanford" || ctx.UserID != "42" {
		t.Fatalf("resolve current: %+v %q %v", ctx, name, err)
	}
	ctx, _, err = loaded.Resolve("local")
	if err != nil || ctx.Language != "java" {
		t.Fatalf("resolve local: %+v %v", ctx, err)
	}
	if _, _, err := loaded.Resolve("other"); !errors.Is(err, ErrContextNotFound) {
		t.Fatalf("expected ErrContextNotFound, got %v", err)
	}
	if err := loaded.Use("missing"); !errors.Is(err, ErrContextNotFound) {
		t.Fatalf("expected ErrContextNotFound, got %v", err)
	}
	if err := loaded.Use("local"); err != nil || loaded.CurrentContext != "local" {
		t.Fatalf("use local: %v", err)
	}
	if names := loaded.Names(); len(names) != 2 || names[0] != "local" {
		t.Fatalf("unexpected names %v", names)
	}
}

func TestDefaultPathsHonorHome(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MOSSCTL_HOME", dir)
	if DefaultConfigPath() != filepath.Join(dir, "config") {
		t.Fatalf("unexpected config path %q", DefaultConfigPath())
	}
	if DefaultHistoryDir() != filepath.Join(dir, "history") {
		t.Fatalf("unexpected history dir %q", DefaultHistoryDir())
	}
}
