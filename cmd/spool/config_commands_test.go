package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"spool/internal/testsupport"
)

func TestConfigInitCommand(t *testing.T) {
	tmp := t.TempDir()
	target := filepath.Join(tmp, "config.toml")
	socket := filepath.Join(tmp, "spool.sock")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, socket, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration to "+target)
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, socket, ""); err == nil {
		t.Fatal("expected init over an existing file to fail")
	}

	out, _, err = runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, socket, "")
	if err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
}

func TestConfigShowRedactsSecrets(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Aria2.Secret = "rpc-secret"
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	out, _, err := runCLI(t, []string{"config", "show"}, cfg.Paths.Socket, configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "[telegram]")
	requireContains(t, out, "REDACTED")
	if strings.Contains(out, "test-token") {
		t.Fatalf("expected token to be redacted:\n%s", out)
	}
	if strings.Contains(out, "rpc-secret") {
		t.Fatalf("expected rpc secret to be redacted:\n%s", out)
	}
}

func TestConfigPathCommand(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	out, _, err := runCLI(t, []string{"config", "path"}, cfg.Paths.Socket, configPath)
	if err != nil {
		t.Fatalf("config path: %v", err)
	}
	requireContains(t, out, configPath)
	if strings.Contains(out, "does not exist") {
		t.Fatalf("unexpected missing-file note:\n%s", out)
	}

	missing := filepath.Join(t.TempDir(), "absent.toml")
	out, _, err = runCLI(t, []string{"config", "path"}, cfg.Paths.Socket, missing)
	if err != nil {
		t.Fatalf("config path missing: %v", err)
	}
	requireContains(t, out, missing)
	requireContains(t, out, "does not exist yet")
}
