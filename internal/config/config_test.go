package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("/src/demo")

	if cfg.Version != 1 {
		t.Errorf("Version = %d, want 1", cfg.Version)
	}
	if cfg.ProjectRoot != "/src/demo" {
		t.Errorf("ProjectRoot = %q, want %q", cfg.ProjectRoot, "/src/demo")
	}

	wantExts := []string{".c", ".h", ".cpp", ".hpp", ".cc", ".cxx"}
	if !reflect.DeepEqual(cfg.Scan.Extensions, wantExts) {
		t.Errorf("Scan.Extensions = %v, want %v", cfg.Scan.Extensions, wantExts)
	}
	if !cfg.Scan.SkipUnchanged {
		t.Error("SkipUnchanged should default to true")
	}

	found := false
	for _, dir := range cfg.Scan.IgnoreDirs {
		if dir == ".git" {
			found = true
		}
	}
	if !found {
		t.Error("IgnoreDirs should include .git")
	}

	if cfg.Analysis.HotspotTopN != 10 {
		t.Errorf("HotspotTopN = %d, want 10", cfg.Analysis.HotspotTopN)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "human" {
		t.Errorf("Logging defaults = %q/%q, want info/human", cfg.Logging.Level, cfg.Logging.Format)
	}
}

func TestLoadWithoutConfigFileUsesDefaults(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ProjectRoot != tmpDir {
		t.Errorf("ProjectRoot = %q, want %q", cfg.ProjectRoot, tmpDir)
	}
	if !cfg.Scan.SkipUnchanged {
		t.Error("SkipUnchanged should default to true")
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := DefaultConfig(tmpDir)
	cfg.Scan.Extensions = []string{".c", ".h"}
	cfg.Scan.SkipUnchanged = false
	cfg.Analysis.HotspotTopN = 25
	cfg.Logging.Level = "debug"

	if err := cfg.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, ConfigDirName, "config.json")); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	loaded, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(loaded.Scan.Extensions, []string{".c", ".h"}) {
		t.Errorf("Extensions = %v, want [.c .h]", loaded.Scan.Extensions)
	}
	if loaded.Scan.SkipUnchanged {
		t.Error("SkipUnchanged should survive the round trip as false")
	}
	if loaded.Analysis.HotspotTopN != 25 {
		t.Errorf("HotspotTopN = %d, want 25", loaded.Analysis.HotspotTopN)
	}
	if loaded.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", loaded.Logging.Level)
	}
}

func TestEnvironmentOverride(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("CGRAPH_LOGGING_LEVEL", "debug")

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want environment override to win", cfg.Logging.Level)
	}
}

func TestLoadMacrosMissingFile(t *testing.T) {
	macros, err := LoadMacros(t.TempDir())
	if err != nil {
		t.Fatalf("LoadMacros() error = %v", err)
	}
	if len(macros) != 0 {
		t.Errorf("expected empty macro set, got %v", macros)
	}
}

func TestMacrosRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()

	in := Macros{
		"DEBUG":         "1",
		"USE_FEATURE_X": "",
	}
	if err := SaveMacros(tmpDir, in); err != nil {
		t.Fatalf("SaveMacros() error = %v", err)
	}

	out, err := LoadMacros(tmpDir)
	if err != nil {
		t.Fatalf("LoadMacros() error = %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Errorf("round trip mismatch: got %v, want %v", out, in)
	}
}

func TestLoadMacrosMalformed(t *testing.T) {
	tmpDir := t.TempDir()
	dir := filepath.Join(tmpDir, ConfigDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, MacroFile), []byte("not [valid toml"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadMacros(tmpDir); err == nil {
		t.Error("expected error for malformed macros.toml")
	}
}

func TestMacrosCompilerArgs(t *testing.T) {
	m := Macros{
		"ZETA":  "2",
		"ALPHA": "1",
		"FLAG":  "",
	}

	want := []string{"-DALPHA=1", "-DFLAG", "-DZETA=2"}
	if got := m.CompilerArgs(); !reflect.DeepEqual(got, want) {
		t.Errorf("CompilerArgs() = %v, want %v", got, want)
	}
}
