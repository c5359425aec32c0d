package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/mrsinham/dicomtable/internal/viewer"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Scrape.Root != "." {
		t.Errorf("Root = %q, want %q", cfg.Scrape.Root, ".")
	}
	if cfg.Scrape.Output != "dicom.db" {
		t.Errorf("Output = %q, want %q", cfg.Scrape.Output, "dicom.db")
	}
	if cfg.Scrape.Pattern != "*" {
		t.Errorf("Pattern = %q, want %q", cfg.Scrape.Pattern, "*")
	}
	if !cfg.Scrape.Recursive || !cfg.Scrape.SortSliceLocation || !cfg.Scrape.Coerce {
		t.Errorf("Recursive, SortSliceLocation and Coerce should default to true: %+v", cfg.Scrape)
	}
	if cfg.Viewer.Command != viewer.DefaultCommand {
		t.Errorf("Viewer.Command = %q, want %q", cfg.Viewer.Command, viewer.DefaultCommand)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}
}

func TestLoadFromYAML_ValidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "dicomtable.yaml")

	content := `
scrape:
  root: /data/mri
  output: mri.db
  pattern: "*.dcm"
  recursive: false
  workers: 4
viewer:
  command: "giv --fit"
log:
  verbose: true
  json: true
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadFromYAML(configPath)
	if err != nil {
		t.Fatalf("LoadFromYAML failed: %v", err)
	}

	if cfg.Scrape.Root != "/data/mri" {
		t.Errorf("Expected root /data/mri, got %s", cfg.Scrape.Root)
	}
	if cfg.Scrape.Output != "mri.db" {
		t.Errorf("Expected output mri.db, got %s", cfg.Scrape.Output)
	}
	if cfg.Scrape.Pattern != "*.dcm" {
		t.Errorf("Expected pattern *.dcm, got %s", cfg.Scrape.Pattern)
	}
	if cfg.Scrape.Recursive {
		t.Error("Expected recursive false")
	}
	if cfg.Scrape.Workers != 4 {
		t.Errorf("Expected workers 4, got %d", cfg.Scrape.Workers)
	}
	// Keys absent from the file keep their defaults
	if !cfg.Scrape.Coerce || !cfg.Scrape.SortSliceLocation {
		t.Error("Expected coerce and sort_slice_location to keep their defaults")
	}
	if cfg.Viewer.Command != "giv --fit" {
		t.Errorf("Expected viewer command 'giv --fit', got %s", cfg.Viewer.Command)
	}
	if !cfg.Log.Verbose || !cfg.Log.JSON {
		t.Errorf("Expected verbose JSON logging, got %+v", cfg.Log)
	}

	opts := cfg.ScrapeOptions()
	if opts.Root != "/data/mri" || opts.Workers != 4 || opts.Recursive {
		t.Errorf("ScrapeOptions() = %+v", opts)
	}
	if cfg.Launcher().Command != "giv --fit" {
		t.Errorf("Launcher().Command = %q", cfg.Launcher().Command)
	}
}

func TestLoadFromYAML_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad yaml", "scrape: [", "parse config"},
		{"bad pattern", "scrape:\n  pattern: \"[\"\n", "invalid glob pattern"},
		{"too many workers", "scrape:\n  workers: 1000\n", "workers"},
		{"bad viewer", "viewer:\n  command: \"giv 'open\"\n", "viewer command"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tc.content), 0644); err != nil {
				t.Fatalf("Failed to write test config: %v", err)
			}
			_, err := LoadFromYAML(path)
			if err == nil {
				t.Fatal("LoadFromYAML should fail")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q should contain %q", err, tc.wantErr)
			}
		})
	}
}

func TestLoadFromYAML_MissingFile(t *testing.T) {
	_, err := LoadFromYAML(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Error("LoadFromYAML should fail for a missing file")
	}
}

func TestSaveToYAML_RoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Scrape.Root = "/srv/dicom"
	cfg.Scrape.Workers = 8
	cfg.Scrape.MetricsFile = "/var/lib/node_exporter/dicomtable.prom"
	cfg.Viewer.Command = "weasis"
	cfg.Log.Verbose = true

	path := filepath.Join(t.TempDir(), "saved.yaml")
	if err := SaveToYAML(cfg, path); err != nil {
		t.Fatalf("SaveToYAML failed: %v", err)
	}

	loaded, err := LoadFromYAML(path)
	if err != nil {
		t.Fatalf("LoadFromYAML failed: %v", err)
	}
	if !reflect.DeepEqual(cfg, loaded) {
		t.Errorf("round trip mismatch:\n got  %+v\n want %+v", loaded, cfg)
	}
}
