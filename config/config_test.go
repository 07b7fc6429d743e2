package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/vegasq/ledgerql/output"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Format != "text" || cfg.Precision != -1 || cfg.Null != "" || cfg.Workers != 1 || cfg.PlanCacheSize != 128 {
		t.Errorf("Default() = %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() error = %v", err)
	}
	if got := cfg.Options(); got != output.DefaultOptions() {
		t.Errorf("Options() = %+v, want %+v", got, output.DefaultOptions())
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		data string
		want *Config
	}{
		{
			name: "empty document keeps defaults",
			data: "",
			want: Default(),
		},
		{
			name: "partial override",
			data: "format: csv\nnull: '-'\n",
			want: &Config{Format: "csv", Precision: -1, Null: "-", Workers: 1, PlanCacheSize: 128, Sources: map[string]string{}},
		},
		{
			name: "everything",
			data: "format: table\nprecision: 2\nworkers: 4\nplan_cache_size: 0\nsources:\n  main: /data/books.parquet\n",
			want: &Config{Format: "table", Precision: 2, Workers: 4, PlanCacheSize: 0, Sources: map[string]string{"main": "/data/books.parquet"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse([]byte(tt.data))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{"unknown format", "format: xml\n", output.ErrUnsupportedFormat},
		{"precision too large", "precision: 99\n", nil},
		{"zero workers", "workers: 0\n", ErrInvalidConfig},
		{"negative cache", "plan_cache_size: -1\n", ErrInvalidConfig},
		{"empty source", "sources:\n  main: ''\n", ErrInvalidConfig},
		{"unknown key", "colour: red\n", nil},
		{"malformed", "format: [\n", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if err == nil {
				t.Fatal("Parse() succeeded")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Parse() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	_, err := Parse([]byte("precision: 99\n"))
	var ce *output.ConfigurationError
	if !errors.As(err, &ce) || ce.Option != "precision" {
		t.Errorf("Parse() error = %v, want a precision ConfigurationError", err)
	}
}

func TestLoad(t *testing.T) {
	cfg, err := Load("")
	if err != nil || !reflect.DeepEqual(cfg, Default()) {
		t.Errorf("Load(\"\") = %+v, %v; want defaults", cfg, err)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "ledgerql.yaml")
	data := "format: json\nsources:\n  main: books/2024.parquet\n  abs: /srv/books.db\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Format != "json" {
		t.Errorf("Format = %q, want json", cfg.Format)
	}
	if want := filepath.Join(dir, "books", "2024.parquet"); cfg.Sources["main"] != want {
		t.Errorf("Sources[main] = %q, want %q", cfg.Sources["main"], want)
	}
	if cfg.Sources["abs"] != "/srv/books.db" {
		t.Errorf("Sources[abs] = %q, want it unchanged", cfg.Sources["abs"])
	}
	if got := cfg.SourceNames(); !reflect.DeepEqual(got, []string{"abs", "main"}) {
		t.Errorf("SourceNames() = %v", got)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("Load() of a missing file succeeded")
	}
}
