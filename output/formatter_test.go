package output

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		name    string
		format  string
		opts    Options
		wantErr error
		option  string
	}{
		{name: "text", format: "text", opts: DefaultOptions()},
		{name: "case insensitive", format: " CSV ", opts: DefaultOptions()},
		{name: "fixed precision", format: "json", opts: Options{Precision: 2}},
		{name: "unknown format", format: "xml", opts: DefaultOptions(), wantErr: ErrUnsupportedFormat, option: "format"},
		{name: "empty format", format: "", opts: DefaultOptions(), wantErr: ErrUnsupportedFormat, option: "format"},
		{name: "precision too large", format: "text", opts: Options{Precision: MaxPrecision + 1}, option: "precision"},
		{name: "null with newline", format: "csv", opts: Options{Precision: -1, Null: "a\nb"}, option: "null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewFormatter(tt.format, &bytes.Buffer{}, tt.opts)
			if tt.option == "" {
				if err != nil {
					t.Fatalf("NewFormatter() error = %v", err)
				}
				if f == nil {
					t.Fatal("NewFormatter() returned nil formatter")
				}
				return
			}

			var ce *ConfigurationError
			if !errors.As(err, &ce) {
				t.Fatalf("NewFormatter() error = %v, want *ConfigurationError", err)
			}
			if ce.Option != tt.option {
				t.Errorf("Option = %q, want %q", ce.Option, tt.option)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestFormats(t *testing.T) {
	got := strings.Join(Formats(), ",")
	if got != "csv,json,jsonl,table,text,tsv" {
		t.Errorf("Formats() = %s", got)
	}
}

func TestRender_ConfigurationErrorWritesNothing(t *testing.T) {
	var buf bytes.Buffer
	err := Render(sampleResult(), "yaml", &buf, DefaultOptions())
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("Render() error = %v, want ErrUnsupportedFormat", err)
	}
	if buf.Len() != 0 {
		t.Errorf("Render() wrote %q before failing", buf.String())
	}
}

func TestSetOutput(t *testing.T) {
	for _, format := range Formats() {
		var first, second bytes.Buffer
		f, err := NewFormatter(format, &first, DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		f.SetOutput(&second)
		if err := f.Format(sampleResult()); err != nil {
			t.Fatalf("%s: Format() error = %v", format, err)
		}
		if first.Len() != 0 || second.Len() == 0 {
			t.Errorf("%s: output went to the wrong writer", format)
		}
	}
}
