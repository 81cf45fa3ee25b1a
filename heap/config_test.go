package heap

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		want    Size
		wantErr bool
	}{
		{"4096", 4096, false},
		{" 2048 ", 2048, false},
		{"64KB", 64 << 10, false},
		{"1MB", 1 << 20, false},
		{"1.5KB", 1536, false},
		{"64 KB", 64 << 10, false},
		{"1e3", 1000, false},
		{"-1", 0, true},
		{"-1KB", 0, true},
		{"NaN", 0, true},
		{"Inf", 0, true},
		{"1e300", 0, true},
		{"99999999999PB", 0, true},
		{"lots", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseSize(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSize(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseSize(%q) = %d, want %d", tt.in, got.Bytes(), tt.want.Bytes())
		}
	}
}

func TestParseConfig(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		want    Config
		wantErr bool
	}{
		{
			name: "empty",
			yaml: "",
			want: DefaultConfig(),
		},
		{
			name: "all fields",
			yaml: "capacity: 1MB\ngc_threshold: 64KB\nbacking: go\n",
			want: Config{Capacity: 1 << 20, GCThreshold: 64 << 10, Backing: BackingGo},
		},
		{
			name: "plain number",
			yaml: "capacity: 4096\n",
			want: Config{Capacity: 4096, Backing: defaultBacking},
		},
		{
			name:    "unknown field",
			yaml:    "colour: red\n",
			wantErr: true,
		},
		{
			name:    "unknown backing",
			yaml:    "backing: tape\n",
			wantErr: true,
		},
		{
			name:    "bad size",
			yaml:    "capacity: huge\n",
			wantErr: true,
		},
		{
			name:    "threshold not a number",
			yaml:    "gc_threshold: NaN\n",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseConfig([]byte(tt.yaml))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got.Capacity != tt.want.Capacity || got.GCThreshold != tt.want.GCThreshold || got.Backing != tt.want.Backing {
				t.Errorf("ParseConfig() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heap.yaml")
	if err := os.WriteFile(path, []byte("capacity: 256KB\nbacking: go\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	h, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Release()
	if h.Capacity() != 256<<10 {
		t.Errorf("Capacity() = %d, want %d", h.Capacity(), 256<<10)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadConfig of a missing file succeeded")
	}
}
