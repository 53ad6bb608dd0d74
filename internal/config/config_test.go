package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("MYSQL_DB", "shop")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.BatchLines != 3000 {
		t.Errorf("BatchLines = %d, want 3000", cfg.BatchLines)
	}
	if cfg.BatchTime != 25*time.Second {
		t.Errorf("BatchTime = %v, want 25s", cfg.BatchTime)
	}
	if cfg.ReadBufferBytes != 40960 {
		t.Errorf("ReadBufferBytes = %d, want 40960", cfg.ReadBufferBytes)
	}
	if cfg.TruncatedStatements != "report" {
		t.Errorf("TruncatedStatements = %q, want report", cfg.TruncatedStatements)
	}
	if cfg.LogDir != cfg.ImportDir {
		t.Errorf("LogDir = %q, want ImportDir %q", cfg.LogDir, cfg.ImportDir)
	}
	if !cfg.CollectTableStats {
		t.Error("CollectTableStats should default to true")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("MYSQL_DB", "shop")
	t.Setenv("BATCH_LINES", "500")
	t.Setenv("BATCH_TIME_SECONDS", "10")
	t.Setenv("NON_FATAL_CODES", "1146; 1091")
	t.Setenv("TRUNCATED_STATEMENTS", "SILENT")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.BatchLines != 500 {
		t.Errorf("BatchLines = %d, want 500", cfg.BatchLines)
	}
	if cfg.BatchTime != 10*time.Second {
		t.Errorf("BatchTime = %v, want 10s", cfg.BatchTime)
	}
	if len(cfg.ExtraNonFatalCodes) != 2 || cfg.ExtraNonFatalCodes[0] != 1146 || cfg.ExtraNonFatalCodes[1] != 1091 {
		t.Errorf("ExtraNonFatalCodes = %v, want [1146 1091]", cfg.ExtraNonFatalCodes)
	}
	if cfg.TruncatedStatements != "silent" {
		t.Errorf("TruncatedStatements = %q, want silent", cfg.TruncatedStatements)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing database", env: map[string]string{}},
		{name: "bad code list", env: map[string]string{"MYSQL_DB": "shop", "NON_FATAL_CODES": "abc"}},
		{name: "zero line budget", env: map[string]string{"MYSQL_DB": "shop", "BATCH_LINES": "0"}},
		{name: "unknown truncated policy", env: map[string]string{"MYSQL_DB": "shop", "TRUNCATED_STATEMENTS": "execute"}},
		{name: "sample ratio above one", env: map[string]string{"MYSQL_DB": "shop", "TRACING_SAMPLE_RATIO": "1.5"}},
		{name: "mirror without database", env: map[string]string{"MYSQL_DB": "shop", "PROGRESS_MIRROR": "true", "CLICKHOUSE_PORT": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("MYSQL_DB", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Error("Load() expected error")
			}
		})
	}
}

func TestLoadPolicy(t *testing.T) {
	t.Run("empty path gives defaults", func(t *testing.T) {
		p, err := LoadPolicy("")
		if err != nil {
			t.Fatalf("LoadPolicy() error = %v", err)
		}
		if len(p.Codes()) != len(DefaultNonFatalCodes()) {
			t.Errorf("Codes() = %v", p.Codes())
		}
		if p.Collations["utf8mb4_0900_ai_ci"] != "utf8mb4_unicode_ci" {
			t.Errorf("default collation table missing utf8mb4_0900_ai_ci")
		}
	})

	t.Run("file overrides codes and keeps default collations", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "policy.yaml")
		content := "non_fatal_codes:\n  - code: 1062\n    name: ER_DUP_ENTRY\n  - code: 1146\n    name: ER_NO_SUCH_TABLE\n"
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		p, err := LoadPolicy(path)
		if err != nil {
			t.Fatalf("LoadPolicy() error = %v", err)
		}
		codes := p.Codes(1091)
		if len(codes) != 3 || codes[0] != 1062 || codes[1] != 1146 || codes[2] != 1091 {
			t.Errorf("Codes() = %v, want [1062 1146 1091]", codes)
		}
		if len(p.Collations) != len(DefaultPolicy().Collations) {
			t.Errorf("Collations = %v, want defaults", p.Collations)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadPolicy(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Error("expected error")
		}
	})
}
