package config

import (
	"os"
	"path/filepath"
	"testing"
)

type testConfig struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Database struct {
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
	} `yaml:"database"`
}

func TestLoadWithEnv_FileAndOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := "server:\n  addr: \":9090\"\ndatabase:\n  driver: sqlite3\n  dsn: app.db\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	t.Setenv("TESTAPP_DATABASE_DSN", "override.db")

	var cfg testConfig
	if err := LoadWithEnv(path, "TESTAPP", &cfg); err != nil {
		t.Fatalf("LoadWithEnv() error = %v", err)
	}

	if cfg.Server.Addr != ":9090" {
		t.Errorf("Server.Addr = %v, want :9090", cfg.Server.Addr)
	}
	if cfg.Database.Driver != "sqlite3" {
		t.Errorf("Database.Driver = %v, want sqlite3", cfg.Database.Driver)
	}
	if cfg.Database.DSN != "override.db" {
		t.Errorf("Database.DSN = %v, env override should win, got %v", "override.db", cfg.Database.DSN)
	}
}

func TestLoadWithEnv_MissingFileIsNotAnError(t *testing.T) {
	t.Setenv("TESTAPP_SERVER_ADDR", ":8081")

	var cfg testConfig
	if err := LoadWithEnv(filepath.Join(t.TempDir(), "absent.yaml"), "TESTAPP", &cfg); err != nil {
		t.Fatalf("LoadWithEnv() error = %v", err)
	}
	if cfg.Server.Addr != ":8081" {
		t.Errorf("Server.Addr = %v, want :8081", cfg.Server.Addr)
	}
}

func TestValidate_RequiredFields(t *testing.T) {
	var cfg testConfig
	if err := Validate(&cfg, RequiredFields("Server.Addr")); err == nil {
		t.Error("Validate() should fail on an empty required field")
	}

	cfg.Server.Addr = ":8080"
	if err := Validate(&cfg, RequiredFields("Server.Addr")); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestValidate_OneOf(t *testing.T) {
	var cfg testConfig
	cfg.Database.Driver = "mysql"
	if err := Validate(&cfg, OneOf("Database.Driver", "sqlite3", "postgres")); err == nil {
		t.Error("Validate() should reject a driver outside the allowed set")
	}

	cfg.Database.Driver = "postgres"
	if err := Validate(&cfg, OneOf("Database.Driver", "sqlite3", "postgres")); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}
