package nsdk

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig_ProjectConfig(t *testing.T) {
	// Create temp directory
	tempDir := t.TempDir()
	oldWd, _ := os.Getwd()
	os.Chdir(tempDir)
	defer os.Chdir(oldWd)

	// Create netbatch.yaml in project root
	projectConfig := `
baseUrl: http://example.com:3000
timeoutSec: 45
`
	os.WriteFile("netbatch.yaml", []byte(projectConfig), 0644)

	// Load config
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.BaseURL != "http://example.com:3000" {
		t.Errorf("Expected baseUrl http://example.com:3000, got %s", cfg.BaseURL)
	}

	if cfg.Timeout != 45 {
		t.Errorf("Expected timeoutSec 45, got %d", cfg.Timeout)
	}
}

func TestLoadConfig_LocalOverride(t *testing.T) {
	tempDir := t.TempDir()
	oldWd, _ := os.Getwd()
	os.Chdir(tempDir)
	defer os.Chdir(oldWd)

	// Create project config
	projectConfig := `
baseUrl: http://example.com:3000
timeoutSec: 10
`
	os.WriteFile("netbatch.yaml", []byte(projectConfig), 0644)

	// Create local override
	os.MkdirAll(ConfigRoot, 0755)
	localConfig := `
baseUrl: http://localhost:8080
timeoutSec: 20
`
	os.WriteFile(filepath.Join(ConfigRoot, "config.yaml"), []byte(localConfig), 0644)

	// Load config
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	// Local override should win
	if cfg.BaseURL != "http://localhost:8080" {
		t.Errorf("Expected baseUrl http://localhost:8080 (from local override), got %s", cfg.BaseURL)
	}

	if cfg.Timeout != 20 {
		t.Errorf("Expected timeoutSec 20 (from local override), got %d", cfg.Timeout)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	tempDir := t.TempDir()
	oldWd, _ := os.Getwd()
	os.Chdir(tempDir)
	defer os.Chdir(oldWd)

	// No config files - should use defaults
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	// Check defaults
	if cfg.BaseURL != "http://localhost:3000" {
		t.Errorf("Expected default baseUrl http://localhost:3000, got %s", cfg.BaseURL)
	}

	if cfg.Timeout != 30 {
		t.Errorf("Expected default timeoutSec 30, got %d", cfg.Timeout)
	}
}

func TestLoadConfig_ExplicitFile(t *testing.T) {
	tempDir := t.TempDir()
	oldWd, _ := os.Getwd()
	os.Chdir(tempDir)
	defer os.Chdir(oldWd)

	// Create custom config file
	customConfig := `
baseUrl: http://custom.com:9000
timeoutSec: 5
`
	customPath := filepath.Join(tempDir, "custom-config.yaml")
	os.WriteFile(customPath, []byte(customConfig), 0644)

	// Load with explicit file
	cfg, err := LoadConfig(customPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.BaseURL != "http://custom.com:9000" {
		t.Errorf("Expected baseUrl http://custom.com:9000, got %s", cfg.BaseURL)
	}

	if cfg.ConfigFileUsed() != customPath {
		t.Errorf("Expected config file %s, got %s", customPath, cfg.ConfigFileUsed())
	}
}

func TestLoadConfig_ExplicitFileMissing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("Expected error for a missing explicit config file")
	}
}

func TestLoadConfig_TrailingSlashNormalized(t *testing.T) {
	tempDir := t.TempDir()
	oldWd, _ := os.Getwd()
	os.Chdir(tempDir)
	defer os.Chdir(oldWd)

	os.WriteFile("netbatch.yaml", []byte("baseUrl: http://example.com:3000/\n"), 0644)

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.BaseURL != "http://example.com:3000" {
		t.Errorf("Expected trailing slash stripped, got %s", cfg.BaseURL)
	}
}

func TestConfig_Get(t *testing.T) {
	tempDir := t.TempDir()
	oldWd, _ := os.Getwd()
	os.Chdir(tempDir)
	defer os.Chdir(oldWd)

	os.WriteFile("netbatch.yaml", []byte("extraKey: extra-value\n"), 0644)

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if got := cfg.GetString("extraKey"); got != "extra-value" {
		t.Errorf("Expected extra-value, got %s", got)
	}
	if got := fmt.Sprintf("%v", cfg.Get(TimeoutKey)); got != "30" {
		t.Errorf("Expected timeout default via Get, got %s", got)
	}
}
