package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
device:
  transport: serial
  endpoint: /dev/ttyACM0
hub:
  product: "com.gmail.tabb99:test"
  serial_number: burton_158
upload:
  period_minutes: 5
  compression: lz4
clock:
  correct_host: true
api:
  port: 8081
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Device.Endpoint != "/dev/ttyACM0" {
		t.Errorf("Device.Endpoint = %q, want /dev/ttyACM0", cfg.Device.Endpoint)
	}
	if cfg.Hub.SerialNumber != "burton_158" {
		t.Errorf("Hub.SerialNumber = %q, want burton_158", cfg.Hub.SerialNumber)
	}
	if cfg.UploadPeriod() != 5*time.Minute {
		t.Errorf("UploadPeriod() = %v, want 5m", cfg.UploadPeriod())
	}
	if !cfg.Clock.CorrectHost {
		t.Error("Clock.CorrectHost = false, want true")
	}
	if cfg.API.Port != 8081 {
		t.Errorf("API.Port = %d, want 8081", cfg.API.Port)
	}
	// Untouched sections keep defaults.
	if cfg.Device.BaudRate != 9600 || cfg.Hub.Mode != "continuous" || cfg.API.IngestPath != "/minimon" {
		t.Errorf("defaults not applied: %+v %+v %+v", cfg.Device, cfg.Hub, cfg.API)
	}
	if !cfg.Upload.RequeueOnFailure {
		t.Error("Upload.RequeueOnFailure default should be true")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("NOTECARD_PRODUCT", "com.example:relay")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.UploadPeriod() != 30*time.Second {
		t.Errorf("UploadPeriod() = %v, want 30s", cfg.UploadPeriod())
	}
	if cfg.PollInterval() != 2*time.Second || cfg.RetryBackoff() != 3*time.Second {
		t.Errorf("PollInterval/RetryBackoff = %v/%v, want 2s/3s", cfg.PollInterval(), cfg.RetryBackoff())
	}
	if cfg.DriftThreshold() != 10*time.Second {
		t.Errorf("DriftThreshold() = %v, want 10s", cfg.DriftThreshold())
	}
	if cfg.MQTT.Enabled || cfg.InfluxDB.Enabled || cfg.Database.Enabled {
		t.Error("optional integrations should be disabled by default")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/config.yaml"); err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "invalid: [yaml: content")
	if _, err := Load(path); err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	path := writeConfig(t, `
device:
  transport: spi
upload:
  period_minutes: 0
  compression: gzip
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() expected validation error, got nil")
	}
	for _, want := range []string{"hub.product", "device.transport", "upload.period_minutes", "upload.compression"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("NOTECARD_PRODUCT", "com.example:env")
	t.Setenv("NOTECARD_SERIAL_NUMBER", "sn-env")
	t.Setenv("NOTECARD_ENDPOINT", "/dev/ttyS1")
	t.Setenv("NOTECARD_UPLOAD_PERIOD", "2.5")
	t.Setenv("NOTECARD_CORRECT_CLOCK", "true")
	t.Setenv("NOTECARD_API_PORT", "9000")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Hub.Product != "com.example:env" || cfg.Hub.SerialNumber != "sn-env" {
		t.Errorf("hub = %+v", cfg.Hub)
	}
	if cfg.Device.Endpoint != "/dev/ttyS1" {
		t.Errorf("Device.Endpoint = %q", cfg.Device.Endpoint)
	}
	if cfg.UploadPeriod() != 150*time.Second {
		t.Errorf("UploadPeriod() = %v, want 2m30s", cfg.UploadPeriod())
	}
	if !cfg.Clock.CorrectHost {
		t.Error("NOTECARD_CORRECT_CLOCK not applied")
	}
	if cfg.API.Port != 9000 {
		t.Errorf("API.Port = %d, want 9000", cfg.API.Port)
	}
}

func TestEnvOverrides_Invalid(t *testing.T) {
	t.Setenv("NOTECARD_PRODUCT", "p")
	t.Setenv("NOTECARD_UPLOAD_PERIOD", "soon")
	t.Setenv("NOTECARD_API_PORT", "http")

	_, err := Load("")
	if err == nil {
		t.Fatal("Load() expected error for invalid env values")
	}
	if !strings.Contains(err.Error(), "NOTECARD_UPLOAD_PERIOD") || !strings.Contains(err.Error(), "NOTECARD_API_PORT") {
		t.Errorf("error %q should name both variables", err)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("NOTECARD_TEST_DOTENV=from-file\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("NOTECARD_TEST_DOTENV", "")
	os.Unsetenv("NOTECARD_TEST_DOTENV")

	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), envFile); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}
	if got := os.Getenv("NOTECARD_TEST_DOTENV"); got != "from-file" {
		t.Errorf("NOTECARD_TEST_DOTENV = %q, want from-file", got)
	}
}

func TestValidate_OptionalSections(t *testing.T) {
	cfg := defaultConfig()
	cfg.Hub.Product = "p"
	cfg.InfluxDB.Enabled = true
	cfg.MQTT.Enabled = true
	cfg.MQTT.Broker.Host = ""
	cfg.Database.Enabled = true
	cfg.Database.Path = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error")
	}
	for _, want := range []string{"influxdb.url", "mqtt.broker.host", "database.path"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}
