package nart

import (
	"testing"
	"time"
)

func TestCommandIdentifier(t *testing.T) {
	if got := CommandIdentifier("display interface brief"); got != "display_interface_brief" {
		t.Errorf("Expected display_interface_brief, got %s", got)
	}
	if got := CommandIdentifier("  show   version  "); got != "show_version" {
		t.Errorf("Expected show_version, got %s", got)
	}
}

func TestDeviceIdentifier(t *testing.T) {
	if got := DeviceIdentifier("core_sw_01"); got != "core-sw-01" {
		t.Errorf("Expected core-sw-01, got %s", got)
	}
	if got := DeviceIdentifier(" r01 "); got != "r01" {
		t.Errorf("Expected r01, got %s", got)
	}
}

func TestCommandArtifactKey(t *testing.T) {
	ts := time.Date(2026, 8, 31, 14, 30, 5, 0, time.UTC)

	key := CommandArtifactKey("job1", "r01", "display version", ts, ExtRaw)
	want := "jobs/job1/r01_display_version_20260831-143005.txt"
	if key != want {
		t.Errorf("Expected %s, got %s", want, key)
	}
}

func TestParseArtifactKey_RoundTrip(t *testing.T) {
	ts := time.Date(2026, 8, 31, 9, 15, 0, 0, time.UTC)
	key := CommandArtifactKey("job42", "core_sw_01", "display interface brief", ts, ExtRaw)

	name, err := ParseArtifactKey(key)
	if err != nil {
		t.Fatalf("ParseArtifactKey failed: %v", err)
	}
	if name.JobID != "job42" {
		t.Errorf("Expected job42, got %s", name.JobID)
	}
	if name.DeviceID != "core-sw-01" {
		t.Errorf("Expected core-sw-01, got %s", name.DeviceID)
	}
	if name.CommandID != "display_interface_brief" {
		t.Errorf("Expected display_interface_brief, got %s", name.CommandID)
	}
	if !name.Timestamp.Equal(ts) {
		t.Errorf("Expected %v, got %v", ts, name.Timestamp)
	}
	if name.Ext != ExtRaw {
		t.Errorf("Expected %s, got %s", ExtRaw, name.Ext)
	}
}

func TestParseArtifactKey_Rejects(t *testing.T) {
	bad := []string{
		"runs/job1/file.txt",
		"jobs/job1",
		"jobs/job1/summary.json",
		"jobs/job1/r01_cmd_notatimestamp.txt",
	}
	for _, key := range bad {
		if _, err := ParseArtifactKey(key); err == nil {
			t.Errorf("Expected error for %q", key)
		}
	}
}

func TestJobPrefix(t *testing.T) {
	if got := JobPrefix("abc"); got != "jobs/abc/" {
		t.Errorf("Expected jobs/abc/, got %s", got)
	}
}
