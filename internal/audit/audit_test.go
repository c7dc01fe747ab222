package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/entwineapp/entwine/internal/configs"
)

func withTempConfigsPath(t *testing.T) string {
	t.Helper()
	original := configs.UserEntwineSettings
	dir := t.TempDir()
	configs.UserEntwineSettings = &configs.UserSettings{ConfigsPath: dir}
	t.Cleanup(func() { configs.UserEntwineSettings = original })
	return dir
}

func TestLogAppendsEntries(t *testing.T) {
	dir := withTempConfigsPath(t)

	Log(Entry{UserUUID: "u-1", Operation: "init", DeviceName: "macbook"})
	Log(Entry{UserUUID: "u-1", Operation: "connect", PartnerUUID: "u-2"})

	f, err := os.Open(filepath.Join(dir, "audit.jsonl"))
	if err != nil {
		t.Fatalf("Failed to open audit log: %v", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("Line is not valid JSON: %v", err)
		}
		entries = append(entries, entry)
	}

	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].Operation != "init" || entries[0].DeviceName != "macbook" {
		t.Errorf("Unexpected first entry: %+v", entries[0])
	}
	if entries[1].Operation != "connect" || entries[1].PartnerUUID != "u-2" {
		t.Errorf("Unexpected second entry: %+v", entries[1])
	}
	if entries[0].Timestamp == "" {
		t.Error("Timestamp was not filled in")
	}
}

func TestLogNeverContainsKeyMaterial(t *testing.T) {
	dir := withTempConfigsPath(t)

	Log(Entry{UserUUID: "u-1", Operation: "repair", State: "unlocked", Regenerated: true})

	data, err := os.ReadFile(filepath.Join(dir, "audit.jsonl"))
	if err != nil {
		t.Fatalf("Failed to read audit log: %v", err)
	}
	for _, field := range []string{"privateKey", "sharedKey", "encryptedSharedKey"} {
		if strings.Contains(string(data), field) {
			t.Errorf("Audit log contains key-shaped field %q", field)
		}
	}
}

func TestLogWithUser(t *testing.T) {
	originalGlobal := configs.GlobalUserConfig
	t.Cleanup(func() { configs.GlobalUserConfig = originalGlobal })

	t.Run("NoConfigLoaded", func(t *testing.T) {
		configs.GlobalUserConfig = nil
		entry := LogWithUser("status")
		if entry.Operation != "status" || entry.UserUUID != "" {
			t.Errorf("Unexpected entry: %+v", entry)
		}
	})

	t.Run("ConfigLoaded", func(t *testing.T) {
		config := &configs.UserConfig{}
		config.User.UUID = "u-9"
		config.Device.Name = "tablet"
		configs.GlobalUserConfig = config

		entry := LogWithUser("export")
		if entry.UserUUID != "u-9" || entry.DeviceName != "tablet" {
			t.Errorf("Entry was not pre-filled: %+v", entry)
		}
	})
}
