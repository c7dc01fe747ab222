package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/entwineapp/entwine/internal/configs"
)

// Entry represents a single audit log entry.
type Entry struct {
	Timestamp string `json:"ts"`   // RFC3339 with microseconds.
	UserUUID  string `json:"uuid"` // UUID of user performing action.
	Operation string `json:"op"`   // Operation name.

	// Optional fields depending on operation.
	PartnerUUID string `json:"partner_uuid,omitempty"` // For connect.
	DeviceName  string `json:"device_name,omitempty"`  // For init/sync.
	State       string `json:"state,omitempty"`        // For status/repair.
	Regenerated bool   `json:"regenerated,omitempty"`  // For migrate/repair.
}

// LogWithUser builds an entry pre-filled from the loaded user config.
func LogWithUser(operation string) Entry {
	entry := Entry{Operation: operation}
	if configs.GlobalUserConfig != nil {
		entry.UserUUID = configs.GlobalUserConfig.User.UUID
		entry.DeviceName = configs.GlobalUserConfig.Device.Name
	}
	return entry
}

// Log appends an entry to the audit log.
// If logging fails it is silently dropped; key operations should not fail
// just because audit logging failed. Entries never contain key material.
func Log(entry Entry) {
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format("2006-01-02T15:04:05.000000Z")
	}

	configsPath := configs.UserEntwineSettings.ConfigsPath
	if configsPath == "" {
		return
	}
	if err := os.MkdirAll(configsPath, 0700); err != nil {
		return
	}

	logPath := filepath.Join(configsPath, "audit.jsonl")

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return
	}
	defer f.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	_, _ = f.Write(append(data, '\n'))
}
