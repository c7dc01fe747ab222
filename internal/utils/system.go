package utils

import (
	"os"
	"os/user"
	"regexp"
	"strconv"
	"strings"
)

// GetUsername returns the current username.
func GetUsername() (string, error) {
	user, err := user.Current()
	if err != nil {
		return "", err
	}
	return user.Username, nil
}

// GetHostname returns the system hostname.
func GetHostname() (string, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return "", err
	}
	return hostname, nil
}

// SanitizeDeviceName sanitizes a device name by removing special characters and converting spaces to hyphens.
func SanitizeDeviceName(name string) string {
	// Trim whitespace.
	name = strings.TrimSpace(name)

	// Convert to lowercase.
	name = strings.ToLower(name)

	// Replace spaces with hyphens.
	name = strings.ReplaceAll(name, " ", "-")

	// Remove any characters that are not alphanumeric, hyphens, or underscores.
	re := regexp.MustCompile(`[^a-z0-9\-_]`)
	name = re.ReplaceAllString(name, "")

	// Remove consecutive hyphens.
	re = regexp.MustCompile(`-+`)
	name = re.ReplaceAllString(name, "-")

	// Trim leading and trailing hyphens.
	name = strings.Trim(name, "-")

	// If empty after sanitization, use a default.
	if name == "" {
		name = "device"
	}

	return name
}

// GenerateDeviceName generates a device name based on the system hostname.
// It sanitizes the hostname and checks for conflicts with existing device names.
// If a conflict is found, it appends a number suffix (-2, -3, etc.).
func GenerateDeviceName(existingDeviceNames []string) (string, error) {
	hostname, err := GetHostname()
	if err != nil {
		// Fallback to username if hostname is unavailable.
		username, userErr := GetUsername()
		if userErr != nil {
			hostname = "device"
		} else {
			hostname = username
		}
	}

	base := SanitizeDeviceName(hostname)

	existing := make(map[string]bool, len(existingDeviceNames))
	for _, name := range existingDeviceNames {
		existing[name] = true
	}

	if !existing[base] {
		return base, nil
	}

	for i := 2; ; i++ {
		candidate := base + "-" + strconv.Itoa(i)
		if !existing[candidate] {
			return candidate, nil
		}
	}
}

// IsValidDeviceName checks if a device name is valid (alphanumeric, hyphens, underscores).
func IsValidDeviceName(name string) bool {
	if name == "" {
		return false
	}
	validPattern := regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*$`)
	return validPattern.MatchString(name)
}
