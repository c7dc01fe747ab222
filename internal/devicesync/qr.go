package devicesync

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// qrModuleSize is the pixel size of rendered QR images.
const qrModuleSize = 512

// WriteQRCode renders an exported private key text as a QR image at path.
// The payload is the raw export; scanning it on the target device yields
// exactly the text ImportIdentity expects.
func WriteQRCode(payload, path string) error {
	if err := qrcode.WriteFile(payload, qrcode.Medium, qrModuleSize, path); err != nil {
		return fmt.Errorf("failed to write QR code to %s: %w", path, err)
	}
	return nil
}

// QRTerminal renders the payload as a terminal-printable QR block for
// devices without file transfer.
func QRTerminal(payload string) (string, error) {
	qr, err := qrcode.New(payload, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("failed to build QR code: %w", err)
	}
	return qr.ToSmallString(false), nil
}
