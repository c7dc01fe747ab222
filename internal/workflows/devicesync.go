package workflows

import (
	"context"
	"fmt"
	"time"

	"github.com/entwineapp/entwine/internal/audit"
	"github.com/entwineapp/entwine/internal/configs"
	"github.com/entwineapp/entwine/internal/devicesync"
	"github.com/entwineapp/entwine/internal/identity"
	logger "github.com/entwineapp/entwine/internal/logging"
)

// ExportOptions configures the direct identity export.
type ExportOptions struct {
	// QRPath, when set, also renders the payload as a QR image file.
	QRPath string

	// Terminal, when set, renders a terminal-printable QR block.
	Terminal bool

	Store StoreOptions

	// Verbose enables verbose output.
	Verbose bool

	// Debug enables debug output.
	Debug bool
}

// ExportResult contains the exported identity payload.
type ExportResult struct {
	UserUUID string

	// Payload is the exported private key text. Treat like a password.
	Payload string

	// QRPath is where the QR image was written, if requested.
	QRPath string

	// TerminalQR is the terminal rendering, if requested.
	TerminalQR string
}

// Export produces the private key text for transfer to a second device,
// optionally rendered as a QR payload. This is a straight copy mechanism:
// the same keypair continues to exist on both devices.
func Export(ctx context.Context, opts ExportOptions) (*ExportResult, error) {
	proto, userID, err := openProtocol(opts.Store, opts.Verbose, opts.Debug)
	if err != nil {
		return nil, err
	}

	payload, err := proto.ExportIdentity(userID)
	if err != nil {
		return nil, err
	}

	result := &ExportResult{UserUUID: userID, Payload: payload}
	if opts.QRPath != "" {
		if err := devicesync.WriteQRCode(payload, opts.QRPath); err != nil {
			return nil, err
		}
		result.QRPath = opts.QRPath
	}
	if opts.Terminal {
		qr, err := devicesync.QRTerminal(payload)
		if err != nil {
			return nil, err
		}
		result.TerminalQR = qr
	}

	audit.Log(audit.LogWithUser("export"))
	return result, nil
}

// ImportOptions configures the direct identity import.
type ImportOptions struct {
	// Payload is the private key text scanned or pasted from the source
	// device.
	Payload string

	Store StoreOptions

	// Verbose enables verbose output.
	Verbose bool

	// Debug enables debug output.
	Debug bool
}

// Import installs a transferred identity on this device.
func Import(ctx context.Context, opts ImportOptions) error {
	proto, userID, err := openProtocol(opts.Store, opts.Verbose, opts.Debug)
	if err != nil {
		return err
	}
	if err := proto.ImportIdentity(userID, opts.Payload); err != nil {
		return err
	}
	audit.Log(audit.LogWithUser("import"))
	return nil
}

// SyncCodeOptions configures sync-code issuance and redemption.
type SyncCodeOptions struct {
	// Code is the 6-digit code entered on the target device (redeem only).
	Code string

	Store StoreOptions

	// Verbose enables verbose output.
	Verbose bool

	// Debug enables debug output.
	Debug bool
}

// SyncCodeResult contains an issued sync code.
type SyncCodeResult struct {
	UserUUID string

	// Code is the 6-digit code to read off to the other device.
	Code string

	// ExpiresAt is when the payload stops being redeemable.
	ExpiresAt time.Time
}

// IssueSyncCode uploads an encrypted copy of the private key to the user's
// own profile and returns the code protecting it.
func IssueSyncCode(ctx context.Context, opts SyncCodeOptions) (*SyncCodeResult, error) {
	proto, userID, err := openProtocol(opts.Store, opts.Verbose, opts.Debug)
	if err != nil {
		return nil, err
	}

	code, err := proto.GenerateSyncCode(ctx, userID)
	if err != nil {
		return nil, err
	}

	entry := audit.LogWithUser("sync-code")
	audit.Log(entry)

	return &SyncCodeResult{
		UserUUID:  userID,
		Code:      code,
		ExpiresAt: time.Now().UTC().Add(devicesync.SyncWindow),
	}, nil
}

// RedeemSyncCode installs the identity on this device given the code issued
// on the source device. Expired payloads fail before any decryption
// attempt; a wrong code fails without touching local storage.
func RedeemSyncCode(ctx context.Context, opts SyncCodeOptions) error {
	proto, userID, err := openProtocol(opts.Store, opts.Verbose, opts.Debug)
	if err != nil {
		return err
	}
	if err := proto.RedeemSyncCode(ctx, userID, opts.Code); err != nil {
		return err
	}
	audit.Log(audit.LogWithUser("sync-redeem"))
	return nil
}

func openProtocol(store StoreOptions, verbose, debug bool) (*devicesync.Protocol, string, error) {
	log := logger.Logger{Verbose: verbose, Debug: debug}

	userConfig, err := configs.EnsureUserConfig()
	if err != nil {
		return nil, "", fmt.Errorf("ensuring user config: %w", err)
	}

	profiles, err := openStore(store)
	if err != nil {
		return nil, "", err
	}
	keys := identity.NewKeystore(configs.UserEntwineSettings.KeysPath, log)
	return devicesync.NewProtocol(keys, profiles, log), userConfig.User.UUID, nil
}
