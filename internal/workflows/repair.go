package workflows

import (
	"context"
	"fmt"

	"github.com/entwineapp/entwine/internal/audit"
	"github.com/entwineapp/entwine/internal/channel"
	"github.com/entwineapp/entwine/internal/configs"
	"github.com/entwineapp/entwine/internal/identity"
	logger "github.com/entwineapp/entwine/internal/logging"
	"github.com/entwineapp/entwine/internal/migration"
)

// RepairOptions configures the identity repair workflow.
type RepairOptions struct {
	Store StoreOptions

	// Verbose enables verbose output.
	Verbose bool

	// Debug enables debug output.
	Debug bool
}

// RepairResult contains the outcome of a repair operation.
type RepairResult struct {
	UserUUID string

	// Regenerated reports whether a fresh keypair replaced the broken one.
	Regenerated bool

	// OrphansOldKey reports that key material wrapped under the previous
	// public key became permanently unreadable (including a partner's
	// independently wrapped copy targeting the old identity).
	OrphansOldKey bool

	// RecoveredFromLegacy reports that the shared key was recovered through
	// the legacy field during the repair.
	RecoveredFromLegacy bool

	// State is the channel state after repair.
	State channel.State
}

// Repair rebuilds a broken identity. It only ever runs from an explicit
// user action; nothing in the ambient listener path calls it.
//
// When the profile still carries the legacy raw key, repair is exactly a
// migration run: regenerate, re-wrap the legacy key, republish. Without the
// legacy fallback the shared key cannot be recovered on this device; repair
// regenerates and republishes the identity so the partner can deliver a
// fresh wrapped copy, and reports the orphaning for the caller to surface.
func Repair(ctx context.Context, opts RepairOptions) (*RepairResult, error) {
	log := logger.Logger{Verbose: opts.Verbose, Debug: opts.Debug}

	userConfig, err := configs.EnsureUserConfig()
	if err != nil {
		return nil, fmt.Errorf("ensuring user config: %w", err)
	}
	userID := userConfig.User.UUID

	profiles, err := openStore(opts.Store)
	if err != nil {
		return nil, err
	}
	ids := openIdentity(profiles, log)

	load, err := ids.Load(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := &RepairResult{UserUUID: userID}
	hadPublishedKey := load.Doc != nil && load.Doc.PublicKey != ""

	// A locally stored key that does not match the published public key is
	// as broken as a missing one.
	if migration.Needed(load.Doc, load.State == identity.LoadUnlocked) {
		engine := migration.NewEngine(ids, profiles, log)
		migrated, err := engine.Run(ctx, userID, load.Doc)
		if err != nil {
			return nil, fmt.Errorf("running legacy migration: %w", err)
		}
		result.Regenerated = migrated.Regenerated
		result.OrphansOldKey = migrated.Regenerated && hadPublishedKey
		result.RecoveredFromLegacy = true
	} else if load.Private == nil || (hadPublishedKey && load.State != identity.LoadUnlocked) {
		// Broken identity with no legacy fallback: regenerate and republish
		// so a partner can re-deliver. The old wrapped material is lost.
		id, err := ids.Generate(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("generating replacement identity: %w", err)
		}
		if err := ids.Publish(ctx, id); err != nil {
			return nil, err
		}
		result.Regenerated = true
		result.OrphansOldKey = hadPublishedKey
	}

	session := channel.NewSession(userID, ids, profiles, log)
	defer session.Close()
	state, err := session.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	result.State = state

	entry := audit.LogWithUser("repair")
	entry.State = state.String()
	entry.Regenerated = result.Regenerated
	audit.Log(entry)

	return result, nil
}
