package repository

import (
	"context"
	"encoding/json"
	"time"

	"imobportal_backend/internal/health/enforcement"
)

// UserState is the persisted automation state record of one user. It is
// created lazily with defaults on first access and mutated only through
// partial updates, so a manual save and a scheduled recompute can each
// write the fields they own.
type UserState struct {
	UserID string

	CanReceiveNewLeads bool
	CanClaimRoletao    bool

	AutoEnforceHealthLeads bool
	AutoEnforceRoletao     bool
	RoletaoEnabled         bool

	SuspendLeadsUntil   *time.Time
	SuspendRoletaoUntil *time.Time

	NextCheckpointAt *time.Time
	CheckpointReason *string

	Enforcements map[string]enforcement.State

	HealthSnapshot          json.RawMessage
	HealthSnapshotUpdatedAt *time.Time

	UpdatedAt time.Time
}

// UserStatePatch is a partial update. Value pointers that are nil leave the
// column untouched; the Set flags distinguish "leave alone" from "write
// NULL" on the nullable columns.
type UserStatePatch struct {
	CanReceiveNewLeads *bool
	CanClaimRoletao    *bool

	AutoEnforceHealthLeads *bool
	AutoEnforceRoletao     *bool
	RoletaoEnabled         *bool

	SuspendLeadsUntil    *time.Time
	SuspendLeadsUntilSet bool

	SuspendRoletaoUntil    *time.Time
	SuspendRoletaoUntilSet bool

	NextCheckpointAt    *time.Time
	NextCheckpointAtSet bool

	CheckpointReason    *string
	CheckpointReasonSet bool

	Enforcements map[string]enforcement.State

	HealthSnapshot          json.RawMessage
	HealthSnapshotUpdatedAt *time.Time
}

const stateColumns = `
	user_id,
	can_receive_new_leads,
	can_claim_roletao,
	auto_enforce_health_leads,
	auto_enforce_roletao,
	roletao_enabled,
	suspend_leads_until,
	suspend_roletao_until,
	next_checkpoint_at,
	checkpoint_reason,
	enforcements,
	health_snapshot,
	health_snapshot_updated_at,
	updated_at`

// GetOrCreateState returns the user's state record, inserting the defaults
// first if the user has never been touched: both toggles on, both
// auto-enforcement flags on, roletão feature enabled.
func (r *Repository) GetOrCreateState(ctx context.Context, userID string) (UserState, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_states (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	if err != nil {
		return UserState{}, err
	}

	row := r.pool.QueryRow(ctx, `
		SELECT `+stateColumns+`
		FROM user_states
		WHERE user_id = $1
	`, userID)

	return scanState(row)
}

// UpdateState applies a partial update and returns the resulting record.
// Merge semantics: untouched fields keep their stored values.
func (r *Repository) UpdateState(ctx context.Context, userID string, patch UserStatePatch) (UserState, error) {
	var enforcementsJSON []byte
	if patch.Enforcements != nil {
		data, err := json.Marshal(patch.Enforcements)
		if err != nil {
			return UserState{}, err
		}
		enforcementsJSON = data
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE user_states SET
			can_receive_new_leads      = COALESCE($2, can_receive_new_leads),
			can_claim_roletao          = COALESCE($3, can_claim_roletao),
			auto_enforce_health_leads  = COALESCE($4, auto_enforce_health_leads),
			auto_enforce_roletao       = COALESCE($5, auto_enforce_roletao),
			roletao_enabled            = COALESCE($6, roletao_enabled),
			suspend_leads_until        = CASE WHEN $7  THEN $8  ELSE suspend_leads_until END,
			suspend_roletao_until      = CASE WHEN $9  THEN $10 ELSE suspend_roletao_until END,
			next_checkpoint_at         = CASE WHEN $11 THEN $12 ELSE next_checkpoint_at END,
			checkpoint_reason          = CASE WHEN $13 THEN $14 ELSE checkpoint_reason END,
			enforcements               = COALESCE($15, enforcements),
			health_snapshot            = COALESCE($16, health_snapshot),
			health_snapshot_updated_at = COALESCE($17, health_snapshot_updated_at),
			updated_at                 = now()
		WHERE user_id = $1
		RETURNING `+stateColumns+`
	`,
		userID,
		patch.CanReceiveNewLeads,
		patch.CanClaimRoletao,
		patch.AutoEnforceHealthLeads,
		patch.AutoEnforceRoletao,
		patch.RoletaoEnabled,
		patch.SuspendLeadsUntilSet, patch.SuspendLeadsUntil,
		patch.SuspendRoletaoUntilSet, patch.SuspendRoletaoUntil,
		patch.NextCheckpointAtSet, patch.NextCheckpointAt,
		patch.CheckpointReasonSet, patch.CheckpointReason,
		enforcementsJSON,
		[]byte(patch.HealthSnapshot),
		patch.HealthSnapshotUpdatedAt,
	)

	return scanState(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanState(row rowScanner) (UserState, error) {
	var st UserState
	var enforcementsJSON []byte
	var snapshotJSON []byte

	err := row.Scan(
		&st.UserID,
		&st.CanReceiveNewLeads,
		&st.CanClaimRoletao,
		&st.AutoEnforceHealthLeads,
		&st.AutoEnforceRoletao,
		&st.RoletaoEnabled,
		&st.SuspendLeadsUntil,
		&st.SuspendRoletaoUntil,
		&st.NextCheckpointAt,
		&st.CheckpointReason,
		&enforcementsJSON,
		&snapshotJSON,
		&st.HealthSnapshotUpdatedAt,
		&st.UpdatedAt,
	)
	if err != nil {
		return UserState{}, err
	}

	st.Enforcements = decodeEnforcements(enforcementsJSON)
	st.HealthSnapshot = snapshotJSON

	return st, nil
}

// decodeEnforcements tolerates schema drift in the stored enforcement map.
// A payload that fails to decode yields an empty map; the next recompute
// rebuilds it. Partial entries keep whatever fields did decode.
func decodeEnforcements(data []byte) map[string]enforcement.State {
	if len(data) == 0 {
		return map[string]enforcement.State{}
	}
	out := map[string]enforcement.State{}
	if err := json.Unmarshal(data, &out); err != nil {
		return map[string]enforcement.State{}
	}
	return out
}
