package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"imobportal_backend/internal/events"
	"imobportal_backend/internal/health/domain"
	"imobportal_backend/internal/health/enforcement"
	"imobportal_backend/internal/health/repository"
	"imobportal_backend/internal/health/transport"
	"imobportal_backend/platform/logger"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// fakeRecords serves a fixed in-memory record set.
type fakeRecords struct {
	leads      []domain.Record
	properties []domain.Record
	userIDs    []string
}

func (f *fakeRecords) ListLeads(context.Context) ([]domain.Record, error) {
	return f.leads, nil
}

func (f *fakeRecords) ListProperties(context.Context) ([]domain.Record, error) {
	return f.properties, nil
}

func (f *fakeRecords) ListUserIDs(context.Context) ([]string, error) {
	return f.userIDs, nil
}

// fakeStates mirrors the merge semantics of the SQL store.
type fakeStates struct {
	mu     sync.Mutex
	states map[string]repository.UserState
}

func newFakeStates() *fakeStates {
	return &fakeStates{states: map[string]repository.UserState{}}
}

func (f *fakeStates) GetOrCreateState(_ context.Context, userID string) (repository.UserState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if st, ok := f.states[userID]; ok {
		return st, nil
	}
	st := repository.UserState{
		UserID:                 userID,
		CanReceiveNewLeads:     true,
		CanClaimRoletao:        true,
		AutoEnforceHealthLeads: true,
		AutoEnforceRoletao:     true,
		RoletaoEnabled:         true,
		Enforcements:           map[string]enforcement.State{},
	}
	f.states[userID] = st
	return st, nil
}

func (f *fakeStates) UpdateState(_ context.Context, userID string, patch repository.UserStatePatch) (repository.UserState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	st := f.states[userID]
	if patch.CanReceiveNewLeads != nil {
		st.CanReceiveNewLeads = *patch.CanReceiveNewLeads
	}
	if patch.CanClaimRoletao != nil {
		st.CanClaimRoletao = *patch.CanClaimRoletao
	}
	if patch.AutoEnforceHealthLeads != nil {
		st.AutoEnforceHealthLeads = *patch.AutoEnforceHealthLeads
	}
	if patch.AutoEnforceRoletao != nil {
		st.AutoEnforceRoletao = *patch.AutoEnforceRoletao
	}
	if patch.RoletaoEnabled != nil {
		st.RoletaoEnabled = *patch.RoletaoEnabled
	}
	if patch.SuspendLeadsUntilSet {
		st.SuspendLeadsUntil = patch.SuspendLeadsUntil
	}
	if patch.SuspendRoletaoUntilSet {
		st.SuspendRoletaoUntil = patch.SuspendRoletaoUntil
	}
	if patch.NextCheckpointAtSet {
		st.NextCheckpointAt = patch.NextCheckpointAt
	}
	if patch.CheckpointReasonSet {
		st.CheckpointReason = patch.CheckpointReason
	}
	if patch.Enforcements != nil {
		st.Enforcements = patch.Enforcements
	}
	if patch.HealthSnapshot != nil {
		st.HealthSnapshot = patch.HealthSnapshot
	}
	if patch.HealthSnapshotUpdatedAt != nil {
		st.HealthSnapshotUpdatedAt = patch.HealthSnapshotUpdatedAt
	}
	f.states[userID] = st
	return st, nil
}

func (f *fakeStates) get(userID string) repository.UserState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.states[userID]
}

// fakeAudit records appended events in order.
type fakeAudit struct {
	mu     sync.Mutex
	events []repository.AuditEvent
}

func (f *fakeAudit) AppendAudit(_ context.Context, userID string, params repository.AppendAuditParams) (repository.AuditEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	event := repository.AuditEvent{
		UserID:      userID,
		Ts:          time.Now(),
		Type:        params.Type,
		Label:       params.Label,
		ActorUserID: params.ActorUserID,
		Meta:        params.Meta,
	}
	f.events = append(f.events, event)
	return event, nil
}

func (f *fakeAudit) ListAudit(_ context.Context, userID string, limit int) ([]repository.AuditEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []repository.AuditEvent
	for i := len(f.events) - 1; i >= 0 && len(out) < limit; i-- {
		if f.events[i].UserID == userID {
			out = append(out, f.events[i])
		}
	}
	return out, nil
}

func (f *fakeAudit) ofType(eventType string) []repository.AuditEvent {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []repository.AuditEvent
	for _, e := range f.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// fakeBus records published events synchronously.
type fakeBus struct {
	mu        sync.Mutex
	published []events.Event
}

func (f *fakeBus) Publish(_ context.Context, event events.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, event)
}

func (f *fakeBus) Subscribe(string, events.Handler) {}

func (f *fakeBus) toggleEvents() []events.AutomationToggleChanged {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []events.AutomationToggleChanged
	for _, e := range f.published {
		if tc, ok := e.(events.AutomationToggleChanged); ok {
			out = append(out, tc)
		}
	}
	return out
}

type testEnv struct {
	svc    *Service
	states *fakeStates
	audit  *fakeAudit
	bus    *fakeBus
}

func newTestEnv(t *testing.T, records *fakeRecords) *testEnv {
	t.Helper()

	states := newFakeStates()
	audit := &fakeAudit{}
	bus := &fakeBus{}

	svc := New(records, states, audit, bus, nil, logger.New("test"))
	svc.now = func() time.Time { return testNow }

	return &testEnv{svc: svc, states: states, audit: audit, bus: bus}
}

func agedLead(userID string, days int) domain.Record {
	return domain.Record{
		"ownerId":       userID,
		"lastContactAt": testNow.AddDate(0, 0, -days).Format(time.RFC3339),
	}
}

func toggleByID(snapshot transport.UserHealthSnapshot, id string) (transport.AutomationToggle, bool) {
	for _, tg := range snapshot.Automations.Toggles {
		if tg.ID == id {
			return tg, true
		}
	}
	return transport.AutomationToggle{}, false
}

func pillByID(snapshot transport.UserHealthSnapshot, id string) (transport.AutomationTogglePill, bool) {
	for _, p := range snapshot.Automations.Pills {
		if p.ID == id {
			return p, true
		}
	}
	return transport.AutomationTogglePill{}, false
}

func TestGetSnapshotCleanBook(t *testing.T) {
	// Ages stay at two days or less so no proxied follow-up task is late.
	env := newTestEnv(t, &fakeRecords{
		leads: []domain.Record{agedLead("1", 0), agedLead("1", 1), agedLead("1", 2)},
	})

	snapshot, err := env.svc.GetSnapshot(context.Background(), "1")
	if err != nil {
		t.Fatalf("GetSnapshot: %v", err)
	}

	if snapshot.UserID != "1" {
		t.Errorf("userId = %q, want 1", snapshot.UserID)
	}
	if got := domain.SegmentValue(snapshot.Leads, domain.SegmentOnTrack); got != 3 {
		t.Errorf("on-track = %d, want 3", got)
	}
	if got := domain.SegmentValue(snapshot.Leads, domain.SegmentCritical); got != 0 {
		t.Errorf("critical = %d, want 0", got)
	}
	if got := domain.SegmentValue(snapshot.Tarefas, domain.SegmentTasksLate); got != 0 {
		t.Errorf("late tasks = %d, want 0", got)
	}

	// No critical alerts, so the toggle stays on and nothing flips.
	tg, ok := toggleByID(snapshot, enforcement.ToggleReceiveLeads)
	if !ok || !tg.Enabled {
		t.Error("leads toggle should be on with a clean book")
	}
	pill, _ := pillByID(snapshot, enforcement.ToggleReceiveLeads)
	if pill.Message != "Liberado" || pill.Variant != transport.PillSuccess {
		t.Errorf("pill = %+v, want Liberado/success", pill)
	}

	if got := env.bus.toggleEvents(); len(got) != 0 {
		t.Errorf("published %d toggle events, want 0 when nothing changed", len(got))
	}
	if got := env.audit.ofType(repository.AuditSnapshotRecomputed); len(got) != 0 {
		t.Errorf("appended %d recompute audit events, want 0 when nothing changed", len(got))
	}
}

func TestCriticalLeadEnforcesToggleOff(t *testing.T) {
	env := newTestEnv(t, &fakeRecords{
		leads: []domain.Record{agedLead("1", 1), agedLead("1", 27), agedLead("1", 40)},
	})

	snapshot, err := env.svc.GetSnapshot(context.Background(), "1")
	if err != nil {
		t.Fatalf("GetSnapshot: %v", err)
	}

	if got := domain.SegmentValue(snapshot.Leads, domain.SegmentCritical); got != 1 {
		t.Fatalf("critical = %d, want 1", got)
	}

	tg, _ := toggleByID(snapshot, enforcement.ToggleReceiveLeads)
	if tg.Enabled {
		t.Error("critical lead should switch the leads toggle off")
	}

	st := snapshot.Automations.EnforcementReasons[enforcement.ToggleReceiveLeads]
	if !st.Enforced || st.TargetValue == nil || *st.TargetValue {
		t.Errorf("enforcement state = %+v, want enforced with false target", st)
	}

	pill, _ := pillByID(snapshot, enforcement.ToggleReceiveLeads)
	if pill.Message != "Bloqueado" || pill.Variant != transport.PillWarning {
		t.Errorf("pill = %+v, want Bloqueado/warning for a system block", pill)
	}
	if pill.Reason == "" {
		t.Error("pill should carry the enforcement reason text")
	}

	// The flip is persisted, audited once, and published.
	if got := env.states.get("1"); got.CanReceiveNewLeads {
		t.Error("persisted state should have the toggle off")
	}
	recomputes := env.audit.ofType(repository.AuditSnapshotRecomputed)
	if len(recomputes) != 1 {
		t.Fatalf("appended %d recompute audit events, want 1", len(recomputes))
	}
	if recomputes[0].Meta["changes"] == nil {
		t.Error("audit meta should carry the from/to changes")
	}

	toggleEvents := env.bus.toggleEvents()
	if len(toggleEvents) != 1 {
		t.Fatalf("published %d toggle events, want 1", len(toggleEvents))
	}
	if e := toggleEvents[0]; !e.From || e.To || e.ToggleID != enforcement.ToggleReceiveLeads {
		t.Errorf("toggle event = %+v, want leads toggle true->false", e)
	}

	// A second recompute with the same data changes nothing further.
	if _, err := env.svc.GetSnapshot(context.Background(), "1"); err != nil {
		t.Fatalf("second GetSnapshot: %v", err)
	}
	if got := env.audit.ofType(repository.AuditSnapshotRecomputed); len(got) != 1 {
		t.Errorf("appended %d recompute audit events after idempotent rerun, want still 1", len(got))
	}
}

func TestLateFollowUpTaskEnforcesToggleOff(t *testing.T) {
	// A lead untouched for ten days is still on-track for recency, but its
	// proxied follow-up task is already late, which is a critical alert.
	env := newTestEnv(t, &fakeRecords{
		leads: []domain.Record{agedLead("1", 10)},
	})

	snapshot, err := env.svc.GetSnapshot(context.Background(), "1")
	if err != nil {
		t.Fatalf("GetSnapshot: %v", err)
	}

	if got := domain.SegmentValue(snapshot.Leads, domain.SegmentCritical); got != 0 {
		t.Fatalf("critical leads = %d, want 0", got)
	}
	if got := domain.SegmentValue(snapshot.Tarefas, domain.SegmentTasksLate); got != 1 {
		t.Fatalf("late tasks = %d, want 1", got)
	}

	tg, _ := toggleByID(snapshot, enforcement.ToggleReceiveLeads)
	if tg.Enabled {
		t.Error("late follow-up task should switch the leads toggle off")
	}

	st := snapshot.Automations.EnforcementReasons[enforcement.ToggleReceiveLeads]
	if len(st.Reasons) != 1 || st.Reasons[0].Code != domain.ReasonCriticalTasks {
		t.Errorf("reasons = %v, want only the late-task reason", st.Reasons)
	}
}

func TestRoletaoInsufficientSampleRecorded(t *testing.T) {
	env := newTestEnv(t, &fakeRecords{
		leads: []domain.Record{agedLead("1", 1)},
	})

	snapshot, err := env.svc.GetSnapshot(context.Background(), "1")
	if err != nil {
		t.Fatalf("GetSnapshot: %v", err)
	}

	st, ok := snapshot.Automations.EnforcementReasons[enforcement.ToggleRoletaoClaim]
	if !ok {
		t.Fatal("expected a roletão enforcement record")
	}
	if st.Enforced {
		t.Error("insufficient sample must not enforce")
	}
	if st.TargetValue != nil {
		t.Error("insufficient sample must record a nil target")
	}
	if len(st.Reasons) == 0 || st.Reasons[0].Code != domain.ReasonInsufficientSample {
		t.Errorf("reasons = %v, want insufficient-sample first", st.Reasons)
	}

	// The manually-set value (default true) stands.
	tg, _ := toggleByID(snapshot, enforcement.ToggleRoletaoClaim)
	if !tg.Enabled {
		t.Error("unenforced roletão toggle should keep its stored value")
	}
}

func TestRoletaoZeroClaimWindow(t *testing.T) {
	env := newTestEnv(t, &fakeRecords{})

	snapshot, err := env.svc.GetSnapshot(context.Background(), "1")
	if err != nil {
		t.Fatalf("GetSnapshot: %v", err)
	}

	if snapshot.Roletao.DefaultPeriod != "7d" {
		t.Errorf("default period = %q, want 7d", snapshot.Roletao.DefaultPeriod)
	}
	for _, key := range []string{"7d", "15d", "30d"} {
		m, ok := snapshot.Roletao.Periods[key]
		if !ok {
			t.Fatalf("missing period %q", key)
		}
		if m.Banner.Claimed != 0 || m.ConvRate != 0 || m.ClaimsPerDay != 0 {
			t.Errorf("period %q = %+v, want defined zeros", key, m)
		}
	}
}

func TestSaveAutoFlagsManualOverride(t *testing.T) {
	env := newTestEnv(t, &fakeRecords{
		leads: []domain.Record{agedLead("1", 1)},
	})

	off := false
	snapshot, err := env.svc.SaveAutoFlags(context.Background(), "1", transport.SaveAutoFlagsRequest{
		AutoEnforceHealthLeads: &off,
		CanReceiveNewLeads:     &off,
	}, nil)
	if err != nil {
		t.Fatalf("SaveAutoFlags: %v", err)
	}

	// Enforcement is off for the leads toggle, so the manual value stands
	// even though the book is clean.
	tg, _ := toggleByID(snapshot, enforcement.ToggleReceiveLeads)
	if tg.Enabled {
		t.Error("manual off should stand when enforcement is disabled")
	}
	if _, ok := snapshot.Automations.EnforcementReasons[enforcement.ToggleReceiveLeads]; ok {
		t.Error("no leads enforcement record should exist when its flag is off")
	}

	pill, _ := pillByID(snapshot, enforcement.ToggleReceiveLeads)
	if pill.Message != "Bloqueado" || pill.Variant != transport.PillDanger {
		t.Errorf("pill = %+v, want Bloqueado/danger for a manual block", pill)
	}

	if got := env.audit.ofType(repository.AuditAutomationFlagsSaved); len(got) != 1 {
		t.Errorf("appended %d flags-saved audit events, want 1", len(got))
	}
	if snapshot.Automations.AutoEnforceHealthLeads {
		t.Error("snapshot should reflect the saved enforcement flag")
	}
}

func TestSuspensionLifecycle(t *testing.T) {
	env := newTestEnv(t, &fakeRecords{
		leads: []domain.Record{agedLead("1", 1)},
	})

	until := testNow.Add(48 * time.Hour)
	snapshot, err := env.svc.SaveSuspension(context.Background(), "1", transport.SaveSuspensionRequest{
		Scope: "leads",
		Until: &until,
	}, nil)
	if err != nil {
		t.Fatalf("SaveSuspension: %v", err)
	}

	tg, _ := toggleByID(snapshot, enforcement.ToggleReceiveLeads)
	if tg.Enabled {
		t.Error("active suspension must force the toggle off")
	}
	if snapshot.Automations.SuspendLeadsUntil == nil || !snapshot.Automations.SuspendLeadsUntil.Equal(until) {
		t.Errorf("snapshot suspendLeadsUntil = %v, want %v", snapshot.Automations.SuspendLeadsUntil, until)
	}

	st := snapshot.Automations.EnforcementReasons[enforcement.ToggleReceiveLeads]
	found := false
	for _, r := range st.Reasons {
		if r.Code == domain.ReasonSuspensionActive {
			found = true
		}
	}
	if !found {
		t.Errorf("reasons = %v, want the suspension reason appended", st.Reasons)
	}

	if got := env.audit.ofType(repository.AuditSuspensionSet); len(got) != 1 {
		t.Errorf("appended %d suspension-set audit events, want 1", len(got))
	}

	// Clock moves past the boundary: the suspension self-clears on the next
	// recompute and the enforced value stands again.
	env.svc.now = func() time.Time { return until.Add(time.Minute) }

	snapshot, err = env.svc.Recompute(context.Background(), "1", TriggerSnapshotRead, nil)
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}

	tg, _ = toggleByID(snapshot, enforcement.ToggleReceiveLeads)
	if !tg.Enabled {
		t.Error("expired suspension must restore the enforced value")
	}
	if snapshot.Automations.SuspendLeadsUntil != nil {
		t.Errorf("snapshot suspendLeadsUntil = %v, want nil after expiry", snapshot.Automations.SuspendLeadsUntil)
	}
	if got := env.states.get("1"); got.SuspendLeadsUntil != nil {
		t.Error("expired suspension must be cleared from the stored state")
	}
}

func TestSuspensionClearedExplicitly(t *testing.T) {
	env := newTestEnv(t, &fakeRecords{})

	until := testNow.Add(24 * time.Hour)
	if _, err := env.svc.SaveSuspension(context.Background(), "1", transport.SaveSuspensionRequest{Scope: "roletao", Until: &until}, nil); err != nil {
		t.Fatalf("SaveSuspension: %v", err)
	}

	snapshot, err := env.svc.SaveSuspension(context.Background(), "1", transport.SaveSuspensionRequest{Scope: "roletao"}, nil)
	if err != nil {
		t.Fatalf("SaveSuspension clear: %v", err)
	}

	if snapshot.Automations.SuspendRoletaoUntil != nil {
		t.Error("explicit clear should remove the suspension")
	}
	if got := env.audit.ofType(repository.AuditSuspensionCleared); len(got) != 1 {
		t.Errorf("appended %d suspension-cleared audit events, want 1", len(got))
	}
}

func TestCheckpointLifecycle(t *testing.T) {
	env := newTestEnv(t, &fakeRecords{})

	at := testNow.Add(24 * time.Hour)
	reason := "Revisar carteira após treinamento"
	snapshot, err := env.svc.SaveCheckpointSchedule(context.Background(), "1", transport.SaveCheckpointRequest{
		At:     &at,
		Reason: &reason,
	}, nil)
	if err != nil {
		t.Fatalf("SaveCheckpointSchedule: %v", err)
	}

	if snapshot.NextCheckpointAt == nil || !snapshot.NextCheckpointAt.Equal(at) {
		t.Errorf("nextCheckpointAt = %v, want %v", snapshot.NextCheckpointAt, at)
	}
	if snapshot.CheckpointReason == nil || *snapshot.CheckpointReason != reason {
		t.Errorf("checkpointReason = %v, want %q", snapshot.CheckpointReason, reason)
	}

	// Past the scheduled instant the checkpoint fires once and clears.
	env.svc.now = func() time.Time { return at.Add(time.Minute) }

	snapshot, err = env.svc.Recompute(context.Background(), "1", TriggerScheduledSweep, nil)
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if snapshot.NextCheckpointAt != nil || snapshot.CheckpointReason != nil {
		t.Error("due checkpoint must clear its schedule")
	}
	if got := env.states.get("1"); got.NextCheckpointAt != nil {
		t.Error("due checkpoint must be cleared from the stored state")
	}
}

func TestRunCheckpointNowAudits(t *testing.T) {
	env := newTestEnv(t, &fakeRecords{})

	actor := "manager-9"
	if _, err := env.svc.RunCheckpointNow(context.Background(), "1", &actor); err != nil {
		t.Fatalf("RunCheckpointNow: %v", err)
	}

	got := env.audit.ofType(repository.AuditCheckpointRun)
	if len(got) != 1 {
		t.Fatalf("appended %d checkpoint-run audit events, want 1", len(got))
	}
	if got[0].ActorUserID == nil || *got[0].ActorUserID != actor {
		t.Errorf("actor = %v, want %q", got[0].ActorUserID, actor)
	}
}

func TestRecomputeRequiresUserID(t *testing.T) {
	env := newTestEnv(t, &fakeRecords{})

	if _, err := env.svc.Recompute(context.Background(), "", TriggerSnapshotRead, nil); err == nil {
		t.Error("expected an error for an empty user id")
	}
}

func TestRoletaoDisabledPill(t *testing.T) {
	env := newTestEnv(t, &fakeRecords{})

	off := false
	snapshot, err := env.svc.SaveAutoFlags(context.Background(), "1", transport.SaveAutoFlagsRequest{
		RoletaoEnabled: &off,
	}, nil)
	if err != nil {
		t.Fatalf("SaveAutoFlags: %v", err)
	}

	pill, _ := pillByID(snapshot, enforcement.ToggleRoletaoClaim)
	if pill.Message != "Indisponível" || pill.Variant != transport.PillWarning {
		t.Errorf("pill = %+v, want Indisponível/warning when the feature is off", pill)
	}
}
