// Package framework is the single entry surface of the safety framework. It
// orchestrates session lifecycle, routes content through the filter, the
// trauma-informed engine, and the logger, and exposes the operations
// external callers use.
package framework

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"aegis/internal/config"
	"aegis/internal/filter"
	"aegis/internal/logging"
	"aegis/internal/store"
	"aegis/internal/trauma"
	"aegis/internal/types"
	"aegis/internal/validator"
)

var (
	// ErrNotInitialized is returned when an operation runs before Initialize.
	ErrNotInitialized = errors.New("framework: not initialized")
	// ErrUnknownSession is returned for operations on untracked sessions.
	ErrUnknownSession = errors.New("framework: unknown session")
	// ErrInvalidProfile is returned when a profile fails validation.
	ErrInvalidProfile = errors.New("framework: invalid profile")
)

// Hook is a downstream integration point invoked after each content
// analysis. Hook failures are isolated: one hook's error cannot block the
// others or the analysis itself.
type Hook interface {
	Name() string
	OnAnalysis(analysis *types.ContentAnalysis) error
}

// session pairs the public record with its serialization lock. Per-session
// mutation is serialized so concurrent submissions cannot both pass the
// ramp-interval check.
type session struct {
	mu      sync.Mutex
	record  types.SafetySession
	profile *types.UserSafetyProfile
}

// Framework wires the validator, filter, engine, logger, and optional
// archive store together. Lifecycle is owned here; there are no ambient
// statics.
type Framework struct {
	cfg      *config.SafetyConfiguration
	logger   *logging.SafetyLogger
	analyzer *filter.Analyzer
	engine   *trauma.Engine
	archive  *store.ArchiveStore

	mu          sync.RWMutex
	initialized bool
	sessions    map[string]*session
	profiles    map[string]*types.UserSafetyProfile
	hooks       []Hook

	sweepTicker *time.Ticker
	sweepDone   chan struct{}

	now func() time.Time
}

// New creates an uninitialized framework from a configuration. An invalid
// configuration is rejected up front.
func New(cfg *config.SafetyConfiguration) (*Framework, error) {
	if cfg == nil {
		cfg = config.DefaultConfiguration()
	}
	if res := validator.ValidateSafetyConfiguration(cfg); !res.OK() {
		return nil, fmt.Errorf("framework: configuration rejected: %+v", res.Issues)
	}

	logger := logging.NewSafetyLogger(cfg.Logging)
	return &Framework{
		cfg:      cfg,
		logger:   logger,
		analyzer: filter.NewAnalyzer(cfg),
		engine:   trauma.NewEngine(cfg, logger),
		sessions: make(map[string]*session),
		profiles: make(map[string]*types.UserSafetyProfile),
		now:      time.Now,
	}, nil
}

// Initialize opens the optional archive store and starts the background
// timers (log rotation, periodic state assessment).
func (f *Framework) Initialize(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.initialized {
		return nil
	}

	if f.cfg.Store.Enabled {
		archive, err := store.Open(f.cfg.Store.DatabasePath)
		if err != nil {
			// The archive is an adjunct, not a core data path. Run without it.
			f.logger.LogSafetyError(types.ErrSystem, types.SeverityMedium,
				fmt.Sprintf("archive store unavailable: %v", err), "", "")
		} else {
			f.archive = archive
		}
	}

	f.logger.StartRotation(func(evicted []types.SafetyLogEntry) {
		if f.archive == nil {
			return
		}
		if err := f.archive.ArchiveLogEntries(evicted); err != nil {
			f.logger.LogSafetyError(types.ErrSystem, types.SeverityLow,
				fmt.Sprintf("failed to archive rotated entries: %v", err), "", "")
		}
	})
	f.engine.StartAssessment()
	f.startTimeoutSweeper()

	f.initialized = true
	f.logger.LogSafetyEvent(types.LevelInfo, "framework", "framework initialized", "", "", nil)
	return nil
}

// Shutdown stops timers and closes the archive. Active sessions are left in
// place; callers wanting a hard stop use EmergencyStopAll first.
func (f *Framework) Shutdown(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.initialized {
		return nil
	}
	f.logger.StopRotation()
	f.engine.StopAssessment()
	f.stopTimeoutSweeper()
	if f.archive != nil {
		if err := f.archive.Close(); err != nil {
			return fmt.Errorf("framework: archive close: %w", err)
		}
		f.archive = nil
	}
	f.initialized = false
	return nil
}

// RegisterHook adds a downstream integration hook.
func (f *Framework) RegisterHook(h Hook) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hooks = append(f.hooks, h)
}

// Logger exposes the shared safety logger for audit and export access.
func (f *Framework) Logger() *logging.SafetyLogger {
	return f.logger
}

// Engine exposes the pacing engine, primarily for tests and the CLI.
func (f *Framework) Engine() *trauma.Engine {
	return f.engine
}

func (f *Framework) isInitialized() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.initialized
}

func (f *Framework) lookup(sessionID string) (*session, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	s, ok := f.sessions[sessionID]
	return s, ok
}

// =============================================================================
// SESSION LIFECYCLE
// =============================================================================

// CreateSession starts a session for a user. When profile is nil, the
// profile from the user's previous sessions is reused; a brand-new user gets
// a conservative default profile.
func (f *Framework) CreateSession(ctx context.Context, userID string, profile *types.UserSafetyProfile) (*types.SafetySession, error) {
	opRes := validator.ValidateSafetyOperation("create_session",
		validator.OperationParams{UserID: userID},
		validator.OperationContext{Initialized: f.isInitialized()})
	if !opRes.OK() {
		return nil, fmt.Errorf("%w: create_session rejected: %+v", ErrNotInitialized, opRes.Issues)
	}

	if profile == nil {
		f.mu.RLock()
		profile = f.profiles[userID]
		f.mu.RUnlock()
	}
	if profile == nil {
		profile = defaultProfile(userID)
	}
	if res := validator.ValidateUserSafetyProfile(profile); !res.OK() {
		f.logger.LogSafetyError(types.ErrUserSafety, types.SeverityMedium,
			fmt.Sprintf("profile rejected: %+v", res.Issues), userID, "")
		return nil, fmt.Errorf("%w: %+v", ErrInvalidProfile, res.Issues)
	}

	sessionID := uuid.NewString()
	record := types.SafetySession{
		ID:        sessionID,
		UserID:    userID,
		Status:    types.SessionActive,
		Filters:   filter.CreateFiltersForUser(profile),
		StartedAt: f.now(),
	}

	if _, err := f.engine.InitializeSession(sessionID, profile); err != nil {
		return nil, fmt.Errorf("framework: engine init: %w", err)
	}

	f.mu.Lock()
	f.profiles[userID] = profile
	f.sessions[sessionID] = &session{record: record, profile: profile}
	f.mu.Unlock()

	f.logger.SessionStarted(userID, sessionID)
	out := record
	return &out, nil
}

// EndSession transitions a session to ended, runs aftercare, archives the
// record, and releases per-session state.
func (f *Framework) EndSession(ctx context.Context, sessionID string) error {
	s, ok := f.lookup(sessionID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
	}

	s.mu.Lock()
	if !s.record.Status.CanTransition(types.SessionEnded) {
		s.mu.Unlock()
		return fmt.Errorf("framework: session %s cannot end from %s", sessionID, s.record.Status)
	}
	s.record.Status = types.SessionEnded
	s.record.EndedAt = f.now()
	record := s.record
	userID := s.record.UserID
	s.mu.Unlock()

	if _, err := f.engine.ProcessSessionEnd(sessionID, trauma.EndNormal); err != nil {
		f.logger.LogSafetyError(types.ErrUserSafety, types.SeverityLow,
			fmt.Sprintf("aftercare failed: %v", err), userID, sessionID)
	}

	f.archiveSession(&record)

	f.mu.Lock()
	delete(f.sessions, sessionID)
	f.mu.Unlock()

	f.logger.SessionEnded(userID, sessionID)
	return nil
}

func (f *Framework) archiveSession(record *types.SafetySession) {
	if res := validator.ValidateSafetySession(record); !res.OK() {
		f.logger.LogSafetyError(types.ErrSystem, types.SeverityLow,
			fmt.Sprintf("session record failed validation: %+v", res.Issues), record.UserID, record.ID)
	}
	if f.archive == nil {
		return
	}
	if err := f.archive.ArchiveSession(record); err != nil {
		f.logger.LogSafetyError(types.ErrSystem, types.SeverityLow,
			fmt.Sprintf("failed to archive session: %v", err), record.UserID, record.ID)
	}
}

// =============================================================================
// SESSION TIMEOUTS
// =============================================================================

// startTimeoutSweeper begins the periodic sweep that ends sessions past the
// configured lifetime. Caller holds f.mu.
func (f *Framework) startTimeoutSweeper() {
	if f.sweepTicker != nil {
		return
	}
	interval := time.Duration(f.cfg.CheckIntervalSeconds) * time.Second
	f.sweepTicker = time.NewTicker(interval)
	f.sweepDone = make(chan struct{})
	ticker := f.sweepTicker
	done := f.sweepDone

	go func() {
		for {
			select {
			case <-ticker.C:
				f.sweepTimeouts()
			case <-done:
				return
			}
		}
	}()
}

// stopTimeoutSweeper halts the sweep and clears the timer state so a later
// Initialize can start it again. Caller holds f.mu.
func (f *Framework) stopTimeoutSweeper() {
	if f.sweepTicker == nil {
		return
	}
	f.sweepTicker.Stop()
	close(f.sweepDone)
	f.sweepTicker = nil
	f.sweepDone = nil
}

func (f *Framework) sweepTimeouts() {
	timeout := time.Duration(f.cfg.SessionTimeoutMinutes) * time.Minute

	f.mu.RLock()
	targets := make([]*session, 0, len(f.sessions))
	for _, s := range f.sessions {
		targets = append(targets, s)
	}
	now := f.now()
	f.mu.RUnlock()

	for _, s := range targets {
		s.mu.Lock()
		expired := !s.record.Status.Terminal() && now.Sub(s.record.StartedAt) >= timeout
		s.mu.Unlock()
		if expired {
			f.timeoutSession(s)
		}
	}
}

func (f *Framework) timeoutSession(s *session) {
	s.mu.Lock()
	if !s.record.Status.CanTransition(types.SessionEnded) {
		s.mu.Unlock()
		return
	}
	s.record.Status = types.SessionEnded
	s.record.EndedAt = f.now()
	record := s.record
	userID := s.record.UserID
	sessionID := s.record.ID
	s.mu.Unlock()

	if _, err := f.engine.ProcessSessionEnd(sessionID, trauma.EndTimeout); err != nil {
		f.logger.LogSafetyError(types.ErrUserSafety, types.SeverityLow,
			fmt.Sprintf("aftercare failed: %v", err), userID, sessionID)
	}
	f.archiveSession(&record)

	f.mu.Lock()
	delete(f.sessions, sessionID)
	f.mu.Unlock()

	f.logger.LogSafetyEvent(types.LevelWarning, "session", "session ended: timeout", userID, sessionID, nil)
}

// SetClock swaps the facade's time source. Test hook.
func (f *Framework) SetClock(now func() time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = now
}

// Session returns a copy of the live session record.
func (f *Framework) Session(sessionID string) (*types.SafetySession, error) {
	s, ok := f.lookup(sessionID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.record
	return &out, nil
}

// defaultProfile is the conservative profile assigned to a first-time user
// who supplied none.
func defaultProfile(userID string) *types.UserSafetyProfile {
	now := time.Now()
	return &types.UserSafetyProfile{
		UserID:    userID,
		RiskLevel: types.RiskModerate,
		Intensity: types.IntensityPreferences{
			Maximum:   types.IntensityModerate,
			Preferred: types.IntensityMild,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// =============================================================================
// CONTENT VALIDATION
// =============================================================================

// ValidateContent routes content through the filter, the user's rule set,
// and the pacing engine, logging the analysis. Filter and engine failures
// are caught here, logged, and surfaced as errors; they never panic through
// to the caller.
func (f *Framework) ValidateContent(ctx context.Context, content, sessionID string) (*types.ContentAnalysis, error) {
	s, ok := f.lookup(sessionID)
	opRes := validator.ValidateSafetyOperation("validate_content",
		validator.OperationParams{SessionID: sessionID, Content: content},
		validator.OperationContext{Initialized: f.isInitialized(), SessionActive: ok && f.sessionActive(s)})
	if !opRes.OK() {
		return nil, fmt.Errorf("framework: validate_content rejected: %+v", opRes.Issues)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	analysis, err := f.analyzer.AnalyzeContent(content, sessionID, s.profile)
	if err != nil {
		f.logger.LogSafetyError(types.ErrFilter, types.SeverityHigh, err.Error(), s.profile.UserID, sessionID)
		return nil, fmt.Errorf("framework: analysis failed: %w", err)
	}

	if f.cfg.RealTimeFiltering {
		applied := filter.ApplyFilters(s.record.Filters, analysis.FilteredContent, filter.ContextForProfile(s.profile))
		analysis.FilteredContent = applied.Content
		if applied.Blocked {
			analysis.Risk.RecommendedActions = append(analysis.Risk.RecommendedActions, types.ActionBlock)
		}
	}

	result, err := f.engine.ProcessContent(sessionID, analysis)
	if err != nil {
		f.logger.LogSafetyError(types.ErrUserSafety, types.SeverityHigh, err.Error(), s.profile.UserID, sessionID)
		return nil, fmt.Errorf("framework: pacing failed: %w", err)
	}
	analysis = result.Analysis

	// The cultural, accessibility, and age layers flag content without
	// emitting trigger warnings. When warnings are required, such content
	// must not go out with a bare continue.
	if f.cfg.RequireTriggerWarnings && len(analysis.TriggerWarnings) == 0 {
		flagged := len(analysis.CulturalFlags) > 0 ||
			len(analysis.AccessibilityImpacts) > 0 ||
			analysis.FilteredContent != analysis.OriginalContent
		if flagged {
			analysis.Risk.RecommendedActions = append(analysis.Risk.RecommendedActions, types.ActionWarn)
		}
	}

	// Structural self-check on the way out; a malformed analysis is a filter
	// bug worth an error record, not a reason to drop the verdict.
	if res := validator.ValidateContentAnalysis(analysis); !res.OK() {
		f.logger.LogSafetyError(types.ErrFilter, types.SeverityMedium,
			fmt.Sprintf("analysis failed validation: %+v", res.Issues), s.profile.UserID, sessionID)
	}

	f.logger.ContentAnalyzed(s.profile.UserID, sessionID, analysis.ContentID,
		analysis.ContentIntensity, len(analysis.TriggerWarnings))
	f.runHooks(analysis)
	return analysis, nil
}

func (f *Framework) sessionActive(s *session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record.Status == types.SessionActive
}

// runHooks invokes downstream integrations, isolating each failure.
func (f *Framework) runHooks(analysis *types.ContentAnalysis) {
	f.mu.RLock()
	hooks := append([]Hook(nil), f.hooks...)
	f.mu.RUnlock()

	for _, h := range hooks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					f.logger.LogSafetyError(types.ErrIntegration, types.SeverityMedium,
						fmt.Sprintf("hook %s panicked: %v", h.Name(), r), "", analysis.SessionID)
				}
			}()
			if err := h.OnAnalysis(analysis); err != nil {
				f.logger.LogSafetyError(types.ErrIntegration, types.SeverityLow,
					fmt.Sprintf("hook %s failed: %v", h.Name(), err), "", analysis.SessionID)
			}
		}()
	}
}

// =============================================================================
// USER INTERACTION
// =============================================================================

// ProcessUserInteraction translates an interaction type to the appropriate
// engine call. Safety-critical paths never fail into continue: on internal
// error they default to the most conservative action.
func (f *Framework) ProcessUserInteraction(ctx context.Context, sessionID, interaction string, interactionType types.InteractionType) (types.SafetyAction, error) {
	s, ok := f.lookup(sessionID)

	switch interactionType {
	case types.InteractionSafeWord:
		// The fast path works even when the facade has lost the session.
		action := f.engine.HandleSafeWord(sessionID, interaction)
		if ok {
			f.recordEmergency(s, action, "safe word")
			f.pauseSession(s)
		}
		return action, nil

	case types.InteractionEmergency:
		_ = f.engine.HandleSafeWord(sessionID, interaction)
		if !ok {
			return types.ActionStop, nil
		}
		f.recordEmergency(s, types.ActionStop, "emergency interaction")
		f.terminateSession(s, "emergency")
		return types.ActionStop, nil

	case types.InteractionBoundaryCheck:
		if !ok {
			return types.ActionStop, fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
		}
		return f.checkBoundaries(s, interaction), nil

	case types.InteractionFeedback, types.InteractionGeneral:
		if !ok {
			return types.ActionStop, fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
		}
		f.logger.LogSafetyEvent(types.LevelDebug, "interaction",
			fmt.Sprintf("%s interaction received", interactionType), s.record.UserID, sessionID, nil)
		return types.ActionContinue, nil
	}

	// Unknown interaction types are treated conservatively.
	return types.ActionPause, fmt.Errorf("framework: unknown interaction type %q", interactionType)
}

func (f *Framework) checkBoundaries(s *session, interaction string) types.SafetyAction {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, boundary := range s.profile.Boundaries {
		if boundary.Description == "" {
			continue
		}
		if containsFold(interaction, boundary.Description) {
			if boundary.Type == types.BoundaryHard {
				return types.ActionPause
			}
			return types.ActionWarn
		}
	}
	return types.ActionContinue
}

func (f *Framework) recordEmergency(s *session, action types.SafetyAction, trigger string) {
	s.mu.Lock()
	s.record.EmergencyActions = append(s.record.EmergencyActions, types.EmergencyAction{
		Timestamp: f.now(),
		Action:    action,
		Trigger:   trigger,
	})
	userID := s.record.UserID
	sessionID := s.record.ID
	s.mu.Unlock()
	f.logger.EmergencyAction(userID, sessionID, trigger)
}

func (f *Framework) pauseSession(s *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.record.Status.CanTransition(types.SessionPaused) {
		s.record.Status = types.SessionPaused
	}
}

func (f *Framework) terminateSession(s *session, reason string) {
	s.mu.Lock()
	if !s.record.Status.CanTransition(types.SessionTerminated) {
		s.mu.Unlock()
		return
	}
	s.record.Status = types.SessionTerminated
	s.record.EndedAt = f.now()
	record := s.record
	userID := s.record.UserID
	sessionID := s.record.ID
	s.mu.Unlock()

	if _, err := f.engine.ProcessSessionEnd(sessionID, trauma.EndEmergency); err != nil {
		f.logger.LogSafetyError(types.ErrUserSafety, types.SeverityLow,
			fmt.Sprintf("aftercare failed: %v", err), userID, sessionID)
	}
	f.archiveSession(&record)

	f.mu.Lock()
	delete(f.sessions, sessionID)
	f.mu.Unlock()

	f.logger.SessionTerminated(userID, sessionID, reason)
}

// =============================================================================
// REPORTS AND KILL SWITCH
// =============================================================================

// GenerateSafetyReport aggregates the safety log over a window. Reporting is
// a non-critical path: it may return partial data but never disturbs live
// sessions.
func (f *Framework) GenerateSafetyReport(reportType string, timeRange logging.TimeRange) (*logging.SafetyReport, error) {
	if !f.isInitialized() {
		return nil, ErrNotInitialized
	}
	return f.logger.GenerateSafetyReportFromLogs(reportType, timeRange), nil
}

// EmergencyStopAll is the global kill switch. It forces every non-terminal
// session through the safe-word fast path and marks it terminated, returning
// the number of sessions stopped. Intensity is clamped synchronously; engine
// state is retained for post-mortem inspection until Shutdown. The switch
// remains reachable even if individual session state is corrupt: per-session
// failures are logged and counted, never propagated.
func (f *Framework) EmergencyStopAll(ctx context.Context, reason string) (int, error) {
	f.mu.RLock()
	targets := make([]*session, 0, len(f.sessions))
	for _, s := range f.sessions {
		targets = append(targets, s)
	}
	f.mu.RUnlock()

	var stopped int64
	var countMu sync.Mutex
	g, _ := errgroup.WithContext(ctx)
	for _, s := range targets {
		s := s
		g.Go(func() error {
			s.mu.Lock()
			sessionID := s.record.ID
			userID := s.record.UserID
			terminal := s.record.Status.Terminal()
			s.mu.Unlock()
			if terminal {
				return nil
			}

			defer func() {
				if r := recover(); r != nil {
					f.logger.LogSafetyError(types.ErrSystem, types.SeverityCritical,
						fmt.Sprintf("emergency stop panic for %s: %v", sessionID, r), userID, sessionID)
				}
			}()

			f.engine.HandleSafeWord(sessionID, reason)
			f.recordEmergency(s, types.ActionStop, "emergency stop all: "+reason)

			s.mu.Lock()
			s.record.Status = types.SessionTerminated
			s.record.EndedAt = f.now()
			record := s.record
			s.mu.Unlock()
			f.archiveSession(&record)
			f.logger.SessionTerminated(userID, sessionID, reason)

			countMu.Lock()
			stopped++
			countMu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	f.logger.LogSafetyEvent(types.LevelCritical, "framework",
		fmt.Sprintf("emergency stop: %d sessions stopped (%s)", stopped, reason), "", "", nil)
	return int(stopped), nil
}

func containsFold(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
