package trauma

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"aegis/internal/config"
	"aegis/internal/logging"
	"aegis/internal/types"
)

// ErrUnknownSession is returned when an operation references a session the
// engine is not tracking. Safe-word handling never returns it; it degrades
// to the global stop action instead.
var ErrUnknownSession = errors.New("trauma: unknown session")

// Engine is the trauma-informed pacing engine. Sessions are independent
// units of state keyed by session id; the engine map lock is held only for
// lookup, never across per-session work.
type Engine struct {
	cfg    *config.SafetyConfiguration
	logger *logging.SafetyLogger

	mu       sync.RWMutex
	sessions map[string]*SessionState

	assessTicker *time.Ticker
	assessDone   chan struct{}

	now func() time.Time
}

// NewEngine creates an engine bound to a configuration snapshot.
func NewEngine(cfg *config.SafetyConfiguration, logger *logging.SafetyLogger) *Engine {
	return &Engine{
		cfg:      cfg,
		logger:   logger,
		sessions: make(map[string]*SessionState),
		now:      time.Now,
	}
}

// InitializeSession creates the per-session state for a user.
func (e *Engine) InitializeSession(sessionID string, profile *types.UserSafetyProfile) (*SessionState, error) {
	if sessionID == "" || profile == nil {
		return nil, fmt.Errorf("trauma: session id and profile required")
	}

	start := types.IntensityVeryMild
	if profile.Intensity.Preferred < start {
		start = profile.Intensity.Preferred
	}

	state := &SessionState{
		SessionID:        sessionID,
		Profile:          profile,
		CurrentIntensity: start,
		User: UserState{
			BaselineState:    StateCalm,
			CurrentState:     StateCalm,
			StressThreshold:  stressThresholdForRisk(profile.RiskLevel),
			ComfortLevel:     7,
			Engagement:       EngagementSteady,
			CopingStrategies: copingStrategiesFor(profile),
		},
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.sessions[sessionID]; exists {
		return nil, fmt.Errorf("trauma: session %s already initialized", sessionID)
	}
	e.sessions[sessionID] = state
	return state, nil
}

func (e *Engine) lookup(sessionID string) (*SessionState, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	state, ok := e.sessions[sessionID]
	return state, ok
}

// Session returns the live state for a session.
func (e *Engine) Session(sessionID string) (*SessionState, error) {
	state, ok := e.lookup(sessionID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
	}
	return state, nil
}

// ActiveSessionIDs returns the ids of every session the engine tracks.
func (e *Engine) ActiveSessionIDs() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ids := make([]string, 0, len(e.sessions))
	for id := range e.sessions {
		ids = append(ids, id)
	}
	return ids
}

// =============================================================================
// CONTENT PROCESSING
// =============================================================================

// ProcessResult is the engine's verdict on one analyzed piece of content.
type ProcessResult struct {
	Analysis *types.ContentAnalysis
	Action   types.SafetyAction
}

// ProcessContent applies per-user pacing to a content analysis: intensity
// scaling, warning enhancement, pacing adjustment, and boundary checking.
// The input analysis is not mutated; an adjusted copy is returned.
func (e *Engine) ProcessContent(sessionID string, analysis *types.ContentAnalysis) (*ProcessResult, error) {
	state, ok := e.lookup(sessionID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
	}
	if analysis == nil {
		return nil, fmt.Errorf("trauma: nil analysis")
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	adjusted := *analysis
	adjusted.TriggerWarnings = append([]types.TriggerWarning(nil), analysis.TriggerWarnings...)
	e.assessLocked(state, &adjusted)

	// Intensity scaling: back off one level when the user is distressed or
	// stress is accumulating, then clamp to the user's declared maximum.
	intensity := adjusted.ContentIntensity
	if state.User.CurrentState == StateDistressed || state.User.StressIndicators > 2 {
		if intensity > types.IntensityVeryMild {
			intensity--
		}
	}
	if max := state.Profile.Intensity.Maximum; intensity > max {
		intensity = max
	}

	// User-specific severity bumps for declared trigger categories.
	for i, warning := range adjusted.TriggerWarnings {
		for _, declared := range state.Profile.TriggerCategories {
			if warning.Category == declared {
				adjusted.TriggerWarnings[i].Severity = bumpSeverity(warning.Severity)
				break
			}
		}
	}

	// Pacing: one further reduction when the user is overwhelmed or
	// uncomfortable.
	if state.User.Engagement == EngagementOverwhelmed || state.User.ComfortLevel < 5 {
		if intensity > types.IntensityVeryMild {
			state.PacingHistory = append(state.PacingHistory, PacingAdjustment{
				Timestamp: e.now(),
				From:      intensity,
				To:        intensity - 1,
				Reason:    "pacing reduction",
			})
			intensity--
		}
	}
	adjusted.ContentIntensity = intensity

	action := types.ActionContinue
	for _, warning := range adjusted.TriggerWarnings {
		if warning.Severity == types.SeverityCritical {
			action = types.ActionWarn
		}
	}

	// Boundary check. Any hard-boundary violation escalates overall risk
	// and recommends a pause.
	for _, boundary := range state.Profile.Boundaries {
		for _, warning := range adjusted.TriggerWarnings {
			if warning.Category != boundary.Category {
				continue
			}
			violation := types.Violation{
				Timestamp:   e.now(),
				Category:    boundary.Category,
				Boundary:    boundary.Type,
				Description: boundary.Description,
			}
			state.BoundaryViolations = append(state.BoundaryViolations, violation)
			e.logger.BoundaryViolation(state.Profile.UserID, sessionID, boundary.Category)
			if boundary.Type == types.BoundaryHard {
				adjusted.Risk.OverallRisk = types.RiskHigh
				adjusted.Risk.RecommendedActions = append(adjusted.Risk.RecommendedActions, types.ActionPause)
				action = types.ActionPause
			}
		}
	}

	return &ProcessResult{Analysis: &adjusted, Action: action}, nil
}

// assessLocked updates the user-state assessment from the incoming
// analysis. Caller holds state.mu.
func (e *Engine) assessLocked(state *SessionState, analysis *types.ContentAnalysis) {
	for _, warning := range analysis.TriggerWarnings {
		switch warning.Severity {
		case types.SeverityCritical:
			state.User.StressIndicators += 2
		case types.SeverityHigh:
			state.User.StressIndicators++
		}
	}

	switch {
	case state.User.StressIndicators >= state.User.StressThreshold:
		state.User.CurrentState = StateDistressed
		state.User.Engagement = EngagementOverwhelmed
		if state.User.ComfortLevel > 3 {
			state.User.ComfortLevel = 3
		}
	case state.User.StressIndicators > 2:
		state.User.CurrentState = StateStressed
	case state.User.StressIndicators > 0:
		state.User.CurrentState = StateEngaged
	}
}

func bumpSeverity(s types.Severity) types.Severity {
	switch s {
	case types.SeverityLow:
		return types.SeverityMedium
	case types.SeverityMedium:
		return types.SeverityHigh
	default:
		return types.SeverityCritical
	}
}

// =============================================================================
// SAFE WORD FAST PATH
// =============================================================================

// HandleSafeWord is the single emergency fast path. It forces intensity to
// the minimum immediately, records the word, marks the user distressed,
// starts a grounding sequence, and returns pause. It must never be delayed
// or queued, and it succeeds even when session lookup fails: an unknown
// session degrades to the global stop action rather than an error.
func (e *Engine) HandleSafeWord(sessionID, word string) types.SafetyAction {
	state, ok := e.lookup(sessionID)
	if !ok {
		e.logger.LogSafetyError(types.ErrUserSafety, types.SeverityHigh,
			"safe word for unknown session, degrading to stop", "", sessionID)
		return types.ActionStop
	}

	state.mu.Lock()
	state.CurrentIntensity = types.IntensityVeryMild
	state.SafeWordsUsed = append(state.SafeWordsUsed, SafeWordEvent{Word: word, Timestamp: e.now()})
	state.User.CurrentState = StateDistressed
	state.mu.Unlock()

	e.logger.EmergencyAction(state.Profile.UserID, sessionID, "safe word")
	e.groundingSequence(state)
	return types.ActionPause
}

// =============================================================================
// INTENSITY RAMPING
// =============================================================================

// AdjustContentIntensity throttles intensity escalation within a session.
// It rejects a change that jumps more than one ordinal level, exceeds the
// per-session ramp cap, or arrives before the minimum inter-change interval
// has elapsed. On rejection it returns false and leaves state unchanged.
func (e *Engine) AdjustContentIntensity(sessionID string, target types.ContentIntensity) (bool, error) {
	state, ok := e.lookup(sessionID)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
	}
	if !target.Valid() {
		return false, fmt.Errorf("trauma: invalid intensity %d", target)
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	current := state.CurrentIntensity
	if target == current {
		return true, nil
	}

	delta := int(target) - int(current)
	if delta > 1 || delta < -1 {
		return false, nil
	}

	if delta > 0 {
		if state.RampProgress >= e.cfg.Pacing.MaxRampSteps {
			return false, nil
		}
		interval := time.Duration(e.cfg.Pacing.RampIntervalMinutes) * time.Minute
		if !state.LastIntensityChange.IsZero() && e.now().Sub(state.LastIntensityChange) < interval {
			return false, nil
		}
		if target > state.Profile.Intensity.Maximum || target > e.cfg.MaxContentIntensity {
			return false, nil
		}
		state.RampProgress++
	}

	state.PacingHistory = append(state.PacingHistory, PacingAdjustment{
		Timestamp: e.now(),
		From:      current,
		To:        target,
		Reason:    "requested adjustment",
	})
	state.CurrentIntensity = target
	state.LastIntensityChange = e.now()
	return true, nil
}

// =============================================================================
// PERIODIC ASSESSMENT
// =============================================================================

// StartAssessment begins the fixed-interval state-assessment tick. Each tick
// decays stress indicators one step and recovers comfort, so a quiet session
// drifts back toward baseline.
func (e *Engine) StartAssessment() {
	e.mu.Lock()
	if e.assessTicker != nil {
		e.mu.Unlock()
		return
	}
	interval := time.Duration(e.cfg.CheckIntervalSeconds) * time.Second
	e.assessTicker = time.NewTicker(interval)
	e.assessDone = make(chan struct{})
	ticker := e.assessTicker
	done := e.assessDone
	e.mu.Unlock()

	go func() {
		for {
			select {
			case <-ticker.C:
				e.assessAll()
			case <-done:
				return
			}
		}
	}()
}

func (e *Engine) assessAll() {
	e.mu.RLock()
	states := make([]*SessionState, 0, len(e.sessions))
	for _, state := range e.sessions {
		states = append(states, state)
	}
	e.mu.RUnlock()

	for _, state := range states {
		state.mu.Lock()
		if state.User.StressIndicators > 0 {
			state.User.StressIndicators--
		}
		if state.User.ComfortLevel < 10 {
			state.User.ComfortLevel++
		}
		if state.User.StressIndicators == 0 && state.User.CurrentState != StateDistressed {
			state.User.CurrentState = state.User.BaselineState
			state.User.Engagement = EngagementSteady
		}
		state.mu.Unlock()
	}
}

// StopAssessment halts the assessment tick. Safe to call more than once; a
// later StartAssessment begins a fresh tick.
func (e *Engine) StopAssessment() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.assessTicker == nil {
		return
	}
	e.assessTicker.Stop()
	close(e.assessDone)
	e.assessTicker = nil
	e.assessDone = nil
}

// SetClock swaps the engine's time source. Test hook.
func (e *Engine) SetClock(now func() time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = now
}
