package trauma

import (
	"fmt"
	"time"

	"aegis/internal/types"
)

// EndReason classifies how a session ended.
type EndReason string

const (
	EndNormal    EndReason = "normal"
	EndEmergency EndReason = "emergency"
	EndTimeout   EndReason = "timeout"
)

// AftercareLevel selects the protocol depth.
type AftercareLevel string

const (
	AftercareStandard  AftercareLevel = "standard"
	AftercareIntensive AftercareLevel = "intensive"
)

// AftercareProtocol is the scheduled set of post-session activities and
// check-ins selected by session-end reason.
type AftercareProtocol struct {
	Level      AftercareLevel
	Activities []string
	FollowUps  []time.Time
}

// ProcessSessionEnd selects an aftercare protocol, schedules follow-up
// check-ins, and discards the session state. The protocol is intensive when
// the session ended via emergency or any safe word was used during it.
func (e *Engine) ProcessSessionEnd(sessionID string, reason EndReason) (*AftercareProtocol, error) {
	state, ok := e.lookup(sessionID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
	}

	state.mu.Lock()
	safeWordUsed := len(state.SafeWordsUsed) > 0
	if reason == EndEmergency {
		state.EndedViaEmergency = true
	}
	userID := state.Profile.UserID
	state.mu.Unlock()

	level := AftercareStandard
	if reason == EndEmergency || safeWordUsed {
		level = AftercareIntensive
	}

	now := e.now()
	protocol := &AftercareProtocol{Level: level}
	switch level {
	case AftercareIntensive:
		protocol.Activities = []string{
			"Immediate grounding exercise",
			"Hydration and rest reminder",
			"Offer emergency contact notification",
			"Provide crisis resource list",
		}
		protocol.FollowUps = []time.Time{
			now.Add(1 * time.Hour),
			now.Add(24 * time.Hour),
			now.Add(72 * time.Hour),
		}
	default:
		protocol.Activities = []string{
			"Session reflection prompt",
			"Hydration and rest reminder",
		}
		protocol.FollowUps = []time.Time{
			now.Add(24 * time.Hour),
		}
	}

	e.mu.Lock()
	delete(e.sessions, sessionID)
	e.mu.Unlock()

	e.logger.LogSafetyEvent(types.LevelInfo, "aftercare",
		fmt.Sprintf("aftercare protocol selected: %s", level), userID, sessionID, nil)
	return protocol, nil
}
