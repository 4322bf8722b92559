package trauma

import (
	"fmt"
	"time"

	"aegis/internal/types"
)

// GroundingKind names a class of stabilization exercise.
type GroundingKind string

const (
	GroundingBreathing GroundingKind = "breathing"
	GroundingSensory   GroundingKind = "sensory"
	GroundingCognitive GroundingKind = "cognitive"
)

// GroundingTechnique is one short guided exercise offered to stabilize a
// distressed user.
type GroundingTechnique struct {
	Kind     GroundingKind
	Name     string
	Steps    []string
	Duration time.Duration
}

var groundingTechniques = map[GroundingKind]GroundingTechnique{
	GroundingBreathing: {
		Kind: GroundingBreathing,
		Name: "Paced breathing",
		Steps: []string{
			"Breathe in slowly for four counts",
			"Hold for four counts",
			"Breathe out for six counts",
			"Repeat until your breath settles",
		},
		Duration: 2 * time.Minute,
	},
	GroundingSensory: {
		Kind: GroundingSensory,
		Name: "5-4-3-2-1 sensory check",
		Steps: []string{
			"Name five things you can see",
			"Name four things you can touch",
			"Name three things you can hear",
			"Name two things you can smell",
			"Name one thing you can taste",
		},
		Duration: 3 * time.Minute,
	},
	GroundingCognitive: {
		Kind: GroundingCognitive,
		Name: "Category naming",
		Steps: []string{
			"Pick a simple category, like animals or cities",
			"Name as many members as you can",
			"Switch categories when one runs dry",
		},
		Duration: 2 * time.Minute,
	},
}

// InitiateGroundingSequence selects grounding techniques for a session based
// on the current emotional state and stress indicators. At least one
// technique is always selected, even absent specific indicators.
func (e *Engine) InitiateGroundingSequence(sessionID string) ([]GroundingTechnique, error) {
	state, ok := e.lookup(sessionID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
	}
	return e.groundingSequence(state), nil
}

func (e *Engine) groundingSequence(state *SessionState) []GroundingTechnique {
	state.mu.Lock()
	emotional := state.User.CurrentState
	stress := state.User.StressIndicators
	threshold := state.User.StressThreshold
	state.GroundingSessions++
	state.mu.Unlock()

	var selected []GroundingTechnique
	if emotional == StateDistressed {
		selected = append(selected, groundingTechniques[GroundingBreathing])
	}
	if stress >= threshold {
		selected = append(selected, groundingTechniques[GroundingSensory])
	}
	if emotional == StateStressed || stress > 2 {
		selected = append(selected, groundingTechniques[GroundingCognitive])
	}
	if len(selected) == 0 {
		selected = append(selected, groundingTechniques[GroundingBreathing])
	}

	e.logger.LogSafetyEvent(types.LevelInfo, "grounding",
		fmt.Sprintf("grounding sequence initiated (%d techniques)", len(selected)),
		state.Profile.UserID, state.SessionID, nil)
	return selected
}
