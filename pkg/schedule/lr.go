package schedule

import (
	"fmt"
	"math"

	"github.com/nlpforge/bertrun/pkg/runconfig"
)

// LRSchedule evaluates the learning-rate multiplier of a run at any token
// position. The multiplier is relative to the base LR: 1.0 at full rate,
// AlphaF at the end of decay.
type LRSchedule struct {
	Name         string
	WarmupTokens int64
	TotalTokens  int64
	// DecayTokens is the length of the final decay phase. Only
	// warmup_stable_decay uses it; other schedules decay over everything
	// after warmup.
	DecayTokens int64
	AlphaF      float64
}

// NewLRSchedule resolves a config's scheduler block against the run clock.
func NewLRSchedule(cfg *runconfig.Config, clock Clock) (*LRSchedule, error) {
	total, err := clock.Tokens(cfg.MaxDuration)
	if err != nil {
		return nil, fmt.Errorf("max_duration: %w", err)
	}
	warmup, err := clock.Tokens(cfg.Scheduler.TWarmup)
	if err != nil {
		return nil, fmt.Errorf("scheduler t_warmup: %w", err)
	}

	s := &LRSchedule{
		Name:         cfg.Scheduler.Name,
		WarmupTokens: warmup,
		TotalTokens:  total,
		AlphaF:       cfg.Scheduler.AlphaF,
	}
	if cfg.Scheduler.TDecay != nil {
		decay, err := clock.Tokens(*cfg.Scheduler.TDecay)
		if err != nil {
			return nil, fmt.Errorf("scheduler t_decay: %w", err)
		}
		s.DecayTokens = decay
	}

	if s.WarmupTokens > s.TotalTokens {
		return nil, fmt.Errorf("warmup %d tokens exceeds total %d", s.WarmupTokens, s.TotalTokens)
	}
	if s.Name == "warmup_stable_decay" {
		if s.DecayTokens <= 0 {
			return nil, fmt.Errorf("warmup_stable_decay requires t_decay")
		}
		if s.WarmupTokens+s.DecayTokens > s.TotalTokens {
			return nil, fmt.Errorf("warmup %d + decay %d tokens exceed total %d",
				s.WarmupTokens, s.DecayTokens, s.TotalTokens)
		}
	}
	return s, nil
}

// Multiplier returns the LR multiplier at a token position, clamped to the
// run's duration.
func (s *LRSchedule) Multiplier(tok int64) float64 {
	if tok < 0 {
		tok = 0
	}
	if tok > s.TotalTokens {
		tok = s.TotalTokens
	}

	if tok < s.WarmupTokens {
		return float64(tok) / float64(s.WarmupTokens)
	}

	switch s.Name {
	case "constant_with_warmup":
		return 1
	case "linear_decay_with_warmup":
		return 1 - (1-s.AlphaF)*s.decayFraction(tok)
	case "cosine_with_warmup":
		tau := s.decayFraction(tok)
		return s.AlphaF + (1-s.AlphaF)*0.5*(1+math.Cos(math.Pi*tau))
	case "warmup_stable_decay":
		decayStart := s.TotalTokens - s.DecayTokens
		if tok <= decayStart {
			return 1
		}
		tau := float64(tok-decayStart) / float64(s.DecayTokens)
		return 1 - (1-s.AlphaF)*tau
	default:
		return 1
	}
}

// At returns the absolute learning rate at a token position.
func (s *LRSchedule) At(tok int64, baseLR float64) float64 {
	return baseLR * s.Multiplier(tok)
}

// decayFraction is progress through the post-warmup phase in [0, 1].
func (s *LRSchedule) decayFraction(tok int64) float64 {
	span := s.TotalTokens - s.WarmupTokens
	if span <= 0 {
		return 1
	}
	return float64(tok-s.WarmupTokens) / float64(span)
}

// Sample evaluates the schedule at n evenly spaced token positions, inclusive
// of both endpoints. Used for plan rendering.
func (s *LRSchedule) Sample(n int) []Point {
	if n < 2 {
		n = 2
	}
	points := make([]Point, n)
	for i := range points {
		tok := s.TotalTokens * int64(i) / int64(n-1)
		points[i] = Point{Tokens: tok, Multiplier: s.Multiplier(tok)}
	}
	return points
}

// Point is one sampled position of an LR schedule.
type Point struct {
	Tokens     int64
	Multiplier float64
}
