package gesture

import "time"

// DefaultCooldowns are the per-gesture trigger windows. Short percussive
// poses re-trigger quickly; chord-like poses are held longer.
func DefaultCooldowns() map[Kind]time.Duration {
	return map[Kind]time.Duration{
		Fist:     100 * time.Millisecond,
		Point:    100 * time.Millisecond,
		Peace:    250 * time.Millisecond,
		Three:    250 * time.Millisecond,
		Four:     500 * time.Millisecond,
		OpenHand: 500 * time.Millisecond,
	}
}

// Policy decides which classified gestures become audible triggers for
// one context. Reporting is not its concern: every classification is
// reported by the caller. A Policy is not safe for concurrent use; each
// connection or control loop owns its own.
type Policy struct {
	cooldowns map[Kind]time.Duration
	fallback  time.Duration

	lastLabel Kind
	lastTime  time.Time
	armed     bool
}

// NewPolicy copies cooldowns; kinds missing from the map use fallback.
func NewPolicy(cooldowns map[Kind]time.Duration, fallback time.Duration) *Policy {
	cp := make(map[Kind]time.Duration, len(cooldowns))
	for k, d := range cooldowns {
		cp[k] = d
	}
	return &Policy{cooldowns: cp, fallback: fallback}
}

func (p *Policy) Cooldown(k Kind) time.Duration {
	if d, ok := p.cooldowns[k]; ok {
		return d
	}
	return p.fallback
}

// Observe records a classification at time now and reports whether it
// fires a trigger: the label changed since the last trigger, or the
// label's cooldown has elapsed.
func (p *Policy) Observe(k Kind, now time.Time) bool {
	if p.armed && k == p.lastLabel && now.Sub(p.lastTime) <= p.Cooldown(k) {
		return false
	}
	p.lastLabel = k
	p.lastTime = now
	p.armed = true
	return true
}

// Last returns the last triggered label, if any.
func (p *Policy) Last() (Kind, time.Time, bool) {
	return p.lastLabel, p.lastTime, p.armed
}

func (p *Policy) Reset() {
	p.lastLabel = 0
	p.lastTime = time.Time{}
	p.armed = false
}
