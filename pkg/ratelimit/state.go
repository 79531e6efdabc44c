// Package ratelimit implements PubChem throttling-control tracking and request
// gating. PUG-REST reports per-user load via the X-Throttling-Control response
// header; this package parses it to slow down before the service starts
// rejecting requests outright.
package ratelimit

import (
	"regexp"
	"strconv"
	"time"
)

// Redis key for shared throttle state storage.
const (
	RedisKeyThrottleState = "chemidr:throttle:state"

	// StateTTL bounds how long stored state stays authoritative.
	StateTTL = 5 * time.Minute
)

// Status is the traffic-light status PubChem reports per throttling counter.
type Status string

const (
	// StatusGreen indicates normal load; no restrictions apply.
	StatusGreen Status = "green"

	// StatusYellow indicates elevated load; requests should be slowed down.
	StatusYellow Status = "yellow"

	// StatusRed indicates the limit is nearly reached; requests should stop.
	StatusRed Status = "red"

	// StatusBlack indicates the user is being blocked upstream.
	StatusBlack Status = "black"

	// StatusUnknown indicates no throttling information is available.
	StatusUnknown Status = "unknown"
)

// severity orders statuses from healthy to blocked.
var severity = map[Status]int{
	StatusUnknown: 0,
	StatusGreen:   1,
	StatusYellow:  2,
	StatusRed:     3,
	StatusBlack:   4,
}

// State represents the current upstream throttling state.
// This state is shared across all client instances via Redis.
type State struct {
	// Status is the worst traffic-light status across the reported counters.
	Status Status `json:"status"`

	// MaxLoad is the highest load percentage across the reported counters.
	MaxLoad int `json:"max_load"`

	// LastUpdate is when this state was extracted from a response header.
	LastUpdate time.Time `json:"last_update"`
}

// throttlePattern matches one counter in the X-Throttling-Control header,
// e.g. "Request Count status: Green (20%)".
var throttlePattern = regexp.MustCompile(`(?i)(Green|Yellow|Red|Black)\s*\((\d+)%\)`)

// ParseThrottlingControl parses an X-Throttling-Control header value into a
// State holding the worst status and highest load across all counters.
// Returns false if the value contains no recognizable counter.
func ParseThrottlingControl(value string) (*State, bool) {
	matches := throttlePattern.FindAllStringSubmatch(value, -1)
	if len(matches) == 0 {
		return nil, false
	}

	state := &State{
		Status:     StatusUnknown,
		LastUpdate: time.Now(),
	}

	for _, m := range matches {
		status := normalizeStatus(m[1])
		if severity[status] > severity[state.Status] {
			state.Status = status
		}

		load, err := strconv.Atoi(m[2])
		if err == nil && load > state.MaxLoad {
			state.MaxLoad = load
		}
	}

	return state, true
}

func normalizeStatus(s string) Status {
	switch len(s) {
	case 0:
		return StatusUnknown
	}
	switch s[0] {
	case 'G', 'g':
		return StatusGreen
	case 'Y', 'y':
		return StatusYellow
	case 'R', 'r':
		return StatusRed
	case 'B', 'b':
		return StatusBlack
	default:
		return StatusUnknown
	}
}

// NeedsBlock returns true if requests should be stopped entirely.
func (s *State) NeedsBlock() bool {
	return s.Status == StatusRed || s.Status == StatusBlack
}

// NeedsThrottling returns true if requests should be slowed down.
func (s *State) NeedsThrottling() bool {
	return s.Status == StatusYellow
}

// IsHealthy returns true when no restrictions apply.
func (s *State) IsHealthy() bool {
	return !s.NeedsBlock() && !s.NeedsThrottling()
}

// IsStale returns true if the state is older than the given duration.
// Stale state should not gate requests.
func (s *State) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}
