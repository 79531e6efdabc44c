package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for throttle tracking.
var (
	throttleLoadPercent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chemidr_throttle_load_percent",
		Help: "Highest reported PubChem throttling load percentage",
	})

	throttleBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chemidr_throttle_blocks_total",
		Help: "Total number of requests blocked due to red/black throttling status",
	})

	throttleDelaysTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chemidr_throttle_delays_total",
		Help: "Total number of requests delayed due to yellow throttling status",
	})
)

// Tracker monitors PubChem throttling-control state and gates requests.
type Tracker struct {
	redis  *redis.Client
	logger zerolog.Logger
}

// NewTracker creates a new throttle tracker.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:  redisClient,
		logger: logger,
	}
}

// GetState retrieves the current throttle state from Redis.
// Returns a healthy default state if no data exists.
func (t *Tracker) GetState(ctx context.Context) (*State, error) {
	data, err := t.redis.Get(ctx, RedisKeyThrottleState).Bytes()
	if err == redis.Nil {
		t.logger.Debug().Msg("No throttle state in Redis, returning default healthy state")
		return &State{
			Status:     StatusGreen,
			MaxLoad:    0,
			LastUpdate: time.Now(),
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get throttle state: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse throttle state: %w", err)
	}

	return &state, nil
}

// UpdateFromHeaders parses the X-Throttling-Control response header and stores
// the resulting state in Redis. Responses without the header are ignored
// (E-utilities does not send it).
func (t *Tracker) UpdateFromHeaders(ctx context.Context, headers http.Header) error {
	value := headers.Get("X-Throttling-Control")
	if value == "" {
		return nil
	}

	state, ok := ParseThrottlingControl(value)
	if !ok {
		return fmt.Errorf("unrecognized X-Throttling-Control header: %q", value)
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal throttle state: %w", err)
	}

	if err := t.redis.Set(ctx, RedisKeyThrottleState, data, StateTTL).Err(); err != nil {
		return fmt.Errorf("store throttle state in redis: %w", err)
	}

	throttleLoadPercent.Set(float64(state.MaxLoad))

	logEvent := t.logger.Info().
		Str("status", string(state.Status)).
		Int("max_load", state.MaxLoad)

	if state.NeedsBlock() {
		logEvent = t.logger.Error().
			Str("status", string(state.Status)).
			Int("max_load", state.MaxLoad)
		logEvent.Msg("PubChem throttling CRITICAL - requests will be blocked")
	} else if state.NeedsThrottling() {
		logEvent = t.logger.Warn().
			Str("status", string(state.Status)).
			Int("max_load", state.MaxLoad)
		logEvent.Msg("PubChem throttling WARNING - requests will be delayed")
	} else {
		logEvent.Msg("PubChem throttling state updated")
	}

	return nil
}

// ShouldAllowRequest checks if a request should be allowed based on the shared
// throttle state. Returns false if the request should be blocked.
// May sleep for one second to slow down in the yellow state.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, fmt.Errorf("get throttle state: %w", err)
	}

	// Stale state no longer gates; upstream load has likely moved on.
	if state.IsStale(StateTTL) {
		return true, nil
	}

	if state.NeedsBlock() {
		t.logger.Error().
			Str("status", string(state.Status)).
			Int("max_load", state.MaxLoad).
			Msg("PubChem throttling critical - blocking request")

		throttleBlocksTotal.Inc()
		return false, nil
	}

	if state.NeedsThrottling() {
		t.logger.Warn().
			Str("status", string(state.Status)).
			Int("max_load", state.MaxLoad).
			Msg("PubChem throttling warning - delaying request")

		throttleDelaysTotal.Inc()

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(1 * time.Second):
		}
	}

	return true, nil
}
