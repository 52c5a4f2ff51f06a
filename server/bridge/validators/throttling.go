package validators

import (
	"errors"
	"sync"

	"github.com/gate4ai/hostbridge/shared"
	"golang.org/x/time/rate"
)

var (
	ErrRPMExceeded = errors.New("RPM throttling limit exceeded")
	ErrRPSExceeded = errors.New("RPS throttling limit exceeded")
)

// Throttling limits the rate of messages per session using RPM (requests per
// minute) and RPS (requests per second). Limits stored in the session params
// under RPMParamKey and RPSParamKey override the defaults.
type Throttling struct {
	defaultRPM int
	defaultRPS int
	mu         sync.RWMutex
}

const (
	RPMParamKey      = "throttling_rpm"
	RPSParamKey      = "throttling_rps"
	LimitersParamKey = "throttling_limiters"
)

type limiterPair struct {
	rpsLimiter *rate.Limiter
	rpmLimiter *rate.Limiter
}

func NewThrottling(defaultRPS, defaultRPM int) *Throttling {
	return &Throttling{
		defaultRPM: defaultRPM,
		defaultRPS: defaultRPS,
	}
}

// SetDefaults changes the limits used for sessions created afterwards.
func (t *Throttling) SetDefaults(rps, rpm int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.defaultRPS = rps
	t.defaultRPM = rpm
}

func (t *Throttling) getLimiters(session shared.ISession) *limiterPair {
	sessionParams := session.GetParams()

	if value, ok := sessionParams.Load(LimitersParamKey); ok {
		if pair, ok := value.(*limiterPair); ok && pair != nil {
			return pair
		}
	}

	t.mu.RLock()
	rpm := t.defaultRPM
	rps := t.defaultRPS
	t.mu.RUnlock()

	if v, ok := sessionParams.Load(RPMParamKey); ok {
		if n, ok := v.(int); ok && n > 0 {
			rpm = n
		}
	}
	if v, ok := sessionParams.Load(RPSParamKey); ok {
		if n, ok := v.(int); ok && n > 0 {
			rps = n
		}
	}

	pair := &limiterPair{}
	if rpm > 0 {
		pair.rpmLimiter = rate.NewLimiter(rate.Limit(rpm)/60.0, rpm)
	}
	if rps > 0 {
		pair.rpsLimiter = rate.NewLimiter(rate.Limit(rps), rps)
	}

	actual, _ := sessionParams.LoadOrStore(LimitersParamKey, pair)
	return actual.(*limiterPair)
}

// Validate implements the MessageValidator interface
func (t *Throttling) Validate(msg *shared.Message) error {
	if msg.Session == nil {
		return nil
	}
	pair := t.getLimiters(msg.Session)

	if pair.rpmLimiter != nil && !pair.rpmLimiter.Allow() {
		return ErrRPMExceeded
	}
	if pair.rpsLimiter != nil && !pair.rpsLimiter.Allow() {
		return ErrRPSExceeded
	}
	return nil
}
