package host

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrUnavailable is returned by a strategy that does not apply to this host.
var ErrUnavailable = errors.New("strategy unavailable")

// Strategy builds a fresh Action for one step of a fallback chain.
type Strategy struct {
	Name  string
	Build func() (*Action, error)
}

// Invoker attempts host actions and runs fallback chains over them.
type Invoker struct {
	platform Platform
	logger   *zap.Logger
}

func NewInvoker(platform Platform, logger *zap.Logger) *Invoker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Invoker{platform: platform, logger: logger.Named("invoker")}
}

func (i *Invoker) Platform() Platform {
	return i.platform
}

// Attempt probes the action and launches it if it resolves. Non-resolution
// is a normal outcome and yields false.
func (i *Invoker) Attempt(a *Action) bool {
	if !i.platform.Resolve(a) {
		i.logger.Debug("Action does not resolve", zap.Stringer("action", a))
		return false
	}
	if err := i.platform.Launch(a); err != nil {
		i.logger.Warn("Resolved action failed to launch", zap.Stringer("action", a), zap.Error(err))
		return false
	}
	return true
}

// Invoke launches the action without probing and discards any failure.
func (i *Invoker) Invoke(a *Action) {
	if err := i.platform.Launch(a); err != nil {
		i.logger.Debug("Best-effort action failed", zap.Stringer("action", a), zap.Error(err))
	}
}

// FirstResolving tries strategies in order and stops at the first one that
// both resolves and launches. It returns false when none does.
func (i *Invoker) FirstResolving(strategies ...Strategy) bool {
	for _, s := range strategies {
		a, err := i.build(s)
		if err != nil {
			i.logger.Debug("Skipping strategy", zap.String("strategy", s.Name), zap.Error(err))
			continue
		}
		if i.Attempt(a) {
			i.logger.Debug("Strategy launched", zap.String("strategy", s.Name))
			return true
		}
	}
	return false
}

func (i *Invoker) build(s Strategy) (a *Action, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("strategy %s panicked: %v", s.Name, r)
		}
	}()
	if s.Build == nil {
		return nil, ErrUnavailable
	}
	a, err = s.Build()
	if err == nil && a == nil {
		err = ErrUnavailable
	}
	return a, err
}

// When returns build if cond holds and a builder reporting ErrUnavailable
// otherwise.
func When(cond bool, build func() (*Action, error)) func() (*Action, error) {
	if cond {
		return build
	}
	return func() (*Action, error) { return nil, ErrUnavailable }
}
