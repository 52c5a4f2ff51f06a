// Package hosttest provides an in-memory host platform for tests.
package hosttest

import (
	"errors"
	"sync"

	"github.com/gate4ai/hostbridge/server/host"
)

var _ host.Platform = (*Platform)(nil)

// Platform records every action it is asked to resolve or launch.
// Resolvable decides resolution; nil resolves nothing. LaunchErr, when set,
// may fail a launch for matching actions.
type Platform struct {
	mu sync.Mutex

	Resolvable func(a *host.Action) bool
	LaunchErr  func(a *host.Action) error
	Files      map[string]bool
	StatErr    error
	Authority  string
	Package    string
	Level      int
	PipErr     error

	Resolved []*host.Action
	Launched []*host.Action
	AutoPip  []bool
}

func New(level int) *Platform {
	return &Platform{
		Files:     map[string]bool{},
		Authority: "com.example.piliplus.fileprovider",
		Package:   "com.example.piliplus",
		Level:     level,
	}
}

// ResolveNames makes actions with the given names resolvable.
func (p *Platform) ResolveNames(names ...string) *Platform {
	set := map[string]bool{}
	for _, n := range names {
		set[n] = true
	}
	p.Resolvable = func(a *host.Action) bool { return set[a.Name] }
	return p
}

func (p *Platform) Resolve(a *host.Action) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Resolved = append(p.Resolved, a)
	return p.Resolvable != nil && p.Resolvable(a)
}

func (p *Platform) Launch(a *host.Action) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.LaunchErr != nil {
		if err := p.LaunchErr(a); err != nil {
			return err
		}
	}
	p.Launched = append(p.Launched, a)
	return nil
}

func (p *Platform) FileExists(path string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.StatErr != nil {
		return false, p.StatErr
	}
	return p.Files[path], nil
}

func (p *Platform) ContentReference(path string) (string, error) {
	if p.Authority == "" {
		return "", errors.New("no file provider authority")
	}
	return host.ContentURI(p.Authority, path), nil
}

func (p *Platform) PackageName() string { return p.Package }

func (p *Platform) APILevel() int { return p.Level }

func (p *Platform) SetAutoEnterPictureInPicture(enabled bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.PipErr != nil {
		return p.PipErr
	}
	p.AutoPip = append(p.AutoPip, enabled)
	return nil
}

// LaunchedNames returns the names of launched actions in order.
func (p *Platform) LaunchedNames() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, len(p.Launched))
	for i, a := range p.Launched {
		names[i] = a.Name
	}
	return names
}

// ResolvedNames returns the names of probed actions in order.
func (p *Platform) ResolvedNames() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, len(p.Resolved))
	for i, a := range p.Resolved {
		names[i] = a.Name
	}
	return names
}

// LastLaunched returns the most recent launched action or nil.
func (p *Platform) LastLaunched() *host.Action {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.Launched) == 0 {
		return nil
	}
	return p.Launched[len(p.Launched)-1]
}
