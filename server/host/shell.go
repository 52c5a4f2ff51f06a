package host

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gate4ai/hostbridge/shared/config"
	"go.uber.org/zap"
)

var (
	_ Platform      = (*ShellPlatform)(nil)
	_ HookRegistrar = (*ShellPlatform)(nil)
)

// ShellPlatform runs host actions as local commands. Rules are read from
// the configuration on every call so a reloaded file takes effect without
// a restart.
type ShellPlatform struct {
	cfg    config.IConfig
	logger *zap.Logger

	lookPath func(string) (string, error)
	start    func(name string, args ...string) error

	mu          sync.Mutex
	autoPip     bool
	inPip       bool
	hooks       Hooks
	hooksIsSet  bool
	destroyOnce sync.Once
}

func NewShellPlatform(cfg config.IConfig, logger *zap.Logger) *ShellPlatform {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShellPlatform{
		cfg:      cfg,
		logger:   logger.Named("shell-platform"),
		lookPath: exec.LookPath,
		start:    startDetached,
	}
}

func startDetached(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

func (p *ShellPlatform) rules() []config.ActionRule {
	rules, err := p.cfg.HostActions()
	if err != nil {
		p.logger.Warn("Failed to read host actions", zap.Error(err))
		return nil
	}
	return rules
}

func (p *ShellPlatform) match(a *Action) (*config.ActionRule, bool) {
	for _, r := range p.rules() {
		if r.Action != a.Name || len(r.Command) == 0 {
			continue
		}
		if r.Component != "" && r.Component != a.Component.String() {
			continue
		}
		if r.MIMEType != "" && r.MIMEType != a.MIMEType {
			continue
		}
		rule := r
		if _, err := p.lookPath(rule.Command[0]); err != nil {
			continue
		}
		return &rule, true
	}
	return nil, false
}

func (p *ShellPlatform) Resolve(a *Action) bool {
	_, ok := p.match(a)
	return ok
}

func (p *ShellPlatform) Launch(a *Action) error {
	rule, ok := p.match(a)
	if !ok {
		return fmt.Errorf("no handler for %s", a.Name)
	}
	argv := expand(rule.Command, a)
	p.logger.Info("Launching host action", zap.Stringer("action", a), zap.Strings("argv", argv))
	if err := p.start(argv[0], argv[1:]...); err != nil {
		return fmt.Errorf("start %s: %w", argv[0], err)
	}
	return nil
}

func expand(tmpl []string, a *Action) []string {
	out := make([]string, len(tmpl))
	for i, arg := range tmpl {
		arg = strings.ReplaceAll(arg, "{data}", a.Data)
		arg = strings.ReplaceAll(arg, "{type}", a.MIMEType)
		arg = strings.ReplaceAll(arg, "{component}", a.Component.String())
		out[i] = expandExtras(arg, a)
	}
	return out
}

// expandExtras replaces {extra:KEY} placeholders in one pass. Inserted values
// are never scanned again.
func expandExtras(arg string, a *Action) string {
	const open = "{extra:"
	var b strings.Builder
	for {
		start := strings.Index(arg, open)
		if start < 0 {
			break
		}
		end := strings.IndexByte(arg[start:], '}')
		if end < 0 {
			break
		}
		b.WriteString(arg[:start])
		b.WriteString(a.ExtraString(arg[start+len(open) : start+end]))
		arg = arg[start+end+1:]
	}
	b.WriteString(arg)
	return b.String()
}

func (p *ShellPlatform) FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !info.IsDir(), nil
}

func (p *ShellPlatform) ContentReference(path string) (string, error) {
	authority, err := p.cfg.FileProviderAuthority()
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return ContentURI(authority, abs), nil
}

func (p *ShellPlatform) PackageName() string {
	name, err := p.cfg.HostPackageName()
	if err != nil {
		p.logger.Warn("Host package name not configured", zap.Error(err))
		return ""
	}
	return name
}

func (p *ShellPlatform) APILevel() int {
	level, err := p.cfg.HostAPILevel()
	if err != nil {
		p.logger.Warn("Host API level not configured", zap.Error(err))
		return 0
	}
	return level
}

func (p *ShellPlatform) SetAutoEnterPictureInPicture(enabled bool) error {
	p.mu.Lock()
	p.autoPip = enabled
	p.mu.Unlock()
	p.logger.Info("Picture-in-picture auto enter updated", zap.Bool("enabled", enabled))
	return nil
}

// AutoEnterPictureInPicture reports the last value set by the runtime.
func (p *ShellPlatform) AutoEnterPictureInPicture() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.autoPip
}

func (p *ShellPlatform) RegisterHooks(h Hooks) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hooks = h
	p.hooksIsSet = true
}

func (p *ShellPlatform) currentHooks() (Hooks, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hooks, p.hooksIsSet
}

// UserLeaveHint fires the user-leave hook.
func (p *ShellPlatform) UserLeaveHint() {
	if h, ok := p.currentHooks(); ok && h.OnUserLeaveHint != nil {
		h.OnUserLeaveHint()
	}
}

// PictureInPictureModeChanged records the mode and fires the hook.
func (p *ShellPlatform) PictureInPictureModeChanged(inPip bool) {
	p.mu.Lock()
	p.inPip = inPip
	p.mu.Unlock()
	if h, ok := p.currentHooks(); ok && h.OnPictureInPictureModeChanged != nil {
		h.OnPictureInPictureModeChanged(inPip)
	}
}

func (p *ShellPlatform) InPictureInPicture() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inPip
}

// Destroy fires the destroy hook at most once.
func (p *ShellPlatform) Destroy() {
	p.destroyOnce.Do(func() {
		if h, ok := p.currentHooks(); ok && h.OnDestroy != nil {
			h.OnDestroy()
		}
	})
}
