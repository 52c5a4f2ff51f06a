package bridge

import (
	"fmt"
	"runtime/debug"
	"sort"
	"sync"

	"github.com/gate4ai/hostbridge/shared"
	"github.com/gate4ai/hostbridge/shared/args"
	"github.com/gate4ai/hostbridge/shared/schema"
	"go.uber.org/zap"
)

// CommandHandler executes one named command. Handlers report every outcome
// through the returned Result; a panic is turned into an execution failure.
type CommandHandler func(a schema.ArgumentSet) schema.Result

// CommandGroup is a set of commands registered together.
type CommandGroup interface {
	Commands() map[string]CommandHandler
}

type route struct {
	handler CommandHandler
	mu      sync.Mutex
}

var _ shared.ICapability = (*Dispatcher)(nil)

// Dispatcher routes commands by name. Invocations of the same command never
// overlap.
type Dispatcher struct {
	mu     sync.RWMutex
	routes map[string]*route
	logger *zap.Logger
}

func NewDispatcher(logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		routes: make(map[string]*route),
		logger: logger.Named("dispatcher"),
	}
}

// Register binds name to handler, replacing any previous binding.
func (d *Dispatcher) Register(name string, handler CommandHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.routes[name]; exists {
		d.logger.Warn("Replacing command handler", zap.String("command", name))
	}
	d.routes[name] = &route{handler: handler}
}

func (d *Dispatcher) AddCapability(groups ...CommandGroup) {
	for _, g := range groups {
		for name, h := range g.Commands() {
			d.Register(name, h)
			d.logger.Debug("Registered command",
				zap.String("command", name),
				zap.String("capability", fmt.Sprintf("%T", g)),
			)
		}
	}
}

// Commands lists the registered command names in sorted order.
func (d *Dispatcher) Commands() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.routes))
	for name := range d.routes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch runs the handler bound to cmd.Name and returns exactly one
// Result.
func (d *Dispatcher) Dispatch(cmd schema.Command) (result schema.Result) {
	d.mu.RLock()
	r, ok := d.routes[cmd.Name]
	d.mu.RUnlock()
	if !ok {
		d.logger.Debug("Unknown command", zap.String("command", cmd.Name))
		return schema.Unimplemented()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	defer func() {
		if p := recover(); p != nil {
			d.logger.Error("Command handler panicked",
				zap.String("command", cmd.Name),
				zap.Any("panic", p),
				zap.ByteString("stack", debug.Stack()),
			)
			result = schema.Failure(schema.CodeExecutionFailure, fmt.Sprintf("%s failed: %v", cmd.Name, p))
		}
	}()

	arguments := cmd.Arguments
	if arguments == nil {
		arguments = schema.ArgumentSet{}
	}
	result = r.handler(arguments)
	d.logger.Debug("Dispatched command",
		zap.String("command", cmd.Name),
		zap.Stringer("kind", result.Kind),
	)
	return result
}

// Handle adapts Dispatch to the message loop.
func (d *Dispatcher) Handle(msg *shared.Message) (interface{}, error) {
	name := msg.MethodName()
	var raw []byte
	if msg.Params != nil {
		raw = *msg.Params
	}
	arguments, err := args.Decode(raw)
	if err != nil {
		return shared.EncodeResult(name, schema.Failure(schema.CodeInvalidArgument, err.Error()))
	}
	return shared.EncodeResult(name, d.Dispatch(schema.NewCommand(name, arguments)))
}

// GetHandlers exposes every registered command to the message loop.
func (d *Dispatcher) GetHandlers() map[string]shared.Handler {
	d.mu.RLock()
	defer d.mu.RUnlock()
	handlers := make(map[string]shared.Handler, len(d.routes))
	for name := range d.routes {
		handlers[name] = d.Handle
	}
	return handlers
}
