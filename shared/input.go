package shared

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

const inputQueueSize = 100

// ErrInputBusy is returned by Enqueue when the queue is full. The message is
// dropped and the caller answers it.
var ErrInputBusy = errors.New("input processor busy, input channel full")

// Handler processes one message. A nil result with a nil error is a valid
// "no value" response for requests.
type Handler func(*Message) (interface{}, error)

// Input is the single serialization point of a bridge. Messages are handled
// one at a time in arrival order, so a response and a lifecycle push can
// never interleave.
type Input struct {
	Mu              sync.RWMutex
	input           chan *Message
	closed          atomic.Bool
	logger          *zap.Logger
	validators      []MessageValidator
	methodHandlers  sync.Map     // method name -> Handler
	notFoundHandler atomic.Value // Handler
	capabilities    []ICapability
	done            chan struct{}
}

func NewInput(logger *zap.Logger) *Input {
	if logger == nil {
		logger = zap.NewNop()
	}
	i := &Input{
		input:      make(chan *Message, inputQueueSize),
		validators: []MessageValidator{},
		logger:     logger,
		done:       make(chan struct{}),
	}
	i.notFoundHandler.Store(Handler(func(msg *Message) (interface{}, error) {
		return nil, &JSONRPCError{
			Code:    JSONRPCErrorMethodNotFound,
			Message: fmt.Sprintf("Method not found: %s", msg.MethodName()),
		}
	}))
	return i
}

type MessageValidator interface {
	Validate(*Message) error
}

// Put validates and enqueues a message received from the runtime.
func (i *Input) Put(msg *Message) error {
	i.Mu.RLock()
	copyOfValidators := make([]MessageValidator, len(i.validators))
	copy(copyOfValidators, i.validators)
	i.Mu.RUnlock()

	for _, validator := range copyOfValidators {
		if err := validator.Validate(msg); err != nil {
			return err
		}
	}
	if msg.Session != nil {
		msg.Session.UpdateLastActivity()
	}
	return i.Enqueue(msg)
}

// Enqueue queues a message without running validators. Used for messages the
// host produces itself.
func (i *Input) Enqueue(msg *Message) (err error) {
	if i.closed.Load() {
		return errors.New("input processor stopped")
	}
	defer func() {
		// Close may race with a late producer.
		if recover() != nil {
			err = errors.New("input processor stopped")
		}
	}()

	select {
	case i.input <- msg:
		i.logger.Debug("Message queued",
			zap.String("sessionID", safeGetSessionID(msg.Session)),
			zap.String("messageID", msg.ID.String()),
			zap.Stringp("method", msg.Method),
		)
	default:
		i.logger.Error("Input channel full, dropping message",
			zap.String("sessionID", safeGetSessionID(msg.Session)),
			zap.String("messageID", msg.ID.String()),
			zap.Stringp("method", msg.Method),
		)
		return ErrInputBusy
	}
	return nil
}

// Process runs the message loop until Close is called.
func (i *Input) Process() {
	i.logger.Debug("Input - message processing loop started")
	defer func() {
		close(i.done)
		i.logger.Info("Input - message processing loop stopped")
	}()
	for msg := range i.input {
		i.processOne(msg)
	}
}

// Close stops the loop after the queued messages are drained.
func (i *Input) Close() {
	if i.closed.CompareAndSwap(false, true) {
		close(i.input)
	}
}

// Done is closed once Process has returned.
func (i *Input) Done() <-chan struct{} {
	return i.done
}

func (i *Input) processOne(msg *Message) {
	if msg == nil {
		return
	}
	if msg.Session == nil {
		i.logger.Error("Received message with nil session in processing queue")
		return
	}
	logger := i.logger.With(zap.String("sessionID", msg.Session.GetID()))

	if msg.Method == nil && msg.ID.IsEmpty() {
		logger.Error("Received invalid message (no method or ID)")
		return
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic recovered during message processing", zap.Any("panic", r), zap.String("messageID", msg.ID.String()))
			if msg.IsRequest() {
				msg.Session.SendResponse(msg.ID, nil, fmt.Errorf("internal error during processing: %v", r))
			}
		}
		msg.Processed = true
	}()

	if msg.Method == nil {
		// Response to a request this side sent earlier.
		if !msg.Session.GetRequestManager().ProcessResponse(msg) {
			logger.Warn("Received response for unknown or timed-out request",
				zap.String("responseID", msg.ID.String()),
			)
		}
		return
	}

	handler, exists := i.GetHandler(*msg.Method)
	if !exists {
		logger.Error("No handler registered", zap.String("method", *msg.Method))
		if msg.IsRequest() {
			msg.Session.SendResponse(msg.ID, nil, &JSONRPCError{Code: JSONRPCErrorMethodNotFound, Message: fmt.Sprintf("Method not found: %s", *msg.Method)})
		}
		return
	}

	response, err := handler(msg)
	if msg.IsRequest() {
		msg.Session.SendResponse(msg.ID, response, err)
	} else if err != nil {
		logger.Error("Error handling notification", zap.String("method", *msg.Method), zap.Error(err))
	}
	logger.Debug("Processed message",
		zap.String("messageID", msg.ID.String()),
		zap.String("method", *msg.Method),
	)
}

// AddNotFoundHandle registers a handler for methods that don't have a specific handler
func (i *Input) AddNotFoundHandle(handler Handler) {
	i.notFoundHandler.Store(handler)
	i.logger.Debug("Registered not-found handler")
}

// GetHandler retrieves a handler for a specific method, falling back to the
// not-found handler.
func (i *Input) GetHandler(method string) (Handler, bool) {
	handler, exists := i.methodHandlers.Load(method)
	if !exists {
		notFound, ok := i.notFoundHandler.Load().(Handler)
		return notFound, ok && notFound != nil
	}
	return handler.(Handler), true
}

// AddValidator adds custom message validators
func (i *Input) AddValidator(validators ...MessageValidator) {
	i.Mu.Lock()
	defer i.Mu.Unlock()
	i.validators = append(i.validators, validators...)
}

// AddCapability registers every handler of the given capabilities.
func (i *Input) AddCapability(capabilities ...ICapability) {
	i.Mu.Lock()
	defer i.Mu.Unlock()
	for _, capability := range capabilities {
		i.capabilities = append(i.capabilities, capability)
		for method, handler := range capability.GetHandlers() {
			i.methodHandlers.Store(method, handler)
			i.logger.Debug("Registered handler from capability",
				zap.String("capability", fmt.Sprintf("%T", capability)),
				zap.String("method", method))
		}
	}
}

// Methods lists the explicitly registered method names.
func (i *Input) Methods() []string {
	var methods []string
	i.methodHandlers.Range(func(key, _ any) bool {
		methods = append(methods, key.(string))
		return true
	})
	return methods
}

// safeGetSessionID returns the session ID or a marker if the session is nil
func safeGetSessionID(session ISession) string {
	if session == nil {
		return "sessionIsNil"
	}
	return session.GetID()
}
