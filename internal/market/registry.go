package market

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Registry owns the lifetime of symbol controllers. A controller is created
// and started on first access, reused while the view stays active, and torn
// down, with its polling cancelled, once it has been idle past the timeout
// or when the registry shuts down. A leaked poll after teardown is a defect this
// type exists to prevent.
type Registry struct {
	factory     func(symbol string) *Controller
	idleTimeout time.Duration
	log         *slog.Logger

	mu      sync.Mutex
	entries map[string]*registryEntry

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type registryEntry struct {
	controller *Controller
	lastAccess time.Time
}

// NewRegistry creates a registry that builds controllers with factory and
// closes them after idleTimeout without access. The janitor loop runs until
// Close.
func NewRegistry(factory func(symbol string) *Controller, idleTimeout time.Duration, log *slog.Logger) *Registry {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Registry{
		factory:     factory,
		idleTimeout: idleTimeout,
		log:         log,
		entries:     make(map[string]*registryEntry),
		ctx:         ctx,
		cancel:      cancel,
	}

	r.wg.Add(1)
	go r.janitorLoop()

	return r
}

// Get returns the controller for symbol, creating and starting it on first
// access. Symbols are case-insensitive.
func (r *Registry) Get(symbol string) *Controller {
	key := strings.ToUpper(strings.TrimSpace(symbol))

	r.mu.Lock()
	if e, ok := r.entries[key]; ok {
		e.lastAccess = time.Now()
		c := e.controller
		r.mu.Unlock()
		return c
	}

	controller := r.factory(key)
	r.entries[key] = &registryEntry{
		controller: controller,
		lastAccess: time.Now(),
	}
	r.mu.Unlock()

	// Start outside the lock: the initial snapshot load goes to the
	// network and must not hold up access to other symbols.
	controller.Start(r.ctx)
	r.log.Info("opened market view", "symbol", key)
	return controller
}

// Release closes and removes the controller for symbol, if present.
func (r *Registry) Release(symbol string) {
	key := strings.ToUpper(strings.TrimSpace(symbol))

	r.mu.Lock()
	e, ok := r.entries[key]
	if ok {
		delete(r.entries, key)
	}
	r.mu.Unlock()

	if ok {
		e.controller.Close()
		r.log.Info("closed market view", "symbol", key)
	}
}

// ReleaseAll closes and removes every controller. The registry stays usable;
// used when the session ends so no view keeps polling on dead credentials.
func (r *Registry) ReleaseAll() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]*registryEntry)
	r.mu.Unlock()

	for _, e := range entries {
		e.controller.Close()
	}
	if len(entries) > 0 {
		r.log.Info("closed all market views", "count", len(entries))
	}
}

// janitorLoop closes controllers that have been idle past the timeout.
func (r *Registry) janitorLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			var stale []*Controller
			r.mu.Lock()
			for key, e := range r.entries {
				if time.Since(e.lastAccess) > r.idleTimeout {
					stale = append(stale, e.controller)
					delete(r.entries, key)
				}
			}
			r.mu.Unlock()

			for _, c := range stale {
				c.Close()
				r.log.Info("closed idle market view", "symbol", c.Symbol())
			}
		}
	}
}

// Close tears down every controller and stops the janitor.
func (r *Registry) Close() {
	r.cancel()
	r.wg.Wait()

	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]*registryEntry)
	r.mu.Unlock()

	for _, e := range entries {
		e.controller.Close()
	}
}
