// Package service runs the long-lived parts of the tracker: the HTTP trigger
// surface and the in-process scheduler.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/stake-plus/simd-tracker/src/logging"
)

// Module is one long-lived part of `simd-tracker serve`, such as the HTTP
// trigger server or the sync scheduler.
type Module interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context)
}

var errRunning = errors.New("service: modules already running")

// Manager brings the serve modules up in registration order and down in
// reverse, so the scheduler never outlives the server it reports through.
type Manager struct {
	mu      sync.Mutex
	pending []Module
	running []Module
	log     *zap.Logger
}

func NewManager(log *zap.Logger, mods ...Module) *Manager {
	return &Manager{pending: mods, log: logging.OrNop(log)}
}

// Add queues mod. It fails once the manager is running.
func (m *Manager) Add(mod Module) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running != nil {
		return fmt.Errorf("add %s: %w", mod.Name(), errRunning)
	}
	m.pending = append(m.pending, mod)
	return nil
}

// Start starts the queued modules. When one fails, the modules it follows are
// stopped again and nothing is left running.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running != nil {
		return errRunning
	}

	up := make([]Module, 0, len(m.pending))
	for _, mod := range m.pending {
		if mod == nil {
			continue
		}
		if err := mod.Start(ctx); err != nil {
			m.log.Error("module failed to start", zap.String("module", mod.Name()), zap.Error(err))
			stopAll(ctx, up)
			return fmt.Errorf("start %s: %w", mod.Name(), err)
		}
		m.log.Info("module started", zap.String("module", mod.Name()))
		up = append(up, mod)
	}
	m.running = up
	return nil
}

// Stop stops the running modules, newest first.
func (m *Manager) Stop(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stopAll(ctx, m.running)
	m.running = nil
}

func stopAll(ctx context.Context, mods []Module) {
	for i := len(mods) - 1; i >= 0; i-- {
		mods[i].Stop(ctx)
	}
}
