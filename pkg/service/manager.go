// Package service implements the Process Lifecycle component: a small
// dependency-ordered service manager that starts and stops the Discord
// Bridge session, the Cache Store save worker, and the Link-Token sweep
// loop together, with periodic health checks and bounded auto-restart.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/small-frappuccino/argus/pkg/log"
)

// ServiceState represents the current state of a service.
type ServiceState string

const (
	StateUninitialized ServiceState = "uninitialized"
	StateInitializing  ServiceState = "initializing"
	StateRunning       ServiceState = "running"
	StateStopping      ServiceState = "stopping"
	StateStopped       ServiceState = "stopped"
	StateError         ServiceState = "error"
)

// ServiceType categorizes a registered service.
type ServiceType string

const (
	TypeBridge    ServiceType = "discord_bridge"
	TypeCache     ServiceType = "cache_store"
	TypeLinkSweep ServiceType = "link_token_sweep"
)

// ServicePriority is a service's declared priority. The manager records
// and logs it; start and stop order come from dependencies alone.
type ServicePriority int

const (
	PriorityLow    ServicePriority = 1
	PriorityNormal ServicePriority = 5
	PriorityHigh   ServicePriority = 10
)

// HealthStatus represents the health of a service.
type HealthStatus struct {
	Healthy   bool
	Message   string
	LastCheck time.Time
	Details   map[string]interface{}
}

// ServiceStats provides runtime statistics for a service.
type ServiceStats struct {
	StartTime     time.Time
	Uptime        time.Duration
	RestartCount  int
	ErrorCount    int
	CustomMetrics map[string]interface{}
}

// Service is the interface every managed service implements.
type Service interface {
	Name() string
	Type() ServiceType
	Priority() ServicePriority
	Dependencies() []string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	IsRunning() bool
	HealthCheck(ctx context.Context) HealthStatus
	Stats() ServiceStats
}

// serviceInfo holds manager-side bookkeeping about a registered service.
type serviceInfo struct {
	service       Service
	state         ServiceState
	lastStateTime time.Time
	startTime     *time.Time
	stopTime      *time.Time
	restartCount  int
	errorCount    int
	lastError     error
}

// Manager coordinates the lifecycle of the bridge, cache, and
// link-sweep services in dependency order, with periodic health checks
// and bounded auto-restart on an unhealthy service.
type Manager struct {
	services   map[string]*serviceInfo
	dependsOn  map[string][]string
	dependents map[string][]string
	mu         sync.RWMutex
	ctx        context.Context
	cancel     context.CancelFunc

	shutdownTimeout time.Duration
	healthInterval  time.Duration
	maxRestarts     int
	restartDelay    time.Duration
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		services:        make(map[string]*serviceInfo),
		dependsOn:       make(map[string][]string),
		dependents:      make(map[string][]string),
		ctx:             ctx,
		cancel:          cancel,
		shutdownTimeout: 30 * time.Second,
		healthInterval:  1 * time.Minute,
		maxRestarts:     3,
		restartDelay:    5 * time.Second,
	}
}

// Register adds a service to the manager.
func (m *Manager) Register(svc Service) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := svc.Name()
	if _, exists := m.services[name]; exists {
		return fmt.Errorf("service %q is already registered", name)
	}

	m.services[name] = &serviceInfo{service: svc, state: StateUninitialized, lastStateTime: time.Now()}
	m.dependsOn[name] = svc.Dependencies()
	for _, dep := range svc.Dependencies() {
		m.dependents[dep] = append(m.dependents[dep], name)
	}

	log.Info().Applicationf("service registered: name=%s type=%s priority=%d", name, svc.Type(), svc.Priority())
	return nil
}

// StartAll starts every registered service in dependency order, then
// begins periodic health monitoring.
func (m *Manager) StartAll() error {
	order, err := m.calculateStartOrder()
	if err != nil {
		return fmt.Errorf("calculate start order: %w", err)
	}

	var startErrs []error
	for _, name := range order {
		if err := m.StartService(name); err != nil {
			startErrs = append(startErrs, fmt.Errorf("start %s: %w", name, err))
		}
	}
	if len(startErrs) > 0 {
		_ = m.StopAll()
		return fmt.Errorf("failed to start services: %v", startErrs)
	}

	go m.healthMonitor()
	log.Info().Applicationf("all services started: count=%d", len(m.services))
	return nil
}

// StopAll stops every registered service in reverse dependency order.
func (m *Manager) StopAll() error {
	m.cancel()

	order, err := m.calculateStartOrder()
	if err != nil {
		return fmt.Errorf("calculate stop order: %w", err)
	}
	stopOrder := make([]string, len(order))
	for i := range order {
		stopOrder[i] = order[len(order)-1-i]
	}

	var stopErrs []error
	for _, name := range stopOrder {
		if err := m.StopService(name); err != nil {
			stopErrs = append(stopErrs, fmt.Errorf("stop %s: %w", name, err))
		}
	}
	if len(stopErrs) > 0 {
		return fmt.Errorf("failed to stop some services: %v", stopErrs)
	}
	return nil
}

// StartService starts a specific service and its dependencies.
func (m *Manager) StartService(name string) error {
	m.mu.Lock()
	info, exists := m.services[name]
	if !exists {
		m.mu.Unlock()
		return fmt.Errorf("service %q not found", name)
	}
	if info.state == StateRunning {
		m.mu.Unlock()
		return nil
	}
	m.setState(info, StateInitializing)
	deps := append([]string(nil), m.dependsOn[name]...)
	m.mu.Unlock()

	for _, dep := range deps {
		if err := m.StartService(dep); err != nil {
			m.mu.Lock()
			m.setState(info, StateError)
			m.mu.Unlock()
			return fmt.Errorf("start dependency %q: %w", dep, err)
		}
	}

	ctx, cancel := context.WithTimeout(m.ctx, 30*time.Second)
	defer cancel()

	err := info.service.Start(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		info.lastError = err
		info.errorCount++
		m.setState(info, StateError)
		return err
	}
	now := time.Now()
	info.startTime = &now
	m.setState(info, StateRunning)
	return nil
}

// StopService stops a specific service and its dependents.
func (m *Manager) StopService(name string) error {
	m.mu.Lock()
	info, exists := m.services[name]
	if !exists {
		m.mu.Unlock()
		return fmt.Errorf("service %q not found", name)
	}
	if info.state != StateRunning {
		m.mu.Unlock()
		return nil
	}
	m.setState(info, StateStopping)
	dependents := append([]string(nil), m.dependents[name]...)
	m.mu.Unlock()

	for _, dependent := range dependents {
		if err := m.StopService(dependent); err != nil {
			log.Warn().Applicationf("failed to stop dependent: service=%s dependent=%s error=%v", name, dependent, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.shutdownTimeout)
	defer cancel()
	err := info.service.Stop(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		info.lastError = err
		info.errorCount++
	}
	now := time.Now()
	info.stopTime = &now
	m.setState(info, StateStopped)
	return err
}

// RestartService stops then restarts a specific service.
func (m *Manager) RestartService(name string) error {
	if err := m.StopService(name); err != nil {
		log.Warn().Applicationf("failed to stop service for restart: service=%s error=%v", name, err)
	}
	time.Sleep(m.restartDelay)

	m.mu.Lock()
	if info, ok := m.services[name]; ok {
		info.restartCount++
	}
	m.mu.Unlock()

	return m.StartService(name)
}

// RunningServices returns the names of currently running services.
func (m *Manager) RunningServices() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var running []string
	for name, info := range m.services {
		if info.state == StateRunning {
			running = append(running, name)
		}
	}
	return running
}

func (m *Manager) calculateStartOrder() ([]string, error) {
	visited := make(map[string]bool)
	visiting := make(map[string]bool)
	var order []string

	var visit func(string) error
	visit = func(name string) error {
		if visiting[name] {
			return fmt.Errorf("circular dependency involving service %q", name)
		}
		if visited[name] {
			return nil
		}
		visiting[name] = true
		for _, dep := range m.dependsOn[name] {
			if _, ok := m.services[dep]; !ok {
				return fmt.Errorf("service %q depends on unknown service %q", name, dep)
			}
			if err := visit(dep); err != nil {
				return err
			}
		}
		visiting[name] = false
		visited[name] = true
		order = append(order, name)
		return nil
	}

	for name := range m.services {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return order, nil
}

func (m *Manager) setState(info *serviceInfo, state ServiceState) {
	info.state = state
	info.lastStateTime = time.Now()
}

func (m *Manager) healthMonitor() {
	ticker := time.NewTicker(m.healthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.performHealthChecks()
		}
	}
}

// performHealthChecks runs every running service's health check
// concurrently via an errgroup, sharing one cancellation context.
func (m *Manager) performHealthChecks() {
	m.mu.RLock()
	var running []*serviceInfo
	for _, info := range m.services {
		if info.state == StateRunning {
			running = append(running, info)
		}
	}
	m.mu.RUnlock()

	g, _ := errgroup.WithContext(m.ctx)
	for _, info := range running {
		info := info
		g.Go(func() error {
			m.checkServiceHealth(info)
			return nil
		})
	}
	_ = g.Wait()
}

func (m *Manager) checkServiceHealth(info *serviceInfo) {
	ctx, cancel := context.WithTimeout(m.ctx, 10*time.Second)
	defer cancel()

	health := info.service.HealthCheck(ctx)
	if health.Healthy {
		return
	}

	log.Warn().Applicationf("service unhealthy: name=%s message=%s", info.service.Name(), health.Message)

	m.mu.Lock()
	info.errorCount++
	restartCount := info.restartCount
	m.mu.Unlock()

	if restartCount >= m.maxRestarts {
		log.Error().Errorf("service %s exceeded maximum restart attempts", info.service.Name())
		return
	}
	go func() {
		if err := m.RestartService(info.service.Name()); err != nil {
			log.Error().Errorf("failed to restart unhealthy service: service=%s error=%v", info.service.Name(), err)
		}
	}()
}
