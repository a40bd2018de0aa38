package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/small-frappuccino/argus/pkg/log"
)

// BaseService provides common lifecycle bookkeeping that the Process
// Lifecycle component's three services (Discord Bridge, Cache Store save
// worker, Link-Token sweep) each embed rather than reimplement.
type BaseService struct {
	name         string
	serviceType  ServiceType
	priority     ServicePriority
	dependencies []string

	state        ServiceState
	stateMutex   sync.RWMutex
	isRunning    bool
	startTime    *time.Time
	stopTime     *time.Time
	restartCount int
	errorCount   int
	lastError    error

	lastHealthCheck time.Time
	healthStatus    HealthStatus
	healthMutex     sync.RWMutex

	customMetrics    map[string]interface{}
	customMetricsMux sync.RWMutex

	startHook  func(ctx context.Context) error
	stopHook   func(ctx context.Context) error
	healthHook func(ctx context.Context) HealthStatus
}

// NewBaseService creates a new base service.
func NewBaseService(name string, serviceType ServiceType, priority ServicePriority, dependencies []string) *BaseService {
	return &BaseService{
		name:          name,
		serviceType:   serviceType,
		priority:      priority,
		dependencies:  dependencies,
		state:         StateUninitialized,
		customMetrics: make(map[string]interface{}),
		healthStatus: HealthStatus{
			Healthy:   true,
			Message:   "Service initialized",
			LastCheck: time.Now(),
		},
	}
}

func (bs *BaseService) Name() string              { return bs.name }
func (bs *BaseService) Type() ServiceType         { return bs.serviceType }
func (bs *BaseService) Priority() ServicePriority { return bs.priority }
func (bs *BaseService) Dependencies() []string    { return bs.dependencies }

// Start starts the service, invoking the start hook if one is set.
func (bs *BaseService) Start(ctx context.Context) error {
	bs.stateMutex.Lock()
	defer bs.stateMutex.Unlock()

	if bs.isRunning {
		return nil
	}

	bs.state = StateInitializing

	if bs.startHook != nil {
		if err := bs.startHook(ctx); err != nil {
			bs.state = StateError
			bs.errorCount++
			bs.lastError = err
			log.Error().Errorf("service %s failed to start: %v", bs.name, err)
			return fmt.Errorf("service %s: start: %w", bs.name, err)
		}
	}

	bs.isRunning = true
	bs.state = StateRunning
	now := time.Now()
	bs.startTime = &now
	bs.stopTime = nil

	log.Info().Applicationf("service %s started", bs.name)
	return nil
}

// Stop stops the service, invoking the stop hook if one is set. It
// continues the shutdown even if the hook fails.
func (bs *BaseService) Stop(ctx context.Context) error {
	bs.stateMutex.Lock()
	defer bs.stateMutex.Unlock()

	if !bs.isRunning {
		return nil
	}

	bs.state = StateStopping

	if bs.stopHook != nil {
		if err := bs.stopHook(ctx); err != nil {
			bs.errorCount++
			bs.lastError = err
			log.Warn().Applicationf("service %s stop hook failed: %v", bs.name, err)
		}
	}

	bs.isRunning = false
	bs.state = StateStopped
	now := time.Now()
	bs.stopTime = &now

	log.Info().Applicationf("service %s stopped", bs.name)
	return nil
}

// IsRunning reports whether the service is currently running.
func (bs *BaseService) IsRunning() bool {
	bs.stateMutex.RLock()
	defer bs.stateMutex.RUnlock()
	return bs.isRunning
}

// HealthCheck runs the health hook if one is set, else a default
// running-state check.
func (bs *BaseService) HealthCheck(ctx context.Context) HealthStatus {
	bs.healthMutex.Lock()
	defer bs.healthMutex.Unlock()

	bs.lastHealthCheck = time.Now()

	if bs.healthHook != nil {
		bs.healthStatus = bs.healthHook(ctx)
	} else {
		bs.healthStatus = HealthStatus{
			Healthy:   bs.IsRunning(),
			Message:   bs.getDefaultHealthMessage(),
			LastCheck: bs.lastHealthCheck,
			Details: map[string]interface{}{
				"state":         bs.GetState(),
				"uptime":        bs.getUptime(),
				"restart_count": bs.restartCount,
				"error_count":   bs.errorCount,
			},
		}
	}

	return bs.healthStatus
}

// Stats returns runtime statistics for the service.
func (bs *BaseService) Stats() ServiceStats {
	bs.stateMutex.RLock()
	defer bs.stateMutex.RUnlock()

	stats := ServiceStats{
		RestartCount: bs.restartCount,
		ErrorCount:   bs.errorCount,
	}

	if bs.startTime != nil {
		stats.StartTime = *bs.startTime
		stats.Uptime = time.Since(*bs.startTime)
	}

	bs.customMetricsMux.RLock()
	if len(bs.customMetrics) > 0 {
		stats.CustomMetrics = make(map[string]interface{})
		for k, v := range bs.customMetrics {
			stats.CustomMetrics[k] = v
		}
	}
	bs.customMetricsMux.RUnlock()

	return stats
}

// GetState returns the current service state.
func (bs *BaseService) GetState() ServiceState {
	bs.stateMutex.RLock()
	defer bs.stateMutex.RUnlock()
	return bs.state
}

// SetStartHook sets the function invoked by Start.
func (bs *BaseService) SetStartHook(hook func(ctx context.Context) error) { bs.startHook = hook }

// SetStopHook sets the function invoked by Stop.
func (bs *BaseService) SetStopHook(hook func(ctx context.Context) error) { bs.stopHook = hook }

// SetHealthHook sets the function invoked by HealthCheck.
func (bs *BaseService) SetHealthHook(hook func(ctx context.Context) HealthStatus) {
	bs.healthHook = hook
}

// SetCustomMetric records a named metric value, surfaced via Stats.
func (bs *BaseService) SetCustomMetric(key string, value interface{}) {
	bs.customMetricsMux.Lock()
	defer bs.customMetricsMux.Unlock()
	bs.customMetrics[key] = value
}

func (bs *BaseService) getDefaultHealthMessage() string {
	switch bs.state {
	case StateRunning:
		return "running normally"
	case StateStopped:
		return "stopped"
	case StateError:
		if bs.lastError != nil {
			return fmt.Sprintf("error: %s", bs.lastError.Error())
		}
		return "in error state"
	case StateInitializing:
		return "starting up"
	case StateStopping:
		return "shutting down"
	default:
		return "unknown"
	}
}

func (bs *BaseService) getUptime() time.Duration {
	if bs.startTime == nil {
		return 0
	}
	if bs.stopTime != nil {
		return bs.stopTime.Sub(*bs.startTime)
	}
	return time.Since(*bs.startTime)
}

// ServiceWrapper adapts a plain start/stop/check function triple (used
// by the Discord Bridge, whose connect/disconnect hooks are late-bound
// function values on engine.Core) into a Service.
type ServiceWrapper struct {
	*BaseService
	wrappedStart func() error
	wrappedStop  func() error
	wrappedCheck func() bool
}

// NewServiceWrapper creates a Service out of plain start/stop/health funcs.
func NewServiceWrapper(
	name string,
	serviceType ServiceType,
	priority ServicePriority,
	dependencies []string,
	startFunc func() error,
	stopFunc func() error,
	checkFunc func() bool,
) *ServiceWrapper {
	wrapper := &ServiceWrapper{
		BaseService:  NewBaseService(name, serviceType, priority, dependencies),
		wrappedStart: startFunc,
		wrappedStop:  stopFunc,
		wrappedCheck: checkFunc,
	}

	wrapper.SetStartHook(func(ctx context.Context) error {
		if wrapper.wrappedStart != nil {
			return wrapper.wrappedStart()
		}
		return nil
	})

	wrapper.SetStopHook(func(ctx context.Context) error {
		if wrapper.wrappedStop != nil {
			return wrapper.wrappedStop()
		}
		return nil
	})

	wrapper.SetHealthHook(func(ctx context.Context) HealthStatus {
		healthy := true
		message := "healthy"
		if wrapper.wrappedCheck != nil {
			healthy = wrapper.wrappedCheck()
			if !healthy {
				message = "health check failed"
			}
		}
		return HealthStatus{Healthy: healthy, Message: message, LastCheck: time.Now()}
	})

	return wrapper
}
