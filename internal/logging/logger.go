// Package logging provides category-scoped structured logging for kabuten.
// All categories share one zap core installed by Initialize. Until Initialize
// is called every logger is a no-op, which keeps library code and tests quiet.
package logging

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot         Category = "boot"         // Startup, config and roster loading
	CategoryAPI          Category = "api"          // Reasoning provider HTTP/SDK calls
	CategoryPerception   Category = "perception"   // Request building, scheduling, JSON extraction
	CategoryCoverage     Category = "coverage"     // Company analyst sweeps
	CategorySector       Category = "sector"       // Sector lead sweeps, synthesis, chat
	CategoryOrchestrator Category = "orchestrator" // Multi-sector fan-out and routing
	CategoryStore        Category = "store"        // SQLite persistence
	CategoryThread       Category = "thread"       // Thread load/export and codec
)

// AllCategories lists every category in display order.
var AllCategories = []Category{
	CategoryBoot,
	CategoryAPI,
	CategoryPerception,
	CategoryCoverage,
	CategorySector,
	CategoryOrchestrator,
	CategoryStore,
	CategoryThread,
}

// Logger writes printf-style messages for a single category.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	mu       sync.RWMutex
	base     *zap.Logger
	loggers  = make(map[Category]*Logger)
	disabled = make(map[Category]bool)
)

// Initialize installs the zap logger shared by every category.
// Passing nil resets logging to the silent default.
func Initialize(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()

	base = l
	loggers = make(map[Category]*Logger)
}

// SetCategories enables or disables categories by name. Categories that are
// not mentioned keep their current state.
func SetCategories(enabled map[string]bool) {
	mu.Lock()
	defer mu.Unlock()

	for name, on := range enabled {
		disabled[Category(name)] = !on
	}
	loggers = make(map[Category]*Logger)
}

// IsCategoryEnabled reports whether the category writes anything.
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	return base != nil && !disabled[category]
}

// Get returns (or creates) the logger for a category.
func Get(category Category) *Logger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()

	if l, ok := loggers[category]; ok {
		return l
	}

	l := &Logger{category: category}
	if base != nil && !disabled[category] {
		l.sugar = base.Sugar().With("cat", string(category))
	}
	loggers[category] = l
	return l
}

// With returns a child logger carrying extra key/value pairs.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	if l.sugar == nil {
		return l
	}
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

func (l *Logger) Debug(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Debugf(format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Infof(format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Warnf(format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Errorf(format, args...)
}

// Sync flushes the shared zap core.
func Sync() error {
	mu.RLock()
	defer mu.RUnlock()
	if base == nil {
		return nil
	}
	return base.Sync()
}

// =============================================================================
// CONVENIENCE FUNCTIONS
// =============================================================================

func Boot(format string, args ...interface{})      { Get(CategoryBoot).Info(format, args...) }
func BootDebug(format string, args ...interface{}) { Get(CategoryBoot).Debug(format, args...) }
func BootWarn(format string, args ...interface{})  { Get(CategoryBoot).Warn(format, args...) }

func API(format string, args ...interface{})      { Get(CategoryAPI).Info(format, args...) }
func APIDebug(format string, args ...interface{}) { Get(CategoryAPI).Debug(format, args...) }
func APIError(format string, args ...interface{}) { Get(CategoryAPI).Error(format, args...) }

func Perception(format string, args ...interface{})      { Get(CategoryPerception).Info(format, args...) }
func PerceptionDebug(format string, args ...interface{}) { Get(CategoryPerception).Debug(format, args...) }
func PerceptionWarn(format string, args ...interface{})  { Get(CategoryPerception).Warn(format, args...) }

func Coverage(format string, args ...interface{})      { Get(CategoryCoverage).Info(format, args...) }
func CoverageDebug(format string, args ...interface{}) { Get(CategoryCoverage).Debug(format, args...) }
func CoverageWarn(format string, args ...interface{})  { Get(CategoryCoverage).Warn(format, args...) }

func Sector(format string, args ...interface{})      { Get(CategorySector).Info(format, args...) }
func SectorDebug(format string, args ...interface{}) { Get(CategorySector).Debug(format, args...) }
func SectorWarn(format string, args ...interface{})  { Get(CategorySector).Warn(format, args...) }
func SectorError(format string, args ...interface{}) { Get(CategorySector).Error(format, args...) }

func Orchestrator(format string, args ...interface{})      { Get(CategoryOrchestrator).Info(format, args...) }
func OrchestratorError(format string, args ...interface{}) { Get(CategoryOrchestrator).Error(format, args...) }

func Store(format string, args ...interface{})      { Get(CategoryStore).Info(format, args...) }
func StoreDebug(format string, args ...interface{}) { Get(CategoryStore).Debug(format, args...) }
func StoreError(format string, args ...interface{}) { Get(CategoryStore).Error(format, args...) }

func Thread(format string, args ...interface{})      { Get(CategoryThread).Info(format, args...) }
func ThreadDebug(format string, args ...interface{}) { Get(CategoryThread).Debug(format, args...) }

// =============================================================================
// TIMING HELPERS
// =============================================================================

// Timer helps measure operation duration
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{
		category: category,
		op:       operation,
		start:    time.Now(),
	}
}

// Stop ends the timer and logs the duration at debug level
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs a warning if the duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}
