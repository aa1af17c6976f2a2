package logging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	Initialize(zap.New(core))
	t.Cleanup(func() {
		Initialize(nil)
		SetCategories(map[string]bool{})
	})
	return logs
}

func TestNoOpBeforeInitialize(t *testing.T) {
	Initialize(nil)
	assert.False(t, IsCategoryEnabled(CategorySector))

	// Must not panic.
	Sector("sweep for %s", "memory_semis")
	Get(CategoryStore).With("k", "v").Error("boom")
	assert.NoError(t, Sync())
}

func TestCategoryField(t *testing.T) {
	logs := observe(t)

	Sector("sweep complete for %s", "ai_semis")
	CoverageWarn("degraded finding for %s", "NVDA")

	entries := logs.All()
	require.Len(t, entries, 2)

	assert.Equal(t, "sweep complete for ai_semis", entries[0].Message)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "sector", entries[0].ContextMap()["cat"])

	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "coverage", entries[1].ContextMap()["cat"])
}

func TestSetCategoriesDisables(t *testing.T) {
	logs := observe(t)

	SetCategories(map[string]bool{"api": false})
	API("hidden")
	Store("visible")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "visible", logs.All()[0].Message)
	assert.False(t, IsCategoryEnabled(CategoryAPI))
	assert.True(t, IsCategoryEnabled(CategoryStore))
}

func TestWithAddsFields(t *testing.T) {
	logs := observe(t)

	Get(CategoryOrchestrator).With("sector", "gaming").Info("routed")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "gaming", logs.All()[0].ContextMap()["sector"])
}

func TestTimerThreshold(t *testing.T) {
	logs := observe(t)

	timer := StartTimer(CategoryPerception, "invoke")
	time.Sleep(5 * time.Millisecond)
	elapsed := timer.StopWithThreshold(time.Millisecond)

	assert.GreaterOrEqual(t, elapsed, 5*time.Millisecond)
	require.Equal(t, 1, logs.FilterLevelExact(zapcore.WarnLevel).Len())
}
