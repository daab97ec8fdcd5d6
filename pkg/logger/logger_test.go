package logger

import (
	"context"
	"testing"

	"github.com/ajitpratap0/tabulate/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	_, err = New(Config{Encoding: "xml"})
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	l, err := New(Config{Level: "debug", Encoding: "json", OutputPaths: []string{"stderr"}})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestWithContextAttachesRunFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	prev := Get()
	Set(zap.New(core))
	t.Cleanup(func() { Set(prev) })

	ctx := WithPhase(WithSource(WithRun(context.Background(), "r1"), "Users.xml"), "scan")
	WithContext(ctx).Info("scanned")
	WithContext(context.Background()).Info("bare")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, map[string]interface{}{"run_id": "r1", "source": "Users.xml", "phase": "scan"}, entries[0].ContextMap())
	assert.Empty(t, entries[1].ContextMap())
}

func TestNewRunID(t *testing.T) {
	a, b := NewRunID(), NewRunID()
	assert.Len(t, a, 16)
	assert.NotEqual(t, a, b)
}
