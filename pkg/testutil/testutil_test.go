package testutil

import (
	"os"
	"testing"

	"github.com/ajitpratap0/tabulate/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUseLoggerRestoresPrevious(t *testing.T) {
	before := logger.Get()

	t.Run("inner", func(t *testing.T) {
		l := UseLogger(t)
		assert.Same(t, l, logger.Get())
		logger.Info("visible in test output")
	})

	assert.Same(t, before, logger.Get())
}

func TestWriteFileAndContext(t *testing.T) {
	path := WriteFile(t, "Users.xml", []byte("<users/>"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<users/>", string(data))

	ctx := TestContext(t)
	_, ok := ctx.Deadline()
	assert.True(t, ok)
	assert.NoError(t, ctx.Err())
}
