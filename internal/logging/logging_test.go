package logging

import (
	"testing"

	"github.com/peterldowns/testy/check"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	logger, err := New("warn")
	check.NoError(t, err)
	check.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	check.True(t, logger.Core().Enabled(zapcore.ErrorLevel))

	logger, err = New(" DEBUG ")
	check.NoError(t, err)
	check.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	_, err = New("loud")
	check.Error(t, err)
}
