package domain

import (
	"github.com/mattn/go-colorable"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger returns a colored development logger whose level follows the debug/verbose options.
func NewLogger(conf *AnalysisConfig) (*zap.Logger, *zap.AtomicLevel) {
	atom := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if conf != nil && (conf.Debug || conf.Verbose) {
		atom.SetLevel(zapcore.DebugLevel)
	}

	zapConfig := zap.NewDevelopmentEncoderConfig()
	zapConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(zapConfig), zapcore.AddSync(colorable.NewColorableStdout()), atom)
	logger := zap.New(core, zap.Development())
	if logger == nil {
		panic("failed to create logger for trace analyzer")
	}

	return logger, &atom
}

// LogErrorWithoutStacktrace calls the Error method of the given zap.Logger after configuring the logger
// to only add stack traces on panic-level messages.
func LogErrorWithoutStacktrace(logger *zap.Logger, msg string, fields ...zap.Field) {
	logger.WithOptions(zap.AddStacktrace(zap.DPanicLevel)).Error(msg, fields...)
}
