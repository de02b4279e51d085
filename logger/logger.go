package logger

import (
	"go.uber.org/zap"
)

// New builds the process logger. mode "dev" gives console output,
// anything else gives production JSON.
func New(mode string) (*zap.Logger, error) {
	if mode == "dev" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
