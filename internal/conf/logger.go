package conf

import "github.com/osci-render/osci-go/internal/logger"

// GetLogger returns the config module logger. It is resolved on every call
// because the central logger is installed after configuration is loaded.
func GetLogger() logger.Logger {
	return logger.Global().Module("config")
}
