package db

import (
	"io"

	"github.com/charmbracelet/log"
)

// CloseClient closes c, logging the outcome under name.
// A nil closer is a no-op.
func CloseClient(logger *log.Logger, name string, c io.Closer) error {
	if logger == nil {
		logger = log.Default()
	}
	if c == nil {
		logger.Info("nothing to close", "name", name)
		return nil
	}
	if err := c.Close(); err != nil {
		logger.Warn("failed to close", "name", name, "err", err)
		return err
	}
	logger.Info("closed", "name", name)
	return nil
}
