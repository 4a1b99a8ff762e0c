package utils

import (
	"io"

	"github.com/MrSnakeDoc/bookmarks/internal/logger"
)

// MustClose closes c and logs any error.
// Use for defer statements where we want to track close errors.
func MustClose(c io.Closer, log logger.Logger) {
	if err := c.Close(); err != nil {
		log.Warn("failed to close", logger.Error(err))
	}
}
