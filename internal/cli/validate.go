package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fpang/livery-studio/internal/chat"
	"github.com/rs/zerolog/log"
)

// ResolveImagePath checks that path names a regular file and returns its
// absolute form.
func ResolveImagePath(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("image not found: %s", path)
		}
		return "", fmt.Errorf("failed to access %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("path is a directory: %s", path)
	}

	if absPath, err := filepath.Abs(path); err == nil {
		path = absPath
	}
	return path, nil
}

// HandleKeyCheckError logs the failure and exits.
func HandleKeyCheckError(err error) {
	log.Fatal().Err(err).Msg(chat.KeyCheckReason(err))
	os.Exit(1)
}
