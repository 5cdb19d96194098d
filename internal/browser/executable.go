package browser

import (
	"github.com/go-rod/rod/lib/launcher"
	"github.com/ondemand-tools/ondemand-dl/internal/apperrors"
	"github.com/ondemand-tools/ondemand-dl/internal/config"
	"github.com/spf13/afero"
)

// lookPath finds an installed Chromium-family browser.
var lookPath = launcher.LookPath

// ResolveExecutable returns override when it exists, otherwise the first installed
// Chromium-family browser.
func ResolveExecutable(fs afero.Fs, override string) (string, error) {
	logger := config.GetLogger()

	if override != "" {
		if info, err := fs.Stat(override); err == nil && !info.IsDir() {
			return override, nil
		}
		logger.Warn().Str("browser", override).Msg("Browser executable not found, searching installed browsers")
	}

	if found, ok := lookPath(); ok {
		logger.Debug().Str("browser", found).Msg("Using installed browser")
		return found, nil
	}
	return "", &apperrors.BrowserNotFoundError{Path: override}
}
