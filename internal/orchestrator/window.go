package orchestrator

import (
	"log/slog"

	"github.com/randomizedcoder/go-sidecar-shell/internal/resolver"
	"github.com/randomizedcoder/go-sidecar-shell/internal/settings"
)

// consoleWindow is the headless window. It has no page to script, so it
// logs every assignment the scripts make.
type consoleWindow struct {
	logger *slog.Logger
}

func newConsoleWindow(logger *slog.Logger) *consoleWindow {
	return &consoleWindow{logger: logger.With("component", "window")}
}

// Eval implements resolver.Window.
func (w *consoleWindow) Eval(script string) error {
	for _, a := range resolver.ParseScript(script) {
		w.logger.Info("window_eval", "key", a.Key, "value", a.Value)
	}
	return nil
}

// overrideSettings answers the server URL key from the command line and
// everything else from the store.
type overrideSettings struct {
	base resolver.SettingsReader
	url  string
}

func (s overrideSettings) Get(key string) (string, bool) {
	if key == settings.DefaultServerURLKey {
		return s.url, true
	}
	return s.base.Get(key)
}
