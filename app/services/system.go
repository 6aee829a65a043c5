package services

import (
	"os/exec"
	goruntime "runtime"

	"github.com/rs/zerolog"
)

// SystemService exposes small host integrations to the frontend.
type SystemService struct {
	log zerolog.Logger
}

func NewSystemService(log zerolog.Logger) *SystemService {
	return &SystemService{log: log}
}

// OpenPath opens a path in the platform's default file browser.
func (s *SystemService) OpenPath(path string) error {
	s.log.Debug().Str("path", path).Msg("opening path")
	var cmd *exec.Cmd

	switch goruntime.GOOS {
	case "windows":
		cmd = exec.Command("explorer", path)
	case "darwin":
		cmd = exec.Command("open", path)
	default: // linux and others
		cmd = exec.Command("xdg-open", path)
	}

	return cmd.Start()
}
