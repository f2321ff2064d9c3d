package app

import (
	"context"
	"fmt"
	"time"
)

type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components"`
}

// Health reports the state of the service's collaborators.
func (s *Service) Health(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:     "up",
		Timestamp:  s.clock.Now().UTC(),
		Components: make(map[string]string),
	}

	status.Components["report_cache"] = fmt.Sprintf("ok (%d entries)", s.cache.Len())

	switch {
	case s.history != nil:
		if _, err := s.history.ListRuns(ctx, "", 1); err != nil {
			status.Status = "degraded"
			status.Components["history"] = "error: " + err.Error()
		} else {
			status.Components["history"] = "ok"
		}
	case s.Config.History.Enabled:
		status.Status = "degraded"
		status.Components["history"] = "missing but enabled in config"
	default:
		status.Components["history"] = "disabled"
	}

	if s.languageName != "" {
		if s.language != nil {
			status.Components["language"] = "ok (" + s.languageName + ")"
		} else {
			status.Status = "degraded"
			status.Components["language"] = "missing (" + s.languageName + ")"
		}
	}

	return status
}
