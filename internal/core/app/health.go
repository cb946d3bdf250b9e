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

// HealthService reports liveness for the /health endpoint. The index is
// rebuilt in memory on startup, so "degraded" mostly means the initial
// scan has not populated anything yet.
type HealthService struct {
	svc *Service
}

func NewHealthService(svc *Service) *HealthService {
	return &HealthService{svc: svc}
}

func (h *HealthService) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:     "up",
		Timestamp:  time.Now().UTC(),
		Components: make(map[string]string),
	}

	if h.svc == nil || h.svc.index == nil {
		status.Status = "down"
		status.Components["index"] = "missing"
		return status
	}

	fileCount := h.svc.FileCount()
	if fileCount == 0 {
		status.Status = "degraded"
		status.Components["index"] = "empty"
	} else {
		status.Components["index"] = fmt.Sprintf("ok (%d files, %d edges)", fileCount, h.svc.EdgeCount())
	}

	res := h.svc.currentResolver()
	status.Components["resolver"] = fmt.Sprintf("ok (%d aliases)", res.Table().Len())

	if unresolved := h.svc.UnresolvedCount(); unresolved > 0 {
		status.Components["unresolved_refs"] = fmt.Sprintf("%d", unresolved)
	}

	return status
}
