package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/stemsi/proctor-backend/internal/model"
)

// MonitorStore provides the aggregate reads behind the admin monitor.
type MonitorStore interface {
	GetStatusCounts(ctx context.Context, examID uuid.UUID) (map[model.SessionStatus]int64, error)
	GetViolationCounts(ctx context.Context, examID uuid.UUID) (map[string]int64, error)
}

// AuditReader reads the persisted session audit trail.
type AuditReader interface {
	ListBySession(ctx context.Context, examID uuid.UUID, userID string) ([]model.AuditEntry, error)
}

// MonitorService backs the live exam monitor.
type MonitorService struct {
	repo  MonitorStore
	audit AuditReader
}

// NewMonitorService creates a new MonitorService.
func NewMonitorService(repo MonitorStore, audit AuditReader) *MonitorService {
	return &MonitorService{repo: repo, audit: audit}
}

// MonitorSnapshot summarizes an exam for a freshly connected monitor.
type MonitorSnapshot struct {
	StatusCounts    map[model.SessionStatus]int64 `json:"status_counts"`
	ViolationCounts map[string]int64              `json:"violation_counts"`
	TotalViolations int64                         `json:"total_violations"`
}

// Snapshot fetches status and violation counts concurrently.
func (s *MonitorService) Snapshot(ctx context.Context, examID uuid.UUID) (*MonitorSnapshot, error) {
	var (
		statusCounts    map[model.SessionStatus]int64
		violationCounts map[string]int64
		statusErr       error
		violationErr    error
		wg              sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		statusCounts, statusErr = retryRead(ctx, func(ctx context.Context) (map[model.SessionStatus]int64, error) {
			return s.repo.GetStatusCounts(ctx, examID)
		})
	}()
	go func() {
		defer wg.Done()
		violationCounts, violationErr = retryRead(ctx, func(ctx context.Context) (map[string]int64, error) {
			return s.repo.GetViolationCounts(ctx, examID)
		})
	}()
	wg.Wait()

	if statusErr != nil {
		return nil, fmt.Errorf("status counts: %w", statusErr)
	}
	if violationErr != nil {
		return nil, fmt.Errorf("violation counts: %w", violationErr)
	}

	snap := &MonitorSnapshot{StatusCounts: statusCounts, ViolationCounts: violationCounts}
	for _, n := range violationCounts {
		snap.TotalViolations += n
	}
	return snap, nil
}

// AuditTrail returns the recorded transitions of one session, oldest first.
func (s *MonitorService) AuditTrail(ctx context.Context, examID uuid.UUID, userID string) ([]model.AuditEntry, error) {
	entries, err := retryRead(ctx, func(ctx context.Context) ([]model.AuditEntry, error) {
		return s.audit.ListBySession(ctx, examID, userID)
	})
	if err != nil {
		return nil, fmt.Errorf("audit trail: %w", err)
	}
	return entries, nil
}
