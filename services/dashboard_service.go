package services

import "fmt"

type Overview struct {
	TotalUsers       int64 `json:"totalUsers"`
	PendingApprovals int64 `json:"pendingApprovals"`
	ActiveSessions   int   `json:"activeSessions"`
}

type DashboardService struct {
	users *UserService
	hub   *SessionHub
}

func NewDashboardService(users *UserService, hub *SessionHub) *DashboardService {
	return &DashboardService{users: users, hub: hub}
}

func (s *DashboardService) Overview() (*Overview, error) {
	total, err := s.users.CountUsers()
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	pending, err := s.users.CountPending()
	if err != nil {
		return nil, fmt.Errorf("failed to count pending users: %w", err)
	}
	return &Overview{
		TotalUsers:       total,
		PendingApprovals: pending,
		ActiveSessions:   s.hub.ActiveCount(),
	}, nil
}
