package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/fieldwork-go-api/internal/dto"
	"github.com/noah-isme/fieldwork-go-api/internal/models"
	"github.com/noah-isme/fieldwork-go-api/internal/repository"
)

// DashboardService aggregates placement progress for one student.
type DashboardService interface {
	GetStudentDashboard(ctx context.Context, studentID uint) (dto.StudentDashboardResponse, error)
}

type dashboardService struct {
	placements repository.PlacementRepository
	timesheets repository.TimesheetRepository
	cache      *redis.Client
	cacheTTL   time.Duration
	logger     zerolog.Logger
	now        func() time.Time
}

// NewDashboardService builds the dashboard aggregator.
func NewDashboardService(placements repository.PlacementRepository, timesheets repository.TimesheetRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) DashboardService {
	return &dashboardService{
		placements: placements,
		timesheets: timesheets,
		cache:      cache,
		cacheTTL:   ttl,
		logger:     logger.With().Str("component", "dashboard_service").Logger(),
		now:        time.Now,
	}
}

func (s *dashboardService) GetStudentDashboard(ctx context.Context, studentID uint) (dto.StudentDashboardResponse, error) {
	cacheKey := fmt.Sprintf("dashboard:student:%d", studentID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.StudentDashboardResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				response.CacheHit = true
				s.logger.Debug().Uint("student_id", studentID).Msg("dashboard cache hit")
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read dashboard cache")
		}
	}

	placements, err := s.placements.List(ctx, repository.PlacementFilter{StudentID: &studentID})
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}

	var current *models.Placement
	for i := range placements {
		if placements[i].Status != models.PlacementStatusDeclined {
			current = &placements[i]
			break
		}
	}
	if current == nil {
		return dto.StudentDashboardResponse{}, ErrPlacementNotFound
	}

	entries, err := s.timesheets.ListByPlacement(ctx, current.ID)
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}

	journals, err := s.timesheets.ListJournals(ctx, current.ID)
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}

	response := s.buildResponse(*current, entries, journals)

	if s.cache != nil {
		payload, err := json.Marshal(response)
		if err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store dashboard cache")
			}
		}
	}

	return response, nil
}

func (s *dashboardService) buildResponse(placement models.Placement, entries []models.TimesheetEntry, journals []models.TimesheetJournal) dto.StudentDashboardResponse {
	journalWeeks := make(map[time.Time]struct{}, len(journals))
	for _, journal := range journals {
		journalWeeks[journal.WeekStart.UTC()] = struct{}{}
	}

	type weekAccumulator struct {
		hours    float64
		count    int
		statuses map[string]int
	}

	weeks := map[time.Time]*weekAccumulator{}
	var credited, pending float64
	for _, entry := range entries {
		switch entry.Status {
		case models.TimesheetStatusApproved:
			credited += entry.Hours
		case models.TimesheetStatusPendingSupervisor, models.TimesheetStatusPendingFaculty:
			pending += entry.Hours
		}

		key := entry.WeekStart.UTC()
		acc, ok := weeks[key]
		if !ok {
			acc = &weekAccumulator{statuses: map[string]int{}}
			weeks[key] = acc
		}
		acc.hours += entry.Hours
		acc.count++
		acc.statuses[entry.Status]++
	}

	progress := make([]dto.WeekProgress, 0, len(weeks))
	for weekStart, acc := range weeks {
		_, hasJournal := journalWeeks[weekStart]
		progress = append(progress, dto.WeekProgress{
			WeekStart:  weekStart,
			WeekEnd:    weekStart.AddDate(0, 0, 6),
			TotalHours: acc.hours,
			Status:     dominantStatus(acc.statuses, acc.count),
			EntryCount: acc.count,
			HasJournal: hasJournal,
		})
	}

	sortWeeks(progress)

	response := dto.StudentDashboardResponse{
		PlacementID:     placement.ID,
		PlacementStatus: placement.Status,
		RequiredHours:   placement.RequiredHours,
		CreditedHours:   credited,
		PendingHours:    pending,
		Weeks:           progress,
		GeneratedAt:     s.now().UTC(),
	}

	if placement.RequiredHours > 0 {
		response.CompletionRate = (credited / placement.RequiredHours) * 100
	}

	return response
}

// dominantStatus reports the week's pipeline position: a uniform group maps
// to its shared status, anything mixed reads as in-progress drafting.
func dominantStatus(statuses map[string]int, total int) string {
	for status, count := range statuses {
		if count == total {
			return status
		}
	}
	return models.TimesheetStatusDraft
}

func sortWeeks(weeks []dto.WeekProgress) {
	sort.Slice(weeks, func(i, j int) bool {
		return weeks[i].WeekStart.Before(weeks[j].WeekStart)
	})
}
