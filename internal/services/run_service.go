package services

import (
	"errors"

	"github.com/webagent-cloud/mailagent/internal/database/models"
	"gorm.io/gorm"
)

// ErrRunNotFound indicates the agent run was not found
var ErrRunNotFound = errors.New("agent run not found")

// RunService handles queries over historical agent runs
type RunService struct {
	db *gorm.DB
}

// NewRunService creates a new RunService instance
func NewRunService(db *gorm.DB) *RunService {
	return &RunService{db: db}
}

// RunQuery filters and paginates a run listing
type RunQuery struct {
	AgentID uint
	EmailID uint
	Status  models.AgentRunStatus
	Limit   int
	Offset  int
}

// ListRuns returns runs newest first with the total count for the same
// filter.
func (s *RunService) ListRuns(query RunQuery) ([]models.AgentRun, int64, error) {
	q := s.db.Model(&models.AgentRun{})

	if query.AgentID != 0 {
		q = q.Where("agent_id = ?", query.AgentID)
	}
	if query.EmailID != 0 {
		q = q.Where("email_id = ?", query.EmailID)
	}
	if query.Status != "" {
		q = q.Where("status = ?", query.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := query.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var runs []models.AgentRun
	err := q.Order("created_at DESC").Limit(limit).Offset(query.Offset).Find(&runs).Error
	if err != nil {
		return nil, 0, err
	}

	return runs, total, nil
}

// GetRunByID retrieves a single run record
func (s *RunService) GetRunByID(id uint) (*models.AgentRun, error) {
	var run models.AgentRun
	if err := s.db.First(&run, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	return &run, nil
}
