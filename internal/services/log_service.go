package services

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/webagent-cloud/mailagent/internal/database/models"
	"gorm.io/gorm"
)

// LogService handles logging operations
type LogService struct {
	db       *gorm.DB
	logLevel models.LogLevel
}

// NewLogService creates a new LogService instance
func NewLogService(db *gorm.DB) *LogService {
	return &LogService{
		db:       db,
		logLevel: models.LogLevelInfo, // Default log level
	}
}

// NewLogServiceWithLevel creates a new LogService instance with specified log level
func NewLogServiceWithLevel(db *gorm.DB, level string) *LogService {
	return &LogService{
		db:       db,
		logLevel: parseLogLevel(level),
	}
}

// parseLogLevel converts a string to LogLevel
func parseLogLevel(level string) models.LogLevel {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return models.LogLevelDebug
	case "INFO":
		return models.LogLevelInfo
	case "WARN", "WARNING":
		return models.LogLevelWarn
	case "ERROR":
		return models.LogLevelError
	default:
		return models.LogLevelInfo
	}
}

// SetLogLevel sets the minimum log level
func (s *LogService) SetLogLevel(level string) {
	s.logLevel = parseLogLevel(level)
}

// shouldLog checks if a log entry should be recorded based on log level
func (s *LogService) shouldLog(level models.LogLevel) bool {
	levelPriority := map[models.LogLevel]int{
		models.LogLevelDebug: 0,
		models.LogLevelInfo:  1,
		models.LogLevelWarn:  2,
		models.LogLevelError: 3,
	}

	return levelPriority[level] >= levelPriority[s.logLevel]
}

// LogEntry represents a log entry to be created
type LogEntry struct {
	Level   models.LogLevel
	Module  models.LogModule
	Action  string
	Message string
	Details interface{} // Will be serialized to JSON
}

// Log creates a new log entry
func (s *LogService) Log(entry LogEntry) error {
	if !s.shouldLog(entry.Level) {
		return nil
	}

	var detailsJSON string
	if entry.Details != nil {
		bytes, err := json.Marshal(entry.Details)
		if err != nil {
			detailsJSON = "{}"
		} else {
			detailsJSON = string(bytes)
		}
	}

	log := &models.Log{
		Level:   string(entry.Level),
		Module:  string(entry.Module),
		Action:  entry.Action,
		Message: entry.Message,
		Details: detailsJSON,
	}

	return s.db.Create(log).Error
}

// LogInfo creates an INFO level log entry
func (s *LogService) LogInfo(module models.LogModule, action, message string, details interface{}) error {
	return s.Log(LogEntry{
		Level:   models.LogLevelInfo,
		Module:  module,
		Action:  action,
		Message: message,
		Details: details,
	})
}

// LogWarn creates a WARN level log entry
func (s *LogService) LogWarn(module models.LogModule, action, message string, details interface{}) error {
	return s.Log(LogEntry{
		Level:   models.LogLevelWarn,
		Module:  module,
		Action:  action,
		Message: message,
		Details: details,
	})
}

// LogError creates an ERROR level log entry
func (s *LogService) LogError(module models.LogModule, action, message string, details interface{}) error {
	return s.Log(LogEntry{
		Level:   models.LogLevelError,
		Module:  module,
		Action:  action,
		Message: message,
		Details: details,
	})
}

// LogDebug creates a DEBUG level log entry
func (s *LogService) LogDebug(module models.LogModule, action, message string, details interface{}) error {
	return s.Log(LogEntry{
		Level:   models.LogLevelDebug,
		Module:  module,
		Action:  action,
		Message: message,
		Details: details,
	})
}

// SyncCycleDetails represents details for a per-account sync cycle
type SyncCycleDetails struct {
	AccountID    uint   `json:"account_id"`
	AccountEmail string `json:"account_email,omitempty"`
	Provider     string `json:"provider,omitempty"`
	FetchedCount int    `json:"fetched_count,omitempty"`
	SavedCount   int    `json:"saved_count,omitempty"`
	SkippedCount int    `json:"skipped_count,omitempty"`
	ErrorMsg     string `json:"error_msg,omitempty"`
}

// LogSyncCompleted logs a completed per-account sync cycle
func (s *LogService) LogSyncCompleted(accountID uint, email string, fetched, saved, skipped int) error {
	return s.LogInfo(models.LogModuleSync, "cycle", "Account sync completed", SyncCycleDetails{
		AccountID:    accountID,
		AccountEmail: email,
		FetchedCount: fetched,
		SavedCount:   saved,
		SkippedCount: skipped,
	})
}

// LogSyncFailed logs a failed per-account sync cycle
func (s *LogService) LogSyncFailed(accountID uint, email string, err error) error {
	details := SyncCycleDetails{
		AccountID:    accountID,
		AccountEmail: email,
	}
	if err != nil {
		details.ErrorMsg = err.Error()
	}
	return s.LogWarn(models.LogModuleSync, "cycle", "Account sync failed", details)
}

// LogAuthError logs an account entering the auth-error state
func (s *LogService) LogAuthError(accountID uint, email string, err error) error {
	details := SyncCycleDetails{
		AccountID:    accountID,
		AccountEmail: email,
	}
	if err != nil {
		details.ErrorMsg = err.Error()
	}
	return s.LogError(models.LogModuleSync, "auth_error", "Account marked for re-authentication", details)
}

// AgentRunDetails represents details for agent run logs
type AgentRunDetails struct {
	AgentID   uint   `json:"agent_id"`
	AgentName string `json:"agent_name"`
	EmailID   uint   `json:"email_id"`
	RunID     uint   `json:"run_id,omitempty"`
	Subject   string `json:"subject,omitempty"`
	ErrorMsg  string `json:"error_msg,omitempty"`
}

// LogAgentRunCompleted logs a successful agent run
func (s *LogService) LogAgentRunCompleted(agentID uint, agentName string, emailID, runID uint, subject string) error {
	return s.LogInfo(models.LogModuleAgent, "run", "Agent run completed", AgentRunDetails{
		AgentID:   agentID,
		AgentName: agentName,
		EmailID:   emailID,
		RunID:     runID,
		Subject:   subject,
	})
}

// LogAgentRunFailed logs a failed agent run
func (s *LogService) LogAgentRunFailed(agentID uint, agentName string, emailID, runID uint, err error) error {
	details := AgentRunDetails{
		AgentID:   agentID,
		AgentName: agentName,
		EmailID:   emailID,
		RunID:     runID,
	}
	if err != nil {
		details.ErrorMsg = err.Error()
	}
	return s.LogWarn(models.LogModuleAgent, "run", "Agent run failed", details)
}

// AccountChangeDetails represents details for account configuration changes
type AccountChangeDetails struct {
	AccountID    uint   `json:"account_id"`
	AccountEmail string `json:"account_email"`
	Field        string `json:"field,omitempty"`
	NewValue     string `json:"new_value,omitempty"`
}

// LogAccountCreated logs an account creation event
func (s *LogService) LogAccountCreated(accountID uint, email string) error {
	return s.LogInfo(models.LogModuleAccount, "create", "Email account connected", AccountChangeDetails{
		AccountID:    accountID,
		AccountEmail: email,
	})
}

// LogAccountDeleted logs an account deletion event
func (s *LogService) LogAccountDeleted(accountID uint, email string) error {
	return s.LogInfo(models.LogModuleAccount, "delete", "Email account deleted", AccountChangeDetails{
		AccountID:    accountID,
		AccountEmail: email,
	})
}

// LogAccountStatusChanged logs an account status change event
func (s *LogService) LogAccountStatusChanged(accountID uint, email string, active bool) error {
	status := "deactivated"
	if active {
		status = "activated"
	}
	return s.LogInfo(models.LogModuleAccount, "status_change", "Email account "+status, AccountChangeDetails{
		AccountID:    accountID,
		AccountEmail: email,
		Field:        "is_active",
		NewValue:     status,
	})
}

// ===== Log Query Methods =====

// LogQuery represents query parameters for log retrieval
type LogQuery struct {
	Level     string
	Module    string
	Action    string
	StartTime *time.Time
	EndTime   *time.Time
	Page      int
	Limit     int
}

// LogQueryResult represents the result of a log query
type LogQueryResult struct {
	Total int64
	Logs  []models.Log
}

// QueryLogs retrieves logs based on query parameters
func (s *LogService) QueryLogs(query LogQuery) (*LogQueryResult, error) {
	db := s.db.Model(&models.Log{})

	if query.Level != "" {
		db = db.Where("level = ?", query.Level)
	}
	if query.Module != "" {
		db = db.Where("module = ?", query.Module)
	}
	if query.Action != "" {
		db = db.Where("action = ?", query.Action)
	}
	if query.StartTime != nil {
		db = db.Where("created_at >= ?", query.StartTime)
	}
	if query.EndTime != nil {
		db = db.Where("created_at <= ?", query.EndTime)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, err
	}

	if query.Page <= 0 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 50
	}

	offset := (query.Page - 1) * query.Limit

	var logs []models.Log
	if err := db.Order("created_at DESC").Offset(offset).Limit(query.Limit).Find(&logs).Error; err != nil {
		return nil, err
	}

	return &LogQueryResult{
		Total: total,
		Logs:  logs,
	}, nil
}

// GetRecentLogs retrieves the most recent logs
func (s *LogService) GetRecentLogs(limit int) ([]models.Log, error) {
	if limit <= 0 {
		limit = 100
	}

	var logs []models.Log
	if err := s.db.Order("created_at DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
