package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"omnidesk/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ErrRuleNotFound is returned when a rule id does not exist.
var ErrRuleNotFound = fmt.Errorf("automation rule not found")

// AutomationService persists rule definitions and serves the engine's
// fetch-by-trigger contract.
type AutomationService struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewAutomationService(db *gorm.DB, logger *logrus.Logger) *AutomationService {
	if logger == nil {
		logger = logrus.New()
	}
	return &AutomationService{db: db, logger: logger}
}

// AutomationRuleRequest 创建/更新规则的请求
type AutomationRuleRequest struct {
	Name       string             `json:"name" binding:"required"`
	Trigger    string             `json:"trigger" binding:"required"`
	IsActive   *bool              `json:"is_active"`
	Conditions []models.Condition `json:"conditions"`
	Actions    []models.Action    `json:"actions"`
}

func (r *AutomationRuleRequest) encode() (conditions, actions string, err error) {
	condJSON, err := json.Marshal(r.Conditions)
	if err != nil {
		return "", "", fmt.Errorf("invalid conditions: %w", err)
	}
	actJSON, err := json.Marshal(r.Actions)
	if err != nil {
		return "", "", fmt.Errorf("invalid actions: %w", err)
	}
	return string(condJSON), string(actJSON), nil
}

// CreateRule validates and stores a new rule.
func (s *AutomationService) CreateRule(ctx context.Context, req *AutomationRuleRequest) (*models.AutomationRule, error) {
	if req == nil {
		return nil, fmt.Errorf("request required")
	}
	if !models.IsSupportedTrigger(req.Trigger) {
		return nil, fmt.Errorf("unsupported trigger: %s", req.Trigger)
	}

	conditions, actions, err := req.encode()
	if err != nil {
		return nil, err
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	rule := &models.AutomationRule{
		Name:       req.Name,
		Trigger:    req.Trigger,
		IsActive:   active,
		Conditions: conditions,
		Actions:    actions,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(rule).Error; err != nil {
		return nil, err
	}
	return rule, nil
}

// ListRules 返回所有规则，按创建时间降序
func (s *AutomationService) ListRules(ctx context.Context) ([]models.AutomationRule, error) {
	var rules []models.AutomationRule
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

// GetRule loads one rule by id.
func (s *AutomationService) GetRule(ctx context.Context, id string) (*models.AutomationRule, error) {
	var rule models.AutomationRule
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&rule).Error
	if err == gorm.ErrRecordNotFound {
		return nil, ErrRuleNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// UpdateRule applies a full update to an existing rule.
func (s *AutomationService) UpdateRule(ctx context.Context, id string, req *AutomationRuleRequest) (*models.AutomationRule, error) {
	rule, err := s.GetRule(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("request required")
	}
	if !models.IsSupportedTrigger(req.Trigger) {
		return nil, fmt.Errorf("unsupported trigger: %s", req.Trigger)
	}

	conditions, actions, err := req.encode()
	if err != nil {
		return nil, err
	}

	rule.Name = req.Name
	rule.Trigger = req.Trigger
	rule.Conditions = conditions
	rule.Actions = actions
	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	}
	rule.UpdatedAt = time.Now()

	if err := s.db.WithContext(ctx).Save(rule).Error; err != nil {
		return nil, err
	}
	return rule, nil
}

// DeleteRule removes a rule permanently.
func (s *AutomationService) DeleteRule(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&models.AutomationRule{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRuleNotFound
	}
	return nil
}

// ToggleRule flips a rule's active flag.
func (s *AutomationService) ToggleRule(ctx context.Context, id string) (*models.AutomationRule, error) {
	rule, err := s.GetRule(ctx, id)
	if err != nil {
		return nil, err
	}
	rule.IsActive = !rule.IsActive
	rule.UpdatedAt = time.Now()
	if err := s.db.WithContext(ctx).Save(rule).Error; err != nil {
		return nil, err
	}
	return rule, nil
}

// FindActiveRulesByTrigger returns only active rules for the given trigger.
// This is the engine's fetch contract; inactive rules never leave the store.
func (s *AutomationService) FindActiveRulesByTrigger(ctx context.Context, trigger string) ([]models.AutomationRule, error) {
	var rules []models.AutomationRule
	if err := s.db.WithContext(ctx).
		Where("trigger = ? AND is_active = ?", trigger, true).
		Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

// ListRuns 返回最近的规则执行记录
func (s *AutomationService) ListRuns(ctx context.Context, limit int) ([]models.AutomationRun, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var runs []models.AutomationRun
	if err := s.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}
