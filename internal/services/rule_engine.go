package services

import (
	"context"
	"fmt"
	"time"

	"omnidesk/internal/metrics"
	"omnidesk/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// RuleStore is the narrow read contract the engine needs. Implementations
// must return only active rules for the given trigger; the engine does not
// re-check IsActive.
type RuleStore interface {
	FindActiveRulesByTrigger(ctx context.Context, trigger string) ([]models.AutomationRule, error)
}

// ActionDispatcher executes one action and owns its failure; it never
// propagates errors back into rule processing.
type ActionDispatcher interface {
	Execute(ctx context.Context, actionType string, params map[string]interface{}, payload map[string]interface{})
}

// RuleEngine connects a trigger event to the set of effects it should cause.
type RuleEngine struct {
	store      RuleStore
	dispatcher ActionDispatcher
	db         *gorm.DB // optional, for AutomationRun audit records
	logger     *logrus.Logger
}

func NewRuleEngine(store RuleStore, dispatcher ActionDispatcher, db *gorm.DB, logger *logrus.Logger) *RuleEngine {
	if logger == nil {
		logger = logrus.New()
	}
	return &RuleEngine{store: store, dispatcher: dispatcher, db: db, logger: logger}
}

// EvaluateTrigger loads the active rules for trigger and runs the actions of
// every rule whose conditions match payload. Rules are processed sequentially
// in store order; a rule's failure never stops the remaining rules. Only a
// store error propagates to the caller.
func (e *RuleEngine) EvaluateTrigger(ctx context.Context, trigger string, payload map[string]interface{}) error {
	rules, err := e.store.FindActiveRulesByTrigger(ctx, trigger)
	if err != nil {
		return fmt.Errorf("load rules for trigger %s: %w", trigger, err)
	}

	for i := range rules {
		e.processRule(ctx, &rules[i], trigger, payload)
	}
	return nil
}

// processRule evaluates one rule as an isolated unit.
func (e *RuleEngine) processRule(ctx context.Context, rule *models.AutomationRule, trigger string, payload map[string]interface{}) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Errorf("automation: rule %s (%s) panicked: %v", rule.Name, rule.ID, r)
			e.recordRun(ctx, rule, trigger, "failed", fmt.Sprintf("panic: %v", r))
		}
	}()

	metrics.IncRuleEvaluated()

	conds, err := rule.ConditionList()
	if err != nil {
		e.logger.Warnf("automation: rule %s has invalid conditions: %v", rule.Name, err)
		e.recordRun(ctx, rule, trigger, "invalid", err.Error())
		return
	}
	if !EvaluateConditions(conds, payload) {
		e.recordRun(ctx, rule, trigger, "skipped", "")
		return
	}

	actions, err := rule.ActionList()
	if err != nil {
		e.logger.Warnf("automation: rule %s has invalid actions: %v", rule.Name, err)
		e.recordRun(ctx, rule, trigger, "invalid", err.Error())
		return
	}

	metrics.IncRuleMatched()
	e.logger.Infof("automation: rule %s matched trigger %s", rule.Name, trigger)

	// Actions run strictly in list order; each one settles before the next
	// starts so the rule author's intended sequencing holds.
	for _, action := range actions {
		e.dispatcher.Execute(ctx, action.Type, action.Params, payload)
	}
	e.recordRun(ctx, rule, trigger, "matched", "")
}

func (e *RuleEngine) recordRun(ctx context.Context, rule *models.AutomationRule, trigger, status, message string) {
	if e.db == nil {
		return
	}
	run := &models.AutomationRun{
		RuleID:    rule.ID,
		Trigger:   trigger,
		Status:    status,
		Message:   message,
		CreatedAt: time.Now(),
	}
	if err := e.db.WithContext(ctx).Create(run).Error; err != nil {
		e.logger.Warnf("automation: record run failed: %v", err)
	}
}
