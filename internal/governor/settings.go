package governor

import (
	"context"
	"errors"
	"log"
	"time"

	"DialGovernor/internal/model"
	"DialGovernor/internal/store"
)

// SettingsPatch is a partial campaign config update; nil fields keep their
// stored value.
type SettingsPatch struct {
	Mode           *model.Mode
	BudgetLimit    *int64
	LeadTarget     *int
	WindowStart    *model.TimeOfDay
	WindowEnd      *model.TimeOfDay
	ActiveDays     *model.WeekdaySet
	AutoSchedule   *bool
	AutoScheduleAt *model.TimeOfDay
	LiveTransfer   *bool
	Timezone       *string
}

// SaveSettings applies a partial update to the account's campaign config.
// Unknown accounts start from an empty config.
func (g *Governor) SaveSettings(ctx context.Context, accountID string, patch SettingsPatch) (*model.CampaignConfig, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	cfg, err := g.store.CampaignConfig(ctx, accountID)
	if errors.Is(err, store.ErrNotFound) {
		cfg = &model.CampaignConfig{AccountID: accountID, Mode: model.ModeBudget, Timezone: "UTC"}
	} else if err != nil {
		return nil, model.WrapTransient(err, "load settings for %s", accountID)
	}

	if patch.Mode != nil {
		cfg.Mode = *patch.Mode
	}
	if patch.BudgetLimit != nil {
		cfg.BudgetLimit = *patch.BudgetLimit
	}
	if patch.LeadTarget != nil {
		cfg.LeadTarget = *patch.LeadTarget
	}
	if patch.WindowStart != nil {
		cfg.WindowStart = *patch.WindowStart
	}
	if patch.WindowEnd != nil {
		cfg.WindowEnd = *patch.WindowEnd
	}
	if patch.ActiveDays != nil {
		cfg.ActiveDays = *patch.ActiveDays
	}
	if patch.AutoSchedule != nil {
		cfg.AutoSchedule = *patch.AutoSchedule
	}
	if patch.AutoScheduleAt != nil {
		cfg.AutoScheduleAt = *patch.AutoScheduleAt
	}
	if patch.LiveTransfer != nil {
		cfg.LiveTransfer = *patch.LiveTransfer
	}
	if patch.Timezone != nil {
		cfg.Timezone = *patch.Timezone
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if err := g.store.SaveCampaignConfig(ctx, cfg); err != nil {
		return nil, model.WrapTransient(err, "save settings for %s", accountID)
	}
	log.Printf("[INFO] settings saved for account %s", accountID)
	return cfg, nil
}

func validateConfig(cfg *model.CampaignConfig) error {
	if !cfg.Mode.Valid() {
		return model.NewError(model.KindValidation, model.RemedySettings,
			"unknown execution mode %q", cfg.Mode)
	}
	if cfg.BudgetLimit < 0 {
		return model.NewError(model.KindValidation, model.RemedySettings,
			"budget limit must not be negative")
	}
	if cfg.LeadTarget < 0 {
		return model.NewError(model.KindValidation, model.RemedySettings,
			"lead target must not be negative")
	}
	if !cfg.WindowStart.Valid() || !cfg.WindowEnd.Valid() {
		return model.NewError(model.KindValidation, model.RemedySettings,
			"calling window times must be between 00:00 and 23:59")
	}
	if cfg.AutoSchedule && !cfg.AutoScheduleAt.Valid() {
		return model.NewError(model.KindValidation, model.RemedySettings,
			"auto-schedule time must be between 00:00 and 23:59")
	}
	if cfg.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Timezone); err != nil {
			return model.NewError(model.KindValidation, model.RemedySettings,
				"unknown timezone %q", cfg.Timezone)
		}
	}
	return nil
}
