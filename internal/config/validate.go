package config

import (
	"errors"
	"fmt"
	"time"
)

// Validate validates the settings.
func (c *Settings) Validate() error {
	var errs []error

	if c.LogsDir == "" {
		errs = append(errs, errors.New("logs dir is required"))
	}

	if c.LandingURL == "" {
		errs = append(errs, errors.New("landing url is required"))
	}

	if c.SendURL == "" {
		errs = append(errs, errors.New("send url is required"))
	}

	if c.Phone.Digits < 0 {
		errs = append(errs, errors.New("phone digits must not be negative"))
	}

	timeouts := []struct {
		name string
		d    time.Duration
	}{
		{"timeouts.chat_load", c.Timeouts.ChatLoad},
		{"timeouts.popup", c.Timeouts.Popup},
		{"timeouts.send_control", c.Timeouts.SendControl},
	}
	for _, t := range timeouts {
		if t.d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", t.name))
		}
	}

	ranges := []struct {
		name string
		r    Range
	}{
		{"pacing.pre_click", c.Pacing.PreClick},
		{"pacing.post_click", c.Pacing.PostClick},
		{"pacing.between_recipients", c.Pacing.BetweenRecipients},
		{"pacing.popup_dismiss", c.Pacing.PopupDismiss},
	}
	for _, p := range ranges {
		if p.r.Min < 0 {
			errs = append(errs, fmt.Errorf("%s.min must not be negative", p.name))
		}
		if p.r.Min > p.r.Max {
			errs = append(errs, fmt.Errorf("%s.min must not exceed max", p.name))
		}
	}

	if c.Locators.ChatInput == "" {
		errs = append(errs, errors.New("locators.chat_input is required"))
	}
	if c.Locators.SendControl == "" {
		errs = append(errs, errors.New("locators.send_control is required"))
	}
	if c.Locators.InvalidPopup == "" {
		errs = append(errs, errors.New("locators.invalid_popup is required"))
	}

	if c.Redis.Enabled() && c.Redis.HistoryTTL <= 0 {
		errs = append(errs, errors.New("redis history TTL must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %w", errors.Join(errs...))
	}

	return nil
}
