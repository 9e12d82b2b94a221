package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Profile is a reusable run definition stored as YAML.
type Profile struct {
	Template   string            `yaml:"template"`
	StaticVars map[string]string `yaml:"static_vars"`
	Timeouts   ProfileTimeouts   `yaml:"timeouts"`
	Pacing     ProfilePacing     `yaml:"pacing"`
	Locators   ProfileLocators   `yaml:"locators"`
	Phone      ProfilePhone      `yaml:"phone"`
}

// ProfileTimeouts overrides Timeouts. Zero values keep the current setting.
type ProfileTimeouts struct {
	ChatLoad    Duration `yaml:"chat_load"`
	Popup       Duration `yaml:"popup"`
	SendControl Duration `yaml:"send_control"`
}

// ProfilePacing overrides Pacing.
type ProfilePacing struct {
	PreClick          *ProfileRange `yaml:"pre_click,omitempty"`
	PostClick         *ProfileRange `yaml:"post_click,omitempty"`
	BetweenRecipients *ProfileRange `yaml:"between_recipients,omitempty"`
	PopupDismiss      *ProfileRange `yaml:"popup_dismiss,omitempty"`
}

// ProfileRange is a pause interval in YAML.
type ProfileRange struct {
	Min Duration `yaml:"min"`
	Max Duration `yaml:"max"`
}

// ProfileLocators overrides Locators.
type ProfileLocators struct {
	ChatInput    string `yaml:"chat_input"`
	SendControl  string `yaml:"send_control"`
	InvalidPopup string `yaml:"invalid_popup"`
}

// ProfilePhone overrides PhoneConfig.
type ProfilePhone struct {
	Prefix *string `yaml:"prefix,omitempty"`
	Digits *int    `yaml:"digits,omitempty"`
}

// Duration is a time.Duration written in Go syntax ("20s", "1m30s").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	d.Duration = parsed
	return nil
}

// LoadProfile reads a run profile. Unknown keys are rejected.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var p Profile
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse profile %s: %w", path, err)
	}

	return &p, nil
}

// Apply overlays the profile's non-zero values onto s.
func (p *Profile) Apply(s *Settings) {
	overrideDuration(&s.Timeouts.ChatLoad, p.Timeouts.ChatLoad)
	overrideDuration(&s.Timeouts.Popup, p.Timeouts.Popup)
	overrideDuration(&s.Timeouts.SendControl, p.Timeouts.SendControl)

	overrideRange(&s.Pacing.PreClick, p.Pacing.PreClick)
	overrideRange(&s.Pacing.PostClick, p.Pacing.PostClick)
	overrideRange(&s.Pacing.BetweenRecipients, p.Pacing.BetweenRecipients)
	overrideRange(&s.Pacing.PopupDismiss, p.Pacing.PopupDismiss)

	overrideString(&s.Locators.ChatInput, p.Locators.ChatInput)
	overrideString(&s.Locators.SendControl, p.Locators.SendControl)
	overrideString(&s.Locators.InvalidPopup, p.Locators.InvalidPopup)

	if p.Phone.Prefix != nil {
		s.Phone.Prefix = *p.Phone.Prefix
	}
	if p.Phone.Digits != nil {
		s.Phone.Digits = *p.Phone.Digits
	}
}

func overrideDuration(dst *time.Duration, d Duration) {
	if d.Duration != 0 {
		*dst = d.Duration
	}
}

func overrideRange(dst *Range, r *ProfileRange) {
	if r == nil {
		return
	}
	*dst = Range{Min: r.Min.Duration, Max: r.Max.Duration}
}

func overrideString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
