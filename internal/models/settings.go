package models

import (
	"time"
)

// KitchenSettings holds the per-hub display and notification configuration.
// The kitchen service only reads these values; editing them belongs to the
// settings collaborator.
type KitchenSettings struct {
	HubID string `gorm:"primary_key" json:"hub_id"`

	// Display
	AutoAcceptEnabled        bool `json:"auto_accept_enabled"`
	ShowTimer                bool `json:"show_timer"`
	WarningThresholdSeconds  int  `json:"warning_threshold_seconds"`
	CriticalThresholdSeconds int  `json:"critical_threshold_seconds"`
	ItemsPerPage             int  `json:"items_per_page"`
	RefreshIntervalSeconds   int  `json:"refresh_interval_seconds"`

	// Sound
	SoundEnabled    bool `json:"sound_enabled"`
	SoundOnNewOrder bool `json:"sound_on_new_order"`
	SoundOnRush     bool `json:"sound_on_rush"`

	// Auto-bump
	AutoBumpEnabled      bool `json:"auto_bump_enabled"`
	AutoBumpDelaySeconds int  `json:"auto_bump_delay_seconds"`

	// Color coding
	ColorCodingEnabled bool `json:"color_coding_enabled"`
}

// TableName sets the settings table name
func (KitchenSettings) TableName() string {
	return "kitchen_settings"
}

// DefaultSettings returns the settings record a hub gets before anything has
// been configured for it.
func DefaultSettings(hubID string) *KitchenSettings {
	return &KitchenSettings{
		HubID:                    hubID,
		AutoAcceptEnabled:        false,
		ShowTimer:                true,
		WarningThresholdSeconds:  900,
		CriticalThresholdSeconds: 1800,
		ItemsPerPage:             12,
		RefreshIntervalSeconds:   10,
		SoundEnabled:             true,
		SoundOnNewOrder:          true,
		SoundOnRush:              true,
		AutoBumpEnabled:          false,
		AutoBumpDelaySeconds:     300,
		ColorCodingEnabled:       true,
	}
}

// WarningThreshold returns the warning threshold as a duration. A zero or
// negative configured value disables the warning level.
func (s *KitchenSettings) WarningThreshold() time.Duration {
	return time.Duration(s.WarningThresholdSeconds) * time.Second
}

// CriticalThreshold returns the critical threshold as a duration. A zero or
// negative configured value disables the critical level.
func (s *KitchenSettings) CriticalThreshold() time.Duration {
	return time.Duration(s.CriticalThresholdSeconds) * time.Second
}

// AutoBumpDelay returns the auto-bump delay as a duration.
func (s *KitchenSettings) AutoBumpDelay() time.Duration {
	return time.Duration(s.AutoBumpDelaySeconds) * time.Second
}
