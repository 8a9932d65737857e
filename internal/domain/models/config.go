// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

// RescheduleMode selects how a recurring event moves to its next occurrence.
type RescheduleMode string

const (
	// RescheduleUpdate edits the existing event and announcement in place.
	RescheduleUpdate RescheduleMode = "update"
	// RescheduleRepost creates a successor event and retires the original.
	RescheduleRepost RescheduleMode = "repost"
)

// Template is a community event template. A non-empty PlayerRoles list gates
// signups: a participant needs any one of the roles.
type Template struct {
	ID          string `json:"id" yaml:"id" validate:"required"`
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	IsDefault   bool   `json:"is_default,omitempty" yaml:"is_default,omitempty"`
	PlayerRoles []Role `json:"player_roles,omitempty" yaml:"player_roles,omitempty" validate:"dive"`
}

// CommunityConfig is the resolved per-community configuration passed into each
// operation.
type CommunityConfig struct {
	Lang            string         `json:"lang" yaml:"lang" validate:"omitempty,bcp47_language_tag"`
	DropOuts        bool           `json:"drop_outs" yaml:"drop_outs"`
	RescheduleMode  RescheduleMode `json:"reschedule_mode" yaml:"reschedule_mode" validate:"omitempty,oneof=update repost"`
	ReactionSignUp  string         `json:"reaction_sign_up" yaml:"reaction_sign_up"`
	ReactionDropOut string         `json:"reaction_drop_out" yaml:"reaction_drop_out"`
	Channels        []string       `json:"channels,omitempty" yaml:"channels,omitempty"`
	Templates       []Template     `json:"templates,omitempty" yaml:"templates,omitempty" validate:"dive"`
}

// Template returns the template with the given id, falling back to the
// default template and then to the first one.
func (c CommunityConfig) Template(id string) (Template, bool) {
	if id != "" {
		for _, t := range c.Templates {
			if t.ID == id {
				return t, true
			}
		}
	}
	for _, t := range c.Templates {
		if t.IsDefault {
			return t, true
		}
	}
	if len(c.Templates) > 0 {
		return c.Templates[0], true
	}
	return Template{}, false
}

// Mode returns the configured reschedule mode, defaulting to update.
func (c CommunityConfig) Mode() RescheduleMode {
	if c.RescheduleMode == "" {
		return RescheduleUpdate
	}
	return c.RescheduleMode
}
