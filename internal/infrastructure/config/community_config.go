// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package config loads the per-community configuration file.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/domain/models"
)

// Defaults applied when neither the file nor a community sets a value.
const (
	DefaultLang            = "en-US"
	DefaultReactionSignUp  = "➕"
	DefaultReactionDropOut = "➖"
)

// DefaultCommunityConfig is the configuration of a community the file does
// not mention.
func DefaultCommunityConfig() models.CommunityConfig {
	return models.CommunityConfig{
		Lang:            DefaultLang,
		DropOuts:        true,
		RescheduleMode:  models.RescheduleUpdate,
		ReactionSignUp:  DefaultReactionSignUp,
		ReactionDropOut: DefaultReactionDropOut,
	}
}

// file is the layout of the configuration file. Each community entry is
// decoded on top of the defaults, so it only lists what differs.
type file struct {
	Defaults    yaml.Node            `yaml:"defaults"`
	Communities map[string]yaml.Node `yaml:"communities"`
}

// CommunityConfigProvider resolves community configuration from a parsed
// configuration file.
type CommunityConfigProvider struct {
	mu          sync.RWMutex
	defaults    models.CommunityConfig
	communities map[string]models.CommunityConfig
}

var _ domain.CommunityConfigProvider = (*CommunityConfigProvider)(nil)

// NewStaticProvider returns a provider that answers every community with
// defaults.
func NewStaticProvider(defaults models.CommunityConfig) *CommunityConfigProvider {
	return &CommunityConfigProvider{
		defaults:    defaults,
		communities: map[string]models.CommunityConfig{},
	}
}

// LoadFile reads and validates the configuration file at path. An empty path
// yields the built-in defaults.
func LoadFile(path string) (*CommunityConfigProvider, error) {
	if path == "" {
		return NewStaticProvider(DefaultCommunityConfig()), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read community config %s: %w", path, err)
	}
	provider, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("community config %s: %w", path, err)
	}
	slog.Info("loaded community configuration", "path", path, "communities", len(provider.communities))
	return provider, nil
}

// Parse decodes and validates a configuration document.
func Parse(data []byte) (*CommunityConfigProvider, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	defaults := DefaultCommunityConfig()
	if !f.Defaults.IsZero() {
		if err := f.Defaults.Decode(&defaults); err != nil {
			return nil, fmt.Errorf("defaults: %w", err)
		}
	}
	if err := validate.Struct(defaults); err != nil {
		return nil, fmt.Errorf("defaults: %w", err)
	}

	communities := make(map[string]models.CommunityConfig, len(f.Communities))
	for id, node := range f.Communities {
		cfg := clone(defaults)
		if err := node.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("community %s: %w", id, err)
		}
		if err := validate.Struct(cfg); err != nil {
			return nil, fmt.Errorf("community %s: %w", id, err)
		}
		if err := checkTemplates(cfg.Templates); err != nil {
			return nil, fmt.Errorf("community %s: %w", id, err)
		}
		communities[id] = cfg
	}

	return &CommunityConfigProvider{defaults: defaults, communities: communities}, nil
}

// checkTemplates rejects duplicate template ids and more than one default.
func checkTemplates(templates []models.Template) error {
	seen := make(map[string]bool, len(templates))
	defaults := 0
	for _, t := range templates {
		if seen[t.ID] {
			return fmt.Errorf("duplicate template id %q", t.ID)
		}
		seen[t.ID] = true
		if t.IsDefault {
			defaults++
		}
	}
	if defaults > 1 {
		return fmt.Errorf("%d templates are marked default", defaults)
	}
	return nil
}

func clone(cfg models.CommunityConfig) models.CommunityConfig {
	cfg.Channels = slices.Clone(cfg.Channels)
	templates := make([]models.Template, len(cfg.Templates))
	for i, t := range cfg.Templates {
		t.PlayerRoles = slices.Clone(t.PlayerRoles)
		templates[i] = t
	}
	if cfg.Templates != nil {
		cfg.Templates = templates
	}
	return cfg
}

// CommunityConfig returns the configuration of the community, or the
// defaults when the file has no entry for it.
func (p *CommunityConfigProvider) CommunityConfig(ctx context.Context, communityID string) (models.CommunityConfig, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if cfg, ok := p.communities[communityID]; ok {
		return clone(cfg), nil
	}
	return clone(p.defaults), nil
}

// Set replaces the configuration of one community.
func (p *CommunityConfigProvider) Set(communityID string, cfg models.CommunityConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.communities[communityID] = clone(cfg)
}
