// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package bootstrap wires the NATS connection, the stores and the event
// service for the service and the admin CLI.
package bootstrap

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/linuxfoundation/lfx-v2-event-roster-service/pkg/constants"
)

// Environment holds the settings read from the process environment.
type Environment struct {
	Port string `env:"PORT" envDefault:"8080"`

	NATSURL             string        `env:"NATS_URL" envDefault:"nats://localhost:4222"`
	NATSTimeout         time.Duration `env:"NATS_TIMEOUT" envDefault:"10s"`
	NATSMaxReconnect    int           `env:"NATS_MAX_RECONNECT" envDefault:"3"`
	NATSReconnectWait   time.Duration `env:"NATS_RECONNECT_WAIT" envDefault:"2s"`
	NATSCreateBuckets   bool          `env:"NATS_CREATE_BUCKETS"`
	GatewayTimeout      time.Duration `env:"GATEWAY_TIMEOUT" envDefault:"5s"`
	CommunityConfigFile string        `env:"COMMUNITY_CONFIG_FILE"`

	RegistrationStore string `env:"REGISTRATION_STORE" envDefault:"nats"`
	DatabaseURL       string `env:"DATABASE_URL"`

	WorkerCount             int           `env:"WORKER_COUNT" envDefault:"4"`
	RescheduleSweepInterval time.Duration `env:"RESCHEDULE_SWEEP_INTERVAL" envDefault:"5m"`
	SkipRevisionCheck       bool          `env:"SKIP_REVISION_CHECK"`
	EditLinkBaseURL         string        `env:"EDIT_LINK_BASE_URL"`
}

// ParseEnv reads the Environment and checks the values that depend on each
// other.
func ParseEnv() (Environment, error) {
	var e Environment
	if err := env.Parse(&e); err != nil {
		return e, fmt.Errorf("parse env: %w", err)
	}
	return e, e.validate()
}

func (e Environment) validate() error {
	switch e.RegistrationStore {
	case constants.RegistrationStoreNATS:
	case constants.RegistrationStorePostgres:
		if e.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when REGISTRATION_STORE=%s", constants.RegistrationStorePostgres)
		}
	default:
		return fmt.Errorf("unknown REGISTRATION_STORE %q", e.RegistrationStore)
	}
	if e.WorkerCount < 1 {
		return fmt.Errorf("WORKER_COUNT must be positive, got %d", e.WorkerCount)
	}
	if e.RescheduleSweepInterval < 0 {
		return fmt.Errorf("RESCHEDULE_SWEEP_INTERVAL must not be negative")
	}
	return nil
}
