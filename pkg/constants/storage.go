// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package constants

// JetStream key-value buckets
const (
	// KVBucketEvents holds one JSON document per event
	KVBucketEvents = "events"
	// KVBucketEventRegistrations holds one msgpack document per registration record
	KVBucketEventRegistrations = "event-registrations"
)

// Registration store backends
const (
	RegistrationStoreNATS     = "nats"
	RegistrationStorePostgres = "postgres"
)
