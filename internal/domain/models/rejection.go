// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

// RejectionReason is a typed business rejection for signup and drop-out.
type RejectionReason string

const (
	RejectCommunityNotFound    RejectionReason = "community_not_found"
	RejectAlreadyStarted       RejectionReason = "already_started"
	RejectWaitlistDisabledFull RejectionReason = "waitlist_disabled_full"
	RejectMissingRole          RejectionReason = "missing_role"
	RejectAlreadySignedUp      RejectionReason = "already_signed_up"
	RejectDropOutsDisabled     RejectionReason = "drop_outs_disabled"
	RejectNotSignedUp          RejectionReason = "not_signed_up"
)

// SignupResult is the outcome of a signup or drop-out request.
type SignupResult struct {
	Accepted bool            `json:"accepted"`
	Reason   RejectionReason `json:"reason,omitempty"`
	// Message is the localized, user-facing reason.
	Message string `json:"message,omitempty"`
	// Waitlisted is set on accepted signups that landed past the player cap.
	Waitlisted       bool `json:"waitlisted,omitempty"`
	WaitlistPosition int  `json:"waitlist_position,omitempty"`
}

// Accepted returns a successful result.
func Accepted() *SignupResult {
	return &SignupResult{Accepted: true}
}

// Rejected returns a rejection with the given reason and message.
func Rejected(reason RejectionReason, message string) *SignupResult {
	return &SignupResult{Reason: reason, Message: message}
}
