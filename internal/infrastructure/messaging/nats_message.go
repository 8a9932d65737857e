// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package messaging

import (
	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/domain"
	"github.com/nats-io/nats.go"
)

// NatsMsg adapts a received NATS message to domain.Message.
type NatsMsg struct {
	*nats.Msg
}

var _ domain.Message = (*NatsMsg)(nil)

// NewNatsMsg wraps msg.
func NewNatsMsg(msg *nats.Msg) *NatsMsg {
	return &NatsMsg{Msg: msg}
}

// Subject returns the subject the message was received on.
func (m *NatsMsg) Subject() string {
	return m.Msg.Subject
}

// Data returns the message payload.
func (m *NatsMsg) Data() []byte {
	return m.Msg.Data
}

// HasReply reports whether the sender waits for a reply.
func (m *NatsMsg) HasReply() bool {
	return m.Msg.Reply != ""
}

// Respond sends data to the reply subject.
func (m *NatsMsg) Respond(data []byte) error {
	return m.Msg.Respond(data)
}
