// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package messaging

import (
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/mock"
)

// MockNATSConn is a testify mock of INatsConn.
type MockNATSConn struct {
	mock.Mock
}

var _ INatsConn = (*MockNATSConn)(nil)

// IsConnected reports true unless an expectation says otherwise.
func (m *MockNATSConn) IsConnected() bool {
	for _, c := range m.ExpectedCalls {
		if c.Method == "IsConnected" {
			return m.Called().Bool(0)
		}
	}
	return true
}

func (m *MockNATSConn) Publish(subj string, data []byte) error {
	args := m.Called(subj, data)
	return args.Error(0)
}

func (m *MockNATSConn) Request(subj string, data []byte, timeout time.Duration) (*nats.Msg, error) {
	args := m.Called(subj, data, timeout)
	msg, _ := args.Get(0).(*nats.Msg)
	return msg, args.Error(1)
}

// Reply is a helper returning a reply message carrying data.
func Reply(subject string, data string) *nats.Msg {
	return &nats.Msg{Subject: subject, Data: []byte(data)}
}
