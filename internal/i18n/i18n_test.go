// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package i18n

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/domain/models"
)

var _ domain.Localizer = (*Catalog)(nil)

func TestLoadEmbedded(t *testing.T) {
	c, err := LoadEmbedded()
	require.NoError(t, err)
	assert.Equal(t, []string{"en-US", "de-DE"}, c.Languages())
}

func TestCatalog_Rejection(t *testing.T) {
	c, err := LoadEmbedded()
	require.NoError(t, err)

	tests := []struct {
		name   string
		lang   string
		reason models.RejectionReason
		roles  []string
		want   string
	}{
		{
			name:   "english default",
			lang:   "",
			reason: models.RejectAlreadyStarted,
			want:   "This event has already started.",
		},
		{
			name:   "german",
			lang:   "de-DE",
			reason: models.RejectAlreadyStarted,
			want:   "Dieses Event hat bereits begonnen.",
		},
		{
			name:   "unknown language falls back to english",
			lang:   "xx",
			reason: models.RejectNotSignedUp,
			want:   "You are not signed up for this event.",
		},
		{
			name:   "single role",
			lang:   "en-US",
			reason: models.RejectMissingRole,
			roles:  []string{"Player"},
			want:   "You need the `Player` role to sign up for this event.",
		},
		{
			name:   "several roles",
			lang:   "en-US",
			reason: models.RejectMissingRole,
			roles:  []string{"A", "B", "C"},
			want:   "You need the `A`, `B` or `C` role to sign up for this event.",
		},
		{
			name:   "unknown reason",
			lang:   "en-US",
			reason: models.RejectionReason("mystery"),
			want:   "Your request could not be completed.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Rejection(tt.lang, tt.reason, tt.roles))
		})
	}
}

func TestCatalog_Text(t *testing.T) {
	c, err := LoadEmbedded()
	require.NoError(t, err)

	assert.Equal(t, "You are number 3 on the waitlist.", c.Text("en-US", "waitlist_position", 3))
	assert.Equal(t, "Du bist Nummer 2 auf der Warteliste.", c.Text("de-DE", "waitlist_position", 2))
}

func TestLoadFromFS_Errors(t *testing.T) {
	_, err := LoadFromFS(fstest.MapFS{})
	assert.Error(t, err)

	_, err = LoadFromFS(fstest.MapFS{
		"locales/de-DE.yaml": {Data: []byte("locale: de-DE\nmessages:\n  or: oder\n")},
	})
	assert.Error(t, err, "base locale is required")

	_, err = LoadFromFS(fstest.MapFS{
		"locales/en-US.yaml": {Data: []byte("locale: [\n")},
	})
	assert.Error(t, err)
}
