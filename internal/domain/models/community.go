// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

// Role is a community role a member may hold.
type Role struct {
	ID   string `json:"id,omitempty" yaml:"id,omitempty"`
	Name string `json:"name" yaml:"name"`
}

// Member is a member of a community as reported by the gateway.
type Member struct {
	ID    string `json:"id"`
	Tag   string `json:"tag"`
	Roles []Role `json:"roles,omitempty"`
}

// Matches reports whether the member is the person referenced by p.
func (m Member) Matches(p Participant) bool {
	if p.ID != "" && m.ID == p.ID {
		return true
	}
	tag := NormalizeTag(p.Tag)
	return tag != "" && NormalizeTag(m.Tag) == tag
}

// HasAnyRole reports whether the member holds at least one of roles. A role
// without an id is matched by name.
func (m Member) HasAnyRole(roles []Role) bool {
	for _, want := range roles {
		for _, have := range m.Roles {
			if (want.ID != "" && have.ID == want.ID) || (want.ID == "" && have.Name == want.Name) {
				return true
			}
		}
	}
	return false
}

// Participant returns the member as an identified participant.
func (m Member) Participant() Participant {
	return Participant{ID: m.ID, Tag: NormalizeTag(m.Tag)}
}

// Channel is a channel announcements may be posted to.
type Channel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Community is the resolved community context for an event.
type Community struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Members  []Member  `json:"members"`
	Channels []Channel `json:"channels"`
}

// Member looks up the member referenced by p.
func (c *Community) Member(p Participant) (Member, bool) {
	if c == nil {
		return Member{}, false
	}
	for _, m := range c.Members {
		if m.Matches(p) {
			return m, true
		}
	}
	return Member{}, false
}

// HasChannel reports whether the community has a channel with the given id.
func (c *Community) HasChannel(id string) bool {
	if c == nil {
		return false
	}
	for _, ch := range c.Channels {
		if ch.ID == id {
			return true
		}
	}
	return false
}
