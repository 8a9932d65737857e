// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"regexp"
	"strings"
)

// qualifiedTag matches a handle carrying a 4-digit discriminator suffix,
// e.g. "alice#0042". Only qualified tags are precise enough to identify a
// participant without an id.
var qualifiedTag = regexp.MustCompile(`#\d{4}$`)

// Participant references a person on a roster. It is either identified (ID is
// set) or unidentified (only a display tag is known).
type Participant struct {
	ID  string `json:"id,omitempty" msgpack:"id,omitempty"`
	Tag string `json:"tag" msgpack:"tag"`
}

// NormalizeTag trims a display handle and strips a leading mention marker.
func NormalizeTag(tag string) string {
	return strings.TrimPrefix(strings.TrimSpace(tag), "@")
}

// IsQualifiedTag reports whether tag carries a discriminator suffix.
func IsQualifiedTag(tag string) bool {
	return qualifiedTag.MatchString(strings.TrimSpace(tag))
}

// Normalize returns a copy with a normalized tag.
func (p Participant) Normalize() Participant {
	return Participant{ID: strings.TrimSpace(p.ID), Tag: NormalizeTag(p.Tag)}
}

// IsIdentified reports whether the participant carries an opaque user id.
func (p Participant) IsIdentified() bool {
	return p.ID != ""
}

// IsEmpty reports whether neither an id nor a tag is present.
func (p Participant) IsEmpty() bool {
	return p.ID == "" && NormalizeTag(p.Tag) == ""
}

// Qualified reports whether the participant's tag is a qualified handle.
func (p Participant) Qualified() bool {
	return IsQualifiedTag(p.Tag)
}

// Same reports whether p and other refer to the same person: ids decide when
// both are identified, otherwise normalized tags are compared.
func (p Participant) Same(other Participant) bool {
	if p.IsIdentified() && other.IsIdentified() {
		return p.ID == other.ID
	}
	tag := NormalizeTag(p.Tag)
	return tag != "" && tag == NormalizeTag(other.Tag)
}

// Key returns the lookup key used by stores: the id when present, else the tag.
func (p Participant) Key() string {
	if p.IsIdentified() {
		return p.ID
	}
	return NormalizeTag(p.Tag)
}

// Resolve returns the canonical identified form of p when a matching member
// is known, otherwise the normalized reference itself.
func (p Participant) Resolve(members []Member) (Participant, bool) {
	n := p.Normalize()
	for _, m := range members {
		if m.Matches(n) {
			return Participant{ID: m.ID, Tag: NormalizeTag(m.Tag)}, true
		}
	}
	return n, false
}

// IndexOf returns the position of the first roster entry that is the same
// participant as p, or -1.
func IndexOf(roster []Participant, p Participant) int {
	for i, r := range roster {
		if r.Same(p) {
			return i
		}
	}
	return -1
}
