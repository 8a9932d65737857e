// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package i18n renders the user-facing strings of the event roster service
// in a community's language.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"

	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/domain/models"
)

// BaseLocale is the locale used when a community's language is unknown.
const BaseLocale = "en-US"

//go:embed locales/*.yaml
var embeddedLocales embed.FS

type localeFile struct {
	Locale   string            `yaml:"locale"`
	Messages map[string]string `yaml:"messages"`
}

// Catalog is a domain.Localizer backed by an x/text message catalog.
type Catalog struct {
	builder *catalog.Builder
	tags    []language.Tag
	matcher language.Matcher
}

// LoadEmbedded loads the locales shipped with the service.
func LoadEmbedded() (*Catalog, error) {
	return LoadFromFS(embeddedLocales)
}

// LoadFromFS loads every locales/*.yaml file of fsys.
func LoadFromFS(fsys fs.FS) (*Catalog, error) {
	paths, err := fs.Glob(fsys, "locales/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locales: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no locale files found")
	}
	sort.Strings(paths)

	builder := catalog.NewBuilder(catalog.Fallback(language.MustParse(BaseLocale)))
	var tags []language.Tag
	for _, path := range paths {
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", path, err)
		}
		var file localeFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse locale %s: %w", path, err)
		}
		tag, err := language.Parse(strings.TrimSpace(file.Locale))
		if err != nil {
			return nil, fmt.Errorf("locale %s: %w", path, err)
		}
		for key, msg := range file.Messages {
			if err := builder.SetString(tag, key, msg); err != nil {
				return nil, fmt.Errorf("locale %s key %q: %w", path, key, err)
			}
		}
		tags = append(tags, tag)
	}

	base := language.MustParse(BaseLocale)
	sort.SliceStable(tags, func(i, j int) bool { return tags[i] == base && tags[j] != base })
	if len(tags) == 0 || tags[0] != base {
		return nil, fmt.Errorf("base locale %s is not defined", BaseLocale)
	}

	return &Catalog{
		builder: builder,
		tags:    tags,
		matcher: language.NewMatcher(tags),
	}, nil
}

// Languages returns the locales the catalog holds, base locale first.
func (c *Catalog) Languages() []string {
	out := make([]string, len(c.tags))
	for i, t := range c.tags {
		out[i] = t.String()
	}
	return out
}

func (c *Catalog) printer(lang string) *message.Printer {
	tag := c.tags[0]
	if lang != "" {
		if _, idx, conf := c.matcher.Match(language.Make(lang)); conf != language.No {
			tag = c.tags[idx]
		}
	}
	return message.NewPrinter(tag, message.Catalog(c.builder))
}

// Text renders the message stored under key.
func (c *Catalog) Text(lang, key string, args ...any) string {
	return c.printer(lang).Sprintf(key, args...)
}

// Rejection renders the reason a signup or drop-out was rejected. Roles are
// only used for the missing role reason.
func (c *Catalog) Rejection(lang string, reason models.RejectionReason, roles []string) string {
	key := "rejection." + string(reason)
	if reason == models.RejectMissingRole {
		return c.Text(lang, key, c.joinRoles(lang, roles))
	}
	msg := c.Text(lang, key)
	if msg == key {
		return c.Text(lang, "rejection.unknown")
	}
	return msg
}

// joinRoles renders `a`, `b` or `c`.
func (c *Catalog) joinRoles(lang string, roles []string) string {
	quoted := make([]string, 0, len(roles))
	for _, r := range roles {
		quoted = append(quoted, "`"+r+"`")
	}
	switch len(quoted) {
	case 0:
		return ""
	case 1:
		return quoted[0]
	}
	or := c.Text(lang, "or")
	return strings.Join(quoted[:len(quoted)-1], ", ") + " " + or + " " + quoted[len(quoted)-1]
}
