// Package parser extracts wikilinks, markdown links, tags and plain-text
// mentions from note content.
package parser

import (
	"path"
	"regexp"
	"strings"

	"github.com/j-shelfwood/obsidian-local-rest-api/internal/frontmatter"
	"github.com/j-shelfwood/obsidian-local-rest-api/internal/models"
)

var (
	wikilinkRe = regexp.MustCompile(`\[\[([^\]]+)\]\]`)
	mdLinkRe   = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	// A tag's "#" must not follow a word character, "&", "/" or another "#",
	// which keeps URL fragments, entities and headings out.
	tagRe      = regexp.MustCompile(`(?:^|[^\w&/#])#([A-Za-z0-9_/-]+)`)
)

// ExtractLinks returns every wikilink and local markdown link in content, in
// order of appearance. Links whose URL starts with "http" are ignored. With
// includeTags, inline #tags are appended as tag entries.
func ExtractLinks(content string, includeTags bool) []models.Link {
	var out []models.Link
	for _, m := range wikilinkRe.FindAllStringSubmatch(content, -1) {
		target, display, _ := strings.Cut(m[1], "|")
		target = strings.TrimSpace(target)
		display = strings.TrimSpace(display)
		if target == "" {
			continue
		}
		if display == "" {
			display = target
		}
		out = append(out, models.Link{Type: models.LinkWikilink, Target: target, Display: display})
	}

	for _, m := range mdLinkRe.FindAllStringSubmatch(content, -1) {
		url := strings.TrimSpace(m[2])
		if strings.HasPrefix(url, "http") {
			continue
		}
		out = append(out, models.Link{Type: models.LinkMarkdown, Target: url, Display: m[1]})
	}

	if includeTags {
		for _, tag := range inlineTags(content) {
			out = append(out, models.Link{Type: models.LinkTag, Target: tag, Display: "#" + tag})
		}
	}
	return out
}

// WikilinkTargets returns the deduplicated wikilink targets in content with
// aliases and heading anchors removed.
func WikilinkTargets(content string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, l := range ExtractLinks(content, false) {
		if l.Type != models.LinkWikilink {
			continue
		}
		target, _, _ := strings.Cut(l.Target, "#")
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		if _, ok := seen[target]; ok {
			continue
		}
		seen[target] = struct{}{}
		out = append(out, target)
	}
	return out
}

func inlineTags(content string) []string {
	matches := tagRe.FindAllStringSubmatch(content, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if tag := strings.TrimRight(m[1], "/"); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

// ExtractAllTags returns the union of front-matter tags and inline body tags,
// deduplicated in first-seen order. With includeNested every hierarchical tag
// a/b/c also yields its ancestors a and a/b.
func ExtractAllTags(fm map[string]any, content string, includeNested bool) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(tag string) {
		if _, dup := seen[tag]; dup {
			return
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}

	base := append(frontmatter.Tags(fm), inlineTags(content)...)
	for _, tag := range base {
		tag = strings.Trim(tag, "/")
		if tag == "" {
			continue
		}
		if includeNested {
			for _, p := range Ancestors(tag) {
				add(p)
			}
		}
		add(tag)
	}
	return out
}

// Ancestors returns the proper prefixes of a hierarchical tag, shortest first.
func Ancestors(tag string) []string {
	parts := strings.Split(tag, "/")
	out := make([]string, 0, len(parts)-1)
	for i := 1; i < len(parts); i++ {
		out = append(out, strings.Join(parts[:i], "/"))
	}
	return out
}

// FindMentions reports every line containing basename, case-insensitively.
// Line numbers are 1-indexed and line text is trimmed.
func FindMentions(content, basename string) []models.Mention {
	if basename == "" {
		return nil
	}
	needle := strings.ToLower(basename)
	var out []models.Mention
	for i, line := range strings.Split(content, "\n") {
		if strings.Contains(strings.ToLower(line), needle) {
			out = append(out, models.Mention{LineNumber: i + 1, LineContent: strings.TrimSpace(line)})
		}
	}
	return out
}

// Basename returns the file name of p without its .md extension, matched
// case-insensitively.
func Basename(p string) string {
	base := path.Base(p)
	if n := len(base) - len(".md"); n >= 0 && strings.EqualFold(base[n:], ".md") {
		return base[:n]
	}
	return base
}

// Title returns the front-matter "title" if present, otherwise the first
// H1 heading, otherwise the file's basename.
func Title(fm map[string]any, content, notePath string) string {
	if s, ok := fm["title"].(string); ok && s != "" {
		return s
	}
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return Basename(notePath)
}
