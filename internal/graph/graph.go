// Package graph analyses the implicit link graph between notes: backlinks
// and relatedness by shared tags and wikilinks.
package graph

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"github.com/j-shelfwood/obsidian-local-rest-api/internal/apperr"
	"github.com/j-shelfwood/obsidian-local-rest-api/internal/frontmatter"
	"github.com/j-shelfwood/obsidian-local-rest-api/internal/models"
	"github.com/j-shelfwood/obsidian-local-rest-api/internal/parser"
	"github.com/j-shelfwood/obsidian-local-rest-api/internal/vault"
)

// Relatedness criteria.
const (
	CriterionTags  = "tags"
	CriterionLinks = "links"
)

const (
	DefaultRelatedLimit = 10
	linkWeight          = 2
)

// DefaultCriteria are used when a related-notes request names none.
var DefaultCriteria = []string{CriterionTags, CriterionLinks}

// Backlink describes one note that references the target.
type Backlink struct {
	File         string           `json:"file"`
	Links        []models.Link    `json:"links"`
	Mentions     []models.Mention `json:"mentions"`
	LinkCount    int              `json:"link_count"`
	MentionCount int              `json:"mention_count"`
}

// BacklinksResult is the response of a backlinks lookup.
type BacklinksResult struct {
	TargetNote        string        `json:"target_note"`
	Backlinks         []Backlink    `json:"backlinks"`
	OutgoingLinks     []models.Link `json:"outgoing_links"`
	BacklinkCount     int           `json:"backlink_count"`
	OutgoingLinkCount int           `json:"outgoing_link_count"`
}

// RelatedNote is a note scored against the source note.
type RelatedNote struct {
	Note        models.Note `json:"note"`
	Similarity  int         `json:"similarity"`
	Connections []string    `json:"connections"`
}

// RelatedResult is the response of a related-notes lookup.
type RelatedResult struct {
	RelatedNotes []RelatedNote `json:"related_notes"`
	SourceNote   string        `json:"source_note"`
	Criteria     []string      `json:"criteria"`
	TotalFound   int           `json:"total_found"`
}

// Engine walks the vault to answer graph questions.
type Engine struct {
	vault *vault.Vault
}

// New creates a graph engine.
func New(v *vault.Vault) *Engine {
	return &Engine{vault: v}
}

// Backlinks finds every other note that links to target or, with
// includeMentions, names it in plain text. A missing target still yields a
// result with no outgoing links.
func (e *Engine) Backlinks(ctx context.Context, target string, includeMentions, includeTags bool) (*BacklinksResult, error) {
	target = vault.NotePath(target)
	basename := parser.Basename(target)

	res := &BacklinksResult{
		TargetNote:    target,
		Backlinks:     make([]Backlink, 0),
		OutgoingLinks: make([]models.Link, 0),
	}
	if doc, err := e.vault.Load(target); err == nil {
		if links := parser.ExtractLinks(doc.Raw, includeTags); links != nil {
			res.OutgoingLinks = links
		}
	} else if !errors.Is(err, apperr.ErrNotFound) {
		slog.Warn("graph: read target", slog.String("path", target), slog.String("error", err.Error()))
	}

	docs, err := e.vault.LoadNotes(ctx, "")
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		if d.Path == target {
			continue
		}
		links := make([]models.Link, 0)
		for _, l := range parser.ExtractLinks(d.Raw, includeTags) {
			if l.Target == target || l.Target == basename || l.Target == basename+".md" {
				links = append(links, l)
			}
		}
		mentions := make([]models.Mention, 0)
		if includeMentions {
			if m := parser.FindMentions(d.Raw, basename); m != nil {
				mentions = m
			}
		}
		if len(links) == 0 && len(mentions) == 0 {
			continue
		}
		res.Backlinks = append(res.Backlinks, Backlink{
			File:         d.Path,
			Links:        links,
			Mentions:     mentions,
			LinkCount:    len(links),
			MentionCount: len(mentions),
		})
	}
	res.BacklinkCount = len(res.Backlinks)
	res.OutgoingLinkCount = len(res.OutgoingLinks)
	return res, nil
}

// Related scores every other note against source. Shared front-matter tags
// add one point each; a wikilink from source to the note or from the note
// back to source adds two points each. Notes scoring zero are dropped.
func (e *Engine) Related(ctx context.Context, source string, criteria []string, limit int) (*RelatedResult, error) {
	if limit <= 0 {
		limit = DefaultRelatedLimit
	}
	if len(criteria) == 0 {
		criteria = DefaultCriteria
	}
	useTags, useLinks := false, false
	for _, c := range criteria {
		switch c {
		case CriterionTags:
			useTags = true
		case CriterionLinks:
			useLinks = true
		}
	}

	src, err := e.vault.Load(source)
	if err != nil {
		return nil, err
	}
	var srcTags []string
	if useTags {
		srcTags = frontmatter.Tags(src.FrontMatter)
	}
	srcLinks := linkedBasenames(src.Content)
	srcBase := parser.Basename(source)

	docs, err := e.vault.LoadNotes(ctx, "")
	if err != nil {
		return nil, err
	}

	related := make([]RelatedNote, 0)
	for _, d := range docs {
		if d.Path == src.Path {
			continue
		}
		similarity := 0
		connections := make([]string, 0)

		if shared := intersect(srcTags, frontmatter.Tags(d.FrontMatter)); len(shared) > 0 {
			similarity += len(shared)
			connections = append(connections, "shared_tags: "+strings.Join(shared, ", "))
		}
		if useLinks && srcLinks[parser.Basename(d.Path)] {
			similarity += linkWeight
			connections = append(connections, "linked_to")
		}
		// Incoming links always count, whatever the criteria.
		if linkedBasenames(d.Content)[srcBase] {
			similarity += linkWeight
			connections = append(connections, "links_back")
		}
		if similarity == 0 {
			continue
		}
		related = append(related, RelatedNote{Note: d.Note, Similarity: similarity, Connections: connections})
	}

	sort.SliceStable(related, func(i, j int) bool { return related[i].Similarity > related[j].Similarity })
	if len(related) > limit {
		related = related[:limit]
	}
	return &RelatedResult{
		RelatedNotes: related,
		SourceNote:   source,
		Criteria:     criteria,
		TotalFound:   len(related),
	}, nil
}

// linkedBasenames returns the basenames referenced by wikilinks in content,
// so [[folder/Note#Heading|alias]] counts as a link to "Note".
func linkedBasenames(content string) map[string]bool {
	out := make(map[string]bool)
	for _, t := range parser.WikilinkTargets(content) {
		out[parser.Basename(t)] = true
	}
	return out
}

// intersect returns the elements of a also present in b, in a's order.
func intersect(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	inB := make(map[string]bool, len(b))
	for _, s := range b {
		inB[s] = true
	}
	seen := make(map[string]bool)
	var out []string
	for _, s := range a {
		if inB[s] && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
