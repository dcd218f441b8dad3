// Package stats aggregates vault-wide metrics and tag usage.
package stats

import (
	"context"
	"log/slog"
	"math"
	"regexp"

	"github.com/j-shelfwood/obsidian-local-rest-api/internal/parser"
	"github.com/j-shelfwood/obsidian-local-rest-api/internal/vault"
)

const timelineLayout = "2006-01"

var (
	htmlTagRe = regexp.MustCompile(`<[^>]*>`)
	wordRe    = regexp.MustCompile(`[\p{L}'-]+`)
)

// LongestNote is the note with the highest word count.
type LongestNote struct {
	File      string `json:"file"`
	WordCount int    `json:"word_count"`
}

// MostLinkedNote is the note with the most outgoing links.
type MostLinkedNote struct {
	File      string `json:"file"`
	LinkCount int    `json:"link_count"`
}

// HealthFactors are the ratios averaged into the health score. OrphanRatio
// holds one minus the share of orphan notes so that higher is healthier.
type HealthFactors struct {
	FrontmatterUsage float64 `json:"frontmatter_usage"`
	TagUsage         float64 `json:"tag_usage"`
	LinkUsage        float64 `json:"link_usage"`
	OrphanRatio      float64 `json:"orphan_ratio"`
}

// VaultStats is the full metrics record.
type VaultStats struct {
	TotalFiles           int             `json:"total_files"`
	MarkdownFiles        int             `json:"markdown_files"`
	TotalSizeBytes       int64           `json:"total_size_bytes"`
	NotesWithFrontmatter int             `json:"notes_with_frontmatter"`
	NotesWithTags        int             `json:"notes_with_tags"`
	NotesWithLinks       int             `json:"notes_with_links"`
	OrphanNotes          int             `json:"orphan_notes"`
	AverageNoteLength    int             `json:"average_note_length"`
	LongestNote          *LongestNote    `json:"longest_note"`
	MostLinkedNote       *MostLinkedNote `json:"most_linked_note"`
	TagDistribution      map[string]int  `json:"tag_distribution"`
	CreationTimeline     map[string]int  `json:"creation_timeline"`
	HealthScore          int             `json:"health_score"`
	HealthFactors        HealthFactors   `json:"health_factors"`
}

// Engine computes statistics over a vault.
type Engine struct {
	vault *vault.Vault
}

// New creates a statistics engine.
func New(v *vault.Vault) *Engine {
	return &Engine{vault: v}
}

// Stats reads every note once and derives the vault metrics. Notes that
// cannot be read count towards markdown_files but nothing else.
func (e *Engine) Stats(ctx context.Context) (*VaultStats, error) {
	all, err := e.vault.Store().List("", true)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, p := range all {
		if vault.IsMarkdown(p) {
			paths = append(paths, p)
		}
	}
	docs, err := e.vault.LoadAll(ctx, paths)
	if err != nil {
		return nil, err
	}

	s := &VaultStats{
		TotalFiles:       len(all),
		MarkdownFiles:    len(paths),
		TagDistribution:  make(map[string]int),
		CreationTimeline: make(map[string]int),
	}

	totalWords := 0
	for _, d := range docs {
		s.TotalSizeBytes += int64(len(d.Raw))
		if len(d.FrontMatter) > 0 {
			s.NotesWithFrontmatter++
		}

		tags := parser.ExtractAllTags(d.FrontMatter, d.Content, true)
		if len(tags) > 0 {
			s.NotesWithTags++
			for _, t := range tags {
				s.TagDistribution[t]++
			}
		}

		linkCount := len(parser.ExtractLinks(d.Raw, false))
		if linkCount > 0 {
			s.NotesWithLinks++
		} else {
			s.OrphanNotes++
		}
		if s.MostLinkedNote == nil || linkCount > s.MostLinkedNote.LinkCount {
			s.MostLinkedNote = &MostLinkedNote{File: d.Path, LinkCount: linkCount}
		}

		words := WordCount(d.Raw)
		totalWords += words
		if s.LongestNote == nil || words > s.LongestNote.WordCount {
			s.LongestNote = &LongestNote{File: d.Path, WordCount: words}
		}

		if mod, err := e.vault.Store().LastModified(d.Path); err == nil {
			s.CreationTimeline[mod.Format(timelineLayout)]++
		} else {
			slog.Debug("stats: last modified", slog.String("path", d.Path), slog.String("error", err.Error()))
		}
	}

	if len(docs) > 0 {
		s.AverageNoteLength = int(math.Round(float64(totalWords) / float64(len(docs))))
	}
	s.HealthFactors = healthFactors(s)
	s.HealthScore = int(math.Round((s.HealthFactors.FrontmatterUsage +
		s.HealthFactors.TagUsage +
		s.HealthFactors.LinkUsage +
		s.HealthFactors.OrphanRatio) / 4 * 100))
	return s, nil
}

// healthFactors divides by the markdown file count. With no notes every
// ratio is zero except the orphan factor, which is one.
func healthFactors(s *VaultStats) HealthFactors {
	if s.MarkdownFiles == 0 {
		return HealthFactors{OrphanRatio: 1}
	}
	n := float64(s.MarkdownFiles)
	return HealthFactors{
		FrontmatterUsage: float64(s.NotesWithFrontmatter) / n,
		TagUsage:         float64(s.NotesWithTags) / n,
		LinkUsage:        float64(s.NotesWithLinks) / n,
		OrphanRatio:      1 - float64(s.OrphanNotes)/n,
	}
}

// WordCount counts words after stripping HTML tags. A word is a run of
// letters, apostrophes and hyphens.
func WordCount(text string) int {
	return len(wordRe.FindAllStringIndex(htmlTagRe.ReplaceAllString(text, " "), -1))
}
