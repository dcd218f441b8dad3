package stats

import (
	"context"
	"sort"
	"strings"

	"github.com/j-shelfwood/obsidian-local-rest-api/internal/parser"
)

// Tag listing formats.
const (
	FormatFlat         = "flat"
	FormatHierarchical = "hierarchical"
)

// TagCount is one entry of a flat tag listing.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// TagNode is one level of a hierarchical tag listing.
type TagNode struct {
	Count    int                 `json:"_count"`
	Children map[string]*TagNode `json:"_children"`
}

// TagsRequest controls a tag listing.
type TagsRequest struct {
	MinCount      int
	IncludeNested bool
	Format        string
}

// TagsResult is the response of a tag listing. Tags holds []TagCount for the
// flat format and map[string]*TagNode for the hierarchical one.
type TagsResult struct {
	TotalUniqueTags   int `json:"total_unique_tags"`
	TotalFilesScanned int `json:"total_files_scanned"`
	Tags              any `json:"tags"`
}

// Tags counts, per tag, the number of notes carrying it.
func (e *Engine) Tags(ctx context.Context, req TagsRequest) (*TagsResult, error) {
	if req.MinCount < 1 {
		req.MinCount = 1
	}
	paths, err := e.vault.MarkdownPaths("")
	if err != nil {
		return nil, err
	}
	docs, err := e.vault.LoadAll(ctx, paths)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, d := range docs {
		for _, t := range parser.ExtractAllTags(d.FrontMatter, d.Content, req.IncludeNested) {
			counts[t]++
		}
	}

	flat := make([]TagCount, 0, len(counts))
	for tag, n := range counts {
		if n >= req.MinCount {
			flat = append(flat, TagCount{Tag: tag, Count: n})
		}
	}
	sort.Slice(flat, func(i, j int) bool {
		if flat[i].Count != flat[j].Count {
			return flat[i].Count > flat[j].Count
		}
		return flat[i].Tag < flat[j].Tag
	})

	res := &TagsResult{
		TotalUniqueTags:   len(flat),
		TotalFilesScanned: len(paths),
	}
	if req.Format == FormatHierarchical {
		res.Tags = Hierarchy(flat)
	} else {
		res.Tags = flat
	}
	return res, nil
}

// Hierarchy folds tag counts into a tree keyed by path segment. Each node's
// count is the sum of the counts of every listed tag passing through it.
func Hierarchy(counts []TagCount) map[string]*TagNode {
	root := make(map[string]*TagNode)
	for _, tc := range counts {
		level := root
		for _, part := range strings.Split(tc.Tag, "/") {
			node, ok := level[part]
			if !ok {
				node = &TagNode{Children: make(map[string]*TagNode)}
				level[part] = node
			}
			node.Count += tc.Count
			level = node.Children
		}
	}
	return root
}
