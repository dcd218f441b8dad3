package parser

import (
	"testing"

	"github.com/j-shelfwood/obsidian-local-rest-api/internal/models"
)

func TestExtractLinks_Wikilinks(t *testing.T) {
	links := ExtractLinks("See [[Note A]] and [[ Note B | alias ]].", false)
	if len(links) != 2 {
		t.Fatalf("len(links) = %d, want 2", len(links))
	}
	want := []models.Link{
		{Type: models.LinkWikilink, Target: "Note A", Display: "Note A"},
		{Type: models.LinkWikilink, Target: "Note B", Display: "alias"},
	}
	for i := range want {
		if links[i] != want[i] {
			t.Errorf("links[%d] = %+v, want %+v", i, links[i], want[i])
		}
	}
}

func TestExtractLinks_MarkdownSkipsHTTP(t *testing.T) {
	links := ExtractLinks("[local](notes/x.md) and [web](https://example.com) and [plain](http://x.y)", false)
	if len(links) != 1 {
		t.Fatalf("links = %+v, want one local link", links)
	}
	if links[0].Type != models.LinkMarkdown || links[0].Target != "notes/x.md" || links[0].Display != "local" {
		t.Errorf("link = %+v", links[0])
	}
}

func TestExtractLinks_Tags(t *testing.T) {
	content := "#start text #mid/level and a#notatag [x](y.md#anchor)"
	without := ExtractLinks(content, false)
	for _, l := range without {
		if l.Type == models.LinkTag {
			t.Fatalf("unexpected tag link %+v", l)
		}
	}

	var tags []models.Link
	for _, l := range ExtractLinks(content, true) {
		if l.Type == models.LinkTag {
			tags = append(tags, l)
		}
	}
	if len(tags) != 2 {
		t.Fatalf("tags = %+v, want 2", tags)
	}
	if tags[0].Target != "start" || tags[0].Display != "#start" || tags[1].Target != "mid/level" {
		t.Errorf("tags = %+v", tags)
	}
}

func TestWikilinkTargets(t *testing.T) {
	got := WikilinkTargets("[[A#Heading]] [[A|again]] [[folder/B]] [[ ]]")
	if len(got) != 2 || got[0] != "A" || got[1] != "folder/B" {
		t.Errorf("targets = %v, want [A folder/B]", got)
	}
}

func TestExtractAllTags_FrontmatterAndInline(t *testing.T) {
	fm := map[string]any{"tags": []any{"alpha"}}
	tags := ExtractAllTags(fm, "Some text #beta and #alpha again.", false)
	if len(tags) != 2 || tags[0] != "alpha" || tags[1] != "beta" {
		t.Errorf("tags = %v, want [alpha beta]", tags)
	}
}

func TestExtractAllTags_ScalarFrontmatter(t *testing.T) {
	tags := ExtractAllTags(map[string]any{"tags": "solo"}, "", false)
	if len(tags) != 1 || tags[0] != "solo" {
		t.Errorf("tags = %v, want [solo]", tags)
	}
}

func TestExtractAllTags_Nested(t *testing.T) {
	tags := ExtractAllTags(nil, "deep #a/b/c here", true)
	want := map[string]bool{"a": true, "a/b": true, "a/b/c": true}
	if len(tags) != len(want) {
		t.Fatalf("tags = %v, want %v", tags, want)
	}
	for _, tag := range tags {
		if !want[tag] {
			t.Errorf("unexpected tag %q", tag)
		}
	}

	flat := ExtractAllTags(nil, "deep #a/b/c here", false)
	if len(flat) != 1 || flat[0] != "a/b/c" {
		t.Errorf("flat tags = %v", flat)
	}
}

func TestExtractAllTags_Punctuation(t *testing.T) {
	tests := []struct {
		content string
		want    []string
	}{
		{"(#todo)", []string{"todo"}},
		{"**#todo**", []string{"todo"}},
		{"tags:#todo", []string{"todo"}},
		{"#a,#b", []string{"a", "b"}},
		{"text #todo", []string{"todo"}},
		{"see https://example.com/page#frag", nil},
		{"path/#frag and a#b", nil},
		{"&#39; ## Heading", nil},
	}
	for _, tt := range tests {
		t.Run(tt.content, func(t *testing.T) {
			got := ExtractAllTags(nil, tt.content, false)
			if len(got) != len(tt.want) {
				t.Fatalf("ExtractAllTags(%q) = %v, want %v", tt.content, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ExtractAllTags(%q)[%d] = %q, want %q", tt.content, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestBasename(t *testing.T) {
	tests := map[string]string{
		"notes/Note.md": "Note",
		"Note.MD":       "Note",
		"Note.Md":       "Note",
		"image.png":     "image.png",
		".md":           "",
	}
	for in, want := range tests {
		if got := Basename(in); got != want {
			t.Errorf("Basename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFindMentions(t *testing.T) {
	content := "first line\n  talks about Project X  \nnothing\nproject x again"
	got := FindMentions(content, "Project X")
	if len(got) != 2 {
		t.Fatalf("mentions = %+v, want 2", got)
	}
	if got[0].LineNumber != 2 || got[0].LineContent != "talks about Project X" {
		t.Errorf("mention[0] = %+v", got[0])
	}
	if got[1].LineNumber != 4 {
		t.Errorf("mention[1] = %+v", got[1])
	}
	if FindMentions(content, "") != nil {
		t.Error("empty basename should find nothing")
	}
}

func TestTitle_FrontmatterOverH1(t *testing.T) {
	title := Title(map[string]any{"title": "FM Title"}, "# H1 Title\ntext", "x.md")
	if title != "FM Title" {
		t.Errorf("title = %q, want %q", title, "FM Title")
	}
}

func TestTitle_Fallbacks(t *testing.T) {
	if got := Title(nil, "some text\n# My Heading\nmore", "x.md"); got != "My Heading" {
		t.Errorf("title = %q, want %q", got, "My Heading")
	}
	if got := Title(nil, "no heading", "dir/Plain Note.md"); got != "Plain Note" {
		t.Errorf("title = %q, want %q", got, "Plain Note")
	}
}
