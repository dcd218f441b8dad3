// Package frontmatter splits a note into its YAML metadata block and body,
// and serializes the inverse.
package frontmatter

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const delim = "---"

// Codec converts the text between the delimiters to and from a mapping.
type Codec interface {
	Decode(data []byte) (map[string]any, error)
	Encode(fm map[string]any) ([]byte, error)
}

// YAMLCodec is the Codec used by notes on disk.
type YAMLCodec struct{}

func (YAMLCodec) Decode(data []byte) (map[string]any, error) {
	var fm map[string]any
	if err := yaml.Unmarshal(data, &fm); err != nil {
		return nil, fmt.Errorf("frontmatter: decode: %w", err)
	}
	if fm == nil {
		fm = map[string]any{}
	}
	return fm, nil
}

// Encode emits keys in sorted order so output is stable across writes.
func (YAMLCodec) Encode(fm map[string]any) ([]byte, error) {
	out, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("frontmatter: encode: %w", err)
	}
	return out, nil
}

// Default is the codec used by Parse and Build.
var Default Codec = YAMLCodec{}

// Parse splits raw note text using the Default codec.
func Parse(raw string) (map[string]any, string) {
	return ParseWith(Default, raw)
}

// Build joins front matter and content using the Default codec.
func Build(fm map[string]any, content string) (string, error) {
	return BuildWith(Default, fm, content)
}

// ParseWith splits raw into front matter and content. It never fails:
// malformed metadata yields an empty map and the whole input as content.
// A leading delimiter without a closing one is dropped and the rest is content.
func ParseWith(c Codec, raw string) (map[string]any, string) {
	first, rest, found := strings.Cut(raw, "\n")
	if strings.TrimRight(first, "\r") != delim {
		return map[string]any{}, raw
	}
	if !found {
		return map[string]any{}, ""
	}

	block, body, closed := splitAtDelimiter(rest)
	if !closed {
		return map[string]any{}, strings.TrimLeft(rest, "\r\n")
	}
	content := strings.TrimLeft(body, "\r\n")
	if strings.TrimSpace(block) == "" {
		return map[string]any{}, content
	}

	fm, err := c.Decode([]byte(block))
	if err != nil {
		return map[string]any{}, raw
	}
	return fm, content
}

// splitAtDelimiter returns the text before and after the first line that
// consists solely of the delimiter.
func splitAtDelimiter(s string) (before, after string, ok bool) {
	offset := 0
	for offset <= len(s) {
		line := s[offset:]
		next := len(s)
		if i := strings.IndexByte(line, '\n'); i >= 0 {
			line = line[:i]
			next = offset + i + 1
		}
		if strings.TrimRight(line, "\r") == delim {
			return s[:offset], s[min(next, len(s)):], true
		}
		if next >= len(s) {
			break
		}
		offset = next
	}
	return "", "", false
}

// BuildWith serializes front matter and content. Empty front matter returns
// content unchanged with no delimiter block.
func BuildWith(c Codec, fm map[string]any, content string) (string, error) {
	if len(fm) == 0 {
		return content, nil
	}
	out, err := c.Encode(fm)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.Grow(len(out) + len(content) + 8)
	b.WriteString(delim + "\n")
	b.Write(out)
	b.WriteString(delim + "\n")
	b.WriteString(content)
	return b.String(), nil
}

// Tags returns the "tags" field as a list, accepting a scalar or a sequence.
// Leading '#' and surrounding whitespace are stripped; empty entries dropped.
func Tags(fm map[string]any) []string {
	raw, ok := fm["tags"]
	if !ok || raw == nil {
		return nil
	}
	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	case []string:
		for _, s := range v {
			items = append(items, s)
		}
	default:
		items = []any{v}
	}

	var out []string
	for _, item := range items {
		if item == nil {
			continue
		}
		s := strings.TrimSpace(fmt.Sprint(item))
		s = strings.TrimPrefix(s, "#")
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Merge returns a copy of base with every key from patch applied on top.
func Merge(base, patch map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}
