package mcpserver

// NoteFormatURI identifies the note format resource.
const NoteFormatURI = "vault://note-format"

// NoteFormat describes the Markdown note layout the vault tools read and
// write. Agents should follow it when calling upsert_note.
const NoteFormat = `# Vault Note Format

Notes are UTF-8 Markdown files ending in ` + "`" + `.md` + "`" + `. Paths are relative to the
vault root and use forward slashes.

## Structure

` + "```" + `markdown
---
title: Human-readable title
tags:
  - project/alpha
  - meeting
status: draft
---

Body text in Markdown. Link with [[Other Note]] or [[folder/note|alias]].
Inline tags like #idea are picked up too.
` + "```" + `

## Rules

1. The front-matter block is optional. When present, ` + "`" + `---` + "`" + ` must be the very
   first line and the block ends at the next line that is exactly ` + "`" + `---` + "`" + `.
2. Front matter is a YAML mapping. Malformed YAML is treated as no front matter.
3. ` + "`" + `tags` + "`" + ` may be a list or a single string; a leading ` + "`" + `#` + "`" + ` is ignored.
   Use ` + "`" + `/` + "`" + ` for hierarchy: ` + "`" + `project/alpha` + "`" + ` also counts as ` + "`" + `project` + "`" + `.
4. Wikilinks target the file name without ` + "`" + `.md` + "`" + `; ` + "`" + `#heading` + "`" + ` anchors and
   ` + "`" + `|alias` + "`" + ` display text are allowed.
5. Markdown links to external URLs are not part of the link graph.
6. The title shown in results is the ` + "`" + `title` + "`" + ` key, else the first ` + "`" + `# ` + "`" + `
   heading, else the file name.

## Querying

- ` + "`" + `query_frontmatter` + "`" + ` filters on keys with equality or
  ` + "`" + `[op, value]` + "`" + ` pairs where op is one of ` + "`" + `= != > >= < <= in contains like` + "`" + `.
  ` + "`" + `like` + "`" + ` is a case-insensitive substring match, ` + "`" + `contains` + "`" + ` tests list membership.
- Dotted keys such as ` + "`" + `project.owner` + "`" + ` reach into nested mappings.
- ` + "`" + `_file` + "`" + ` and ` + "`" + `_path` + "`" + ` in the result are the note path and its directory.
`
