package mcpserver

// ContentFormatContract describes how content documents, partials and
// layouts are written, for LLM consumers editing a site.
const ContentFormatContract = `# xo Content Format

## Documents

Content documents live under content/ and end in .md. Directories whose name
starts with "_" are not published.

` + "```" + `markdown
---
title: Human-readable title   # OPTIONAL – falls back to the first "# " heading
layout: post                  # OPTIONAL – layouts/<layout>.html, default "default"
---

Body text in Markdown (GitHub flavoured). Raw HTML is kept.

{{> header}}                  # inlines content/_partials/header.md
Written by {{author}}.        # front-matter values are available as variables
` + "```" + `

## Partials

1. ` + "`{{> name}}`" + ` inlines content/_partials/<name>.md. Names may contain "/".
2. A missing partial renders as ` + "`<!-- Missing partial: name -->`" + `; creating the
   file later rebuilds every document that referenced it.
3. ` + "`{{> async}}`" + ` is always available and resolves to content/_partials/async.md.

## Layouts

Layouts are Mustache templates. The compiled body is available as
` + "`{{{content}}}`" + ` (triple braces keep the HTML unescaped). Front-matter values,
` + "`{{baseUrl}}`" + ` and ` + "`{{assets}}`" + ` are also available.

## Output

content/index.md becomes dist/index.html. Every other content/a/b.md becomes
dist/a/b/index.html.
`
