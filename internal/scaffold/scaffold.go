// Package scaffold writes a starter site for xo init.
package scaffold

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/starford/xo/internal/storage"
)

// File is one starter file, relative to the project root.
type File struct {
	Path    string
	Content string
}

// Files is the starter site.
var Files = []File{
	{Path: "content/index.md", Content: indexMD},
	{Path: "layouts/default.html", Content: defaultLayout},
	{Path: "xo.yaml", Content: configYAML},
}

const indexMD = `---
title: Welcome
---

# Welcome

Edit content/index.md and the page reloads on save.
`

const defaultLayout = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>{{title}}</title>
  <base href="{{baseUrl}}">
</head>
<body>
{{{content}}}
</body>
</html>
`

const configYAML = `app:
  log_level: info
  log_format: text
  http:
    port: 3000
site:
  content_dir: content
  layout_dir: layouts
  partials_dir: content/_partials
  output_dir: dist
  public_dir: public
  base_url: ${BASE_URL}
cache:
  enabled: true
  path: .xo/cache.db
`

// Init writes the starter files into root and returns the paths it created.
// Existing files are left untouched.
func Init(root string) ([]string, error) {
	store, err := storage.NewFS(root)
	if err != nil {
		return nil, fmt.Errorf("scaffold: %w", err)
	}

	var created []string
	for _, f := range Files {
		if _, err := store.Stat(f.Path); err == nil {
			continue
		} else if !errors.Is(err, fs.ErrNotExist) {
			return created, fmt.Errorf("scaffold: stat %s: %w", f.Path, err)
		}
		if err := store.Write(f.Path, []byte(f.Content)); err != nil {
			return created, fmt.Errorf("scaffold: %w", err)
		}
		created = append(created, f.Path)
	}
	return created, nil
}
