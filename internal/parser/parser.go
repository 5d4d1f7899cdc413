// Package parser extracts front-matter and partial references from content documents.
package parser

import (
	"bytes"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// PartialRef matches an inline partial reference such as {{> header}} or
// {{> blog/footer.html}}. Group 1 is the partial identifier.
var PartialRef = regexp.MustCompile(`\{\{>\s*([\w/.-]+)\s*\}\}`)

// Result holds the output of parsing a content document.
type Result struct {
	Frontmatter map[string]interface{}
	Body        string
	Partials    []string
	Title       string
	Layout      string
}

// Parse extracts front-matter, body and partial references from raw bytes.
func Parse(data []byte) (*Result, error) {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}
	if fm == nil {
		fm = map[string]interface{}{}
	}

	return &Result{
		Frontmatter: fm,
		Body:        body,
		Partials:    extractPartials(body),
		Title:       deriveTitle(fm, body),
		Layout:      stringField(fm, "layout"),
	}, nil
}

// splitFrontmatter separates YAML front-matter (between leading --- delimiters)
// from the body. If no front-matter is found the entire content is body.
func splitFrontmatter(data []byte) (map[string]interface{}, string, error) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data), nil
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		// No closing delimiter: treat everything as body.
		return nil, string(data), nil
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]interface{}
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		return nil, string(data), nil
	}

	return fm, body, nil
}

// extractPartials returns the referenced partial identifiers in order of
// first appearance, without duplicates.
func extractPartials(body string) []string {
	matches := PartialRef.FindAllStringSubmatch(body, -1)
	seen := make(map[string]struct{}, len(matches))
	var out []string
	for _, m := range matches {
		name := m[1]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// deriveTitle returns the front-matter "title" if present, otherwise the first
// H1 heading, otherwise empty string.
func deriveTitle(fm map[string]interface{}, body string) string {
	if t := stringField(fm, "title"); t != "" {
		return t
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

func stringField(fm map[string]interface{}, key string) string {
	if fm == nil {
		return ""
	}
	if v, ok := fm[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}
