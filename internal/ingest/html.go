package ingest

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

var blockElements = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "main": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"li": true, "ul": true, "ol": true, "blockquote": true, "table": true,
	"tr": true, "br": true, "hr": true, "header": true, "footer": true,
	"figure": true, "figcaption": true,
}

var skippedElements = map[string]bool{
	"script": true, "style": true, "noscript": true, "iframe": true,
	"head": true, "nav": true, "svg": true,
}

// htmlToText extracts visible text. Block elements become paragraph
// breaks, <pre> becomes a fenced code block and inline <code> is kept in
// backticks so the segmenter can classify it. Outbound links become
// markdown links resolved against source so the citation audit sees them.
func htmlToText(doc, source string) (string, error) {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return "", err
	}
	base, _ := url.Parse(source)

	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case skippedElements[n.Data]:
				return
			case n.Data == "pre":
				buf.WriteString("\n\n```\n")
				buf.WriteString(strings.Trim(rawText(n), "\n"))
				buf.WriteString("\n```\n\n")
				return
			case n.Data == "code":
				buf.WriteString("`" + strings.TrimSpace(rawText(n)) + "` ")
				return
			case n.Data == "a":
				if link := resolveLink(base, attr(n, "href")); link != "" {
					text := strings.Join(strings.Fields(rawText(n)), " ")
					if text == "" || text == link {
						buf.WriteString(link + " ")
					} else {
						buf.WriteString("[" + strings.NewReplacer("[", "(", "]", ")").Replace(text) + "](" + link + ") ")
					}
					return
				}
			case blockElements[n.Data]:
				buf.WriteString("\n\n")
			}
		}

		if n.Type == html.TextNode {
			text := strings.Join(strings.Fields(n.Data), " ")
			if text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if n.Type == html.ElementNode && blockElements[n.Data] {
			buf.WriteString("\n\n")
		}
	}
	walk(root)

	return tidyBlankLines(buf.String()), nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

// resolveLink resolves href against base and keeps only http(s) targets;
// in-page anchors, mailto: and javascript: links return ""
func resolveLink(base *url.URL, href string) string {
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "mailto:") {
		return ""
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base != nil && base.IsAbs() {
		parsed = base.ResolveReference(parsed)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ""
	}
	return parsed.String()
}

// rawText concatenates descendant text without collapsing whitespace
func rawText(n *html.Node) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return buf.String()
}

// tidyBlankLines trims every line and collapses runs of blank lines, leaving
// fenced blocks untouched
func tidyBlankLines(s string) string {
	var out []string
	inFence := false
	blank := false
	for _, line := range strings.Split(s, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
			out = append(out, "```")
			blank = false
			continue
		}
		if inFence {
			out = append(out, line)
			continue
		}
		t := strings.TrimSpace(line)
		if t == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, t)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
