package catalog

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	multiNewlinePattern = regexp.MustCompile(`\n{3,}`)
	multiSpacePattern   = regexp.MustCompile(`[ \t]+`)
)

// HTMLToMarkdown converts the small subset of HTML used for auxiliary
// question content (headings, paragraphs, lists, links, images) into
// markdown the terminal renderer understands.
func HTMLToMarkdown(htmlContent string) (string, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	extractText(doc, &sb, 0)
	return cleanMarkdown(sb.String()), nil
}

func extractText(n *html.Node, sb *strings.Builder, depth int) {
	if depth > 50 {
		return
	}

	switch n.Type {
	case html.TextNode:
		text := strings.TrimSpace(n.Data)
		if text != "" {
			sb.WriteString(text)
			sb.WriteString(" ")
		}
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "noscript", "iframe", "svg":
			return
		case "h1", "h2", "h3", "h4", "h5", "h6":
			sb.WriteString("\n\n")
			sb.WriteString(strings.Repeat("#", int(n.Data[1]-'0')))
			sb.WriteString(" ")
		case "p", "div":
			sb.WriteString("\n\n")
		case "br":
			sb.WriteString("\n")
		case "li":
			sb.WriteString("\n- ")
		case "strong", "b":
			wrapInline(n, sb, depth, "**")
			return
		case "em", "i":
			wrapInline(n, sb, depth, "_")
			return
		case "img":
			src := getAttr(n, "src")
			if src == "" {
				return
			}
			sb.WriteString("![")
			sb.WriteString(getAttr(n, "alt"))
			sb.WriteString("](")
			sb.WriteString(src)
			sb.WriteString(") ")
			return
		case "a":
			href := getAttr(n, "href")
			if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
				break
			}
			sb.WriteString("[")
			sb.WriteString(innerText(n, depth))
			sb.WriteString("](")
			sb.WriteString(href)
			sb.WriteString(") ")
			return
		}
	}

	walkChildren(n, sb, depth)

	if n.Type == html.ElementNode {
		switch n.Data {
		case "p", "div", "ul", "ol":
			sb.WriteString("\n")
		}
	}
}

func walkChildren(n *html.Node, sb *strings.Builder, depth int) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		extractText(c, sb, depth+1)
	}
}

func innerText(n *html.Node, depth int) string {
	var inner strings.Builder
	walkChildren(n, &inner, depth)
	return strings.TrimSpace(inner.String())
}

func wrapInline(n *html.Node, sb *strings.Builder, depth int, marker string) {
	text := innerText(n, depth)
	if text == "" {
		return
	}
	sb.WriteString(marker)
	sb.WriteString(text)
	sb.WriteString(marker)
	sb.WriteString(" ")
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// cleanMarkdown collapses whitespace runs and trims each line.
func cleanMarkdown(s string) string {
	s = multiSpacePattern.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = strings.Join(lines, "\n")
	s = multiNewlinePattern.ReplaceAllString(s, "\n\n")

	return strings.TrimSpace(s)
}
