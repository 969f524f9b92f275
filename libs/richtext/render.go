package richtext

import (
	"strconv"
	"strings"
)

const (
	defaultLinkHref   = "#"
	defaultLinkTarget = "_blank"
	defaultLinkRel    = "noopener noreferrer"
)

// Render converts a document into an HTML fragment, one rendered block per
// line. It never fails: blocks and nodes without visible content are dropped,
// so the output contains no empty paragraph, heading, list, quote, code or
// link elements.
func Render(doc Document) string {
	parts := make([]string, 0, len(doc))
	for _, block := range doc {
		if html := renderBlock(block); html != "" {
			parts = append(parts, html)
		}
	}
	return strings.Join(parts, "\n")
}

// RenderJSON is Render(Parse(data)).
func RenderJSON(data []byte) string {
	return Render(Parse(data))
}

func renderBlock(block Block) string {
	switch b := block.(type) {
	case Paragraph:
		return wrapTag("p", renderNodes(b.Children))
	case Heading:
		return wrapTag("h"+strconv.Itoa(clampHeadingLevel(b.Level)), renderNodes(b.Children))
	case List:
		var items strings.Builder
		for _, item := range b.Items {
			items.WriteString(renderBlock(item))
		}
		tag := "ul"
		if b.Ordered {
			tag = "ol"
		}
		return wrapTag(tag, items.String())
	case ListItem:
		return wrapTag("li", renderNodes(b.Children))
	case Quote:
		return wrapTag("blockquote", renderNodes(b.Children))
	case CodeBlock:
		content := renderNodes(b.Children)
		if isBlank(content) {
			return ""
		}
		return "<pre><code>" + content + "</code></pre>"
	case UnknownBlock:
		return renderNodes(b.Children)
	default:
		return ""
	}
}

func renderNodes(nodes []Node) string {
	var out strings.Builder
	for _, node := range nodes {
		out.WriteString(renderNode(node))
	}
	return out.String()
}

func renderNode(node Node) string {
	switch n := node.(type) {
	case Text:
		return renderText(n)
	case Link:
		content := renderNodes(n.Children)
		if isBlank(content) {
			return ""
		}
		return `<a href="` + EscapeHTML(FirstNonEmpty(n.URL, defaultLinkHref)) +
			`" target="` + EscapeHTML(FirstNonEmpty(n.Target, defaultLinkTarget)) +
			`" rel="` + EscapeHTML(FirstNonEmpty(n.Rel, defaultLinkRel)) +
			`">` + content + `</a>`
	case Image:
		src := EscapeHTML(n.URL)
		if src == "" {
			return ""
		}
		return `<img src="` + src + `" alt="` + EscapeHTML(n.Alt) + `" />`
	case Container:
		return renderNodes(n.Children)
	default:
		return ""
	}
}

func renderText(n Text) string {
	text := strings.ReplaceAll(EscapeHTML(n.Text), "\n", "<br />")
	if isBlank(text) {
		return ""
	}

	// innermost first
	if n.Marks.Code {
		text = "<code>" + text + "</code>"
	}
	if n.Marks.Bold {
		text = "<strong>" + text + "</strong>"
	}
	if n.Marks.Italic {
		text = "<em>" + text + "</em>"
	}
	if n.Marks.Underline {
		text = "<u>" + text + "</u>"
	}
	if n.Marks.Strikethrough {
		text = "<s>" + text + "</s>"
	}
	return text
}

func wrapTag(tag, content string) string {
	if isBlank(content) {
		return ""
	}
	return "<" + tag + ">" + content + "</" + tag + ">"
}
