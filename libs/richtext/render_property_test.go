package richtext

import (
	"reflect"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

type nodeShape struct {
	Kind   int
	Text   string
	Bold   bool
	Italic bool
	Code   bool
	URL    string
}

type blockShape struct {
	Kind  int
	Level int
	Nodes []nodeShape
}

var suppressedWhenEmpty = map[string]bool{
	"p": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"ul": true, "ol": true, "li": true, "blockquote": true, "pre": true, "code": true, "a": true,
}

func genFragmentText() gopter.Gen {
	return gen.SliceOf(gen.OneConstOf("a", "Z", "ü", " ", "\n", "\t", "&", "<", ">", `"`, "'", "&amp;", "&#39;")).
		Map(func(parts []string) string { return strings.Join(parts, "") })
}

func genNodeShape() gopter.Gen {
	return gen.Struct(reflect.TypeOf(nodeShape{}), map[string]gopter.Gen{
		"Kind":   gen.IntRange(0, 3),
		"Text":   genFragmentText(),
		"Bold":   gen.Bool(),
		"Italic": gen.Bool(),
		"Code":   gen.Bool(),
		"URL":    gen.OneConstOf("", "https://example.org", `https://x?a=1&b="2"`),
	})
}

func genBlockShape() gopter.Gen {
	return gen.Struct(reflect.TypeOf(blockShape{}), map[string]gopter.Gen{
		"Kind":  gen.IntRange(0, 6),
		"Level": gen.IntRange(-3, 9),
		"Nodes": gen.SliceOf(genNodeShape()),
	})
}

func buildNode(shape nodeShape) Node {
	text := Text{Text: shape.Text, Marks: Marks{Bold: shape.Bold, Italic: shape.Italic, Code: shape.Code}}
	switch shape.Kind {
	case 0:
		return text
	case 1:
		return Link{URL: shape.URL, Children: []Node{text}}
	case 2:
		return Image{URL: shape.URL, Alt: shape.Text}
	default:
		return Container{Type: "span", Children: []Node{text, Container{}}}
	}
}

func buildDocument(shapes []blockShape) Document {
	doc := make(Document, 0, len(shapes))
	for _, shape := range shapes {
		nodes := make([]Node, 0, len(shape.Nodes))
		for _, n := range shape.Nodes {
			nodes = append(nodes, buildNode(n))
		}
		switch shape.Kind {
		case 0:
			doc = append(doc, Paragraph{Children: nodes})
		case 1:
			doc = append(doc, Heading{Level: shape.Level, Children: nodes})
		case 2:
			items := make([]Block, 0, len(nodes))
			for _, n := range nodes {
				items = append(items, ListItem{Children: []Node{n}})
			}
			doc = append(doc, List{Ordered: shape.Level%2 == 0, Items: items})
		case 3:
			doc = append(doc, Quote{Children: nodes})
		case 4:
			doc = append(doc, CodeBlock{Children: nodes})
		case 5:
			doc = append(doc, ListItem{Children: nodes})
		default:
			doc = append(doc, UnknownBlock{Type: "custom", Children: nodes})
		}
	}
	return doc
}

// emptyElements parses the fragment and reports elements of the suppressed
// kinds whose content is only whitespace.
func emptyElements(t *testing.T, fragment string) []string {
	t.Helper()
	nodes, err := html.ParseFragment(strings.NewReader(fragment), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		t.Fatalf("parse fragment: %v", err)
	}

	var found []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && suppressedWhenEmpty[n.Data] && isWhitespaceOnly(n) {
			found = append(found, n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return found
}

func isWhitespaceOnly(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.TextNode || strings.TrimSpace(c.Data) != "" {
			return false
		}
	}
	return true
}

func TestRenderProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1337)
	parameters.MinSuccessfulTests = 200
	parameters.MaxSize = 12

	properties := gopter.NewProperties(parameters)

	properties.Property("output never contains empty structural elements", prop.ForAll(
		func(shapes []blockShape) bool {
			return len(emptyElements(t, Render(buildDocument(shapes)))) == 0
		},
		gen.SliceOf(genBlockShape()),
	))

	properties.Property("text is escaped exactly once", prop.ForAll(
		func(text string) bool {
			got := Render(Document{Paragraph{Children: []Node{Text{Text: text}}}})
			escaped := strings.ReplaceAll(EscapeHTML(text), "\n", "<br />")
			if strings.TrimSpace(escaped) == "" {
				return got == ""
			}
			if got != "<p>"+escaped+"</p>" {
				return false
			}
			inner := strings.TrimSuffix(strings.TrimPrefix(got, "<p>"), "</p>")
			inner = strings.ReplaceAll(inner, "<br />", "\n")
			if strings.ContainsAny(inner, `<>"'`) {
				return false
			}
			return html.UnescapeString(inner) == text
		},
		genFragmentText(),
	))

	properties.Property("headings outside 1..6 render as h2", prop.ForAll(
		func(level int) bool {
			got := Render(Document{Heading{Level: level, Children: []Node{Text{Text: "t"}}}})
			if level >= 1 && level <= 6 {
				return got == "<h"+string(rune('0'+level))+">t</h"+string(rune('0'+level))+">"
			}
			return got == "<h2>t</h2>"
		},
		gen.IntRange(-100, 100),
	))

	properties.Property("rendering is deterministic", prop.ForAll(
		func(shapes []blockShape) bool {
			doc := buildDocument(shapes)
			return Render(doc) == Render(doc)
		},
		gen.SliceOf(genBlockShape()),
	))

	properties.TestingRun(t)
}
