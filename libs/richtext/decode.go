package richtext

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

const defaultHeadingLevel = 2

var headingTypeLevels = map[string]int{
	"heading-one":   1,
	"heading-two":   2,
	"heading-three": 3,
	"heading-four":  4,
	"heading-five":  5,
	"heading-six":   6,
}

// Parse decodes editor JSON into a Document. Invalid JSON or anything other
// than a top-level array yields an empty document.
func Parse(data []byte) Document {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return nil
	}
	return FromValue(value)
}

// FromValue converts a value produced by encoding/json (decoded into any).
// Elements that are not JSON objects are skipped.
func FromValue(value any) Document {
	items, ok := value.([]any)
	if !ok {
		return nil
	}
	return Document(decodeBlocks(items))
}

// UnmarshalJSON only fails on syntactically invalid JSON; wrong shapes decode
// to an empty or partial document.
func (d *Document) UnmarshalJSON(data []byte) error {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	*d = FromValue(value)
	return nil
}

func decodeBlocks(value any) []Block {
	items, _ := value.([]any)
	blocks := make([]Block, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		blocks = append(blocks, decodeBlock(obj))
	}
	return blocks
}

func decodeBlock(obj map[string]any) Block {
	blockType := stringField(obj, "type")
	if level, ok := headingTypeLevels[blockType]; ok {
		return Heading{Level: level, Children: decodeNodes(obj["children"])}
	}

	switch blockType {
	case "paragraph":
		return Paragraph{Children: decodeNodes(obj["children"])}
	case "heading":
		return Heading{Level: headingLevel(obj["level"]), Children: decodeNodes(obj["children"])}
	case "list":
		return List{
			Ordered: stringField(obj, "format") == "ordered" || truthy(obj["ordered"]),
			Items:   decodeBlocks(obj["children"]),
		}
	case "list-item":
		return ListItem{Children: decodeNodes(obj["children"])}
	case "quote", "blockquote":
		return Quote{Children: decodeNodes(obj["children"])}
	case "code", "code-block":
		return CodeBlock{Children: decodeNodes(obj["children"])}
	default:
		return UnknownBlock{Type: blockType, Children: decodeNodes(obj["children"])}
	}
}

func decodeNodes(value any) []Node {
	items, _ := value.([]any)
	nodes := make([]Node, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		nodes = append(nodes, decodeNode(obj))
	}
	return nodes
}

func decodeNode(obj map[string]any) Node {
	nodeType := stringField(obj, "type")

	// Anything carrying a string payload is a text run, whatever its type says.
	if text, isString := obj["text"].(string); isString || nodeType == "text" {
		return Text{
			Text: text,
			Marks: Marks{
				Code:          truthy(obj["code"]),
				Bold:          truthy(obj["bold"]),
				Italic:        truthy(obj["italic"]),
				Underline:     truthy(obj["underline"]),
				Strikethrough: truthy(obj["strikethrough"]) || truthy(obj["strike"]) || truthy(obj["striked"]),
			},
		}
	}

	switch nodeType {
	case "link":
		return Link{
			URL:      stringField(obj, "url"),
			Target:   stringField(obj, "target"),
			Rel:      stringField(obj, "rel"),
			Children: decodeNodes(obj["children"]),
		}
	case "image":
		return Image{
			URL: FirstNonEmpty(stringField(obj, "url"), stringField(obj, "src")),
			Alt: stringField(obj, "alt"),
		}
	default:
		return Container{Type: nodeType, Children: decodeNodes(obj["children"])}
	}
}

func headingLevel(value any) int {
	var level float64
	switch v := value.(type) {
	case float64:
		level = v
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return defaultHeadingLevel
		}
		level = float64(parsed)
	default:
		return defaultHeadingLevel
	}
	if level != math.Trunc(level) {
		return defaultHeadingLevel
	}
	return clampHeadingLevel(int(level))
}

func clampHeadingLevel(level int) int {
	if level < 1 || level > 6 {
		return defaultHeadingLevel
	}
	return level
}

func stringField(obj map[string]any, key string) string {
	value, _ := obj[key].(string)
	return value
}

// truthy follows the loose flag semantics editors emit: true, non-zero
// numbers, non-empty strings and any object or array count as set.
func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case float64:
		return v != 0 && !math.IsNaN(v)
	case string:
		return v != ""
	default:
		return true
	}
}
