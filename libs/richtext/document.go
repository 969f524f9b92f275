// Package richtext turns block-editor documents into sanitized HTML fragments.
package richtext

// Document is an ordered list of top-level blocks.
type Document []Block

// Block is a top-level structural unit. The set of implementations is closed:
// Paragraph, Heading, List, ListItem, Quote, CodeBlock and UnknownBlock.
type Block interface {
	isBlock()
}

type Paragraph struct {
	Children []Node
}

// Heading levels outside 1..6 render as level 2.
type Heading struct {
	Level    int
	Children []Node
}

// List holds its items as blocks, normally ListItem values.
type List struct {
	Ordered bool
	Items   []Block
}

type ListItem struct {
	Children []Node
}

type Quote struct {
	Children []Node
}

type CodeBlock struct {
	Children []Node
}

// UnknownBlock is any block type the renderer has no tag for. Its children
// are rendered without a wrapper.
type UnknownBlock struct {
	Type     string
	Children []Node
}

func (Paragraph) isBlock()    {}
func (Heading) isBlock()      {}
func (List) isBlock()         {}
func (ListItem) isBlock()     {}
func (Quote) isBlock()        {}
func (CodeBlock) isBlock()    {}
func (UnknownBlock) isBlock() {}

// Node is an inline unit: Text, Link, Image or Container.
type Node interface {
	isNode()
}

type Marks struct {
	Code          bool
	Bold          bool
	Italic        bool
	Underline     bool
	Strikethrough bool
}

type Text struct {
	Text  string
	Marks Marks
}

// Link renders as an anchor only when its children produce visible content.
type Link struct {
	URL      string
	Target   string
	Rel      string
	Children []Node
}

type Image struct {
	URL string
	Alt string
}

// Container is any other node type; it renders as the concatenation of its children.
type Container struct {
	Type     string
	Children []Node
}

func (Text) isNode()      {}
func (Link) isNode()      {}
func (Image) isNode()     {}
func (Container) isNode() {}
