package xhtml

import (
	"encoding/xml"
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/net/html/charset"
)

// NBSP is the non-breaking space as the output dialect writes it. All
// non-breaking space forms found in the source are decoded to it.
const NBSP = "~"

var nbspReplacer = strings.NewReplacer("\u00a0", NBSP, "\u202f", NBSP)

// Document is parsed content document.
type Document struct {
	Title string
	Lang  string
	Body  *Node
}

// entities returns named character references known to the parser. EPUB
// content is XML, but producers often leave HTML entities in.
func entities() map[string]string {
	m := maps.Clone(xml.HTMLEntity)
	m["nbsp"] = NBSP
	return m
}

// Parse reads XHTML document and builds node tree from its body.
func Parse(data []byte) (*Document, error) {
	doc := etree.NewDocument()
	doc.ReadSettings = etree.ReadSettings{
		CharsetReader: charset.NewReaderLabel,
		Entity:        entities(),
		ValidateInput: false,
		Permissive:    true,
	}
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("unable to read XHTML: %w", err)
	}

	root := doc.Root()
	if root == nil {
		return nil, errors.New("document has no root element")
	}

	body := root.FindElement("//body")
	if body == nil {
		return nil, fmt.Errorf("document <%s> has no body", root.Tag)
	}

	d := &Document{
		Lang: root.SelectAttrValue("xml:lang", root.SelectAttrValue("lang", "")),
		Body: build(body),
	}
	if title := root.FindElement("//head/title"); title != nil {
		d.Title = strings.TrimSpace(nbspReplacer.Replace(title.Text()))
	}
	return d, nil
}

// ParseString is convenience wrapper around Parse.
func ParseString(s string) (*Document, error) {
	return Parse([]byte(s))
}

func build(el *etree.Element) *Node {
	href, hasHref := "", false
	if attr := el.SelectAttr("href"); attr != nil {
		href, hasHref = attr.Value, true
	}
	n := &Node{
		Kind:    kindOf(strings.ToLower(el.Tag), hasHref),
		Tag:     strings.ToLower(el.Tag),
		Classes: splitClasses(el.SelectAttrValue("class", "")),
		Href:    href,
	}

	var last *Node
	for _, tok := range el.Child {
		switch t := tok.(type) {
		case *etree.CharData:
			text := nbspReplacer.Replace(t.Data)
			if last == nil {
				n.Text += text
			} else {
				last.Tail += text
			}
		case *etree.Element:
			last = build(t)
			n.Children = append(n.Children, last)
		}
	}
	return n
}
