package logfile

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/ianaindex"
)

// node is one element of the parsed document. Character data is kept only
// for the element it directly belongs to.
type node struct {
	name     string
	attrs    map[string]string
	children []*node
	text     strings.Builder
}

// parseTree reads the whole document into a node tree rooted at the
// document element.
func parseTree(r io.Reader) (*node, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charsetReader

	var root *node
	var stack []*node
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, malformed("%v", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &node{name: t.Name.Local, attrs: make(map[string]string, len(t.Attr))}
			for _, a := range t.Attr {
				n.attrs[a.Name.Local] = a.Value
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, malformed("multiple root elements")
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, n)
			}
			stack = append(stack, n)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}
		}
	}

	if root == nil {
		return nil, malformed("no root element")
	}
	if len(stack) > 0 {
		return nil, malformed("unclosed <%s>", stack[len(stack)-1].name)
	}
	return root, nil
}

func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
	return enc.NewDecoder().Reader(input), nil
}

// child returns the first child element with the given name.
func (n *node) child(name string) *node {
	for _, c := range n.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

// childrenNamed returns every child element with the given name.
func (n *node) childrenNamed(name string) []*node {
	var out []*node
	for _, c := range n.children {
		if c.name == name {
			out = append(out, c)
		}
	}
	return out
}

func (n *node) attr(name string) (string, bool) {
	v, ok := n.attrs[name]
	return v, ok
}

func (n *node) str(name, def string) string {
	if v, ok := n.attrs[name]; ok {
		return v
	}
	return def
}

func (n *node) float(name string, def float64) (float64, error) {
	v, ok := n.attrs[name]
	if !ok {
		return def, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return def, malformed("<%s %s=%q>: not a number", n.name, name, v)
	}
	return f, nil
}

func (n *node) integer(name string, def int) (int, error) {
	v, ok := n.attrs[name]
	if !ok {
		return def, nil
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def, malformed("<%s %s=%q>: not an integer", n.name, name, v)
	}
	return i, nil
}

func (n *node) boolean(name string, def bool) (bool, error) {
	v, ok := n.attrs[name]
	if !ok {
		return def, nil
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	}
	return def, malformed("<%s %s=%q>: not a boolean", n.name, name, v)
}

// floatReader reads several numeric attributes, keeping the first error.
type floatReader struct {
	n   *node
	err error
}

func (fr *floatReader) get(name string, def float64) float64 {
	if fr.err != nil {
		return def
	}
	v, err := fr.n.float(name, def)
	fr.err = err
	return v
}
