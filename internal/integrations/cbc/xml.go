package cbc

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// Prop is one node of a request property tree. Value is a string, a number,
// a bool, a nested []Prop, or nil for an empty element.
type Prop struct {
	Name  string
	Value any
}

// Credentials identify the service account on the gateway
type Credentials struct {
	UserID   string
	Password string
}

const rootElement = "XML_INTERFACE"

// BuildRequest renders the property tree under the root element with the
// credential header injected first.
func BuildRequest(creds Credentials, body []Prop) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement(rootElement)

	header := root.CreateElement("HEADER")
	header.CreateElement("USERID").SetText(creds.UserID)
	header.CreateElement("PASSWORD").SetText(creds.Password)

	if err := appendProps(root, body); err != nil {
		return nil, err
	}

	doc.Indent(2)
	return doc.WriteToBytes()
}

func appendProps(parent *etree.Element, props []Prop) error {
	for _, p := range props {
		if p.Name == "" {
			return fmt.Errorf("property without name under <%s>", parent.Tag)
		}
		if p.Name == "HEADER" && parent.Tag == rootElement {
			return fmt.Errorf("HEADER is reserved for credentials")
		}
		el := parent.CreateElement(p.Name)
		switch v := p.Value.(type) {
		case nil:
		case string:
			el.SetText(v)
		case int:
			el.SetText(strconv.Itoa(v))
		case float64:
			el.SetText(strconv.FormatFloat(v, 'f', -1, 64))
		case bool:
			if v {
				el.SetText("Y")
			} else {
				el.SetText("N")
			}
		case []Prop:
			if err := appendProps(el, v); err != nil {
				return err
			}
		default:
			return fmt.Errorf("property %s: unsupported value type %T", p.Name, p.Value)
		}
	}
	return nil
}

// ParseResponse converts an XML document into a JSON-like tree: elements with
// children become maps, repeated siblings become []any, leaves become their
// trimmed text, attributes are stored under "@name".
func ParseResponse(raw []byte) (map[string]any, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, fmt.Errorf("failed to parse XML: %v", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("empty XML document")
	}
	return map[string]any{root.Tag: toTree(root)}, nil
}

func toTree(el *etree.Element) any {
	children := el.ChildElements()
	if len(children) == 0 && len(el.Attr) == 0 {
		return strings.TrimSpace(el.Text())
	}

	node := make(map[string]any, len(children)+len(el.Attr))
	for _, a := range el.Attr {
		node["@"+a.Key] = a.Value
	}
	if len(children) == 0 {
		node["#text"] = strings.TrimSpace(el.Text())
		return node
	}
	for _, child := range children {
		v := toTree(child)
		switch existing := node[child.Tag].(type) {
		case nil:
			node[child.Tag] = v
		case []any:
			node[child.Tag] = append(existing, v)
		default:
			node[child.Tag] = []any{existing, v}
		}
	}
	return node
}

// Lookup walks a slash separated path through a parsed tree. Repeated
// elements resolve to their first occurrence.
func Lookup(tree map[string]any, path string) (string, bool) {
	var cur any = tree
	for _, step := range strings.Split(strings.Trim(path, "/"), "/") {
		if list, ok := cur.([]any); ok {
			if len(list) == 0 {
				return "", false
			}
			cur = list[0]
		}
		m, ok := cur.(map[string]any)
		if !ok {
			return "", false
		}
		if cur, ok = m[step]; !ok {
			return "", false
		}
	}

	if list, ok := cur.([]any); ok && len(list) > 0 {
		cur = list[0]
	}
	switch v := cur.(type) {
	case string:
		return v, true
	case map[string]any:
		text, ok := v["#text"].(string)
		return text, ok
	default:
		return "", false
	}
}
