// XML-to-JSON response conversion for capabilities declaring
// response_type: xml.
//
// DESIGN: No example repo in the corpus carries a dedicated XML
// library, and the mapping needed here - element name as object key,
// attributes under "@attr", text content under "#text" when an
// element has children or attributes as well as text - is exactly what stdlib
// encoding/xml's streaming token API is built to walk. Kept on the
// standard library deliberately: this is the one conversion in the
// capability executor with no ecosystem precedent to follow.
package capability

import (
	"encoding/xml"
	"io"
)

// xmlToJSON decodes an XML document into a generic JSON-compatible
// value tree (map[string]any / []any / string).
func xmlToJSON(r io.Reader) (any, error) {
	dec := xml.NewDecoder(r)

	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		if start, ok := tok.(xml.StartElement); ok {
			return decodeElement(dec, start)
		}
	}
}

func decodeElement(dec *xml.Decoder, start xml.StartElement) (any, error) {
	node := map[string]any{}
	for _, attr := range start.Attr {
		node["@"+attr.Name.Local] = attr.Value
	}

	var text string
	children := map[string][]any{}

	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child, err := decodeElement(dec, t)
			if err != nil {
				return nil, err
			}
			children[t.Name.Local] = append(children[t.Name.Local], child)
		case xml.CharData:
			text += string(t)
		case xml.EndElement:
			return foldElement(node, children, text), nil
		}
	}
}

func foldElement(attrs map[string]any, children map[string][]any, text string) any {
	if len(children) == 0 {
		trimmed := trimSpace(text)
		if len(attrs) == 0 {
			return trimmed
		}
		if trimmed != "" {
			attrs["#text"] = trimmed
		}
		return attrs
	}

	for name, vals := range children {
		if len(vals) == 1 {
			attrs[name] = vals[0]
		} else {
			attrs[name] = vals
		}
	}
	if trimmed := trimSpace(text); trimmed != "" {
		attrs["#text"] = trimmed
	}
	return attrs
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
