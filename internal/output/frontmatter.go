package output

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// fixed is a float emitted with a fixed number of decimals.
type fixed struct {
	v    float64
	prec int
}

func newFixed(v *float64, prec int) *fixed {
	if v == nil {
		return nil
	}
	return &fixed{v: *v, prec: prec}
}

func (f fixed) MarshalYAML() (any, error) {
	return &yaml.Node{
		Kind:  yaml.ScalarNode,
		Tag:   "!!float",
		Value: strconv.FormatFloat(f.v, 'f', f.prec, 64),
	}, nil
}

// document renders a Hugo content file: YAML frontmatter, a blank line, then body.
func document(frontmatter any, body string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("---\n")

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(frontmatter); err != nil {
		return nil, fmt.Errorf("encoding frontmatter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding frontmatter: %w", err)
	}

	buf.WriteString("---\n\n")
	if body = strings.TrimRight(body, "\n"); body != "" {
		buf.WriteString(body)
		buf.WriteString("\n")
	}
	return buf.Bytes(), nil
}

// escapeQuotes makes s safe inside a double-quoted shortcode parameter.
func escapeQuotes(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}
