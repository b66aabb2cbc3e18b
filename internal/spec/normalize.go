package spec

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

const componentSchemaPrefix = "#/components/schemas/"

// BuildOption configures how the Document is built from a loaded source.
type BuildOption func(*buildConfig)

type buildConfig struct {
	includeTags map[string]struct{}
	excludeTags map[string]struct{}
	methods     map[HttpMethod]struct{}
	pathRes     []*regexp.Regexp
}

// WithIncludeTags keeps only operations that have at least one of the given tags.
func WithIncludeTags(tags []string) BuildOption {
	return func(c *buildConfig) {
		c.includeTags = addTags(c.includeTags, tags)
	}
}

// WithExcludeTags removes operations that have any of the given tags.
func WithExcludeTags(tags []string) BuildOption {
	return func(c *buildConfig) {
		c.excludeTags = addTags(c.excludeTags, tags)
	}
}

func addTags(set map[string]struct{}, tags []string) map[string]struct{} {
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if set == nil {
			set = make(map[string]struct{}, len(tags))
		}
		set[t] = struct{}{}
	}
	return set
}

// WithMethods keeps only operations using one of the provided HTTP methods.
func WithMethods(methods []HttpMethod) BuildOption {
	return func(c *buildConfig) {
		for _, m := range methods {
			if c.methods == nil {
				c.methods = make(map[HttpMethod]struct{}, len(methods))
			}
			c.methods[m] = struct{}{}
		}
	}
}

// WithPathPatterns keeps only operations whose path matches at least one of
// the provided regular expressions. An invalid pattern matches nothing.
func WithPathPatterns(patterns []string) BuildOption {
	return func(c *buildConfig) {
		for _, p := range patterns {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			re, err := regexp.Compile(p)
			if err != nil {
				re = regexp.MustCompile("a^$")
			}
			c.pathRes = append(c.pathRes, re)
		}
	}
}

// BuildDocument converts a loaded source into the generator's Document.
// Named schemas are placed in a symbol table and every component reference
// is resolved against it exactly once.
func BuildDocument(ctx context.Context, src *Source, opts ...BuildOption) (*Document, error) {
	if src == nil || src.Doc == nil {
		return nil, errors.New("spec: nil document")
	}
	cfg := &buildConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	doc := src.Doc

	var names []string
	if doc.Components != nil {
		for name := range doc.Components.Schemas {
			names = append(names, name)
		}
	}
	b := &builder{
		table: newSymbolTable(names),
		order: readPropertyOrder(src.Raw, src.Version),
	}
	out := &Document{Schemas: b.table}
	if doc.Info != nil {
		out.Title = strings.TrimSpace(doc.Info.Title)
		out.Version = strings.TrimSpace(doc.Info.Version)
	}

	for _, h := range b.table.Handles() {
		name := b.table.Name(h)
		b.table.nodes[h] = b.named(name, doc.Components.Schemas[name])
	}

	templates := make([]string, 0, len(doc.Paths))
	for p := range doc.Paths {
		templates = append(templates, p)
	}
	sort.Strings(templates)

	for _, p := range templates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		item := doc.Paths[p]
		if item == nil || !cfg.allowPath(p) {
			continue
		}
		if item.Trace != nil {
			out.Warnings = append(out.Warnings, fmt.Sprintf("%s: trace operation ignored", p))
		}
		pi := PathItem{Template: p}
		for _, m := range Methods {
			op := item.GetOperation(strings.ToUpper(string(m)))
			if op == nil || !cfg.allowMethod(m) || !cfg.allowTags(op.Tags) {
				continue
			}
			pi.Operations = append(pi.Operations, b.operation(p, m, item.Parameters, op))
		}
		if len(pi.Operations) > 0 {
			out.Paths = append(out.Paths, pi)
		}
	}
	return out, nil
}

func (c *buildConfig) allowPath(p string) bool {
	if len(c.pathRes) == 0 {
		return true
	}
	for _, re := range c.pathRes {
		if re.MatchString(p) {
			return true
		}
	}
	return false
}

func (c *buildConfig) allowMethod(m HttpMethod) bool {
	if len(c.methods) == 0 {
		return true
	}
	_, ok := c.methods[m]
	return ok
}

func (c *buildConfig) allowTags(tags []string) bool {
	if len(c.includeTags) > 0 {
		ok := false
		for _, t := range tags {
			if _, yes := c.includeTags[strings.TrimSpace(t)]; yes {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	for _, t := range tags {
		if _, blocked := c.excludeTags[strings.TrimSpace(t)]; blocked {
			return false
		}
	}
	return true
}

type builder struct {
	table *SymbolTable
	order propertyOrder
}

func (b *builder) operation(path string, m HttpMethod, shared openapi3.Parameters, op *openapi3.Operation) Operation {
	out := Operation{
		ID:          strings.TrimSpace(op.OperationID),
		Method:      m,
		Path:        path,
		Summary:     strings.TrimSpace(op.Summary),
		Description: strings.TrimSpace(op.Description),
		Deprecated:  op.Deprecated,
		Parameters:  b.parameters(shared, op.Parameters),
	}
	for _, t := range op.Tags {
		if t = strings.TrimSpace(t); t != "" {
			out.Tags = append(out.Tags, t)
		}
	}
	if op.RequestBody != nil && op.RequestBody.Value != nil {
		out.RequestBody = &RequestBody{
			Required: op.RequestBody.Value.Required,
			Content:  b.content(op.RequestBody.Value.Content),
		}
	}
	if len(op.Responses) > 0 {
		out.Responses = make(map[string]*Response, len(op.Responses))
		for code, ref := range op.Responses {
			if ref == nil || ref.Value == nil {
				continue
			}
			r := &Response{Content: b.content(ref.Value.Content)}
			if ref.Value.Description != nil {
				r.Description = strings.TrimSpace(*ref.Value.Description)
			}
			out.Responses[code] = r
		}
	}
	return out
}

// parameters merges path-item parameters with operation parameters. An
// operation parameter replaces the shared one with the same name and
// location in place; new ones are appended.
func (b *builder) parameters(shared, own openapi3.Parameters) []Parameter {
	var out []Parameter
	index := map[string]int{}
	add := func(refs openapi3.Parameters) {
		for _, ref := range refs {
			if ref == nil || ref.Value == nil {
				continue
			}
			p := b.parameter(ref.Value)
			key := string(p.In) + ":" + p.Name
			if i, ok := index[key]; ok {
				out[i] = p
				continue
			}
			index[key] = len(out)
			out = append(out, p)
		}
	}
	add(shared)
	add(own)
	return out
}

func (b *builder) parameter(p *openapi3.Parameter) Parameter {
	out := Parameter{
		Name:        p.Name,
		In:          ParameterLocation(strings.ToLower(strings.TrimSpace(p.In))),
		Description: strings.TrimSpace(p.Description),
		Required:    p.Required,
		HasContent:  len(p.Content) > 0,
	}
	if p.Schema != nil {
		out.Schema = b.node(p.Schema, nil)
	}
	return out
}

func (b *builder) content(c openapi3.Content) []Media {
	if len(c) == 0 {
		return nil
	}
	mimes := make([]string, 0, len(c))
	for mime := range c {
		mimes = append(mimes, mime)
	}
	sort.Strings(mimes)
	out := make([]Media, 0, len(mimes))
	for _, mime := range mimes {
		mt := c[mime]
		m := Media{Mime: mime}
		if mt != nil && mt.Schema != nil {
			m.Schema = b.node(mt.Schema, nil)
		}
		out = append(out, m)
	}
	return out
}

// named converts a component schema, using the recorded property order.
func (b *builder) named(name string, ref *openapi3.SchemaRef) *Node {
	if ref == nil {
		return &Node{Kind: KindAny}
	}
	n := b.node(ref, b.order[name])
	// Descriptions of named schemas are carried by the schema itself.
	if ref.Value != nil && ref.Ref == "" {
		n.Description = strings.TrimSpace(ref.Value.Description)
	}
	return n
}

// node converts one schema. order lists property names in declaration
// order; unlisted properties follow in lexicographic order.
func (b *builder) node(ref *openapi3.SchemaRef, order []string) *Node {
	if ref == nil {
		return &Node{Kind: KindAny}
	}
	if ref.Ref != "" {
		return &Node{Kind: KindRef, Ref: b.resolve(ref.Ref)}
	}
	s := ref.Value
	if s == nil {
		return &Node{Kind: KindAny}
	}

	n := &Node{Description: strings.TrimSpace(s.Description), Nullable: s.Nullable}
	switch {
	case len(s.Enum) > 0 && (s.Type == "string" || (s.Type == "" && allStrings(s.Enum))):
		n.Kind = KindEnum
		for _, v := range s.Enum {
			if v == nil {
				continue
			}
			if str, ok := v.(string); ok {
				n.Enum = append(n.Enum, str)
				continue
			}
			n.Enum = append(n.Enum, fmt.Sprint(v))
		}
	case s.Type == "string", s.Type == "integer", s.Type == "number", s.Type == "boolean":
		n.Kind = KindScalar
		n.Scalar = ScalarKind(s.Type)
		n.Format = s.Format
	case s.Type == "array":
		n.Kind = KindArray
		if s.Items != nil {
			n.Items = b.node(s.Items, nil)
		}
	case s.Type == "object", s.Type == "" && len(s.Properties) > 0:
		n.Kind = KindObject
		n.Required = make(map[string]bool, len(s.Required))
		for _, r := range s.Required {
			n.Required[r] = true
		}
		for _, name := range orderedKeys(s.Properties, order) {
			n.Properties = append(n.Properties, Property{Name: name, Schema: b.node(s.Properties[name], nil)})
		}
	default:
		n.Kind = KindAny
	}
	return n
}

// resolve maps a $ref string to a handle in the symbol table.
func (b *builder) resolve(raw string) Reference {
	if !strings.HasPrefix(raw, componentSchemaPrefix) {
		return Reference{Raw: raw, Target: External}
	}
	name := unescapePointer(strings.TrimPrefix(raw, componentSchemaPrefix))
	if h, ok := b.table.Lookup(name); ok {
		return Reference{Raw: raw, Target: h}
	}
	return Reference{Raw: raw, Target: Unresolved}
}

func unescapePointer(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "~1", "/"), "~0", "~")
}

func orderedKeys(props openapi3.Schemas, order []string) []string {
	out := make([]string, 0, len(props))
	seen := make(map[string]bool, len(props))
	for _, name := range order {
		if _, ok := props[name]; ok && !seen[name] {
			out = append(out, name)
			seen[name] = true
		}
	}
	var rest []string
	for name := range props {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func allStrings(values []interface{}) bool {
	for _, v := range values {
		if v == nil {
			continue
		}
		if _, ok := v.(string); !ok {
			return false
		}
	}
	return true
}
