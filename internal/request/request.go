// Package request builds Prepared requests: the opaque method/URL/body
// descriptors the command runner executes.
//
// The builder is deliberately schema-unaware. Collection names, keys and
// filters are taken as given; the server is the only validator.
package request

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/roach88/odyn/internal/expr"
	"github.com/roach88/odyn/internal/querytext"
)

// Prepared is a fully formed request ready for transport execution.
// The runner and transports treat it as read-only.
type Prepared struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

func (p *Prepared) String() string {
	return p.Method + " " + p.URL
}

// Builder accumulates query options for one request.
// A Builder is not safe for concurrent use; build one per request.
type Builder struct {
	baseURL    string
	compiler   *querytext.Compiler
	collection string
	key        string
	path       []string
	filter     expr.Node
	selects    []string
	expands    []string
	orderBy    []string
	skip       int
	top        int
	count      bool
	format     string
	function   string
	params     map[string]any
	header     http.Header
}

// NewBuilder creates a builder for requests against baseURL.
// A nil compiler selects one bound to the default function registry.
func NewBuilder(baseURL string, compiler *querytext.Compiler) *Builder {
	if compiler == nil {
		compiler = querytext.NewCompiler(nil)
	}
	return &Builder{
		baseURL:  strings.TrimRight(baseURL, "/"),
		compiler: compiler,
		skip:     -1,
		top:      -1,
		header:   http.Header{},
	}
}

// Collection selects the entity set.
func (b *Builder) Collection(name string) *Builder {
	b.collection = name
	return b
}

// Key addresses a single entry. Strings are quoted as literals; other values
// are rendered with querytext.FormatLiteral.
func (b *Builder) Key(key any) *Builder {
	text, err := querytext.FormatLiteral(key)
	if err != nil {
		text = fmt.Sprint(key)
	}
	b.key = text
	return b
}

// Segment appends one path segment after the collection and key
// (e.g. "$count" or a navigation property). Call it once per segment.
func (b *Builder) Segment(seg string) *Builder {
	b.path = append(b.path, seg)
	return b
}

// Filter sets the $filter expression. Multiple calls are combined with and.
func (b *Builder) Filter(node expr.Node) *Builder {
	b.filter = expr.AndAll(b.filter, node)
	return b
}

// Select limits the returned properties ($select).
func (b *Builder) Select(fields ...string) *Builder {
	b.selects = append(b.selects, fields...)
	return b
}

// Expand inlines navigation properties ($expand).
func (b *Builder) Expand(fields ...string) *Builder {
	b.expands = append(b.expands, fields...)
	return b
}

// OrderBy sorts results ($orderby); each field may end in " desc".
func (b *Builder) OrderBy(fields ...string) *Builder {
	b.orderBy = append(b.orderBy, fields...)
	return b
}

// Skip sets $skip. A negative n omits the option.
func (b *Builder) Skip(n int) *Builder {
	b.skip = n
	return b
}

// Top sets $top. A negative n omits the option.
func (b *Builder) Top(n int) *Builder {
	b.top = n
	return b
}

// InlineCount asks the server to embed the total count ($inlinecount=allpages).
func (b *Builder) InlineCount() *Builder {
	b.count = true
	return b
}

// Format sets $format (e.g. "json").
func (b *Builder) Format(f string) *Builder {
	b.format = f
	return b
}

// Function targets a service operation instead of a collection.
// Parameters are rendered as literals in the query string, sorted by name.
func (b *Builder) Function(name string, params map[string]any) *Builder {
	b.function = name
	b.params = params
	return b
}

// Header sets a request header.
func (b *Builder) Header(key, value string) *Builder {
	b.header.Set(key, value)
	return b
}

// URL renders the target URL.
func (b *Builder) URL() (string, error) {
	var resource string
	switch {
	case b.function != "":
		resource = b.function
	case b.collection != "":
		resource = b.collection
		if b.key != "" {
			resource += "(" + b.key + ")"
		}
	default:
		return "", fmt.Errorf("request has neither collection nor function")
	}
	segs := append([]string{resource}, b.path...)

	query, err := b.queryString()
	if err != nil {
		return "", err
	}

	u := b.baseURL + "/" + escapePath(segs)
	if query != "" {
		u += "?" + query
	}
	return u, nil
}

// queryString emits options in a fixed order so identical builders produce
// identical URLs.
func (b *Builder) queryString() (string, error) {
	var parts []string
	add := func(k, v string) {
		parts = append(parts, k+"="+url.QueryEscape(v))
	}

	if b.function != "" {
		names := make([]string, 0, len(b.params))
		for k := range b.params {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			v, err := querytext.FormatLiteral(b.params[k])
			if err != nil {
				return "", fmt.Errorf("function parameter %s: %w", k, err)
			}
			add(k, v)
		}
	}
	if b.filter != nil {
		text, err := b.compiler.Compile(b.filter)
		if err != nil {
			return "", fmt.Errorf("compile filter: %w", err)
		}
		add("$filter", text)
	}
	if len(b.selects) > 0 {
		add("$select", strings.Join(b.selects, ","))
	}
	if len(b.expands) > 0 {
		add("$expand", strings.Join(b.expands, ","))
	}
	if len(b.orderBy) > 0 {
		add("$orderby", strings.Join(b.orderBy, ","))
	}
	if b.skip >= 0 {
		add("$skip", strconv.Itoa(b.skip))
	}
	if b.top >= 0 {
		add("$top", strconv.Itoa(b.top))
	}
	if b.count {
		add("$inlinecount", "allpages")
	}
	if b.format != "" {
		add("$format", b.format)
	}
	return strings.Join(parts, "&"), nil
}

// Build renders a Prepared request with the given method and body.
func (b *Builder) Build(method string, body []byte) (*Prepared, error) {
	u, err := b.URL()
	if err != nil {
		return nil, err
	}
	header := b.header.Clone()
	if len(body) > 0 && header.Get("Content-Type") == "" {
		header.Set("Content-Type", "application/json")
	}
	return &Prepared{Method: method, URL: u, Header: header, Body: body}, nil
}

// BuildGet renders a GET request.
func (b *Builder) BuildGet() (*Prepared, error) {
	return b.Build(http.MethodGet, nil)
}

// BuildInsert renders a POST carrying body.
func (b *Builder) BuildInsert(body []byte) (*Prepared, error) {
	return b.Build(http.MethodPost, body)
}

// BuildUpdate uses MERGE, the protocol's partial-update verb.
func (b *Builder) BuildUpdate(body []byte) (*Prepared, error) {
	return b.Build("MERGE", body)
}

// BuildDelete renders a DELETE request.
func (b *Builder) BuildDelete() (*Prepared, error) {
	return b.Build(http.MethodDelete, nil)
}

// escapePath escapes each segment while keeping '(', ')', ',', '=' and
// quotes readable, as servers expect key predicates verbatim. A '/' inside a
// segment, such as one in a string key, is escaped.
func escapePath(segs []string) string {
	out := make([]string, len(segs))
	for i, s := range segs {
		out[i] = pathUnescaper.Replace(url.PathEscape(s))
	}
	return strings.Join(out, "/")
}

var pathUnescaper = strings.NewReplacer("%28", "(", "%29", ")", "%27", "'", "%2C", ",", "%3D", "=", "%24", "$")
