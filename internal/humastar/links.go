package humastar

import (
	"fmt"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/danielgtaylor/huma/v2"
)

// ViewerTag marks Datastar SSE operations. They are left out of the link graph.
const ViewerTag = "viewer"

// SearchPath is the collection linked from every other collection as rel="search".
const SearchPath = "/api/v1/stations"

// EntryPath is the API entry point. It links to every collection.
const EntryPath = "/health"

// linkGraph holds RFC 8288 Link header values keyed by operation path.
type linkGraph map[string][]string

func (g linkGraph) add(from, to, rel string) {
	val := fmt.Sprintf(`<%s>; rel="%s"`, to, rel)
	if !slices.Contains(g[from], val) {
		g[from] = append(g[from], val)
	}
}

var (
	linksMu sync.RWMutex
	links   linkGraph
)

// AutoLinks derives hypermedia links from the registered OpenAPI paths and
// documents them as response links. Call after all routes are registered.
//
// Paths without parameters are collections, paths with parameters are items.
// Items link up to their parent collection, collections link down to their
// item template, sideways to collections sharing a tag, and to station search.
// The entry point links to every collection and to the API description.
func AutoLinks(api huma.API) {
	oapi := api.OpenAPI()
	g := linkGraph{}

	var collections, items []string
	tags := map[string][]string{}
	for p, pi := range oapi.Paths {
		t := primaryTags(pi)
		if slices.Contains(t, ViewerTag) {
			continue
		}
		tags[p] = t
		if strings.Contains(p, "{") {
			items = append(items, p)
		} else {
			collections = append(collections, p)
		}
	}
	slices.Sort(collections)
	slices.Sort(items)

	for _, item := range items {
		parent := path.Dir(item)
		if _, ok := tags[parent]; ok {
			g.add(item, parent, "collection")
			g.add(item, parent, "up")
			g.add(parent, item, "item")
		}
		if pi := oapi.Paths[item]; pi.Put != nil || pi.Patch != nil {
			g.add(item, item, "edit")
		}
	}

	_, searchable := tags[SearchPath]
	for _, c := range collections {
		if c != EntryPath {
			g.add(c, EntryPath, "up")
			g.add(EntryPath, c, lastSegment(c))
		}
		if searchable && c != SearchPath {
			g.add(c, SearchPath, "search")
		}
		if oapi.Paths[c].Post != nil {
			g.add(c, c, "create-form")
		}
		for _, other := range collections {
			if other != c && other != EntryPath && sharesTag(tags[c], tags[other]) {
				g.add(c, other, lastSegment(other))
			}
		}
	}
	g.add(EntryPath, "/openapi.json", "describedby")
	g.add(EntryPath, "/openapi.json", "service-desc")
	g.add(EntryPath, "/docs", "service-doc")

	for p := range tags {
		if ref := responseSchema(oapi.Paths[p]); ref != "" {
			g.add(p, "/openapi.json#/components/schemas/"+ref, "describedby")
		}
	}

	for p, headers := range g {
		pi, ok := oapi.Paths[p]
		if !ok {
			continue
		}
		for _, op := range operationsOf(pi) {
			if op != nil {
				injectResponseLinks(op, headers)
			}
		}
	}

	linksMu.Lock()
	links = g
	linksMu.Unlock()
}

// LinkTransformer returns a Huma Transformer that adds the AutoLinks headers,
// a self link on item paths, and any pagination or action links the response
// body provides.
func LinkTransformer() huma.Transformer {
	return func(ctx huma.Context, status string, v any) (any, error) {
		op := ctx.Operation()
		if op == nil {
			return v, nil
		}

		linksMu.RLock()
		for _, link := range links[op.Path] {
			ctx.AppendHeader("Link", link)
		}
		linksMu.RUnlock()

		if strings.Contains(op.Path, "{") {
			ctx.AppendHeader("Link", fmt.Sprintf(`<%s>; rel="self"`, ctx.URL().Path))
		}
		if p, ok := v.(Pager); ok {
			for _, link := range p.PaginationLinks(ctx.URL().Path) {
				ctx.AppendHeader("Link", link)
			}
		}
		if a, ok := v.(Actor); ok {
			for _, action := range a.Actions() {
				ctx.AppendHeader("Link", action.LinkHeader())
			}
		}
		return v, nil
	}
}

// RootLinks returns the entry point's Link headers for non-Huma handlers.
func RootLinks() []string {
	linksMu.RLock()
	defer linksMu.RUnlock()
	return slices.Clone(links[EntryPath])
}

func primaryTags(pi *huma.PathItem) []string {
	for _, op := range operationsOf(pi) {
		if op != nil && len(op.Tags) > 0 {
			return op.Tags
		}
	}
	return nil
}

func operationsOf(pi *huma.PathItem) []*huma.Operation {
	return []*huma.Operation{pi.Get, pi.Post, pi.Put, pi.Patch, pi.Delete}
}

func sharesTag(a, b []string) bool {
	return slices.ContainsFunc(a, func(t string) bool { return slices.Contains(b, t) })
}

func lastSegment(p string) string {
	return path.Base(strings.TrimRight(p, "/"))
}

// injectResponseLinks documents headers as OpenAPI links on the operation's
// first 2xx response.
func injectResponseLinks(op *huma.Operation, headers []string) {
	var resp *huma.Response
	for code, r := range op.Responses {
		if strings.HasPrefix(code, "2") {
			resp = r
			break
		}
	}
	if resp == nil {
		return
	}
	if resp.Links == nil {
		resp.Links = map[string]*huma.Link{}
	}
	for _, h := range headers {
		href, rel, ok := parseLink(h)
		if !ok {
			continue
		}
		resp.Links[rel] = &huma.Link{
			OperationRef: href,
			Description:  "Related: " + rel,
		}
	}
}

// responseSchema names the component schema of a GET's success body.
func responseSchema(pi *huma.PathItem) string {
	if pi.Get == nil {
		return ""
	}
	for code, resp := range pi.Get.Responses {
		if !strings.HasPrefix(code, "2") {
			continue
		}
		for _, mt := range resp.Content {
			if mt.Schema != nil && mt.Schema.Ref != "" {
				return path.Base(mt.Schema.Ref)
			}
		}
	}
	return ""
}

// parseLink splits `<href>; rel="name"`.
func parseLink(h string) (href, rel string, ok bool) {
	target, params, found := strings.Cut(h, ";")
	if !found {
		return "", "", false
	}
	rel, found = strings.CutPrefix(strings.TrimSpace(params), "rel=")
	if !found {
		return "", "", false
	}
	return strings.Trim(strings.TrimSpace(target), "<>"), strings.Trim(rel, `"`), true
}
