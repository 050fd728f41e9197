package wired

import (
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"github.com/junioryono/wired/internal/metadata"
)

// RouteOptions are handed to the adapter with every route.
type RouteOptions struct {
	Summary     string
	Description string
	Tags        []string

	// Schema is the route's ApiSchema merged with the schema of the first
	// route-level pipe, keyed by request part.
	Schema map[string]any
}

// RouteDef is one route declared on a controller.
type RouteDef struct {
	Method  string
	Path    string
	Handler string

	Options   RouteOptions
	ApiSchema map[string]any

	Guards       []Token
	Interceptors []Token
	Pipes        []PipeRef
	Filters      []Token

	meta *metadata.Store
}

// Metadata returns the custom value set on the route with SetMetadata.
func (r *RouteDef) Metadata(key string) (any, bool) {
	if r.meta == nil {
		return nil, false
	}
	return metadata.Get(r.meta, customKey(key))
}

// RouteOption configures a single route.
type RouteOption interface {
	applyRoute(r *RouteDef) error
}

type routeOptionFunc func(r *RouteDef) error

func (f routeOptionFunc) applyRoute(r *RouteDef) error { return f(r) }

// Opt sets the documentation options of a route.
func Opt(opts RouteOptions) RouteOption {
	return routeOptionFunc(func(r *RouteDef) error {
		r.Options.Summary = opts.Summary
		r.Options.Description = opts.Description
		r.Options.Tags = append([]string(nil), opts.Tags...)
		for k, v := range opts.Schema {
			if r.Options.Schema == nil {
				r.Options.Schema = make(map[string]any)
			}
			r.Options.Schema[k] = v
		}
		return nil
	})
}

// ApiSchema attaches a schema fragment to a route. Fragments given twice
// are merged.
func ApiSchema(fragment map[string]any) RouteOption {
	return routeOptionFunc(func(r *RouteDef) error {
		if r.ApiSchema == nil {
			r.ApiSchema = make(map[string]any, len(fragment))
		}
		for k, v := range fragment {
			r.ApiSchema[k] = v
		}
		return nil
	})
}

// Get declares a GET route handled by the controller method named handler.
func Get(path, handler string, opts ...RouteOption) ClassOption {
	return Route(http.MethodGet, path, handler, opts...)
}

// Post declares a POST route.
func Post(path, handler string, opts ...RouteOption) ClassOption {
	return Route(http.MethodPost, path, handler, opts...)
}

// Put declares a PUT route.
func Put(path, handler string, opts ...RouteOption) ClassOption {
	return Route(http.MethodPut, path, handler, opts...)
}

// Patch declares a PATCH route.
func Patch(path, handler string, opts ...RouteOption) ClassOption {
	return Route(http.MethodPatch, path, handler, opts...)
}

// Delete declares a DELETE route.
func Delete(path, handler string, opts ...RouteOption) ClassOption {
	return Route(http.MethodDelete, path, handler, opts...)
}

// Route declares a route for an arbitrary method.
func Route(method, path, handler string, opts ...RouteOption) ClassOption {
	return classOptionFunc(func(c *ClassDef) {
		if c.Role() != ClassController {
			c.fail(fmt.Sprintf("route %s %s declared on a %s", method, path, c.Role()))
			return
		}
		if _, ok := reflect.PointerTo(c.typ).MethodByName(handler); !ok {
			c.fail(fmt.Sprintf("handler method %s does not exist", handler))
			return
		}

		r := &RouteDef{Method: strings.ToUpper(method), Path: path, Handler: handler}
		for _, o := range opts {
			if o == nil {
				continue
			}
			if err := o.applyRoute(r); err != nil {
				c.record(err)
			}
		}
		r.mergeSchema()

		metadata.Update(c.meta, metaRoutes, func(cur []*RouteDef, _ bool) []*RouteDef {
			return append(cur, r)
		})
	})
}

// mergeSchema fills Options.Schema from ApiSchema and the first pipe
// declared on the route.
func (r *RouteDef) mergeSchema() {
	if len(r.ApiSchema) == 0 && len(r.Pipes) == 0 {
		return
	}
	if r.Options.Schema == nil {
		r.Options.Schema = make(map[string]any)
	}
	for k, v := range r.ApiSchema {
		r.Options.Schema[k] = v
	}
	if len(r.Pipes) > 0 {
		if _, schema := r.Pipes[0].pipe(); schema != nil {
			in := schema.In
			if in == "" {
				in = "body"
			}
			r.Options.Schema[in] = schema
		}
	}
}

var segmentPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// joinPath normalizes and concatenates path parts. Every segment must match
// segmentPattern; the result starts with exactly one slash.
func joinPath(parts ...string) (string, error) {
	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		for _, seg := range strings.Split(part, "/") {
			if seg == "" {
				continue
			}
			if !segmentPattern.MatchString(seg) {
				return "", PathError{Path: part, Segment: seg}
			}
			segments = append(segments, seg)
		}
	}
	return "/" + strings.Join(segments, "/"), nil
}
