package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"

	attributeutils "github.com/bwaidelich/AttributeUtils"
	"github.com/bwaidelich/AttributeUtils/dsl"
	"github.com/bwaidelich/AttributeUtils/jsonschema"
	"github.com/bwaidelich/AttributeUtils/manifest"
)

// Controller marks a structure as an HTTP controller. Route markers on its
// methods fold into Routes.
type Controller struct {
	Base   string                    `json:"base"`
	Routes *attributeutils.MarkerMap `json:"routes"`
}

func (c *Controller) Methods() attributeutils.ChildSpec {
	return attributeutils.ChildrenOf[Route](false)
}

func (c *Controller) SetMethods(m *attributeutils.MarkerMap) { c.Routes = m }

// Route marks one controller method as an HTTP endpoint. Bind markers on the
// method's parameters fold into Params.
type Route struct {
	Method string                    `json:"method" default:"GET"`
	Path   string                    `json:"path" attr:"required"`
	Params *attributeutils.MarkerMap `json:"params"`
}

func (r *Route) Parameters() attributeutils.ChildSpec {
	return attributeutils.ChildrenOf[Bind](false)
}

func (r *Route) SetParameters(m *attributeutils.MarkerMap) { r.Params = m }

// Bind declares where a method parameter's value comes from.
type Bind struct {
	From string `json:"from" default:"query"`
	Name string `json:"name"`
}

// Auth declares the role a controller requires. Controllers inherit it from
// their base unless they override it.
type Auth struct {
	Role string `json:"role" default:"user"`
}

func (a *Auth) Inheritable() {}

// StatsStore counts route table lookups per controller.
type StatsStore struct {
	mu      sync.RWMutex
	lookups map[string]int
}

func NewStatsStore() *StatsStore {
	return &StatsStore{lookups: make(map[string]int)}
}

func (s *StatsStore) Record(controller string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lookups[controller]++
}

func (s *StatsStore) All() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]int, len(s.lookups))
	for k, v := range s.lookups {
		out[k] = v
	}
	return out
}

// Server holds our application state
type Server struct {
	snap     *dsl.Snapshot
	engine   *attributeutils.Engine
	analyzer attributeutils.Analyzer
	stats    *StatsStore
}

func NewServer() *Server {
	// Declare the controller catalog. api.Base carries the default Auth
	// marker every controller inherits.
	c := dsl.NewCatalog()

	c.Structure("api.Base").
		Marker(&Auth{Role: "user"})

	c.Structure("api.Users").
		Extends("api.Base").
		Marker(&Controller{Base: "/users"}).
		Method("List").Marker(&Route{Path: "/"}).
		Method("Get").Marker(&Route{Path: "/{id}"}).
		Param("id").Marker(&Bind{From: "path"}).
		Method("Create").Marker(&Route{Method: "POST", Path: "/"})

	c.Structure("api.Admin").
		Extends("api.Base").
		Marker(&Auth{Role: "admin"}).
		Marker(&Controller{Base: "/admin"}).
		Method("Purge").Marker(&Route{Method: "DELETE", Path: "/cache"})

	snap := c.MustBuild()
	engine := attributeutils.New(snap)

	return &Server{
		snap:     snap,
		engine:   engine,
		analyzer: attributeutils.Memoized(engine),
		stats:    NewStatsStore(),
	}
}

// RouteEntry is one resolved endpoint in the route table.
type RouteEntry struct {
	Method string            `json:"method"`
	Path   string            `json:"path"`
	Action string            `json:"action"`
	Params map[string]string `json:"params,omitempty"`
}

// ControllerEntry is one controller's slice of the route table.
type ControllerEntry struct {
	Controller string       `json:"controller"`
	Role       string       `json:"role"`
	RoleFrom   string       `json:"roleInheritedFrom,omitempty"`
	Routes     []RouteEntry `json:"routes"`
}

func (s *Server) controllerEntry(ctx context.Context, name string) (ControllerEntry, bool, error) {
	rc, err := attributeutils.ResolveWithMeta[Controller](ctx, s.engine, name)
	if err != nil {
		return ControllerEntry{}, false, err
	}

	// Origin is empty when the structure declares no Controller marker;
	// bases like api.Base are not part of the route table.
	if rc.Origin == "" {
		return ControllerEntry{}, false, nil
	}

	ra, err := attributeutils.ResolveWithMeta[Auth](ctx, s.engine, name)
	if err != nil {
		return ControllerEntry{}, false, err
	}

	entry := ControllerEntry{Controller: name, Role: ra.Value.Role}
	if ra.Origin != "" && ra.Origin != name {
		entry.RoleFrom = ra.Origin
	}

	ctrl := rc.Value
	for _, action := range ctrl.Routes.Names() {
		route, ok := attributeutils.MarkerAt[Route](ctrl.Routes, action)
		if !ok {
			continue
		}

		re := RouteEntry{
			Method: route.Method,
			Path:   joinPath(ctrl.Base, route.Path),
			Action: action,
		}
		if route.Params != nil && route.Params.Len() > 0 {
			re.Params = make(map[string]string, route.Params.Len())
			for _, p := range route.Params.Names() {
				if b, ok := attributeutils.MarkerAt[Bind](route.Params, p); ok {
					re.Params[p] = b.From
				}
			}
		}
		entry.Routes = append(entry.Routes, re)
	}

	s.stats.Record(name)
	return entry, true, nil
}

func joinPath(base, path string) string {
	if path == "/" || path == "" {
		return base
	}
	return strings.TrimSuffix(base, "/") + path
}

func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	entries := make([]ControllerEntry, 0)
	for _, name := range s.snap.Names() {
		entry, ok, err := s.controllerEntry(ctx, name)
		if err != nil {
			s.handleResolveError(w, err)
			return
		}
		if ok {
			entries = append(entries, entry)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"controllers": entries,
		"count":       len(entries),
	})
}

func (s *Server) handleRouteByName(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/routes/")
	if name == "" {
		http.Error(w, "Missing controller name", http.StatusBadRequest)
		return
	}

	entry, ok, err := s.controllerEntry(r.Context(), name)
	if err != nil {
		s.handleResolveError(w, err)
		return
	}
	if !ok {
		http.Error(w, "Not a controller", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entry)
}

func (s *Server) handleMarkerSchema(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/markers/")
	if name == "" {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"markers": attributeutils.RegisteredMarkers(),
		})
		return
	}

	schema, err := jsonschema.ForMarkerName(name)
	if err != nil {
		if attributeutils.HasCode(err, attributeutils.CodeUnknownMarker) {
			http.Error(w, "Unknown marker", http.StatusNotFound)
			return
		}
		s.handleResolveError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(schema)
}

func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	doc, err := manifest.Build(r.Context(), s.analyzer, s.snap, manifest.Request{
		Markers: []string{"http.Controller", "http.Auth"},
	})
	if err != nil {
		s.handleResolveError(w, err)
		return
	}

	data, err := doc.JSON()
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to render manifest: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"lookups": s.stats.All(),
	})
}

func (s *Server) handleResolveError(w http.ResponseWriter, err error) {
	// Check if it's a resolution error with detailed issues
	if issues, ok := attributeutils.AsIssues(err); ok {
		status := http.StatusBadRequest
		if attributeutils.HasCode(err, attributeutils.CodeUnknownStructure) {
			status = http.StatusNotFound
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)

		details := make([]map[string]interface{}, len(issues))
		for i, issue := range issues {
			details[i] = map[string]interface{}{
				"path":    issue.Path,
				"code":    issue.Code,
				"message": issue.Message,
			}
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"error":   "Resolution failed",
			"details": details,
		})
		return
	}

	http.Error(w, fmt.Sprintf("Error: %v", err), http.StatusInternalServerError)
}

func main() {
	server := NewServer()

	// Setup routes
	http.HandleFunc("/routes", server.handleRoutes)
	http.HandleFunc("/routes/", server.handleRouteByName)
	http.HandleFunc("/markers/", server.handleMarkerSchema)
	http.HandleFunc("/manifest", server.handleManifest)
	http.HandleFunc("/stats", server.handleStats)

	// Health check
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	// Root handler with usage instructions
	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"message": "AttributeUtils Route Catalog Sample",
			"endpoints": map[string]string{
				"GET /routes":         "Get the resolved route table",
				"GET /routes/{name}":  "Get one controller's routes",
				"GET /markers/":       "List registered marker types",
				"GET /markers/{name}": "Get the argument schema for a marker",
				"GET /manifest":       "Get the resolved marker manifest",
				"GET /stats":          "Get route table lookup counts",
				"GET /health":         "Health check",
			},
			"examples": map[string]interface{}{
				"route_table": map[string]string{
					"method": "GET",
					"url":    "/routes",
				},
				"one_controller": map[string]string{
					"method": "GET",
					"url":    "/routes/api.Users",
					"note":   "api.Users inherits its role from api.Base",
				},
			},
		})
	})

	log.Println("🚀 AttributeUtils route catalog server starting on :8080")
	log.Println("📖 Visit http://localhost:8080 for usage instructions")
	log.Println("🔍 Visit http://localhost:8080/routes to see the resolved route table")

	if err := http.ListenAndServe(":8080", nil); err != nil {
		log.Fatal("Server failed to start:", err)
	}
}

func init() {
	attributeutils.MustRegisterMarker[Controller]("http.Controller")
	attributeutils.MustRegisterMarker[Route]("http.Route")
	attributeutils.MustRegisterMarker[Bind]("http.Bind")
	attributeutils.MustRegisterMarker[Auth]("http.Auth")
}
