package router

import (
	"log"
	"net/http"
	"strings"
	"time"
)

// --- ANSI color codes ---
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
)

type HandlerFunc func(http.ResponseWriter, *http.Request)

type Router struct {
	mux    *http.ServeMux
	routes map[string]HandlerFunc // key = METHOD:PATH
	paths  map[string]bool        // track registered paths
}

func New() *Router {
	r := &Router{
		mux:    http.NewServeMux(),
		routes: make(map[string]HandlerFunc),
		paths:  make(map[string]bool),
	}

	// Single catch-all; route resolution happens here so wildcard routes work
	r.mux.HandleFunc("/", func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		if h := r.resolve(req.Method, req.URL.Path); h != nil {
			h(lrw, req)
		} else {
			http.NotFound(lrw, req)
		}

		log.Printf("%s%s%s %s %s%d%s %v",
			methodColor(req.Method), req.Method, colorReset,
			req.URL.Path,
			statusColor(lrw.statusCode), lrw.statusCode, colorReset,
			time.Since(start))
	})

	return r
}

// resolve finds the handler for a method/path pair. Exact matches win;
// wildcard routes are tried longest-prefix first so that
// /api/v1/analyses/*/results beats /api/v1/analyses/*.
func (r *Router) resolve(method, path string) HandlerFunc {
	if h, ok := r.routes[method+":"+path]; ok {
		return h
	}

	var bestPath string
	for routePath := range r.paths {
		if !strings.Contains(routePath, "*") {
			continue
		}
		if !matchWildcardRoute(path, routePath) {
			continue
		}
		if _, ok := r.routes[method+":"+routePath]; !ok {
			continue
		}
		if len(routePath) > len(bestPath) {
			bestPath = routePath
		}
	}
	if bestPath != "" {
		return r.routes[method+":"+bestPath]
	}
	return nil
}

// matchWildcardRoute matches a request path against a registered route where
// "*" stands for exactly one path segment, except in last position where it
// also swallows the rest of the path.
func matchWildcardRoute(requestPath, routePath string) bool {
	requestSegments := splitPath(requestPath)
	routeSegments := splitPath(routePath)

	if len(routeSegments) == 0 {
		return false
	}

	// Trailing wildcard matches any remainder
	if routeSegments[len(routeSegments)-1] == "*" && len(requestSegments) >= len(routeSegments) {
		for i := 0; i < len(routeSegments)-1; i++ {
			if routeSegments[i] != "*" && requestSegments[i] != routeSegments[i] {
				return false
			}
		}
		return true
	}

	if len(requestSegments) != len(routeSegments) {
		return false
	}

	for i, routeSegment := range routeSegments {
		if routeSegment == "*" {
			continue
		}
		if requestSegments[i] != routeSegment {
			return false
		}
	}

	return true
}

func splitPath(p string) []string {
	var segments []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}

// --- Register paths ---
func (r *Router) register(method, path string, handler HandlerFunc) {
	key := method + ":" + path
	r.routes[key] = handler
	r.paths[path] = true
}

func (r *Router) GET(path string, handler HandlerFunc)   { r.register(http.MethodGet, path, handler) }
func (r *Router) POST(path string, handler HandlerFunc)  { r.register(http.MethodPost, path, handler) }
func (r *Router) PUT(path string, handler HandlerFunc)   { r.register(http.MethodPut, path, handler) }
func (r *Router) PATCH(path string, handler HandlerFunc) { r.register(http.MethodPatch, path, handler) }
func (r *Router) DELETE(path string, handler HandlerFunc) {
	r.register(http.MethodDelete, path, handler)
}

// Handle mounts a plain http.Handler (e.g. the swagger UI) under a path.
func (r *Router) Handle(method, path string, handler http.Handler) {
	r.register(method, path, func(w http.ResponseWriter, req *http.Request) {
		handler.ServeHTTP(w, req)
	})
}

// Getter methods for testing
func (r *Router) Routes() map[string]HandlerFunc {
	return r.routes
}

func (r *Router) Paths() map[string]bool {
	return r.paths
}

// --- Start server ---
func (r *Router) Start(addr string) {
	log.Printf("🚀 Server started on %shttp://localhost%s%s", colorGreen, addr, colorReset)
	log.Fatal(http.ListenAndServe(addr, r.mux))
}

// ServeHTTP makes the router usable with httptest servers.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// --- Logging response writer to capture status codes ---
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

// --- Color helpers ---
func statusColor(code int) string {
	switch {
	case code >= 200 && code < 300:
		return colorGreen
	case code >= 300 && code < 400:
		return colorCyan
	case code >= 400 && code < 500:
		return colorYellow
	default:
		return colorRed
	}
}

func methodColor(method string) string {
	switch method {
	case http.MethodGet:
		return colorGreen
	case http.MethodPost:
		return colorBlue
	case http.MethodPut:
		return colorYellow
	case http.MethodPatch:
		return colorYellow
	case http.MethodDelete:
		return colorRed
	default:
		return colorCyan
	}
}
