package http

import (
	"net/http"
	"time"

	"gameshelf/game"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

type Options struct {
	// SearchRate and SearchBurst bound catalog searches per client IP.
	SearchRate  float64
	SearchBurst int
}

type Server struct {
	router        *mux.Router
	handlers      *Handlers
	searchLimiter *RateLimiter
}

// NewServer wires the API routes. feed serves the websocket change stream
// and may be nil.
func NewServer(collection *game.Collection, searcher Searcher, feed http.Handler, opts Options) *Server {
	if opts.SearchRate <= 0 {
		opts.SearchRate = 2
	}
	if opts.SearchBurst <= 0 {
		opts.SearchBurst = 10
	}

	server := &Server{
		router:        mux.NewRouter(),
		handlers:      NewHandlers(collection, searcher),
		searchLimiter: NewRateLimiter(rate.Limit(opts.SearchRate), opts.SearchBurst),
	}

	server.setupRoutes(feed)
	return server
}

func (s *Server) setupRoutes(feed http.Handler) {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/games", s.handlers.ListGames).Methods("GET")
	api.HandleFunc("/games", s.handlers.CreateGame).Methods("POST")
	api.HandleFunc("/games/{id}", s.handlers.DeleteGame).Methods("DELETE")
	api.Handle("/igdb/search", s.searchLimiter.Middleware(http.HandlerFunc(s.handlers.SearchCatalog))).Methods("GET")

	if feed != nil {
		s.router.Handle("/ws/games", feed).Methods("GET")
	}

	s.router.HandleFunc("/health", s.handlers.Health).Methods("GET")

	// Catch-all for unmatched API routes
	s.router.PathPrefix("/api/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
}

// Handler returns the router wrapped in the middleware chain. The chain sits
// outside the router so unmatched routes and CORS preflights pass through it.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.router
	h = CORSMiddleware(h)
	h = SecurityHeadersMiddleware(h)
	h = LoggingMiddleware(h)
	h = RequestIDMiddleware(h)
	return otelhttp.NewHandler(h, "gameshelf")
}

func (s *Server) GetHTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// Close releases background resources held by the server.
func (s *Server) Close() {
	s.searchLimiter.Stop()
}
