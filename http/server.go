package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/csrf"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"yatube/auth"
	"yatube/cache"
	"yatube/crud"
	"yatube/domain"
	"yatube/events"
	"yatube/log"
	"yatube/metrics"
	"yatube/paginate"
)

// PostsPerPage is the number of posts on one page of every post listing.
const PostsPerPage = 10

// Config holds the settings of the web server.
type Config struct {
	IsProd bool
	// CSRFKey is the 32 byte key protecting form submissions. CSRF protection
	// is disabled when it is empty.
	CSRFKey string
	// MediaRoot is the directory uploaded images are served from.
	MediaRoot string
}

// Server provides the http functionality of this app, namely routing,
// request handling, template rendering and middleware. It also performs
// authorization before handing things over to one of the crud services.
type Server struct {
	router  *mux.Router
	handler http.Handler

	us domain.UserService
	gs domain.GroupService
	ps domain.PostService
	cs domain.CommentService
	fs domain.FollowService
	is domain.ImageService

	// index holds pages of the home listing for a short time.
	index  cache.Store[*paginate.Page[domain.Post]]
	events events.Publisher

	templates templates
	userMw    *auth.UserMw
	requireMw *auth.RequireUserMw
	isProd    bool
	logger    zerolog.Logger
}

// NewServer returns a new instance of the server, registers all necessary
// routes and gives their handlers access to the app services passed in.
func NewServer(
	cfg Config,
	services *crud.Services,
	index cache.Store[*paginate.Page[domain.Post]],
	publisher events.Publisher,
) (*Server, error) {
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	// Construct a new Server with a gorilla router and the services passed in.
	s := &Server{
		router:    mux.NewRouter(),
		us:        services.User,
		gs:        services.Group,
		ps:        services.Post,
		cs:        services.Comment,
		fs:        services.Follow,
		is:        services.Image,
		index:     index,
		events:    publisher,
		templates: tmpl,
		userMw:    &auth.UserMw{Users: services.User},
		requireMw: &auth.RequireUserMw{},
		isProd:    cfg.IsProd,
		logger:    log.WithComponent("http"),
	}

	// Register infrastructure routes first, then the fixed site routes, and
	// the username routes last since they match any first path segment.
	s.router.Handle("/metrics", metrics.Handler()).Methods("GET")
	if cfg.MediaRoot != "" {
		s.router.PathPrefix(domain.MediaURL).Handler(
			http.StripPrefix(domain.MediaURL, http.FileServer(http.Dir(cfg.MediaRoot))))
	}
	s.registerAuthRoutes(s.router)
	s.registerAboutRoutes(s.router)
	s.registerPostRoutes(s.router)
	s.registerFollowRoutes(s.router)
	s.registerCommentRoutes(s.router)
	s.registerProfileRoutes(s.router)

	s.router.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
	s.router.Use(s.instrument)

	// Set up middleware that needs to run on every request, including
	// unmatched ones. The user is identified before CSRF checks run so that
	// error pages still show who is signed in.
	var h http.Handler = s.router
	h = s.userMw.Apply(h)
	if cfg.CSRFKey != "" {
		// A new CSRF token is issued with every rendered form.
		h = csrf.Protect([]byte(cfg.CSRFKey),
			csrf.Secure(cfg.IsProd),
			csrf.Path("/"),
			csrf.ErrorHandler(http.HandlerFunc(s.handleForbidden)),
		)(h)
	}
	h = s.logRequests(h)
	h = s.recoverPanics(h)
	s.handler = h
	return s, nil
}

// ServeHTTP makes the Server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// requireUser wraps handlers of routes that only signed in users may visit.
func (s *Server) requireUser(next http.HandlerFunc) http.HandlerFunc {
	return s.requireMw.ApplyFn(next)
}

// publish hands an event to the publisher. Failures are logged but never
// fail the request, since the change it reports has already been stored.
func (s *Server) publish(ctx context.Context, e events.Event) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.events.Publish(ctx, e); err != nil {
		s.logger.Warn().Err(err).Str("event", e.Type).Msg("publishing event failed")
	}
}

// Run starts to listen and serve on addr until ctx is cancelled, then shuts
// the server down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second, // prevent slowloris attacks
		WriteTimeout:      30 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("starting http server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	s.logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info().Msg("server stopped gracefully")
	return nil
}
