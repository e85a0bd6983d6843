package devserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/a1motion/preview/go/livereload"
	"golang.org/x/sync/errgroup"
)

// Handler routes the event stream, known pages with the reload client
// injected, then files from the output directory and finally static/.
func (s *Server) Handler() http.Handler {
	build := http.FileServer(http.Dir(s.cfg.BuildDir))
	static := http.FileServer(http.Dir(s.cfg.StaticDir))

	mux := http.NewServeMux()
	mux.Handle("GET "+livereload.Path, s.hub)
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		if name := livereload.Location(r.URL.Path); s.servePage(w, name) {
			return
		}
		rel := filepath.FromSlash(path.Clean("/" + r.URL.Path))
		if info, err := os.Stat(filepath.Join(s.cfg.BuildDir, rel)); err == nil && !info.IsDir() {
			build.ServeHTTP(w, r)
			return
		}
		static.ServeHTTP(w, r)
	})
	return mux
}

func (s *Server) servePage(w http.ResponseWriter, name string) bool {
	if _, ok := s.Page(name); !ok {
		return false
	}
	b, err := os.ReadFile(filepath.Join(s.cfg.BuildDir, name+".html"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return true
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	fmt.Fprint(w, livereload.InjectClient(string(b)))
	return true
}

// Run builds the site, then serves it and watches for changes until ctx is
// done.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	// Event streams end with ctx so Shutdown is not held open by them.
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Watch.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	g.Go(func() error { return s.Watch(ctx) })
	g.Go(func() error {
		s.log.Info().Str("addr", "http://localhost"+srv.Addr).Msg("[watch] serving")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdown)
	})
	return g.Wait()
}
