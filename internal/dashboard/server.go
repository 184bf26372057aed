package dashboard

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// NewRouter serves the rendered site in outputDir, plus a health check.
func NewRouter(outputDir string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.NoCache)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/*", http.FileServer(http.Dir(outputDir)))
	return r
}

// Serve blocks until ctx is done or the listener fails.
func Serve(ctx context.Context, port, outputDir string, log zerolog.Logger) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           NewRouter(outputDir),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log = log.With().Str("component", "http").Logger()
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("dir", outputDir).Msg("serving status site")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
