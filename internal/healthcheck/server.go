// Package healthcheck serves /healthz and /metrics next to the bot's delivery loop.
package healthcheck

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
)

// NormalizeListen turns "8080" into ":8080" and trims whitespace. Empty disables the server.
func NormalizeListen(listen string) string {
	listen = strings.TrimSpace(listen)
	if listen == "" {
		return ""
	}
	if !strings.Contains(listen, ":") {
		return ":" + listen
	}
	return listen
}

// RegisterRoutes adds the health endpoints and, when metrics is non-nil, /metrics.
func RegisterRoutes(r *mux.Router, mode string, metrics http.Handler) {
	started := time.Now().UTC()
	health := func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":      true,
			"mode":    mode,
			"started": started.Format(time.RFC3339),
			"time":    time.Now().UTC().Format(time.RFC3339Nano),
		})
	}
	r.HandleFunc("/healthz", health).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/health", health).Methods(http.MethodGet, http.MethodHead)
	if metrics != nil {
		r.Handle("/metrics", metrics).Methods(http.MethodGet)
	}
}

// StartServer binds listen and serves handler until ctx is done. Bind errors are returned
// synchronously; the caller owns Shutdown.
func StartServer(ctx context.Context, logger *slog.Logger, listen string, mode string, handler http.Handler) (*http.Server, error) {
	listen = NormalizeListen(listen)
	if listen == "" {
		return nil, fmt.Errorf("missing listen address")
	}
	if logger == nil {
		logger = slog.Default()
	}
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return nil, err
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	go func() {
		logger.Info("http_server_start", "addr", ln.Addr().String(), "mode", mode)
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Warn("http_server_error", "addr", ln.Addr().String(), "mode", mode, "error", err.Error())
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	return srv, nil
}
