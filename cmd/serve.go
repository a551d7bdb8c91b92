package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/sells-group/geostats-cli/internal/artifact"
	"github.com/sells-group/geostats-cli/internal/dataset"
	"github.com/sells-group/geostats-cli/internal/normalize"
)

var (
	servePort int
	serveDir  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the precomputed statistics to the dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if serveDir != "" {
			cfg.Output.Dir = serveDir
		}
		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           newRouter(cfg.Output.Dir),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", cfg.Server.Port), zap.String("dir", cfg.Output.Dir))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().StringVar(&serveDir, "dir", "", "artifact directory (default output.dir)")
	rootCmd.AddCommand(serveCmd)
}

// newRouter serves the artifacts found in dir. The statistics file is read
// on every request so a new precalculation is picked up without a restart.
func newRouter(dir string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/stats", statsHandler(dir, ""))
		r.Get("/stats/meta", statsHandler(dir, "meta"))
		r.Get("/vialidades", statsHandler(dir, "meta.vialidades"))
		r.Get("/colonias/{key}", entityHandler(dir, "colonias", normalize.NeighborhoodKey))
		r.Get("/secciones/{key}", entityHandler(dir, "secciones", normalize.SectionKey))
	})

	fs := http.StripPrefix("/files/", http.FileServer(http.Dir(dir)))
	r.Get("/files/*", fs.ServeHTTP)

	return r
}

func readStats(dir string) ([]byte, error) {
	return os.ReadFile(filepath.Join(dir, artifact.StatsFile))
}

// statsHandler writes the statistics document, or the value at path when
// path is set.
func statsHandler(dir, path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, ok := loadStats(w, dir)
		if !ok {
			return
		}
		if path == "" {
			writeRaw(w, http.StatusOK, data)
			return
		}
		res := gjson.GetBytes(data, path)
		if !res.Exists() {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": path + " not found"})
			return
		}
		writeRaw(w, http.StatusOK, []byte(res.Raw))
	}
}

// entityHandler looks up one neighborhood or section by its grouping key.
// The URL value is normalized, so raw labels work as well as keys.
func entityHandler(dir, group string, keyFn func(any) string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, ok := loadStats(w, dir)
		if !ok {
			return
		}
		key := keyFn(chi.URLParam(r, "key"))
		res := gjson.GetBytes(data, group+"."+dataset.EscapePath(key))
		if !res.Exists() {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": fmt.Sprintf("%s %q not found", group, key)})
			return
		}
		writeRaw(w, http.StatusOK, []byte(`{"key":`+jsonString(key)+`,"stats":`+res.Raw+`}`))
	}
}

func loadStats(w http.ResponseWriter, dir string) ([]byte, bool) {
	data, err := readStats(dir)
	if errors.Is(err, os.ErrNotExist) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "statistics not generated yet"})
		return nil, false
	}
	if err != nil {
		zap.L().Error("serve: read statistics", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "cannot read statistics"})
		return nil, false
	}
	if !gjson.ValidBytes(data) {
		zap.L().Error("serve: statistics file is not valid JSON", zap.String("dir", dir))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "statistics file is corrupt"})
		return nil, false
	}
	return data, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeRaw(w http.ResponseWriter, status int, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data) //nolint:errcheck
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
