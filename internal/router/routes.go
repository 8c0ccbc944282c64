package router

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	v1 "github.com/tinoosan/mika/api/v1"
	"github.com/tinoosan/mika/internal/auth"
	"github.com/tinoosan/mika/internal/repo"
	"github.com/tinoosan/mika/internal/service"
)

// Services bundles what the HTTP surface is built on.
type Services struct {
	Torrents  service.Torrent
	Users     service.User
	Whitelist service.Whitelist
	Stats     repo.StatsRepo
	Events    v1.Subscriber
	Version   string
	Started   time.Time
}

type Options struct {
	// APIRoot prefixes every tracker route. Defaults to /v1.
	APIRoot  string
	APIToken string
	// Ping backs /readyz; nil means always ready.
	Ping func(ctx context.Context) error
}

// New sets up the application routes and required middleware.
func New(logger *slog.Logger, svc Services, opts Options) *mux.Router {
	root := "/" + strings.Trim(opts.APIRoot, "/")
	if root == "/" {
		root = "/v1"
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			logger.Error("write healthz response", "err", err)
		}
	}).Methods("GET")
	r.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if opts.Ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := opts.Ping(ctx); err != nil {
				http.Error(w, "cache store unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	}).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	r.Use(v1.RequestID)
	r.Use(v1.Log(logger))
	r.Use(auth.Middleware(opts.APIToken))

	torrents := v1.NewTorrentHandler(logger, svc.Torrents)
	users := v1.NewUserHandler(logger, svc.Users)
	whitelist := v1.NewWhitelistHandler(logger, svc.Whitelist)
	meta := v1.NewMetaHandler(logger, svc.Version, svc.Started, svc.Stats)

	api := r.PathPrefix(root).Subrouter()

	// GETs
	get := api.Methods("GET").Subrouter()
	get.HandleFunc("/torrent/{id}", torrents.GetTorrent)
	get.HandleFunc("/user/{id}", users.GetUser)
	get.HandleFunc("/whitelist", whitelist.ListWhitelist)
	get.HandleFunc("/version", meta.Version)
	get.HandleFunc("/uptime", meta.Uptime)
	get.HandleFunc("/stats", meta.Stats)
	if svc.Events != nil {
		get.HandleFunc("/events", v1.NewEventHandler(logger, svc.Events).Stream)
	}

	// POSTs
	post := api.Methods("POST").Subrouter()
	post.HandleFunc("/torrent", torrents.AddTorrent)
	post.HandleFunc("/user", users.AddUser)
	post.HandleFunc("/user/{id}", users.UpdateUser)
	post.HandleFunc("/whitelist", whitelist.PutWhitelist)

	// DELETEs
	del := api.Methods("DELETE").Subrouter()
	del.HandleFunc("/torrent/{id}", torrents.DeleteTorrent)
	del.HandleFunc("/whitelist/{prefix}", whitelist.DeleteWhitelist)

	return r
}
