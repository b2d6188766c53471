package handlers

import (
	"mime"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kmz-server/middleware"
)

const kmzContentType = "application/vnd.google-earth.kmz"

func init() {
	_ = mime.AddExtensionType(".kmz", kmzContentType)
}

// RouterConfig carries what NewRouter needs besides the KMZ handler.
type RouterConfig struct {
	DownloadDir    string
	AllowedOrigins []string
	// HistoryEnabled mounts /kmz/history; it needs a download registry.
	HistoryEnabled bool
}

// NewRouter wires every route of the service.
func NewRouter(kmzHandler *KMZHandler, cfg RouterConfig) *mux.Router {
	r := mux.NewRouter()

	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.ErrorMiddleware())
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.HandleFunc("/health", Health).Methods("GET", "OPTIONS")
	r.HandleFunc("/kmz", kmzHandler.GetKMZ).Methods("GET", "OPTIONS")
	if cfg.HistoryEnabled {
		r.HandleFunc("/kmz/history", kmzHandler.GetHistory).Methods("GET", "OPTIONS")
	}
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	files := http.StripPrefix(DownloadPathPrefix, downloadFileServer(cfg.DownloadDir))
	r.PathPrefix(DownloadPathPrefix).Handler(files).Methods("GET", "HEAD", "OPTIONS")

	return r
}

// downloadFileServer serves archives from dir without directory listings.
func downloadFileServer(dir string) http.Handler {
	fileServer := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || r.URL.Path[len(r.URL.Path)-1] == '/' {
			http.NotFound(w, r)
			return
		}
		fileServer.ServeHTTP(w, r)
	})
}
