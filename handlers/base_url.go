package handlers

import (
	"net/http"
	"net/url"
	"strings"
)

// DownloadPathPrefix is where the download directory is served.
const DownloadPathPrefix = "/downloads/"

// PublicBaseURL returns scheme://host[/prefix] as seen by the client. A
// configured base URL wins; otherwise X-Forwarded-Proto, X-Forwarded-Host and
// X-Forwarded-Prefix from the reverse proxy are honoured, falling back to the
// request itself.
func PublicBaseURL(r *http.Request, configured string) string {
	if configured != "" {
		return strings.TrimRight(configured, "/")
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := firstHeaderValue(r, "X-Forwarded-Proto"); proto != "" {
		scheme = strings.ToLower(proto)
	}

	host := r.Host
	if fwdHost := firstHeaderValue(r, "X-Forwarded-Host"); fwdHost != "" {
		host = fwdHost
	}

	prefix := strings.TrimRight(firstHeaderValue(r, "X-Forwarded-Prefix"), "/")
	if prefix != "" && !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}

	return scheme + "://" + host + prefix
}

// DownloadURL joins the public base URL, the download path and the
// percent-encoded filename.
func DownloadURL(baseURL, filename string) string {
	return strings.TrimRight(baseURL, "/") + DownloadPathPrefix + url.PathEscape(filename)
}

// firstHeaderValue returns the first entry of a comma separated header, as set
// by chained proxies.
func firstHeaderValue(r *http.Request, key string) string {
	v := r.Header.Get(key)
	if i := strings.IndexByte(v, ','); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}
