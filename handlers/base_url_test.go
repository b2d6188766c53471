package handlers

import (
	"crypto/tls"
	"net/http/httptest"
	"testing"
)

func TestPublicBaseURL(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		headers    map[string]string
		tls        bool
		configured string
		want       string
	}{
		{name: "plain host", target: "http://kmz.local:8080/kmz", want: "http://kmz.local:8080"},
		{name: "tls", target: "https://kmz.local/kmz", tls: true, want: "https://kmz.local"},
		{
			name:    "forwarded proto and host",
			target:  "http://10.0.0.5:8080/kmz",
			headers: map[string]string{"X-Forwarded-Proto": "HTTPS", "X-Forwarded-Host": "maps.example.com"},
			want:    "https://maps.example.com",
		},
		{
			name:    "chained proxies use the first value",
			target:  "http://10.0.0.5/kmz",
			headers: map[string]string{"X-Forwarded-Proto": "https, http", "X-Forwarded-Host": "a.example.com,b.internal"},
			want:    "https://a.example.com",
		},
		{
			name:    "prefix without leading slash",
			target:  "http://kmz.local/kmz",
			headers: map[string]string{"X-Forwarded-Prefix": "geo/"},
			want:    "http://kmz.local/geo",
		},
		{
			name:       "configured wins",
			target:     "http://kmz.local/kmz",
			headers:    map[string]string{"X-Forwarded-Host": "other.example.com"},
			configured: "https://public.example.com/",
			want:       "https://public.example.com",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.target, nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if tt.tls {
				req.TLS = &tls.ConnectionState{}
			} else {
				req.TLS = nil
			}
			if got := PublicBaseURL(req, tt.configured); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestDownloadURL_EscapesFilename(t *testing.T) {
	tests := map[string]string{
		"registros_CAMP1_a1b2c3.kmz": "https://x.example/downloads/registros_CAMP1_a1b2c3.kmz",
		"registros_a b_000000.kmz":   "https://x.example/downloads/registros_a%20b_000000.kmz",
		"registros_a?b#c_000000.kmz": "https://x.example/downloads/registros_a%3Fb%23c_000000.kmz",
	}
	for filename, want := range tests {
		if got := DownloadURL("https://x.example/", filename); got != want {
			t.Errorf("DownloadURL(%q) = %s, want %s", filename, got, want)
		}
	}
}
