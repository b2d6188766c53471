package models

import "time"

// Registro is the projection of a record read from the "Registro" collection.
// Coordinates is left raw because writers store it in several shapes.
type Registro struct {
	CampaignID  string `json:"campanaID" bson:"campanaID"`
	Coordinates any    `json:"Coordinates" bson:"Coordinates"`
}

// GeoPoint is the GeoJSON point document MongoDB uses for native geo data.
// Coordinates are ordered [longitude, latitude].
type GeoPoint struct {
	Type        string    `json:"type" bson:"type"`
	Coordinates []float64 `json:"coordinates" bson:"coordinates"`
}

// Coordinate is a normalised point, longitude first.
type Coordinate struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// GeneratedArchive describes a KMZ written for one request.
type GeneratedArchive struct {
	CampaignID string
	Filename   string
	Path       string
	Points     int
}

// DownloadDescriptor is the /kmz response body.
type DownloadDescriptor struct {
	DownloadURL string `json:"download_url"`
}

// DownloadRecord is what the download registry keeps per generated archive.
type DownloadRecord struct {
	CampaignID string    `json:"campana_id"`
	Filename   string    `json:"filename"`
	URL        string    `json:"download_url"`
	Points     int       `json:"points"`
	CreatedAt  time.Time `json:"created_at"`
}
