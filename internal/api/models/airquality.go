package models

// StationSummary is station metadata for listings.
type StationSummary struct {
	StationID string `json:"stationId"`
	City      string `json:"city"`
	State     string `json:"state"`
	Location  Point  `json:"location"`
}

// StationList is the stations listing response.
type StationList struct {
	Stations []StationSummary `json:"stations"`
}
