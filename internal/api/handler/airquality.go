package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/vayulabs/vayu/internal/api/models"
	"github.com/vayulabs/vayu/internal/api/response"
	"github.com/vayulabs/vayu/internal/fusion"
	"github.com/vayulabs/vayu/internal/geo"
	"github.com/vayulabs/vayu/internal/station"
	"github.com/vayulabs/vayu/internal/trend"
)

// Search radii applied when the client does not specify one. Point
// estimates stay tight so a reading actually represents the location;
// trends tolerate a wider net since they average over days.
const (
	defaultEstimateRadiusKm = 5.0
	defaultTrendRadiusKm    = 10.0
)

// AirQualityHandler handles air quality estimate and trend endpoints.
type AirQualityHandler struct {
	fusion   *fusion.Service
	trend    *trend.Service
	stations station.Repository
}

// NewAirQualityHandler creates a new AirQualityHandler.
func NewAirQualityHandler(f *fusion.Service, t *trend.Service, stations station.Repository) *AirQualityHandler {
	return &AirQualityHandler{fusion: f, trend: t, stations: stations}
}

// parseQuery extracts lat, lon, and radius_km query parameters, falling
// back to the endpoint's default radius.
func parseQuery(r *http.Request, defaultRadiusKm float64) (fusion.Query, []models.FieldError) {
	var fieldErrs []models.FieldError

	lat, err := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	if err != nil {
		fieldErrs = append(fieldErrs, models.FieldError{Field: "lat", Message: "must be a number"})
	}
	lon, err := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if err != nil {
		fieldErrs = append(fieldErrs, models.FieldError{Field: "lon", Message: "must be a number"})
	}

	radius := defaultRadiusKm
	if raw := r.URL.Query().Get("radius_km"); raw != "" {
		radius, err = strconv.ParseFloat(raw, 64)
		if err != nil || radius <= 0 {
			fieldErrs = append(fieldErrs, models.FieldError{Field: "radius_km", Message: "must be a positive number"})
		}
	}

	if fieldErrs != nil {
		return fusion.Query{}, fieldErrs
	}
	return fusion.Query{Point: geo.Point{Lat: lat, Lon: lon}, RadiusKm: radius}, nil
}

// GetEstimate handles GET /v1/air-quality - fused point estimate.
func (h *AirQualityHandler) GetEstimate(w http.ResponseWriter, r *http.Request) {
	q, fieldErrs := parseQuery(r, defaultEstimateRadiusKm)
	if fieldErrs != nil {
		response.BadRequest(w, r, "invalid query parameters", fieldErrs)
		return
	}

	res, err := h.fusion.Fuse(r.Context(), q)
	if err != nil {
		switch {
		case errors.Is(err, fusion.ErrInvalidQuery):
			response.BadRequest(w, r, "coordinates out of range", nil)
		case errors.Is(err, fusion.ErrStoreUnavailable):
			response.ServiceUnavailable(w, r, "data store unavailable")
		default:
			response.InternalError(w, r, "failed to compute estimate")
		}
		return
	}

	response.JSON(w, r, http.StatusOK, res)
}

// GetTrend handles GET /v1/air-quality/trend - daily index history.
func (h *AirQualityHandler) GetTrend(w http.ResponseWriter, r *http.Request) {
	q, fieldErrs := parseQuery(r, defaultTrendRadiusKm)
	if fieldErrs != nil {
		response.BadRequest(w, r, "invalid query parameters", fieldErrs)
		return
	}

	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		var err error
		days, err = strconv.Atoi(raw)
		if err != nil || days < 0 || days > 90 {
			response.BadRequest(w, r, "invalid query parameters", []models.FieldError{
				{Field: "days", Message: "must be an integer between 1 and 90"},
			})
			return
		}
	}

	res, err := h.trend.Aggregate(r.Context(), trend.Query{
		Point:       q.Point,
		RadiusKm:    q.RadiusKm,
		Days:        days,
		Granularity: trend.Granularity(r.URL.Query().Get("granularity")),
	})
	if err != nil {
		switch {
		case errors.Is(err, fusion.ErrInvalidQuery):
			response.BadRequest(w, r, "coordinates out of range", nil)
		case errors.Is(err, trend.ErrNoData):
			response.NotFound(w, r, "no readings near this location")
		case errors.Is(err, fusion.ErrStoreUnavailable):
			response.ServiceUnavailable(w, r, "data store unavailable")
		default:
			response.InternalError(w, r, "failed to aggregate trend")
		}
		return
	}

	response.JSON(w, r, http.StatusOK, res)
}

// ListStations handles GET /v1/stations - active station metadata.
func (h *AirQualityHandler) ListStations(w http.ResponseWriter, r *http.Request) {
	stations, err := h.stations.ListActive(r.Context())
	if err != nil {
		response.ServiceUnavailable(w, r, "data store unavailable")
		return
	}

	out := make([]models.StationSummary, 0, len(stations))
	for _, s := range stations {
		out = append(out, models.StationSummary{
			StationID: s.StationID,
			City:      s.City,
			State:     s.State,
			Location:  models.Point{Lat: s.Point.Lat, Lon: s.Point.Lon},
		})
	}
	response.JSON(w, r, http.StatusOK, models.StationList{Stations: out})
}
