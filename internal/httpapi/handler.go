package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"geofence-service/internal/admin"
	"geofence-service/internal/audit"
	"geofence-service/internal/errs"
	"geofence-service/internal/eventbus"
	"geofence-service/internal/ingress"
	"geofence-service/internal/model"
	"geofence-service/internal/staticdata"
	"geofence-service/internal/store"
)

type Handler struct {
	dispatcher *ingress.Dispatcher
	admin      *admin.Admin
	audit      *audit.Query
	store      store.Interface
	static     *staticdata.Provider
	bus        *eventbus.Bus
	log        zerolog.Logger
}

func NewHandler(d *ingress.Dispatcher, a *admin.Admin, aq *audit.Query, s store.Interface, static *staticdata.Provider, bus *eventbus.Bus, log zerolog.Logger) *Handler {
	return &Handler{dispatcher: d, admin: a, audit: aq, store: s, static: static, bus: bus, log: log}
}

func (h *Handler) Register(r *gin.Engine) {
	location := r.Group("/location")
	{
		location.POST("/update", h.locationUpdate)
		location.POST("/update/async", h.locationUpdateAsync)
		location.POST("/batch", h.locationBatch)
	}

	r.POST("/trip/:id/manual-close", h.manualClose)

	dashboard := r.Group("/dashboard")
	{
		dashboard.POST("/start-trip/:id", h.startTrip)
		dashboard.POST("/reset", h.resetAll)
		dashboard.GET("/data", h.dashboardData)
	}

	auditGroup := r.Group("/audit")
	{
		auditGroup.GET("/trip/:id", h.auditByTrip)
		auditGroup.GET("/vehicle/:id", h.auditByVehicle)
		auditGroup.GET("/vehicle/:id/stats", h.auditVehicleStats)
		auditGroup.GET("/events", h.auditByTimeRange)
	}

	geofences := r.Group("/geofences")
	{
		geofences.GET("", h.listGeofences)
		geofences.GET("/:id", h.getGeofence)
		geofences.POST("", h.createGeofence)
		geofences.PUT("/:id", h.updateGeofence)
		geofences.DELETE("/:id", h.deleteGeofence)
	}

	r.GET("/ws", h.websocket)
}

func (h *Handler) locationUpdate(c *gin.Context) {
	req, ok := h.bindLocationUpdate(c)
	if !ok {
		return
	}
	if err := h.dispatcher.Sync(c.Request.Context(), req); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(gin.H{"message": "processed"}))
}

func (h *Handler) locationUpdateAsync(c *gin.Context) {
	req, ok := h.bindLocationUpdate(c)
	if !ok {
		return
	}
	h.dispatcher.Async(c.Request.Context(), req)
	c.JSON(http.StatusAccepted, successResponse(gin.H{"message": "accepted"}))
}

func (h *Handler) bindLocationUpdate(c *gin.Context) (ingress.PingRequest, bool) {
	var body LocationUpdateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return ingress.PingRequest{}, false
	}
	vehicleID, err := uuid.Parse(body.VehicleID)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid vehicleId"))
		return ingress.PingRequest{}, false
	}
	tripID, err := uuid.Parse(body.TripID)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid tripId"))
		return ingress.PingRequest{}, false
	}
	return ingress.PingRequest{
		VehicleID: vehicleID,
		TripID:    tripID,
		Lat:       body.Lat,
		Lon:       body.Lon,
		SpeedKmh:  body.Speed,
		Timestamp: body.Timestamp.Time,
	}, true
}

func (h *Handler) locationBatch(c *gin.Context) {
	var body []LocationUpdateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	reqs := make([]ingress.PingRequest, 0, len(body))
	for _, item := range body {
		vehicleID, err := uuid.Parse(item.VehicleID)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("invalid vehicleId in batch"))
			return
		}
		tripID, err := uuid.Parse(item.TripID)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("invalid tripId in batch"))
			return
		}
		reqs = append(reqs, ingress.PingRequest{
			VehicleID: vehicleID,
			TripID:    tripID,
			Lat:       item.Lat,
			Lon:       item.Lon,
			SpeedKmh:  item.Speed,
			Timestamp: item.Timestamp.Time,
		})
	}

	result, err := h.dispatcher.Batch(c.Request.Context(), reqs)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(result))
}

func (h *Handler) manualClose(c *gin.Context) {
	tripID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid trip id"))
		return
	}
	var body ManualCloseRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}
	trip, err := h.admin.ManualClose(c.Request.Context(), tripID, body.Lat, body.Lon, body.Reason)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(trip))
}

func (h *Handler) startTrip(c *gin.Context) {
	tripID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid trip id"))
		return
	}
	trip, err := h.admin.StartTrip(c.Request.Context(), tripID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(trip))
}

func (h *Handler) resetAll(c *gin.Context) {
	if err := h.admin.ResetAll(c.Request.Context()); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(gin.H{"message": "reset"}))
}

// dashboardData returns everything the dashboard needs to render in one
// call: vehicles, trips enriched with driver and ETA info, pickup points,
// office geofences, every location log (for trail reconstruction), and
// every event, newest first.
func (h *Handler) dashboardData(c *gin.Context) {
	ctx := c.Request.Context()
	vehicles, err := h.store.ListVehicles(ctx)
	if err != nil {
		h.handleError(c, err)
		return
	}
	trips, err := h.store.ListTrips(ctx)
	if err != nil {
		h.handleError(c, err)
		return
	}
	geofences, err := h.store.ListGeofences(ctx)
	if err != nil {
		h.handleError(c, err)
		return
	}
	pickups, err := h.store.AllPickups(ctx)
	if err != nil {
		h.handleError(c, err)
		return
	}
	locations, err := h.store.AllLocationLogs(ctx)
	if err != nil {
		h.handleError(c, err)
		return
	}
	events, err := h.store.AllEvents(ctx)
	if err != nil {
		h.handleError(c, err)
		return
	}

	enrichedTrips, err := buildDashboardTrips(ctx, h.static, trips, locations, pickups, geofences)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{
		"vehicles":      vehicles,
		"trips":         enrichedTrips,
		"pickup_points": pickups,
		"geofences":     geofences,
		"location_logs": locations,
		"events":        events,
	}))
}

func (h *Handler) auditByTrip(c *gin.Context) {
	tripID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid trip id"))
		return
	}
	events, err := h.audit.ByTrip(c.Request.Context(), tripID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(events))
}

func (h *Handler) auditByVehicle(c *gin.Context) {
	vehicleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid vehicle id"))
		return
	}
	events, err := h.audit.ByVehicle(c.Request.Context(), vehicleID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(events))
}

func (h *Handler) auditVehicleStats(c *gin.Context) {
	vehicleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid vehicle id"))
		return
	}
	locations, err := h.speedSamplesForVehicle(c, vehicleID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	result, err := h.audit.Stats(c.Request.Context(), vehicleID, locations)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(result))
}

// speedSamplesForVehicle pulls speed off every trip's most recent location
// log for the vehicle, a coarse but store-cheap sample set for the stats
// endpoint's speed percentile.
func (h *Handler) speedSamplesForVehicle(c *gin.Context, vehicleID uuid.UUID) ([]float64, error) {
	trips, err := h.store.ListTrips(c.Request.Context())
	if err != nil {
		return nil, err
	}
	var samples []float64
	for _, trip := range trips {
		if trip.VehicleID != vehicleID {
			continue
		}
		loc, err := h.store.LatestLocation(c.Request.Context(), trip.ID)
		if err != nil || loc == nil {
			continue
		}
		samples = append(samples, loc.SpeedKmh)
	}
	return samples, nil
}

func (h *Handler) auditByTimeRange(c *gin.Context) {
	from, err := parseQueryTime(c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid from"))
		return
	}
	to, err := parseQueryTime(c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid to"))
		return
	}
	events, err := h.audit.ByTimeRange(c.Request.Context(), from, to)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(events))
}

// parseQueryTime tries the local-datetime format every ingress payload uses
// first, then falls back to RFC3339 and a bare date for callers that supply
// a timezone or a day-only range boundary.
func parseQueryTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	layouts := []string{
		"2006-01-02T15:04:05",
		time.RFC3339,
		"2006-01-02",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, errors.New("invalid time format")
}

func (h *Handler) listGeofences(c *gin.Context) {
	geofences, err := h.admin.ListGeofences(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(geofences))
}

func (h *Handler) getGeofence(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid geofence id"))
		return
	}
	geofence, err := h.store.GetGeofence(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(geofence))
}

func (h *Handler) createGeofence(c *gin.Context) {
	geofence, ok := h.bindGeofence(c, nil)
	if !ok {
		return
	}
	if err := h.admin.CreateGeofence(c.Request.Context(), geofence); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse(geofence))
}

func (h *Handler) updateGeofence(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid geofence id"))
		return
	}
	geofence, ok := h.bindGeofence(c, &id)
	if !ok {
		return
	}
	if err := h.admin.UpdateGeofence(c.Request.Context(), geofence); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(geofence))
}

func (h *Handler) bindGeofence(c *gin.Context, id *uuid.UUID) (*model.OfficeGeofence, bool) {
	var body OfficeGeofenceRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return nil, false
	}
	vertices := make([]model.PolygonVertex, len(body.Polygon))
	for i, v := range body.Polygon {
		vertices[i] = model.PolygonVertex{Lat: v.Lat, Lon: v.Lon}
	}
	geofence := &model.OfficeGeofence{
		Name:         body.Name,
		Lat:          body.Lat,
		Lon:          body.Lon,
		RadiusMeters: body.RadiusMeters,
		Shape:        model.GeofenceShape(body.Shape),
		Polygon:      vertices,
	}
	if id != nil {
		geofence.ID = *id
	}
	return geofence, true
}

func (h *Handler) deleteGeofence(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid geofence id"))
		return
	}
	if err := h.admin.DeleteGeofence(c.Request.Context(), id); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) websocket(c *gin.Context) {
	h.bus.ServeWebsocket(c.Writer, c.Request)
}

func (h *Handler) handleError(c *gin.Context, err error) {
	e, ok := err.(*errs.Error)
	if !ok {
		h.log.Error().Err(err).Msg("unclassified handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
		return
	}

	switch e.Kind {
	case errs.Validation, errs.InvalidArgument, errs.AlreadyTerminal:
		c.JSON(http.StatusBadRequest, errorResponse(e.Message))
	case errs.NotFound:
		c.JSON(http.StatusNotFound, errorResponse(e.Message))
	case errs.BatchTooLarge:
		c.JSON(http.StatusRequestEntityTooLarge, errorResponse(e.Message))
	default:
		h.log.Error().Err(err).Str("kind", string(e.Kind)).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}

func successResponse(data interface{}) gin.H {
	return gin.H{"data": data}
}

func errorResponse(message string) gin.H {
	return gin.H{"error": message}
}
