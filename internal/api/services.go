package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"

	"github.com/nerrad567/gray-logic-climate/internal/sensor"
)

type addSensorRequest struct {
	HumidityEntityID    string `json:"humidity_entity_id"`
	TemperatureEntityID string `json:"temperature_entity_id"`
}

type addWindowSensorRequest struct {
	IndoorHumidityEntityID     string `json:"indoor_humidity_entity_id"`
	IndoorTemperatureEntityID  string `json:"indoor_temperature_entity_id"`
	OutdoorHumidityEntityID    string `json:"outdoor_humidity_entity_id"`
	OutdoorTemperatureEntityID string `json:"outdoor_temperature_entity_id"`

	// Optional: pin the absolute humidity sensors the recommendation reads.
	IndoorAbsoluteHumidityEntityID  string `json:"indoor_absolute_humidity_entity_id,omitempty"`
	OutdoorAbsoluteHumidityEntityID string `json:"outdoor_absolute_humidity_entity_id,omitempty"`
}

type serviceResponse struct {
	Status   string `json:"status"`
	EntityID string `json:"entity_id,omitempty"`
	Created  *int   `json:"created,omitempty"`
}

// handleAddSensor creates an absolute humidity sensor for an explicit pair.
func (s *Server) handleAddSensor(w http.ResponseWriter, r *http.Request) {
	var req addSensorRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if missing := missingFields(map[string]string{
		"humidity_entity_id":    req.HumidityEntityID,
		"temperature_entity_id": req.TemperatureEntityID,
	}); missing != "" {
		writeBadRequest(w, missing)
		return
	}

	if err := s.engine.AddSensor(r.Context(), req.HumidityEntityID, req.TemperatureEntityID); err != nil {
		s.logger.Info("add_sensor rejected", "humidity", req.HumidityEntityID, "error", err)
		writeDiscoveryError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, serviceResponse{
		Status:   "created",
		EntityID: sensor.AbsoluteHumidityEntityID(req.HumidityEntityID),
	})
}

// handleAddWindowSensor creates a window recommendation sensor.
func (s *Server) handleAddWindowSensor(w http.ResponseWriter, r *http.Request) {
	var req addWindowSensorRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if missing := missingFields(map[string]string{
		"indoor_humidity_entity_id":     req.IndoorHumidityEntityID,
		"indoor_temperature_entity_id":  req.IndoorTemperatureEntityID,
		"outdoor_humidity_entity_id":    req.OutdoorHumidityEntityID,
		"outdoor_temperature_entity_id": req.OutdoorTemperatureEntityID,
	}); missing != "" {
		writeBadRequest(w, missing)
		return
	}

	src := sensor.WindowSources{
		IndoorHumidity:          req.IndoorHumidityEntityID,
		IndoorTemperature:       req.IndoorTemperatureEntityID,
		OutdoorHumidity:         req.OutdoorHumidityEntityID,
		OutdoorTemperature:      req.OutdoorTemperatureEntityID,
		IndoorAbsoluteHumidity:  req.IndoorAbsoluteHumidityEntityID,
		OutdoorAbsoluteHumidity: req.OutdoorAbsoluteHumidityEntityID,
	}
	if err := s.engine.AddWindowSensor(r.Context(), src); err != nil {
		s.logger.Info("add_window_sensor rejected", "indoor_humidity", src.IndoorHumidity, "error", err)
		writeDiscoveryError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, serviceResponse{
		Status:   "created",
		EntityID: sensor.WindowRecommendationEntityID(src.IndoorHumidity),
	})
}

func (s *Server) handleRediscover(w http.ResponseWriter, r *http.Request) {
	n, err := s.engine.Rediscover(r.Context())
	if err != nil {
		writeDiscoveryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, serviceResponse{Status: "ok", Created: &n})
}

func (s *Server) handleReevaluate(w http.ResponseWriter, r *http.Request) {
	n, err := s.engine.ReevaluateWindowSensors(r.Context())
	if err != nil {
		writeDiscoveryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, serviceResponse{Status: "ok", Created: &n})
}

// decodeBody decodes a strict JSON body, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		switch {
		case errors.Is(err, io.EOF):
			writeBadRequest(w, "request body is required")
		default:
			writeBadRequest(w, fmt.Sprintf("invalid JSON body: %v", err))
		}
		return false
	}
	return true
}

// missingFields names the empty required fields, in sorted order.
func missingFields(fields map[string]string) string {
	var missing []string
	for name, v := range fields {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return ""
	}
	slices.Sort(missing)
	return "missing required fields: " + strings.Join(missing, ", ")
}
