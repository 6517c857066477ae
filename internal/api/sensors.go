package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-climate/internal/entity"
	"github.com/nerrad567/gray-logic-climate/internal/sensor"
)

// Sensor kinds used in responses and the kind filter.
const (
	KindAbsoluteHumidity     = "absolute_humidity"
	KindWindowRecommendation = "window_recommendation"
)

// sensorView is one derived sensor with its current state.
type sensorView struct {
	EntityID  string        `json:"entity_id"`
	UniqueID  string        `json:"unique_id"`
	Name      string        `json:"name"`
	Kind      string        `json:"kind"`
	Available bool          `json:"available"`
	State     *entity.State `json:"state,omitempty"`
}

// handleListSensors lists derived sensors, optionally filtered by ?kind=.
func (s *Server) handleListSensors(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	if kind != "" && kind != KindAbsoluteHumidity && kind != KindWindowRecommendation {
		writeBadRequest(w, "kind must be absolute_humidity or window_recommendation")
		return
	}

	views := make([]sensorView, 0)
	for _, e := range s.sensors.Entities() {
		v := s.view(e)
		if kind == "" || v.Kind == kind {
			views = append(views, v)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sensors": views,
		"count":   len(views),
	})
}

func (s *Server) handleGetSensor(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	e, ok := s.findSensor(id)
	if !ok {
		writeNotFound(w, "sensor not found: "+id)
		return
	}
	writeJSON(w, http.StatusOK, s.view(e))
}

func (s *Server) findSensor(id string) (entity.Entity, bool) {
	for _, e := range s.sensors.Entities() {
		if e.EntityID() == id {
			return e, true
		}
	}
	return nil, false
}

// handleSensorHistory lists recorded values of one sensor, newest first.
func (s *Server) handleSensorHistory(w http.ResponseWriter, r *http.Request) {
	if s.historyRepo == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "state history is disabled")
		return
	}
	id := chi.URLParam(r, "id")
	if _, ok := s.findSensor(id); !ok {
		writeNotFound(w, "sensor not found: "+id)
		return
	}
	limit, ok := intParam(w, r.URL.Query().Get("limit"), "limit")
	if !ok {
		return
	}

	entries, err := s.historyRepo.List(r.Context(), id, limit)
	if err != nil {
		s.logger.Error("listing state history", "entity_id", id, "error", err)
		writeInternalError(w, "failed to list state history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entity_id": id,
		"history":   entries,
		"count":     len(entries),
	})
}

// handleStatus reports the discovery engine state.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

func (s *Server) view(e entity.Entity) sensorView {
	v := sensorView{
		EntityID:  e.EntityID(),
		UniqueID:  e.UniqueID(),
		Name:      e.Name(),
		Kind:      sensorKind(e.EntityID()),
		Available: e.Available(),
	}
	if st, ok := s.states.GetState(e.EntityID()); ok {
		v.State = st
	}
	return v
}

func sensorKind(entityID string) string {
	_, obj := entity.SplitID(entityID)
	switch {
	case strings.HasPrefix(obj, sensor.AbsoluteHumidityPrefix):
		return KindAbsoluteHumidity
	case strings.HasPrefix(obj, sensor.WindowRecommendationPrefix):
		return KindWindowRecommendation
	default:
		return ""
	}
}
