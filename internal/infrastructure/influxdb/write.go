package influxdb

import (
	"context"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/gray-logic-climate/internal/entity"
	"github.com/nerrad567/gray-logic-climate/internal/sensor"
)

// Measurement names.
const (
	MeasurementAbsoluteHumidity     = "absolute_humidity"
	MeasurementWindowRecommendation = "window_recommendation"
)

// PublishState queues a point for st. States without a reading and
// entities that are not derived climate sensors are skipped.
func (c *Client) PublishState(ctx context.Context, st *entity.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	p, ok := c.pointFromState(st)
	if !ok {
		return nil
	}
	c.writer.WritePoint(p)
	return nil
}

// WritePoint writes a custom point with the site tag added.
//
// Example:
//
//	client.WritePoint("discovery",
//	    map[string]string{"kind": "window_recommendation"},
//	    map[string]any{"created": 2}, time.Time{})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any, ts time.Time) {
	if !c.IsConnected() {
		return
	}
	if ts.IsZero() {
		ts = c.now()
	}
	c.writer.WritePoint(write.NewPoint(measurement, c.withSite(tags), fields, ts))
}

func (c *Client) pointFromState(st *entity.State) (*write.Point, bool) {
	if st == nil || !st.IsValid() {
		return nil, false
	}
	_, obj := entity.SplitID(st.EntityID)
	ts := st.LastUpdated
	if ts.IsZero() {
		ts = c.now()
	}

	switch {
	case strings.HasPrefix(obj, sensor.AbsoluteHumidityPrefix):
		v, err := st.Float()
		if err != nil {
			return nil, false
		}
		tags := c.withSite(map[string]string{"entity_id": st.EntityID})
		addTag(tags, "source_humidity", st.Attr(entity.AttrSourceHumidity))
		addTag(tags, "source_temperature", st.Attr(entity.AttrSourceTemperature))
		return write.NewPoint(MeasurementAbsoluteHumidity, tags, map[string]any{"value": v}, ts), true

	case strings.HasPrefix(obj, sensor.WindowRecommendationPrefix):
		tags := c.withSite(map[string]string{"entity_id": st.EntityID})
		addTag(tags, "indoor_humidity", st.Attr("indoor_humidity"))
		fields := map[string]any{"recommendation": st.Value}
		if v, ok := leadingFloat(st.Attr("temperature_difference")); ok {
			fields["temperature_difference"] = v
		}
		if v, ok := leadingFloat(st.Attr("absolute_humidity_difference")); ok {
			fields["absolute_humidity_difference"] = v
		}
		return write.NewPoint(MeasurementWindowRecommendation, tags, fields, ts), true
	}
	return nil, false
}

func (c *Client) withSite(tags map[string]string) map[string]string {
	out := make(map[string]string, len(tags)+1)
	for k, v := range tags {
		out[k] = v
	}
	addTag(out, "site", c.site)
	return out
}

func addTag(tags map[string]string, key, value string) {
	if value != "" {
		tags[key] = value
	}
}

// leadingFloat parses "+1.2°C" or "-0.35 g/m³" as a number.
func leadingFloat(s string) (float64, bool) {
	s = strings.TrimRightFunc(s, func(r rune) bool { return !unicode.IsDigit(r) })
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	return v, err == nil
}
