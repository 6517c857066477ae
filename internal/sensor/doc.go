// Package sensor implements the derived climate entities.
//
// Two kinds exist:
//
//   - AbsoluteHumiditySensor: sensor.absolute_humidity_<object_id>, computed
//     from one humidity/temperature pair.
//   - WindowRecommendationSensor: sensor.window_recommendation_<object_id>,
//     comparing an indoor pair with the outdoor reference pair.
//
// Sensors hold source entity IDs only. Every Update re-reads the live states
// through entity.StateReader, so a source that disappears simply makes the
// sensor unavailable until it returns.
//
// Update failures are classified (ErrMissingData, ErrOutOfRange, ErrParse)
// and never escape the sensor's own refresh. Missing or out-of-range data
// keeps the last good value; unparseable data clears it.
package sensor
