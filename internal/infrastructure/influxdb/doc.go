// Package influxdb exports derived climate sensor states to InfluxDB v2.
//
// The client wraps influxdb-client-go's non-blocking write API. It plugs
// into the host platform as a state publisher, so every state the platform
// writes for a derived sensor becomes a point:
//
//	absolute_humidity,entity_id=…,site=…,source_humidity=…  value=9.41
//	window_recommendation,entity_id=…,site=…  recommendation="too wet",temperature_difference=-3.5
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB, cfg.Site.ID)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//	platform.AddPublisher(client)
//
// Writes are batched per batch_size and flush_interval. Failures are
// delivered to the SetOnError callback.
package influxdb
