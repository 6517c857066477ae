// Package mqtt connects the climate service to the MQTT broker.
//
// The broker carries both directions of the service's traffic:
//
//	upstream states ─▶ broker ─▶ climated (host.Ingest)
//	climated (StatePublisher) ─▶ broker ─▶ dashboards, automations
//
// The client wraps paho.mqtt.golang with auto-reconnect, subscription
// restore after reconnect, and a retained status on graylogic/system/status
// with a Last Will so consumers see "offline" when the service dies.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	pub := mqtt.NewStatePublisher(client, byte(cfg.MQTT.QoS))
//	platform.AddPublisher(pub)
package mqtt
