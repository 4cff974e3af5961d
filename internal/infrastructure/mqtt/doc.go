// Package mqtt provides MQTT client connectivity for the discovery bridge.
//
// This package manages:
//   - Background connection to the broker with auto-reconnect
//   - Publishing with QoS and a payload size limit
//   - Subscriptions that survive reconnects
//   - An availability topic backed by Last Will and Testament
//   - The topic layout for control, status and discovery documents
//
// # Usage
//
//	topics := mqtt.Topics{Namespace: "hadashboard", DiscoveryPrefix: "homeassistant", DeviceID: id}
//	client := mqtt.New(cfg.MQTT, topics.Will())
//	client.SetOnConnect(bridge.HandleConnect)
//	client.Start()
//	defer client.Close()
//
// Start returns immediately. Publishes made while the broker is unreachable
// fail with ErrNotConnected and are not queued.
package mqtt
