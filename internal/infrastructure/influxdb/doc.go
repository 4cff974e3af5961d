// Package influxdb optionally records panel sensor samples (battery, storage,
// RAM, uptime) into InfluxDB so their history survives beyond the
// controller's own retention.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // run without history
//	}
//	defer client.Close()
//
//	client.RecordSample("hall_panel", "tablet_battery", "%", 87)
//
// Writes are batched; the batch size and flush interval come from config.
package influxdb
