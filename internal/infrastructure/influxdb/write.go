package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// MeasurementPanelSensor is the measurement every panel sample is written to.
const MeasurementPanelSensor = "panel_sensor"

// RecordSample queues one sensor reading. Satisfies entity.Recorder.
//
//	client.RecordSample("hall_panel", "tablet_battery", "%", 87)
func (c *Client) RecordSample(deviceID, entityID, unit string, value float64) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(samplePoint(deviceID, entityID, unit, value, time.Now()))
}

func samplePoint(deviceID, entityID, unit string, value float64, ts time.Time) *write.Point {
	tags := map[string]string{
		"device_id": deviceID,
		"entity_id": entityID,
	}
	if unit != "" {
		tags["unit"] = unit
	}
	return write.NewPoint(
		MeasurementPanelSensor,
		tags,
		map[string]interface{}{
			"value": value,
		},
		ts,
	)
}
