// internal/publisher/payload.go
package publisher

import "encoding/json"

// Field order is kept stable for consumers that do not parse JSON.

type measurement struct {
	Value      string `json:"value"`
	Unit       string `json:"unit"`
	Comment    string `json:"comment"`
	LastUpdate string `json:"lastUpdate"`
}

type healthMetric struct {
	Value   string `json:"value"`
	Unit    string `json:"unit"`
	Comment string `json:"comment"`
	Uptime  string `json:"uptime"`
}

type oneShot struct {
	Value   string `json:"value"`
	Comment string `json:"comment"`
}

// MeasurementPayload renders {"value","unit","comment","lastUpdate"}.
func MeasurementPayload(value, unit, name, lastUpdate string) []byte {
	b, _ := json.Marshal(measurement{Value: value, Unit: unit, Comment: name, LastUpdate: lastUpdate})
	return b
}

// HealthPayload renders {"value","unit","comment","uptime"}.
func HealthPayload(value, unit, name, uptime string) []byte {
	b, _ := json.Marshal(healthMetric{Value: value, Unit: unit, Comment: name, Uptime: uptime})
	return b
}

// OneShotPayload renders {"value","comment"}.
func OneShotPayload(value, name string) []byte {
	b, _ := json.Marshal(oneShot{Value: value, Comment: name})
	return b
}
