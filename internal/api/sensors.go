package api

import "context"

const sensorsPath = "/api/sensors"

// SensorData is one stored sensor reading.
type SensorData struct {
	ID              int64   `json:"id"`
	MachineID       int64   `json:"machine_id"`
	AirTemp         float64 `json:"air_temp"`
	ProcessTemp     float64 `json:"process_temp"`
	RotationalSpeed float64 `json:"rotational_speed"`
	Torque          float64 `json:"torque"`
	ToolWear        float64 `json:"tool_wear"`
	Timestamp       Time    `json:"timestamp"`
}

// SensorReading is the payload for recording sensor data.
type SensorReading struct {
	MachineID       int64   `json:"machineId"`
	AirTemp         float64 `json:"airTemp"`
	ProcessTemp     float64 `json:"processTemp"`
	RotationalSpeed float64 `json:"rotationalSpeed"`
	Torque          float64 `json:"torque"`
	ToolWear        float64 `json:"toolWear"`
}

// SensorService records and reads sensor data.
type SensorService struct {
	d Doer
}

// NewSensorService creates a SensorService.
func NewSensorService(d Doer) *SensorService {
	return &SensorService{d: d}
}

// Create records a reading and returns its id.
func (s *SensorService) Create(ctx context.Context, r SensorReading) (int64, error) {
	var out struct {
		SensorDataID int64 `json:"sensorDataId"`
	}
	if err := post(ctx, s.d, sensorsPath, r, &out); err != nil {
		return 0, err
	}
	return out.SensorDataID, nil
}

// History returns past readings for machineID; limit <= 0 means all.
func (s *SensorService) History(ctx context.Context, machineID int64, limit int) ([]SensorData, error) {
	var out struct {
		History []SensorData `json:"sensorDataHistory"`
	}
	if err := get(ctx, s.d, withLimit(idPath(sensorsPath, machineID, "history"), limit), &out); err != nil {
		return nil, err
	}
	return out.History, nil
}

// Latest returns the most recent reading for machineID.
func (s *SensorService) Latest(ctx context.Context, machineID int64) (*SensorData, error) {
	var out struct {
		Latest SensorData `json:"latestSensorData"`
	}
	if err := get(ctx, s.d, idPath(sensorsPath, machineID, "latest"), &out); err != nil {
		return nil, err
	}
	return &out.Latest, nil
}
