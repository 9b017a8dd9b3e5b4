// ABOUTME: Fake machine, diagnostics, sensor, user, and notification handlers
// ABOUTME: Resource payload shapes follow the Predictera backend envelopes

package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// Machine mirrors the backend machine payload.
type Machine struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// Diagnostic mirrors the backend diagnostic payload.
type Diagnostic struct {
	ID                       int64              `json:"id"`
	MachineID                int64              `json:"machine_id"`
	Timestamp                time.Time          `json:"timestamp"`
	RiskScore                float64            `json:"risk_score"`
	FailurePrediction        map[string]any     `json:"failure_prediction"`
	FailureTypeProbabilities map[string]float64 `json:"failure_type_probabilities"`
	MostLikelyFailure        *string            `json:"most_likely_failure"`
	RecommendedAction        *string            `json:"recommended_action"`
}

// SensorData mirrors the backend sensor reading payload.
type SensorData struct {
	ID              int64     `json:"id"`
	MachineID       int64     `json:"machine_id"`
	AirTemp         float64   `json:"air_temp"`
	ProcessTemp     float64   `json:"process_temp"`
	RotationalSpeed float64   `json:"rotational_speed"`
	Torque          float64   `json:"torque"`
	ToolWear        float64   `json:"tool_wear"`
	Timestamp       time.Time `json:"timestamp"`
}

// User mirrors the backend user payload.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Fullname string `json:"fullname"`
	Role     string `json:"role"`
}

// Notification mirrors the backend notification payload.
type Notification struct {
	ID          string `json:"id"`
	MachineName string `json:"machineName"`
	Message     string `json:"message"`
	Level       string `json:"level"`
	Time        string `json:"time"`
}

// AddMachine seeds a machine and returns it.
func (s *Server) AddMachine(name, typ string) Machine {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := Machine{ID: s.nextIDLocked(), Name: name, Type: typ, Timestamp: time.Now().UTC()}
	s.machines = append(s.machines, m)
	return m
}

// AddNotification seeds a notification and returns its id.
func (s *Server) AddNotification(machineName, message, level string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addNotificationLocked(machineName, message, level)
}

func (s *Server) addNotificationLocked(machineName, message, level string) string {
	n := Notification{
		ID:          strconv.FormatInt(s.nextIDLocked(), 10),
		MachineName: machineName,
		Message:     message,
		Level:       level,
		Time:        time.Now().UTC().Format(time.RFC3339),
	}
	s.notifications = append(s.notifications, n)
	return n.ID
}

// DiagnosticCount returns how many diagnostics have been recorded.
func (s *Server) DiagnosticCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.diagnostics)
}

func idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

func limitParam(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}

func (s *Server) machineIndexLocked(id int64) int {
	for i, m := range s.machines {
		if m.ID == id {
			return i
		}
	}
	return -1
}

// Machines

type machineBody struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

func decodeMachine(w http.ResponseWriter, r *http.Request) (machineBody, bool) {
	var body machineBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name == "" || body.Type == "" {
		writeError(w, http.StatusBadRequest, "name and type are required")
		return body, false
	}
	return body, true
}

func (s *Server) handleListMachines(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeData(w, http.StatusOK, map[string]any{"machines": append([]Machine{}, s.machines...)})
}

func (s *Server) handleCreateMachine(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeMachine(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m := Machine{ID: s.nextIDLocked(), Name: body.Name, Type: body.Type, Timestamp: time.Now().UTC()}
	s.machines = append(s.machines, m)
	writeMessage(w, http.StatusCreated, "machine added", map[string]any{"machineId": m.ID})
}

func (s *Server) handleGetMachine(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.machineIndexLocked(id)
	if i < 0 {
		writeError(w, http.StatusNotFound, "machine not found")
		return
	}
	writeData(w, http.StatusOK, map[string]any{"machine": s.machines[i]})
}

func (s *Server) handleUpdateMachine(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	body, ok := decodeMachine(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.machineIndexLocked(id)
	if i < 0 {
		writeError(w, http.StatusNotFound, "machine not found")
		return
	}
	s.machines[i].Name = body.Name
	s.machines[i].Type = body.Type
	writeMessage(w, http.StatusOK, "machine updated", nil)
}

func (s *Server) handleDeleteMachine(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.machineIndexLocked(id)
	if i < 0 {
		writeError(w, http.StatusNotFound, "machine not found")
		return
	}
	s.machines = append(s.machines[:i], s.machines[i+1:]...)
	writeMessage(w, http.StatusOK, "machine deleted", nil)
}

// Diagnostics

func (s *Server) runDiagnosticLocked(machineID int64) Diagnostic {
	failure := "TWF"
	action := "Inspect tool wear"
	d := Diagnostic{
		ID:                       s.nextIDLocked(),
		MachineID:                machineID,
		Timestamp:                time.Now().UTC(),
		RiskScore:                0.42,
		FailurePrediction:        map[string]any{"will_fail": false, "confidence": 0.58},
		FailureTypeProbabilities: map[string]float64{"TWF": 0.3, "HDF": 0.05, "PWF": 0.03, "OSF": 0.02, "RNF": 0.02},
		MostLikelyFailure:        &failure,
		RecommendedAction:        &action,
	}
	s.diagnostics = append(s.diagnostics, d)
	return d
}

func (s *Server) diagnosticsForLocked(machineID int64) []Diagnostic {
	var out []Diagnostic
	for _, d := range s.diagnostics {
		if d.MachineID == machineID {
			out = append(out, d)
		}
	}
	return out
}

func (s *Server) handleRunDiagnostics(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "machineId")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.machineIndexLocked(id) < 0 {
		writeError(w, http.StatusNotFound, "machine not found")
		return
	}
	d := s.runDiagnosticLocked(id)
	writeMessage(w, http.StatusCreated, "diagnostics added", map[string]any{"diagnosticsId": d.ID})
}

func (s *Server) handleLatestDiagnostic(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "machineId")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ds := s.diagnosticsForLocked(id)
	if len(ds) == 0 {
		writeError(w, http.StatusNotFound, "diagnostics not found")
		return
	}
	writeData(w, http.StatusOK, map[string]any{"latestDiagnosticData": ds[len(ds)-1]})
}

func (s *Server) handleDiagnosticHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "machineId")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ds := s.diagnosticsForLocked(id)
	if limit := limitParam(r); limit > 0 && limit < len(ds) {
		ds = ds[len(ds)-limit:]
	}
	writeData(w, http.StatusOK, map[string]any{"diagnostics": append([]Diagnostic{}, ds...)})
}

func (s *Server) handleAllLatestDiagnostics(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []Diagnostic{}
	for _, m := range s.machines {
		if ds := s.diagnosticsForLocked(m.ID); len(ds) > 0 {
			out = append(out, ds[len(ds)-1])
		}
	}
	writeData(w, http.StatusOK, map[string]any{"diagnostics": out})
}

type bulkResult struct {
	MachineID     string `json:"machineId"`
	DiagnosticsID int64  `json:"diagnosticsId,omitempty"`
	Error         string `json:"error,omitempty"`
	Success       bool   `json:"success"`
}

func (s *Server) handleBulkDiagnostics(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	successful := []bulkResult{}
	for _, m := range s.machines {
		d := s.runDiagnosticLocked(m.ID)
		successful = append(successful, bulkResult{MachineID: strconv.FormatInt(m.ID, 10), DiagnosticsID: d.ID, Success: true})
	}
	writeMessage(w, http.StatusOK, fmt.Sprintf("bulk diagnostics finished for %d machines", len(successful)), map[string]any{
		"successful":   successful,
		"failed":       []bulkResult{},
		"total":        len(successful),
		"successCount": len(successful),
		"failureCount": 0,
	})
}

// Sensors

type sensorBody struct {
	MachineID       int64   `json:"machineId"`
	AirTemp         float64 `json:"airTemp"`
	ProcessTemp     float64 `json:"processTemp"`
	RotationalSpeed float64 `json:"rotationalSpeed"`
	Torque          float64 `json:"torque"`
	ToolWear        float64 `json:"toolWear"`
}

func (s *Server) handleCreateSensorData(w http.ResponseWriter, r *http.Request) {
	var body sensorBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.MachineID == 0 {
		writeError(w, http.StatusBadRequest, "machineId is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.machineIndexLocked(body.MachineID) < 0 {
		writeError(w, http.StatusNotFound, "machine not found")
		return
	}
	d := SensorData{
		ID:              s.nextIDLocked(),
		MachineID:       body.MachineID,
		AirTemp:         body.AirTemp,
		ProcessTemp:     body.ProcessTemp,
		RotationalSpeed: body.RotationalSpeed,
		Torque:          body.Torque,
		ToolWear:        body.ToolWear,
		Timestamp:       time.Now().UTC(),
	}
	s.sensors = append(s.sensors, d)
	writeMessage(w, http.StatusCreated, "sensor data added", map[string]any{"sensorDataId": d.ID})
}

func (s *Server) sensorsForLocked(machineID int64) []SensorData {
	var out []SensorData
	for _, d := range s.sensors {
		if d.MachineID == machineID {
			out = append(out, d)
		}
	}
	return out
}

func (s *Server) handleSensorHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "machineId")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ds := s.sensorsForLocked(id)
	if limit := limitParam(r); limit > 0 && limit < len(ds) {
		ds = ds[len(ds)-limit:]
	}
	writeData(w, http.StatusOK, map[string]any{"sensorDataHistory": append([]SensorData{}, ds...)})
}

func (s *Server) handleLatestSensorData(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "machineId")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ds := s.sensorsForLocked(id)
	if len(ds) == 0 {
		writeError(w, http.StatusNotFound, "sensor data not found")
		return
	}
	writeData(w, http.StatusOK, map[string]any{"latestSensorData": ds[len(ds)-1]})
}

// Users

type userBody struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Fullname string `json:"fullname"`
	Role     string `json:"role"`
}

func (s *Server) userIndexLocked(id int64) int {
	for i, u := range s.appUsers {
		if u.ID == id {
			return i
		}
	}
	return -1
}

func (s *Server) handleListUsers(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeData(w, http.StatusOK, map[string]any{"users": append([]User{}, s.appUsers...)})
}

func (s *Server) handleRegisterUser(w http.ResponseWriter, r *http.Request) {
	var body userBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Username == "" || body.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[body.Username]; exists {
		writeError(w, http.StatusBadRequest, "username already taken")
		return
	}
	u := User{ID: s.nextIDLocked(), Username: body.Username, Fullname: body.Fullname, Role: body.Role}
	s.users[body.Username] = body.Password
	s.appUsers = append(s.appUsers, u)
	writeMessage(w, http.StatusCreated, "user added", map[string]any{"userId": u.ID})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.userIndexLocked(id)
	if i < 0 {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeData(w, http.StatusOK, map[string]any{"user": s.appUsers[i]})
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.userIndexLocked(id)
	if i < 0 {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	delete(s.users, s.appUsers[i].Username)
	s.appUsers = append(s.appUsers[:i], s.appUsers[i+1:]...)
	writeMessage(w, http.StatusOK, "user deleted", nil)
}

// Notifications

type notificationBody struct {
	MachineName string `json:"machineName"`
	Message     string `json:"message"`
	Level       string `json:"level"`
}

func (s *Server) handleListNotifications(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeData(w, http.StatusOK, map[string]any{"notifications": append([]Notification{}, s.notifications...)})
}

func (s *Server) handleCreateNotification(w http.ResponseWriter, r *http.Request) {
	var body notificationBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.addNotificationLocked(body.MachineName, body.Message, body.Level)
	writeMessage(w, http.StatusCreated, "notification added", map[string]any{"notificationId": id})
}

func (s *Server) handleDeleteNotification(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, n := range s.notifications {
		if n.ID == id {
			s.notifications = append(s.notifications[:i], s.notifications[i+1:]...)
			writeMessage(w, http.StatusOK, "notification deleted", nil)
			return
		}
	}
	writeError(w, http.StatusNotFound, "notification not found")
}
