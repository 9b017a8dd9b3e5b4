// ABOUTME: Diagnostics endpoints: run, latest, history, and bulk runs
// ABOUTME: Diagnostic results come from the remote failure-prediction model

package api

import "context"

const diagnosticsPath = "/api/diagnostics"

// FailurePrediction is the model's binary verdict.
type FailurePrediction struct {
	WillFail   bool    `json:"will_fail"`
	Confidence float64 `json:"confidence"`
}

// FailureTypeProbabilities holds per-failure-mode probabilities: tool wear
// (TWF), heat dissipation (HDF), power (PWF), overstrain (OSF), and random
// (RNF).
type FailureTypeProbabilities struct {
	TWF float64 `json:"TWF"`
	HDF float64 `json:"HDF"`
	PWF float64 `json:"PWF"`
	OSF float64 `json:"OSF"`
	RNF float64 `json:"RNF"`
}

// FeatureContributions attributes the risk score to sensor features.
type FeatureContributions struct {
	AirTemperature     float64 `json:"air_temperature"`
	ProcessTemperature float64 `json:"process_temperature"`
	RotationalSpeed    float64 `json:"rotational_speed"`
	Torque             float64 `json:"torque"`
	ToolWear           float64 `json:"tool_wear"`
}

// Diagnostic is one model run for a machine.
type Diagnostic struct {
	ID                       int64                    `json:"id"`
	MachineID                int64                    `json:"machine_id"`
	Timestamp                Time                     `json:"timestamp"`
	RiskScore                float64                  `json:"risk_score"`
	FailurePrediction        FailurePrediction        `json:"failure_prediction"`
	FailureTypeProbabilities FailureTypeProbabilities `json:"failure_type_probabilities"`
	MostLikelyFailure        *string                  `json:"most_likely_failure"`
	RecommendedAction        *string                  `json:"recommended_action"`
	FeatureContributions     *FeatureContributions    `json:"feature_contributions,omitempty"`
}

// BulkResult is the outcome for one machine of a bulk run.
type BulkResult struct {
	MachineID     string `json:"machineId"`
	DiagnosticsID int64  `json:"diagnosticsId,omitempty"`
	Error         string `json:"error,omitempty"`
	Success       bool   `json:"success"`
}

// BulkDiagnostics summarizes a bulk run across all machines.
type BulkDiagnostics struct {
	Successful   []BulkResult `json:"successful"`
	Failed       []BulkResult `json:"failed"`
	Total        int          `json:"total"`
	SuccessCount int          `json:"successCount"`
	FailureCount int          `json:"failureCount"`
}

// DiagnosticService runs and reads machine diagnostics.
type DiagnosticService struct {
	d Doer
}

// NewDiagnosticService creates a DiagnosticService.
func NewDiagnosticService(d Doer) *DiagnosticService {
	return &DiagnosticService{d: d}
}

// Run triggers a diagnostic for machineID and returns the new diagnostic id.
func (s *DiagnosticService) Run(ctx context.Context, machineID int64) (int64, error) {
	var out struct {
		DiagnosticsID int64 `json:"diagnosticsId"`
	}
	if err := post(ctx, s.d, idPath(diagnosticsPath, machineID), nil, &out); err != nil {
		return 0, err
	}
	return out.DiagnosticsID, nil
}

// Latest returns the most recent diagnostic for machineID.
func (s *DiagnosticService) Latest(ctx context.Context, machineID int64) (*Diagnostic, error) {
	var out struct {
		Latest Diagnostic `json:"latestDiagnosticData"`
	}
	if err := get(ctx, s.d, idPath(diagnosticsPath, machineID, "latest"), &out); err != nil {
		return nil, err
	}
	return &out.Latest, nil
}

// History returns past diagnostics for machineID; limit <= 0 means all.
func (s *DiagnosticService) History(ctx context.Context, machineID int64, limit int) ([]Diagnostic, error) {
	var out struct {
		Diagnostics []Diagnostic `json:"diagnostics"`
	}
	if err := get(ctx, s.d, withLimit(idPath(diagnosticsPath, machineID, "history"), limit), &out); err != nil {
		return nil, err
	}
	return out.Diagnostics, nil
}

// AllLatest returns the latest diagnostic of every machine.
func (s *DiagnosticService) AllLatest(ctx context.Context) ([]Diagnostic, error) {
	var out struct {
		Diagnostics []Diagnostic `json:"diagnostics"`
	}
	if err := get(ctx, s.d, diagnosticsPath, &out); err != nil {
		return nil, err
	}
	return out.Diagnostics, nil
}

// Bulk runs diagnostics for every machine.
func (s *DiagnosticService) Bulk(ctx context.Context) (*BulkDiagnostics, error) {
	var out BulkDiagnostics
	if err := post(ctx, s.d, diagnosticsPath+"/bulk", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
