package iface

// PredictResponse is the body of POST /predict. Both fields may be absent.
type PredictResponse struct {
	Count      int         `json:"count"`
	Detections []Detection `json:"detections"`
}

// Normalize turns an absent or null detections field into an empty slice.
func (r *PredictResponse) Normalize() {
	if r.Detections == nil {
		r.Detections = []Detection{}
	}
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Model     string `json:"model,omitempty"`
	ModelPath string `json:"model_path,omitempty"`
	Status    string `json:"status,omitempty"`
}

// ModelName prefers model and falls back to model_path.
func (h HealthResponse) ModelName() string {
	if h.Model != "" {
		return h.Model
	}
	return h.ModelPath
}
