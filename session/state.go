package session

import (
	"fmt"
	"strconv"
	"time"

	iface "DetOverlay/interface"
	"DetOverlay/projection"
)

const placeholder = "—"

// State is a snapshot of one viewer session. Every controller operation
// returns a fresh copy.
type State struct {
	Generation    uint64             `json:"generation"`
	FileName      string             `json:"file_name,omitempty"`
	HasFile       bool               `json:"has_file"`
	ImageWidth    int                `json:"image_width"`
	ImageHeight   int                `json:"image_height"`
	SurfaceWidth  int                `json:"surface_width"`
	SurfaceHeight int                `json:"surface_height"`
	Threshold     float64            `json:"threshold"`
	Busy          bool               `json:"busy"`
	Detections    []iface.Detection  `json:"detections"`
	HasResult     bool               `json:"has_result"`
	Count         int                `json:"count"`
	Latency       time.Duration      `json:"latency"`
	Visible       int                `json:"visible"`
	List          []projection.Entry `json:"list"`
	Message       string             `json:"message,omitempty"`
	Raw           string             `json:"raw,omitempty"`
}

// CanPredict is false without a file or while a request is in flight.
func (s State) CanPredict() bool { return s.HasFile && !s.Busy }

func (s State) PredictLabel() string {
	if s.Busy {
		return "Predicting…"
	}
	return "Predict"
}

func (s State) ThresholdText() string { return fmt.Sprintf("%.2f", s.Threshold) }

func (s State) CountText() string {
	if !s.HasResult {
		return placeholder
	}
	return strconv.Itoa(s.Count)
}

func (s State) LatencyText() string {
	if !s.HasResult {
		return placeholder
	}
	return fmt.Sprintf("%d ms", s.Latency.Round(time.Millisecond).Milliseconds())
}

func (s State) clone() State {
	out := s
	out.Detections = append([]iface.Detection(nil), s.Detections...)
	out.List = append([]projection.Entry(nil), s.List...)
	return out
}

// resetResults clears everything a prediction fills in.
func (s *State) resetResults() {
	s.Detections = nil
	s.HasResult = false
	s.Count = 0
	s.Latency = 0
	s.Visible = 0
	s.List = nil
	s.Message = ""
	s.Raw = ""
}
