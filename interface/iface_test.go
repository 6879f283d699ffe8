package iface

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectionName(t *testing.T) {
	cat := "cat"
	assert.Equal(t, "cat", Detection{ClassID: 15, ClassName: &cat}.Name())
	assert.Equal(t, "7", Detection{ClassID: 7}.Name())

	empty := ""
	assert.Equal(t, "", Detection{ClassID: 3, ClassName: &empty}.Name())
}

func TestDetectionLabel(t *testing.T) {
	cat := "cat"
	assert.Equal(t, "cat 0.91", Detection{ClassName: &cat, Confidence: 0.912}.Label())
	assert.Equal(t, "2 0.50", Detection{ClassID: 2, Confidence: 0.5}.Label())
}

func TestBoxUnmarshal(t *testing.T) {
	var d Detection
	require.NoError(t, json.Unmarshal([]byte(`{"box_xyxy":[100,200,200,250],"class_id":1,"confidence":0.4}`), &d))
	assert.Equal(t, Box{100, 200, 200, 250}, d.Box)
	assert.Equal(t, 100.0, d.Box.X1())
	assert.Equal(t, 250.0, d.Box.Y2())
	assert.Nil(t, d.ClassName)

	err := json.Unmarshal([]byte(`{"box_xyxy":[1,2,3]}`), &d)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errBoxLength))

	assert.Error(t, json.Unmarshal([]byte(`{"box_xyxy":"nope"}`), &d))
}

func TestPredictResponseNormalize(t *testing.T) {
	var r PredictResponse
	require.NoError(t, json.Unmarshal([]byte(`{}`), &r))
	r.Normalize()
	assert.NotNil(t, r.Detections)
	assert.Empty(t, r.Detections)
	assert.Equal(t, 0, r.Count)
}

func TestHealthModelName(t *testing.T) {
	assert.Equal(t, "yolo", HealthResponse{Model: "yolo", ModelPath: "/w/best.pt"}.ModelName())
	assert.Equal(t, "/w/best.pt", HealthResponse{ModelPath: "/w/best.pt"}.ModelName())
	assert.Equal(t, "", HealthResponse{}.ModelName())
}
