package iface

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Box is an axis-aligned rectangle in source-image pixels, ordered x1, y1, x2, y2.
type Box [4]float64

func (b Box) X1() float64 { return b[0] }
func (b Box) Y1() float64 { return b[1] }
func (b Box) X2() float64 { return b[2] }
func (b Box) Y2() float64 { return b[3] }

// Detection is one predicted object instance as returned by the inference endpoint.
type Detection struct {
	Box        Box     `json:"box_xyxy"`
	ClassID    int     `json:"class_id"`
	ClassName  *string `json:"class_name,omitempty"`
	Confidence float64 `json:"confidence"`
}

// Name returns class_name when the server sent one, otherwise the class id.
func (d Detection) Name() string {
	if d.ClassName != nil {
		return *d.ClassName
	}
	return strconv.Itoa(d.ClassID)
}

// Label is the overlay caption, "{name} {confidence:.2f}".
func (d Detection) Label() string {
	return fmt.Sprintf("%s %.2f", d.Name(), d.Confidence)
}

var errBoxLength = errors.New("box_xyxy must hold exactly 4 numbers")

// UnmarshalJSON rejects boxes that are not exactly four numbers.
func (b *Box) UnmarshalJSON(data []byte) error {
	var raw []float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 4 {
		return fmt.Errorf("%w: got %d", errBoxLength, len(raw))
	}
	copy(b[:], raw)
	return nil
}
