package dto

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/anonsched/scheduler/internal/model"
	"github.com/anonsched/scheduler/internal/scheduling"
)

// InvalidDay is what FlexDay decodes to when the input is not an integral number.
// It is out of range, so the normalizer drops the window.
const InvalidDay FlexDay = -1

// FlexDay is a day of week that accepts JSON numbers and numeric strings.
type FlexDay int

// UnmarshalJSON coerces integral numbers and numeric strings, and null to 0.
// Anything else becomes InvalidDay instead of failing the whole request.
func (d *FlexDay) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		*d = InvalidDay
		return nil
	}

	var raw string
	switch x := v.(type) {
	case nil:
		*d = 0
		return nil
	case json.Number:
		raw = x.String()
	case string:
		raw = strings.TrimSpace(x)
	default:
		*d = InvalidDay
		return nil
	}

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		*d = InvalidDay
		return nil
	}
	*d = FlexDay(f)
	return nil
}

// WindowRequest is one availability window as submitted by a client.
type WindowRequest struct {
	DayOfWeek FlexDay `json:"day_of_week"`
	StartTime string  `json:"start_time"`
	EndTime   string  `json:"end_time"`
}

// UnmarshalJSON leaves DayOfWeek at InvalidDay when the key is absent.
func (w *WindowRequest) UnmarshalJSON(b []byte) error {
	type plain WindowRequest
	p := plain{DayOfWeek: InvalidDay}
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*w = WindowRequest(p)
	return nil
}

// UpdateAvailabilityRequest represents the request body for updating availability.
type UpdateAvailabilityRequest struct {
	ShareAvailability   *bool            `json:"share_availability,omitempty"`
	AvailabilityWindows *[]WindowRequest `json:"availability_windows,omitempty"`
}

// WindowInputs converts the submitted windows, or returns nil when omitted.
func (r *UpdateAvailabilityRequest) WindowInputs() *[]scheduling.WindowInput {
	if r.AvailabilityWindows == nil {
		return nil
	}
	in := make([]scheduling.WindowInput, 0, len(*r.AvailabilityWindows))
	for _, w := range *r.AvailabilityWindows {
		in = append(in, scheduling.WindowInput{
			DayOfWeek: int(w.DayOfWeek),
			StartTime: w.StartTime,
			EndTime:   w.EndTime,
		})
	}
	return &in
}

// AvailabilityResponse is a user's availability profile.
type AvailabilityResponse struct {
	Message             string                      `json:"message,omitempty"`
	ShareAvailability   bool                        `json:"share_availability"`
	AvailabilityWindows []model.AvailabilityWindow  `json:"availability_windows"`
	Rejected            []scheduling.RejectedWindow `json:"rejected,omitempty"`
}

// ToAvailabilityResponse converts a profile.
func ToAvailabilityResponse(p model.AvailabilityProfile) *AvailabilityResponse {
	windows := p.Windows
	if windows == nil {
		windows = []model.AvailabilityWindow{}
	}
	return &AvailabilityResponse{
		ShareAvailability:   p.ShareAvailability,
		AvailabilityWindows: windows,
	}
}
