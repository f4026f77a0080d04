package scheduling

import (
	"regexp"
	"strings"

	"github.com/anonsched/scheduler/internal/model"
)

var clockPattern = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)

// WindowInput is a candidate availability window as submitted by a client.
type WindowInput struct {
	DayOfWeek int    `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// RejectReason explains why a window was dropped.
type RejectReason string

const (
	RejectInvalidDay        RejectReason = "invalid_day"
	RejectInvalidStartTime  RejectReason = "invalid_start_time"
	RejectInvalidEndTime    RejectReason = "invalid_end_time"
	RejectStartNotBeforeEnd RejectReason = "start_not_before_end"
)

// RejectedWindow is a dropped input kept for diagnostics.
type RejectedWindow struct {
	Index  int          `json:"index"`
	Input  WindowInput  `json:"input"`
	Reason RejectReason `json:"reason"`
}

// NormalizeResult holds the outcome of NormalizeWindows.
type NormalizeResult struct {
	Valid    []model.AvailabilityWindow `json:"valid"`
	Rejected []RejectedWindow           `json:"rejected"`
}

// NormalizeWindows trims and validates candidate windows.
// Invalid windows are dropped, not reported as errors; valid ones keep input order.
func NormalizeWindows(in []WindowInput) NormalizeResult {
	res := NormalizeResult{
		Valid:    make([]model.AvailabilityWindow, 0, len(in)),
		Rejected: []RejectedWindow{},
	}

	for i, w := range in {
		w.StartTime = strings.TrimSpace(w.StartTime)
		w.EndTime = strings.TrimSpace(w.EndTime)

		if reason, ok := validateWindow(w); !ok {
			res.Rejected = append(res.Rejected, RejectedWindow{Index: i, Input: w, Reason: reason})
			continue
		}

		res.Valid = append(res.Valid, model.AvailabilityWindow{
			DayOfWeek: w.DayOfWeek,
			StartTime: w.StartTime,
			EndTime:   w.EndTime,
		})
	}

	return res
}

func validateWindow(w WindowInput) (RejectReason, bool) {
	switch {
	case w.DayOfWeek < 0 || w.DayOfWeek > 6:
		return RejectInvalidDay, false
	case !clockPattern.MatchString(w.StartTime):
		return RejectInvalidStartTime, false
	case !clockPattern.MatchString(w.EndTime):
		return RejectInvalidEndTime, false
	case w.StartTime >= w.EndTime:
		return RejectStartNotBeforeEnd, false
	}
	return "", true
}
