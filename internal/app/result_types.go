package app

import (
	"retail-sim/internal/ai"
	"retail-sim/internal/core"
	"retail-sim/internal/report"
)

// SessionResult is returned by NewSession and GetSession.
type SessionResult struct {
	Session *core.GameSession `json:"session"`
	Draft   *core.WeeklyState `json:"draft,omitempty"`
}

// WeekListResult is returned by ListWeeks.
type WeekListResult struct {
	SessionID string              `json:"session_id"`
	Weeks     []*core.WeeklyState `json:"weeks"`
}

// DecisionResult is returned by SubmitDecisions.
type DecisionResult struct {
	Draft *core.WeeklyState `json:"draft"`
}

// DemandPreviewResult is returned by PreviewDemand.
type DemandPreviewResult struct {
	Input     core.DemandInput     `json:"input"`
	Breakdown core.DemandBreakdown `json:"breakdown"`
}

// ReportResult is returned by SeasonReport.
type ReportResult struct {
	Report   *report.SeasonReport `json:"report"`
	Markdown string               `json:"markdown"`
}

// AdviceResult is returned by SuggestDecisions.
type AdviceResult struct {
	Advice    *ai.Advice     `json:"advice"`
	Decisions core.Decisions `json:"decisions"`
}
