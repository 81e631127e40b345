// Package workflow generates and tracks the response checklist of a dispute.
package workflow

import (
	"strings"
	"unicode"

	"chargeback/internal/models"
)

// TaskTemplate is one fixed task of a stage.
type TaskTemplate struct {
	Title    string
	Priority string
}

// Stage is one step of the response workflow.
type Stage struct {
	Name  string
	Tasks []TaskTemplate
}

// Stage indexes
const (
	StageTriage = iota
	StageEvidence
	StageCoverLetter
	StageReview
	StageSubmission
	StageAwaitingDecision
	StageClosed
)

// Stages is the ordered workflow.
var Stages = []Stage{
	{Name: "Triage", Tasks: []TaskTemplate{
		{"Review chargeback notification", models.PriorityHigh},
		{"Verify reason code and response deadline", models.PriorityHigh},
		{"Decide whether to fight or accept", models.PriorityHigh},
	}},
	{Name: "Evidence Collection", Tasks: []TaskTemplate{
		{"Gather transaction records", models.PriorityHigh},
		{"Collect proof of delivery or service", models.PriorityMedium},
		{"Collect customer communication", models.PriorityMedium},
	}},
	{Name: "Cover Letter", Tasks: []TaskTemplate{
		{"Draft cover letter", models.PriorityHigh},
		{"Attach supporting evidence", models.PriorityMedium},
	}},
	{Name: "Review", Tasks: []TaskTemplate{
		{"Internal review of response package", models.PriorityHigh},
	}},
	{Name: "Submission", Tasks: []TaskTemplate{
		{"Submit representment to processor", models.PriorityHigh},
		{"Record submission confirmation", models.PriorityMedium},
	}},
	{Name: "Awaiting Decision", Tasks: []TaskTemplate{
		{"Monitor for issuer decision", models.PriorityLow},
	}},
	{Name: "Closed", Tasks: []TaskTemplate{
		{"Record final outcome", models.PriorityMedium},
		{"Update recovered amount", models.PriorityLow},
	}},
}

// DefaultCoverLetterMinLength is the number of non-space characters a cover
// letter needs before it counts as drafted.
const DefaultCoverLetterMinLength = 50

func nonSpaceLen(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

// InferStage projects a stage index from the dispute's own fields. The
// result can disagree with the checklist; see ChecklistStage.
func InferStage(d *models.Dispute, coverLetterMin int) int {
	if coverLetterMin <= 0 {
		coverLetterMin = DefaultCoverLetterMinLength
	}
	switch {
	case d.IsTerminal():
		return StageClosed
	case d.Status == models.DisputeStatusSubmitted || d.Status == models.DisputeStatusAwaitingDecision:
		return StageAwaitingDecision
	case strings.TrimSpace(d.FightDecision) == "":
		return StageTriage
	case nonSpaceLen(d.CoverLetter) >= coverLetterMin:
		return StageReview
	default:
		return StageEvidence
	}
}

// ChecklistStage returns the earliest stage that still has an unfinished
// task, StageClosed when every task is done, or nil without tasks.
func ChecklistStage(tasks []models.WorkflowTask) *int {
	if len(tasks) == 0 {
		return nil
	}
	stage := StageClosed
	for i := range tasks {
		if !tasks[i].IsDone() && tasks[i].StageIndex < stage {
			stage = tasks[i].StageIndex
		}
	}
	return &stage
}
