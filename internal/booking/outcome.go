package booking

import "strings"

// OutcomeInput carries everything the classifier may consider. StageName is
// the CRM pipeline-stage display name when known; the three booleans come
// from a post-call form submission.
type OutcomeInput struct {
	StageName string

	// HasBooleans is false when no form was submitted, in which case the
	// boolean triple is meaningless and only the stage name can classify.
	HasBooleans bool
	LeadShowed  bool
	OfferMade   bool
	DealClosed  bool
}

// OutcomeResult is a derived outcome plus the call status it implies.
type OutcomeResult struct {
	Outcome EventOutcome
	Status  CallStatus

	// StageLabel preserves the raw stage name verbatim when a stage rule
	// classified the outcome, so reporting can show the original wording.
	StageLabel string
}

type stageMatch int

const (
	matchContains stageMatch = iota
	matchExact
)

type stageRule struct {
	needles []string
	mode    stageMatch
	outcome EventOutcome
	status  CallStatus
}

// Stage-name rules run in order; first hit wins. The lost and won rules match
// exactly, so a compound stage name like "Closed Lost" hits no rule and falls
// through to the boolean classification.
var stageRules = []stageRule{
	{needles: []string{"no show", "no-show", "dns", "did not show"}, mode: matchContains, outcome: OutcomeNoShow, status: StatusNoShow},
	{needles: []string{"cancel"}, mode: matchContains, outcome: OutcomeCanceled, status: StatusCanceled},
	{needles: []string{"reschedule"}, mode: matchContains, outcome: OutcomeRescheduled, status: StatusRescheduled},
	{needles: []string{"unqualified", "not qualified", "disqualified", "dq"}, mode: matchContains, outcome: OutcomeNotQualified, status: StatusCompleted},
	{needles: []string{"lost"}, mode: matchExact, outcome: OutcomeLost, status: StatusCompleted},
	{needles: []string{"won", "closed won"}, mode: matchExact, outcome: OutcomeClosed, status: StatusCompleted},
}

// DeriveOutcome classifies a call. Stage-name rules take priority over the
// boolean triple; the booleans only run when no stage rule fires. The second
// return is false when nothing could classify the input.
func DeriveOutcome(in OutcomeInput) (OutcomeResult, bool) {
	stage := strings.ToLower(strings.TrimSpace(in.StageName))
	if stage != "" {
		for _, rule := range stageRules {
			if rule.matches(stage) {
				return OutcomeResult{
					Outcome:    rule.outcome,
					Status:     rule.status,
					StageLabel: strings.TrimSpace(in.StageName),
				}, true
			}
		}
	}

	if !in.HasBooleans {
		return OutcomeResult{}, false
	}

	switch {
	case !in.LeadShowed:
		return OutcomeResult{Outcome: OutcomeNoShow, Status: StatusNoShow}, true
	case in.DealClosed:
		return OutcomeResult{Outcome: OutcomeClosed, Status: StatusCompleted}, true
	case in.OfferMade:
		return OutcomeResult{Outcome: OutcomeShowedOfferNoClose, Status: StatusCompleted}, true
	default:
		return OutcomeResult{Outcome: OutcomeShowedNoOffer, Status: StatusCompleted}, true
	}
}

func (r stageRule) matches(stage string) bool {
	for _, needle := range r.needles {
		switch r.mode {
		case matchExact:
			if stage == needle {
				return true
			}
		default:
			if strings.Contains(stage, needle) {
				return true
			}
		}
	}
	return false
}

// AllowAutomatedTransition reports whether an incidental platform webhook may
// still mutate outcome fields on the event. Once a human has submitted the
// post-call form the record is locked against automated writes, except for
// cancellations and reschedules which always win.
func AllowAutomatedTransition(ev *TrackedEvent, trigger Trigger) bool {
	if !ev.PCFSubmitted {
		return true
	}
	return trigger == TriggerCanceled || trigger == TriggerRescheduled
}
