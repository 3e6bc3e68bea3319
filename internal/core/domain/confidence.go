package domain

// ConfidenceLabel classifies how well a result set supports an answer.
type ConfidenceLabel string

const (
	// ConfidenceHigh allows direct composition.
	ConfidenceHigh ConfidenceLabel = "high"

	// ConfidenceMedium allows composition with exactly one clarifying follow-up.
	ConfidenceMedium ConfidenceLabel = "medium"

	// ConfidenceLow withholds composition in favour of a clarifying question.
	ConfidenceLow ConfidenceLabel = "low"
)

// Directive is the instruction handed to the external composer.
type Directive string

const (
	// DirectiveCompose means answer directly.
	DirectiveCompose Directive = "compose"

	// DirectiveComposeWithFollowUp means answer and attach one clarifying follow-up.
	DirectiveComposeWithFollowUp Directive = "compose_with_follow_up"

	// DirectiveClarify means do not answer; ask a clarifying question.
	DirectiveClarify Directive = "clarify"
)

// Directive returns the composition directive for the label.
func (l ConfidenceLabel) Directive() Directive {
	switch l {
	case ConfidenceHigh:
		return DirectiveCompose
	case ConfidenceMedium:
		return DirectiveComposeWithFollowUp
	default:
		return DirectiveClarify
	}
}

// AllowsComposition returns true unless composition must be withheld.
func (l ConfidenceLabel) AllowsComposition() bool {
	return l == ConfidenceHigh || l == ConfidenceMedium
}

// String returns the label as a string.
func (l ConfidenceLabel) String() string {
	return string(l)
}

// GateReason explains which rule produced a label.
type GateReason string

const (
	// ReasonStrongLeader is a top score and margin above the high thresholds.
	ReasonStrongLeader GateReason = "strong_leader"

	// ReasonNarrowMargin is a high top score without enough separation.
	ReasonNarrowMargin GateReason = "narrow_margin"

	// ReasonModerateScore is a top score between the medium and high thresholds.
	ReasonModerateScore GateReason = "moderate_score"

	// ReasonWeakScore is a top score below the medium threshold.
	ReasonWeakScore GateReason = "weak_score"

	// ReasonEmpty is an empty candidate set.
	ReasonEmpty GateReason = "empty_candidate_set"

	// ReasonNotReranked is a candidate set without any rerank score.
	ReasonNotReranked GateReason = "not_reranked"
)

// GateDecision is the terminal decision of the confidence gate for one query.
type GateDecision struct {
	Label     ConfidenceLabel
	Directive Directive
	TopScore  float64
	Margin    float64
	Reason    GateReason
}
