package services

import (
	"github.com/custodia-labs/juris/internal/core/domain"
)

// scoreEpsilon absorbs float rounding in threshold comparisons, so that a
// margin of 0.9-0.8 counts as meeting a 0.10 threshold.
const scoreEpsilon = 1e-9

// ConfidenceGate labels a reranked candidate list.
//
// Only rerank scores are considered; fused scores are not calibrated
// against the thresholds. The gate is a pure function of its input.
type ConfidenceGate struct {
	high   float64
	margin float64
	medium float64
}

// NewConfidenceGate creates a gate with the configured thresholds.
func NewConfidenceGate(cfg domain.EngineConfig) *ConfidenceGate {
	return &ConfidenceGate{
		high:   cfg.HighThreshold,
		margin: cfg.MarginThreshold,
		medium: cfg.MediumThreshold,
	}
}

// Decide labels the candidates, which must be in final order.
//
// Thresholds are compared within scoreEpsilon.
// High needs top >= high and (top - second) >= margin. When there is no
// second candidate the margin is the top score itself; when the second
// candidate was never reranked the margin is zero. Medium needs
// top >= medium. Everything else, including an empty list or a list
// without any rerank score, is Low.
func (g *ConfidenceGate) Decide(candidates []domain.RankedCandidate) domain.GateDecision {
	if len(candidates) == 0 {
		return decision(domain.ConfidenceLow, 0, 0, domain.ReasonEmpty)
	}
	if !candidates[0].Reranked() {
		return decision(domain.ConfidenceLow, 0, 0, domain.ReasonNotReranked)
	}

	top := *candidates[0].RerankScore
	margin := top
	if len(candidates) > 1 {
		margin = 0
		if candidates[1].Reranked() {
			margin = top - *candidates[1].RerankScore
		}
	}

	switch {
	case atLeast(top, g.high) && atLeast(margin, g.margin):
		return decision(domain.ConfidenceHigh, top, margin, domain.ReasonStrongLeader)
	case atLeast(top, g.high):
		return decision(domain.ConfidenceMedium, top, margin, domain.ReasonNarrowMargin)
	case atLeast(top, g.medium):
		return decision(domain.ConfidenceMedium, top, margin, domain.ReasonModerateScore)
	default:
		return decision(domain.ConfidenceLow, top, margin, domain.ReasonWeakScore)
	}
}

func decision(label domain.ConfidenceLabel, top, margin float64, reason domain.GateReason) domain.GateDecision {
	return domain.GateDecision{
		Label:     label,
		Directive: label.Directive(),
		TopScore:  top,
		Margin:    margin,
		Reason:    reason,
	}
}

// atLeast reports whether v meets threshold within scoreEpsilon.
func atLeast(v, threshold float64) bool {
	return v >= threshold-scoreEpsilon
}
