// Package verification checks a laboratory certificate's pesticide findings
// against reference MRL records.
package verification

import "github.com/kiimleo/pesticide-monitor-sub000/internal/domain"

// EvaluationContext carries the certificate-wide flags every finding of one
// certificate is evaluated under.
type EvaluationContext struct {
	EcoFriendly         bool
	ReviewOpinionsEmpty bool
	// SkipLimitCheck is set when no food was resolved; the certificate's own
	// printed limit stands in for the reference limit.
	SkipLimitCheck bool
}

// Evaluate computes the verdict fields of one finding.
func Evaluate(f domain.ExtractedFinding, ref domain.ReferenceRecord, ec EvaluationContext) domain.FindingVerdict {
	v := domain.FindingVerdict{
		NameMatches:           NamesMatch(f.RecordedPesticideName, ref.StandardPesticideName),
		HasRecordedLimitValue: HasLimitText(f.RecordedLimitText),
	}
	v.ComputedVerdict = computeVerdict(f, ref, ec)
	if !ec.ReviewOpinionsEmpty && f.HasRecordedVerdict() {
		recorded, _ := domain.ParseVerdict(string(*f.RecordedVerdict))
		v.IsConsistentWithRecordedVerdict = recorded == v.ComputedVerdict
	}

	switch {
	case ec.SkipLimitCheck:
		v.FinalPass = v.NameMatches && v.HasRecordedLimitValue &&
			(ec.ReviewOpinionsEmpty || v.IsConsistentWithRecordedVerdict)
	case ec.ReviewOpinionsEmpty:
		v.FinalPass = v.NameMatches && LimitsEqual(f.RecordedLimitText, ref.ReferenceLimit)
	default:
		v.FinalPass = v.NameMatches && v.IsConsistentWithRecordedVerdict && v.HasRecordedLimitValue
	}
	return v
}

// effectiveLimit returns the threshold the detection value is judged against.
// A registered limit is required outside the eco-friendly context.
func effectiveLimit(f domain.ExtractedFinding, ref domain.ReferenceRecord, ec EvaluationContext) (float64, bool) {
	if ec.EcoFriendly {
		return domain.EcoFriendlyLimit, true
	}
	if ec.SkipLimitCheck {
		return ParseLimit(f.RecordedLimitText)
	}
	if ref.ReferenceLimit == nil {
		return 0, false
	}
	return *ref.ReferenceLimit, true
}

func computeVerdict(f domain.ExtractedFinding, ref domain.ReferenceRecord, ec EvaluationContext) domain.Verdict {
	limit, ok := effectiveLimit(f, ref, ec)
	if ok && f.DetectionValue <= limit {
		return domain.VerdictPass
	}
	return domain.VerdictFail
}
