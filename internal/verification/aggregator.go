package verification

import (
	"errors"
	"fmt"

	"github.com/kiimleo/pesticide-monitor-sub000/internal/domain"
)

var ErrReferenceCount = errors.New("reference records do not match findings")

// ReviewOpinionsEmpty reports whether no finding on the certificate carries a
// recorded verdict.
func ReviewOpinionsEmpty(findings []domain.ExtractedFinding) bool {
	for _, f := range findings {
		if f.HasRecordedVerdict() {
			return false
		}
	}
	return true
}

// EcoFriendly reports whether any reference record was resolved in the
// eco-friendly context.
func EcoFriendly(refs []domain.ReferenceRecord) bool {
	for _, r := range refs {
		if r.IsEcoFriendlyContext {
			return true
		}
	}
	return false
}

// Aggregate combines the row verdicts of one certificate. Findings, verdicts
// and refs are index-aligned.
func Aggregate(findings []domain.ExtractedFinding, verdicts []domain.FindingVerdict, refs []domain.ReferenceRecord) domain.CertificateVerdict {
	out := domain.CertificateVerdict{
		AllReviewOpinionsEmpty: ReviewOpinionsEmpty(findings),
		IsEcoFriendly:          EcoFriendly(refs),
	}
	if len(findings) == 0 {
		out.Outcome = domain.OutcomeNoFindings
		return out
	}
	for _, v := range verdicts {
		if !v.FinalPass {
			out.MismatchCount++
		}
	}
	out.OverallConsistent = out.MismatchCount == 0 && len(verdicts) == len(findings)
	if out.OverallConsistent {
		out.Outcome = domain.OutcomeConsistent
	} else {
		out.Outcome = domain.OutcomeInconsistent
	}
	return out
}

// Options adjust a Verify run.
type Options struct {
	SkipLimitCheck bool
}

// Report is the full verification of one certificate.
type Report struct {
	Verdicts []domain.FindingVerdict
	Summary  domain.CertificateVerdict
}

// Verify evaluates every finding of cert. The certificate-wide flags are
// reduced first and then applied to each row.
func Verify(cert domain.ExtractedCertificate, refs []domain.ReferenceRecord, opts Options) (Report, error) {
	if len(refs) != len(cert.Findings) {
		return Report{}, fmt.Errorf("%w: %d findings, %d records", ErrReferenceCount, len(cert.Findings), len(refs))
	}
	ec := EvaluationContext{
		EcoFriendly:         EcoFriendly(refs),
		ReviewOpinionsEmpty: ReviewOpinionsEmpty(cert.Findings),
		SkipLimitCheck:      opts.SkipLimitCheck,
	}
	verdicts := make([]domain.FindingVerdict, len(cert.Findings))
	for i, f := range cert.Findings {
		verdicts[i] = Evaluate(f, refs[i], ec)
	}
	return Report{
		Verdicts: verdicts,
		Summary:  Aggregate(cert.Findings, verdicts, refs),
	}, nil
}
