package domain

import (
	"strings"
	"time"
)

// Core domain models shared by the verification engine, the workflow and the
// adapters. JSON tags follow the API wire format.

// Verdict is a pass/fail opinion on a single finding.
type Verdict string

const (
	VerdictPass Verdict = "적합"
	VerdictFail Verdict = "부적합"
)

// ParseVerdict maps certificate text to a Verdict. Empty text and the "-"
// placeholder mean no opinion was recorded.
func ParseVerdict(s string) (Verdict, bool) {
	switch strings.TrimSpace(s) {
	case string(VerdictPass):
		return VerdictPass, true
	case string(VerdictFail):
		return VerdictFail, true
	default:
		return "", false
	}
}

// EcoFriendlyLimit is the fixed threshold in mg/kg applied to every pesticide
// when a certificate is tested for eco-friendly certification.
const EcoFriendlyLimit = 0.01

// NoFoodSelected is sent as the selected food when no candidate applies.
const NoFoodSelected = "__no_food_selected__"

type ExtractedCertificate struct {
	CertificateNumber string             `json:"certificateNumber" validate:"required"`
	ApplicantName     string             `json:"applicantName"`
	ApplicantAddress  string             `json:"applicantAddress"`
	SampleDescription string             `json:"sampleDescription"`
	AnalyticalPurpose string             `json:"analyticalPurpose"`
	TestStartDate     string             `json:"testStartDate"`
	TestEndDate       string             `json:"testEndDate"`
	AnalyzedItems     string             `json:"analyzedItems"`
	Findings          []ExtractedFinding `json:"findings" validate:"dive"`
}

type ExtractedFinding struct {
	RecordedPesticideName string   `json:"recordedPesticideName" validate:"required"`
	DetectionValue        float64  `json:"detectionValue" validate:"gte=0"`
	RecordedLimitText     *string  `json:"recordedLimitText"`
	RecordedVerdict       *Verdict `json:"recordedVerdict"`
}

// HasRecordedVerdict reports whether the certificate author gave an opinion
// for this finding.
func (f ExtractedFinding) HasRecordedVerdict() bool {
	if f.RecordedVerdict == nil {
		return false
	}
	_, ok := ParseVerdict(string(*f.RecordedVerdict))
	return ok
}

// ReferenceRecord is the authoritative data matched to one finding.
type ReferenceRecord struct {
	StandardPesticideName string   `json:"standardPesticideName"`
	ReferenceLimit        *float64 `json:"referenceLimit"`
	IsEcoFriendlyContext  bool     `json:"isEcoFriendlyContext"`
}

type FindingVerdict struct {
	NameMatches                     bool    `json:"nameMatches"`
	ComputedVerdict                 Verdict `json:"computedVerdict"`
	IsConsistentWithRecordedVerdict bool    `json:"isConsistentWithRecordedVerdict"`
	HasRecordedLimitValue           bool    `json:"hasRecordedLimitValue"`
	FinalPass                       bool    `json:"finalPass"`
}

// Outcome distinguishes an empty certificate from a real pass or failure.
type Outcome string

const (
	OutcomeConsistent   Outcome = "consistent"
	OutcomeInconsistent Outcome = "inconsistent"
	OutcomeNoFindings   Outcome = "no_findings"
)

type CertificateVerdict struct {
	AllReviewOpinionsEmpty bool    `json:"allReviewOpinionsEmpty"`
	OverallConsistent      bool    `json:"overallConsistent"`
	MismatchCount          int     `json:"mismatchCount"`
	IsEcoFriendly          bool    `json:"isEcoFriendly"`
	Outcome                Outcome `json:"outcome"`
}

// Document is an uploaded certificate file. The same Document is reused for
// every resubmission of one verification.
type Document struct {
	Name    string
	Content []byte
}

// SubmitParams accumulate across resubmissions of one Document.
type SubmitParams struct {
	Overwrite          bool   `json:"overwrite,omitempty"`
	SelectedFood       string `json:"selectedFood,omitempty"`
	SkipFoodValidation bool   `json:"skipFoodValidation,omitempty"`
}

// ResolvesNoFood reports whether the caller asked to verify without a food.
func (p SubmitParams) ResolvesNoFood() bool {
	return p.SkipFoodValidation || p.SelectedFood == NoFoodSelected
}

// VerificationResult is the successful response of a certificate submission.
type VerificationResult struct {
	ParsingResult      ExtractedCertificate `json:"parsingResult"`
	VerificationResult []FindingVerdict     `json:"verificationResult"`
	Summary            CertificateVerdict   `json:"summary"`
	Food               string               `json:"food,omitempty"`
}

// StoredCertificate is the persisted form of a verified certificate.
type StoredCertificate struct {
	ID          string
	Number      string
	Food        string
	Certificate ExtractedCertificate
	Verdicts    []FindingVerdict
	Summary     CertificateVerdict
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Limit is a single MRL row from the reference database.
type Limit struct {
	Food                  string   `json:"food"`
	Pesticide             string   `json:"pesticide"`
	StandardPesticideName string   `json:"standardPesticideName"`
	Limit                 *float64 `json:"limit"`
}
