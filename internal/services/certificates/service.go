package certificates

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/kiimleo/pesticide-monitor-sub000/internal/domain"
	"github.com/kiimleo/pesticide-monitor-sub000/internal/ports"
	"github.com/kiimleo/pesticide-monitor-sub000/internal/services/references"
	"github.com/kiimleo/pesticide-monitor-sub000/internal/verification"
)

var pdfMagic = []byte("%PDF")

// ReferenceResolver is the part of the references service a submission needs.
type ReferenceResolver interface {
	ResolveFood(ctx context.Context, name string) (string, bool, error)
	SimilarFoods(ctx context.Context, name string) ([]string, error)
	Records(ctx context.Context, food string, findings []domain.ExtractedFinding, eco bool) ([]domain.ReferenceRecord, error)
}

type Service struct {
	extractor ports.Extractor
	certs     ports.CertificateRepository
	refs      ReferenceResolver
	validate  *validator.Validate
	logger    *zap.Logger
}

func New(extractor ports.Extractor, certs ports.CertificateRepository, refs ReferenceResolver, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		extractor: extractor,
		certs:     certs,
		refs:      refs,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		logger:    logger,
	}
}

// Submit extracts, checks and verifies an uploaded certificate. Recoverable
// conditions (duplicate number, unresolved food) and input problems are
// returned as *domain.ErrorResponse.
func (s *Service) Submit(ctx context.Context, doc domain.Document, params domain.SubmitParams) (domain.VerificationResult, error) {
	var out domain.VerificationResult
	if len(doc.Content) == 0 {
		return out, domain.FieldError(http.StatusBadRequest, "file", "업로드된 파일이 비어 있습니다.")
	}
	if !bytes.HasPrefix(doc.Content, pdfMagic) {
		return out, domain.FieldError(http.StatusBadRequest, "file", "PDF 파일만 업로드할 수 있습니다.")
	}

	cert, err := s.extractor.Extract(ctx, doc)
	if err != nil {
		var resp *domain.ErrorResponse
		if errors.As(err, &resp) {
			return out, resp
		}
		s.logger.Warn("extraction failed", zap.String("file", doc.Name), zap.Error(err))
		return out, &domain.ErrorResponse{Status: http.StatusUnprocessableEntity, Err: "PDF에서 성적서 정보를 추출할 수 없습니다."}
	}
	cert.CertificateNumber = strings.TrimSpace(cert.CertificateNumber)
	if err := s.validateCertificate(cert); err != nil {
		return out, err
	}
	log := s.logger.With(zap.String("certificate", cert.CertificateNumber))

	if !params.Overwrite {
		exists, err := s.certs.Exists(ctx, cert.CertificateNumber)
		if err != nil {
			return out, fmt.Errorf("check duplicate: %w", err)
		}
		if exists {
			log.Info("duplicate certificate")
			return out, domain.DuplicateCertificate(cert.CertificateNumber)
		}
	}

	food, err := s.resolveFood(ctx, cert, params)
	if err != nil {
		return out, err
	}
	eco := references.IsEcoFriendlyPurpose(cert.AnalyticalPurpose)
	refs, err := s.refs.Records(ctx, food, cert.Findings, eco)
	if err != nil {
		return out, fmt.Errorf("resolve references: %w", err)
	}
	report, err := verification.Verify(cert, refs, verification.Options{SkipLimitCheck: food == ""})
	if err != nil {
		return out, fmt.Errorf("verify: %w", err)
	}

	_, err = s.certs.Save(ctx, domain.StoredCertificate{
		Number:      cert.CertificateNumber,
		Food:        food,
		Certificate: cert,
		Verdicts:    report.Verdicts,
		Summary:     report.Summary,
	}, params.Overwrite)
	if errors.Is(err, domain.ErrAlreadyExists) {
		return out, domain.DuplicateCertificate(cert.CertificateNumber)
	}
	if err != nil {
		return out, fmt.Errorf("save certificate: %w", err)
	}

	log.Info("certificate verified",
		zap.String("food", food),
		zap.String("outcome", string(report.Summary.Outcome)),
		zap.Int("mismatches", report.Summary.MismatchCount),
		zap.Bool("eco", report.Summary.IsEcoFriendly))
	return domain.VerificationResult{
		ParsingResult:      cert,
		VerificationResult: report.Verdicts,
		Summary:            report.Summary,
		Food:               food,
	}, nil
}

// Certificate returns the stored verification of a certificate number.
func (s *Service) Certificate(ctx context.Context, number string) (domain.VerificationResult, error) {
	stored, err := s.certs.Get(ctx, strings.TrimSpace(number))
	if err != nil {
		return domain.VerificationResult{}, err
	}
	return domain.VerificationResult{
		ParsingResult:      stored.Certificate,
		VerificationResult: stored.Verdicts,
		Summary:            stored.Summary,
		Food:               stored.Food,
	}, nil
}

// resolveFood returns the reference food to verify against, or "" when the
// caller chose to verify without one.
func (s *Service) resolveFood(ctx context.Context, cert domain.ExtractedCertificate, params domain.SubmitParams) (string, error) {
	if params.ResolvesNoFood() {
		return "", nil
	}
	name := strings.TrimSpace(params.SelectedFood)
	if name == "" {
		name = strings.TrimSpace(cert.SampleDescription)
	}
	food, found, err := s.refs.ResolveFood(ctx, name)
	if err != nil {
		return "", err
	}
	if found {
		return food, nil
	}
	similar, err := s.refs.SimilarFoods(ctx, name)
	if err != nil {
		return "", err
	}
	return "", domain.FoodSelectionRequired(name, similar)
}

func (s *Service) validateCertificate(cert domain.ExtractedCertificate) error {
	err := s.validate.Struct(cert)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate certificate: %w", err)
	}
	resp := &domain.ErrorResponse{Status: http.StatusUnprocessableEntity, Errors: map[string][]string{}}
	for _, fe := range verrs {
		field := fieldName(fe.Namespace())
		resp.Errors[field] = append(resp.Errors[field], validationMessage(fe))
	}
	return resp
}

// fieldName turns "ExtractedCertificate.Findings[0].DetectionValue" into
// "findings[0].detectionValue".
func fieldName(ns string) string {
	parts := strings.Split(ns, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToLower(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, ".")
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "필수 항목이 추출되지 않았습니다."
	case "gte":
		return "검출량은 0 이상이어야 합니다."
	default:
		return fmt.Sprintf("유효하지 않은 값입니다 (%s).", fe.Tag())
	}
}
