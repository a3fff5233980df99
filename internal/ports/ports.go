package ports

import (
	"context"

	"github.com/kiimleo/pesticide-monitor-sub000/internal/domain"
)

// CertificateVerifier runs one submission of an uploaded certificate and
// returns stored results.
type CertificateVerifier interface {
	Submit(ctx context.Context, doc domain.Document, params domain.SubmitParams) (domain.VerificationResult, error)
	Certificate(ctx context.Context, number string) (domain.VerificationResult, error)
}

// References serves food/pesticide autocomplete and MRL lookups.
type References interface {
	SearchFoods(ctx context.Context, query string) ([]string, error)
	SearchPesticides(ctx context.Context, query string) ([]string, error)
	Limit(ctx context.Context, food, pesticide string) (domain.Limit, error)
}

// Extractor turns an uploaded PDF into structured certificate fields.
type Extractor interface {
	Extract(ctx context.Context, doc domain.Document) (domain.ExtractedCertificate, error)
}
