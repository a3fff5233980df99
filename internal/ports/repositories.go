package ports

import (
	"context"

	"github.com/kiimleo/pesticide-monitor-sub000/internal/domain"
)

// CertificateRepository stores verified certificates keyed by certificate number.
type CertificateRepository interface {
	Exists(ctx context.Context, number string) (bool, error)
	// Save inserts the certificate; with overwrite it replaces an existing
	// certificate of the same number.
	Save(ctx context.Context, cert domain.StoredCertificate, overwrite bool) (id string, err error)
	Get(ctx context.Context, number string) (domain.StoredCertificate, error)
}

// ReferenceRepository reads the reference-limits database.
type ReferenceRepository interface {
	// FindFood returns the canonical food name for name, if registered.
	FindFood(ctx context.Context, name string) (food string, found bool, err error)
	SearchFoods(ctx context.Context, query string, limit int) ([]string, error)
	SimilarFoods(ctx context.Context, name string, limit int) ([]string, error)
	// FindPesticide resolves a recorded name (Korean or English) to the
	// standard pesticide name.
	FindPesticide(ctx context.Context, name string) (standard string, found bool, err error)
	SearchPesticides(ctx context.Context, query string, limit int) ([]string, error)
	// LimitFor returns the MRL in mg/kg, or nil when none is registered.
	LimitFor(ctx context.Context, food, standardPesticide string) (*float64, error)
}
