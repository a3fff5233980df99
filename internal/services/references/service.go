package references

import (
	"context"
	"fmt"
	"strings"

	"github.com/kiimleo/pesticide-monitor-sub000/internal/domain"
	"github.com/kiimleo/pesticide-monitor-sub000/internal/ports"
)

// MaxResults caps every autocomplete and similar-food list.
const MaxResults = 10

// ecoPurposeMarkers appear in the analytical purpose of certificates issued
// for eco-friendly agricultural product certification.
var ecoPurposeMarkers = []string{"친환경", "무농약", "유기농"}

// IsEcoFriendlyPurpose reports whether a certificate's analytical purpose
// puts it in the eco-friendly context.
func IsEcoFriendlyPurpose(purpose string) bool {
	for _, m := range ecoPurposeMarkers {
		if strings.Contains(purpose, m) {
			return true
		}
	}
	return false
}

type Service struct {
	repo ports.ReferenceRepository
}

func New(repo ports.ReferenceRepository) *Service { return &Service{repo: repo} }

func (s *Service) SearchFoods(ctx context.Context, query string) ([]string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []string{}, nil
	}
	foods, err := s.repo.SearchFoods(ctx, query, MaxResults)
	if err != nil {
		return nil, fmt.Errorf("search foods: %w", err)
	}
	return capped(foods), nil
}

func (s *Service) SearchPesticides(ctx context.Context, query string) ([]string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []string{}, nil
	}
	names, err := s.repo.SearchPesticides(ctx, query, MaxResults)
	if err != nil {
		return nil, fmt.Errorf("search pesticides: %w", err)
	}
	return capped(names), nil
}

// ResolveFood maps a certificate's item description to a registered food.
func (s *Service) ResolveFood(ctx context.Context, name string) (string, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false, nil
	}
	food, found, err := s.repo.FindFood(ctx, name)
	if err != nil {
		return "", false, fmt.Errorf("find food %q: %w", name, err)
	}
	return food, found, nil
}

func (s *Service) SimilarFoods(ctx context.Context, name string) ([]string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return []string{}, nil
	}
	foods, err := s.repo.SimilarFoods(ctx, name, MaxResults)
	if err != nil {
		return nil, fmt.Errorf("similar foods for %q: %w", name, err)
	}
	return capped(foods), nil
}

// Records resolves one reference record per finding, in order. An empty food
// skips the limit lookup; an unknown pesticide yields a record with no
// standard name so the finding fails its name check.
func (s *Service) Records(ctx context.Context, food string, findings []domain.ExtractedFinding, eco bool) ([]domain.ReferenceRecord, error) {
	out := make([]domain.ReferenceRecord, len(findings))
	for i, f := range findings {
		rec := domain.ReferenceRecord{IsEcoFriendlyContext: eco}
		std, found, err := s.repo.FindPesticide(ctx, f.RecordedPesticideName)
		if err != nil {
			return nil, fmt.Errorf("find pesticide %q: %w", f.RecordedPesticideName, err)
		}
		if found {
			rec.StandardPesticideName = std
			if food != "" {
				rec.ReferenceLimit, err = s.repo.LimitFor(ctx, food, std)
				if err != nil {
					return nil, fmt.Errorf("limit for %s/%s: %w", food, std, err)
				}
			}
		}
		out[i] = rec
	}
	return out, nil
}

// Limit looks up the MRL of a pesticide in a food.
func (s *Service) Limit(ctx context.Context, food, pesticide string) (domain.Limit, error) {
	out := domain.Limit{Food: strings.TrimSpace(food), Pesticide: strings.TrimSpace(pesticide)}
	canonical, found, err := s.ResolveFood(ctx, out.Food)
	if err != nil {
		return out, err
	}
	if !found {
		return out, fmt.Errorf("food %q: %w", out.Food, domain.ErrNotFound)
	}
	out.Food = canonical
	std, found, err := s.repo.FindPesticide(ctx, out.Pesticide)
	if err != nil {
		return out, fmt.Errorf("find pesticide %q: %w", out.Pesticide, err)
	}
	if !found {
		return out, fmt.Errorf("pesticide %q: %w", out.Pesticide, domain.ErrNotFound)
	}
	out.StandardPesticideName = std
	out.Limit, err = s.repo.LimitFor(ctx, canonical, std)
	if err != nil {
		return out, fmt.Errorf("limit for %s/%s: %w", canonical, std, err)
	}
	return out, nil
}

func capped(list []string) []string {
	if list == nil {
		return []string{}
	}
	if len(list) > MaxResults {
		return list[:MaxResults]
	}
	return list
}
