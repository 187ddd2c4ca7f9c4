package postgres

import (
	"context"
	"sort"
	"strings"

	"github.com/shopvoice/shopvoice/internal/apperr"
	"github.com/shopvoice/shopvoice/internal/domain"
	"github.com/shopvoice/shopvoice/internal/namematch"
)

// ResolveCandidate is one scored result of [Store.ResolveCustomer].
type ResolveCandidate struct {
	Customer domain.Customer
	Score    float64
	Type     namematch.MatchType
}

// ResolveCustomer ranks database candidates for a spoken name: exact match
// scores 1.0, a phone-substring match scores 0.95, everything else is
// scored by [namematch.Match]. When the top candidate's score is below
// threshold and more than one candidate remains, the caller should
// disambiguate rather than guess — returned as [apperr.BusinessLogic]
// MULTIPLE_CUSTOMERS carrying up to 3 candidates.
func (s *Store) ResolveCustomer(ctx context.Context, spoken string) (domain.Customer, error) {
	candidates, err := s.SearchCustomers(ctx, spoken)
	if err != nil {
		return domain.Customer{}, err
	}
	if len(candidates) == 0 {
		return domain.Customer{}, apperr.New(apperr.NotFound, "CUSTOMER_NOT_FOUND", spoken)
	}

	ranked := rankCandidates(spoken, candidates)

	top := ranked[0]
	if top.Score >= namematch.DefaultThreshold {
		return top.Customer, nil
	}
	if len(ranked) == 1 {
		return top.Customer, nil
	}

	n := len(ranked)
	if n > 3 {
		n = 3
	}
	names := make([]string, n)
	for i := 0; i < n; i++ {
		names[i] = ranked[i].Customer.Name
	}
	return domain.Customer{}, apperr.New(apperr.BusinessLogic, "MULTIPLE_CUSTOMERS", strings.Join(names, ", "))
}

func rankCandidates(spoken string, candidates []domain.Customer) []ResolveCandidate {
	spokenNorm := namematch.Normalize(spoken)
	out := make([]ResolveCandidate, len(candidates))
	for i, c := range candidates {
		switch {
		case namematch.Normalize(c.Name) == spokenNorm:
			out[i] = ResolveCandidate{Customer: c, Score: 1.0, Type: namematch.TypeExact}
		case c.Phone != "" && strings.Contains(c.Phone, strings.TrimSpace(spoken)):
			out[i] = ResolveCandidate{Customer: c, Score: 0.95, Type: namematch.TypeExact}
		default:
			r := namematch.Match(spoken, c.Name)
			out[i] = ResolveCandidate{Customer: c, Score: r.Score, Type: r.Type}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
