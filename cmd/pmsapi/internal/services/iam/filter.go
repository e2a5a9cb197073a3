package iam

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-bexpr"
	lru "github.com/hashicorp/golang-lru/v2"
)

// ErrInvalidFilter is returned for filter expressions that do not compile.
var ErrInvalidFilter = errors.New("invalid filter expression")

const (
	// MaxFilterLength bounds the expression text accepted from callers.
	MaxFilterLength = 512

	filterCacheSize = 128
)

// filterCache holds compiled evaluators keyed by expression text. Filters come
// from any authenticated caller, so the cache is bounded.
var filterCache = mustFilterCache(filterCacheSize)

func mustFilterCache(size int) *lru.Cache[string, *bexpr.Evaluator] {
	cache, err := lru.New[string, *bexpr.Evaluator](size)
	if err != nil {
		panic(fmt.Sprintf("create filter cache: %v", err))
	}
	return cache
}

// compileFilter returns a cached evaluator for expr. An empty expr matches everything.
func compileFilter(expr string) (*bexpr.Evaluator, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}
	if len(expr) > MaxFilterLength {
		return nil, fmt.Errorf("%w: longer than %d bytes", ErrInvalidFilter, MaxFilterLength)
	}
	if cached, ok := filterCache.Get(expr); ok {
		return cached, nil
	}
	evaluator, err := bexpr.CreateEvaluator(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}
	filterCache.Add(expr, evaluator)
	return evaluator, nil
}

// filterFields exposes an identity to filter expressions, e.g.
//
//	active == true and "ADMIN" in roles
//	email matches ".*@example.com"
func filterFields(identity Identity) map[string]any {
	return map[string]any{
		"id":       identity.ID,
		"email":    identity.Email,
		"username": identity.Username,
		"name":     identity.Name,
		"active":   identity.Active,
		"roles":    identity.RoleNames,
	}
}

// FilterIdentities keeps the identities matching expr. Evaluation errors
// (e.g. an unknown field) exclude the identity rather than failing the list.
func FilterIdentities(identities []Identity, expr string) ([]Identity, error) {
	evaluator, err := compileFilter(expr)
	if err != nil {
		return nil, err
	}
	if evaluator == nil {
		return identities, nil
	}

	result := make([]Identity, 0, len(identities))
	for _, identity := range identities {
		matches, err := evaluator.Evaluate(filterFields(identity))
		if err != nil || !matches {
			continue
		}
		result = append(result, identity)
	}
	return result, nil
}
