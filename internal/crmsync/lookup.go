package crmsync

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/chefme/onboarding-cli/pkg/dataverse"
)

// Lookups resolves form display names to CRM record ids. A value that cannot
// be resolved comes back as the empty id rather than an error, so optional
// references degrade to omission; only token and transport failures
// propagate.
type Lookups struct {
	dv dataverse.Client
}

// NewLookups returns a resolver backed by the given CRM client.
func NewLookups(dv dataverse.Client) *Lookups {
	return &Lookups{dv: dv}
}

// Unscoped resolves value against entitySet by exact match on filterColumn.
// Blank values short-circuit to the empty id without a CRM call.
func (l *Lookups) Unscoped(ctx context.Context, entitySet, idColumn, filterColumn, value string) (string, error) {
	if strings.TrimSpace(value) == "" {
		return "", nil
	}
	q := dataverse.Query{
		Select: []string{idColumn},
		Filter: dataverse.Eq(filterColumn, value),
	}
	return l.resolve(ctx, entitySet, idColumn, value, q)
}

// Scoped resolves value within a parent company: the name match is ANDed
// with an exact match on the scope lookup column.
func (l *Lookups) Scoped(ctx context.Context, entitySet, idColumn, filterColumn, value, scopeColumn, scopeID string) (string, error) {
	q := dataverse.Query{
		Select: []string{idColumn},
		Filter: dataverse.Eq(filterColumn, value).And(dataverse.EqGUID(scopeColumn, scopeID)),
	}
	return l.resolve(ctx, entitySet, idColumn, value, q)
}

func (l *Lookups) resolve(ctx context.Context, entitySet, idColumn, value string, q dataverse.Query) (string, error) {
	records, err := l.dv.List(ctx, entitySet, q)
	if err != nil {
		if errors.Is(err, dataverse.ErrNoToken) {
			return "", err
		}
		// Query failures resolve to no match; whether that aborts the sync
		// is the caller's call, depending on whether the lookup is required.
		zap.L().Warn("lookup query failed",
			zap.String("entitySet", entitySet),
			zap.String("value", value),
			zap.Error(err))
		return "", nil
	}
	if len(records) == 0 {
		return "", nil
	}
	if len(records) > 1 {
		zap.L().Debug("lookup matched multiple records, using first",
			zap.String("entitySet", entitySet),
			zap.String("value", value),
			zap.Int("matches", len(records)))
	}
	id, _ := records[0][idColumn].(string)
	return id, nil
}
