package crmsync

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/chefme/onboarding-cli/internal/form"
	"github.com/chefme/onboarding-cli/pkg/dataverse"
)

// Contacts deduplicates and creates CRM contact records for the form's
// person roles.
type Contacts struct {
	dv dataverse.Client
}

// NewContacts returns a contact resolver backed by the given CRM client.
func NewContacts(dv dataverse.Client) *Contacts {
	return &Contacts{dv: dv}
}

// CreateOrGet returns the id of a contact matching p by email or mobile
// phone, creating the record when no match exists. New contacts are parented
// to the account and owned by the lead's owner. A contact with no name at
// all resolves to the empty id without any CRM call.
//
// The dedup filter intentionally includes blank email and phone values, so
// two nameless-but-identical roles on the same form collapse to one record.
func (c *Contacts) CreateOrGet(ctx context.Context, accountID, leadOwnerID string, p form.Contact) (string, error) {
	if !p.HasName() {
		return "", nil
	}

	q := dataverse.Query{
		Select: []string{"contactid"},
		Filter: dataverse.Eq("emailaddress1", p.Email).Or(dataverse.Eq("mobilephone", p.Phone)),
	}
	records, err := c.dv.List(ctx, "contacts", q)
	if err != nil {
		if errors.Is(err, dataverse.ErrNoToken) {
			return "", err
		}
		// A failed dedup read counts as no match; creating a possible
		// duplicate beats dropping the role.
		zap.L().Warn("contact dedup query failed, creating anyway",
			zap.String("role", p.Role),
			zap.Error(err))
		records = nil
	}
	if len(records) > 0 {
		id, _ := records[0]["contactid"].(string)
		zap.L().Debug("reusing existing contact",
			zap.String("contactID", id),
			zap.String("role", p.Role))
		return id, nil
	}

	body := map[string]any{
		"firstname": p.FirstName,
		"lastname":  p.LastName,
		"parentcustomerid_account@odata.bind": "/accounts(" + accountID + ")",
		"ownerid@odata.bind":                  "/systemusers(" + leadOwnerID + ")",
	}
	if p.Email != "" {
		body["emailaddress1"] = p.Email
	}
	if p.Phone != "" {
		body["mobilephone"] = p.Phone
	}
	if p.Role != "" {
		body["nw_rule"] = p.Role
	}

	id, err := c.dv.Create(ctx, "contacts", body)
	if err != nil {
		return "", eris.Wrapf(err, "create contact for role %q", p.Role)
	}
	zap.L().Info("created contact",
		zap.String("contactID", id),
		zap.String("role", p.Role))
	return id, nil
}
