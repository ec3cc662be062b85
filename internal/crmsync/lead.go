package crmsync

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/chefme/onboarding-cli/internal/form"
	"github.com/chefme/onboarding-cli/pkg/dataverse"
)

// leadConvertedStatusCode is the lead's "form submitted" status reason.
const leadConvertedStatusCode = 920750002

// formattedValueSuffix is the OData annotation carrying a lookup column's
// display value.
const formattedValueSuffix = "@OData.Community.Display.V1.FormattedValue"

// AccountIDByLead finds the account originated by the given lead. Returns
// the empty id when no account exists yet.
func (e *Engine) AccountIDByLead(ctx context.Context, leadID string) (string, error) {
	records, err := e.dv.List(ctx, "accounts", dataverse.Query{
		Select: []string{"accountid"},
		Filter: dataverse.EqGUID("_originatingleadid_value", leadID),
	})
	if err != nil {
		return "", eris.Wrapf(err, "find account for lead %s", leadID)
	}
	if len(records) == 0 {
		return "", nil
	}
	id, _ := records[0]["accountid"].(string)
	return id, nil
}

// LeadOwnerID returns the system user owning the lead. Contacts created
// during the sync are assigned to this owner.
func (e *Engine) LeadOwnerID(ctx context.Context, leadID string) (string, error) {
	if _, err := uuid.Parse(leadID); err != nil {
		return "", eris.Wrapf(err, "invalid lead id %q", leadID)
	}
	record, err := e.dv.GetRecord(ctx, "leads", leadID, dataverse.Query{
		Select: []string{"_ownerid_value"},
	})
	if err != nil {
		return "", eris.Wrapf(err, "read lead %s", leadID)
	}
	ownerID, _ := record["_ownerid_value"].(string)
	if ownerID == "" {
		return "", eris.Errorf("lead %s has no owner", leadID)
	}
	return ownerID, nil
}

// LeadData reads the lead fields used to prefill the form. Lookup columns
// come back as display names via formatted-value annotations.
func (e *Engine) LeadData(ctx context.Context, leadID string) (*form.Submission, error) {
	if _, err := uuid.Parse(leadID); err != nil {
		return nil, eris.Wrapf(err, "invalid lead id %q", leadID)
	}
	record, err := e.dv.GetRecord(ctx, "leads", leadID, dataverse.Query{
		Select: []string{
			"companyname", "mobilephone", "emailaddress1",
			"_nw_statisticgroup_value", "_nw_chefsegments_value", "_nw_subsegment_value",
			"_msdyn_company_value", "_shp_classification_value",
			"cr5b1_reason", "cr5b1_isecommerce", "cr5b1_ifusinginventorysystem",
			"statuscode",
		},
		Formatted: true,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "read lead %s", leadID)
	}

	sub := &form.Submission{
		LeadID:          leadID,
		CompanyName:     str(record, "companyname"),
		MainPhone:       str(record, "mobilephone"),
		Email:           str(record, "emailaddress1"),
		StatisticGroup:  formatted(record, "_nw_statisticgroup_value"),
		ChefSegment:     formatted(record, "_nw_chefsegments_value"),
		SubSegment:      formatted(record, "_nw_subsegment_value"),
		Branch:          formatted(record, "_msdyn_company_value"),
		Classification:  formatted(record, "_shp_classification_value"),
		Reason:          formatted(record, "cr5b1_reason"),
		Ecommerce:       formatted(record, "cr5b1_isecommerce"),
		InventorySystem: formatted(record, "cr5b1_ifusinginventorysystem"),
		StatusCode:      formatted(record, "statuscode"),
	}
	return sub, nil
}

// AdvanceLeadStatus moves the lead to the form-submitted status reason.
func (e *Engine) AdvanceLeadStatus(ctx context.Context, leadID string) error {
	err := e.dv.Update(ctx, "leads", leadID, map[string]any{
		"statuscode": leadConvertedStatusCode,
	})
	if err != nil {
		return eris.Wrapf(err, "advance lead %s status", leadID)
	}
	return nil
}

// AccountSnapshot reads the account originated by the lead with display
// values for its lookup columns, and mirrors its file attachments to local
// disk when a mirror store is configured. Returns nil when no account
// exists.
func (e *Engine) AccountSnapshot(ctx context.Context, leadID string) (map[string]any, error) {
	records, err := e.dv.List(ctx, "accounts", dataverse.Query{
		Select: []string{
			"accountid", "name", "telephone1", "emailaddress1",
			"_msdyn_customerpaymentmethod_value", "_msdyn_company_value",
			"_nw_statisticgroup_value", "_nw_chefsegment_value", "_nw_subsegment_value",
			"_nw_classification1_value",
			"nw_tradenameoutletname", "nw_tradelicensenumber", "nw_licenseexpirydate",
			"nw_vatnumber", "nw_establishmentcardnumber",
			"nw_iscontactpersonsameaspurchasing", "nw_scontactpersonsameascompanyowner",
			"nw_issametocorporateaddress",
			"address1_line1", "shippingmethodcode",
			"address2_line1", "address2_shippingmethodcode", "nw_address3street",
			"_nw_country11_value", "_nw_city_value",
			"_nw_deliverycountry_value", "_nw_deliverycity_value",
			"_nw_countries_value", "_nw_cityregisteredaddress_value",
			"nw_estimatedpurchasevalue", "nw_estimatedmonthlypurchaseaed",
			"nw_amountofsecuritychequeamountaed",
			"nw_proposecreditlimit", "nw_proposecreditlimit1",
			"nw_proposeanotherterm", "nw_proposedpaymentterms",
			"new_isecommerce", "new_reason", "new_ifusinginventorysystem",
		},
		Filter:    dataverse.EqGUID("_originatingleadid_value", leadID),
		Formatted: true,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "read account for lead %s", leadID)
	}
	if len(records) == 0 {
		return nil, nil
	}
	snapshot := records[0]

	accountID, _ := snapshot["accountid"].(string)
	if e.mirror != nil && accountID != "" {
		for _, kind := range form.Kinds() {
			data, err := e.dv.Download(ctx, "accounts", accountID, kind.Attribute())
			if err != nil || len(data) == 0 {
				continue
			}
			path, err := e.mirror.Save(string(kind), accountID, data)
			if err != nil {
				zap.L().Warn("mirror attachment failed",
					zap.String("kind", string(kind)),
					zap.Error(err))
				continue
			}
			snapshot[string(kind)+"_filePath"] = path
		}
	}
	return snapshot, nil
}

// recordLink builds the deep link into the CRM app for an account record.
func (e *Engine) recordLink(accountID string) string {
	return fmt.Sprintf("%s/main.aspx?appid=%s&pagetype=entityrecord&etn=account&id=%s",
		e.orgURL, e.appID, accountID)
}

func str(record map[string]any, key string) string {
	v, _ := record[key].(string)
	return v
}

func formatted(record map[string]any, key string) string {
	v, _ := record[key+formattedValueSuffix].(string)
	return v
}
