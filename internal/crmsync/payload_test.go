package crmsync

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chefme/onboarding-cli/internal/form"
)

func TestBody_BindOmitsEmptyID(t *testing.T) {
	t.Parallel()

	b := NewBody()
	b.Bind("nw_City", "nw_cities", "")
	b.Bind("nw_Country11", "nw_countries", "c-1")

	assert.False(t, b.Has("nw_City@odata.bind"))
	v, ok := b.Get("nw_Country11@odata.bind")
	assert.True(t, ok)
	assert.Equal(t, "/nw_countries(c-1)", v)
}

func TestBody_AbsentVersusNull(t *testing.T) {
	t.Parallel()

	b := NewBody()
	b.Set("name", nil)

	assert.True(t, b.Has("name"))
	assert.False(t, b.Has("telephone1"))

	out, err := json.Marshal(b)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":null}`, string(out))
}

func TestBody_SetInt(t *testing.T) {
	t.Parallel()

	b := NewBody()
	b.SetInt("shippingmethodcode", "3")
	b.SetInt("address2_shippingmethodcode", "")
	b.SetInt("bogus", "not a number")

	v, ok := b.Get("shippingmethodcode")
	assert.True(t, ok)
	assert.Equal(t, 3, v)
	assert.False(t, b.Has("address2_shippingmethodcode"))
	assert.False(t, b.Has("bogus"))
}

func fullLookupIDs() lookupIDs {
	return lookupIDs{
		branch:         "b-1",
		paymentMethod:  "pm-1",
		statisticGroup: "sg-1",
		chefSegment:    "cs-1",
		subSegment:     "ss-1",
		classification: "cl-1",
	}
}

func TestBuildAccountBody_FixedPaymentTerms(t *testing.T) {
	t.Parallel()

	sub := &form.Submission{CompanyName: "Acme", PaymentTerms: "Net 90"}
	b := buildAccountBody(sub, fullLookupIDs(), "", false)

	// The form's own terms value is never mapped.
	v, ok := b.Get("paymenttermscode")
	assert.True(t, ok)
	assert.Equal(t, 6, v)
	assert.False(t, b.Has("nw_proposeanotherterm"))
}

func TestBuildAccountBody_ProposedTermsForceFlag(t *testing.T) {
	t.Parallel()

	sub := &form.Submission{CompanyName: "Acme", ProposedPaymentTerms: "Net 45"}
	b := buildAccountBody(sub, fullLookupIDs(), "", false)

	v, _ := b.Get("nw_proposeanotherterm")
	assert.Equal(t, true, v)
	term, _ := b.Get("nw_proposedpaymentterms")
	assert.Equal(t, "Net 45", term)
}

func TestBuildAccountBody_YesNoMapping(t *testing.T) {
	t.Parallel()

	sub := &form.Submission{
		IsContactSameAsPurchasing:   "1",
		IsContactSameAsCompanyOwner: "0",
	}
	b := buildAccountBody(sub, fullLookupIDs(), "", false)

	same, _ := b.Get("nw_iscontactpersonsameaspurchasing")
	assert.Equal(t, true, same)
	owner, _ := b.Get("nw_scontactpersonsameascompanyowner")
	assert.Equal(t, false, owner)
}

func TestBuildAccountBody_UpdateReassertsLineage(t *testing.T) {
	t.Parallel()

	sub := &form.Submission{LeadID: "lead-1"}

	created := buildAccountBody(sub, fullLookupIDs(), "owner-1", false)
	assert.False(t, created.Has("ownerid@odata.bind"))
	lead, _ := created.Get("originatingleadid@odata.bind")
	assert.Equal(t, "/leads(lead-1)", lead)

	updated := buildAccountBody(sub, fullLookupIDs(), "owner-1", true)
	owner, _ := updated.Get("ownerid@odata.bind")
	assert.Equal(t, "/systemusers(owner-1)", owner)
}

func TestBuildAccountBody_UnresolvedOptionalLookupsOmitted(t *testing.T) {
	t.Parallel()

	ids := fullLookupIDs()
	ids.classification = ""
	ids.deliveryCity = ""
	b := buildAccountBody(&form.Submission{}, ids, "", false)

	assert.False(t, b.Has("nw_Classification1@odata.bind"))
	assert.False(t, b.Has("nw_DeliveryCity@odata.bind"))
	assert.True(t, b.Has("nw_StatisticGroup@odata.bind"))
}

func TestCheckMandatory(t *testing.T) {
	t.Parallel()

	ids := fullLookupIDs()
	ids.paymentMethod = ""
	ids.subSegment = ""
	b := buildAccountBody(&form.Submission{CompanyName: "Acme"}, ids, "", false)

	err := checkMandatory(ids, b)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "payment method")
	assert.Contains(t, err.Error(), "sub segment")
	// The payload travels with the error for operator diagnosis.
	assert.Contains(t, err.Error(), `"name":"Acme"`)

	assert.NoError(t, checkMandatory(fullLookupIDs(), b))
}
