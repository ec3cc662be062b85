package crmsync

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/chefme/onboarding-cli/internal/form"
)

// fixedPaymentTermsCode is stamped onto every account create and update. The
// CRM side expects this constant; the form's own PaymentTerms field is
// intentionally not mapped.
const fixedPaymentTermsCode = 6

// Body is a CRM entity payload. Unlike a bare map it distinguishes a field
// that was never set (absent from the wire payload) from one explicitly set
// to null, which keeps the omission rules for optional lookups testable.
type Body struct {
	fields map[string]any
}

// NewBody returns an empty payload.
func NewBody() *Body {
	return &Body{fields: make(map[string]any)}
}

// Set includes the field with the given value. A nil value serializes as an
// explicit null.
func (b *Body) Set(name string, value any) {
	b.fields[name] = value
}

// SetInt parses s as a decimal integer and includes it; blank or unparseable
// values are omitted.
func (b *Body) SetInt(name, s string) {
	if s == "" {
		return
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return
	}
	b.fields[name] = n
}

// Bind includes a relationship reference /<entitySet>(<id>) under
// name@odata.bind. An empty id omits the reference entirely rather than
// writing a null.
func (b *Body) Bind(nav, entitySet, id string) {
	if id == "" {
		return
	}
	b.fields[nav+"@odata.bind"] = fmt.Sprintf("/%s(%s)", entitySet, id)
}

// Has reports whether the field is present in the payload.
func (b *Body) Has(name string) bool {
	_, ok := b.fields[name]
	return ok
}

// Get returns the field value and whether it is present.
func (b *Body) Get(name string) (any, bool) {
	v, ok := b.fields[name]
	return v, ok
}

// MarshalJSON serializes the payload fields.
func (b *Body) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.fields)
}

// JSON renders the payload for diagnostics. Errors degrade to a placeholder
// rather than masking the caller's failure.
func (b *Body) JSON() string {
	out, err := json.Marshal(b.fields)
	if err != nil {
		return "<unserializable payload>"
	}
	return string(out)
}

// lookupIDs holds the resolved CRM ids for the account's lookup references.
type lookupIDs struct {
	branch            string
	paymentMethod     string
	statisticGroup    string
	chefSegment       string
	subSegment        string
	classification    string
	corporateCountry  string
	corporateCity     string
	deliveryCountry   string
	deliveryCity      string
	registeredCountry string
	registeredCity    string
}

// missingMandatory lists the required lookups that did not resolve. Payment
// method, statistic group, chef segment, and sub segment must all be bound
// before any account mutation.
func (ids lookupIDs) missingMandatory() []string {
	var missing []string
	if ids.paymentMethod == "" {
		missing = append(missing, "payment method")
	}
	if ids.statisticGroup == "" {
		missing = append(missing, "statistic group")
	}
	if ids.chefSegment == "" {
		missing = append(missing, "chef segment")
	}
	if ids.subSegment == "" {
		missing = append(missing, "sub segment")
	}
	return missing
}

// yes reports whether the form's yes/no value is the affirmative "1".
func yes(v string) bool { return v == "1" }

// buildAccountBody maps the submission onto the account entity payload. On
// the update path the body additionally re-asserts lineage: the account's
// owner follows the lead's current owner and the originating-lead reference
// is always bound.
func buildAccountBody(sub *form.Submission, ids lookupIDs, leadOwnerID string, update bool) *Body {
	b := NewBody()

	b.Set("name", sub.CompanyName)
	b.Set("telephone1", sub.MainPhone)
	b.Set("emailaddress1", sub.Email)

	b.Bind("msdyn_customerpaymentmethod", "msdyn_customerpaymentmethods", ids.paymentMethod)
	b.Bind("msdyn_company", "cdm_companies", ids.branch)
	b.Bind("nw_StatisticGroup", "nw_statisticgroups", ids.statisticGroup)
	b.Bind("nw_ChefSegment", "nw_chefsegments", ids.chefSegment)
	b.Bind("nw_SubSegment", "nw_subsegments", ids.subSegment)
	b.Bind("nw_Classification1", "nw_classifications", ids.classification)

	b.Set("paymenttermscode", fixedPaymentTermsCode)

	b.Set("nw_tradenameoutletname", sub.TradeName)
	b.Set("nw_tradelicensenumber", sub.TradeLicenseNumber)
	b.Set("nw_licenseexpirydate", sub.LicenseExpiryDate)
	b.Set("nw_vatnumber", sub.VatNumber)
	b.Set("nw_establishmentcardnumber", sub.EstablishmentCardNumber)

	b.Set("nw_iscontactpersonsameaspurchasing", yes(sub.IsContactSameAsPurchasing))
	b.Set("nw_scontactpersonsameascompanyowner", yes(sub.IsContactSameAsCompanyOwner))
	b.Set("nw_issametocorporateaddress", yes(sub.IsSameAsCorporate))

	b.Set("address1_line1", sub.CorporateStreet)
	b.SetInt("shippingmethodcode", sub.CorporateShippingMethod)
	b.Set("address2_line1", sub.DeliveryStreet)
	b.SetInt("address2_shippingmethodcode", sub.DeliveryShippingMethod)
	b.Set("nw_address3street", sub.RegisteredStreet)

	b.Set("nw_estimatedpurchasevalue", sub.EstimatedPurchaseValue)
	b.Set("nw_estimatedmonthlypurchaseaed", sub.EstimatedMonthlyPurchase)
	b.Set("nw_amountofsecuritychequeamountaed", sub.SecurityChequeAmount)
	b.Set("nw_proposecreditlimit", sub.CreditLimit)
	b.Set("nw_proposecreditlimit1", sub.RequestedCreditLimit)

	b.Set("new_isecommerce", sub.Ecommerce)
	b.Set("new_reason", sub.Reason)
	b.Set("new_ifusinginventorysystem", sub.InventorySystem)

	// A proposed free-text term forces the companion flag on.
	if strings.TrimSpace(sub.ProposedPaymentTerms) != "" {
		b.Set("nw_proposeanotherterm", true)
		b.Set("nw_proposedpaymentterms", sub.ProposedPaymentTerms)
	}

	b.Bind("nw_Country11", "nw_countries", ids.corporateCountry)
	b.Bind("nw_City", "nw_cities", ids.corporateCity)
	b.Bind("nw_DeliveryCountry", "nw_countries", ids.deliveryCountry)
	b.Bind("nw_DeliveryCity", "nw_cities", ids.deliveryCity)
	b.Bind("nw_Countries", "nw_countries", ids.registeredCountry)
	b.Bind("nw_Cityregisteredaddress", "nw_cities", ids.registeredCity)

	b.Bind("originatingleadid", "leads", sub.LeadID)
	if update {
		b.Bind("ownerid", "systemusers", leadOwnerID)
	}

	return b
}

// checkMandatory raises when a required lookup did not resolve, carrying the
// generated payload for operator diagnosis. Must run before any mutation.
func checkMandatory(ids lookupIDs, b *Body) error {
	if missing := ids.missingMandatory(); len(missing) > 0 {
		return eris.Errorf("crmsync: required lookups not resolved (%s); payload: %s",
			strings.Join(missing, ", "), b.JSON())
	}
	return nil
}
