// Package form defines the onboarding submission DTO handed to the sync
// engine: the flat business fields collected by the web form plus the
// optional binary attachments. A Submission is owned by the caller and
// treated as immutable once passed in.
package form

// Submission is the validated onboarding form. Yes/no questions carry the UI
// values "1"/"0"; lookups carry display names resolved to CRM ids by the
// engine.
type Submission struct {
	LeadID string `json:"leadId"`

	// Company identity
	CompanyName             string `json:"companyName"`
	TradeName               string `json:"tradeName"`
	TradeLicenseNumber      string `json:"tradeLicenseNumber"`
	LicenseExpiryDate       string `json:"licenseExpiryDate"`
	VatNumber               string `json:"vatNumber"`
	EstablishmentCardNumber string `json:"establishmentCardNumber"`
	MainPhone               string `json:"mainPhone"`
	Email                   string `json:"email"`
	Branch                  string `json:"branch"`
	Classification          string `json:"classification"`
	StatisticGroup          string `json:"statisticGroup"`
	ChefSegment             string `json:"chefSegment"`
	SubSegment              string `json:"subSegment"`
	Reason                  string `json:"reason"`
	Ecommerce               string `json:"ecommerce"`
	InventorySystem         string `json:"inventorySystem"`

	// Corporate address
	CorporateStreet         string `json:"corporateStreet"`
	CorporateCountry        string `json:"corporateCountry"`
	CorporateCity           string `json:"corporateCity"`
	CorporateShippingMethod string `json:"corporateShippingMethod"`

	// Delivery address
	DeliveryStreet         string `json:"deliveryStreet"`
	DeliveryCountry        string `json:"deliveryCountry"`
	DeliveryCity           string `json:"deliveryCity"`
	DeliveryShippingMethod string `json:"deliveryShippingMethod"`
	IsSameAsCorporate      string `json:"isSameAsCorporateAddress"`

	// Registered address
	RegisteredStreet  string `json:"registeredStreet"`
	RegisteredCountry string `json:"registeredCountry"`
	RegisteredCity    string `json:"registeredCity"`

	// Financial terms
	CustomerPaymentMethod    string `json:"customerPaymentMethod"`
	PaymentTerms             string `json:"paymentTerms"`
	ProposedPaymentTerms     string `json:"proposedPaymentTerms"`
	CreditLimit              string `json:"creditLimit"`
	RequestedCreditLimit     string `json:"requestedCreditLimit"`
	EstimatedPurchaseValue   string `json:"estimatedPurchaseValue"`
	EstimatedMonthlyPurchase string `json:"estimatedMonthlyPurchase"`
	SecurityChequeAmount     string `json:"securityChequeAmount"`

	// Contact roles
	PersonInCharge                  Contact `json:"personInCharge"`
	CompanyOwner                    Contact `json:"companyOwner"`
	PurchasingPerson                Contact `json:"purchasingPerson"`
	IsContactSameAsPurchasing       string  `json:"isContactPersonSameAsPurchasing"`
	IsContactSameAsCompanyOwner     string  `json:"isContactPersonSameAsCompanyOwner"`

	// Bank details
	BankAccountNumber string `json:"bankAccountNumber"`
	Bank              string `json:"bank"`
	BankName          string `json:"bankName"`
	BankAddress       string `json:"bankAddress"`
	SwiftCode         string `json:"swiftCode"`
	IbanNumber        string `json:"ibanNumber"`

	// Lead state, populated on prefill reads.
	StatusCode string `json:"statusCode,omitempty"`

	// Attachments keyed by kind. May be nil.
	Attachments AttachmentSet `json:"-"`
}

// Contact is one of the three role sub-records on the form.
type Contact struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Role      string `json:"role"`
}

// Empty reports whether the contact has no name, email, or phone at all.
func (c Contact) Empty() bool {
	return c.FirstName == "" && c.LastName == "" && c.Email == "" && c.Phone == ""
}

// HasName reports whether the contact carries at least a first or last name,
// the minimum for contact creation.
func (c Contact) HasName() bool {
	return c.FirstName != "" || c.LastName != ""
}

// HasBankDetails reports whether any bank field is non-empty; the bank
// account record is created only in that case.
func (s *Submission) HasBankDetails() bool {
	return s.BankAccountNumber != "" || s.Bank != "" || s.BankName != "" ||
		s.BankAddress != "" || s.SwiftCode != "" || s.IbanNumber != ""
}
