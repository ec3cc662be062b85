package form

// Kind identifies one of the nine supporting-document slots on the account.
// The value doubles as the base name for locally mirrored copies.
type Kind string

const (
	KindTradeLicense      Kind = "tradeLicense"
	KindVATCertificate    Kind = "vatCertificate"
	KindPowerOfAttorney   Kind = "powerOfAttorney"
	KindPassport          Kind = "passport"
	KindVisa              Kind = "visa"
	KindEmiratesID        Kind = "emiratesId"
	KindChequeCopy        Kind = "checkCopy"
	KindAccountOpening    Kind = "accountOpeningFile"
	KindEstablishmentCard Kind = "establishmentCardCopy"
)

// attachmentAttributes maps each slot to its file column on the account
// entity.
var attachmentAttributes = map[Kind]string{
	KindTradeLicense:      "nw_tradecommerciallicensenoattachlicense",
	KindVATCertificate:    "nw_vattrnattachcertificate",
	KindPowerOfAttorney:   "nw_powerofattorney",
	KindPassport:          "nw_passport",
	KindVisa:              "nw_visa",
	KindEmiratesID:        "nw_emiratesidcard",
	KindChequeCopy:        "nw_checkcopy",
	KindAccountOpening:    "nw_accountopeningfile",
	KindEstablishmentCard: "nw_establishmentcardcopy",
}

// Kinds returns all attachment slots in a fixed order.
func Kinds() []Kind {
	return []Kind{
		KindVATCertificate,
		KindTradeLicense,
		KindAccountOpening,
		KindPowerOfAttorney,
		KindPassport,
		KindVisa,
		KindEmiratesID,
		KindChequeCopy,
		KindEstablishmentCard,
	}
}

// Attribute returns the account file column for the slot.
func (k Kind) Attribute() string {
	return attachmentAttributes[k]
}

// Valid reports whether k names a known attachment slot.
func (k Kind) Valid() bool {
	_, ok := attachmentAttributes[k]
	return ok
}

// Attachment is one uploaded document.
type Attachment struct {
	FileName string
	Data     []byte
}

// AttachmentSet holds the documents present on a submission, keyed by slot.
type AttachmentSet map[Kind]Attachment

// Present reports whether the slot holds a non-empty document.
func (s AttachmentSet) Present(k Kind) bool {
	a, ok := s[k]
	return ok && len(a.Data) > 0 && a.FileName != ""
}
