// Package crmsync implements the account onboarding sync: it resolves form
// display names against CRM reference data, builds the account payload,
// creates or updates the account, and fans out the dependent records
// (attachments, bank account, contact roles, lead status, notification).
package crmsync

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/chefme/onboarding-cli/internal/form"
	"github.com/chefme/onboarding-cli/pkg/dataverse"
)

// MirrorStore persists attachment bytes locally when reading an account
// snapshot.
type MirrorStore interface {
	// Save writes the file and returns its path.
	Save(name, recordID string, data []byte) (string, error)
}

// Engine orchestrates the form-to-CRM synchronization.
type Engine struct {
	dv       dataverse.Client
	lookups  *Lookups
	contacts *Contacts
	mirror   MirrorStore

	replicationDelay time.Duration
	waitAttempts     int
	waitDelay        time.Duration

	orgURL   string
	appID    string
	senderID string
}

// EngineOption configures the engine.
type EngineOption func(*Engine)

// WithMirror sets the local store that account snapshots mirror attachments
// into.
func WithMirror(store MirrorStore) EngineOption {
	return func(e *Engine) { e.mirror = store }
}

// WithReplicationDelay sets the pause between contact creation and linking
// it onto the account, covering CRM replication lag.
func WithReplicationDelay(d time.Duration) EngineOption {
	return func(e *Engine) { e.replicationDelay = d }
}

// WithAvailabilityWait sets the attempt budget and per-attempt delay for
// polling a freshly created account into queryability.
func WithAvailabilityWait(attempts int, delay time.Duration) EngineOption {
	return func(e *Engine) {
		if attempts > 0 {
			e.waitAttempts = attempts
		}
		if delay > 0 {
			e.waitDelay = delay
		}
	}
}

// WithRecordLink sets the organization URL and model-driven app id used to
// build deep links into the CRM.
func WithRecordLink(orgURL, appID string) EngineOption {
	return func(e *Engine) {
		e.orgURL = strings.TrimRight(orgURL, "/")
		e.appID = appID
	}
}

// WithNotificationSender sets the system user the notification email is sent
// from. When unset the email carries only the recipient party.
func WithNotificationSender(userID string) EngineOption {
	return func(e *Engine) { e.senderID = userID }
}

// NewEngine creates a sync engine on top of the CRM client.
func NewEngine(dv dataverse.Client, opts ...EngineOption) *Engine {
	e := &Engine{
		dv:               dv,
		lookups:          NewLookups(dv),
		contacts:         NewContacts(dv),
		replicationDelay: 10 * time.Second,
		waitAttempts:     10,
		waitDelay:        time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// resolveLookups maps every display name on the form to a CRM id. The
// company (branch) resolves first because the scoped lookups filter within
// it. Unresolved values come back empty; only token and transport failures
// error.
func (e *Engine) resolveLookups(ctx context.Context, sub *form.Submission) (lookupIDs, error) {
	var ids lookupIDs
	var err error

	ids.branch, err = e.lookups.Unscoped(ctx, "cdm_companies", "cdm_companyid", "cdm_companycode", sub.Branch)
	if err != nil {
		return ids, err
	}

	ids.paymentMethod, err = e.lookups.Scoped(ctx, "msdyn_customerpaymentmethods", "msdyn_customerpaymentmethodid",
		"msdyn_name", strings.ToUpper(sub.CustomerPaymentMethod), "_msdyn_company_value", ids.branch)
	if err != nil {
		return ids, err
	}
	ids.statisticGroup, err = e.lookups.Scoped(ctx, "nw_statisticgroups", "nw_statisticgroupid",
		"nw_name", sub.StatisticGroup, "_nw_company_value", ids.branch)
	if err != nil {
		return ids, err
	}
	ids.chefSegment, err = e.lookups.Scoped(ctx, "nw_chefsegments", "nw_chefsegmentid",
		"nw_name", sub.ChefSegment, "_nw_company_value", ids.branch)
	if err != nil {
		return ids, err
	}
	ids.subSegment, err = e.lookups.Scoped(ctx, "nw_subsegments", "nw_subsegmentid",
		"nw_name", sub.SubSegment, "_nw_company_value", ids.branch)
	if err != nil {
		return ids, err
	}
	ids.classification, err = e.lookups.Scoped(ctx, "nw_classifications", "nw_classificationid",
		"nw_name", sub.Classification, "_nw_company_value", ids.branch)
	if err != nil {
		return ids, err
	}

	ids.corporateCountry, err = e.lookups.Unscoped(ctx, "nw_countries", "nw_countryid", "nw_description", sub.CorporateCountry)
	if err != nil {
		return ids, err
	}
	ids.corporateCity, err = e.lookups.Unscoped(ctx, "nw_cities", "nw_cityid", "nw_name", sub.CorporateCity)
	if err != nil {
		return ids, err
	}
	ids.deliveryCountry, err = e.lookups.Unscoped(ctx, "nw_countries", "nw_countryid", "nw_description", sub.DeliveryCountry)
	if err != nil {
		return ids, err
	}
	ids.deliveryCity, err = e.lookups.Unscoped(ctx, "nw_cities", "nw_cityid", "nw_name", sub.DeliveryCity)
	if err != nil {
		return ids, err
	}
	ids.registeredCountry, err = e.lookups.Unscoped(ctx, "nw_countries", "nw_countryid", "nw_description", sub.RegisteredCountry)
	if err != nil {
		return ids, err
	}
	ids.registeredCity, err = e.lookups.Unscoped(ctx, "nw_cities", "nw_cityid", "nw_name", sub.RegisteredCity)
	if err != nil {
		return ids, err
	}

	return ids, nil
}

// Create builds the account from the submission and creates it in the CRM,
// then fans out attachments, bank details, and contact roles. Required
// lookups must resolve before any record is written.
func (e *Engine) Create(ctx context.Context, sub *form.Submission) error {
	ids, err := e.resolveLookups(ctx, sub)
	if err != nil {
		return err
	}

	body := buildAccountBody(sub, ids, "", false)
	if err := checkMandatory(ids, body); err != nil {
		return err
	}

	accountID, err := e.dv.Create(ctx, "accounts", body)
	if err != nil {
		return eris.Wrap(err, "create account")
	}
	if accountID == "" {
		zap.L().Warn("account created without a Location id, skipping dependent records",
			zap.String("company", sub.CompanyName))
		return nil
	}
	zap.L().Info("created account",
		zap.String("accountID", accountID),
		zap.String("company", sub.CompanyName))

	return e.syncDependents(ctx, sub, accountID)
}

// UpdateByLead syncs the submission onto the account originated by leadID,
// creating the account first when none exists yet. advanceLead moves the
// lead to its submitted status after a successful sync.
func (e *Engine) UpdateByLead(ctx context.Context, leadID string, sub *form.Submission, advanceLead bool) error {
	sub.LeadID = leadID

	accountID, err := e.AccountIDByLead(ctx, leadID)
	if err != nil {
		return err
	}
	leadOwnerID, err := e.LeadOwnerID(ctx, leadID)
	if err != nil {
		return err
	}

	ids, err := e.resolveLookups(ctx, sub)
	if err != nil {
		return err
	}

	body := buildAccountBody(sub, ids, leadOwnerID, true)
	if err := checkMandatory(ids, body); err != nil {
		return err
	}

	if accountID == "" {
		accountID, err = e.dv.Create(ctx, "accounts", body)
		if err != nil {
			return eris.Wrap(err, "create account")
		}
		if accountID == "" {
			accountID, err = e.WaitForAccount(ctx, leadID)
			if err != nil {
				return err
			}
			if accountID == "" {
				return eris.Errorf("account for lead %s not queryable after create", leadID)
			}
		}
		zap.L().Info("created account for lead",
			zap.String("accountID", accountID),
			zap.String("leadID", leadID))
	} else {
		if err := e.dv.Update(ctx, "accounts", accountID, body); err != nil {
			return eris.Wrapf(err, "update account %s", accountID)
		}
		zap.L().Info("updated account",
			zap.String("accountID", accountID),
			zap.String("leadID", leadID))
	}

	if err := e.syncDependents(ctx, sub, accountID); err != nil {
		return err
	}

	if advanceLead {
		// Best effort: a lead already past this status rejects the change.
		if err := e.AdvanceLeadStatus(ctx, leadID); err != nil {
			zap.L().Warn("advance lead status failed",
				zap.String("leadID", leadID),
				zap.Error(err))
		}
	}

	return e.SendUpdateNotification(ctx, leadID, accountID)
}

// syncDependents writes the records hanging off the account: file
// attachments (failures isolated per file), the bank account (best effort),
// and the three contact roles.
func (e *Engine) syncDependents(ctx context.Context, sub *form.Submission, accountID string) error {
	e.uploadAttachments(ctx, sub, accountID)
	e.syncBankAccount(ctx, sub, accountID)
	return e.syncContacts(ctx, sub, accountID)
}

// uploadAttachments pushes every present attachment into its file column.
// One failed upload never blocks the rest.
func (e *Engine) uploadAttachments(ctx context.Context, sub *form.Submission, accountID string) {
	for _, kind := range form.Kinds() {
		att, ok := sub.Attachments[kind]
		if !ok || len(att.Data) == 0 {
			continue
		}
		err := e.dv.UploadFile(ctx, "account", accountID, kind.Attribute(), att.Data, att.FileName)
		if err != nil {
			zap.L().Warn("attachment upload failed",
				zap.String("kind", string(kind)),
				zap.String("fileName", att.FileName),
				zap.String("accountID", accountID),
				zap.Error(err))
			continue
		}
		zap.L().Debug("uploaded attachment",
			zap.String("kind", string(kind)),
			zap.String("fileName", att.FileName))
	}
}

// syncBankAccount creates the bank account record and links it onto the
// account. Both steps are best effort.
func (e *Engine) syncBankAccount(ctx context.Context, sub *form.Submission, accountID string) {
	if !sub.HasBankDetails() {
		return
	}
	// nw_name is the bank record's primary column and carries the account
	// number.
	body := map[string]any{
		"nw_name":        sub.BankAccountNumber,
		"nw_bank":        sub.Bank,
		"nw_bankname":    sub.BankName,
		"nw_bankaddress": sub.BankAddress,
		"nw_swiftcode":   sub.SwiftCode,
		"nw_ibannumber":  sub.IbanNumber,
		"nw_Accountid@odata.bind": "/accounts(" + accountID + ")",
	}
	bankID, err := e.dv.Create(ctx, "nw_bankaccounts", body)
	if err != nil {
		zap.L().Warn("create bank account failed",
			zap.String("accountID", accountID),
			zap.Error(err))
		return
	}
	if bankID == "" {
		return
	}
	err = e.dv.Update(ctx, "accounts", accountID, map[string]any{
		"nw_BankAccount@odata.bind": "/nw_bankaccounts(" + bankID + ")",
	})
	if err != nil {
		zap.L().Warn("link bank account failed",
			zap.String("accountID", accountID),
			zap.String("bankAccountID", bankID),
			zap.Error(err))
	}
}

// syncContacts creates or reuses the contact for each person role and links
// it onto the account. Contact creation and the owner and purchasing links
// are load bearing; only the primary contact link degrades to a warning.
// Without a lead there is no owner to assign contacts to, so the roles are
// skipped.
func (e *Engine) syncContacts(ctx context.Context, sub *form.Submission, accountID string) error {
	if sub.LeadID == "" {
		zap.L().Warn("no lead on submission, skipping contact roles",
			zap.String("accountID", accountID))
		return nil
	}
	leadOwnerID, err := e.LeadOwnerID(ctx, sub.LeadID)
	if err != nil {
		return err
	}

	picID, err := e.contacts.CreateOrGet(ctx, accountID, leadOwnerID, sub.PersonInCharge)
	if err != nil {
		return err
	}
	if picID != "" {
		err = e.dv.Update(ctx, "accounts", accountID, map[string]any{
			"primarycontactid@odata.bind": "/contacts(" + picID + ")",
		})
		if err != nil {
			zap.L().Warn("link primary contact failed",
				zap.String("accountID", accountID),
				zap.String("contactID", picID),
				zap.Error(err))
		}
	}

	if !sub.CompanyOwner.Empty() {
		ownerContactID, err := e.contacts.CreateOrGet(ctx, accountID, leadOwnerID, sub.CompanyOwner)
		if err != nil {
			return err
		}
		// Give the CRM time to replicate the new contact before binding it.
		if err := sleep(ctx, e.replicationDelay); err != nil {
			return err
		}
		if ownerContactID != "" {
			err = e.dv.Update(ctx, "accounts", accountID, map[string]any{
				"nw_Owner@odata.bind": "/contacts(" + ownerContactID + ")",
			})
			if err != nil {
				return eris.Wrapf(err, "link owner contact %s", ownerContactID)
			}
		}
	}

	if !sub.PurchasingPerson.Empty() {
		purchasingID, err := e.contacts.CreateOrGet(ctx, accountID, leadOwnerID, sub.PurchasingPerson)
		if err != nil {
			return err
		}
		if purchasingID != "" {
			err = e.dv.Update(ctx, "accounts", accountID, map[string]any{
				"nw_Purchasingperson@odata.bind": "/contacts(" + purchasingID + ")",
			})
			if err != nil {
				return eris.Wrapf(err, "link purchasing contact %s", purchasingID)
			}
		}
	}

	return nil
}
