package crmsync

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/chefme/onboarding-cli/pkg/dataverse"
)

// activity party participation masks.
const (
	partySender    = 1
	partyRecipient = 2
)

// SendUpdateNotification creates a CRM email activity addressed to the
// lead's owner announcing that the onboarding form for the lead was
// submitted, then issues the send. The email is regarding the account so it
// shows up on the record's timeline.
func (e *Engine) SendUpdateNotification(ctx context.Context, leadID, accountID string) error {
	lead, err := e.dv.GetRecord(ctx, "leads", leadID, dataverse.Query{
		Select: []string{"fullname", "emailaddress1", "_ownerid_value"},
	})
	if err != nil {
		return eris.Wrapf(err, "read lead %s for notification", leadID)
	}
	ownerID, _ := lead["_ownerid_value"].(string)
	if ownerID == "" {
		return eris.Errorf("lead %s has no owner to notify", leadID)
	}

	owner, err := e.dv.GetRecord(ctx, "systemusers", ownerID, dataverse.Query{
		Select: []string{"fullname", "internalemailaddress"},
	})
	if err != nil {
		return eris.Wrapf(err, "read owner %s for notification", ownerID)
	}

	leadName, _ := lead["fullname"].(string)
	ownerName, _ := owner["fullname"].(string)

	description := fmt.Sprintf(
		"<p>Hi %s,</p><p>The onboarding form for lead <b>%s</b> has been submitted and the account record was updated.</p><p><a href=%q>Open the account</a></p>",
		ownerName, leadName, e.recordLink(accountID))

	parties := []map[string]any{
		{
			"partyid_systemuser@odata.bind": "/systemusers(" + ownerID + ")",
			"participationtypemask":         partyRecipient,
		},
	}
	if e.senderID != "" {
		parties = append(parties, map[string]any{
			"partyid_systemuser@odata.bind": "/systemusers(" + e.senderID + ")",
			"participationtypemask":         partySender,
		})
	}

	now := time.Now().UTC().Format(time.RFC3339)
	activity := map[string]any{
		"subject":        fmt.Sprintf("Onboarding form submitted: %s", leadName),
		"description":    description,
		"directioncode":  true,
		"scheduledstart": now,
		"scheduledend":   now,
		"regardingobjectid_account@odata.bind": "/accounts(" + accountID + ")",
		"email_activity_parties":               parties,
	}

	activityID, err := e.dv.Create(ctx, "emails", activity)
	if err != nil {
		return eris.Wrap(err, "create notification email")
	}
	if activityID == "" {
		return eris.New("notification email created without an id")
	}

	action := fmt.Sprintf("emails(%s)/Microsoft.Dynamics.CRM.SendEmail", activityID)
	if err := e.dv.Execute(ctx, action, map[string]any{"IssueSend": true}, nil); err != nil {
		return eris.Wrap(err, "send notification email")
	}

	zap.L().Info("sent update notification",
		zap.String("leadID", leadID),
		zap.String("accountID", accountID),
		zap.String("activityID", activityID))
	return nil
}
