// Package gmail sends case emails through the Gmail API.
//
// Client is a thin send-only wrapper over gmail/v1. Sender adds the ledger
// rule on top of it: an email is reported as sent only after it was recorded
// as pending, so every delivered email eventually gets a CMS note. In test
// mode Sender redirects the email to the test inbox and remembers the
// intended recipient.
//
//	httpClient, err := google.HTTPClient(ctx, google.ConfigFromEnv())
//	client, err := gmail.NewClient(ctx, httpClient)
//	sender := gmail.NewSender(client, tracker.New(store))
//	res, err := sender.Send(ctx, gmail.Outgoing{
//		To:        "attorney@lawfirm.example",
//		Subject:   "Status request",
//		Body:      "...",
//		CaseID:    "1001",
//		EmailType: "status_request",
//	})
package gmail
