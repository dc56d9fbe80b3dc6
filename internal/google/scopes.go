package google

import gmail "google.golang.org/api/gmail/v1"

// DefaultOAuthScopes are the scopes cmsledger requests. Sending is the only
// Gmail operation the tool performs.
var DefaultOAuthScopes = []string{
	gmail.GmailSendScope,
}
