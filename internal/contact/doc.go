// Package contact accepts messages from the site's contact form.
//
// A submission is validated, stored in the inbox, logged in summary form and
// then relayed by mail and push notification when those are configured. Relay
// problems never reach the submitter: once the message is stored the request
// succeeds.
package contact
