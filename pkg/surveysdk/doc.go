/*
Package surveysdk is a client for the AliMatrix survey service.

# Client and Session

Client covers the public survey flow. Every write to the survey API must
carry a CSRF token, which the client fetches first:

	client := surveysdk.NewClient("https://alimatrix.example.pl")
	client.Origin = "https://alimatrix.example.pl"
	client.Fingerprint = fingerprint

	tok, err := client.CSRFToken(ctx)
	res, err := client.Submit(ctx, tok.Token, form)

A token is single use. Fetch a new one before every submission.

Session covers the admin API and is opened with AdminLogin:

	session, err := client.AdminLogin(ctx, "admin", password, totpCode)
	stats, err := session.Statistics(ctx, 30)

Admin sessions are short lived and are not refreshed. Once one expires,
calls return ErrSessionExpired.

# Errors

Non-success replies are returned as *APIError carrying the status code and
the server's Polish message. IsRateLimited, IsForbidden and IsConflict
cover the cases callers usually branch on.
*/
package surveysdk
