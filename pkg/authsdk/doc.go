/*
Package authsdk is a Go client for the Town Hall authentication service, and
the home of the JSON shapes the service speaks.

# Overview

Client wraps the public endpoints. A successful Login returns a Session that
carries the token pair and refreshes the access token on its own:

	client := authsdk.NewClient("http://localhost:8080")

	if err := client.Register(ctx, authsdk.RegisterRequest{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Password:  "Str0ng!Pass",
		Role:      "DEVELOPER",
	}); err != nil {
		return err
	}

	// The code arrives by e-mail.
	if err := client.Verify(ctx, "ada@example.com", otp); err != nil {
		return err
	}

	session, err := client.Login(ctx, "ada@example.com", "Str0ng!Pass")
	if err != nil {
		return err
	}
	me, err := session.Me(ctx)

# Errors

Every non-2xx response is returned as *APIError. Compare the Code field with
the ErrorCode constants, or use errors.Is against the predefined errors:

	if errors.Is(err, authsdk.ErrNotVerified) {
		// ask the user for the e-mailed code
	}

# Token refresh

Access tokens live for 15 minutes. A Session reads the expiry from the token
and exchanges its refresh token shortly before it lapses. Refresh tokens are
not rotated, so Logout is the only way a Session's refresh token stops working
before its 30 days are up.

# Thread Safety

Sessions are safe for concurrent use.
*/
package authsdk
