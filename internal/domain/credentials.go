package domain

import "time"

// WorksCredentialForm discriminates the mutually exclusive ways of signing in
// to the task-management side.
type WorksCredentialForm string

const (
	WorksCredentialAccessToken  WorksCredentialForm = "access_token"
	WorksCredentialPasswordHash WorksCredentialForm = "password_hash"
	WorksCredentialPassword     WorksCredentialForm = "password"
)

// WorksCredentials holds exactly one credential form. Use the constructors;
// the zero value is invalid and rejected at sign-in.
type WorksCredentials struct {
	Form         WorksCredentialForm
	UserName     string
	Password     string
	PasswordHash string
	AccessToken  string
}

func WorksByAccessToken(token string) WorksCredentials {
	return WorksCredentials{Form: WorksCredentialAccessToken, AccessToken: token}
}

func WorksByPasswordHash(userName, passwordHash string) WorksCredentials {
	return WorksCredentials{Form: WorksCredentialPasswordHash, UserName: userName, PasswordHash: passwordHash}
}

func WorksByPassword(userName, password string) WorksCredentials {
	return WorksCredentials{Form: WorksCredentialPassword, UserName: userName, Password: password}
}

func (c WorksCredentials) Valid() bool {
	switch c.Form {
	case WorksCredentialAccessToken:
		return c.AccessToken != ""
	case WorksCredentialPasswordHash:
		return c.UserName != "" && c.PasswordHash != ""
	case WorksCredentialPassword:
		return c.UserName != "" && c.Password != ""
	}
	return false
}

// MarketSession is the authenticated session handle returned by a marketplace
// sign-in. One session per controller instance.
type MarketSession struct {
	UserID      string
	AccessToken string
	ExpiresAt   time.Time
}

func (s MarketSession) Valid() bool {
	return s.AccessToken != ""
}

// DefaultAccessTokenLifetime is the marketplace token lifetime requested when
// the caller does not specify one. Sent over the wire in milliseconds.
const DefaultAccessTokenLifetime = 7 * 24 * time.Hour
