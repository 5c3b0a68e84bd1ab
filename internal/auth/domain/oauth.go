package domain

import "time"

// OAuthAccount links a user to an identity at an external provider.
// There is at most one link per (user, provider).
type OAuthAccount struct {
	ID             string
	UserID         string
	Provider       AuthProvider
	ProviderUserID string
	ProviderEmail  string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ProfileDraft is a provider profile normalised into our shape. It becomes a
// User only once a role is known.
type ProfileDraft struct {
	Provider       AuthProvider
	ProviderUserID string
	Email          string
	FirstName      string
	LastName       string
	Picture        string
}

// FederatedIdentity is the outcome of resolving a provider profile: exactly
// one of Existing or Pending is set.
type FederatedIdentity struct {
	Existing *User
	Pending  *ProfileDraft
}

func ExistingIdentity(u User) FederatedIdentity { return FederatedIdentity{Existing: &u} }

func PendingIdentity(d ProfileDraft) FederatedIdentity { return FederatedIdentity{Pending: &d} }

func (f FederatedIdentity) IsPending() bool { return f.Pending != nil }
