package identity

// ProfileIdentity adapts a Profile into the Identity interface for token
// generation.
type ProfileIdentity struct {
	profile *Profile
}

// NewIdentityFromProfile returns an Identity adapter for the provided profile.
func NewIdentityFromProfile(profile *Profile) Identity {
	if profile == nil {
		return nil
	}
	return ProfileIdentity{profile: profile}
}

// SubjectID returns the provider subject the profile is keyed by.
func (u ProfileIdentity) SubjectID() string {
	if u.profile == nil {
		return ""
	}
	return u.profile.SubjectID
}

// Email returns the profile's email address.
func (u ProfileIdentity) Email() string {
	if u.profile == nil {
		return ""
	}
	return u.profile.Email
}

// EmailVerified reports true: a profile only exists once the provider has
// verified the subject.
func (u ProfileIdentity) EmailVerified() bool {
	return u.profile != nil
}

// DisplayName returns the profile's display name.
func (u ProfileIdentity) DisplayName() string {
	if u.profile == nil {
		return ""
	}
	return u.profile.Name
}

// AvatarURL returns the profile's avatar URL.
func (u ProfileIdentity) AvatarURL() string {
	if u.profile == nil {
		return ""
	}
	return u.profile.Avatar
}
