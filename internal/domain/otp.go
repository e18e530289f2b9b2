package domain

// OtpChallenge is the pending registration kept in the ephemeral store until
// the e-mailed code is verified, the TTL lapses or attempts run out.
type OtpChallenge struct {
	Email        string
	Name         string
	PasswordHash string
	Code         string
	Attempts     int
}
