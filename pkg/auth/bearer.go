package auth

// BearerChallenge is the WWW-Authenticate value for a rejected bearer
// request.
const BearerChallenge = "Bearer"

// CheckBearer accepts any non-empty token presented with the Bearer scheme.
func CheckBearer(authorization string) Outcome {
	token, reason := splitScheme(authorization, "Bearer")
	if reason != "" {
		return reject(reason)
	}
	if token == "" {
		return reject(ReasonMalformedCredential)
	}
	return Outcome{State: Verified, Token: token}
}
