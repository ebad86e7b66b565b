package identity

import (
	"testing"
	"time"
)

func TestTokenGenerator_verify(t *testing.T) {
	gen := tokenGenerator{secret: []byte("secret"), ttl: 3 * 24 * time.Hour}
	cred := Credential{UID: "u1", Email: "anna@example.com", PasswordHash: []byte("hash")}

	validToken := gen.make(cred)

	// generate an expired token
	dayLate := gen.ttl + (24 * time.Hour)
	NowFunc = func() time.Time { return time.Now().Add(-dayLate) }
	expiredToken := gen.make(cred)
	NowFunc = time.Now // reset

	verified := cred
	verified.Verified = true
	otherSecret := tokenGenerator{secret: []byte("other"), ttl: gen.ttl}

	tests := []struct {
		name    string
		gen     tokenGenerator
		cred    Credential
		token   string
		wantErr error
	}{
		{name: "no token", gen: gen, cred: cred, wantErr: errInvalidToken},
		{name: "invalid parts len", gen: gen, cred: cred, token: "lmaooolol", wantErr: errInvalidToken},
		{name: "invalid base32", gen: gen, cred: cred, token: "hahaha-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid timestamp", gen: gen, cred: cred, token: "NRXWY-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid token", gen: gen, cred: cred, token: "HE4TS-sigsig-sig", wantErr: errInvalidToken},
		{name: "expired token", gen: gen, cred: cred, token: expiredToken, wantErr: errTokenExpired},
		{name: "already used", gen: gen, cred: verified, token: validToken, wantErr: errInvalidToken},
		{name: "other secret", gen: otherSecret, cred: cred, token: validToken, wantErr: errInvalidToken},
		{name: "valid token", gen: gen, cred: cred, token: validToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.gen.verify(tt.cred, tt.token); err != tt.wantErr {
				t.Errorf("verify() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
