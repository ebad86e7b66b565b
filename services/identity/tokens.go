package identity

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var (
	salt    = []byte("littledragons.services.identity.tokens")
	b32     = base32.StdEncoding.WithPadding(base32.NoPadding)
	NowFunc = time.Now // mockable

	errInvalidToken = errors.New("invalid token")
	errTokenExpired = errors.New("token expired")
)

// tokenGenerator makes e-mail confirmation tokens. A token stops being valid once the
// credential's e-mail, pending e-mail or verified flag changes.
type tokenGenerator struct {
	secret []byte
	ttl    time.Duration
}

func (g tokenGenerator) make(cred Credential) string {
	return g.makeWithTimestamp(cred, numDaysSince2001(NowFunc()))
}

func (g tokenGenerator) verify(cred Credential, token string) error {
	if token == "" {
		return errInvalidToken
	}
	parts := strings.SplitN(token, "-", 2)
	if len(parts) < 2 {
		return errInvalidToken
	}

	data, err := b32.DecodeString(parts[0])
	if err != nil {
		return errInvalidToken
	}
	ts, err := strconv.Atoi(string(data))
	if err != nil {
		return errInvalidToken
	}

	// check that token has not been tampered with
	if subtle.ConstantTimeCompare([]byte(g.makeWithTimestamp(cred, ts)), []byte(token)) == 0 {
		return errInvalidToken
	}

	// check that the timestamp is within limit
	if numDaysSince2001(NowFunc())-ts > int(g.ttl/(24*time.Hour)) {
		return errTokenExpired
	}
	return nil
}

func (g tokenGenerator) makeWithTimestamp(cred Credential, ts int) string {
	tsB32 := b32.EncodeToString([]byte(strconv.Itoa(ts)))
	return fmt.Sprintf("%s-%s", tsB32, g.sign(hashValue(cred, ts)))
}

func (g tokenGenerator) sign(val []byte) string {
	key := sha256.Sum256(append(append([]byte(nil), salt...), g.secret...))
	h := hmac.New(sha256.New, key[:])
	_, _ = h.Write(val)
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

func numDaysSince2001(t time.Time) int {
	ref := time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)
	return int(math.Ceil(t.Sub(ref).Hours() / 24))
}

func hashValue(cred Credential, ts int) []byte {
	var val bytes.Buffer
	val.WriteString(cred.UID)
	val.WriteString(cred.Email)
	val.WriteString(cred.PendingEmail)
	val.WriteString(strconv.FormatBool(cred.Verified))
	val.Write(cred.PasswordHash)
	val.WriteString(strconv.Itoa(ts))
	return val.Bytes()
}
