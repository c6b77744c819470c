// Package identitytest issues RS256 ID tokens the way securetoken does, for
// tests that need tokens a Verifier accepts or rejects.
package identitytest

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/2beens/fitlog/internal/identity"
)

const ProjectID = "fitlog-test"

type Signer struct {
	ProjectID string
	KeyID     string

	key     *rsa.PrivateKey
	foreign *rsa.PrivateKey
}

func NewSigner(projectID string) (*Signer, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}
	foreign, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}
	return &Signer{
		ProjectID: projectID,
		KeyID:     "key-" + projectID,
		key:       key,
		foreign:   foreign,
	}, nil
}

// Keyfunc resolves the signer's public key by kid.
func (s *Signer) Keyfunc(token *jwt.Token) (any, error) {
	if kid, _ := token.Header["kid"].(string); kid != s.KeyID {
		return nil, fmt.Errorf("unknown kid [%v]", token.Header["kid"])
	}
	return &s.key.PublicKey, nil
}

func (s *Signer) Verifier() *identity.Verifier {
	return identity.NewVerifier(s.ProjectID, s.Keyfunc)
}

// JWKS is the signer's public key as a JWK set document.
func (s *Signer) JWKS() []byte {
	pub := s.key.PublicKey
	doc := map[string]any{
		"keys": []map[string]string{{
			"kty": "RSA",
			"use": "sig",
			"alg": jwt.SigningMethodRS256.Alg(),
			"kid": s.KeyID,
			"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}},
	}
	raw, _ := json.Marshal(doc)
	return raw
}

// Claims returns valid claims for uid, expiring at exp.
func (s *Signer) Claims(uid, email string, exp time.Time) identity.Claims {
	return identity.Claims{
		UserID: uid,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "https://securetoken.google.com/" + s.ProjectID,
			Audience:  jwt.ClaimStrings{s.ProjectID},
			Subject:   uid,
			IssuedAt:  jwt.NewNumericDate(exp.Add(-time.Hour)),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
}

func (s *Signer) Token(uid, email string, exp time.Time) (string, error) {
	return s.Sign(s.Claims(uid, email, exp))
}

func (s *Signer) Sign(claims identity.Claims) (string, error) {
	return s.sign(s.key, claims)
}

// SignForeign signs with a key that is not published, under the signer's kid.
func (s *Signer) SignForeign(claims identity.Claims) (string, error) {
	return s.sign(s.foreign, claims)
}

func (s *Signer) sign(key *rsa.PrivateKey, claims identity.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = s.KeyID
	return token.SignedString(key)
}

// Unsigned returns the claims as an alg none token.
func Unsigned(claims identity.Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
}

// SignHMAC returns the claims signed with a shared secret, under kid.
func SignHMAC(claims identity.Claims, kid string, secret []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = kid
	return token.SignedString(secret)
}
