// Package signing generates and verifies HMAC signed links to render
// artifacts.
package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// Query parameter names carried by a signed link.
const (
	ParamExpires   = "expires"
	ParamSignature = "signature"
)

// Signer generates and validates HMAC based signatures.
type Signer struct {
	secret []byte
}

// NewSigner creates a Signer.
func NewSigner(secret []byte) *Signer {
	return &Signer{secret: secret}
}

// ReportResource names the render report of one line item.
func ReportResource(orderID, lineItemID string) string {
	return "report:" + orderID + "/" + lineItemID
}

// Sign returns the hex signature for inputs.
func (s *Signer) Sign(resource string, expiresUnix int64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s:%d", resource, expiresUnix)
	return hex.EncodeToString(mac.Sum(nil))
}

// Query returns the expires and signature parameters for a link to resource
// that stays valid for ttl.
func (s *Signer) Query(resource string, ttl time.Duration, now time.Time) url.Values {
	exp := now.Add(ttl).Unix()
	return url.Values{
		ParamExpires:   {strconv.FormatInt(exp, 10)},
		ParamSignature: {s.Sign(resource, exp)},
	}
}

// Validate compares the provided signature with the expected one and rejects
// links whose expiry has passed.
func (s *Signer) Validate(resource, expires, signature string, now time.Time) bool {
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return false
	}
	if now.Unix() > exp {
		return false
	}
	expected := s.Sign(resource, exp)
	// Constant-time comparison.
	return hmac.Equal([]byte(expected), []byte(signature))
}
