package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// ErrVerificationFailed means the submitted signature did not prove the
// payment came from the gateway. The order stays unconfirmed; it is never
// auto-cancelled on this error.
var ErrVerificationFailed = errors.New("payment verification failed")

// Verifier is the trust boundary between a client's "I paid" claim and the
// order being marked Paid.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify recomputes the gateway signature over "intentID|paymentID" and
// compares it in constant time. Any mismatch, including malformed input,
// yields false.
func (v *Verifier) Verify(intentID, paymentID, signature string) bool {
	if intentID == "" || paymentID == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(intentID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
