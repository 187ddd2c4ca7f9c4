package engine

import (
	"context"
	"crypto/rand"
	"fmt"

	"github.com/shopvoice/shopvoice/internal/apperr"
	"github.com/shopvoice/shopvoice/internal/domain"
	"github.com/shopvoice/shopvoice/internal/intent"
)

// otpChallengeKey is the cache key an OTPChallenge for customerID is
// stored under.
func otpChallengeKey(customerID string) string {
	return "otp-challenge:" + customerID
}

// generateOTP returns a random 6-digit code.
func generateOTP() (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	n := (int(b[0])<<24 | int(b[1])<<16 | int(b[2])<<8 | int(b[3])) % 1000000
	if n < 0 {
		n = -n
	}
	return fmt.Sprintf("%06d", n), nil
}

// handleDeleteCustomerData implements the two-phase admin-only data
// deletion: phase 1 issues an OTP via e-mail; phase 2, the same intent
// repeated with entities.otp matching the stored challenge, performs the
// irreversible delete within a single transaction.
//
// Admin authorization is assumed to have already been enforced by the
// channel-level policy hook before the intent reaches the engine; this
// handler only implements the OTP gate itself.
func (e *Engine) handleDeleteCustomerData(ctx context.Context, sess *Session, in intent.Intent) ExecutionResult {
	customer, err := e.resolveCustomer(ctx, sess, in)
	if err != nil {
		return fail(asAppErr(err))
	}

	otp := entityString(in.Entities, "otp")
	if otp == "" {
		code, err := generateOTP()
		if err != nil {
			return fail(apperr.Wrap(apperr.Unknown, "OTP_GENERATION_FAILED", err))
		}
		if e.mailer == nil {
			return fail(apperr.New(apperr.ExternalService, "MAILER_UNAVAILABLE", "no e-mail adapter configured"))
		}
		if customer.Email == "" {
			return fail(apperr.New(apperr.Validation, "EMAIL_REQUIRED", "customer has no e-mail on file for OTP delivery"))
		}
		if err := e.cache.SetWithTTL(ctx, otpChallengeKey(customer.ID.String()), domain.OTPChallenge{
			CustomerID: customer.ID,
			Code:       code,
			IssuedAt:   e.now(),
			ExpiresAt:  e.now().Add(e.otpTTL),
		}, e.otpTTL); err != nil {
			return fail(apperr.Wrap(apperr.Database, "OTP_STORE_FAILED", err))
		}
		if err := e.mailer.SendOTP(ctx, customer.Email, code); err != nil {
			return fail(apperr.Wrap(apperr.ExternalService, "OTP_SEND_FAILED", err))
		}
		return ok("OTP sent. Please repeat this command with the code to confirm deletion.", map[string]any{"status": "OTP_SENT"})
	}

	var challenge domain.OTPChallenge
	found, err := e.cache.Get(ctx, otpChallengeKey(customer.ID.String()), &challenge)
	if err != nil {
		return fail(apperr.Wrap(apperr.Database, "OTP_LOOKUP_FAILED", err))
	}
	if !found {
		return fail(apperr.New(apperr.Validation, "OTP_NOT_FOUND", "no OTP challenge pending for this customer"))
	}
	if challenge.Expired(e.now()) {
		_ = e.cache.Delete(ctx, otpChallengeKey(customer.ID.String()))
		return fail(apperr.New(apperr.Validation, "OTP_EXPIRED", "the OTP has expired; ask for a new one"))
	}
	if challenge.Code != otp {
		return fail(apperr.New(apperr.Validation, "OTP_MISMATCH", "that code does not match"))
	}

	if err := e.store.DeleteCustomerData(ctx, customer.ID); err != nil {
		return fail(asAppErr(err))
	}
	_ = e.cache.Delete(ctx, otpChallengeKey(customer.ID.String()))
	return ok(fmt.Sprintf("All data for %s has been deleted.", customer.Name), map[string]any{"status": "DELETED"})
}
