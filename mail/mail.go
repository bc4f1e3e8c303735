// Package mail delivers the OTP-bearing emails. The gateway treats delivery
// as fire-and-forget for registration; explicit resend requests surface
// delivery errors to the caller.
package mail

import "context"

// Notifier is the outbound-mail boundary.
type Notifier interface {
	SendVerifyOTP(ctx context.Context, email, pin string) error
	SendResetOTP(ctx context.Context, email, pin string) error
}
