// Package captcha verifies reCAPTCHA/hCaptcha style tokens with the
// provider's siteverify endpoint.
package captcha

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/shashiranjanraj/storefront/config"
	"github.com/shashiranjanraj/storefront/pkg/http"
)

// ErrRejected means the provider answered but did not accept the token.
var ErrRejected = errors.New("captcha: token rejected")

// Verifier checks a token submitted by a browser.
type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

type verifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// SiteVerify posts the token to a siteverify endpoint. An empty secret
// disables verification.
type SiteVerify struct {
	Secret string
	URL    string
}

func FromEnv() *SiteVerify {
	return &SiteVerify{Secret: config.CaptchaSecret(), URL: config.CaptchaVerifyURL()}
}

func (v *SiteVerify) Verify(ctx context.Context, token, remoteIP string) error {
	if v.Secret == "" {
		return nil
	}
	if token == "" {
		return ErrRejected
	}

	form := url.Values{"secret": {v.Secret}, "response": {token}}
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	resp, err := http.Post(v.URL).
		Form(form).
		Timeout(5*time.Second).
		Retry(3, 200*time.Millisecond).
		WithContext(ctx).
		Send()
	if err != nil {
		return fmt.Errorf("captcha: verify: %w", err)
	}
	if err := resp.Throw(); err != nil {
		return fmt.Errorf("captcha: verify: %w", err)
	}

	var out verifyResponse
	if err := resp.JSON(&out); err != nil {
		return fmt.Errorf("captcha: %w", err)
	}
	if !out.Success {
		return fmt.Errorf("%w: %v", ErrRejected, out.ErrorCodes)
	}
	return nil
}
