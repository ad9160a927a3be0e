/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package signature verifies the HMAC signatures and timestamp windows of
// inbound webhook deliveries.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"hash"
	"net/http"
	"strings"
	"time"

	commonerrors "github.com/beacon-oncall/beacon/common/pkg/errors"
	"github.com/beacon-oncall/beacon/utils/pkg/timeutil"
)

const (
	AlgorithmSha256 = "sha256"
	AlgorithmSha512 = "sha512"

	FormatHex    = "hex"
	FormatBase64 = "base64"

	// maxClockSkew bounds how far in the future a webhook timestamp may
	// claim to be before the delivery is rejected.
	maxClockSkew = 60 * time.Second
)

// Config carries the per-integration verification material. Secret must
// already be decrypted by the caller.
type Config struct {
	Secret          []byte
	Header          string
	Algorithm       string
	Format          string
	Prefix          string
	TimestampHeader string
	MaxAge          time.Duration
}

// Verify checks the delivery signature and, when a timestamp header is
// configured, its replay window. The raw body must be the exact bytes the
// sender signed. Failures map to the missing-signature, invalid-signature,
// webhook-expired and webhook-timestamp-future problems.
func Verify(cfg *Config, body []byte, headers http.Header) error {
	presented := headers.Get(cfg.Header)
	if presented == "" {
		return commonerrors.NewMissingSignature()
	}
	if cfg.Prefix != "" {
		presented = strings.TrimPrefix(presented, cfg.Prefix)
	}

	expected, err := Compute(cfg.Algorithm, cfg.Format, cfg.Secret, body)
	if err != nil {
		return err
	}
	// The comparison stays constant-time and the expected value is never
	// surfaced, so a caller can not probe the secret byte by byte.
	if !hmac.Equal([]byte(strings.ToLower(presented)), []byte(expected)) &&
		!hmac.Equal([]byte(presented), []byte(expected)) {
		return commonerrors.NewInvalidSignature()
	}

	if cfg.TimestampHeader != "" {
		raw := headers.Get(cfg.TimestampHeader)
		if raw == "" {
			// An integration that pins a timestamp header treats its
			// absence the same as an expired delivery.
			return commonerrors.NewWebhookExpired(0)
		}
		ts, err := ParseTimestamp(raw)
		if err != nil {
			return commonerrors.NewWebhookExpired(0)
		}
		return CheckTimestamp(ts, cfg.MaxAge, time.Now())
	}
	return nil
}

// Compute renders HMAC(algorithm, secret, body) in the requested format.
func Compute(algorithm, format string, secret, body []byte) (string, error) {
	var newHash func() hash.Hash
	switch algorithm {
	case AlgorithmSha512:
		newHash = sha512.New
	case AlgorithmSha256, "":
		newHash = sha256.New
	default:
		return "", commonerrors.NewInternalError("unsupported signature algorithm " + algorithm)
	}
	mac := hmac.New(newHash, secret)
	mac.Write(body)
	sum := mac.Sum(nil)

	switch format {
	case FormatBase64:
		return base64.StdEncoding.EncodeToString(sum), nil
	case FormatHex, "":
		return hex.EncodeToString(sum), nil
	default:
		return "", commonerrors.NewInternalError("unsupported signature format " + format)
	}
}

// ParseTimestamp accepts RFC 3339 or a unix value, with seconds vs
// milliseconds told apart by magnitude.
func ParseTimestamp(raw string) (time.Time, error) {
	ts, err := timeutil.ParseFlexible(raw)
	if err != nil {
		return time.Time{}, err
	}
	return ts, nil
}

// CheckTimestamp enforces the replay window: deliveries older than maxAge
// are expired, ones more than a minute ahead of the clock are rejected as
// future-dated.
func CheckTimestamp(ts time.Time, maxAge time.Duration, now time.Time) error {
	if maxAge <= 0 {
		maxAge = 300 * time.Second
	}
	age := now.Sub(ts)
	if age > maxAge {
		return commonerrors.NewWebhookExpired(int64(age.Seconds()))
	}
	if age < -maxClockSkew {
		return commonerrors.NewWebhookTimestampFuture()
	}
	return nil
}
