/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package authority implements the machine authentication surface:
// ak- prefixed service keys, HMAC-hashed at rest, validated per request.
package authority

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"time"

	"k8s.io/klog/v2"

	commonconfig "github.com/beacon-oncall/beacon/common/pkg/config"
	"github.com/beacon-oncall/beacon/common/pkg/constvar"
	dbclient "github.com/beacon-oncall/beacon/common/pkg/database/client"
	commonerrors "github.com/beacon-oncall/beacon/common/pkg/errors"
)

const (
	// ApiKeyPrefix is the prefix for all API keys
	ApiKeyPrefix = "ak-"
	// ApiKeyTokenLength is the length of the random token in bytes (will be base64 encoded)
	ApiKeyTokenLength = 32
	// MaxTTLDays is the maximum allowed TTL for API keys
	MaxTTLDays = 366
	// UserTypeApiKey is the user type recorded for API key authentication
	UserTypeApiKey = "apikey"
)

// UserInfo is the identity a validated key resolves to.
type UserInfo struct {
	Id   string
	Name string
	Role constvar.UserRole
}

// Validator checks presented API keys against their stored hashes.
type Validator struct {
	dbClient dbclient.Interface
}

func NewValidator(dbClient dbclient.Interface) *Validator {
	return &Validator{dbClient: dbClient}
}

// GenerateApiKey generates a new unique API key.
func GenerateApiKey() (string, error) {
	bytes := make([]byte, ApiKeyTokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	// URL-safe base64 encoding without padding
	encoded := base64.RawURLEncoding.EncodeToString(bytes)
	return ApiKeyPrefix + encoded, nil
}

// GetApiKeySecret returns the crypto secret for API key hashing, or nil
// when none is configured.
func GetApiKeySecret() []byte {
	secret := commonconfig.GetCryptoKey()
	if secret == "" {
		return nil
	}
	return []byte(secret)
}

// HashApiKey computes the HMAC-SHA256 hash stored instead of the
// plaintext key. Without a secret it falls back to plain SHA-256.
func HashApiKey(apiKey string, secret []byte) string {
	if len(secret) == 0 {
		hash := sha256.Sum256([]byte(apiKey))
		return hex.EncodeToString(hash[:])
	}
	h := hmac.New(sha256.New, secret)
	h.Write([]byte(apiKey))
	return hex.EncodeToString(h.Sum(nil))
}

// GenerateKeyHint creates a partial key hint for display.
// Format: "XX-YYYY" where XX is the first 2 chars and YYYY the last 4
// after the prefix.
func GenerateKeyHint(apiKey string) string {
	keyBody := strings.TrimPrefix(apiKey, ApiKeyPrefix)
	if len(keyBody) < 6 {
		return keyBody
	}
	return keyBody[:2] + "-" + keyBody[len(keyBody)-4:]
}

// FormatKeyHint formats the stored hint for display.
// Input: "XX-YYYY", output: "ak-XX****YYYY".
func FormatKeyHint(hint string) string {
	if hint == "" {
		return ""
	}
	parts := strings.Split(hint, "-")
	if len(parts) != 2 {
		return ApiKeyPrefix + hint
	}
	return ApiKeyPrefix + parts[0] + "****" + parts[1]
}

// ValidateApiKey validates a presented key: it must hash to a stored
// record that is not deleted or expired, and the client IP must pass the
// key's whitelist. The resolved role comes from the owning user record.
func (v *Validator) ValidateApiKey(ctx context.Context, apiKey, clientIP string) (*UserInfo, error) {
	if v.dbClient == nil {
		return nil, commonerrors.NewInternalError("database client not initialized")
	}

	hashedKey := HashApiKey(apiKey, GetApiKeySecret())
	record, err := v.dbClient.GetApiKeyByKey(ctx, hashedKey)
	if err != nil {
		if err != sql.ErrNoRows && !commonerrors.IsNotFound(err) {
			klog.ErrorS(err, "failed to get api key from database", "apiKey", maskApiKey(apiKey))
		}
		return nil, commonerrors.NewUnauthorized("invalid API key")
	}

	if record.Deleted {
		return nil, commonerrors.NewUnauthorized("API key is revoked")
	}
	if record.ExpirationTime.Valid && time.Now().UTC().After(record.ExpirationTime.Time) {
		return nil, commonerrors.NewUnauthorized("API key expired")
	}
	if err := checkIPWhitelist(record.Whitelist, clientIP); err != nil {
		return nil, err
	}

	info := &UserInfo{
		Id:   record.UserId,
		Name: record.UserName,
		Role: constvar.RoleResponder,
	}
	// The key carries no permissions of its own, the owning user does.
	if user, err := v.dbClient.GetUserByName(ctx, record.UserName); err == nil && user.Active {
		info.Role = constvar.UserRole(user.Role)
	}
	return info, nil
}

// checkIPWhitelist checks if the client IP is allowed by the whitelist.
func checkIPWhitelist(whitelistJSON, clientIP string) error {
	// Empty whitelist means no restriction.
	if whitelistJSON == "" || whitelistJSON == "null" || whitelistJSON == "[]" {
		return nil
	}

	var whitelist []string
	if err := json.Unmarshal([]byte(whitelistJSON), &whitelist); err != nil {
		klog.ErrorS(err, "failed to parse whitelist JSON", "whitelist", whitelistJSON)
		return commonerrors.NewInternalError("invalid whitelist configuration")
	}
	if len(whitelist) == 0 {
		return nil
	}

	clientIPAddr := net.ParseIP(clientIP)
	if clientIPAddr == nil {
		if host, _, err := net.SplitHostPort(clientIP); err == nil {
			clientIPAddr = net.ParseIP(host)
		}
	}
	if clientIPAddr == nil {
		klog.Warningf("failed to parse client IP: %s", clientIP)
		return commonerrors.NewForbidden("IP not allowed")
	}

	for _, entry := range whitelist {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			_, network, err := net.ParseCIDR(entry)
			if err != nil {
				klog.Warningf("invalid CIDR in whitelist: %s", entry)
				continue
			}
			if network.Contains(clientIPAddr) {
				return nil
			}
		} else if ip := net.ParseIP(entry); ip != nil && ip.Equal(clientIPAddr) {
			return nil
		}
	}
	return commonerrors.NewForbidden("IP not allowed")
}

// ValidateAndDeduplicateWhitelist validates the whitelist entries are
// valid IPs or CIDRs and removes duplicates.
func ValidateAndDeduplicateWhitelist(whitelist []string) ([]string, error) {
	seen := make(map[string]bool)
	result := make([]string, 0, len(whitelist))
	for _, entry := range whitelist {
		entry = strings.TrimSpace(entry)
		if entry == "" || seen[entry] {
			continue
		}
		if strings.Contains(entry, "/") {
			if _, _, err := net.ParseCIDR(entry); err != nil {
				return nil, fmt.Errorf("invalid CIDR format: %s", entry)
			}
		} else if net.ParseIP(entry) == nil {
			return nil, fmt.Errorf("invalid IP address: %s", entry)
		}
		seen[entry] = true
		result = append(result, entry)
	}
	return result, nil
}

// maskApiKey masks an API key for logging purposes.
func maskApiKey(apiKey string) string {
	if len(apiKey) <= 12 {
		return "***"
	}
	return apiKey[:8] + "***" + apiKey[len(apiKey)-4:]
}

// IsApiKey checks if a token looks like an API key.
func IsApiKey(token string) bool {
	return strings.HasPrefix(token, ApiKeyPrefix)
}

// ExtractApiKeyFromRequest extracts an API key from an
// Authorization: Bearer header.
func ExtractApiKeyFromRequest(authHeader string) string {
	if authHeader == "" {
		return ""
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") && IsApiKey(parts[1]) {
		return parts[1]
	}
	return ""
}
