/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// SetValue sets a configuration value for the specified key.
func SetValue(key, value string) {
	viper.Set(key, value)
}

// LoadConfig loads configuration from the specified file path.
func LoadConfig(path string) error {
	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")
	return viper.ReadInConfig()
}

func getString(key, defaultValue string) string {
	if !viper.IsSet(key) {
		return defaultValue
	}
	return viper.GetString(key)
}

func getBool(key string, defaultValue bool) bool {
	if !viper.IsSet(key) {
		return defaultValue
	}
	return viper.GetBool(key)
}

func getInt(key string, defaultValue int) int {
	if !viper.IsSet(key) {
		return defaultValue
	}
	return viper.GetInt(key)
}

func getFloat(key string, defaultValue float64) float64 {
	if !viper.IsSet(key) {
		return defaultValue
	}
	return viper.GetFloat64(key)
}

func getFromFile(configPath, item string) string {
	path := getString(configPath, "")
	data, err := os.ReadFile(filepath.Join(path, item))
	if err != nil {
		return ""
	}
	key := string(data)
	return strings.TrimRight(key, "\r\n")
}

// IsCryptoEnable returns whether encryption of secrets at rest is enabled.
func IsCryptoEnable() bool {
	return getBool(cryptoEnable, true)
}

// GetCryptoKey returns the encryption key.
func GetCryptoKey() string {
	return getFromFile(cryptoSecretPath, "key")
}

// IsHealthCheckEnabled returns whether health checks are enabled.
func IsHealthCheckEnabled() bool {
	return getBool(healthCheckEnable, true)
}

// GetHealthCheckPort returns the port for health check endpoint.
func GetHealthCheckPort() int {
	return getInt(healthCheckPort, 0)
}

// GetServerPort returns the API server port.
func GetServerPort() int {
	return getInt(serverPort, 0)
}

// IsDBEnable returns whether the database is enabled.
func IsDBEnable() bool {
	return getBool(dbEnable, true)
}

// GetDBHost returns the database host address.
func GetDBHost() string {
	return getFromFile(dbSecretPath, "host")
}

// GetDBPort returns the database port number.
func GetDBPort() int {
	data := getFromFile(dbSecretPath, "port")
	n, err := strconv.Atoi(data)
	if err != nil {
		return 0
	}
	return n
}

// GetDBName returns the database name.
func GetDBName() string {
	return getFromFile(dbSecretPath, "dbname")
}

// GetDBUser returns the database username.
func GetDBUser() string {
	return getFromFile(dbSecretPath, "user")
}

// GetDBPassword returns the database password.
func GetDBPassword() string {
	return getFromFile(dbSecretPath, "password")
}

// GetDBSslMode returns the database SSL mode.
func GetDBSslMode() string {
	return getString(dbSslMode, "require")
}

// GetDBMaxOpenConns returns the maximum number of open database connections.
func GetDBMaxOpenConns() int {
	return getInt(dbMaxOpenConns, 100)
}

// GetDBMaxIdleConns returns the maximum number of idle database connections.
func GetDBMaxIdleConns() int {
	return getInt(dbMaxIdleConns, 10)
}

// GetDBMaxLifetimeSecond returns the maximum lifetime of database connections in seconds.
func GetDBMaxLifetimeSecond() int {
	return getInt(dbMaxLifetime, 600)
}

// GetDBMaxIdleTimeSecond returns the maximum idle time of database connections in seconds.
func GetDBMaxIdleTimeSecond() int {
	return getInt(dbMaxIdleTimeSecond, 60)
}

// GetDBConnectTimeoutSecond returns the database connection timeout in seconds.
func GetDBConnectTimeoutSecond() int {
	return getInt(dbConnectTimeoutSecond, 10)
}

// GetDBRequestTimeoutSecond returns the database request timeout in seconds.
func GetDBRequestTimeoutSecond() int {
	return getInt(dbRequestTimeoutSecond, 20)
}

// IsDBAutoMigrate returns whether schema migration runs at startup.
func IsDBAutoMigrate() bool {
	return getBool(dbAutoMigrate, true)
}

// GetRedisAddr returns the redis address in host:port form.
func GetRedisAddr() string {
	return getString(redisAddr, "127.0.0.1:6379")
}

// GetRedisDB returns the redis database index.
func GetRedisDB() int {
	return getInt(redisDB, 0)
}

// GetRedisPassword returns the redis password.
func GetRedisPassword() string {
	return getFromFile(redisSecretPath, "password")
}

// GetRedisPoolSize returns the redis connection pool size.
func GetRedisPoolSize() int {
	return getInt(redisPoolSize, 20)
}

// GetRedisDialTimeoutSecond returns the redis dial timeout in seconds.
func GetRedisDialTimeoutSecond() int {
	return getInt(redisDialTimeoutSecond, 5)
}

// GetQueuePollIntervalMs returns the scheduler queue poll interval in milliseconds.
func GetQueuePollIntervalMs() int {
	return getInt(queuePollIntervalMs, 1000)
}

// GetQueueClaimBatch returns how many due jobs a single poll may claim.
func GetQueueClaimBatch() int {
	return getInt(queueClaimBatch, 16)
}

// GetQueueWorkerConcurrent returns the number of concurrent job workers.
func GetQueueWorkerConcurrent() int {
	return getInt(queueWorkerConcurrent, 8)
}

// IsRateLimitEnable returns whether per-integration ingest rate limiting is enabled.
func IsRateLimitEnable() bool {
	return getBool(rateLimitEnable, true)
}

// GetRateLimitPerMinute returns the allowed webhook deliveries per integration per minute.
func GetRateLimitPerMinute() int {
	return getInt(rateLimitPerMinute, 120)
}

// GetWebhookMaxBodyBytes returns the maximum accepted webhook body size.
func GetWebhookMaxBodyBytes() int64 {
	return int64(getInt(webhookMaxBodyBytes, 1<<20))
}

// GetWebhookTimestampMaxAge returns the default signature timestamp max age in seconds.
func GetWebhookTimestampMaxAge() int {
	return getInt(webhookTimestampMaxAge, 300)
}

// GetWebhookDedupWindowMinute returns the default delivery dedup window in minutes.
func GetWebhookDedupWindowMinute() int {
	return getInt(webhookDedupWindowMinute, 15)
}

// GetWebhookRequestTimeoutSecond returns the outbound webhook request timeout in seconds.
func GetWebhookRequestTimeoutSecond() int {
	return getInt(webhookRequestTimeoutSec, 30)
}

// GetWebhookSignatureHeader returns the default signature header for new integrations.
func GetWebhookSignatureHeader() string {
	return getString(webhookSignatureHeaderKey, "X-Webhook-Signature")
}

// GetEscalationMaxRetry returns how many times a failed escalation target is retried.
func GetEscalationMaxRetry() int {
	return getInt(escalationMaxRetry, 3)
}

// GetEscalationRetryInitialSecond returns the initial escalation retry backoff in seconds.
func GetEscalationRetryInitialSecond() int {
	return getInt(escalationRetryInitialSecond, 30)
}

// GetWorkflowDefaultTimeoutSecond returns the default workflow execution timeout in seconds.
func GetWorkflowDefaultTimeoutSecond() int {
	return getInt(workflowDefaultTimeoutSecond, 300)
}

// GetWorkflowMaxNodeRetry returns the default per-node retry count for workflow actions.
func GetWorkflowMaxNodeRetry() int {
	return getInt(workflowMaxNodeRetry, 3)
}

// GetRunbookDefaultTimeoutSecond returns the default runbook execution timeout in seconds.
func GetRunbookDefaultTimeoutSecond() int {
	return getInt(runbookDefaultTimeoutSecond, 300)
}

// IsNotificationEnable returns whether notifications are enabled.
func IsNotificationEnable() bool {
	return getBool(notificationEnable, true)
}

// IsRetentionEnable returns whether periodic data retention is enabled.
func IsRetentionEnable() bool {
	return getBool(retentionEnable, true)
}

// GetRetentionDays returns how many days of resolved data to keep.
func GetRetentionDays() int {
	return getInt(retentionDays, 90)
}

// GetRetentionSchedule returns the cron schedule of the retention sweep.
func GetRetentionSchedule() string {
	return getString(retentionSchedule, "0 2 * * *")
}

// IsOpenSearchEnable returns whether OpenSearch is enabled.
func IsOpenSearchEnable() bool {
	return getBool(openSearchEnable, false)
}

// GetOpenSearchEndpoint returns the OpenSearch endpoint URL.
func GetOpenSearchEndpoint() string {
	return getString(openSearchEndpoint, "")
}

// GetOpenSearchUser returns the OpenSearch username.
func GetOpenSearchUser() string {
	if user := getString(openSearchPrefix+openSearchUser, ""); len(user) > 0 {
		return user
	}
	return getFromFile(openSearchSecretPath, openSearchUser)
}

// GetOpenSearchPasswd returns the OpenSearch password.
func GetOpenSearchPasswd() string {
	if passwd := getString(openSearchPrefix+openSearchPassword, ""); len(passwd) > 0 {
		return passwd
	}
	return getFromFile(openSearchSecretPath, openSearchPassword)
}

// GetOpenSearchIndexPrefix returns the prefix for OpenSearch indices.
func GetOpenSearchIndexPrefix() string {
	return getString(openSearchIndexPrefix, "")
}

// IsS3Enable returns whether S3 archival is enabled.
func IsS3Enable() bool {
	return getBool(s3Enable, false)
}

// GetS3AccessKey returns the S3 access key.
func GetS3AccessKey() string {
	return getFromFile(s3SecretPath, "access_key")
}

// GetS3SecretKey returns the S3 secret key.
func GetS3SecretKey() string {
	return getFromFile(s3SecretPath, "secret_key")
}

// GetS3Bucket returns the S3 bucket name.
func GetS3Bucket() string {
	return getFromFile(s3SecretPath, "bucket")
}

// GetS3Endpoint returns the S3 endpoint URL.
func GetS3Endpoint() string {
	return getFromFile(s3SecretPath, "endpoint")
}

// GetS3ExpireDay returns the number of days after which S3 objects expire.
func GetS3ExpireDay() int32 {
	resp := getInt(s3ExpireDay, 0)
	return int32(resp)
}

// GetSystemHost returns the host of the system. e.g. oncall.beacon.example.com
func GetSystemHost() string {
	subDomainConfig := getString(subDomain, "")
	domainConfig := getString(domain, "")
	if subDomainConfig == "" || domainConfig == "" {
		return ""
	}
	return subDomainConfig + "." + domainConfig
}

// IsTracingEnable returns whether OpenTelemetry tracing is enabled.
func IsTracingEnable() bool {
	return getBool(tracingEnable, false)
}

// GetTracingMode returns the tracing mode: "all" or "error_only".
func GetTracingMode() string {
	return getString(tracingMode, "error_only")
}

// GetTracingSamplingRatio returns the sampling ratio for trace export (0.0 to 1.0).
func GetTracingSamplingRatio() float64 {
	return getFloat(tracingSamplingRatio, 1.0)
}

// GetTracingOtlpEndpoint returns the OTLP exporter endpoint URL.
func GetTracingOtlpEndpoint() string {
	return getString(tracingOtlpEndpoint, "")
}
