/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package backoff

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Retry executes an operation with exponential backoff retry logic.
// It uses the backoff library to retry the operation with exponential backoff intervals
// until the operation succeeds or the maximum elapsed time is reached.
//
// Parameters:
//   - op: The operation function to execute, which should return an error
//   - maxElapsedTime: Maximum total time to spend retrying before giving up
//   - maxInterval: Maximum interval between retry attempts
//
// Returns:
//   - error: The last error returned by the operation, or nil if operation succeeded
func Retry(op backoff.Operation, maxElapsedTime, maxInterval time.Duration) error {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = maxElapsedTime
	b.MaxInterval = maxInterval
	if err := backoff.Retry(op, b); err != nil {
		return err
	}
	return nil
}

// RetryWithInterval executes an operation with exponential backoff starting from
// initialInterval. The operation is attempted at most maxRetries+1 times.
func RetryWithInterval(op backoff.Operation, maxRetries uint64, initialInterval time.Duration) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initialInterval
	b.MaxElapsedTime = 0
	return backoff.Retry(op, backoff.WithMaxRetries(b, maxRetries))
}

// RetryIf executes an operation with fixed-interval retry logic for retriable errors.
// It retries the operation a fixed number of times with a fixed interval between attempts,
// but only continues retrying while the retriable predicate reports true for the error.
// Non-retriable errors or reaching the maximum retry count will stop the retry loop.
//
// Parameters:
//   - op: The operation function to execute, which should return an error
//   - count: Maximum number of retry attempts
//   - interval: Fixed time interval to wait between retry attempts
//   - retriable: Predicate deciding whether the returned error is worth retrying
//
// Returns:
//   - error: The last error returned by the operation, or nil if operation succeeded
func RetryIf(op backoff.Operation, count int, interval time.Duration, retriable func(error) bool) error {
	for i := 0; i < count; i++ {
		err := op()
		if err == nil {
			break
		}
		if i == count-1 || retriable == nil || !retriable(err) {
			return err
		}
		time.Sleep(interval)
	}
	return nil
}

// RetryIfExponential behaves like RetryIf but doubles the wait interval
// after every failed attempt, starting from initialInterval.
func RetryIfExponential(op backoff.Operation, count int, initialInterval time.Duration, retriable func(error) bool) error {
	interval := initialInterval
	for i := 0; i < count; i++ {
		err := op()
		if err == nil {
			break
		}
		if i == count-1 || retriable == nil || !retriable(err) {
			return err
		}
		time.Sleep(interval)
		interval *= 2
	}
	return nil
}
