/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package s3

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Interface is the object surface the retention sweep consumes. Archive
// batches are small JSONL objects, single-shot PutObject is all the
// sweep needs.
type Interface interface {
	PutObject(ctx context.Context, key, value string, timeout int64) (*s3.PutObjectOutput, error)
}
