/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package middleware

import (
	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	"github.com/beacon-oncall/beacon/apiserver/pkg/handlers/authority"
	apiutils "github.com/beacon-oncall/beacon/apiserver/pkg/utils"
	"github.com/beacon-oncall/beacon/common/pkg/common"
	"github.com/beacon-oncall/beacon/common/pkg/constvar"
	commonerrors "github.com/beacon-oncall/beacon/common/pkg/errors"
)

// UserRoleKey is the gin context key holding the resolved role of the
// authenticated caller.
const UserRoleKey = "userRole"

// Authorize authenticates every management API request through its
// Bearer API key and stores the resolved identity in the context.
func Authorize(validator *authority.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := authority.ExtractApiKeyFromRequest(c.GetHeader("Authorization"))
		if apiKey == "" {
			apiutils.AbortWithApiError(c, commonerrors.NewUnauthorized("missing API key"))
			return
		}

		info, err := validator.ValidateApiKey(c.Request.Context(), apiKey, c.ClientIP())
		if err != nil {
			klog.V(2).InfoS("api key rejected", "path", c.Request.URL.Path, "clientIP", c.ClientIP())
			apiutils.AbortWithApiError(c, err)
			return
		}

		c.Set(common.UserId, info.Id)
		c.Set(common.UserName, info.Name)
		c.Set(common.UserType, authority.UserTypeApiKey)
		c.Set(UserRoleKey, string(info.Role))
		c.Next()
	}
}

// RequireAdmin restricts a route to platform administrators.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(UserRoleKey) != string(constvar.RolePlatformAdmin) {
			apiutils.AbortWithApiError(c, commonerrors.NewForbidden("requires platform_admin role"))
			return
		}
		c.Next()
	}
}

// RequireWriter rejects read-only callers on mutating routes.
func RequireWriter() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(UserRoleKey) == string(constvar.RoleViewer) {
			apiutils.AbortWithApiError(c, commonerrors.NewForbidden("read-only role cannot modify resources"))
			return
		}
		c.Next()
	}
}
