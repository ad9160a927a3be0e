/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package view

type CreateTeamRequest struct {
	Name        string `json:"name" binding:"required,max=128"`
	DisplayName string `json:"displayName" binding:"omitempty,max=256"`
	Description string `json:"description" binding:"omitempty"`
}

type ListTeamRequest struct {
	Offset int    `form:"offset" binding:"omitempty,min=0"`
	Limit  int    `form:"limit" binding:"omitempty,min=1"`
	Name   string `form:"name" binding:"omitempty"`
}

type ListTeamResponse struct {
	TotalCount int                `json:"totalCount"`
	Items      []TeamResponseItem `json:"items"`
}

type TeamResponseItem struct {
	Id          int64  `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Description string `json:"description,omitempty"`
	CreateTime  string `json:"createTime,omitempty"`
	UpdateTime  string `json:"updateTime,omitempty"`
}

type CreateUserRequest struct {
	UserName    string `json:"userName" binding:"required,max=128"`
	DisplayName string `json:"displayName" binding:"omitempty,max=256"`
	Email       string `json:"email" binding:"omitempty,email"`
	Role        string `json:"role" binding:"required,oneof=platform_admin responder viewer"`
	TeamId      int64  `json:"teamId" binding:"omitempty,min=1"`
}

type UpdateUserRequest struct {
	DisplayName *string `json:"displayName" binding:"omitempty"`
	Email       *string `json:"email" binding:"omitempty"`
	Role        string  `json:"role" binding:"omitempty,oneof=platform_admin responder viewer"`
	TeamId      *int64  `json:"teamId" binding:"omitempty"`
	Active      *bool   `json:"active" binding:"omitempty"`
}

type ListUserRequest struct {
	Offset   int    `form:"offset" binding:"omitempty,min=0"`
	Limit    int    `form:"limit" binding:"omitempty,min=1"`
	UserName string `form:"userName" binding:"omitempty"`
	Role     string `form:"role" binding:"omitempty,oneof=platform_admin responder viewer"`
	TeamId   int64  `form:"teamId" binding:"omitempty,min=1"`
	Active   string `form:"active" binding:"omitempty,oneof=true false"`
}

type ListUserResponse struct {
	TotalCount int                `json:"totalCount"`
	Items      []UserResponseItem `json:"items"`
}

type UserResponseItem struct {
	Id          int64  `json:"id"`
	UserName    string `json:"userName"`
	DisplayName string `json:"displayName,omitempty"`
	Email       string `json:"email,omitempty"`
	Role        string `json:"role"`
	TeamId      int64  `json:"teamId,omitempty"`
	Active      bool   `json:"active"`
	CreateTime  string `json:"createTime,omitempty"`
	UpdateTime  string `json:"updateTime,omitempty"`
}
