/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package policy_handlers

// TargetItem is one notify destination of an escalation level
type TargetItem struct {
	// Type is one of user, schedule, entire_team
	Type string `json:"type" binding:"required"`
	// Id is the target entity id; unused for entire_team
	Id int64 `json:"id,omitempty"`
}

// LevelItem is one numbered escalation step
type LevelItem struct {
	// Level is the 1-based step number; numbering must be dense
	Level int `json:"level" binding:"required,min=1"`
	// TimeoutMinute is how long the step waits before the next fires
	TimeoutMinute int `json:"timeoutMinute" binding:"required,min=1"`
	// Targets is who this step notifies
	Targets []TargetItem `json:"targets" binding:"required,min=1"`
}

// CreatePolicyRequest represents the request body for creating a policy
type CreatePolicyRequest struct {
	// Name is the policy display name, unique per team
	Name string `json:"name" binding:"required,max=128"`
	// Description is optional free text
	Description string `json:"description" binding:"omitempty,max=1024"`
	// TeamId is the owning team
	TeamId int64 `json:"teamId" binding:"required,min=1"`
	// RepeatCount is how many extra cycles run after the last level fires
	RepeatCount int `json:"repeatCount" binding:"omitempty,min=0,max=10"`
	// IsDefault makes this the team default, clearing the previous one
	IsDefault bool `json:"isDefault"`
	// Levels is the ordered escalation ladder
	Levels []LevelItem `json:"levels" binding:"required,min=1,dive"`
}

// UpdatePolicyRequest represents the request body for updating a policy
type UpdatePolicyRequest struct {
	Name        string `json:"name" binding:"omitempty,max=128"`
	Description string `json:"description" binding:"omitempty,max=1024"`
	RepeatCount *int   `json:"repeatCount" binding:"omitempty,min=0,max=10"`
	IsDefault   *bool  `json:"isDefault"`
	// Levels replaces the whole ladder when present
	Levels []LevelItem `json:"levels" binding:"omitempty,min=1,dive"`
}

// ReplaceLevelsRequest represents the request body for replacing levels
type ReplaceLevelsRequest struct {
	Levels []LevelItem `json:"levels" binding:"required,min=1,dive"`
}

// ListPolicyRequest represents the query parameters for listing policies
type ListPolicyRequest struct {
	TeamId int64  `form:"teamId" binding:"omitempty,min=1"`
	Offset int    `form:"offset" binding:"omitempty,min=0"`
	Limit  int    `form:"limit" binding:"omitempty,min=1"`
	SortBy string `form:"sortBy"`
	Order  string `form:"order" binding:"omitempty,oneof=desc asc"`
}

// ListPolicyResponse represents the response for listing policies
type ListPolicyResponse struct {
	TotalCount int                  `json:"totalCount"`
	Items      []PolicyResponseItem `json:"items"`
}

// PolicyResponseItem represents one policy in API responses
type PolicyResponseItem struct {
	Id          int64       `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	TeamId      int64       `json:"teamId"`
	RepeatCount int         `json:"repeatCount"`
	IsDefault   bool        `json:"isDefault"`
	CreatedBy   string      `json:"createdBy,omitempty"`
	CreateTime  string      `json:"createTime,omitempty"`
	UpdateTime  string      `json:"updateTime,omitempty"`
	Levels      []LevelItem `json:"levels,omitempty"`
}
