/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package workflow

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"path"

	"k8s.io/klog/v2"

	"github.com/beacon-oncall/beacon/common/pkg/database/client"
	dbutils "github.com/beacon-oncall/beacon/common/pkg/database/utils"
)

//go:embed templates/*.json
var templateFS embed.FS

// seedTemplate is the on-disk shape of a built-in gallery template.
type seedTemplate struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Definition  Definition `json:"definition"`
}

// TemplateStore is the slice of the database the seeder needs.
type TemplateStore interface {
	UpsertWorkflowTemplate(ctx context.Context, template *client.Workflow) error
}

// SeedTemplates installs or refreshes the built-in template gallery.
// Called at startup; existing templates are updated in place by name.
func SeedTemplates(ctx context.Context, store TemplateStore) error {
	entries, err := templateFS.ReadDir("templates")
	if err != nil {
		return err
	}

	for _, entry := range entries {
		data, err := templateFS.ReadFile(path.Join("templates", entry.Name()))
		if err != nil {
			return err
		}
		var seed seedTemplate
		if err := json.Unmarshal(data, &seed); err != nil {
			return fmt.Errorf("template %s is unreadable: %v", entry.Name(), err)
		}
		if err := Validate(&seed.Definition); err != nil {
			return fmt.Errorf("template %s is invalid: %v", entry.Name(), err)
		}
		definition, err := seed.Definition.Marshal()
		if err != nil {
			return err
		}

		template := &client.Workflow{
			Name:             seed.Name,
			Description:      dbutils.NullString(seed.Description),
			Scope:            "global",
			Enabled:          false,
			Definition:       definition,
			IsTemplate:       true,
			TemplateCategory: dbutils.NullString(seed.Category),
			CreatedBy:        dbutils.NullString("system"),
		}
		if err := store.UpsertWorkflowTemplate(ctx, template); err != nil {
			return fmt.Errorf("failed to seed template %s: %v", seed.Name, err)
		}
		klog.V(2).InfoS("workflow template seeded", "name", seed.Name, "category", seed.Category)
	}
	return nil
}
