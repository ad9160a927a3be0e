/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package handlers assembles the HTTP surface: the middleware chain,
// the operational endpoints and the per-resource routers.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/beacon-oncall/beacon/apiserver/pkg/handlers/authority"
	incident_handlers "github.com/beacon-oncall/beacon/apiserver/pkg/handlers/incident-handlers"
	"github.com/beacon-oncall/beacon/apiserver/pkg/handlers/middleware"
	policy_handlers "github.com/beacon-oncall/beacon/apiserver/pkg/handlers/policy-handlers"
	"github.com/beacon-oncall/beacon/apiserver/pkg/handlers/resources"
	runbook_handlers "github.com/beacon-oncall/beacon/apiserver/pkg/handlers/runbook-handlers"
	webhook_handlers "github.com/beacon-oncall/beacon/apiserver/pkg/handlers/webhook-handlers"
	workflow_handlers "github.com/beacon-oncall/beacon/apiserver/pkg/handlers/workflow-handlers"
	apiutils "github.com/beacon-oncall/beacon/apiserver/pkg/utils"
	dbclient "github.com/beacon-oncall/beacon/common/pkg/database/client"
	commonerrors "github.com/beacon-oncall/beacon/common/pkg/errors"
	"github.com/beacon-oncall/beacon/common/pkg/escalation"
	"github.com/beacon-oncall/beacon/common/pkg/runbook"
	"github.com/beacon-oncall/beacon/common/pkg/search"
	"github.com/beacon-oncall/beacon/common/pkg/workflow"
)

// Config carries the shared services the routers are built on. The
// server owns their lifecycles; handlers only borrow them.
type Config struct {
	DbClient   dbclient.Interface
	Scheduler  *escalation.Scheduler
	Dispatcher *workflow.Dispatcher
	Executor   *runbook.Executor
	// Indexer is nil when alert search is disabled.
	Indexer *search.Indexer
	// Ready reports whether the server's backing stores are reachable.
	Ready func(ctx context.Context) error
}

// InitHttpHandlers builds the gin engine: middleware chain, operational
// endpoints, the unauthenticated webhook ingress and the authenticated
// management API.
func InitHttpHandlers(cfg *Config) (*gin.Engine, error) {
	if cfg == nil || cfg.DbClient == nil {
		return nil, commonerrors.NewInternalError("handler config requires a database client")
	}

	engine := gin.New()
	engine.Use(
		middleware.Logger(),
		gin.Recovery(),
		middleware.HandleTracing(),
		middleware.Metrics(),
		middleware.AuditLog(),
	)
	engine.NoRoute(func(c *gin.Context) {
		apiutils.AbortWithApiError(c, commonerrors.NewNotFoundWithMessage(c.Request.URL.Path+" not found"))
	})

	initOperationalRouters(engine, cfg.Ready)

	// The webhook ingress authenticates by signature, not API key.
	webhookHandler := webhook_handlers.NewHandler(cfg.DbClient, cfg.Scheduler, cfg.Dispatcher, cfg.Indexer)
	webhook_handlers.InitWebhookRouters(engine, webhookHandler, middleware.NewIngressLimiter())

	auth := middleware.Authorize(authority.NewValidator(cfg.DbClient))

	incidentHandler := incident_handlers.NewHandler(cfg.DbClient, cfg.Scheduler, cfg.Dispatcher)
	incident_handlers.InitIncidentRouters(engine, incidentHandler, auth)

	policyHandler := policy_handlers.NewHandler(cfg.DbClient)
	policy_handlers.InitPolicyRouters(engine, policyHandler, auth)

	workflowHandler := workflow_handlers.NewHandler(cfg.DbClient, cfg.Dispatcher)
	workflow_handlers.InitWorkflowRouters(engine, workflowHandler, auth)

	runbookHandler := runbook_handlers.NewHandler(cfg.DbClient, cfg.Executor)
	runbook_handlers.InitRunbookRouters(engine, runbookHandler, auth)

	resourceHandler := resources.NewHandler(cfg.DbClient, cfg.Indexer)
	resources.InitResourceRouters(engine, resourceHandler, auth)

	return engine, nil
}

// initOperationalRouters registers the unauthenticated liveness,
// readiness and metrics endpoints.
func initOperationalRouters(e *gin.Engine, ready func(ctx context.Context) error) {
	e.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	e.GET("/readyz", func(c *gin.Context) {
		if ready != nil {
			if err := ready(c.Request.Context()); err != nil {
				c.String(http.StatusServiceUnavailable, "not ready: %s", err.Error())
				return
			}
		}
		c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
