/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package apiserver wires the process together: configuration, the
// database and queue clients, the background workers and the HTTP
// surface, all in one binary. Replicas share work through the queue's
// claim semantics, no leader election is needed.
package apiserver

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"k8s.io/klog/v2"

	"github.com/beacon-oncall/beacon/apiserver/pkg/handlers"
	"github.com/beacon-oncall/beacon/common/pkg/actions"
	"github.com/beacon-oncall/beacon/common/pkg/archive"
	"github.com/beacon-oncall/beacon/common/pkg/common"
	commonconfig "github.com/beacon-oncall/beacon/common/pkg/config"
	dbclient "github.com/beacon-oncall/beacon/common/pkg/database/client"
	"github.com/beacon-oncall/beacon/common/pkg/escalation"
	commonklog "github.com/beacon-oncall/beacon/common/pkg/klog"
	"github.com/beacon-oncall/beacon/common/pkg/options"
	"github.com/beacon-oncall/beacon/common/pkg/queue"
	"github.com/beacon-oncall/beacon/common/pkg/runbook"
	s3client "github.com/beacon-oncall/beacon/common/pkg/s3"
	"github.com/beacon-oncall/beacon/common/pkg/search"
	"github.com/beacon-oncall/beacon/common/pkg/trace"
	"github.com/beacon-oncall/beacon/common/pkg/workflow"
	"github.com/beacon-oncall/beacon/utils/pkg/httpclient"
)

const shutdownTimeout = 15 * time.Second

type Server struct {
	opts       *options.Options
	httpServer *http.Server
	dbClient   *dbclient.Client
	queue      *queue.Manager
	cron       *cron.Cron
	ctx        context.Context
	cancel     context.CancelFunc
	isInited   bool
}

// NewServer creates and returns a new Server instance.
func NewServer() (*Server, error) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	s := &Server{
		opts:   &options.Options{},
		ctx:    ctx,
		cancel: cancel,
	}
	if err := s.init(); err != nil {
		cancel()
		return nil, err
	}
	return s, nil
}

// init parses flags, initializes logging and loads the configuration.
// Everything that needs backing services waits until Start.
func (s *Server) init() error {
	gin.SetMode(gin.ReleaseMode)
	var err error
	if err = s.opts.InitFlags(); err != nil {
		klog.ErrorS(err, "failed to parse flags")
		return err
	}
	if err = commonklog.Init(s.opts.LogfilePath, s.opts.LogFileSize); err != nil {
		klog.ErrorS(err, "failed to init logs")
		return err
	}
	if err = s.initConfig(); err != nil {
		klog.ErrorS(err, "failed to init config")
		return err
	}
	if commonconfig.IsTracingEnable() {
		if err = trace.InitTracer(common.BeaconServiceName); err != nil {
			klog.Warningf("Failed to init tracer: %v", err)
		}
	} else {
		klog.Info("Tracing is disabled (tracing.enable: false)")
	}
	s.isInited = true
	return nil
}

// initConfig loads the server configuration from the specified config file path.
func (s *Server) initConfig() error {
	fullPath, err := filepath.Abs(s.opts.Config)
	if err != nil {
		return err
	}
	if err = commonconfig.LoadConfig(fullPath); err != nil {
		return fmt.Errorf("config path: %s, err: %v", fullPath, err)
	}
	return nil
}

// Start connects the backing stores, launches the background workers
// and serves HTTP. It blocks until a termination signal arrives, then
// calls Stop.
func (s *Server) Start() {
	if !s.isInited {
		klog.Errorf("please init api-server first")
		return
	}
	gin.EnableJsonDecoderDisallowUnknownFields()

	klog.Infof("starting api-server")
	s.dbClient = dbclient.NewClient()
	if s.dbClient == nil {
		klog.Errorf("failed to init db client")
		os.Exit(-1)
	}
	if err := workflow.SeedTemplates(s.ctx, s.dbClient); err != nil {
		klog.ErrorS(err, "failed to seed workflow templates")
	}

	hc := httpclient.NewHttpClient()
	executor := runbook.NewExecutor(s.dbClient, hc)
	engine := workflow.NewEngine(s.dbClient, actions.NewRunner(hc, s.dbClient, executor))

	s.queue = queue.NewManager()
	dispatcher := workflow.NewDispatcher(s.dbClient, s.queue)
	scheduler := escalation.NewScheduler(s.dbClient, s.queue, dispatcher)
	s.queue.Register(common.JobKindEscalation, scheduler.HandleJob)
	s.queue.Register(common.JobKindWorkflowExecution, engine.HandleJob)
	s.queue.Register(common.JobKindRunbookExecution, executor.HandleJob)
	s.queue.Start(s.ctx)

	indexer := search.NewIndexer(s.ctx)

	if err := s.startCron(dispatcher); err != nil {
		klog.ErrorS(err, "failed to start cron jobs")
		os.Exit(-1)
	}

	go func() {
		if err := s.startHttpServer(scheduler, dispatcher, executor, indexer); err != nil && err != http.ErrServerClosed {
			klog.ErrorS(err, "failed to start http-server")
			os.Exit(-1)
		}
	}()

	<-s.ctx.Done()
	s.Stop()
}

// Stop drains the HTTP server and the background workers, then flushes
// logs. In-flight queue jobs finish before the process exits.
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	klog.Info("shutting down http server...")
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			klog.ErrorS(err, "failed to shutdown httpserver")
		}
	}
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	if s.queue != nil {
		s.queue.Stop()
		s.queue.Close()
	}
	if s.dbClient != nil {
		s.dbClient.Close()
	}
	if err := trace.CloseTracer(); err != nil {
		klog.ErrorS(err, "failed to close tracer")
	}
	s.cancel()
	klog.Info("apiserver is stopped")
	klog.Flush()
}

// startCron schedules the housekeeping jobs: the retention sweep on its
// configured schedule and the age-trigger scan every minute.
func (s *Server) startCron(dispatcher *workflow.Dispatcher) error {
	s.cron = cron.New()

	if commonconfig.IsRetentionEnable() {
		archiver, err := s.newArchiver()
		if err != nil {
			return err
		}
		if _, err := s.cron.AddFunc(commonconfig.GetRetentionSchedule(), func() {
			if err := archiver.Sweep(s.ctx); err != nil {
				klog.ErrorS(err, "retention sweep failed")
			}
		}); err != nil {
			return fmt.Errorf("retention schedule %q: %v", commonconfig.GetRetentionSchedule(), err)
		}
	} else {
		klog.Info("Retention is disabled (retention.enable: false)")
	}

	if _, err := s.cron.AddFunc("@every 1m", func() {
		if err := dispatcher.ScanAges(s.ctx); err != nil {
			klog.ErrorS(err, "age trigger scan failed")
		}
	}); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// newArchiver builds the retention archiver. Without S3 the sweep
// prunes rows without exporting them first.
func (s *Server) newArchiver() (*archive.Archiver, error) {
	var objects archive.ObjectStore
	if commonconfig.IsS3Enable() {
		cli, err := s3client.NewClient(s.ctx, s3client.Option{ExpireDay: commonconfig.GetS3ExpireDay()})
		if err != nil {
			return nil, fmt.Errorf("init s3 client: %v", err)
		}
		objects = archive.NewS3ObjectStore(cli)
	} else {
		klog.Info("S3 archival is disabled, retention sweep will prune without exporting")
	}
	return archive.NewArchiver(s.dbClient, objects), nil
}

// startHttpServer initializes and starts the HTTP server.
func (s *Server) startHttpServer(scheduler *escalation.Scheduler, dispatcher *workflow.Dispatcher,
	executor *runbook.Executor, indexer *search.Indexer) error {
	if commonconfig.GetServerPort() <= 0 {
		return fmt.Errorf("the apiserver port is not defined")
	}
	handler, err := handlers.InitHttpHandlers(&handlers.Config{
		DbClient:   s.dbClient,
		Scheduler:  scheduler,
		Dispatcher: dispatcher,
		Executor:   executor,
		Indexer:    indexer,
		Ready:      s.ready,
	})
	if err != nil {
		return err
	}
	addr := fmt.Sprintf(":%d", commonconfig.GetServerPort())
	s.httpServer = &http.Server{Addr: addr, Handler: handler}
	klog.Infof("http-server listen port: %d", commonconfig.GetServerPort())
	return s.httpServer.ListenAndServe()
}

// ready reports whether the backing stores answer. The readiness probe
// fails when either the database or redis is unreachable.
func (s *Server) ready(ctx context.Context) error {
	if err := s.dbClient.Ping(ctx); err != nil {
		return fmt.Errorf("database: %v", err)
	}
	if err := s.queue.Ping(ctx); err != nil {
		return fmt.Errorf("redis: %v", err)
	}
	return nil
}
