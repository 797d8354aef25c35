package cron

import (
	"context"
	"os"
	"sync"

	cronv3 "github.com/robfig/cron/v3"

	"github.com/opendesk/mailroom/config"
	"github.com/opendesk/mailroom/internal/logger"
	"github.com/opendesk/mailroom/internal/tracing"
	"github.com/opendesk/mailroom/services/ingestion"
)

const (
	// GroupIngestion serializes jobs touching the same mailboxes
	GroupIngestion = "ingestion"
)

var jobLocks = struct {
	sync.Mutex
	locks map[string]*sync.Mutex
}{
	locks: map[string]*sync.Mutex{
		GroupIngestion: new(sync.Mutex),
	},
}

// CronManager schedules the periodic mailbox polls. Jobs in the same group
// never overlap; a poll still running when the next tick fires makes the
// tick wait on the group lock.
type CronManager struct {
	cfg          *config.Config
	log          logger.Logger
	cron         *cronv3.Cron
	stopCh       chan struct{}
	jobIDs       map[string]cronv3.EntryID
	orchestrator *ingestion.Orchestrator
}

func NewCronManager(cfg *config.Config, log logger.Logger, orchestrator *ingestion.Orchestrator) *CronManager {
	return &CronManager{
		cfg:          cfg,
		log:          log,
		stopCh:       make(chan struct{}),
		jobIDs:       make(map[string]cronv3.EntryID),
		orchestrator: orchestrator,
	}
}

// Start initializes and starts the cron scheduler.
func (cm *CronManager) Start() {
	cm.log.Info("Starting cron manager")

	cronOptions := []cronv3.Option{
		cronv3.WithSeconds(),
		cronv3.WithChain(
			cronv3.SkipIfStillRunning(cronv3.DefaultLogger),
			cronv3.Recover(cronv3.DefaultLogger),
		),
	}
	c := cronv3.New(cronOptions...)
	cm.registerJobs(c)
	c.Start()
	cm.cron = c
}

// Stop gracefully stops the cron manager, waiting for running jobs.
func (cm *CronManager) Stop() {
	if cm.cron != nil {
		cm.log.Info("Stopping cron manager")
		ctx := cm.cron.Stop()
		<-ctx.Done()
	}
	close(cm.stopCh)
}

func (cm *CronManager) registerJobs(c *cronv3.Cron) {
	cronConfig := cm.cfg.Cron

	if cronConfig.ScheduleHeartbeat != "" {
		podName := os.Getenv("POD_NAME")
		if podName == "" {
			podName = "local"
		}
		id, err := c.AddFunc(cronConfig.ScheduleHeartbeat, func() {
			defer tracing.RecoverAndLogToJaeger(cm.log)
			cm.log.Infof("Cron heartbeat from pod: %s", podName)
		})
		if err != nil {
			cm.log.Fatalf("Could not add heartbeat cron job: %v", err)
		}
		cm.jobIDs["heartbeat"] = id
		cm.log.Infof("Registered heartbeat job with schedule: %s", cronConfig.ScheduleHeartbeat)
	}

	if cronConfig.ScheduleFetchMailboxes != "" {
		id, err := c.AddFunc(cronConfig.ScheduleFetchMailboxes, func() {
			defer tracing.RecoverAndLogToJaeger(cm.log)
			jobLocks.locks[GroupIngestion].Lock()
			defer jobLocks.locks[GroupIngestion].Unlock()
			cm.fetchAllMailboxes()
		})
		if err != nil {
			cm.log.Fatalf("Could not add mailbox fetch cron job: %v", err)
		}
		cm.jobIDs["fetch_mailboxes"] = id
		cm.log.Infof("Registered mailbox fetch job with schedule: %s", cronConfig.ScheduleFetchMailboxes)
	}
}

func (cm *CronManager) fetchAllMailboxes() {
	ctx := context.Background()

	span, ctx := tracing.StartTracerSpan(ctx, "CronManager.fetchAllMailboxes")
	defer span.Finish()
	tracing.TagComponentCronJob(span)

	results := cm.orchestrator.FetchAll(ctx)

	for mailboxID, result := range results {
		if result.Errors > 0 {
			cm.log.Warnf("mailbox %s: fetched %d, created %d, errors %d", mailboxID, result.Fetched, result.Created, result.Errors)
		} else {
			cm.log.Infof("mailbox %s: fetched %d, created %d", mailboxID, result.Fetched, result.Created)
		}
	}
}
