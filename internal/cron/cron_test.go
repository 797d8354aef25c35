package cron

import (
	"testing"

	cronv3 "github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"

	"github.com/opendesk/mailroom/config"
	"github.com/opendesk/mailroom/internal/logger"
)

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

func testConfig() *config.Config {
	return &config.Config{
		AppConfig: &config.AppConfig{},
		Logger: &logger.Config{
			LogLevel: "info",
		},
		Cron: &config.CronConfig{
			ScheduleHeartbeat:      "0 * * * * *",
			ScheduleFetchMailboxes: "0 */2 * * * *",
		},
	}
}

func TestNewCronManager(t *testing.T) {
	cfg := testConfig()
	log := getLogger()

	cm := NewCronManager(cfg, log, nil)

	assert.NotNil(t, cm)
	assert.Equal(t, cfg, cm.cfg)
	assert.Equal(t, log, cm.log)
	assert.NotNil(t, cm.jobIDs)
	assert.NotNil(t, cm.stopCh)
}

func TestCronManager_RegisterJobs(t *testing.T) {
	cm := NewCronManager(testConfig(), getLogger(), nil)

	c := cronv3.New(cronv3.WithSeconds())
	cm.registerJobs(c)

	assert.Equal(t, 2, len(cm.jobIDs))
	assert.Contains(t, cm.jobIDs, "heartbeat")
	assert.Contains(t, cm.jobIDs, "fetch_mailboxes")
}

func TestCronManager_RegisterJobs_DisabledSchedules(t *testing.T) {
	cfg := testConfig()
	cfg.Cron.ScheduleHeartbeat = ""
	cfg.Cron.ScheduleFetchMailboxes = ""
	cm := NewCronManager(cfg, getLogger(), nil)

	c := cronv3.New(cronv3.WithSeconds())
	cm.registerJobs(c)

	assert.Empty(t, cm.jobIDs)
}

func TestCronManager_Stop(t *testing.T) {
	cm := NewCronManager(testConfig(), getLogger(), nil)

	mockCron := cronv3.New()
	mockCron.Start()
	cm.cron = mockCron

	cm.Stop()

	select {
	case <-cm.stopCh:
	default:
		t.Error("Stop channel was not closed")
	}
}
