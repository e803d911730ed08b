package engine

import (
	"fmt"
	"log/slog"

	database "github.com/drummonds/gosign/database"
	"github.com/robfig/cron/v3"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// InitializeSchedules starts all the cron jobs (currently just the session
// cleanup)
func (serverHandler *ServerHandler) InitializeSchedules(db database.Repository) {
	serverConfig, err := database.FetchConfigFromDB(db)
	if err != nil {
		fmt.Println("Error reading db when initializing")
	}

	c := cron.New()
	var cleanupJob cron.Job
	cleanupJob = cron.FuncJob(func() { serverHandler.cleanupSessionsJobFunc(db) })
	cleanupJob = cron.NewChain(cron.SkipIfStillRunning(cron.DefaultLogger)).Then(cleanupJob) //ensure we don't kick off another if old one is still running
	if _, err := c.AddJob(serverConfig.CleanupSchedule, cleanupJob); err != nil {
		Logger.Error("Invalid cleanup schedule, session cleanup disabled", "schedule", serverConfig.CleanupSchedule, "error", err)
		return
	}
	Logger.Info("Adding session cleanup scheduler", "schedule", serverConfig.CleanupSchedule, "ttlHours", serverConfig.SessionTTLHours)
	c.Start()
}
