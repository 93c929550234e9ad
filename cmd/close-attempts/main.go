// Command close-attempts finalizes every published exam whose validity window
// has ended or whose participants have all submitted. It is meant to run from
// cron; the exit status is 1 when any exam could not be processed.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/stemsi/exstem-wizard/internal/cache"
	"github.com/stemsi/exstem-wizard/internal/config"
	"github.com/stemsi/exstem-wizard/internal/database"
	"github.com/stemsi/exstem-wizard/internal/logger"
	"github.com/stemsi/exstem-wizard/internal/repository"
	"github.com/stemsi/exstem-wizard/internal/service"
)

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	var listener service.MutationListener
	if rdb, err := database.NewRedisClient(ctx, cfg, log); err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, cached listings will expire on their own")
	} else {
		defer rdb.Close()
		listener = cache.NewExamCache(rdb, cfg.CacheTTL, log)
	}

	finalizer := service.NewAutoFinalizer(repository.NewStore(pool), listener, log)
	report, err := finalizer.Sweep(ctx)
	if report == nil {
		color.Red("Sweep failed: %v", err)
		os.Exit(1)
	}

	printReport(os.Stdout, report)
	if len(report.Failed) > 0 {
		os.Exit(1)
	}
}

func printReport(w io.Writer, report *service.SweepReport) {
	color.Cyan("\nPublished exams checked: %d", report.Checked)

	if len(report.Finalized) == 0 {
		color.Green("No exam was due for finalization.")
	} else {
		color.Yellow("\nFinalized exams")
		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{"ID", "Code", "Reason", "Closed attempts"})
		for _, o := range report.Finalized {
			table.Append([]string{
				strconv.FormatInt(o.ExamID, 10),
				o.Code,
				string(o.Reason),
				strconv.Itoa(o.ClosedAttempts),
			})
		}
		table.Render()
	}

	if len(report.Failed) > 0 {
		ids := make([]int64, 0, len(report.Failed))
		for id := range report.Failed {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		color.Red("\nFailed exams")
		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{"ID", "Error"})
		for _, id := range ids {
			table.Append([]string{strconv.FormatInt(id, 10), report.Failed[id]})
		}
		table.Render()
	}
	fmt.Fprintln(w)
}
