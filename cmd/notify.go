package cmd

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"property-hunter/services"
)

func notifyCommand() *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Mail saved-search digests on a schedule",
		Long: `Runs every saved search against listings scraped since its last run and
mails a digest to its owner. The schedule comes from NOTIFY_SCHEDULE and
accepts cron expressions or descriptors such as "@daily" and "@every 24h".`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			notifier := services.NewNotifier(store, services.NewSMTPMailer(a.cfg), services.NewGeoMatcher(a.ref), a.logger)
			run := func(ctx context.Context) error {
				results, err := notifier.RunOnce(ctx)
				for _, r := range results {
					a.logger.Info("[notify] %q: %d listings, %s", r.Name, r.Listings, r.Outcome)
				}
				return err
			}

			if once {
				return run(ctx)
			}

			parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
			c := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger)))
			if _, err := c.AddFunc(a.cfg.NotifySchedule, func() {
				if err := run(ctx); err != nil {
					a.logger.Error("[notify] Run failed: %v", err)
				}
			}); err != nil {
				return err
			}

			a.logger.Info("[notify] Scheduler started (%s)", a.cfg.NotifySchedule)
			c.Start()
			<-ctx.Done()
			<-c.Stop().Done()
			a.logger.Info("[notify] Scheduler stopped")
			return nil
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "run one pass and exit")
	return cmd
}
