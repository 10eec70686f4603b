package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/llmgw/internal/config"
	"github.com/nextlevelbuilder/llmgw/internal/sigcache"
)

var gcDaysOld int

func sigcacheCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "sigcache",
		Short: "Inspect or maintain the Gemini thought-signature cache",
	}

	gc := &cobra.Command{
		Use:   "gc",
		Short: "Run a one-shot eviction pass over entries older than --days-old",
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging()

			env := config.LoadEnv()
			path, err := sigcache.DefaultPath(env.CacheDir)
			if err != nil {
				return err
			}

			cache, err := sigcache.Open(path)
			if err != nil {
				return err
			}
			defer cache.Close()

			n, err := cache.GC(time.Duration(gcDaysOld) * 24 * time.Hour)
			if err != nil {
				return err
			}
			cmd.Printf("sigcache gc: evicted %d entr(ies) from %s\n", n, path)
			return nil
		},
	}
	gc.Flags().IntVar(&gcDaysOld, "days-old", 30, "evict entries older than this many days")

	root.AddCommand(gc)
	return root
}
