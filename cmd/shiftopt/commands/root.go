package commands

import (
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"shiftopt/internal/config"
	"shiftopt/internal/httpapi"
	"shiftopt/internal/logging"
	"shiftopt/internal/service"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	verbose bool
	cfg     *config.AppConfig
)

var rootCmd = &cobra.Command{
	Use:   "shiftopt",
	Short: "Shiftopt is a shift-scheduling optimization service",
	Long: `An HTTP service that proposes work shift rosters maximizing income or
work-life balance under fuyou, daily and weekly hour constraints, using
linear programming, genetic and multi-objective solvers.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(verbose)

		var err error
		cfg, err = config.Load()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load configuration")
		}

		httpapi.Version = Version

		log.Info().
			Str("version", Version).
			Str("commit", Commit).
			Str("buildDate", BuildDate).
			Msg("Shiftopt starting")
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		svc := service.New(cfg)
		server := httpapi.NewServer(cfg, svc)

		err := server.ListenAndServe(ctx)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		log.Info().Msg("Shiftopt stopped")
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}
