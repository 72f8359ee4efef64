package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/e7canasta/orion-gatekeeper/internal/clock"
	"github.com/e7canasta/orion-gatekeeper/internal/selftest"
	"github.com/e7canasta/orion-gatekeeper/internal/vision"
)

// NewSelfTestCommand creates the selftest command, used when commissioning
// an install: it sweeps the servo, chirps the buzzer and pulls one frame.
func NewSelfTestCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "selftest",
		Short:        "Exercise servo, buzzer and camera once",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			source, err := buildSource(cfg)
			if err != nil {
				return err
			}
			defer source.Close()

			periph, err := buildPeripherals(cfg)
			if err != nil {
				return err
			}
			defer periph.close()

			detector := vision.New(vision.Config{Threshold: cfg.Detection.Threshold})
			report := selftest.Run(ctx, periph.actuator, periph.buzzer, source, detector, clock.Wall(), selfTestConfig(cfg))

			fmt.Fprint(cmd.OutOrStdout(), report.Render())
			if !report.OK() {
				return fmt.Errorf("self-test failed")
			}
			return nil
		},
	}
}
