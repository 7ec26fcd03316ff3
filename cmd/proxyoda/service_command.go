package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"proxyoda/internal/encoderctl"
	"proxyoda/internal/services"
)

func newServiceCommand(ctx *commandContext) *cobra.Command {
	serviceCmd := &cobra.Command{
		Use:   "service",
		Short: "AME web service utilities",
	}

	var iniPath string
	setPort := &cobra.Command{
		Use:   "set-port <port>",
		Short: "Write the listening port into ame_webservice_config.ini",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			port, err := strconv.Atoi(strings.TrimSpace(args[0]))
			if err != nil {
				return fmt.Errorf("invalid port %q", args[0])
			}
			target := strings.TrimSpace(iniPath)
			if target == "" {
				console, ok := encoderctl.LocateExecutable(cfg.Encoder.ConsolePaths)
				if !ok {
					return services.Wrap(services.ErrServiceUnavailable, "cli", "service set-port",
						"ame_webservice_console not found; pass --file", nil)
				}
				target = encoderctl.ServiceConfigPath(console)
			}
			if err := encoderctl.SetServicePort(target, port); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Set port=%d in %s\n", port, target)
			if port != cfg.WebService.Port {
				fmt.Fprintf(out, "Note: webservice.port in %s is still %d\n", ctx.configPath, cfg.WebService.Port)
			}
			return nil
		},
	}
	setPort.Flags().StringVar(&iniPath, "file", "", "Path to ame_webservice_config.ini (default: next to the console launcher)")

	serviceCmd.AddCommand(setPort)
	return serviceCmd
}
