package main

import (
	"fmt"
	"os"

	"github.com/danmuck/admiral/internal/admiral"
	"github.com/danmuck/admiral/internal/logging"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "admiral: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	logging.ConfigureRuntime()

	var opts options
	flagSet := pflag.NewFlagSet("admiral", pflag.ContinueOnError)
	flagSet.StringVarP(&opts.ConfigPath, "config", "c", "", "path to admiral.toml")
	flagSet.StringVarP(&opts.EndpointsPath, "endpoints", "e", "", "path to endpoints.toml (overrides endpoints_file)")
	flagSet.StringVarP(&opts.ListenAddr, "listen", "l", "", "LMP listen address (overrides listen_addr)")
	flagSet.StringVar(&opts.AdminAddr, "admin", "", "admin HTTP address (overrides admin_addr)")
	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}

	cfg, err := resolveConfig(opts)
	if err != nil {
		return err
	}
	svc, err := admiral.NewServiceWithConfig(cfg)
	if err != nil {
		return err
	}
	return svc.Run()
}
