package main

import (
	"fmt"
	"os"

	"github.com/danmuck/admiral/internal/config"
	"github.com/danmuck/admiral/internal/logging"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "configgen: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	logging.ConfigureRuntime()

	flagSet := pflag.NewFlagSet("configgen", pflag.ContinueOnError)
	kind := flagSet.StringP("kind", "k", "admiral", "config kind: admiral|endpoints")
	output := flagSet.StringP("output", "o", "", "output path for config template")
	validate := flagSet.Bool("validate", false, "validate an existing config file")
	input := flagSet.StringP("input", "i", "", "config path for validation (defaults to per-kind cmd path)")
	force := flagSet.Bool("force", false, "overwrite existing config file")
	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	defaultPath, err := defaultPathFor(*kind)
	if err != nil {
		return err
	}

	if *validate {
		path := *input
		if path == "" {
			path = defaultPath
		}
		switch *kind {
		case "admiral":
			if _, err := config.ValidateServiceFile(path); err != nil {
				return err
			}
		case "endpoints":
			if _, err := config.LoadEndpoints(path); err != nil {
				return err
			}
		}
		logging.Log("configgen", fmt.Sprintf("validated %s config at %s", *kind, path), logging.Info)
		return nil
	}

	target := *output
	if target == "" {
		target = defaultPath
	}
	if err := config.WriteTemplate(target, *kind, *force); err != nil {
		return err
	}
	logging.Log("configgen", fmt.Sprintf("wrote %s config template to %s", *kind, target), logging.Info)
	return nil
}

func defaultPathFor(kind string) (string, error) {
	switch kind {
	case "admiral":
		return "cmd/admiral/config.toml", nil
	case "endpoints":
		return "cmd/admiral/endpoints.toml", nil
	default:
		return "", fmt.Errorf("unknown kind: %s", kind)
	}
}
