package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/lens/filter"
	"github.com/papercomputeco/lens/pkg/logger"
	"github.com/papercomputeco/lens/proxy"
)

const rootLongDesc string = `lens is a transparent chat-completions proxy that replaces an image
embedded in the first user turn with text extracted by a remote vision
model, before the request reaches the primary model. Later turns drop
stray images instead of re-extracting them.

Filter settings are read from the environment (OCR_BASE_URL, OCR_API_KEY,
OCR_MAX_RETRIES, OCR_PROMPT, OCR_MODEL, LENS_PRIORITY), optionally seeded
from a .env file, and may be overridden by a TOML config file.

Examples:
  lens --listen :6070 --upstream https://api.openai.com
  lens --config lens.toml --debug`

type rootCommander struct {
	listenAddr  string
	upstreamURL string
	configPath  string
	debug       bool
}

func newRootCmd() *cobra.Command {
	cmder := &rootCommander{}

	cmd := &cobra.Command{
		Use:   "lens",
		Short: "OCR inlet filter proxy for chat completions",
		Long:  rootLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run()
		},
	}

	cmd.Flags().StringVarP(&cmder.listenAddr, "listen", "l", ":6070", "Address to listen on")
	cmd.Flags().StringVarP(&cmder.upstreamURL, "upstream", "u", "https://api.openai.com", "Upstream chat-completions provider URL")
	cmd.Flags().StringVarP(&cmder.configPath, "config", "c", "", "Path to a TOML config file")
	cmd.Flags().BoolVar(&cmder.debug, "debug", false, "Enable debug logging")

	return cmd
}

func (c *rootCommander) run() error {
	// A missing .env file is fine; explicit env vars still apply.
	_ = godotenv.Load()

	log := logger.NewLogger(c.debug)
	defer log.Sync()

	filterCfg, err := filter.FromEnv()
	if err != nil {
		return fmt.Errorf("load filter config: %w", err)
	}

	cfg := proxy.Config{
		ListenAddr:  c.listenAddr,
		UpstreamURL: c.upstreamURL,
		Filter:      filterCfg,
	}
	if c.configPath != "" {
		cfg, err = proxy.LoadFile(c.configPath, cfg)
		if err != nil {
			return err
		}
		if err := cfg.Filter.Validate(); err != nil {
			return fmt.Errorf("invalid filter config: %w", err)
		}
	}

	log.Info("lens proxy starting",
		zap.String("listen", cfg.ListenAddr),
		zap.String("upstream", cfg.UpstreamURL),
		zap.String("ocr_model", cfg.Filter.Model),
		zap.Bool("debug", c.debug),
	)

	ocr := filter.New(cfg.Filter, log.Named("filter"))
	p := proxy.New(cfg, log.Named("proxy"), ocr)

	return p.Run()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
