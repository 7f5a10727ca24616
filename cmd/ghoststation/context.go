package main

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"ghoststation/internal/api"
	"ghoststation/internal/config"
)

type globalFlags struct {
	config string
	addr   string
	token  string
	json   bool
}

type commandContext struct {
	flags *globalFlags

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, _, err := config.Load(strings.TrimSpace(c.flags.config))
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = path
	})
	return c.config, c.configErr
}

func (c *commandContext) jsonOutput() bool {
	return c.flags != nil && c.flags.json
}

// client builds an API client; flags win over the configuration file.
func (c *commandContext) client() (*api.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	addr := strings.TrimSpace(c.flags.addr)
	if addr == "" {
		addr = cfg.Paths.APIBind
	}
	if addr == "" {
		return nil, errors.New("no daemon address: set paths.api_bind or pass --addr")
	}
	token := strings.TrimSpace(c.flags.token)
	if token == "" {
		token = cfg.Paths.APIToken
	}
	return api.NewClient(addr, token, nil), nil
}

func wrapClientError(err error) error {
	if errors.Is(err, api.ErrDaemonUnreachable) {
		return fmt.Errorf("%w; start it with `ghoststation daemon start`", err)
	}
	return err
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
