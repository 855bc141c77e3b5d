package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tbourn/go-seat-planner/internal/optimizer"
	"github.com/tbourn/go-seat-planner/internal/planner"
	"github.com/tbourn/go-seat-planner/internal/sysutil"
)

type cli struct {
	v          *viper.Viper
	stdin      io.Reader
	stdout     io.Writer
	configFile string
	input      string
	output     string
	solver     string
	pretty     bool
}

func newRootCmd(stdin io.Reader, stdout io.Writer) *cobra.Command {
	c := &cli{v: viper.New(), stdin: stdin, stdout: stdout}

	root := &cobra.Command{
		Use:           "planctl",
		Short:         "Office seat planning from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			sysutil.SetupLogging(cmd.ErrOrStderr(), c.v.GetString("log_level"), true, "planctl", version)
			return c.loadConfig()
		},
	}
	root.PersistentFlags().StringVarP(&c.configFile, "config", "c", "", "planner options file (yaml, json or toml)")
	root.PersistentFlags().StringVarP(&c.input, "input", "i", "-", "request JSON, '-' for stdin")
	root.PersistentFlags().String("log-level", "warn", "log level")
	_ = c.v.BindPFlag("log_level", root.PersistentFlags().Lookup("log-level"))

	plan := &cobra.Command{
		Use:   "plan",
		Short: "Plan the week and print assignments, warnings and schedule",
		Args:  cobra.NoArgs,
		RunE:  func(cmd *cobra.Command, _ []string) error { return c.plan(cmd.Context()) },
	}
	plan.Flags().StringVarP(&c.output, "output", "o", "-", "result JSON, '-' for stdout")
	plan.Flags().StringVar(&c.solver, "solver", "", "override solver: auto, optimal or greedy")
	plan.Flags().BoolVar(&c.pretty, "pretty", false, "indent JSON output")

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Check a request without planning it",
		Args:  cobra.NoArgs,
		RunE:  func(cmd *cobra.Command, _ []string) error { return c.validate() },
	}

	root.AddCommand(plan, validate)
	return root
}

// loadConfig layers defaults, the optional config file and PLANCTL_* env.
func (c *cli) loadConfig() error {
	c.v.SetEnvPrefix("planctl")
	c.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	c.v.AutomaticEnv()
	c.v.SetDefault("optimizer.timeout", "5s")
	c.v.SetDefault("optimizer.cooldown", "30s")

	if c.configFile == "" {
		c.configFile = os.Getenv("PLANCTL_CONFIG")
	}
	if c.configFile == "" {
		return nil
	}
	c.v.SetConfigFile(c.configFile)
	if err := c.v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", c.configFile, err)
	}
	return nil
}

func (c *cli) options() (planner.Options, error) {
	opts := planner.DefaultOptions()
	if sub := c.v.Sub("planner"); sub != nil {
		if err := sub.Unmarshal(&opts); err != nil {
			return opts, fmt.Errorf("planner options: %w", err)
		}
	}
	return opts, opts.Validate()
}

func (c *cli) engine() (*planner.Engine, error) {
	opts, err := c.options()
	if err != nil {
		return nil, err
	}
	var remote planner.RemoteMatcher
	if client := optimizer.New(optimizer.Config{
		BaseURL:  c.v.GetString("optimizer.url"),
		Timeout:  c.v.GetDuration("optimizer.timeout"),
		Cooldown: c.v.GetDuration("optimizer.cooldown"),
	}); client != nil {
		remote = client
	}
	return planner.New(opts, remote)
}

func (c *cli) readRequest() (planner.Request, error) {
	var req planner.Request
	r := c.stdin
	if c.input != "" && c.input != "-" {
		f, err := os.Open(c.input)
		if err != nil {
			return req, err
		}
		defer f.Close()
		r = f
	}
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return req, fmt.Errorf("decode request: %w", err)
	}
	return req, nil
}

func (c *cli) plan(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	eng, err := c.engine()
	if err != nil {
		return err
	}
	req, err := c.readRequest()
	if err != nil {
		return err
	}
	if c.solver != "" {
		req.Solver = c.solver
	}
	res, err := eng.Plan(ctx, req, nil)
	if err != nil {
		return err
	}
	w := c.stdout
	if c.output != "" && c.output != "-" {
		f, err := os.Create(c.output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	if c.pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(res); err != nil {
		return err
	}
	log.Info().Int("assignments", len(res.Assignments)).Int("warnings", len(res.Warnings)).
		Bool("degraded", res.Meta.Degraded).Msg("plan complete")
	return nil
}

func (c *cli) validate() error {
	eng, err := c.engine()
	if err != nil {
		return err
	}
	req, err := c.readRequest()
	if err != nil {
		return err
	}
	in, err := eng.Validate(req)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.stdout, "ok: %d employees, %d seats, %d days\n", len(in.Employees), len(in.Seats), len(in.Days))
	return err
}
