package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/zen-systems/toolroute/pkg/adapter"
	"github.com/zen-systems/toolroute/pkg/config"
	"github.com/zen-systems/toolroute/pkg/dispatch"
	"github.com/zen-systems/toolroute/pkg/evidence"
	"github.com/zen-systems/toolroute/pkg/reasoning"
	"github.com/zen-systems/toolroute/pkg/router"
	"github.com/zen-systems/toolroute/pkg/server"
)

var (
	configFile string
	logLevel   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "toolroute",
		Short: "Route natural-language requests to the right tool",
		Long: `Toolroute classifies a natural-language request and picks the tool
	that should handle it: pattern rules first, then intent cues, then
	step-by-step model reasoning, and finally a default research tool.

	Run "toolroute serve" to expose the router as an MCP server.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to config file (default ~/.toolroute/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(classifyCmd())
	rootCmd.AddCommand(thinkCmd())
	rootCmd.AddCommand(toolsCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func classifyCmd() *cobra.Command {
	var jsonFlag bool
	var executeFlag bool
	var confirmFlag bool
	var evidenceDir string

	cmd := &cobra.Command{
		Use:   "classify [request]",
		Short: "Pick the tool for a request",
		Long: `Classifies the request and prints the chosen tool, the method that
	chose it and the extracted parameters.

	Use --execute to run the tool afterwards. Matches that need confirmation
	only run when --confirm is also given.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			request := strings.Join(args, " ")
			match := a.classifier.Classify(ctx, request, a.cfg.Model)

			if jsonFlag {
				data, err := json.MarshalIndent(match, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
			} else {
				printMatch(cmd, match)
			}
			if evidenceDir != "" {
				w, err := evidence.NewWriter(evidenceDir, time.Now().UTC().Format("20060102T150405.000000000Z"))
				if err != nil {
					return fmt.Errorf("failed to create evidence writer: %w", err)
				}
				if err := w.WriteDecision(request, match); err != nil {
					return fmt.Errorf("failed to write decision: %w", err)
				}
			}

			if !executeFlag {
				return nil
			}
			res, err := a.dispatcher.Dispatch(ctx, match, confirmFlag)
			if errors.Is(err, dispatch.ErrConfirmationRequired) {
				return fmt.Errorf("%w; rerun with --confirm to run %s", err, match.ToolID)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout())
			fmt.Fprintln(cmd.OutOrStdout(), res.Output)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonFlag, "json", false, "print the match as JSON")
	cmd.Flags().BoolVar(&executeFlag, "execute", false, "run the matched tool")
	cmd.Flags().BoolVar(&confirmFlag, "confirm", false, "run even when the match needs confirmation")
	cmd.Flags().StringVar(&evidenceDir, "evidence-dir", "", "write the decision to a directory under this path")

	return cmd
}

func printMatch(cmd *cobra.Command, m *router.EnhancedMatch) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Tool:       %s\n", m.ToolID)
	fmt.Fprintf(out, "Method:     %s\n", m.Method)
	fmt.Fprintf(out, "Confidence: %.2f\n", m.Confidence)
	if m.MatchedPattern != "" {
		fmt.Fprintf(out, "Pattern:    %s\n", m.MatchedPattern)
	}
	if len(m.Parameters) > 0 {
		fmt.Fprintln(out, "Parameters:")
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		for _, k := range sortedKeys(m.Parameters) {
			fmt.Fprintf(w, "  %s\t%s\n", k, m.Parameters[k])
		}
		_ = w.Flush()
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, router.Explain(m))
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func thinkCmd() *cobra.Command {
	var showRounds bool
	var task string
	var evidenceDir string

	cmd := &cobra.Command{
		Use:   "think [task]",
		Short: "Reason about a task step by step",
		Long: `Runs a sequential reasoning session on the task and prints the final
	answer. Use --rounds to print every intermediate thought to stderr.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			sess, err := a.engine.RunSession(ctx, reasoning.Request{
				Task:      strings.Join(args, " "),
				ModelTask: task,
			}, a.cfg.Model)
			if sess != nil && showRounds {
				for _, r := range sess.History.Rounds() {
					fmt.Fprintf(cmd.ErrOrStderr(), "[%d/%d] %s\n", r.Index, r.TotalEstimate, r.Text)
				}
			}
			if sess != nil && evidenceDir != "" {
				w, werr := evidence.NewWriter(evidenceDir, sess.ID)
				if werr == nil {
					werr = w.WriteSession(sess)
				}
				if werr != nil {
					a.logger.Warn().Err(werr).Msg("failed to write session evidence")
				}
			}
			if err != nil {
				return err
			}
			if sess.Truncated {
				fmt.Fprintf(cmd.ErrOrStderr(), "stopped after %d rounds\n", sess.History.Len())
			}
			fmt.Fprintln(cmd.OutOrStdout(), sess.Final())
			return nil
		},
	}

	cmd.Flags().BoolVar(&showRounds, "rounds", false, "print intermediate thoughts to stderr")
	cmd.Flags().StringVar(&task, "task", "", "llm_mapping task key used to pick the model")
	cmd.Flags().StringVar(&evidenceDir, "evidence-dir", "", "write the session transcript to a directory under this path")

	return cmd
}

func toolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "Show registered tools and their models",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TOOL\tTASK\tMODEL\tPATTERNS")
			for _, r := range a.classifier.Routes(a.cfg.Model) {
				model := r.Model
				if model == "" {
					model = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.ToolID, r.Task, model, strings.Join(r.Patterns, ", "))
			}

			fmt.Fprintln(w)
			fmt.Fprintf(w, "DEFAULT\t%s\t-\t-\n", a.cfg.Classifier.DefaultTool)

			return w.Flush()
		},
	}
}

func serveCmd() *cobra.Command {
	var transportFlag string
	var addrFlag string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the router over MCP",
		Long: `Starts an MCP server exposing process-request, classify-request and
	list-tools. The stdio transport is the default; --transport http serves
	streamable HTTP at /mcp and Prometheus metrics at /metrics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			srvCfg := a.cfg.Server
			if transportFlag != "" {
				srvCfg.Transport = transportFlag
			}
			if addrFlag != "" {
				srvCfg.Addr = addrFlag
			}

			s := server.New(srvCfg, server.Deps{
				Classifier: a.classifier,
				Dispatcher: a.dispatcher,
				Model:      a.cfg.Model,
				Logger:     a.logger,
			})
			t, err := server.NewTransport(srvCfg, s, a.registry, a.logger)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a.logger.Info().Str("transport", srvCfg.Transport).Msg("starting MCP server")
			return server.Run(ctx, t)
		},
	}

	cmd.Flags().StringVar(&transportFlag, "transport", "", "transport: stdio or http")
	cmd.Flags().StringVar(&addrFlag, "addr", "", "listen address for the http transport")

	return cmd
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration",
		Long:  "Loads the configuration, applies environment overrides, builds the model client and checks everything without calling any model.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if _, err := adapter.New(cfg.Model); err != nil {
				return fmt.Errorf("failed to build %s adapter: %w", cfg.Model.Provider, err)
			}
			if _, err := router.NewClassifier(router.ToolsFromConfig(cfg.Tools), cfg.Classifier, nil); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Configuration is valid.")
			fmt.Fprintf(out, "  provider: %s\n", cfg.Model.Provider)
			tasks := []string{config.DefaultGenerationTask}
			for _, task := range cfg.Model.LLMMapping.Tasks() {
				if task != config.DefaultGenerationTask {
					tasks = append(tasks, task)
				}
			}
			for _, task := range tasks {
				if model, err := cfg.Model.SelectModel(task); err == nil {
					fmt.Fprintf(out, "  %s -> %s\n", task, model)
				}
			}
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "toolroute %s\n", server.Version)
		},
	}
}
