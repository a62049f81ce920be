// Package main は生成APIを操作するCLIです。
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/yourusername/latent-forge/internal/client"
)

var (
	serverURL string
	timeout   time.Duration
)

var rootCmd = &cobra.Command{
	Use:          "ganctl",
	Short:        "CLI for the generative art API",
	SilenceUsage: true,
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Submit a generation job",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		req := client.GenerateRequest{}
		if flags.Changed("seed") {
			seed, err := flags.GetInt64("seed")
			if err != nil {
				return err
			}
			req.Seed = &seed
		}
		if path, _ := flags.GetString("latent-file"); path != "" {
			latent, err := readLatentFile(path)
			if err != nil {
				return err
			}
			req.LatentVector = latent
		}
		req.Style, _ = flags.GetString("style")
		req.Resolution, _ = flags.GetInt("resolution")
		wait, _ := flags.GetBool("wait")

		ctx, cancel := commandContext(cmd)
		defer cancel()
		job, err := newClient().Generate(ctx, req, wait)
		if err != nil {
			return err
		}
		return printJSON(cmd, job)
	},
}

var resultCmd = &cobra.Command{
	Use:   "result job-id",
	Short: "Show the current state of a job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()
		job, err := newClient().Result(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, job)
	},
}

var waitCmd = &cobra.Command{
	Use:   "wait job-id",
	Short: "Poll a job until it completes or fails",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		interval, _ := cmd.Flags().GetDuration("interval")
		ctx, cancel := commandContext(cmd)
		defer cancel()
		job, err := newClient().Wait(ctx, args[0], interval)
		if err != nil {
			return err
		}
		if err := printJSON(cmd, job); err != nil {
			return err
		}
		if job.Status == "failed" {
			return fmt.Errorf("job %s failed: %s", job.ID, job.Error)
		}
		return nil
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check API health",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()
		health, err := newClient().Health(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd, health)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("GAN_API_URL", "http://localhost:8000"), "API base URL")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "request timeout")

	generateCmd.Flags().Int64("seed", 0, "random seed (random when omitted)")
	generateCmd.Flags().String("style", "", "abstract, waves or organic")
	generateCmd.Flags().Int("resolution", 0, "256, 512 or 1024")
	generateCmd.Flags().Bool("wait", false, "wait for the job on the server")
	generateCmd.Flags().String("latent-file", "", "JSON file holding a 100-element latent vector")

	waitCmd.Flags().Duration("interval", 500*time.Millisecond, "polling interval")

	rootCmd.AddCommand(generateCmd, resultCmd, waitCmd, healthCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newClient() *client.Client {
	return client.New(serverURL)
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), timeout)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readLatentFile は JSON 配列の潜在ベクトルを読み込みます。次元数の検証はサーバーに任せます。
func readLatentFile(path string) ([]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read latent file: %w", err)
	}
	latent := []float64{}
	if err := json.Unmarshal(data, &latent); err != nil {
		return nil, fmt.Errorf("latent file must be a JSON array of numbers: %w", err)
	}
	return latent, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
