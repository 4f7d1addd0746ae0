package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jnfrati/buzon/internal/broker"
	"github.com/jnfrati/buzon/internal/config"
	"github.com/jnfrati/buzon/internal/models"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "buzon",
		Short: "A small HTTP message broker",
		Long:  "Run a buzon broker or post and fetch messages from one",
	}

	rootCmd.PersistentFlags().StringP("host", "", "http://127.0.0.1:6000", "Buzon server host:port")

	rootCmd.AddCommand(newStartCmd())
	rootCmd.AddCommand(newPostCmd())
	rootCmd.AddCommand(newGetCmd())
	rootCmd.AddCommand(newQueuesCmd())

	// Execute the CLI
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func newStartCmd() *cobra.Command {
	var startServer = &cobra.Command{
		Use:   "start",
		Short: "Start a buzon server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			if err := applyFlags(cmd, &cfg); err != nil {
				return err
			}

			rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := broker.Run(rootCtx, cfg); err != nil {
				return err
			}

			log.Println("Server shutdown complete")
			return nil
		},
	}

	flags := startServer.Flags()
	flags.String("addr", "", "listen address (overrides MQ_ADDR)")
	flags.Int64("max-message-bytes", 0, "maximum accepted message size (overrides MQ_MAX_MESSAGE_BYTES)")
	flags.Duration("default-wait", 0, "wait used when a get has no timeout (overrides MQ_DEFAULT_WAIT)")
	flags.Duration("max-wait", 0, "longest wait a get may ask for (overrides MQ_MAX_WAIT)")
	flags.String("stats-schedule", "", "cron spec for queue stats, \"off\" disables (overrides MQ_STATS_SCHEDULE)")
	flags.String("log-level", "", "log level (overrides MQ_LOG_LEVEL)")
	flags.Bool("debug", false, "sets log level to debug")

	return startServer
}

// applyFlags copies the flags the user actually set over cfg.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	var err error
	if flags.Changed("addr") {
		cfg.Addr, err = flags.GetString("addr")
	}
	if err == nil && flags.Changed("max-message-bytes") {
		cfg.MaxMessageBytes, err = flags.GetInt64("max-message-bytes")
	}
	if err == nil && flags.Changed("default-wait") {
		cfg.DefaultWait, err = flags.GetDuration("default-wait")
	}
	if err == nil && flags.Changed("max-wait") {
		cfg.MaxWait, err = flags.GetDuration("max-wait")
	}
	if err == nil && flags.Changed("stats-schedule") {
		cfg.StatsSchedule, err = flags.GetString("stats-schedule")
	}
	if err == nil && flags.Changed("log-level") {
		cfg.LogLevel, err = flags.GetString("log-level")
	}
	if err == nil && flags.Changed("debug") {
		var debug bool
		debug, err = flags.GetBool("debug")
		if debug {
			cfg.LogLevel = "debug"
		}
	}
	if err != nil {
		return err
	}

	return cfg.Validate()
}

type messageManifest struct {
	Id   string `yaml:"id"`
	Body any    `yaml:"body"`
}

// readManifest loads a message from a YAML or JSON file.
func readManifest(filepath string) (*models.Message, error) {
	raw, err := os.ReadFile(path.Clean(filepath))
	if err != nil {
		return nil, err
	}

	manifest := new(messageManifest)
	if err := yaml.Unmarshal(raw, manifest); err != nil {
		return nil, errors.Wrapf(err, "couldn't parse %s", filepath)
	}

	if manifest.Body == nil {
		return nil, errors.Wrapf(models.ErrMissingBody, "manifest %s", filepath)
	}

	return models.NewMessage(manifest.Id, manifest.Body)
}

func newPostCmd() *cobra.Command {
	var postCmd = &cobra.Command{
		Use:   "post [queue] [filepath]",
		Short: "Post a message to a queue",
		Long:  "Post a message read from a YAML/JSON manifest, or built from --id and --body",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				msg *models.Message
				err error
			)

			if len(args) == 2 {
				msg, err = readManifest(args[1])
			} else {
				id, _ := cmd.Flags().GetString("id")
				body, _ := cmd.Flags().GetString("body")
				if !json.Valid([]byte(body)) {
					return errors.Errorf("--body is not valid JSON: %s", body)
				}
				msg = &models.Message{Id: id, Body: json.RawMessage(body)}
			}
			if err != nil {
				return err
			}

			host, _ := cmd.Flags().GetString("host")

			status, err := mutate(host, "/api/"+url.PathEscape(args[0]), msg)
			if err != nil {
				return err
			}

			log.Printf("posted to %s (%d)", args[0], status)
			return nil
		},
	}

	postCmd.Flags().String("id", "", "message id, generated by the server when empty")
	postCmd.Flags().String("body", "null", "message body as JSON")

	return postCmd
}

func newGetCmd() *cobra.Command {
	var getCmd = &cobra.Command{
		Use:   "get [queue]",
		Short: "Take the next message from a queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			host, _ := cmd.Flags().GetString("host")
			timeout, _ := cmd.Flags().GetDuration("timeout")

			p := fmt.Sprintf("/api/%s?timeout=%d", url.PathEscape(args[0]), timeout.Milliseconds())

			msg, status, err := query[models.Message](host, p)
			if err != nil {
				return err
			}

			if status == http.StatusNoContent {
				fmt.Println("no message")
				return nil
			}

			out, err := json.MarshalIndent(msg, "", "  ")
			if err != nil {
				return err
			}

			fmt.Println(string(out))
			return nil
		},
	}

	getCmd.Flags().Duration("timeout", time.Second, "how long to wait for a message")

	return getCmd
}

func newQueuesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "queues",
		Short: "List queues and their pending messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			host, _ := cmd.Flags().GetString("host")

			stats, _, err := query[[]models.QueueStats](host, "/api")
			if err != nil {
				return err
			}

			if len(stats) == 0 {
				log.Println("No queues found")
				return nil
			}

			log.Println("Queues:")
			log.Println("-------")
			for _, s := range stats {
				fmt.Printf("• %s\n  Pending: %d\n\n", s.Name, s.Depth)
			}
			return nil
		},
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func responseError(res *http.Response) error {
	body, _ := io.ReadAll(res.Body)

	e := errorResponse{}
	if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
		return errors.Errorf("server answered %d: %s", res.StatusCode, e.Error)
	}
	return errors.Errorf("server answered %d", res.StatusCode)
}

func query[T any](host string, path string) (*T, int, error) {
	res, err := http.Get(host + path)
	if err != nil {
		return nil, 0, err
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		return nil, res.StatusCode, responseError(res)
	}

	if res.StatusCode == http.StatusNoContent {
		return nil, res.StatusCode, nil
	}

	obj := new(T)
	if err := json.NewDecoder(res.Body).Decode(obj); err != nil {
		return nil, res.StatusCode, err
	}

	return obj, res.StatusCode, nil
}

func mutate(host string, path string, body any) (int, error) {
	bodyJson := bytes.NewBuffer([]byte{})

	err := json.NewEncoder(bodyJson).Encode(body)
	if err != nil {
		return 0, err
	}

	res, err := http.Post(host+path, "application/json", bodyJson)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		return res.StatusCode, responseError(res)
	}

	return res.StatusCode, nil
}
