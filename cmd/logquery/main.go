// logquery is the operator CLI over the security log store: page through
// the four query indexes, pull a time range, or summarize a day.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gatewatch/store"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	redisAddr     string
	redisPassword string
	limit         int
	cursor        string
	levelFilter   string
	asJSON        bool
)

func main() {
	root := &cobra.Command{
		Use:           "logquery",
		Short:         "Query the gatewatch security log store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&redisAddr, "redis", envOr("GATEWATCH_REDIS_ADDR", "localhost:6379"), "Redis address")
	root.PersistentFlags().StringVar(&redisPassword, "password", os.Getenv("GATEWATCH_REDIS_PASSWORD"), "Redis password")
	root.PersistentFlags().IntVar(&limit, "limit", 50, "Page size")
	root.PersistentFlags().StringVar(&cursor, "cursor", "", "Resume cursor from a previous page")
	root.PersistentFlags().BoolVar(&asJSON, "json", false, "Emit raw JSON instead of a table")

	root.AddCommand(dateCmd(), ipCmd(), eventCmd(), levelCmd(), rangeCmd(), statsCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func logStore() *store.RedisLogStore {
	return store.NewRedisLogStore(store.NewRedisClient(redisAddr, redisPassword))
}

func dateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "date <YYYY-MM-DD>",
		Short: "Logs for one date partition, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := logStore().QueryByDate(context.Background(), args[0], limit, cursor)
			if err != nil {
				return err
			}
			return render(res)
		},
	}
}

func ipCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ip <address>",
		Short: "Logs for one client IP across dates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := logStore().QueryByIP(context.Background(), args[0], limit, cursor)
			if err != nil {
				return err
			}
			return render(res)
		},
	}
}

func eventCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "event <type>",
		Short: "Logs by event type (request, security_threat, bot_detection, rate_limit)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := logStore().QueryByEventType(context.Background(), args[0], levelFilter, limit, cursor)
			if err != nil {
				return err
			}
			return render(res)
		},
	}
	cmd.Flags().StringVar(&levelFilter, "level", "", "Post-filter by level")
	return cmd
}

func levelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "level <info|warn|error|critical>",
		Short: "Logs by severity level",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := logStore().QueryByLevel(context.Background(), args[0], limit, cursor)
			if err != nil {
				return err
			}
			return render(res)
		},
	}
}

func rangeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "range <YYYY-MM-DD> <from RFC3339> <to RFC3339>",
		Short: "Logs within a timestamp range inside one date partition",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := time.Parse(time.RFC3339, args[1])
			if err != nil {
				return fmt.Errorf("parse from: %w", err)
			}
			to, err := time.Parse(time.RFC3339, args[2])
			if err != nil {
				return fmt.Errorf("parse to: %w", err)
			}
			res, err := logStore().QueryByTimeRange(context.Background(), args[0], from, to, limit, cursor)
			if err != nil {
				return err
			}
			return render(res)
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats [YYYY-MM-DD]",
		Short: "Aggregate counts for one date partition",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date := time.Now().UTC().Format("2006-01-02")
			if len(args) == 1 {
				date = args[0]
			}
			stats, err := logStore().StatsByDate(context.Background(), date)
			if err != nil {
				return err
			}
			if asJSON {
				return emitJSON(stats)
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"Metric", "Value"})
			t.AppendRow(table.Row{"date", stats.Date})
			t.AppendRow(table.Row{"total", stats.Total})
			t.AppendRow(table.Row{"unique IPs", stats.UniqueIPs})
			for lvl, n := range stats.ByLevel {
				t.AppendRow(table.Row{"level " + lvl, n})
			}
			for ev, n := range stats.ByEventType {
				t.AppendRow(table.Row{"event " + ev, n})
			}
			t.SetStyle(table.StyleLight)
			t.Render()
			return nil
		},
	}
}

func render(res *store.QueryResult) error {
	if asJSON {
		return emitJSON(res)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Timestamp", "Level", "Event", "IP", "Method", "Path"})
	for _, rec := range res.Items {
		method, path := requestLine(rec)
		t.AppendRow(table.Row{
			time.Unix(rec.Timestamp, 0).UTC().Format(time.RFC3339),
			rec.Level,
			rec.EventType,
			rec.IP,
			method,
			path,
		})
	}
	t.SetStyle(table.StyleLight)
	t.Render()

	fmt.Printf("\n%d records", res.Count)
	if res.Cursor != "" {
		fmt.Printf("  (continue with --cursor %q)", res.Cursor)
	}
	fmt.Println()
	return nil
}

// requestLine digs method and path out of the embedded log payload.
func requestLine(rec *store.Record) (string, string) {
	var payload struct {
		RequestInfo struct {
			Method string `json:"method"`
			Path   string `json:"path"`
		} `json:"requestInfo"`
	}
	if err := json.Unmarshal(rec.LogData, &payload); err != nil {
		return "", ""
	}
	return payload.RequestInfo.Method, payload.RequestInfo.Path
}

func emitJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
