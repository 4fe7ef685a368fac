// Copyright 2024 The Erigon Authors
// This file is part of Erigon.
//
// Erigon is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Erigon is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Erigon. If not, see <http://www.gnu.org/licenses/>.

// Command partitiond is a thin demonstration CLI for the partition codec and
// query log. CLI flag parsing, the concurrency-limiting semaphore, and the
// execution engine are external collaborators out of scope for this
// repository (see SPEC_FULL.md); this entrypoint exists only to exercise
// the two cores end to end.
package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/erigontech/partitiondb/partition"
	"github.com/erigontech/partitiondb/querylog"
)

// serveConfig is the thin config struct for the "serve" subcommand, modeled
// on the peripheral catalog-cache config's shape (a handful of named flags,
// each with a sane default) rather than its content.
type serveConfig struct {
	listenAddr string
	logRingCapacity int
	warmupDelay time.Duration
}

func main() {
	root := &cobra.Command{
		Use:   "partitiond",
		Short: "demonstrates the partition template codec and query log",
	}
	root.AddCommand(newDecodeCommand())
	root.AddCommand(newServeCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newDecodeCommand() *cobra.Command {
	var templateJSON string
	var key string

	cmd := &cobra.Command{
		Use:   "decode",
		Short: "decode a partition key against a template, printing the resulting column values",
		RunE: func(cmd *cobra.Command, args []string) error {
			var tmpl partition.Template
			if err := tmpl.UnmarshalJSON([]byte(templateJSON)); err != nil {
				return fmt.Errorf("parsing template: %w", err)
			}

			type decoded struct {
				Column string `json:"column"`
				Kind   string `json:"kind"`
				Value  string `json:"value,omitempty"`
				Begin  string `json:"begin,omitempty"`
				End    string `json:"end,omitempty"`
				Bucket *uint32 `json:"bucket,omitempty"`
			}
			var out []decoded
			for name, cv := range partition.BuildColumnValues(tmpl, key) {
				row := decoded{Column: name}
				switch cv.Kind {
				case partition.ColumnIdentity:
					row.Kind, row.Value = "identity", cv.Identity
				case partition.ColumnPrefix:
					row.Kind, row.Value = "prefix", cv.Prefix
				case partition.ColumnDatetime:
					row.Kind = "datetime"
					row.Begin = cv.Begin.Format(time.RFC3339)
					row.End = cv.End.Format(time.RFC3339)
				case partition.ColumnBucket:
					row.Kind = "bucket"
					id := cv.BucketID
					row.Bucket = &id
				}
				out = append(out, row)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	flags := pflag.NewFlagSet("decode", pflag.ContinueOnError)
	flags.StringVar(&templateJSON, "template", "", "canonical JSON template (see SPEC_FULL.md §6)")
	flags.StringVar(&key, "key", "", "partition key string to decode")
	cmd.Flags().AddFlagSet(flags)
	cmd.MarkFlagRequired("template")
	cmd.MarkFlagRequired("key")

	return cmd
}

func newServeCommand() *cobra.Command {
	cfg := serveConfig{listenAddr: ":8080", logRingCapacity: 1000, warmupDelay: 5 * time.Minute}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run an in-memory query log behind a read-only introspection endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := zap.NewProduction()
			if err != nil {
				return err
			}
			defer logger.Sync()

			log := querylog.New(cfg.logRingCapacity, querylog.WithLogger(logger))
			// Caches the rendered introspection JSON for a brief window so a
			// burst of polling requests doesn't each re-walk and re-marshal
			// the full ring buffer.
			cache := lru.NewLRU[string, []byte](1, nil, 250*time.Millisecond)
			http.HandleFunc("/queries", introspectionHandler(log, cache))

			logger.Info("partitiond serve starting", zap.String("addr", cfg.listenAddr))
			return http.ListenAndServe(cfg.listenAddr, nil)
		},
	}

	cmd.Flags().StringVar(&cfg.listenAddr, "listen-addr", cfg.listenAddr, "introspection HTTP listen address")
	cmd.Flags().IntVar(&cfg.logRingCapacity, "log-ring-capacity", cfg.logRingCapacity, "query log ring buffer capacity (0 = tokens-only mode)")
	cmd.Flags().DurationVar(&cfg.warmupDelay, "warmup-delay", cfg.warmupDelay, "unused placeholder mirroring the peripheral cache-peer warmup delay")

	return cmd
}

func introspectionHandler(log *querylog.QueryLog, cache *lru.LRU[string, []byte]) http.HandlerFunc {
	const cacheKey = "snapshot"
	return func(w http.ResponseWriter, r *http.Request) {
		body, ok := cache.Get(cacheKey)
		if !ok {
			snap := log.Snapshot()
			type entryView struct {
				ID      string `json:"id"`
				Phase   string `json:"phase"`
				Running bool   `json:"running"`
			}
			view := struct {
				MaxSize int         `json:"maxSize"`
				Evicted uint64      `json:"evicted"`
				Entries []entryView `json:"entries"`
			}{MaxSize: snap.MaxSize, Evicted: snap.Evicted}
			for _, e := range snap.Entries {
				view.Entries = append(view.Entries, entryView{
					ID:      e.ID.String(),
					Phase:   e.Phase().String(),
					Running: e.Running(),
				})
			}
			b, err := json.Marshal(view)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			body = b
			cache.Add(cacheKey, body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	}
}
