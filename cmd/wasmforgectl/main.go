// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command wasmforgectl inspects a wasmforge BadgerDB store directly,
// without going through the HTTP server. Every subcommand opens the
// store read-write with store.Open and prints a human-readable summary.
//
// Usage:
//
//	wasmforgectl --storage ./data/wasmforge.db blobs get <hash>
//	wasmforgectl --storage ./data/wasmforge.db aliases list
//	wasmforgectl --storage ./data/wasmforge.db aliases verify
//	wasmforgectl --storage ./data/wasmforge.db events tail --limit 20
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/unbiasedzucchini/wasmforge/internal/store"
)

// maxConcurrentVerifications bounds how many alias targets are checked
// in parallel, so a store with thousands of aliases doesn't open
// thousands of concurrent badger transactions at once.
const maxConcurrentVerifications = 8

var storagePath string

func main() {
	root := &cobra.Command{
		Use:   "wasmforgectl",
		Short: "Inspect a wasmforge store directly",
	}
	root.PersistentFlags().StringVar(&storagePath, "storage", "./data/wasmforge.db", "badger storage directory")

	root.AddCommand(newBlobsCmd(), newAliasesCmd(), newEventsCmd(), newStatsCmd())

	if err := root.Execute(); err != nil {
		fatalf("%v", err)
	}
}

func openStore() *store.Store {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := store.Open(storagePath, logger)
	if err != nil {
		fatalf("opening store at %s: %v", storagePath, err)
	}
	return st
}

func newBlobsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "blobs", Short: "Inspect stored blobs"}

	getCmd := &cobra.Command{
		Use:   "get <hash>",
		Short: "Print a blob's bytes to stdout",
		Args:  cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			st := openStore()
			defer st.Close()
			data, err := st.GetBlob(args[0])
			if err != nil {
				fatalf("%v", err)
			}
			os.Stdout.Write(data)
		},
	}

	putCmd := &cobra.Command{
		Use:   "put <file>",
		Short: "Store a file's contents as a blob and print its hash",
		Args:  cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			data, err := os.ReadFile(args[0])
			if err != nil {
				fatalf("reading %s: %v", args[0], err)
			}
			st := openStore()
			defer st.Close()
			hash, err := st.PutBlob(data)
			if err != nil {
				fatalf("%v", err)
			}
			fmt.Println(hash)
		},
	}

	metaCmd := &cobra.Command{
		Use:   "meta <hash>",
		Short: "Print a blob's metadata as JSON",
		Args:  cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			st := openStore()
			defer st.Close()
			meta, err := st.BlobMetadata(args[0])
			if err != nil {
				fatalf("%v", err)
			}
			printJSON(meta)
		},
	}

	cmd.AddCommand(getCmd, putCmd, metaCmd)
	return cmd
}

func newAliasesCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "aliases", Short: "Inspect and manage aliases"}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all aliases, ordered by name",
		Run: func(_ *cobra.Command, _ []string) {
			st := openStore()
			defer st.Close()
			aliases, err := st.ListAliases()
			if err != nil {
				fatalf("%v", err)
			}
			for _, a := range aliases {
				fmt.Printf("%s%-24s%s -> %s\n", colorBold(), a.Name, colorReset(), a.Hash)
			}
		},
	}

	getCmd := &cobra.Command{
		Use:   "get <name>",
		Short: "Print one alias as JSON",
		Args:  cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			st := openStore()
			defer st.Close()
			alias, err := st.GetAlias(args[0])
			if err != nil {
				fatalf("%v", err)
			}
			printJSON(alias)
		},
	}

	setCmd := &cobra.Command{
		Use:   "set <name> <hash>",
		Short: "Create or update an alias",
		Args:  cobra.ExactArgs(2),
		Run: func(_ *cobra.Command, args []string) {
			st := openStore()
			defer st.Close()
			alias, err := st.SetAlias(args[0], args[1])
			if err != nil {
				fatalf("%v", err)
			}
			printJSON(alias)
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Remove an alias",
		Args:  cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			st := openStore()
			defer st.Close()
			removed, err := st.DeleteAlias(args[0])
			if err != nil {
				fatalf("%v", err)
			}
			if !removed {
				fatalf("no such alias: %s", args[0])
			}
			fmt.Println("deleted")
		},
	}

	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that every alias still points at a blob that exists",
		Run: func(cmd *cobra.Command, _ []string) {
			st := openStore()
			defer st.Close()

			aliases, err := st.ListAliases()
			if err != nil {
				fatalf("%v", err)
			}

			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(maxConcurrentVerifications)
			broken := make(chan string, len(aliases))

			for _, a := range aliases {
				a := a
				g.Go(func() error {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					ok, err := st.HasBlob(a.Hash)
					if err != nil {
						return fmt.Errorf("checking alias %s: %w", a.Name, err)
					}
					if !ok {
						broken <- a.Name
					}
					return nil
				})
			}

			if err := g.Wait(); err != nil {
				fatalf("%v", err)
			}
			close(broken)

			count := 0
			for name := range broken {
				fmt.Printf("%sbroken%s: alias %q targets a missing blob\n", colorRed(), colorReset(), name)
				count++
			}
			if count == 0 {
				fmt.Println("all aliases resolve to an existing blob")
				return
			}
			fatalf("%d alias(es) target a missing blob", count)
		},
	}

	cmd.AddCommand(listCmd, getCmd, setCmd, deleteCmd, verifyCmd)
	return cmd
}

func newEventsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect the event log",
	}
	tailCmd := &cobra.Command{
		Use:   "tail",
		Short: "Print the most recent events, newest first",
		Run: func(_ *cobra.Command, _ []string) {
			st := openStore()
			defer st.Close()
			events, err := st.Recent(limit)
			if err != nil {
				fatalf("%v", err)
			}
			for _, e := range events {
				status := colorGreen() + "ok" + colorReset()
				if !e.Success {
					status = colorRed() + "fail" + colorReset()
				}
				fmt.Printf("#%-6d %-20s %-14s %s\n", e.ID, e.Timestamp.Format("2006-01-02T15:04:05.000"), e.Type, status)
			}
		},
	}
	tailCmd.Flags().IntVar(&limit, "limit", 50, "number of events to print (clamped to 500)")
	cmd.AddCommand(tailCmd)
	return cmd
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print a quick summary of the store's contents",
		Run: func(_ *cobra.Command, _ []string) {
			st := openStore()
			defer st.Close()
			aliases, err := st.ListAliases()
			if err != nil {
				fatalf("%v", err)
			}
			events, err := st.Recent(500)
			if err != nil {
				fatalf("%v", err)
			}
			fmt.Printf("aliases: %d\n", len(aliases))
			fmt.Printf("recent events (capped at 500): %d\n", len(events))
		},
	}
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fatalf("marshaling output: %v", err)
	}
	fmt.Println(string(data))
}

// colorEnabled reports whether stdout is an interactive terminal;
// output is never colorized when piped or redirected.
func colorEnabled() bool {
	return isatty.IsTerminal(os.Stdout.Fd())
}

func colorBold() string  { return ansiCode("\x1b[1m") }
func colorGreen() string { return ansiCode("\x1b[32m") }
func colorRed() string   { return ansiCode("\x1b[31m") }
func colorReset() string { return ansiCode("\x1b[0m") }

func ansiCode(code string) string {
	if !colorEnabled() {
		return ""
	}
	return code
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "wasmforgectl: "+format+"\n", args...)
	os.Exit(1)
}
