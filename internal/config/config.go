// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads service configuration from flags and the
// environment, and hot-reloads the language registry from a YAML file
// when it changes on disk.
package config

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/unbiasedzucchini/wasmforge/internal/compiler"
)

// Config holds the service's startup configuration.
type Config struct {
	ListenAddr   string
	StoragePath  string
	ScratchRoot  string
	LanguageFile string
	Debug        bool
}

// FromFlags parses command-line flags, falling back to environment
// variables, then hard-coded defaults. Call once from main.
func FromFlags() *Config {
	cfg := &Config{}
	flag.StringVar(&cfg.ListenAddr, "listen", envOr("WASMFORGE_LISTEN", ":8080"), "HTTP listen address")
	flag.StringVar(&cfg.StoragePath, "storage", envOr("WASMFORGE_STORAGE", "./data/wasmforge.db"), "badger storage directory")
	flag.StringVar(&cfg.ScratchRoot, "scratch", envOr("WASMFORGE_SCRATCH", os.TempDir()), "scratch directory root for compiles")
	flag.StringVar(&cfg.LanguageFile, "languages", envOr("WASMFORGE_LANGUAGES", ""), "optional YAML file of language descriptors")
	flag.BoolVar(&cfg.Debug, "debug", envOr("WASMFORGE_DEBUG", "") != "", "enable debug logging and gin debug mode")
	flag.Parse()
	return cfg
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

// languageFile is the on-disk shape of the optional YAML descriptor
// file: a list of languages, each overriding or adding to the
// compiler registry's built-in defaults.
type languageFile struct {
	Languages []languageEntry `yaml:"languages"`
}

type languageEntry struct {
	Name        string   `yaml:"name"`
	InputFile   string   `yaml:"input_file"`
	OutputFile  string   `yaml:"output_file"`
	Executable  string   `yaml:"executable"`
	Args        []string `yaml:"args"`
	RequiresCwd bool     `yaml:"requires_cwd"`
}

// LoadLanguages reads path and applies every entry to registry. A
// missing path is a no-op (the registry's built-in defaults stand).
func LoadLanguages(path string, registry *compiler.Registry) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading language file %s: %w", path, err)
	}

	var lf languageFile
	if err := yaml.Unmarshal(data, &lf); err != nil {
		return fmt.Errorf("parsing language file %s: %w", path, err)
	}

	for _, e := range lf.Languages {
		if err := registry.Set(compiler.LanguageDescriptor{
			Name:        e.Name,
			InputFile:   e.InputFile,
			OutputFile:  e.OutputFile,
			Executable:  e.Executable,
			Args:        e.Args,
			RequiresCwd: e.RequiresCwd,
		}); err != nil {
			return fmt.Errorf("applying language %q: %w", e.Name, err)
		}
	}
	return nil
}

// WatchLanguages watches path for changes and reloads registry on
// every write event, logging (not failing) on reload errors. The
// returned watcher must be closed by the caller on shutdown.
func WatchLanguages(path string, registry *compiler.Registry, logger *slog.Logger) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating language file watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watching language file %s: %w", path, err)
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := LoadLanguages(path, registry); err != nil {
					logger.Error("failed to reload language file", "path", path, "error", err)
					continue
				}
				logger.Info("reloaded language registry", "path", path)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Error("language file watcher error", "error", err)
			}
		}
	}()

	return watcher, nil
}
