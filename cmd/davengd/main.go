// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.
// Copyright 2024 WJQSERVER. All rights reserved.

// Command davengd is a standalone WebDAV server binary wiring davres,
// davacl, davlock and davengine to a touka router, grounded on
// examples/webdav/main.go in the teacher project (NewOSFS/NewMemLock/
// NewHandler/HandleFunc/RunShutdown), generalized to take a JSON
// config file instead of hardcoded flags.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/fenthope/reco"
	"github.com/go-json-experiment/json"
	"github.com/infinite-iroha/touka"

	"github.com/wjqserver-studio/daveng/davacl"
	"github.com/wjqserver-studio/daveng/davengine"
	"github.com/wjqserver-studio/daveng/davlock"
	"github.com/wjqserver-studio/daveng/davres/osfs"
)

// config is the JSON document cmd/davengd accepts as its one argument
// (SPEC_FULL.md §6). Root and Addr default to the DAV_ROOT and DAV_ADDR
// environment variables (the other fields have fixed defaults), so a
// config-free deployment still has a zero-config path, preserving
// spec.md §6's "single mandatory setting" (DAV_ROOT).
type config struct {
	Root       string `json:"root"`
	Addr       string `json:"addr"`
	Prefix     string `json:"prefix"`
	LogLevel   string `json:"log_level"`
	ReadOnly   bool   `json:"read_only"`
	EnableLock bool   `json:"enable_lock"`
}

func loadConfig(path string) (config, error) {
	cfg := config{
		Root:       os.Getenv("DAV_ROOT"),
		Addr:       os.Getenv("DAV_ADDR"),
		Prefix:     "/webdav",
		LogLevel:   "info",
		EnableLock: true,
	}
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()
	if err := json.UnmarshalRead(f, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func logLevel(name string) reco.Level {
	switch name {
	case "debug":
		return reco.LevelDebug
	case "warn":
		return reco.LevelWarn
	case "error":
		return reco.LevelError
	default:
		return reco.LevelInfo
	}
}

func main() {
	var configPath string
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		log.Fatalf("davengd: load config: %v", err)
	}
	if cfg.Root == "" {
		log.Fatal("davengd: no storage root given (set \"root\" in the config file or DAV_ROOT)")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}

	logger := touka.NewLogger(reco.Config{
		Level:      logLevel(cfg.LogLevel),
		Mode:       reco.ModeText,
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		Async:      true,
	})

	if err := os.MkdirAll(cfg.Root, 0o755); err != nil {
		log.Fatalf("davengd: create root %s: %v", cfg.Root, err)
	}
	backend, err := osfs.New(cfg.Root, cfg.Prefix)
	if err != nil {
		log.Fatalf("davengd: osfs.New: %v", err)
	}

	var acl davacl.Provider = davacl.ReadOnlyProvider
	if !cfg.ReadOnly {
		acl = davacl.ProviderFunc(func(_ context.Context, _, _ string) (davacl.ACL, error) {
			return davacl.Full, nil
		})
	}

	var locks davlock.Manager
	if cfg.EnableLock {
		locks = davlock.NewMemManager()
	}

	handler := &davengine.Handler{
		Prefix:  cfg.Prefix,
		Backend: backend,
		ACL:     acl,
		Locks:   locks,
		Logger:  logger,
	}

	r := touka.New()
	r.SetLogger(logger)
	webdavMethods := []string{
		"OPTIONS", "GET", "HEAD", "DELETE", "PUT", "MKCOL", "COPY", "MOVE",
		"PROPFIND", "PROPPATCH", "LOCK", "UNLOCK",
	}
	r.HandleFunc(webdavMethods, cfg.Prefix+"/*path", handler.ServeTouka)

	logger.Infof("davengd: serving %s as %s on %s", cfg.Root, cfg.Prefix, cfg.Addr)
	if err := r.RunShutdown(cfg.Addr, 10*time.Second); err != nil {
		logger.Fatalf("davengd: server failed: %v", err)
	}
}
