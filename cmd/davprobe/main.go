// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.
// Copyright 2024 WJQSERVER. All rights reserved.

// Command davprobe is a smoke-test client for a running davengd
// deployment: it issues an OPTIONS and a depth-0 PROPFIND and checks
// the DAV class header and multistatus shape, grounded on the
// teacher's context.go HTTPClient/httpc.Client wiring (SPEC_FULL.md
// Domain stack), giving operators a same-repo way to verify a
// deployment without reaching for curl.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/WJQSERVER-STUDIO/httpc"
)

const propfindBody = `<?xml version="1.0" encoding="utf-8"?>
<D:propfind xmlns:D="DAV:"><D:allprop/></D:propfind>`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: davprobe <base-url>")
		os.Exit(2)
	}
	base := strings.TrimRight(os.Args[1], "/")

	client := httpc.New()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := probeOptions(ctx, client, base); err != nil {
		log.Fatalf("davprobe: OPTIONS: %v", err)
	}
	if err := probePropfind(ctx, client, base); err != nil {
		log.Fatalf("davprobe: PROPFIND: %v", err)
	}
	fmt.Println("davprobe: ok")
}

func probeOptions(ctx context.Context, client *httpc.Client, base string) error {
	req, err := http.NewRequestWithContext(ctx, "OPTIONS", base+"/", nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	dav := resp.Header.Get("DAV")
	if !strings.Contains(dav, "1") || !strings.Contains(dav, "2") {
		return fmt.Errorf("DAV header %q does not advertise classes 1 and 2", dav)
	}
	return nil
}

func probePropfind(ctx context.Context, client *httpc.Client, base string) error {
	req, err := http.NewRequestWithContext(ctx, "PROPFIND", base+"/", strings.NewReader(propfindBody))
	if err != nil {
		return err
	}
	req.Header.Set("Depth", "0")
	req.Header.Set("Content-Type", "application/xml; charset=utf-8")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusMultiStatus {
		return fmt.Errorf("got status %d, want 207", resp.StatusCode)
	}
	if !strings.Contains(string(body), "multistatus") {
		return fmt.Errorf("response body does not look like a multistatus document")
	}
	return nil
}
