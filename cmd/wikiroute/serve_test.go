package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/wikiroute/wikiroute/internal/models"
	"github.com/wikiroute/wikiroute/internal/pipeline"
	"github.com/wikiroute/wikiroute/internal/ws"
)

// newServeApp resolves configuration for a data directory fed by small dumps.
func newServeApp(t *testing.T) *app {
	t.Helper()
	clearEnv(t)

	dir := t.TempDir()
	pageDump := writeFile(t, dir, "page.sql",
		"INSERT INTO `page` VALUES (1,0,'A',0,0),(2,0,'B',0,0);\n")
	linkDump := writeFile(t, dir, "pagelinks.sql",
		"INSERT INTO `pagelinks` VALUES (1,0,2),(2,0,1);\n")

	root, a := newRoot()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{
		"--data-dir", filepath.Join(dir, "data"),
		"--page-dump", pageDump,
		"--link-dump", linkDump,
		"--log-level", "error",
		"version",
	})

	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("setup: %v", err)
	}

	return a
}

func getHealth(t *testing.T, base string) map[string]any {
	t.Helper()

	resp, err := http.Get(base + "/api/v1/health") //nolint:noctx // test helper
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode health: %v", err)
	}

	return body
}

func TestServeBuild_StreamsEventsLive(t *testing.T) {
	a := newServeApp(t)

	// Hold the build until a client is watching, so every event it sees
	// arrives live rather than from the replay buffer.
	a.buildGate = func(ctx context.Context, hub *ws.Hub) error {
		for hub.ClientCount() < 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(10 * time.Millisecond):
			}
		}

		return nil
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- a.serveOn(ctx, ln, true) }()

	base := "http://" + ln.Addr().String()

	if body := getHealth(t, base); body["status"] != "degraded" || body["building"] != true {
		t.Errorf("health before build = %v", body)
	}

	dialCtx, dialCancel := context.WithTimeout(ctx, 10*time.Second)
	defer dialCancel()

	conn, _, err := websocket.Dial(dialCtx, "ws://"+ln.Addr().String()+"/api/v1/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow() //nolint:errcheck // test teardown

	seen := map[string][]string{}

	for {
		_, msg, err := conn.Read(dialCtx)
		if err != nil {
			t.Fatalf("read: %v (seen %v)", err, seen)
		}

		var evt ws.Event
		if err := json.Unmarshal(msg, &evt); err != nil {
			t.Fatalf("decode event %s: %v", msg, err)
		}

		var stage models.StageEvent
		if err := json.Unmarshal(evt.Data, &stage); err != nil {
			t.Fatalf("decode stage event %s: %v", evt.Data, err)
		}

		seen[stage.Stage] = append(seen[stage.Stage], evt.Type)

		if evt.Type == models.EventStageFailed {
			t.Fatalf("stage %s failed: %s", stage.Stage, stage.Error)
		}

		if stage.Stage == pipeline.StageTitles && evt.Type == models.EventStageCompleted {
			break
		}
	}

	for _, name := range pipeline.Stages {
		got := seen[name]
		if len(got) < 2 || got[0] != models.EventStageStarted || got[len(got)-1] != models.EventStageCompleted {
			t.Errorf("stage %s events = %v, want started ... completed", name, got)
		}
	}

	// The swap follows the last stage event; wait for it.
	deadline := time.Now().Add(10 * time.Second)
	for getHealth(t, base)["status"] != "ok" {
		if time.Now().After(deadline) {
			t.Fatalf("health never became ok: %v", getHealth(t, base))
		}
		time.Sleep(20 * time.Millisecond)
	}

	resp, err := http.Get(base + "/api/v1/titles/1") //nolint:noctx // test
	if err != nil {
		t.Fatal(err)
	}
	var entry models.TitleEntry
	err = json.NewDecoder(resp.Body).Decode(&entry)
	resp.Body.Close()
	if err != nil || entry.Title != "A" {
		t.Errorf("title lookup = %+v, %v; want A", entry, err)
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("serve returned %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func TestServe_WithoutArtifactsIsDegraded(t *testing.T) {
	a := newServeApp(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.serveOn(ctx, ln, false) }()

	body := getHealth(t, "http://"+ln.Addr().String())
	if body["status"] != "degraded" || body["titles"] != "not_loaded" || body["building"] != false {
		t.Errorf("health = %v", body)
	}

	cancel()

	if err := <-done; err != nil {
		t.Errorf("serve returned %v", err)
	}
}
