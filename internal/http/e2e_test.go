package httpapp_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"

	"github.com/correlli/dify-pptx-app/internal/auth"
	"github.com/correlli/dify-pptx-app/internal/config"
	httpapp "github.com/correlli/dify-pptx-app/internal/http"
	"github.com/correlli/dify-pptx-app/internal/pptx"
	"github.com/correlli/dify-pptx-app/internal/rate"
	"github.com/correlli/dify-pptx-app/internal/store/filestore"
)

func TestEndToEndServer(t *testing.T) {
	dataDir := t.TempDir()
	st, err := filestore.New(dataDir, nil)
	if err != nil {
		t.Fatalf("new filestore: %v", err)
	}
	authSvc, err := auth.NewService("e2e-key")
	if err != nil {
		t.Fatalf("new auth: %v", err)
	}
	cfg := config.Config{
		Addr:       ":0",
		DataDir:    dataDir,
		APIKey:     "e2e-key",
		RateLimits: config.RateLimits{SlidePerMinute: 1000},
	}
	server := httpapp.NewServer(st, authSvc, rate.NewMemory(), cfg, nil)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer listener.Close()

	httpServer := &http.Server{Handler: server}
	go func() {
		_ = httpServer.Serve(listener)
	}()
	defer httpServer.Close()

	baseURL := "http://" + listener.Addr().String()

	body, _ := json.Marshal(map[string]string{
		"title":          "E2E Slide",
		"content":        "built over the wire",
		"presentationId": "e2e-deck",
	})
	req, _ := http.NewRequest(http.MethodPost, baseURL+"/create-slide", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", "e2e-key")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("create slide: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("create slide status %d: %s", resp.StatusCode, string(b))
	}
	resp.Body.Close()

	req, _ = http.NewRequest(http.MethodGet, baseURL+"/download-presentation?presentationId=e2e-deck", nil)
	req.Header.Set("X-API-Key", "e2e-key")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("download status %d: %s", resp.StatusCode, string(b))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	doc, err := pptx.Parse(data)
	if err != nil {
		t.Fatalf("parse downloaded pptx: %v", err)
	}
	slides := doc.Slides()
	if len(slides) != 1 || slides[0].Title != "E2E Slide" {
		t.Fatalf("unexpected slides: %+v", slides)
	}
}
