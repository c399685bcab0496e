// Presence Service - remote gesture attempts over WebSocket
//
// Serves the attempt endpoint for edge clients that produce their own
// facial metrics, plus dashboard feeds and a status API. Set
// WEBHOOK_URL to get outcome notifications.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/presencelabs/go-presence/internal/config"
	"github.com/presencelabs/go-presence/internal/log"
	"github.com/presencelabs/go-presence/pkg/face"
	"github.com/presencelabs/go-presence/pkg/notify"
	"github.com/presencelabs/go-presence/pkg/web"
)

func main() {
	fmt.Println("👤 Presence Service")
	fmt.Println("===================")

	config.LoadEnv()
	log.Init(config.LogLevel())

	cfg, err := config.GestureConfig()
	if err != nil {
		fmt.Printf("❌ Bad configuration: %v\n", err)
		os.Exit(1)
	}

	webhook := notify.NewWebhook(config.WebhookURL())
	if webhook.Enabled() {
		fmt.Println("🔔 Webhook notifications enabled")
	}

	server := web.NewServer(config.Port(), cfg, webhook)

	// Optional: mirror the local camera to dashboard clients. Remote
	// attempts don't need this; it exists for kiosk deployments where
	// the service machine owns the camera.
	if os.Getenv("PRESENCE_CAMERA_BROADCAST") == "1" {
		camera, err := face.OpenCamera(config.CameraID())
		if err != nil {
			fmt.Printf("⚠️  Camera broadcast disabled: %v\n", err)
		} else {
			defer camera.Close()
			go broadcastCamera(server, camera)
			fmt.Println("📷 Camera broadcast enabled")
		}
	}

	// Handle Ctrl+C
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n👋 Shutting down")
		if err := server.Shutdown(); err != nil {
			log.Error("shutdown failed", "err", err)
		}
	}()

	fmt.Printf("🌐 Listening on http://localhost:%s\n", config.Port())
	if err := server.Start(); err != nil {
		log.Error("server exited", "err", err)
		os.Exit(1)
	}
}

// broadcastCamera pushes camera frames to the dashboard hub at ~10fps.
func broadcastCamera(server *web.Server, camera *face.Camera) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for range ticker.C {
		jpeg, err := camera.ReadJPEG()
		if err != nil {
			log.Debug("camera broadcast read failed", "err", err)
			continue
		}
		server.SendCameraFrame(jpeg)
	}
}
