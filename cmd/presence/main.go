// Presence CLI - run a gesture challenge against the local camera
//
// Selects a random challenge (blink, smile, or head-turn sequence),
// watches the camera, and reports whether the gesture was confirmed
// before the deadline.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/presencelabs/go-presence/internal/config"
	"github.com/presencelabs/go-presence/internal/log"
	"github.com/presencelabs/go-presence/pkg/face"
	"github.com/presencelabs/go-presence/pkg/gesture"
	"github.com/presencelabs/go-presence/pkg/session"
)

func main() {
	fmt.Println("👤 Presence Check")
	fmt.Println("=================")

	config.LoadEnv()
	log.Init(config.LogLevel())

	cfg, err := config.GestureConfig()
	if err != nil {
		fmt.Printf("❌ Bad configuration: %v\n", err)
		os.Exit(1)
	}

	camera, err := face.OpenCamera(config.CameraID())
	if err != nil {
		fmt.Printf("❌ Camera: %v\n", err)
		os.Exit(1)
	}
	defer camera.Close()

	faceCfg := face.DefaultConfig()
	faceCfg.ModelPath = config.ModelPath()
	analyzer, err := face.NewAnalyzer(faceCfg, camera)
	if err != nil {
		fmt.Printf("❌ Face detector: %v\n", err)
		os.Exit(1)
	}
	defer analyzer.Close()

	// Handle Ctrl+C
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n\n👋 Cancelled")
		cancel()
	}()

	bar := countdownBar(cfg.AttemptTimeout)

	cb := session.Callbacks{
		OnChallenge: func(kind gesture.Kind, sequence []gesture.Direction) {
			fmt.Printf("\n🎯 Challenge: %s\n", kind.Instruction())
			if kind == gesture.KindHeadTurn {
				fmt.Printf("   First: turn %s\n", sequence[0])
			}
			fmt.Println()
		},
		OnProgress: func(kind gesture.Kind, step int, next gesture.Direction) {
			if next != "" {
				fmt.Printf("\n✅ Step %d done. Now turn %s\n", step, next)
			}
		},
		OnConfirmed: func(frame gesture.FrameRef) {
			_ = bar.Clear()
			fmt.Println("\n🎉 Presence confirmed!")
			if path := saveFrame(frame); path != "" {
				fmt.Printf("   Confirming frame: %s\n", path)
			}
		},
		OnFailed: func(reason session.Reason) {
			_ = bar.Clear()
			fmt.Printf("\n❌ Not confirmed (%s)\n", reason)
		},
	}

	sess, err := session.New(cfg, analyzer, analyzer, session.WithCallbacks(cb))
	if err != nil {
		fmt.Printf("❌ Session: %v\n", err)
		os.Exit(1)
	}

	go tickCountdown(bar, sess.Done())

	if err := sess.Run(ctx); err != nil {
		os.Exit(1)
	}
}

// countdownBar shows the time remaining in the attempt.
func countdownBar(timeout time.Duration) *progressbar.ProgressBar {
	return progressbar.NewOptions(int(timeout.Seconds()),
		progressbar.OptionSetDescription("⏳ time remaining"),
		progressbar.OptionSetWidth(30),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetPredictTime(false),
	)
}

// tickCountdown advances the bar once per second until the attempt ends.
func tickCountdown(bar *progressbar.ProgressBar, done <-chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			_ = bar.Add(1)
		}
	}
}

// saveFrame writes the confirming frame next to the binary.
func saveFrame(frame gesture.FrameRef) string {
	if len(frame.JPEG) == 0 {
		return ""
	}
	path := fmt.Sprintf("presence_%s.jpg", frame.ID)
	if err := os.WriteFile(path, frame.JPEG, 0o644); err != nil {
		log.Warn("could not save confirming frame", "err", err)
		return ""
	}
	return path
}
