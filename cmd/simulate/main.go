// Simulate - scripted websocket client for the presence service
//
// Connects to /ws/attempt and plays back synthetic facial metrics that
// satisfy whatever challenge the server picks. Useful for exercising
// the service end to end without a camera.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/presencelabs/go-presence/pkg/gesture"
	"github.com/presencelabs/go-presence/pkg/protocol"
)

func main() {
	url := flag.String("url", "ws://localhost:8090/ws/attempt", "attempt endpoint")
	flag.Parse()

	fmt.Println("🤖 Presence Simulator")
	fmt.Printf("   Connecting to %s\n", *url)

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		fmt.Printf("❌ Dial: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	incoming := make(chan *protocol.Message, 16)
	go func() {
		defer close(incoming)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			msg, err := protocol.ParseMessage(data)
			if err != nil {
				continue
			}
			incoming <- msg
		}
	}()

	challenge, ok := waitForChallenge(incoming)
	if !ok {
		fmt.Println("❌ No challenge received")
		os.Exit(1)
	}
	fmt.Printf("🎯 Challenge: %s\n", challenge.Instruction)

	switch challenge.Kind {
	case gesture.KindBlink:
		playBlink(conn)
	case gesture.KindSmile:
		playSmile(conn, incoming)
	case gesture.KindHeadTurn:
		playHeadTurn(conn, incoming, challenge.Sequence)
	default:
		fmt.Printf("❌ Unknown challenge kind %q\n", challenge.Kind)
		os.Exit(1)
	}

	if waitForOutcome(incoming) {
		fmt.Println("🎉 Confirmed")
		return
	}
	fmt.Println("❌ Failed")
	os.Exit(1)
}

func waitForChallenge(incoming <-chan *protocol.Message) (protocol.ChallengeData, bool) {
	deadline := time.After(10 * time.Second)
	for {
		select {
		case msg, ok := <-incoming:
			if !ok {
				return protocol.ChallengeData{}, false
			}
			if msg.Type == protocol.TypeChallenge {
				var d protocol.ChallengeData
				if err := msg.ParseData(&d); err != nil {
					return protocol.ChallengeData{}, false
				}
				return d, true
			}
		case <-deadline:
			return protocol.ChallengeData{}, false
		}
	}
}

// waitForOutcome drains messages until the attempt concludes.
func waitForOutcome(incoming <-chan *protocol.Message) bool {
	for msg := range incoming {
		switch msg.Type {
		case protocol.TypeConfirmed:
			return true
		case protocol.TypeFailed:
			return false
		}
	}
	return false
}

func sendObs(conn *websocket.Conn, obs gesture.Observation) {
	msg, err := protocol.NewObservationMessage(obs, uuid.NewString())
	if err != nil {
		return
	}
	data, err := msg.Bytes()
	if err != nil {
		return
	}
	conn.WriteMessage(websocket.TextMessage, data)
}

// playBlink sends open, closed, open.
func playBlink(conn *websocket.Conn) {
	open := gesture.Neutral()

	closed := gesture.Neutral()
	closed.LeftEyeOpen = 0.05
	closed.RightEyeOpen = 0.05

	for _, obs := range []gesture.Observation{open, closed, open} {
		sendObs(conn, obs)
		time.Sleep(200 * time.Millisecond)
	}
}

// playSmile repeats a smiling face until the server reacts.
func playSmile(conn *websocket.Conn, incoming <-chan *protocol.Message) {
	obs := gesture.Neutral()
	obs.Smile = 0.9

	ticker := time.NewTicker(150 * time.Millisecond)
	defer ticker.Stop()
	for i := 0; i < 50; i++ {
		select {
		case <-ticker.C:
			sendObs(conn, obs)
		case msg := <-incoming:
			if msg.Type == protocol.TypeConfirmed || msg.Type == protocol.TypeFailed {
				report(msg)
				os.Exit(exitCode(msg))
			}
		}
	}
}

// playHeadTurn calibrates with a neutral pose, then holds each
// requested direction until the server accepts the step.
func playHeadTurn(conn *websocket.Conn, incoming <-chan *protocol.Message, sequence []gesture.Direction) {
	if len(sequence) == 0 {
		sequence = gesture.DefaultSequence()
	}

	sendObs(conn, gesture.Neutral()) // Calibration frame
	time.Sleep(200 * time.Millisecond)

	pose := poseFor(sequence[0])
	ticker := time.NewTicker(150 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sendObs(conn, pose)
		case msg, ok := <-incoming:
			if !ok {
				return
			}
			switch msg.Type {
			case protocol.TypeProgress:
				var d protocol.ProgressData
				if err := msg.ParseData(&d); err != nil {
					continue
				}
				fmt.Printf("✅ Step %d/%d accepted\n", d.Step, d.Total)
				if d.Next == "" {
					continue
				}
				// Return to neutral through the cooldown, then hold
				// the next direction.
				sendObs(conn, gesture.Neutral())
				time.Sleep(time.Second)
				pose = poseFor(d.Next)
			case protocol.TypeConfirmed, protocol.TypeFailed:
				report(msg)
				os.Exit(exitCode(msg))
			}
		}
	}
}

// poseFor returns metrics that satisfy the default direction
// thresholds with margin.
func poseFor(dir gesture.Direction) gesture.Observation {
	obs := gesture.Neutral()
	switch dir {
	case gesture.DirRight:
		obs.YawDeg = -65
	case gesture.DirLeft:
		obs.YawDeg = 65
	case gesture.DirDown:
		obs.PitchDeg = -55
	case gesture.DirUp:
		obs.PitchDeg = 55
	}
	return obs
}

func report(msg *protocol.Message) {
	if msg.Type == protocol.TypeConfirmed {
		fmt.Println("🎉 Confirmed")
		return
	}
	var d protocol.FailedData
	msg.ParseData(&d)
	fmt.Printf("❌ Failed (%s)\n", d.Reason)
}

func exitCode(msg *protocol.Message) int {
	if msg.Type == protocol.TypeConfirmed {
		return 0
	}
	return 1
}
