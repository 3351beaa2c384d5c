// Package main - agitator
// Load generator for the board server. Opens many WebSocket clients; the
// first few take seats and roll as fast as the server lets them, the rest
// watch the frame stream.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
)

// Config for the agitator
type Config struct {
	ServerURL      string
	NumClients     int
	ActionInterval time.Duration
	TestDuration   time.Duration
}

// Stats tracks performance metrics
type Stats struct {
	MessagesSent     int64
	MessagesReceived int64
	Frames           int64
	Turns            int64
	Rejected         int64
	Errors           int64
	Latencies        []time.Duration
	mu               sync.Mutex
}

func main() {
	serverURL := flag.String("url", "ws://localhost:8080/ws", "WebSocket server URL")
	numClients := flag.Int("clients", 50, "Number of concurrent clients")
	interval := flag.Duration("interval", 100*time.Millisecond, "Roll interval per client")
	duration := flag.Duration("duration", 60*time.Second, "Test duration")
	flag.Parse()

	config := Config{
		ServerURL:      *serverURL,
		NumClients:     *numClients,
		ActionInterval: *interval,
		TestDuration:   *duration,
	}

	fmt.Println("=========================================")
	fmt.Println("AGITATOR - Sugoroku load test")
	fmt.Println("=========================================")
	fmt.Printf("Server: %s\n", config.ServerURL)
	fmt.Printf("Clients: %d\n", config.NumClients)
	fmt.Printf("Interval: %v\n", config.ActionInterval)
	fmt.Printf("Duration: %v\n", config.TestDuration)
	fmt.Println("=========================================")

	ctx, cancel := context.WithTimeout(context.Background(), config.TestDuration)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		fmt.Println("\nInterrupt received, stopping...")
		cancel()
	}()

	stats := runStressTest(ctx, config)
	printResults(stats, config)
}

func runStressTest(ctx context.Context, config Config) *Stats {
	stats := &Stats{
		Latencies: make([]time.Duration, 0, 10000),
	}

	var wg sync.WaitGroup

	fmt.Println("\nStarting clients...")

	for i := 0; i < config.NumClients; i++ {
		wg.Add(1)
		go func(clientID int) {
			defer wg.Done()
			runClient(ctx, clientID, config, stats)
		}(i)

		// Stagger client starts to avoid thundering herd
		time.Sleep(10 * time.Millisecond)
	}

	fmt.Printf("All %d clients started\n\n", config.NumClients)

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Printf("Progress: Sent=%d Recv=%d Turns=%d Rejected=%d Errors=%d\n",
					atomic.LoadInt64(&stats.MessagesSent),
					atomic.LoadInt64(&stats.MessagesReceived),
					atomic.LoadInt64(&stats.Turns),
					atomic.LoadInt64(&stats.Rejected),
					atomic.LoadInt64(&stats.Errors))
			}
		}
	}()

	wg.Wait()
	return stats
}

func runClient(ctx context.Context, clientID int, config Config, stats *Stats) {
	playerID := uuid.NewString()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, config.ServerURL, nil)
	if err != nil {
		log.Printf("Client %d: Connection failed: %v", clientID, err)
		atomic.AddInt64(&stats.Errors, 1)
		return
	}
	defer conn.Close()

	// The server batches queued messages into one frame, one JSON document per line.
	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			for _, line := range bytes.Split(data, []byte{'\n'}) {
				atomic.AddInt64(&stats.MessagesReceived, 1)
				switch gjson.GetBytes(line, "kind").String() {
				case "frame":
					atomic.AddInt64(&stats.Frames, 1)
				case "turn":
					atomic.AddInt64(&stats.Turns, 1)
				case "error":
					atomic.AddInt64(&stats.Rejected, 1)
				}
			}
		}
	}()

	join := map[string]string{
		"type":      "JOIN",
		"player_id": playerID,
		"name":      fmt.Sprintf("Agitator %03d", clientID),
	}
	if err := send(conn, join, stats); err != nil {
		return
	}

	ticker := time.NewTicker(config.ActionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := send(conn, map[string]string{"type": "ROLL"}, stats); err != nil {
				return
			}
		}
	}
}

func send(conn *websocket.Conn, action map[string]string, stats *Stats) error {
	start := time.Now()
	if err := conn.WriteJSON(action); err != nil {
		atomic.AddInt64(&stats.Errors, 1)
		return err
	}
	latency := time.Since(start)
	atomic.AddInt64(&stats.MessagesSent, 1)

	stats.mu.Lock()
	stats.Latencies = append(stats.Latencies, latency)
	stats.mu.Unlock()
	return nil
}

// Summary is what a run produced, as written to stress_test_results.json.
type Summary struct {
	Sent       int64   `json:"messages_sent"`
	Received   int64   `json:"messages_received"`
	Frames     int64   `json:"frames"`
	Turns      int64   `json:"turns"`
	Rejected   int64   `json:"rejected"`
	Errors     int64   `json:"errors"`
	Throughput float64 `json:"throughput_per_sec"`
	P50        string  `json:"write_latency_p50"`
	P95        string  `json:"write_latency_p95"`
	Max        string  `json:"write_latency_max"`
	Clients    int     `json:"clients"`
	Interval   string  `json:"interval"`
	Duration   string  `json:"duration"`
}

func summarize(stats *Stats, config Config) Summary {
	s := Summary{
		Sent:     atomic.LoadInt64(&stats.MessagesSent),
		Received: atomic.LoadInt64(&stats.MessagesReceived),
		Frames:   atomic.LoadInt64(&stats.Frames),
		Turns:    atomic.LoadInt64(&stats.Turns),
		Rejected: atomic.LoadInt64(&stats.Rejected),
		Errors:   atomic.LoadInt64(&stats.Errors),
		Clients:  config.NumClients,
		Interval: config.ActionInterval.String(),
		Duration: config.TestDuration.String(),
	}
	s.Throughput = float64(s.Sent) / config.TestDuration.Seconds()

	stats.mu.Lock()
	lat := append([]time.Duration(nil), stats.Latencies...)
	stats.mu.Unlock()
	if len(lat) > 0 {
		sort.Slice(lat, func(i, j int) bool { return lat[i] < lat[j] })
		s.P50 = lat[len(lat)/2].String()
		s.P95 = lat[len(lat)*95/100].String()
		s.Max = lat[len(lat)-1].String()
	}
	return s
}

func printResults(stats *Stats, config Config) {
	s := summarize(stats, config)
	errRate := float64(s.Errors) / float64(s.Sent+1) * 100

	fmt.Println("\n=========================================")
	fmt.Println("LOAD TEST RESULTS")
	fmt.Println("=========================================")
	fmt.Printf("Sent / Received:   %d / %d\n", s.Sent, s.Received)
	fmt.Printf("Frames streamed:   %d\n", s.Frames)
	fmt.Printf("Turns played:      %d (%d rolls rejected)\n", s.Turns, s.Rejected)
	fmt.Printf("Errors:            %d (%.2f%%)\n", s.Errors, errRate)
	fmt.Printf("Throughput:        %.2f msg/sec\n", s.Throughput)
	if s.Max != "" {
		fmt.Printf("Write latency:     p50 %s, p95 %s, max %s\n", s.P50, s.P95, s.Max)
	}

	// Rejected rolls are expected: only the seated player whose turn it is may roll.
	fmt.Println("\n-----------------------------------------")
	switch {
	case s.Errors == 0 && s.Turns > 0:
		fmt.Println("TEST PASSED: turns kept flowing under load")
	case errRate < 5:
		fmt.Println("TEST WARNING: Some errors detected")
	default:
		fmt.Println("TEST FAILED: High error rate")
	}
	fmt.Println("=========================================")

	jsonData, _ := json.MarshalIndent(s, "", "  ")
	if err := os.WriteFile("stress_test_results.json", jsonData, 0644); err != nil {
		log.Printf("Could not save results: %v", err)
		return
	}
	fmt.Println("\nResults saved to stress_test_results.json")
}
