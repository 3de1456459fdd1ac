package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/hubenschmidt/persian-voice-chat/internal/transport"
)

var defaultUtterances = []string{
	"سلام",
	"هوا امروز چطوره؟",
	"ساعت چنده؟",
	"یه جک بگو",
	"ممنون",
	"اسمت چیه؟",
	"یه داستان بگو",
	"خداحافظ",
	"فیل",
}

func main() {
	gateway := flag.String("gateway", "ws://localhost:8000/ws/chat", "gateway WebSocket URL")
	concurrency := flag.Int("concurrency", 10, "number of concurrent sessions")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	turns := flag.Int("turns", 5, "text turns per session")
	textsFile := flag.String("texts", "", "file with one utterance per line")
	flag.Parse()

	texts := defaultUtterances
	if *textsFile != "" {
		loaded, err := loadTexts(*textsFile)
		if err != nil || len(loaded) == 0 {
			fmt.Fprintf(os.Stderr, "no utterances in %s, using built-in set\n", *textsFile)
		} else {
			texts = loaded
		}
	}

	fmt.Printf("Load test: %d concurrent sessions for %s\n", *concurrency, *duration)
	fmt.Printf("Gateway: %s | Turns/session: %d\n\n", *gateway, *turns)

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	var mu sync.Mutex
	var results []sessionResult

	g, gctx := errgroup.WithContext(ctx)
	for range *concurrency {
		g.Go(func() error {
			for gctx.Err() == nil {
				r := runSession(gctx, *gateway, texts, *turns)
				mu.Lock()
				results = append(results, r)
				mu.Unlock()
			}
			return nil
		})
	}
	g.Wait()

	printSummary(os.Stdout, results)
}

type turnResult struct {
	ok     bool
	rttMs  float64
	intent string
	err    string
}

type sessionResult struct {
	connectMs float64
	err       string
	turns     []turnResult
}

func runSession(ctx context.Context, gateway string, texts []string, turns int) sessionResult {
	start := time.Now()
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, gateway, nil)
	if err != nil {
		return sessionResult{err: fmt.Sprintf("dial: %v", err)}
	}
	defer conn.Close()
	res := sessionResult{connectMs: msSince(start)}

	for range turns {
		if ctx.Err() != nil {
			break
		}
		res.turns = append(res.turns, runTurn(conn, texts[rand.IntN(len(texts))]))
	}

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return res
}

// runTurn sends one text frame and waits for the reply carrying its request_id.
func runTurn(conn *websocket.Conn, text string) turnResult {
	reqID := uuid.NewString()
	start := time.Now()
	if err := conn.WriteJSON(transport.NewText(reqID, text, start)); err != nil {
		return turnResult{err: fmt.Sprintf("send: %v", err)}
	}

	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return turnResult{err: fmt.Sprintf("read: %v", err)}
		}
		env, err := transport.Decode(data)
		if err != nil || env.RequestID != reqID {
			continue
		}
		switch env.Type {
		case transport.TypeMessage:
			return turnResult{ok: true, rttMs: msSince(start), intent: env.Intent}
		case transport.TypeError:
			return turnResult{err: "error frame: " + env.Message}
		}
	}
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}

func loadTexts(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var texts []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" && !strings.HasPrefix(line, "#") {
			texts = append(texts, line)
		}
	}
	return texts, scanner.Err()
}

func printSummary(w io.Writer, results []sessionResult) {
	var sessionsOK, sessionsFailed, turnsOK, turnsFailed int
	var connectAll, rttAll []float64
	intents := map[string]int{}
	errs := map[string]int{}

	for _, s := range results {
		if s.err != "" {
			sessionsFailed++
			errs[s.err]++
			continue
		}
		sessionsOK++
		connectAll = append(connectAll, s.connectMs)
		for _, t := range s.turns {
			if !t.ok {
				turnsFailed++
				errs[t.err]++
				continue
			}
			turnsOK++
			rttAll = append(rttAll, t.rttMs)
			intents[t.intent]++
		}
	}

	fmt.Fprintf(w, "\n=== Load Test Results ===\n")
	fmt.Fprintf(w, "Sessions completed: %d\n", sessionsOK)
	fmt.Fprintf(w, "Sessions failed:    %d\n", sessionsFailed)
	fmt.Fprintf(w, "Turns completed:    %d\n", turnsOK)
	fmt.Fprintf(w, "Turns failed:       %d\n", turnsFailed)

	if len(rttAll) == 0 {
		fmt.Fprintln(w, "No successful turns to report metrics")
		return
	}

	fmt.Fprintf(w, "\n%-8s %8s %8s %8s\n", "Stage", "p50", "p95", "p99")
	fmt.Fprintf(w, "%-8s %8.1fms %8.1fms %8.1fms\n", "Connect", percentile(connectAll, 50), percentile(connectAll, 95), percentile(connectAll, 99))
	fmt.Fprintf(w, "%-8s %8.1fms %8.1fms %8.1fms\n", "Turn", percentile(rttAll, 50), percentile(rttAll, 95), percentile(rttAll, 99))

	fmt.Fprintf(w, "\nIntents:\n")
	names := make([]string, 0, len(intents))
	for name := range intents {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-12s %d\n", name, intents[name])
	}
	for msg, n := range errs {
		fmt.Fprintf(w, "error x%d: %s\n", n, msg)
	}
}

func percentile(data []float64, pct float64) float64 {
	sort.Float64s(data)
	idx := int(math.Ceil(pct/100*float64(len(data)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(data) {
		idx = len(data) - 1
	}
	return data[idx]
}
