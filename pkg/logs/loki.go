package logs

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Alijeyrad/simward_backend/config"
)

const (
	lokiBatchSize     = 100
	lokiFlushInterval = 2 * time.Second
	lokiQueueSize     = 4096
)

// lokiWriter batches log lines and pushes them to Loki's push API from a
// background goroutine. Write never blocks the caller: when the queue is
// full the line is dropped.
type lokiWriter struct {
	endpoint string
	username string
	password string
	client   *http.Client
	labels   map[string]string
	queue    chan [2]string
}

type lokiPush struct {
	Streams []lokiStream `json:"streams"`
}

type lokiStream struct {
	Stream map[string]string `json:"stream"`
	Values [][2]string       `json:"values"`
}

func newLokiHandler(cfg *config.Config, level slog.Level) slog.Handler {
	lw := newLokiWriter(cfg.Logging.Output.Loki, map[string]string{
		"service": cfg.Observability.ServiceName,
		"env":     cfg.Server.Environment,
	})
	go lw.run()
	return slog.NewJSONHandler(lw, &slog.HandlerOptions{Level: level})
}

func newLokiWriter(cfg config.LokiConfig, labels map[string]string) *lokiWriter {
	return &lokiWriter{
		endpoint: cfg.Endpoint + "/loki/api/v1/push",
		username: cfg.Username,
		password: cfg.Password,
		client:   &http.Client{Timeout: 3 * time.Second},
		labels:   labels,
		queue:    make(chan [2]string, lokiQueueSize),
	}
}

func (lw *lokiWriter) Write(p []byte) (int, error) {
	line := string(bytes.TrimRight(p, "\n"))
	select {
	case lw.queue <- [2]string{strconv.FormatInt(time.Now().UnixNano(), 10), line}:
	default:
	}
	return len(p), nil
}

func (lw *lokiWriter) run() {
	ticker := time.NewTicker(lokiFlushInterval)
	defer ticker.Stop()

	batch := make([][2]string, 0, lokiBatchSize)
	for {
		select {
		case v, ok := <-lw.queue:
			if !ok {
				lw.push(batch)
				return
			}
			batch = append(batch, v)
			if len(batch) >= lokiBatchSize {
				lw.push(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				lw.push(batch)
				batch = batch[:0]
			}
		}
	}
}

func (lw *lokiWriter) push(values [][2]string) {
	if len(values) == 0 {
		return
	}
	body, err := json.Marshal(lokiPush{Streams: []lokiStream{{Stream: lw.labels, Values: values}}})
	if err != nil {
		return
	}

	req, err := http.NewRequest(http.MethodPost, lw.endpoint, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if lw.username != "" {
		req.SetBasicAuth(lw.username, lw.password)
	}

	resp, err := lw.client.Do(req)
	if err != nil {
		return
	}
	_ = resp.Body.Close()
}
