package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"echobin/pkg/httpx"
	"echobin/pkg/logger"
)

// Minimal, low-overhead request telemetry.
// - Every request gets an X-Request-Id.
// - Only slow requests are logged unless a request is sampled.
// - Per-request spans are only recorded for sampled requests.

const RequestIDHeader = "X-Request-Id"

type ctxKeyType struct{}

// Span is a simple span relative to request start (milliseconds)
type Span struct {
	ID       string                 `json:"id"`
	ParentID string                 `json:"parent_id,omitempty"`
	Op       string                 `json:"op"`
	StartMs  int64                  `json:"start_ms"`
	Duration int64                  `json:"duration_ms"`
	Data     map[string]interface{} `json:"data,omitempty"`
}

// Telemetry holds the per-request trace and metadata.
type Telemetry struct {
	RequestID string `json:"request_id"`
	Op        string `json:"op"`
	Duration  int64  `json:"duration_ms"`
	Status    int    `json:"status"`
	Spans     []Span `json:"spans,omitempty"`

	startTime time.Time
	mu        sync.Mutex
	spanCtr   int
	// span stack for parent linkage
	spanStack []string
}

// Tracer decides sampling and records request timings.
type Tracer struct {
	sampleRate    float64
	slowThreshold time.Duration
	requestCtr    atomic.Uint64
}

// New returns a tracer. sampleRate is clamped to [0, 1]; a zero rate
// disables full traces so only slow requests get logged.
func New(sampleRate float64, slowThreshold time.Duration) *Tracer {
	if sampleRate < 0 {
		sampleRate = 0
	}
	if sampleRate > 1 {
		sampleRate = 1
	}
	if slowThreshold < 0 {
		slowThreshold = 0
	}
	return &Tracer{sampleRate: sampleRate, slowThreshold: slowThreshold}
}

// Middleware wraps the provided handler and records request timing and sampled spans.
func (t *Tracer) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := r.Header.Get(RequestIDHeader)
		if reqID == "" || len(reqID) > 128 {
			reqID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, reqID)

		var tel *Telemetry
		if t.shouldSample(r) {
			tel = &Telemetry{RequestID: reqID, Op: r.Method + " " + r.URL.Path, startTime: start}
			// root span representing the request
			root := tel.nextSpanID()
			tel.Spans = append(tel.Spans, Span{ID: root, Op: tel.Op})
			tel.spanStack = append(tel.spanStack, root)
			r = r.WithContext(context.WithValue(r.Context(), ctxKeyType{}, tel))
		}

		srw := httpx.NewStatusRecorder(w)
		next.ServeHTTP(srw, r)
		dur := time.Since(start)

		if tel != nil {
			tel.mu.Lock()
			tel.Status = srw.Status
			tel.Duration = dur.Milliseconds()
			if len(tel.Spans) > 0 {
				tel.Spans[0].Duration = tel.Duration
			}
			text := renderTelemetryText(tel)
			tel.mu.Unlock()
			logger.Info("request_trace", "request_id", reqID, "trace", text)
			return
		}

		if t.slowThreshold > 0 && dur > t.slowThreshold {
			logger.Warn("slow_request",
				"request_id", reqID,
				"method", r.Method,
				"path", r.URL.Path,
				"duration_ms", dur.Milliseconds(),
				"status", srw.Status,
			)
		}
	})
}

// shouldSample supports forcing a trace via `X-Debug-Telemetry: 1`;
// otherwise it samples 1 in N requests for rate 1/N.
func (t *Tracer) shouldSample(r *http.Request) bool {
	if r.Header.Get("X-Debug-Telemetry") == "1" {
		return true
	}
	if t.sampleRate <= 0 {
		return false
	}
	denom := uint64(1 / t.sampleRate)
	if denom <= 1 {
		return true
	}
	return t.requestCtr.Add(1)%denom == 0
}

// StartSpan returns an end function. If the request is not sampled it
// returns a no-op.
func StartSpan(ctx context.Context, name string) func() {
	tel, ok := ctx.Value(ctxKeyType{}).(*Telemetry)
	if !ok {
		return func() {}
	}

	tel.mu.Lock()
	startRel := time.Since(tel.startTime).Milliseconds()
	id := tel.nextSpanID()
	parent := ""
	if len(tel.spanStack) > 0 {
		parent = tel.spanStack[len(tel.spanStack)-1]
	}
	tel.Spans = append(tel.Spans, Span{ID: id, ParentID: parent, Op: name, StartMs: startRel})
	tel.spanStack = append(tel.spanStack, id)
	idx := len(tel.Spans) - 1
	tel.mu.Unlock()

	return func() {
		tel.mu.Lock()
		defer tel.mu.Unlock()
		tel.Spans[idx].Duration = time.Since(tel.startTime).Milliseconds() - startRel
		// pop stack
		if len(tel.spanStack) > 0 {
			tel.spanStack = tel.spanStack[:len(tel.spanStack)-1]
		}
	}
}

// SetSpanData attaches a key/value to the currently active span for the
// request (no-op if the request is not sampled).
func SetSpanData(ctx context.Context, key string, value interface{}) {
	tel, ok := ctx.Value(ctxKeyType{}).(*Telemetry)
	if !ok {
		return
	}
	tel.mu.Lock()
	defer tel.mu.Unlock()
	if len(tel.spanStack) == 0 {
		return
	}
	top := tel.spanStack[len(tel.spanStack)-1]
	for i := len(tel.Spans) - 1; i >= 0; i-- {
		if tel.Spans[i].ID == top {
			if tel.Spans[i].Data == nil {
				tel.Spans[i].Data = make(map[string]interface{})
			}
			tel.Spans[i].Data[key] = value
			return
		}
	}
}

// caller holds tel.mu
func (tel *Telemetry) nextSpanID() string {
	tel.spanCtr++
	return fmt.Sprintf("s-%d", tel.spanCtr)
}

// renderTelemetryText renders a sampled trace as a single line of nested
// spans, e.g. "GET /get 3ms [inspect.build 1ms [body.classify 0ms]]".
func renderTelemetryText(t *Telemetry) string {
	children := make(map[string][]Span)
	for _, sp := range t.Spans {
		children[sp.ParentID] = append(children[sp.ParentID], sp)
	}

	var b strings.Builder
	var printSpan func(id string)
	printSpan = func(id string) {
		list := children[id]
		sort.SliceStable(list, func(i, j int) bool { return list[i].StartMs < list[j].StartMs })
		for i, sp := range list {
			if i > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%s %dms", sp.Op, sp.Duration)
			if len(sp.Data) > 0 {
				keys := make([]string, 0, len(sp.Data))
				for k := range sp.Data {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					fmt.Fprintf(&b, " %s=%v", k, sp.Data[k])
				}
			}
			if len(children[sp.ID]) > 0 {
				b.WriteString(" [")
				printSpan(sp.ID)
				b.WriteByte(']')
			}
		}
	}
	printSpan("")
	fmt.Fprintf(&b, " status=%d", t.Status)
	return b.String()
}
