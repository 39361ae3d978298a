package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/time/rate"

	"github.com/dharsanguruparan/PrintReady/internal/config"
	rerrors "github.com/dharsanguruparan/PrintReady/internal/errors"
	"github.com/dharsanguruparan/PrintReady/internal/model"
)

func TestRetryPolicyDelay(t *testing.T) {
	p := PolicyFromConfig(config.Default())
	want := []time.Duration{10, 20, 40, 80, 160, 240, 320, 400, 480, 560, 600, 600}
	for n, w := range want {
		if got := p.Delay(n); got != w*time.Second {
			t.Errorf("Delay(%d) = %s, want %s", n, got, w*time.Second)
		}
	}
	if p.MaxRetry() != 4 {
		t.Fatalf("5 attempts means 4 retries, got %d", p.MaxRetry())
	}
	if got := p.RetryDelayFunc(2, errors.New("boom"), nil); got != 40*time.Second {
		t.Fatalf("RetryDelayFunc(2) = %s", got)
	}
}

type recordingEnqueuer struct {
	task *asynq.Task
	opts []asynq.Option
}

func (r *recordingEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	r.task, r.opts = task, opts
	return &asynq.TaskInfo{ID: "t1", Queue: "renders"}, nil
}

func validPayload() model.RenderPayload {
	spec := model.DefaultPrintSpec()
	return model.RenderPayload{
		DesignID:   "d1",
		OrderID:    "o1",
		LineItemID: "li1",
		Source:     model.StorageReference{Bucket: "art", Path: "d1.png"},
		PrintSpec:  spec,
		SafeArea:   model.InsetSafeArea(spec),
	}
}

func TestEnqueueRender(t *testing.T) {
	rec := &recordingEnqueuer{}
	info, err := EnqueueRender(context.Background(), rec, validPayload(), "renders", PolicyFromConfig(config.Default()))
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if info.ID != "t1" || rec.task.Type() != RenderPrintReadyTask {
		t.Fatalf("unexpected task %q / %+v", rec.task.Type(), info)
	}
	decoded, err := model.DecodePayload(rec.task.Payload())
	if err != nil || decoded.LineItemID != "li1" {
		t.Fatalf("payload should round-trip through the worker decoder: %+v %v", decoded, err)
	}
	var sawRetry, sawQueue bool
	for _, opt := range rec.opts {
		switch opt.Type() {
		case asynq.MaxRetryOpt:
			sawRetry = opt.Value().(int) == 4
		case asynq.QueueOpt:
			sawQueue = opt.Value().(string) == "renders"
		}
	}
	if !sawRetry || !sawQueue {
		t.Fatalf("options: %v", rec.opts)
	}
}

func TestNewRenderTaskRejectsInvalidPayload(t *testing.T) {
	p := validPayload()
	p.OrderID = ""
	if _, err := NewRenderTask(p); !rerrors.IsCode(err, rerrors.CodeContract) {
		t.Fatalf("expected contract error, got %v", err)
	}
}

func TestNewRenderTaskWireShape(t *testing.T) {
	task, err := NewRenderTask(validPayload())
	if err != nil {
		t.Fatal(err)
	}
	var wire map[string]any
	if err := json.Unmarshal(task.Payload(), &wire); err != nil {
		t.Fatal(err)
	}
	spec := wire["printSpec"].(map[string]any)
	if spec["widthMm"] != 210.0 || spec["outputFormat"] != "tiff" || wire["source"].(map[string]any)["bucket"] != "art" {
		t.Fatalf("wire payload: %v", wire)
	}
}

func TestRateLimit(t *testing.T) {
	calls := 0
	h := RateLimit(rate.NewLimiter(rate.Limit(1), 1))(asynq.HandlerFunc(func(context.Context, *asynq.Task) error {
		calls++
		return nil
	}))
	task := asynq.NewTask(RenderPrintReadyTask, nil)
	if err := h.ProcessTask(context.Background(), task); err != nil || calls != 1 {
		t.Fatalf("first dispatch should pass: %v calls=%d", err, calls)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := h.ProcessTask(ctx, task); err == nil || calls != 1 {
		t.Fatalf("cancelled wait should not dispatch: %v calls=%d", err, calls)
	}
}

func TestNoopLease(t *testing.T) {
	release, err := NoopLease{}.Acquire(context.Background(), "o1", "li1")
	if err != nil {
		t.Fatal(err)
	}
	if err := release(context.Background()); err != nil {
		t.Fatal(err)
	}
	if LeaseKey("o1", "li1") != "printready:lease:o1:li1" {
		t.Fatalf("lease key = %s", LeaseKey("o1", "li1"))
	}
}
