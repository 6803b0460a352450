package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tinyland-inc/picorelay/pkg/enrich"
	"github.com/tinyland-inc/picorelay/pkg/logger"
	"github.com/tinyland-inc/picorelay/pkg/metrics"
	"github.com/tinyland-inc/picorelay/pkg/thread"
	"github.com/tinyland-inc/picorelay/pkg/utils"
)

// EngineOption is a functional option for configuring an Engine.
type EngineOption func(*Engine)

// WithPacer delays every outbound send through p.
func WithPacer(p Pacer) EngineOption {
	return func(e *Engine) { e.pacer = p }
}

// WithMetrics records relay activity on m.
func WithMetrics(m *metrics.Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// WithClock overrides the entry timestamp source.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// WithOperatorChat sets the chat that receives forwarded media.
func WithOperatorChat(id int64) EngineOption {
	return func(e *Engine) { e.operatorChat = id }
}

// Engine runs the relay flows against a Store. Callers must not run two
// flows for the same thread concurrently; the dispatcher serializes them.
type Engine struct {
	store    *thread.Store
	platform Platform
	operator Operator
	enricher enrich.Firer
	resolver *Resolver

	pacer        Pacer
	metrics      *metrics.Metrics
	now          func() time.Time
	operatorChat int64
}

func NewEngine(
	store *thread.Store,
	platform Platform,
	operator Operator,
	enricher enrich.Firer,
	resolver *Resolver,
	opts ...EngineOption,
) *Engine {
	e := &Engine{
		store:    store,
		platform: platform,
		operator: operator,
		enricher: enricher,
		resolver: resolver,
		now:      func() time.Time { return time.Now().UTC().Round(0) },
	}
	for _, opt := range opts {
		opt(e)
	}
	e.metrics.SetActiveThreads(store.ActiveCount())
	return e
}

// Store exposes the engine's thread store for read-only views.
func (e *Engine) Store() *thread.Store { return e.store }

// NewThreadResult is returned by StartThread.
type NewThreadResult struct {
	Thread     *thread.Thread
	Enrichment enrich.Result
}

// ResolveTarget turns operator input into a counterparty id.
func (e *Engine) ResolveTarget(ctx context.Context, input string) (int64, error) {
	target, err := utils.ParseTarget(input)
	if err != nil {
		return 0, &TargetResolutionError{Target: input, Err: err}
	}
	if !target.IsHandle() {
		return target.ID, nil
	}
	id, err := e.platform.ResolveHandle(ctx, target.Handle)
	if err != nil {
		return 0, &TargetResolutionError{Target: input, Err: err}
	}
	return id, nil
}

// StartThread sends the opening message to target and creates its thread.
// Nothing is stored when the send fails. An existing record for the same
// identity is replaced by the fresh thread.
func (e *Engine) StartThread(ctx context.Context, target, text string) (*NewThreadResult, error) {
	opID := uuid.NewString()

	id, err := e.ResolveTarget(ctx, target)
	if err != nil {
		logger.WarnCF("relay", "Target resolution failed", map[string]any{
			"op_id":  opID,
			"target": target,
			"error":  err.Error(),
		})
		return nil, err
	}

	if err := e.pace(ctx); err != nil {
		return nil, err
	}
	sentID, err := e.platform.Send(ctx, id, text, 0)
	if err != nil {
		e.metrics.Send("new_thread", "failed")
		logger.WarnCF("relay", "Opening message not delivered", map[string]any{
			"op_id":     opID,
			"thread_id": id,
			"error":     err.Error(),
		})
		return nil, &DeliveryError{TargetID: id, Err: err}
	}
	e.metrics.Send("new_thread", "ok")

	handle, err := e.platform.Handle(ctx, id)
	if err != nil {
		logger.DebugCF("relay", "Handle lookup failed", map[string]any{
			"op_id":     opID,
			"thread_id": id,
			"error":     err.Error(),
		})
		handle = ""
	}

	if prev, ok := e.store.Get(id); ok {
		logger.InfoCF("relay", "Replacing existing thread record", map[string]any{
			"op_id":       opID,
			"thread_id":   id,
			"was_active":  prev.Active,
			"old_history": len(prev.History),
		})
	}

	t, err := thread.New(id, handle, sentID, thread.NewOperatorEntry(text, e.now()))
	if err != nil {
		return nil, err
	}
	if err := e.store.Upsert(t); err != nil {
		e.persistFailed(opID, id, err)
		return nil, err
	}
	e.metrics.SetActiveThreads(e.store.ActiveCount())

	logger.InfoCF("relay", "Thread started", map[string]any{
		"op_id":      opID,
		"thread_id":  id,
		"message_id": sentID,
	})

	return &NewThreadResult{
		Thread:     t,
		Enrichment: e.fire(ctx, id, enrich.FirstContact),
	}, nil
}

// Resolve maps ev to a thread using the currently active threads.
func (e *Engine) Resolve(ev InboundEvent) Resolution {
	return e.resolver.Resolve(ev, e.store.ForEachActive())
}

// HandleInbound records ev on threadID, notifies the operator and forwards
// binary media. The first counterparty reply of a thread fires enrichment.
func (e *Engine) HandleInbound(ctx context.Context, ev InboundEvent, threadID int64) error {
	opID := uuid.NewString()

	var historyLen int
	updated, err := e.store.Update(threadID, func(t *thread.Thread) error {
		if !t.Active {
			return &ThreadInactiveError{ThreadID: threadID}
		}
		if err := t.Append(thread.NewCounterpartyEntry(ev.Content(), ev.MessageID, ev.MediaType, e.now())); err != nil {
			return err
		}
		if t.Handle == "" && ev.SenderHandle != "" && ev.SenderID == threadID {
			t.Handle = ev.SenderHandle
		}
		historyLen = len(t.History)
		return nil
	})
	if err != nil {
		var pe *thread.PersistenceError
		if errors.As(err, &pe) {
			e.persistFailed(opID, threadID, err)
		}
		e.metrics.Inbound("rejected")
		return err
	}
	e.metrics.Inbound("recorded")

	logger.InfoCF("relay", "Inbound message recorded", map[string]any{
		"op_id":      opID,
		"thread_id":  threadID,
		"message_id": ev.MessageID,
		"media":      ev.MediaType,
		"history":    historyLen,
	})

	var errs []error
	summary := fmt.Sprintf("@%s replied: %s", updated.DisplayHandle(), ev.Content())
	if err := e.operator.Notify(ctx, summary, &Affordance{Label: "Reply Now", Token: ReplyToken(threadID)}); err != nil {
		errs = append(errs, fmt.Errorf("notify operator: %w", err))
	}

	if ev.Binary && e.operatorChat != 0 {
		if err := e.forwardMedia(ctx, ev); err != nil {
			logger.WarnCF("relay", "Media forward failed", map[string]any{
				"op_id":     opID,
				"thread_id": threadID,
				"error":     err.Error(),
			})
			errs = append(errs, fmt.Errorf("forward media: %w", err))
		}
	}

	// The history was [operator opener] before this append.
	if historyLen == 2 {
		res := e.fire(ctx, threadID, enrich.FirstReply)
		if err := e.operator.Notify(ctx, enrich.Render(res), nil); err != nil {
			errs = append(errs, fmt.Errorf("notify enrichment: %w", err))
		}
	}

	return errors.Join(errs...)
}

// Reply sends text on an existing thread. A failed send kills the thread:
// it is marked inactive and the caller gets a ThreadInactiveError wrapping
// the DeliveryError.
func (e *Engine) Reply(ctx context.Context, threadID int64, text string) (*thread.Thread, error) {
	opID := uuid.NewString()

	t, ok := e.store.Get(threadID)
	if !ok {
		return nil, &ThreadInactiveError{ThreadID: threadID, Cause: ErrUnknownThread}
	}
	if !t.Active {
		return nil, &ThreadInactiveError{ThreadID: threadID}
	}

	anchor, _ := t.ReplyAnchor()

	if err := e.pace(ctx); err != nil {
		return nil, err
	}
	sentID, sendErr := e.platform.Send(ctx, threadID, text, anchor)
	if sendErr != nil {
		e.metrics.Send("reply", "failed")
		delivery := &DeliveryError{TargetID: threadID, Err: sendErr}

		_, err := e.store.Update(threadID, func(t *thread.Thread) error {
			t.Active = false
			return nil
		})
		if err != nil {
			e.persistFailed(opID, threadID, err)
			return nil, errors.Join(delivery, err)
		}
		e.metrics.SetActiveThreads(e.store.ActiveCount())

		logger.WarnCF("relay", "Reply failed, thread marked dead", map[string]any{
			"op_id":     opID,
			"thread_id": threadID,
			"error":     sendErr.Error(),
		})
		return nil, &ThreadInactiveError{ThreadID: threadID, Cause: delivery}
	}
	e.metrics.Send("reply", "ok")

	updated, err := e.store.Update(threadID, func(t *thread.Thread) error {
		t.LastSentMessageID = sentID
		return t.Append(thread.NewOperatorEntry(text, e.now()))
	})
	if err != nil {
		e.persistFailed(opID, threadID, err)
		return nil, err
	}

	logger.InfoCF("relay", "Reply sent", map[string]any{
		"op_id":      opID,
		"thread_id":  threadID,
		"message_id": sentID,
		"anchor":     anchor,
	})
	return updated, nil
}

// Lookup runs an on-demand enrichment for target.
func (e *Engine) Lookup(ctx context.Context, target string) (enrich.Result, error) {
	id, err := e.ResolveTarget(ctx, target)
	if err != nil {
		return enrich.Result{}, err
	}
	return e.fire(ctx, id, enrich.OnDemand), nil
}

func (e *Engine) fire(ctx context.Context, id int64, mode enrich.Mode) enrich.Result {
	if e.enricher == nil {
		return enrich.Result{Mode: mode, CounterpartyID: id, Err: errors.New("enrichment disabled")}
	}
	res := e.enricher.Fire(ctx, id, mode)
	result := "ok"
	if res.Err != nil {
		result = "failed"
	}
	e.metrics.Enrichment(string(mode), result)
	return res
}

func (e *Engine) forwardMedia(ctx context.Context, ev InboundEvent) error {
	if f, ok := e.operator.(MediaForwarder); ok {
		return f.ForwardMedia(ctx, ev.ChatID, ev.MessageID)
	}
	return e.platform.Forward(ctx, e.operatorChat, ev.ChatID, ev.MessageID)
}

func (e *Engine) pace(ctx context.Context) error {
	if e.pacer == nil {
		return nil
	}
	return e.pacer.Wait(ctx)
}

func (e *Engine) persistFailed(opID string, threadID int64, err error) {
	e.metrics.FlushFailure()
	logger.ErrorCF("relay", "Thread state not persisted", map[string]any{
		"op_id":     opID,
		"thread_id": threadID,
		"error":     err.Error(),
	})
}
