// Package pipeline runs the per-event processing sequence: dedup, order and
// shipment fetch, message composition, label crop, chat delivery. Every
// decision point exits with a skip, never an error; errors abort the event
// and bubble to the batch caller.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/melinotify/internal/fault"
	"github.com/md-rashed-zaman/melinotify/internal/label"
	"github.com/md-rashed-zaman/melinotify/internal/meli"
	"github.com/md-rashed-zaman/melinotify/internal/message"
	"github.com/md-rashed-zaman/melinotify/internal/metrics"
	"github.com/md-rashed-zaman/melinotify/internal/telegram"
)

// Event is one queued webhook delivery.
type Event struct {
	TransportID string
	Body        []byte
	ReceivedAt  time.Time
}

type Deduplicator interface {
	SaveIfNotExists(ctx context.Context, key string, payload []byte) (bool, error)
}

type MarketplaceAPI interface {
	GetOrder(ctx context.Context, orderID string) (meli.Order, error)
	GetShipment(ctx context.Context, shipmentID int64) (meli.Shipment, error)
	DownloadLabel(ctx context.Context, shipmentID int64) ([]byte, error)
}

type Notifier interface {
	SendMessage(ctx context.Context, text string) error
	SendDocument(ctx context.Context, doc telegram.Document) error
}

// Stage enumerates the pipeline state machine. Each stage has one transition
// function; skips jump straight to StageDone.
type Stage int

const (
	StageReceived Stage = iota
	StageDeduped
	StageOrderFetched
	StageShipmentDeduped
	StageShipmentFetched
	StageNotified
	StageDone
)

// eligibleStatuses gates notification. handling means the order is being
// prepared, ready_to_ship means the label is available.
var eligibleStatuses = map[string]bool{
	"handling":      true,
	"ready_to_ship": true,
}

type Pipeline struct {
	dedup    Deduplicator
	api      MarketplaceAPI
	notifier Notifier
	logger   *slog.Logger
	crop     func([]byte) ([]byte, error)
	newID    func() string
}

func New(dedup Deduplicator, api MarketplaceAPI, notifier Notifier, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		dedup:    dedup,
		api:      api,
		notifier: notifier,
		logger:   logger,
		crop:     label.Crop,
		newID:    uuid.NewString,
	}
}

type run struct {
	event      Event
	payload    map[string]any
	eventKey   string
	orderID    string
	order      meli.Order
	shipment   meli.Shipment
	skipReason string
}

func (r *run) skip(reason string) Stage {
	r.skipReason = reason
	return StageDone
}

// Process runs one event through the state machine. A nil return means the
// event finished or skipped; any error means the event must be redelivered.
func (p *Pipeline) Process(ctx context.Context, event Event) error {
	metrics.EventsTotal.Inc()
	start := time.Now()
	defer func() {
		metrics.PipelineDuration.Observe(time.Since(start).Seconds())
	}()

	r := &run{event: event}
	for stage := StageReceived; stage != StageDone; {
		next, err := p.transition(ctx, stage, r)
		if err != nil {
			return err
		}
		stage = next
	}

	if r.skipReason != "" {
		metrics.EventsSkippedTotal.WithLabelValues(r.skipReason).Inc()
		p.logger.Info("event skipped", "event_key", r.eventKey, "reason", r.skipReason)
	}
	return nil
}

func (p *Pipeline) transition(ctx context.Context, stage Stage, r *run) (Stage, error) {
	switch stage {
	case StageReceived:
		return p.receive(r), nil
	case StageDeduped:
		return p.dedupe(ctx, r)
	case StageOrderFetched:
		return p.fetchOrder(ctx, r)
	case StageShipmentDeduped:
		return p.dedupeShipment(ctx, r)
	case StageShipmentFetched:
		return p.fetchShipment(ctx, r)
	case StageNotified:
		return p.notify(ctx, r)
	default:
		return StageDone, fmt.Errorf("pipeline: unknown stage %d", stage)
	}
}

// receive parses the message body and derives the idempotency key. A
// malformed or non-object body degrades to an empty payload, never an error.
func (p *Pipeline) receive(r *run) Stage {
	payload := map[string]any{}
	if len(r.event.Body) > 0 {
		if err := json.Unmarshal(r.event.Body, &payload); err != nil {
			p.logger.Warn("invalid JSON in message body", "transport_id", r.event.TransportID)
			payload = map[string]any{}
		}
	}
	r.payload = payload

	switch id := payload["id"].(type) {
	case string:
		r.eventKey = id
	case float64:
		r.eventKey = strconv.FormatFloat(id, 'f', -1, 64)
	default:
		r.eventKey = r.event.TransportID
	}
	if r.eventKey == "" {
		r.eventKey = p.newID()
	}
	return StageDeduped
}

func (p *Pipeline) dedupe(ctx context.Context, r *run) (Stage, error) {
	payload, err := json.Marshal(r.payload)
	if err != nil {
		return StageDone, err
	}
	first, err := p.dedup.SaveIfNotExists(ctx, r.eventKey, payload)
	if err != nil {
		return StageDone, err
	}
	if !first {
		metrics.DuplicateEventsTotal.Inc()
		return r.skip("duplicate_event"), nil
	}
	return StageOrderFetched, nil
}

func (p *Pipeline) fetchOrder(ctx context.Context, r *run) (Stage, error) {
	resource, _ := r.payload["resource"].(string)
	orderID, ok := meli.OrderIDFromResource(resource)
	if !ok {
		return r.skip("not_an_order_event"), nil
	}
	r.orderID = orderID

	order, err := p.api.GetOrder(ctx, orderID)
	if err != nil {
		return StageDone, err
	}
	r.order = order

	if order.Shipping == nil {
		return r.skip("no_shipping"), nil
	}
	return StageShipmentDeduped, nil
}

// dedupeShipment guards against re-notifying the same shipment when the
// marketplace sends repeated order events.
func (p *Pipeline) dedupeShipment(ctx context.Context, r *run) (Stage, error) {
	shippingID := r.order.Shipping.ID
	payload, err := json.Marshal(map[string]any{
		"shippingId": shippingID,
		"buyer":      r.order.Buyer,
	})
	if err != nil {
		return StageDone, err
	}

	key := "shipment#" + strconv.FormatInt(shippingID, 10)
	first, err := p.dedup.SaveIfNotExists(ctx, key, payload)
	if err != nil {
		return StageDone, err
	}
	if !first {
		return r.skip("shipment_already_handled"), nil
	}
	return StageShipmentFetched, nil
}

func (p *Pipeline) fetchShipment(ctx context.Context, r *run) (Stage, error) {
	shipment, err := p.api.GetShipment(ctx, r.order.Shipping.ID)
	if err != nil {
		return StageDone, err
	}
	r.shipment = shipment

	if !eligibleStatuses[shipment.Status] {
		p.logger.Info("shipment status not eligible", "shipment_id", shipment.ID, "status", shipment.Status)
		return r.skip("status_not_eligible"), nil
	}
	return StageNotified, nil
}

// notify sends the message, then the cropped label. An empty label download
// skips the document with a warning instead of failing the event.
func (p *Pipeline) notify(ctx context.Context, r *run) (Stage, error) {
	text := message.Compose(r.order, r.shipment)
	if err := p.notifier.SendMessage(ctx, text); err != nil {
		return StageDone, err
	}
	metrics.ShipmentsNotifiedTotal.Inc()

	raw, err := p.api.DownloadLabel(ctx, r.shipment.ID)
	if err != nil {
		if fault.IsEmptyDocument(err) {
			p.logger.Warn("label document is empty, skipping", "shipment_id", r.shipment.ID)
			return StageDone, nil
		}
		return StageDone, err
	}

	cropped, err := p.crop(raw)
	if err != nil {
		return StageDone, err
	}

	doc := telegram.Document{
		Bytes:    cropped,
		Filename: fmt.Sprintf("etiqueta-%d.pdf", r.shipment.ID),
		Caption:  "Etiqueta de envío",
	}
	if err := p.notifier.SendDocument(ctx, doc); err != nil {
		return StageDone, err
	}
	return StageDone, nil
}
