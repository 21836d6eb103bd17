// Package worker handles report requests delivered over AMQP.
package worker

import (
	"context"
	"fmt"
	"time"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/ports"
	"bilancio/internal/report"
)

const defaultMessageTimeout = 30 * time.Second

// ReportGenerator is the part of report.Generator the worker drives.
type ReportGenerator interface {
	Generate(ctx context.Context, user core.UserID, req report.Request) (core.Report, error)
}

// EventPublisher announces generated reports.
type EventPublisher interface {
	PublishReportGenerated(ctx context.Context, routingKey string, msg *amqp.ReportGeneratedMessage) error
}

// ReportWorker generates the requested report, optionally exports it and
// publishes a ReportGeneratedMessage.
type ReportWorker struct {
	generator  ReportGenerator
	exporter   ports.ReportExporter
	events     EventPublisher
	routingKey string
	timeout    time.Duration
	logger     *log.Logger
}

type Option func(*ReportWorker)

// WithExporter copies every generated report to e.
func WithExporter(e ports.ReportExporter) Option {
	return func(w *ReportWorker) { w.exporter = e }
}

// WithEvents publishes a generated event on routingKey after each report.
func WithEvents(p EventPublisher, routingKey string) Option {
	return func(w *ReportWorker) {
		w.events = p
		w.routingKey = routingKey
	}
}

// WithTimeout bounds the handling of a single message.
func WithTimeout(d time.Duration) Option {
	return func(w *ReportWorker) {
		if d > 0 {
			w.timeout = d
		}
	}
}

func NewReportWorker(generator ReportGenerator, logger *log.Logger, opts ...Option) *ReportWorker {
	if logger == nil {
		logger = log.Discard()
	}
	w := &ReportWorker{
		generator: generator,
		timeout:   defaultMessageTimeout,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// HandleReportRequest processes a single report request from AMQP.
// Malformed requests are wrapped in amqp.ErrPermanent so they are not retried.
func (w *ReportWorker) HandleReportRequest(ctx context.Context, msg *amqp.ReportRequestMessage) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	logger := w.logger.ForUser(msg.UserID).With(log.FieldRequestID, msg.RequestID)

	req, err := report.ParseRequest(msg.Type, msg.Year, msg.Month, msg.StartDate, msg.EndDate)
	if err != nil {
		return fmt.Errorf("%w: %w", amqp.ErrPermanent, err)
	}

	r, err := w.generator.Generate(ctx, core.UserID(msg.UserID), req)
	if err != nil {
		if report.IsRequestError(err) {
			return fmt.Errorf("%w: %w", amqp.ErrPermanent, err)
		}
		return fmt.Errorf("generate report: %w", err)
	}

	event := &amqp.ReportGeneratedMessage{
		RequestID: msg.RequestID,
		ReportID:  r.ID.String(),
		UserID:    int64(r.UserID),
		StartDate: r.StartDate.String(),
		EndDate:   r.EndDate.String(),
		Timestamp: time.Now().UTC(),
	}

	if w.exporter != nil {
		ref, err := w.exporter.Export(ctx, r)
		if err != nil {
			// the report is stored; a failed copy is not worth a redelivery
			logger.ErrorContext(ctx, "Failed to export report",
				log.FieldReportID, event.ReportID,
				log.FieldError, err.Error())
		} else {
			event.ExportRef = ref
			logger.InfoContext(ctx, "Exported report",
				log.FieldReportID, event.ReportID, log.FieldExportRef, ref)
		}
	}

	if w.events != nil {
		if err := w.events.PublishReportGenerated(ctx, w.routingKey, event); err != nil {
			return fmt.Errorf("publish report event: %w", err)
		}
	}

	logger.InfoContext(ctx, "Report request handled",
		log.FieldReportID, event.ReportID,
		log.FieldStartDate, event.StartDate,
		log.FieldEndDate, event.EndDate)
	return nil
}
