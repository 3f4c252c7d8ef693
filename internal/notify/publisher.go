package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go"
	"google.golang.org/protobuf/proto"

	"github.com/antonkrylov/mossctl/internal/history"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// Publisher mirrors finished submissions into a JetStream stream so other
// services can pick up report URLs.
type Publisher struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	opts   Options
	logger *slog.Logger
}

func Connect(ctx context.Context, opts Options) (*Publisher, error) {
	opts.setDefaults()
	logger := opts.Logger
	if logger == nil {
		logger = discardLogger
	}
	url := opts.URL
	if url == "" {
		url = nats.DefaultURL
	}
	natsOpts := []nats.Option{nats.Name("mossctl")}
	if opts.User != "" {
		natsOpts = append(natsOpts, nats.UserInfo(opts.User, opts.Password))
	}
	conn, err := nats.Connect(url, natsOpts...)
	if err != nil {
		return nil, err
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, err
	}
	p := &Publisher{conn: conn, js: js, opts: opts, logger: logger}
	if err := p.ensureStream(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return p, nil
}

func (p *Publisher) Close() {
	if p.conn != nil {
		_ = p.conn.Drain()
		p.conn.Close()
	}
}

func (p *Publisher) ensureStream(ctx context.Context) error {
	cfg := &nats.StreamConfig{
		Name:       p.opts.Stream,
		Subjects:   []string{p.opts.SubjectPrefix + ".reports.>"},
		Storage:    nats.FileStorage,
		Retention:  nats.LimitsPolicy,
		MaxMsgs:    -1,
		MaxBytes:   p.opts.MaxBytes,
		Discard:    nats.DiscardOld,
		Duplicates: p.opts.DupeWindow,
	}
	if _, err := p.js.StreamInfo(cfg.Name, nats.Context(ctx)); err != nil {
		if errors.Is(err, nats.ErrStreamNotFound) {
			_, addErr := p.js.AddStream(cfg, nats.Context(ctx))
			return addErr
		}
		return err
	}
	_, err := p.js.UpdateStream(cfg, nats.Context(ctx))
	return err
}

// Publish sends rec as a protobuf Struct. The record id doubles as the
// JetStream message id so retries are deduplicated.
func (p *Publisher) Publish(ctx context.Context, rec *history.Record) error {
	if rec == nil {
		return nil
	}
	s, err := rec.Struct()
	if err != nil {
		return err
	}
	payload, err := proto.Marshal(s)
	if err != nil {
		return err
	}
	subject := Subject(p.opts.SubjectPrefix, rec)
	if _, err := p.js.Publish(subject, payload, nats.MsgId("report:"+rec.ID), nats.Context(ctx)); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	p.logger.Debug("report event published", "subject", subject, "submission", rec.ID)
	return nil
}

// Subject is "<prefix>.reports.<outcome>.<language>".
func Subject(prefix string, rec *history.Record) string {
	outcome := "failed"
	if rec.Succeeded() {
		outcome = "ready"
	}
	lang := strings.TrimSpace(rec.Language)
	if lang == "" {
		lang = "unknown"
	}
	return fmt.Sprintf("%s.reports.%s.%s", prefix, outcome, lang)
}
