package output

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/certtools/intelmq-elastic-output/pkg/output/build"
	"github.com/certtools/intelmq-elastic-output/pkg/output/elastic"
	"github.com/certtools/intelmq-elastic-output/pkg/output/log"
	"github.com/certtools/intelmq-elastic-output/pkg/output/metrics"
	"github.com/certtools/intelmq-elastic-output/pkg/output/model"
	"github.com/certtools/intelmq-elastic-output/pkg/output/queue"
	"github.com/certtools/intelmq-elastic-output/pkg/output/transform"
)

type (
	BotOpt func(b *Bot) error
)

// Store is the document-store write surface the bot submits to.
// Implemented by elastic.Client.
type Store interface {
	IndexDocument(ctx context.Context, index string, id string, doc model.Event) error
	IndexExists(ctx context.Context, name string) (bool, error)
	CreateIndex(ctx context.Context, name string) error
	TemplateExists(ctx context.Context, name string) (bool, error)
}

// Receiver is the upstream transport the bot reads events from.
// Implemented by queue.Consumer. A payload stays in flight until it is
// acked, rejected, or dead-lettered.
type Receiver interface {
	Recover(ctx context.Context) error
	Receive(ctx context.Context) ([]byte, error)
	Ack(ctx context.Context, payload []byte) error
	Reject(ctx context.Context, payload []byte) error
	DeadLetter(ctx context.Context, payload []byte) error
	HasDeadLetter() bool
	Close() error
}

// Bot is the output orchestrator: it receives one event at a time,
// flattens the configured fields, sanitizes field names, resolves the
// destination index, and submits the document. An event is acked only
// after a successful write.
type Bot struct {
	Name            string
	BuildInfo       build.BuildInfo
	Logger          *logrus.Logger
	DryRun          bool
	store           Store
	receiver        Receiver
	baseIndex       string
	rotateIndex     bool
	keyChar         string
	replacementChar string
	flattenFields   []string
}

func NewBot(name string, logger *logrus.Logger, dryRun bool, botOpts ...BotOpt) (*Bot, error) {
	b := &Bot{
		Name:            name,
		BuildInfo:       build.GetBuildInfo(),
		Logger:          logger,
		DryRun:          dryRun,
		baseIndex:       DEFAULT_ELASTIC_INDEX,
		keyChar:         DEFAULT_KEY_CHAR,
		replacementChar: DEFAULT_REPLACEMENT_CHAR,
		flattenFields:   []string{"extra"},
	}

	for _, opt := range botOpts {
		err := opt(b)
		if err != nil {
			return nil, err
		}
	}

	if b.store == nil {
		return nil, errors.New("no store configured")
	}

	if b.receiver == nil {
		return nil, errors.New("no receiver configured")
	}

	return b, nil
}

func WithStore(store Store) BotOpt {
	return func(b *Bot) error {
		b.store = store
		return nil
	}
}

func WithReceiver(receiver Receiver) BotOpt {
	return func(b *Bot) error {
		b.receiver = receiver
		return nil
	}
}

func WithIndex(baseIndex string, rotate bool) BotOpt {
	return func(b *Bot) error {
		if baseIndex == "" {
			return errors.New("base index must not be empty")
		}

		b.baseIndex = baseIndex
		b.rotateIndex = rotate
		return nil
	}
}

func WithSanitizer(keyChar string, replacementChar string) BotOpt {
	return func(b *Bot) error {
		if keyChar == "" || replacementChar == "" {
			return errors.New("key and replacement characters must not be empty")
		}

		b.keyChar = keyChar
		b.replacementChar = replacementChar
		return nil
	}
}

func WithFlattenFields(fields []string) BotOpt {
	return func(b *Bot) error {
		b.flattenFields = fields
		return nil
	}
}

// Run verifies the destination, recovers any staged messages, and then
// processes events until the context is canceled. Each event is
// processed to completion before the next is read.
func (b *Bot) Run(ctx context.Context) error {
	err := b.verifyDestination(ctx)
	if err != nil {
		return err
	}

	err = b.receiver.Recover(ctx)
	if err != nil {
		return err
	}

	log.Infof("%s started, writing to index %s (rotate: %t)", b.Name, b.baseIndex, b.rotateIndex)

	for {
		payload, err := b.receiver.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			if errors.Is(err, queue.ErrNoMessage) {
				continue
			}

			return err
		}

		b.processOne(ctx, payload)
	}
}

// verifyDestination fails fast on configuration errors: with rotation
// enabled an index template must already exist; without rotation the
// single index is created if missing.
func (b *Bot) verifyDestination(ctx context.Context) error {
	if b.rotateIndex {
		exists, err := b.store.TemplateExists(ctx, b.baseIndex)
		if err != nil {
			return err
		}

		if !exists {
			return fmt.Errorf(
				"no template with the name %q exists on the Elasticsearch host, "+
					"but rotateIndex is set. Have you created the template?",
				b.baseIndex,
			)
		}

		return nil
	}

	exists, err := b.store.IndexExists(ctx, b.baseIndex)
	if err != nil {
		return err
	}

	if !exists {
		log.Infof("index %s does not exist, creating it", b.baseIndex)
		return b.store.CreateIndex(ctx, b.baseIndex)
	}

	return nil
}

func (b *Bot) processOne(ctx context.Context, payload []byte) {
	metrics.EventsReceived.Inc()

	event, err := model.Decode(payload)
	if err != nil {
		b.handleUndecodable(ctx, payload, err)
		return
	}

	doc := transform.Flatten(event, b.flattenFields)
	doc = transform.SanitizeEvent(doc, b.keyChar, b.replacementChar)

	index := elastic.ResolveIndex(doc, b.baseIndex, b.rotateIndex, elastic.CurrentDate())

	if b.DryRun {
		log.Infof("dry run: would index into %s:", index)
		log.PrettyPrintJson(doc)
		b.ack(ctx, payload)
		return
	}

	start := time.Now()
	err = b.store.IndexDocument(ctx, index, uuid.NewString(), doc)
	metrics.IndexDuration.Observe(float64(time.Since(start).Milliseconds()))

	if err != nil {
		log.Errorf("submission to %s failed, event will be redelivered: %v", index, err)
		metrics.EventsRejected.Inc()

		err = b.receiver.Reject(ctx, payload)
		if err != nil {
			log.Errorf("reject failed: %v", err)
		}
		return
	}

	metrics.EventsIndexed.Inc()
	b.ack(ctx, payload)
}

// handleUndecodable routes frames that are not valid JSON. Redelivering
// such a frame can never succeed, so it goes to the dead-letter queue
// when one is configured; otherwise it is rejected like any failure.
func (b *Bot) handleUndecodable(ctx context.Context, payload []byte, cause error) {
	log.Errorf("undecodable event frame: %v", cause)

	if b.receiver.HasDeadLetter() {
		err := b.receiver.DeadLetter(ctx, payload)
		if err != nil {
			log.Errorf("dead-letter failed: %v", err)
			return
		}

		metrics.EventsDeadLettered.Inc()
		return
	}

	metrics.EventsRejected.Inc()

	err := b.receiver.Reject(ctx, payload)
	if err != nil {
		log.Errorf("reject failed: %v", err)
	}
}

func (b *Bot) ack(ctx context.Context, payload []byte) {
	err := b.receiver.Ack(ctx, payload)
	if err != nil {
		log.Errorf("acknowledge failed: %v", err)
	}
}

func (b *Bot) Shutdown(ctx context.Context) {
	log.Debugf("shutting down")

	err := b.receiver.Close()
	if err != nil {
		log.Warnf("error closing queue connection: %v", err)
	}
}
