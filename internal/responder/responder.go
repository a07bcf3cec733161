// Package responder turns one user message into one reply. It reads the
// caller's session, runs the special-case handlers and the intent
// classifier on each fragment of the message, then writes the outcome back
// to the session store.
package responder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/flemzord/parlo/internal/intent"
	"github.com/flemzord/parlo/internal/session"
	"github.com/flemzord/parlo/internal/transcript"
)

// DefaultMaxMessageLength bounds a message, counted in runes.
const DefaultMaxMessageLength = 1000

// tracerName is the instrumentation scope of responder spans.
const tracerName = "github.com/flemzord/parlo/internal/responder"

const nameQuestion = "Au fait, comment vous appelez-vous ?"

var (
	// ErrEmptyMessage is returned for a blank message.
	ErrEmptyMessage = errors.New("responder: message is empty")
	// ErrMessageTooLong is returned when a message exceeds the length limit.
	ErrMessageTooLong = errors.New("responder: message is too long")
)

// Store is the subset of session.Store the responder uses.
type Store interface {
	Create() (string, error)
	Resolve(id string) (session.Session, session.Origin)
	Update(id string, fields session.Fields) bool
	AddHistory(id, userMessage, botResponse, intent string) bool
}

// Classifier maps message fragments to intents and canned responses.
type Classifier interface {
	Classify(text, lastIntent string) intent.Result
	Respond(tag string) string
}

// Archive receives a copy of every exchange.
type Archive interface {
	Append(ctx context.Context, rec transcript.Record) error
}

// Recorder receives reply and session metrics.
type Recorder interface {
	ObserveReply(intent string, elapsed time.Duration)
	ObserveError(reason string)
	ObserveSession(origin session.Origin)
}

// Request is one inbound chat message.
type Request struct {
	// SessionID selects the conversation; empty starts a new one.
	SessionID string
	Message   string
	// Name, when set, is stored as the user's name before replying.
	Name string
}

// Reply is the outcome of Reply.
type Reply struct {
	SessionID string         `json:"session_id"`
	Text      string         `json:"response"`
	Intent    string         `json:"intent"`
	Email     string         `json:"email,omitempty"`
	Origin    session.Origin `json:"-"`
}

// Option configures a Responder.
type Option func(*Responder)

// WithArchive copies every exchange to a.
func WithArchive(a Archive) Option { return func(r *Responder) { r.archive = a } }

// WithRecorder reports metrics to rec.
func WithRecorder(rec Recorder) Option { return func(r *Responder) { r.metrics = rec } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Responder) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithTracer replaces the tracer obtained from the global provider.
func WithTracer(t trace.Tracer) Option { return func(r *Responder) { r.tracer = t } }

// WithMaxMessageLength sets the message limit in runes. Zero disables it.
func WithMaxMessageLength(n int) Option { return func(r *Responder) { r.maxLength = n } }

// WithClock replaces time.Now. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Responder) {
		if now != nil {
			r.now = now
		}
	}
}

// WithPicker replaces the random choice of farewell suffixes. Intended for tests.
func WithPicker(pick func(n int) int) Option {
	return func(r *Responder) {
		if pick != nil {
			r.pick = pick
		}
	}
}

// Responder composes replies. It holds no per-request state and is safe for
// concurrent use.
type Responder struct {
	store      Store
	classifier Classifier
	archive    Archive
	metrics    Recorder
	logger     *slog.Logger
	tracer     trace.Tracer
	maxLength  int
	now        func() time.Time
	pick       func(n int) int
}

// New creates a Responder.
func New(store Store, classifier Classifier, opts ...Option) *Responder {
	r := &Responder{
		store:      store,
		classifier: classifier,
		logger:     slog.Default(),
		tracer:     otel.Tracer(tracerName),
		maxLength:  DefaultMaxMessageLength,
		now:        time.Now,
		pick:       rand.IntN,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Validate checks a message against the emptiness and length limits.
func (r *Responder) Validate(msg string) error {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return ErrEmptyMessage
	}
	if r.maxLength > 0 && utf8.RuneCountInString(msg) > r.maxLength {
		return fmt.Errorf("%w: %d runes, limit %d", ErrMessageTooLong, utf8.RuneCountInString(msg), r.maxLength)
	}
	return nil
}

// Reply answers req and records the exchange in the caller's session.
func (r *Responder) Reply(ctx context.Context, req Request) (Reply, error) {
	start := r.now()

	if err := r.Validate(req.Message); err != nil {
		r.observeError(err)
		return Reply{}, err
	}
	msg := strings.TrimSpace(req.Message)

	ctx, span := r.tracer.Start(ctx, "responder.reply")
	defer span.End()

	id := req.SessionID
	created := false
	if id == "" {
		var err error
		if id, err = r.store.Create(); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return Reply{}, fmt.Errorf("responder: %w", err)
		}
		created = true
	}

	sess, origin := r.store.Resolve(id)
	if created {
		origin = session.OriginCreated
	}
	if r.metrics != nil {
		r.metrics.ObserveSession(origin)
	}
	if origin != session.OriginLive {
		r.logger.Debug("responder: new session state", "session", id, "origin", origin)
	}

	t := turn{sess: sess, fields: session.Fields{}, now: start}
	if name := strings.TrimSpace(req.Name); name != "" {
		t.setName(name)
	}

	r.compose(&t, msg)

	if len(t.fields) > 0 {
		r.store.Update(id, t.fields)
	}
	r.store.AddHistory(id, msg, t.text, t.tag)

	if r.archive != nil {
		rec := transcript.Record{
			SessionID:   id,
			UserMessage: msg,
			BotResponse: t.text,
			Intent:      t.tag,
			CreatedAt:   start,
		}
		if err := r.archive.Append(ctx, rec); err != nil {
			r.logger.Warn("responder: archiving exchange failed", "session", id, "error", err)
		}
	}

	if r.metrics != nil {
		r.metrics.ObserveReply(t.tag, r.now().Sub(start))
	}
	span.SetAttributes(
		attribute.String("parlo.intent", t.tag),
		attribute.String("parlo.session.origin", origin.String()),
		attribute.Int("parlo.fragments", t.fragments),
	)

	return Reply{
		SessionID: id,
		Text:      t.text,
		Intent:    t.tag,
		Email:     t.email(),
		Origin:    origin,
	}, nil
}

func (r *Responder) observeError(err error) {
	if r.metrics == nil {
		return
	}
	switch {
	case errors.Is(err, ErrEmptyMessage):
		r.metrics.ObserveError("empty_message")
	case errors.Is(err, ErrMessageTooLong):
		r.metrics.ObserveError("message_too_long")
	}
}

// turn accumulates the effects of one message before they are persisted.
type turn struct {
	sess      session.Session
	fields    session.Fields
	now       time.Time
	text      string
	tag       string
	fragments int
}

func (t *turn) setName(name string) {
	t.sess.UserName = name
	t.fields[session.FieldUserName] = name
}

func (t *turn) email() string {
	if v, ok := t.fields[session.FieldEmail].(string); ok {
		return v
	}
	return t.sess.Email
}

// compose fills t.text and t.tag. Whole-message handlers (e-mail and name)
// short-circuit; otherwise every fragment is answered in turn.
func (r *Responder) compose(t *turn, msg string) {
	if email, ok := captureEmail(msg); ok {
		t.fields[session.FieldEmail] = email
		t.text = "Merci, j’ai bien enregistré votre email : " + email
		t.tag = TagEmailCapture
		return
	}

	if matches(emailRecall, msg) {
		if t.sess.Email != "" {
			t.text = "Votre email est : " + t.sess.Email
		} else {
			t.text = "Je n'ai pas encore votre email. Vous pouvez me le donner 😊"
		}
		t.tag = TagEmailRecall
		return
	}

	if matches(nameRecall, msg) {
		if t.sess.UserName != "" {
			t.text = fmt.Sprintf("Vous vous appelez %s 😊", t.sess.UserName)
		} else {
			t.text = "Je ne connais pas encore votre nom. Comment vous appelez-vous ?"
			t.fields[session.FieldNameAsked] = true
		}
		t.tag = TagNameRecall
		return
	}

	if name, ok := captureName(msg); ok {
		t.setName(name)
		t.text = fmt.Sprintf("Enchanté, %s ! Comment puis-je vous aider ?", name)
		t.tag = TagNameCapture
		return
	}

	lastIntent := t.sess.LastIntent
	var replies []string
	for _, fragment := range splitFragments(msg) {
		t.fragments++
		reply, tag := r.answer(t, fragment, &lastIntent)
		replies = append(replies, reply)
		t.tag = tag
	}

	if len(replies) == 0 {
		// Only separators, e.g. "?!".
		replies = append(replies, r.classifier.Respond(intent.TagUnknown))
		t.tag = intent.TagUnknown
	}
	if lastIntent != t.sess.LastIntent {
		t.fields[session.FieldLastIntent] = lastIntent
	}
	t.text = strings.Join(replies, " ")
}

// answer replies to one fragment: date/time, farewell, arithmetic, then the
// classifier. lastIntent carries classifier context across fragments.
func (r *Responder) answer(t *turn, fragment string, lastIntent *string) (string, string) {
	if reply, ok := dateTimeReply(fragment, t.now); ok {
		return reply, TagDateTime
	}
	if reply, ok := goodbyeReply(fragment, t.now, r.pick); ok {
		return reply, TagGoodbye
	}
	if reply, ok := calculate(fragment); ok {
		return reply, TagCalculation
	}

	res := r.classifier.Classify(fragment, *lastIntent)
	if res.Source != intent.SourceFallback {
		*lastIntent = res.Tag
	}
	reply := r.classifier.Respond(res.Tag)

	if res.Tag == intent.TagSalutation {
		switch {
		case t.sess.UserName != "":
			reply = fmt.Sprintf("Bonjour %s ! Ravi de vous revoir. Comment puis-je vous aider ?", t.sess.UserName)
		case !t.sess.NameAsked:
			reply += " " + nameQuestion
			t.sess.NameAsked = true
			t.fields[session.FieldNameAsked] = true
		}
	}

	r.logger.Debug("responder: classified fragment",
		"intent", res.Tag,
		"source", res.Source,
		"confidence", res.Confidence,
	)
	return reply, res.Tag
}
