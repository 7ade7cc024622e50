package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/saturnino-fabrica-de-software/safishield/internal/domain"
	"github.com/saturnino-fabrica-de-software/safishield/internal/extractor"
	"github.com/saturnino-fabrica-de-software/safishield/internal/media"
	"github.com/saturnino-fabrica-de-software/safishield/internal/quality"
)

// TemplateSource loads the enrolled template for a modality; nil means not enrolled
type TemplateSource interface {
	Get(ctx context.Context, userID string, method domain.Method) (*domain.BiometricTemplate, error)
}

// SettingsSource is read once at session start
type SettingsSource interface {
	Get(ctx context.Context, userID string) (domain.Settings, error)
}

// EventRecorder appends to the security log
type EventRecorder interface {
	Record(ctx context.Context, userID string, typ domain.EventType, description string, details map[string]any) (domain.SecurityEvent, error)
}

// Config controls capture pacing and deadlines
type Config struct {
	TickInterval  time.Duration
	Timeout       time.Duration
	VoiceDuration time.Duration
	DisplayDelay  time.Duration
}

// DefaultConfig returns the default capture timing
func DefaultConfig() Config {
	return Config{
		TickInterval:  300 * time.Millisecond,
		Timeout:       8 * time.Second,
		VoiceDuration: 3 * time.Second,
		DisplayDelay:  3 * time.Second,
	}
}

// Request identifies what is being verified. Amount and Recipient are copied
// into the security event when set.
type Request struct {
	UserID    string
	Method    domain.Method
	Amount    float64
	Recipient string
}

// Update carries a Result plus transient voice feedback
type Update struct {
	Result
	SoundLevel quality.SoundLevel `json:"sound_level,omitempty"`
}

// Runner drives a Session from live capture
type Runner struct {
	extractor *extractor.Extractor
	gate      *quality.Gate
	templates TemplateSource
	settings  SettingsSource
	events    EventRecorder
	config    Config
	logger    *slog.Logger
	now       func() time.Time
}

// NewRunner creates a verification runner
func NewRunner(ex *extractor.Extractor, gate *quality.Gate, templates TemplateSource, settings SettingsSource, events EventRecorder, cfg Config, logger *slog.Logger) *Runner {
	return &Runner{
		extractor: ex,
		gate:      gate,
		templates: templates,
		settings:  settings,
		events:    events,
		config:    cfg,
		logger:    logger.With("component", "verification"),
		now:       time.Now,
	}
}

// Run executes one verification session to its terminal state, records the
// outcome and, after the display delay, returns the session to idle. A
// cancelled context abandons the session with no event and returns ctx.Err().
func (r *Runner) Run(ctx context.Context, req Request, capturer media.Capturer, notify func(Update)) (Result, error) {
	if notify == nil {
		notify = func(Update) {}
	}
	if !req.Method.Valid() {
		return Result{}, domain.ErrInvalidMethod
	}

	tmpl, err := r.templates.Get(ctx, req.UserID, req.Method)
	if err != nil {
		return Result{}, fmt.Errorf("load template: %w", err)
	}
	settings, err := r.settings.Get(ctx, req.UserID)
	if err != nil {
		return Result{}, fmt.Errorf("load settings: %w", err)
	}

	s := NewSession(req.Method, r.config.Timeout)
	if err := s.Begin(r.now(), tmpl, settings); err != nil {
		return Result{}, err
	}
	if s.Terminal() {
		return r.finish(ctx, req, s, notify), nil
	}
	notify(Update{Result: s.Result()})

	if req.Method == domain.MethodVoice {
		err = r.runVoice(ctx, s, capturer, notify)
	} else {
		err = r.runFace(ctx, req, s, capturer, notify)
	}
	if err != nil {
		s.Cancel()
		notify(Update{Result: s.Result()})
		return s.Result(), err
	}

	return r.finish(ctx, req, s, notify), nil
}

// acquire waits for media permission. The wait counts against the session
// deadline; running past it times the session out.
func (r *Runner) acquire(ctx context.Context, s *Session, request func(context.Context) error) (bool, error) {
	actx, cancel := context.WithDeadline(ctx, s.Deadline())
	defer cancel()

	err := request(actx)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrPermissionDenied):
		_ = s.PermissionDenied()
		return false, nil
	case ctx.Err() != nil:
		return false, ctx.Err()
	case actx.Err() != nil:
		s.Expire(s.Deadline())
		return false, nil
	}
	return false, fmt.Errorf("request %s stream: %w", s.Method(), err)
}

func (r *Runner) runFace(ctx context.Context, req Request, s *Session, capturer media.Capturer, notify func(Update)) error {
	var video media.VideoStream
	ok, err := r.acquire(ctx, s, func(ctx context.Context) error {
		var err error
		video, err = capturer.RequestVideo(ctx)
		return err
	})
	if !ok {
		return err
	}
	lease := media.NewLease(video.Close)
	defer func() { _ = lease.Release() }()

	// capture calls must not outlive the session
	tctx, cancel := context.WithDeadline(ctx, s.Deadline())
	defer cancel()

	ticker := time.NewTicker(r.config.TickInterval)
	defer ticker.Stop()
	timeout := time.NewTimer(time.Until(s.Deadline()))
	defer timeout.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timeout.C:
			s.Expire(s.Deadline())
			return nil
		case <-ticker.C:
		}

		sample := r.sample(tctx, req.UserID, video)
		if _, err := s.Tick(r.now(), sample); err != nil {
			return err
		}
		if s.Terminal() {
			return nil
		}
		notify(Update{Result: s.Result()})
	}
}

// sample runs one detection tick. Detection and embedding problems end up as
// "not ready" feedback, never as errors.
func (r *Runner) sample(ctx context.Context, userID string, video media.VideoStream) Sample {
	frame, _ := video.Frame()
	det, err := r.extractor.DetectFace(ctx, frame)
	if err != nil {
		r.logger.DebugContext(ctx, "face detection failed", "user_id", userID, "error", err)
		det = nil
	}

	sample := Sample{Assessment: r.gate.Assess(det)}
	if !sample.Assessment.Ready {
		return sample
	}

	fs, err := r.extractor.Embed(ctx, det)
	if err != nil {
		r.logger.DebugContext(ctx, "face embedding failed", "user_id", userID, "error", err)
		return sample
	}
	sample.Descriptor = fs.Descriptor
	return sample
}

func (r *Runner) runVoice(ctx context.Context, s *Session, capturer media.Capturer, notify func(Update)) error {
	var audio media.AudioStream
	ok, err := r.acquire(ctx, s, func(ctx context.Context) error {
		var err error
		audio, err = capturer.RequestAudio(ctx)
		return err
	})
	if !ok {
		return err
	}
	lease := media.NewLease(audio.Close)
	defer func() { _ = lease.Release() }()

	var tail []float64
	observe := func(chunk []float64) {
		tail = append(tail, chunk...)
		if len(tail) > 256 {
			tail = tail[len(tail)-256:]
		}
		level, _ := quality.Level(tail)
		notify(Update{Result: s.Result(), SoundLevel: level})
	}

	descriptor, err := r.extractor.ExtractVoice(ctx, audio.Samples(), audio.SampleRate(), r.config.VoiceDuration, observe)
	_ = lease.Release()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil && !errors.Is(err, domain.ErrNoSpeechDetected) {
		r.logger.WarnContext(ctx, "voice extraction failed", "error", err)
	}

	return s.CompleteVoice(descriptor, err)
}

// finish records the terminal event, holds the result for the display delay
// and resets the session.
func (r *Runner) finish(ctx context.Context, req Request, s *Session, notify func(Update)) Result {
	res := s.Result()
	success := res.State == StateSuccess

	details := map[string]any{}
	if req.Amount > 0 {
		details["amount"] = req.Amount
	}
	if req.Recipient != "" {
		details["recipient"] = req.Recipient
	}
	if res.Distance != nil {
		details["distance"] = *res.Distance
		details["match_confidence"] = res.MatchConfidence
	}
	if !success {
		details["reason"] = string(res.Reason)
	}

	if _, err := r.events.Record(ctx, req.UserID, domain.VerificationEvent(req.Method, success), describe(req, res), details); err != nil {
		r.logger.ErrorContext(ctx, "failed to record verification event", "user_id", req.UserID, "error", err)
	}

	r.logger.InfoContext(ctx, "verification finished",
		"user_id", req.UserID,
		"method", req.Method,
		"state", res.State,
		"reason", res.Reason,
	)

	notify(Update{Result: res})

	if r.config.DisplayDelay > 0 {
		t := time.NewTimer(r.config.DisplayDelay)
		select {
		case <-ctx.Done():
		case <-t.C:
		}
		t.Stop()
	}
	s.Reset()
	notify(Update{Result: s.Result()})

	return res
}

func describe(req Request, res Result) string {
	if res.State == StateSuccess {
		if req.Recipient != "" {
			return fmt.Sprintf("Transaction of KES %s to %s approved.", domain.FormatAmount(req.Amount), req.Recipient)
		}
		return fmt.Sprintf("%s verification successful.", titleMethod(req.Method))
	}
	return res.Message
}

func titleMethod(m domain.Method) string {
	if m == domain.MethodVoice {
		return "Voice"
	}
	return "Face"
}
