package enrollment

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

// TemplateStore persists an enrolled template, overwriting any previous one
type TemplateStore interface {
	Save(ctx context.Context, userID string, t domain.BiometricTemplate) error
}

// EventRecorder appends to the security log
type EventRecorder interface {
	Record(ctx context.Context, userID string, typ domain.EventType, description string, details map[string]any) (domain.SecurityEvent, error)
}

// Config controls capture pacing
type Config struct {
	TickInterval  time.Duration
	VoiceDuration time.Duration
}

// DefaultConfig returns the default capture timing
func DefaultConfig() Config {
	return Config{
		TickInterval:  500 * time.Millisecond,
		VoiceDuration: 3 * time.Second,
	}
}

// Update is pushed to the caller on every state or feedback change
type Update struct {
	Method     domain.Method             `json:"method"`
	State      State                     `json:"state"`
	Message    string                    `json:"message"`
	Assessment *quality.Assessment       `json:"assessment,omitempty"`
	SoundLevel quality.SoundLevel        `json:"sound_level,omitempty"`
	Template   *domain.BiometricTemplate `json:"-"`
}

// Runner drives a Flow from live capture and saves the template
type Runner struct {
	extractor *extractor.Extractor
	gate      *quality.Gate
	templates TemplateStore
	events    EventRecorder
	config    Config
	logger    *slog.Logger
	now       func() time.Time
}

// NewRunner creates an enrollment runner
func NewRunner(ex *extractor.Extractor, gate *quality.Gate, templates TemplateStore, events EventRecorder, cfg Config, logger *slog.Logger) *Runner {
	return &Runner{
		extractor: ex,
		gate:      gate,
		templates: templates,
		events:    events,
		config:    cfg,
		logger:    logger.With("component", "enrollment"),
		now:       time.Now,
	}
}

// Run executes one enrollment. The media stream is released on every exit path.
func (r *Runner) Run(ctx context.Context, userID string, method domain.Method, capturer media.Capturer, notify func(Update)) (*domain.BiometricTemplate, error) {
	if notify == nil {
		notify = func(Update) {}
	}
	flow := NewFlow(method, r.now)
	notify(r.update(flow))

	switch method {
	case domain.MethodFace:
		return r.runFace(ctx, userID, flow, capturer, notify)
	case domain.MethodVoice:
		return r.runVoice(ctx, userID, flow, capturer, notify)
	}
	return nil, domain.ErrInvalidMethod
}

func (r *Runner) runFace(ctx context.Context, userID string, flow *Flow, capturer media.Capturer, notify func(Update)) (*domain.BiometricTemplate, error) {
	video, err := capturer.RequestVideo(ctx)
	if err != nil {
		return nil, r.acquireFailed(ctx, flow, err, notify)
	}
	lease := media.NewLease(video.Close)
	defer func() { _ = lease.Release() }()

	_ = flow.PermissionGranted()
	notify(r.update(flow))

	ticker := time.NewTicker(r.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flow.Cancel()
			notify(r.update(flow))
			return nil, ctx.Err()
		case <-ticker.C:
		}

		frame, _ := video.Frame()
		det, err := r.extractor.DetectFace(ctx, frame)
		if err != nil {
			r.logger.DebugContext(ctx, "face detection failed", "user_id", userID, "error", err)
			det = nil
		}

		a := r.gate.Assess(det)
		ready, _ := flow.Tick(a)
		u := r.update(flow)
		u.Assessment = &a
		notify(u)
		if !ready {
			continue
		}

		sample, err := r.extractor.Embed(ctx, det)
		var descriptor []float64
		if err != nil {
			r.logger.WarnContext(ctx, "enrollment capture failed", "user_id", userID, "error", err)
		} else {
			descriptor = sample.Descriptor
		}
		_ = flow.Captured(descriptor, err)

		if flow.State() == StateEnrolled {
			_ = lease.Release()
			return r.complete(ctx, userID, flow, notify)
		}
		notify(r.update(flow))
	}
}

func (r *Runner) runVoice(ctx context.Context, userID string, flow *Flow, capturer media.Capturer, notify func(Update)) (*domain.BiometricTemplate, error) {
	audio, err := capturer.RequestAudio(ctx)
	if err != nil {
		return nil, r.acquireFailed(ctx, flow, err, notify)
	}
	lease := media.NewLease(audio.Close)
	defer func() { _ = lease.Release() }()

	_ = flow.PermissionGranted()
	notify(r.update(flow))

	var tail []float64
	observe := func(chunk []float64) {
		tail = append(tail, chunk...)
		if len(tail) > 256 {
			tail = tail[len(tail)-256:]
		}
		level, _ := quality.Level(tail)
		u := r.update(flow)
		u.SoundLevel = level
		u.Message = level.Message()
		notify(u)
	}

	descriptor, err := r.extractor.ExtractVoice(ctx, audio.Samples(), audio.SampleRate(), r.config.VoiceDuration, observe)
	_ = lease.Release()

	if ctx.Err() != nil {
		flow.Cancel()
		notify(r.update(flow))
		return nil, ctx.Err()
	}

	_ = flow.Captured(descriptor, err)
	if flow.State() != StateEnrolled {
		r.logger.WarnContext(ctx, "voice enrollment failed", "user_id", userID, "error", err)
		notify(r.update(flow))
		return nil, err
	}

	return r.complete(ctx, userID, flow, notify)
}

func (r *Runner) acquireFailed(ctx context.Context, flow *Flow, err error, notify func(Update)) error {
	switch {
	case errors.Is(err, domain.ErrPermissionDenied):
		_ = flow.PermissionDenied()
	case ctx.Err() != nil:
		flow.Cancel()
		err = ctx.Err()
	default:
		flow.Fail("Could not start capture.")
		err = fmt.Errorf("request %s stream: %w", flow.Method(), err)
	}
	notify(r.update(flow))
	return err
}

func (r *Runner) complete(ctx context.Context, userID string, flow *Flow, notify func(Update)) (*domain.BiometricTemplate, error) {
	tmpl := flow.Template()

	if err := r.templates.Save(ctx, userID, *tmpl); err != nil {
		flow.Fail("Could not save your enrollment. Please try again.")
		notify(r.update(flow))
		return nil, fmt.Errorf("save template: %w", err)
	}

	description := fmt.Sprintf("User successfully enrolled their %s biometric.", flow.Method())
	if _, err := r.events.Record(ctx, userID, domain.EnrollmentEvent(flow.Method()), description, map[string]any{
		"method":            string(flow.Method()),
		"descriptor_length": len(tmpl.Descriptor),
	}); err != nil {
		r.logger.ErrorContext(ctx, "failed to record enrollment event", "user_id", userID, "error", err)
	}

	r.logger.InfoContext(ctx, "template enrolled",
		"user_id", userID,
		"method", flow.Method(),
		"descriptor_length", len(tmpl.Descriptor),
	)

	u := r.update(flow)
	u.Template = tmpl
	notify(u)
	return tmpl, nil
}

func (r *Runner) update(f *Flow) Update {
	return Update{Method: f.Method(), State: f.State(), Message: f.Message()}
}
