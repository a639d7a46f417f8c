// Package assistant wires a browser session to the command pipeline: page
// bridge, overlay controller, narrator, voice listener and orchestrator. Front
// ends (the TUI, the line-mode CLI and the headless runner) drive an Assistant
// instead of assembling the pieces themselves.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/entrhq/beacon/pkg/bridge"
	"github.com/entrhq/beacon/pkg/browser"
	"github.com/entrhq/beacon/pkg/config"
	"github.com/entrhq/beacon/pkg/logging"
	"github.com/entrhq/beacon/pkg/orchestrator"
	"github.com/entrhq/beacon/pkg/overlay"
	"github.com/entrhq/beacon/pkg/speech"
	"github.com/entrhq/beacon/pkg/types"
	"github.com/entrhq/beacon/pkg/voice"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("assistant")
	if err != nil {
		// Logger fell back to stderr due to initialization failure
		debugLog.Warnf("Failed to initialize assistant logger, using stderr fallback: %v", err)
	}
}

// SessionName is the browser session every assistant opens.
const SessionName = "beacon"

// Options configures Start.
type Options struct {
	// ConfigPath is the settings file. Empty means config.DefaultPath.
	ConfigPath string

	// Provider overrides the language-model settings from the config file.
	Provider config.ProviderFlags

	// Session configures the browser.
	Session browser.SessionOptions

	// StartURL is opened once everything is wired. Optional.
	StartURL string

	// OnEvent receives every orchestrator event and voice failure.
	OnEvent func(*types.Event)
}

type featureTarget interface {
	SetFeatures(f orchestrator.Features)
}

type voiceOutput interface {
	SetOptions(o speech.Options)
	Stop(ctx context.Context)
}

type voiceInput interface {
	Start(ctx context.Context, lang string) error
	Stop(ctx context.Context) error
	Listening() bool
	Wait()
}

type sessionHost interface {
	CloseSession(name string) error
	Shutdown() error
}

// Assistant owns one browser session and everything that acts on it.
type Assistant struct {
	ctx    context.Context
	cancel context.CancelFunc
	served chan struct{}

	manager sessionHost
	session *browser.Session
	orch    *orchestrator.Orchestrator

	runner   featureTarget
	narrator voiceOutput
	listener voiceInput

	cfg      *config.Manager
	features *config.FeaturesSection
	speech   *config.SpeechSection
	onEvent  func(*types.Event)

	mu sync.Mutex
}

// Start loads settings, launches the browser and wires the pipeline. The
// returned Assistant must be closed.
func Start(ctx context.Context, opts Options) (*Assistant, error) {
	if !config.IsInitialized() {
		if err := config.Initialize(opts.ConfigPath); err != nil {
			return nil, fmt.Errorf("failed to initialize configuration: %w", err)
		}
	}

	provider, err := config.BuildProvider(ctx, opts.Provider)
	if err != nil {
		return nil, err
	}

	manager := browser.NewSessionManager()
	if err := manager.Initialize(); err != nil {
		return nil, err
	}
	session, err := manager.StartSession(SessionName, opts.Session)
	if err != nil {
		_ = manager.Shutdown()
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	a := &Assistant{
		ctx:      runCtx,
		cancel:   cancel,
		served:   make(chan struct{}),
		manager:  manager,
		session:  session,
		cfg:      config.Global(),
		features: config.GetFeatures(),
		speech:   config.GetSpeech(),
		onEvent:  opts.OnEvent,
	}

	port := bridge.NewPort()
	handler := bridge.NewPageHandler(session, nil, overlay.NewController(session))
	go func() {
		defer close(a.served)
		if err := port.Serve(runCtx, handler); err != nil && !errors.Is(err, context.Canceled) {
			debugLog.Errorf("Page bridge stopped: %v", err)
		}
	}()

	// A nil *RemoteClient must not become a non-nil Synthesizer.
	var synth speech.Synthesizer
	remote, err := a.speech.Settings().RemoteClient()
	if err != nil {
		debugLog.Warnf("Remote voice unavailable, using browser speech: %v", err)
	} else if remote != nil {
		synth = remote
	}
	narrator := speech.NewNarrator(session.SpeechEngine(), synth, session.AudioPlayer())

	a.orch = orchestrator.New(provider, bridge.NewClient(port),
		orchestrator.WithTab(session),
		orchestrator.WithSpeaker(narrator),
		orchestrator.WithUsageRecorder(config.GetUsage()),
		orchestrator.WithEventHandler(a.emit),
	)
	a.runner = a.orch
	a.narrator = narrator
	a.listener = voice.NewListener(session.Recognizer(), a.orch.Submit,
		voice.WithErrorHandler(a.voiceFailed),
	)

	session.OnNavigated(func(url string) {
		if err := a.orch.OnNavigated(runCtx, url); err != nil {
			debugLog.Debugf("Auto-summary of %s failed: %v", url, err)
		}
	})

	if err := a.apply(a.features.Flags()); err != nil {
		debugLog.Warnf("Voice input unavailable at startup: %v", err)
	}

	if opts.StartURL != "" {
		if err := a.Open(ctx, opts.StartURL); err != nil {
			_ = a.Close(ctx)
			return nil, err
		}
	}

	debugLog.Infof("Assistant started with %s/%s", provider.GetModelInfo().Provider, provider.GetModel())
	return a, nil
}

// Orchestrator returns the command pipeline.
func (a *Assistant) Orchestrator() *orchestrator.Orchestrator {
	return a.orch
}

// Session returns the browser session.
func (a *Assistant) Session() *browser.Session {
	return a.session
}

// URL returns the address of the page commands run against.
func (a *Assistant) URL() string {
	if a.session == nil {
		return ""
	}
	return a.session.URL()
}

// Open loads url in the session's page.
func (a *Assistant) Open(ctx context.Context, url string) error {
	if a.session == nil {
		return orchestrator.ErrNoTab
	}
	return a.session.Navigate(ctx, url, browser.NavigateOptions{WaitUntil: "domcontentloaded"})
}

// Flags returns the current feature toggles.
func (a *Assistant) Flags() config.FeatureFlags {
	return a.features.Flags()
}

// Usage returns the usage counters.
func (a *Assistant) Usage() *config.UsageSection {
	return config.GetUsage()
}

// Toggle flips a feature, applies it to the running pipeline and persists it.
// Turning voice input on fails when the microphone cannot start; the toggle
// is reverted in that case.
func (a *Assistant) Toggle(name string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	on, err := a.features.Toggle(name)
	if err != nil {
		return false, err
	}
	if err := a.apply(a.features.Flags()); err != nil {
		_ = a.features.Set(name, !on)
		return !on, err
	}
	if a.cfg != nil {
		if err := a.cfg.SaveSection(config.SectionIDFeatures); err != nil {
			debugLog.Warnf("Failed to save feature toggles: %v", err)
		}
	}
	debugLog.Infof("Feature %s set to %t", name, on)
	return on, nil
}

// apply pushes flags to the orchestrator, narrator and listener.
func (a *Assistant) apply(f config.FeatureFlags) error {
	a.runner.SetFeatures(orchestrator.Features{
		VoiceOutput:   f.VoiceOutput,
		VisualArrows:  f.VisualArrows,
		AutoSummarize: f.AutoSummarize,
	})

	settings := a.speech.Settings()
	a.narrator.SetOptions(settings.NarratorOptions(f.CustomTTS))
	if !f.VoiceOutput {
		a.narrator.Stop(a.ctx)
	}

	switch {
	case f.VoiceInput && !a.listener.Listening():
		if err := a.listener.Start(a.ctx, settings.Lang); err != nil {
			return fmt.Errorf("failed to start voice input: %w", err)
		}
	case !f.VoiceInput && a.listener.Listening():
		if err := a.listener.Stop(a.ctx); err != nil {
			debugLog.Warnf("Failed to stop voice input: %v", err)
		}
	}
	return nil
}

func (a *Assistant) emit(event *types.Event) {
	if a.onEvent != nil {
		a.onEvent(event)
	}
}

func (a *Assistant) voiceFailed(err *voice.RecognitionError) {
	debugLog.Warnf("Voice input failed: %v", err)
	a.emit(types.NewErrorEvent("", err.Remediation, err))
	// Failures arrive from page callbacks, and a Toggle holding a.mu may be
	// waiting on that same page.
	go a.voiceStopped()
}

// voiceStopped turns the voice input flag off after the listener gave up.
func (a *Assistant) voiceStopped() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.features.Flags().VoiceInput || a.listener.Listening() {
		return
	}
	if err := a.features.Set(config.FeatureVoiceInput, false); err != nil {
		debugLog.Warnf("Failed to clear voice input flag: %v", err)
		return
	}
	if a.cfg != nil {
		if err := a.cfg.SaveSection(config.SectionIDFeatures); err != nil {
			debugLog.Warnf("Failed to save feature toggles: %v", err)
		}
	}
}

// Close stops voice, waits for narration, saves usage and shuts the browser.
func (a *Assistant) Close(ctx context.Context) error {
	var errs []error
	if a.listener != nil {
		if a.listener.Listening() {
			if err := a.listener.Stop(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		a.listener.Wait()
	}
	if a.narrator != nil {
		a.narrator.Stop(ctx)
	}
	if a.orch != nil {
		a.orch.Wait()
	}
	if a.cfg != nil {
		if err := a.cfg.SaveSection(config.SectionIDUsage); err != nil {
			errs = append(errs, err)
		}
	}
	if a.cancel != nil {
		a.cancel()
		<-a.served
	}
	if a.manager != nil {
		if err := a.manager.CloseSession(SessionName); err != nil {
			errs = append(errs, err)
		}
		if err := a.manager.Shutdown(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
