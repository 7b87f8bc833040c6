package provisioning

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/imamik/comfyprov/internal/config"
	"github.com/imamik/comfyprov/internal/platform/compute"
	"github.com/imamik/comfyprov/internal/platform/ssh"
	"github.com/imamik/comfyprov/internal/script"
	"github.com/imamik/comfyprov/internal/util/keygen"
	"github.com/imamik/comfyprov/internal/util/labels"
	"github.com/imamik/comfyprov/internal/util/naming"
	"github.com/imamik/comfyprov/internal/util/stream"
)

// Phase names used in events and metrics.
const (
	PhaseValidate = "validate"
	PhaseProvider = "provider"
	PhaseCreate   = "create"
	PhaseWait     = "wait"
	PhaseSetup    = "setup"
)

const (
	// RemotePrefix marks lines produced by the setup script.
	RemotePrefix = "[REMOTE] "
	// ErrorPrefix starts the line that ends a failed run.
	ErrorPrefix = "ERROR: "

	separator = "------------------------------------------------"

	// instancePorts exposes ComfyUI over the provider's HTTP proxy and SSH
	// over a public TCP mapping.
	instancePorts = "8188/http,22/tcp"

	// jupyterPassword is read by the RunPod PyTorch templates, which start
	// JupyterLab next to the setup.
	jupyterPassword = "runpod"
)

var errConsumerStopped = errors.New("consumer stopped reading")

// Orchestrator runs provisioning requests. It holds no per-run state, so one
// Orchestrator may serve concurrent runs against independent instances.
type Orchestrator struct {
	newProvider ProviderFactory
	newSession  SessionFactory
	observer    Observer
	metrics     *Metrics
	log         logr.Logger
	timeouts    *config.Timeouts
	generateKey func(comment string) (*keygen.KeyPair, error)
	now         func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithProviderFactory replaces the compute backend constructor.
func WithProviderFactory(f ProviderFactory) Option {
	return func(o *Orchestrator) {
		o.newProvider = f
	}
}

// WithSessionFactory replaces the SSH session constructor.
func WithSessionFactory(f SessionFactory) Option {
	return func(o *Orchestrator) {
		o.newSession = f
	}
}

// WithObserver sets the observer receiving phase events.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) {
		o.observer = obs
	}
}

// WithMetrics records runs into m.
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithLogger sets the debug logger handed to every component.
func WithLogger(log logr.Logger) Option {
	return func(o *Orchestrator) {
		o.log = log
	}
}

// WithTimeouts sets custom timeouts.
func WithTimeouts(t *config.Timeouts) Option {
	return func(o *Orchestrator) {
		o.timeouts = t
	}
}

// WithKeyGenerator replaces the ephemeral SSH key generator.
func WithKeyGenerator(fn func(comment string) (*keygen.KeyPair, error)) Option {
	return func(o *Orchestrator) {
		o.generateKey = fn
	}
}

// WithClock replaces time.Now, which seeds instance names and phase timings.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// New creates an Orchestrator. Without options it provisions through the
// backend named in each configuration, connects with x/crypto/ssh and logs
// events to the standard logger.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		newProvider: NewProvider,
		newSession:  NewSSHSession,
		observer:    NewConsoleObserver(nil),
		log:         logr.Discard(),
		generateKey: keygen.GenerateED25519KeyPair,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.timeouts == nil {
		o.timeouts = config.LoadTimeouts()
	}
	return o
}

// Run provisions one instance for cfg and yields progress lines. Nothing
// happens until the sequence is consumed, and it can be consumed once.
//
// cfg is copied before use. A run that fails yields a final line starting
// with ErrorPrefix. Instances are never terminated by Run, whatever the
// outcome.
func (o *Orchestrator) Run(ctx context.Context, cfg *config.ProvisioningConfig) iter.Seq[string] {
	return stream.Once(func(yield func(string) bool) {
		r := &run{o: o, yield: yield, observer: o.observer, provider: "unknown"}
		defer func() {
			if p := recover(); p != nil {
				if r.inYield {
					// The consumer's loop body panicked; it is not ours to handle.
					panic(p)
				}
				o.log.Error(fmt.Errorf("%v", p), "provisioning panicked")
				r.fail(fmt.Errorf("internal error: %v", p))
			}
			if r.stopped {
				r.finish(ResultAborted)
			}
		}()
		r.execute(ctx, cfg)
	})
}

// run is the state of one Run invocation.
type run struct {
	o        *Orchestrator
	yield    func(string) bool
	observer Observer

	provider   string
	instanceID string

	stopped  bool
	inYield  bool
	finished bool
}

func (r *run) execute(ctx context.Context, cfg *config.ProvisioningConfig) {
	if cfg == nil {
		r.invalid(errors.New("configuration is missing"))
		return
	}

	snapshot := cfg.Clone()
	snapshot.ApplyDefaults()
	r.provider = snapshot.Provider

	if err := snapshot.Validate(); err != nil {
		r.invalid(err)
		return
	}

	r.observer = r.observer.WithFields(map[string]string{"provider": snapshot.Provider})
	log := r.o.log.WithValues("provider", snapshot.Provider)

	setup := script.Synthesize(snapshot)
	log.V(1).Info("setup script synthesized", "sha256", script.Checksum(setup), "models", len(snapshot.Models))

	name := naming.Instance(snapshot.NamePrefix, r.o.now())
	var key *keygen.KeyPair
	if snapshot.SSH.ShouldInjectEphemeralKey() {
		var err error
		key, err = r.o.generateKey(naming.KeyComment(name))
		if err != nil {
			r.fail(fmt.Errorf("failed to generate SSH key: %w", err))
			return
		}
	}

	// Key files and known_hosts are read here so that a bad path is reported
	// before an instance is leased.
	session, err := r.o.newSession(r.sessionConfig(snapshot, key, log))
	if err != nil {
		r.invalid(fmt.Errorf("failed to prepare SSH session: %w", err))
		return
	}

	if !r.emit(fmt.Sprintf("Initializing %s provider...", ProviderDisplayName(snapshot.Provider))) {
		return
	}

	var provider compute.Provider
	err = r.phase(PhaseProvider, func() error {
		var err error
		provider, err = r.o.newProvider(snapshot, r.o.timeouts, log)
		return err
	})
	if err != nil {
		r.fail(fmt.Errorf("failed to initialize provider: %w", err))
		return
	}

	if !r.emit(fmt.Sprintf("Creating Pod (GPU: %s)...", snapshot.GPUTypeID)) {
		return
	}

	var inst *compute.Instance
	err = r.phase(PhaseCreate, func() error {
		var err error
		inst, err = provider.CreateInstance(ctx, createRequest(snapshot, name, key))
		return err
	})
	if err != nil {
		r.fail(err)
		return
	}
	r.instanceID = inst.ID
	LogResourceCreated(r.observer, PhaseCreate, "instance", name, inst.ID)
	log = log.WithValues("instance", inst.ID)

	if !r.emit(fmt.Sprintf("Pod created: %s", inst.ID)) {
		return
	}
	if !r.emit("Waiting for pod to start (this may take a few minutes)...") {
		return
	}

	onPoll := func(polled *compute.Instance) {
		r.observer.Printf("instance %s status %s", polled.ID, polled.DesiredStatus)
	}
	var ready *compute.Instance
	err = r.phase(PhaseWait, func() error {
		var err error
		ready, err = compute.WaitUntilReady(ctx, provider, inst.ID, compute.WaitOptions{
			Interval: r.o.timeouts.PollInterval,
			Timeout:  r.o.timeouts.InstanceReady,
			OnPoll:   onPoll,
			Logger:   log,
		})
		return err
	})
	if err != nil {
		r.fail(err)
		return
	}
	LogResourceReady(r.observer, PhaseWait, "instance", ready.ID, compute.StatusRunning)

	if !r.emit("Pod is RUNNING!") {
		return
	}
	if !r.emit("Connecting via SSH to install ComfyUI and Models...") {
		return
	}

	err = r.phase(PhaseSetup, func() error {
		sr := session.Start(ctx, ready, setup)
		for line := range sr.Lines() {
			if !r.emit(RemotePrefix + line) {
				return errConsumerStopped
			}
		}
		return sr.Err()
	})
	if errors.Is(err, errConsumerStopped) {
		return
	}
	if err != nil {
		r.fail(fmt.Errorf("setup failed: %w", err))
		return
	}

	r.complete(ready)
}

func (r *run) complete(inst *compute.Instance) {
	if !r.emit(separator) || !r.emit("Provisioning Complete!") {
		return
	}

	if url, ok := inst.URL(config.ComfyUIPort); ok {
		r.emit(fmt.Sprintf("Access ComfyUI at: %s", url))
	} else {
		r.emit("Could not determine public URL. Check the provider dashboard.")
	}
	r.finish(ResultSuccess)
}

// phase times fn and reports it to the observer and metrics.
func (r *run) phase(name string, fn func() error) error {
	LogPhaseStart(r.observer, name)
	start := r.o.now()

	err := fn()

	elapsed := r.o.now().Sub(start)
	r.o.metrics.recordPhase(name, elapsed)
	switch {
	case errors.Is(err, errConsumerStopped):
	case err != nil:
		LogPhaseFailed(r.observer, name, err)
	default:
		LogPhaseComplete(r.observer, name, elapsed)
	}
	return err
}

func (r *run) sessionConfig(cfg *config.ProvisioningConfig, key *keygen.KeyPair, log logr.Logger) *ssh.Config {
	t := r.o.timeouts
	sc := &ssh.Config{
		User:             cfg.SSH.User,
		PrivateKeyPath:   cfg.SSH.PrivateKeyPath,
		UseAgent:         cfg.SSH.ShouldUseAgent(),
		DialTimeout:      t.SSHDialTimeout,
		SettleDelay:      t.SSHSettleDelay,
		RetryDelay:       t.SSHRetryDelay,
		MaxAttempts:      t.SSHMaxAttempts,
		OnConnectAttempt: r.o.metrics.recordSSHAttempt,
		Logger:           log,
	}
	if key != nil {
		sc.PrivateKeys = [][]byte{key.PrivateKey}
	}
	if cfg.SSH.HostKeyPolicy == config.HostKeyPolicyKnownHosts {
		sc.HostKeyPolicy = ssh.NewKnownHostsPolicy(cfg.SSH.KnownHostsPath)
	}
	return sc
}

func createRequest(cfg *config.ProvisioningConfig, name string, key *keygen.KeyPair) compute.CreateRequest {
	req := compute.CreateRequest{
		Name:                name,
		Image:               cfg.TemplateID,
		GPUTypeID:           cfg.GPUTypeID,
		CloudType:           cfg.CloudType,
		Location:            cfg.Location,
		VolumeSizeGB:        cfg.VolumeSizeGB,
		ContainerDiskSizeGB: cfg.ContainerDiskSizeGB,
		Ports:               instancePorts,
		Env: map[string]string{
			"JUPYTER_PASSWORD": jupyterPassword,
			"HF_TOKEN":         cfg.HFToken,
		},
		Labels: labels.NewLabelBuilder(name).
			WithProvider(cfg.Provider).
			WithGPUType(cfg.GPUTypeID).
			WithModelCount(len(cfg.Models)).
			Build(),
	}
	if key != nil {
		req.PublicKey = key.AuthorizedKey()
	}
	return req
}

// emit hands one line to the consumer. It reports false once the consumer
// has stopped, after which nothing more is sent.
func (r *run) emit(line string) bool {
	if r.stopped {
		return false
	}
	r.inYield = true
	ok := r.yield(line)
	r.inYield = false
	if !ok {
		r.stopped = true
	}
	return ok
}

func (r *run) invalid(err error) {
	LogValidationError(r.observer, err)
	r.emit(fmt.Sprintf("%sinvalid configuration: %v", ErrorPrefix, err))
	r.finish(ResultInvalid)
}

// fail reports err as the final line. The instance ID is appended when the
// error does not carry it already.
func (r *run) fail(err error) {
	msg := err.Error()
	if r.instanceID != "" && !strings.Contains(msg, r.instanceID) {
		msg = fmt.Sprintf("%s (instance %s)", msg, r.instanceID)
	}
	r.o.log.V(1).Info("provisioning failed", "provider", r.provider, "instance", r.instanceID, "error", msg)
	r.emit(ErrorPrefix + msg)
	r.finish(ResultFailed)
}

func (r *run) finish(result string) {
	if r.finished {
		return
	}
	r.finished = true
	r.o.metrics.recordRun(r.provider, result)
}
