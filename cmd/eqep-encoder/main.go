// Command eqep-encoder configures a BeagleBone eQEP channel and publishes
// position and index switch changes to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/sweeney/eqep-encoder/internal/config"
	"github.com/sweeney/eqep-encoder/internal/eqep"
	"github.com/sweeney/eqep-encoder/internal/gpio"
	"github.com/sweeney/eqep-encoder/internal/logging"
	"github.com/sweeney/eqep-encoder/internal/logic"
	"github.com/sweeney/eqep-encoder/internal/mqtt"
	"github.com/sweeney/eqep-encoder/internal/status"
	"github.com/sweeney/eqep-encoder/internal/web"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// cliOptions holds flags that select an action rather than configure one.
type cliOptions struct {
	configPath string
	printState bool
	zero       bool
}

func main() {
	cfg, opts, err := parseArgs(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "eqep-encoder: %v\n", err)
		os.Exit(2)
	}

	logger := logging.New(cfg.Logging, version)
	slog.SetDefault(logger)

	if err := run(cfg, opts, logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

// parseArgs loads the config file named by -config and applies every flag
// given explicitly on top of it.
func parseArgs(args []string) (*config.Config, cliOptions, error) {
	def := config.Default()
	fs := flag.NewFlagSet("eqep-encoder", flag.ContinueOnError)

	var opts cliOptions
	fs.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	channel := fs.String("channel", def.Channel, "eQEP channel: 0-3 or eQEP0, eQEP1, eQEP2, eQEP2b")
	mode := fs.String("mode", def.Mode, "position mode: absolute or relative (empty leaves the driver setting)")
	frequency := fs.Float64("frequency", def.Frequency, "position report frequency in Hz (0 leaves the driver setting)")
	sysfsRoot := fs.String("sysfs-root", def.SysfsRoot, "prefix for device paths")
	configPin := fs.String("config-pin", def.ConfigPin, "pin multiplexer utility")
	poll := fs.Duration("poll", def.Poll, "position polling interval")
	debounce := fs.Duration("debounce", def.Debounce, "index switch debounce duration")
	deadband := fs.Int64("deadband", def.Deadband, "minimum position change to publish")
	heartbeat := fs.Duration("heartbeat", def.Heartbeat, "heartbeat interval (0 to disable)")
	broker := fs.String("broker", def.MQTT.Broker, "MQTT broker address")
	httpAddr := fs.String("http", def.HTTP, "HTTP status address (empty to disable)")
	wsBroker := fs.String("ws-broker", def.WSBroker, `MQTT websocket URL for live UI ("=broker" derives from --broker, "off" disables)`)
	fs.BoolVar(&opts.printState, "print-state", false, "print encoder state and exit")
	fs.BoolVar(&opts.zero, "zero", false, "zero the position at startup")
	logLevel := fs.String("log-level", def.Logging.Level, "log level: debug, info, warn or error")

	if err := fs.Parse(args); err != nil {
		return nil, opts, err
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, opts, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "channel":
			cfg.Channel = *channel
		case "mode":
			cfg.Mode = *mode
		case "frequency":
			cfg.Frequency = *frequency
		case "sysfs-root":
			cfg.SysfsRoot = *sysfsRoot
		case "config-pin":
			cfg.ConfigPin = *configPin
		case "poll":
			cfg.Poll = *poll
		case "debounce":
			cfg.Debounce = *debounce
		case "deadband":
			cfg.Deadband = *deadband
		case "heartbeat":
			cfg.Heartbeat = *heartbeat
		case "broker":
			cfg.MQTT.Broker = *broker
		case "http":
			cfg.HTTP = *httpAddr
		case "ws-broker":
			cfg.WSBroker = *wsBroker
		case "log-level":
			cfg.Logging.Level = *logLevel
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, opts, err
	}
	return cfg, opts, nil
}

func run(cfg *config.Config, opts cliOptions, logger *slog.Logger) error {
	ch, err := cfg.ChannelID()
	if err != nil {
		return err
	}

	if err := eqep.CheckKernel(); err != nil {
		logger.Warn("kernel check failed, continuing", "error", err)
	}

	enc, err := eqep.Open(ch,
		eqep.WithLogger(logger),
		eqep.WithSysfsRoot(cfg.SysfsRoot),
		eqep.WithPinConfigurator(eqep.ConfigPin{Path: cfg.ConfigPin}),
	)
	if err != nil {
		return fmt.Errorf("open %s: %w", ch, err)
	}
	def := enc.Definition()

	if err := applySettings(enc, cfg, opts.zero); err != nil {
		return err
	}

	if opts.printState {
		st, err := enc.State()
		if err != nil {
			return fmt.Errorf("read state: %w", err)
		}
		fmt.Println(formatState(def.Name, st))
		return nil
	}

	// Initialize index switch
	var index gpio.Reader = gpio.NopReader{}
	if cfg.Index.Enabled {
		r, err := gpio.NewRealReader(cfg.Index.Chip, cfg.Index.Line, cfg.Index.ActiveLow)
		if err != nil {
			return fmt.Errorf("init index switch: %w", err)
		}
		index = r
	}
	defer index.Close()

	// Initialize MQTT
	topics := mqtt.NewTopics(cfg.MQTT.TopicPrefix, def.Name)
	publisher := mqtt.NewRealPublisher(mqtt.Options{
		Broker:   cfg.MQTT.Broker,
		ClientID: cfg.MQTT.ClientID,
		Channel:  def.Name,
		Topics:   topics,
		Logger:   logger,
	})
	defer publisher.Close()

	ws := resolveWSBroker(cfg.WSBroker, cfg.MQTT.Broker, logger)

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		Channel:     def.Name,
		DevicePath:  filepath.Join(cfg.SysfsRoot, def.DevicePath),
		PollMs:      cfg.Poll.Milliseconds(),
		DebounceMs:  cfg.Debounce.Milliseconds(),
		Deadband:    cfg.Deadband,
		HeartbeatMs: cfg.Heartbeat.Milliseconds(),
		Broker:      cfg.MQTT.Broker,
		Topic:       topics.Events,
		HTTPPort:    cfg.HTTP,
		WSBroker:    ws,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	locked := &lockedEncoder{enc: enc}
	if st, err := locked.State(); err == nil {
		tracker.SetHardware(hardwareStatus(st))
	}

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		logger.Warn("failed to publish startup event", "error", err)
	} else {
		logger.Info("published startup event", "topic", topics.System)
	}

	// Start HTTP status server
	if cfg.HTTP != "" {
		srv := web.New(cfg.HTTP, tracker, locked)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("http server error", "error", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		logger.Info("http status server listening", "addr", cfg.HTTP)
	}

	logger.Info("started",
		"channel", def.Name,
		"poll", cfg.Poll,
		"debounce", cfg.Debounce,
		"deadband", cfg.Deadband,
		"heartbeat", cfg.Heartbeat,
		"broker", cfg.MQTT.Broker,
		"index", cfg.Index.Enabled,
	)

	ticker := time.NewTicker(cfg.Poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	lc := loopConfig{
		debounce:    cfg.Debounce,
		deadband:    cfg.Deadband,
		heartbeat:   cfg.Heartbeat,
		zeroOnIndex: cfg.Index.Enabled && cfg.Index.ZeroOnIndex,
	}
	// The channel stays enabled on exit so the count survives a restart.
	return runLoop(locked, index, publisher, publisher, tracker, lc, logger, time.Now, ticker.C, sigCh)
}

// settings is the part of the encoder touched at startup.
type settings interface {
	SetMode(m eqep.Mode) error
	SetFrequency(hz float64) error
	Zero() error
}

// applySettings writes the configured mode and frequency, leaving the
// driver's values alone when they are unset.
func applySettings(enc settings, cfg *config.Config, zero bool) error {
	if cfg.Mode != "" {
		m, err := eqep.ParseMode(cfg.Mode)
		if err != nil {
			return err
		}
		if err := enc.SetMode(m); err != nil {
			return fmt.Errorf("set mode: %w", err)
		}
	}
	if cfg.Frequency > 0 {
		if err := enc.SetFrequency(cfg.Frequency); err != nil {
			return fmt.Errorf("set frequency: %w", err)
		}
	}
	if zero {
		if err := enc.Zero(); err != nil {
			return fmt.Errorf("zero position: %w", err)
		}
	}
	return nil
}

// formatState renders a State for -print-state.
func formatState(name string, st eqep.State) string {
	freq := "n/a"
	if st.Period > 0 {
		freq = fmt.Sprintf("%.3f Hz", st.Frequency)
	}
	return fmt.Sprintf("%s: enabled=%t mode=%s position=%d period=%dns frequency=%s",
		name, st.Enabled, st.Mode, st.Position, st.Period.Nanoseconds(), freq)
}

func hardwareStatus(st eqep.State) status.Hardware {
	return status.Hardware{
		Enabled:   st.Enabled,
		Mode:      st.Mode.String(),
		Position:  st.Position,
		Frequency: st.Frequency,
	}
}

// lockedEncoder serialises access to the encoder between the poll loop and
// HTTP control requests. zeroes counts successful zero writes from either
// side so the loop can re-reference its detector.
type lockedEncoder struct {
	mu     sync.Mutex
	enc    *eqep.RotaryEncoder
	zeroes uint64
}

func (l *lockedEncoder) State() (eqep.State, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enc.State()
}

// Poll reads the state and the zero count under one lock.
func (l *lockedEncoder) Poll() (eqep.State, uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	st, err := l.enc.State()
	return st, l.zeroes, err
}

func (l *lockedEncoder) Zero() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.enc.Zero(); err != nil {
		return err
	}
	l.zeroes++
	return nil
}

func (l *lockedEncoder) Enable() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enc.Enable()
}

func (l *lockedEncoder) Disable() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enc.Disable()
}

func (l *lockedEncoder) SetMode(m eqep.Mode) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enc.SetMode(m)
}

func (l *lockedEncoder) SetFrequency(hz float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enc.SetFrequency(hz)
}

// encoder is what the poll loop needs from the hardware. Poll returns the
// number of successful Zero calls made so far by any caller.
type encoder interface {
	Poll() (eqep.State, uint64, error)
	Zero() error
}

// loopConfig holds the detector and heartbeat settings for runLoop.
type loopConfig struct {
	debounce    time.Duration
	deadband    int64
	heartbeat   time.Duration
	zeroOnIndex bool
}

func runLoop(enc encoder, index gpio.Reader, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, lc loopConfig, logger *slog.Logger, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	startTime := now()
	detector := logic.NewDetector(lc.debounce, lc.deadband, startTime)
	var lastIndex bool
	var zeroes uint64

	for {
		select {
		case s := <-sig:
			logger.Info("shutting down", "signal", s.String())
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				logger.Warn("failed to publish shutdown event", "error", err)
			} else {
				logger.Info("published shutdown event")
			}
			return nil

		case <-tick:
			t := now()
			st, n, err := enc.Poll()
			if err != nil {
				logger.Warn("encoder read error", "error", err)
				if tracker != nil {
					tracker.SetHardwareError(err)
				}
				continue
			}
			if tracker != nil {
				tracker.SetHardware(hardwareStatus(st))
			}
			if n != zeroes {
				// Zeroed since the last poll, possibly over HTTP.
				detector.ResetPosition(0)
				zeroes = n
			}

			// A failed index read holds the last sample so position keeps flowing.
			if active, err := index.Read(); err != nil {
				logger.Warn("index read error", "error", err)
			} else {
				lastIndex = active
			}

			events := detector.Process(logic.Input{
				Position: st.Position,
				Index:    lastIndex,
				Time:     t,
			})

			for _, event := range events {
				level := slog.LevelInfo
				if event.Type == logic.EventPosition {
					level = slog.LevelDebug
				}
				logger.Log(context.Background(), level, "event",
					"type", event.Type, "position", event.Position, "delta", event.Delta, "index", event.Index)

				if err := publisher.Publish(event); err != nil {
					logger.Warn("publish error", "error", err)
					// Don't crash on publish failure
				}

				if event.Type == logic.EventIndexOn && lc.zeroOnIndex {
					if err := enc.Zero(); err != nil {
						logger.Warn("zero on index failed", "error", err)
					} else {
						detector.ResetPosition(0)
					}
				}
			}

			if !detector.IsBaselined() {
				// Still waiting for baseline
				continue
			}

			// Check for heartbeat
			if hbData := detector.CheckHeartbeat(t, lc.heartbeat); hbData != nil {
				logger.Info("heartbeat",
					"uptime", hbData.Uptime,
					"position_events", hbData.Counts.Position,
					"index_on", hbData.Counts.IndexOn,
					"index_off", hbData.Counts.IndexOff,
				)

				hbEvent := mqtt.SystemEvent{
					Timestamp: hbData.Timestamp,
					Event:     "HEARTBEAT",
				}
				if tracker != nil {
					if mqttStatus != nil {
						tracker.SetMQTTConnected(mqttStatus.IsConnected())
					}
					// Refresh network info for heartbeat
					if net := readNetworkInfo(); net != nil {
						tracker.SetNetwork(net)
					}
					indexState, _ := detector.CurrentState()
					tracker.Update(indexState, detector.IsBaselined(), detector.EventCountsSnapshot())
					snap := tracker.Snapshot()
					hbEvent.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					logger.Warn("heartbeat publish error", "error", err)
				}
			}

			// Update status tracker for HTTP consumers
			if tracker != nil {
				indexState, _ := detector.CurrentState()
				tracker.Update(indexState, detector.IsBaselined(), detector.EventCountsSnapshot())
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
			}
		}
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

// resolveWSBroker converts the --ws-broker value into a concrete URL.
// "=broker" derives ws://host:9001 from the TCP broker address; "off" disables.
func resolveWSBroker(ws, broker string, logger *slog.Logger) string {
	if ws == "off" {
		return ""
	}
	if ws != "=broker" {
		return ws
	}
	u, err := url.Parse(broker)
	if err != nil {
		logger.Warn("ws-broker: cannot parse broker address", "broker", broker, "error", err)
		return ""
	}
	u.Scheme = "ws"
	u.Host = u.Hostname() + ":9001"
	return u.String()
}
