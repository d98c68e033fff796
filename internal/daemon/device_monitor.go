package daemon

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"mothtrap/internal/config"
	"mothtrap/internal/logging"
)

// deviceMonitor watches udev netlink events for the camera and microphone so
// the status surface can report peripherals that were detached in the field.
// Both devices are assumed present until an event says otherwise.
type deviceMonitor struct {
	logger      *slog.Logger
	videoDevice string
	audioDevice string

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
	camera  bool
	mic     bool
}

func newDeviceMonitor(cfg *config.Config, logger *slog.Logger) *deviceMonitor {
	return &deviceMonitor{
		logger:      logging.NewComponentLogger(logger, "device-monitor"),
		videoDevice: strings.TrimSpace(cfg.Capture.VideoDevice),
		audioDevice: strings.TrimSpace(cfg.Capture.AudioDevice),
		camera:      true,
		mic:         true,
	}
}

// Start begins listening for udev netlink events. A connection failure is
// non-fatal; presence reporting just stays optimistic.
func (m *deviceMonitor) Start(ctx context.Context) {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		m.logger.Warn("failed to connect to netlink socket, hotplug tracking disabled",
			logging.Error(err),
		)
		return
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true

	quit := m.quit
	go m.monitorLoop(ctx, quit)

	m.logger.Info("device monitor started",
		logging.String("video_device", m.videoDevice),
		logging.String("audio_device", m.audioDevice),
	)
}

// Stop shuts down the device monitor.
func (m *deviceMonitor) Stop() {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}

	if m.quit != nil {
		close(m.quit)
		m.quit = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.running = false
}

// CameraPresent reports whether the camera device is believed attached.
func (m *deviceMonitor) CameraPresent() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.camera
}

// MicPresent reports whether the microphone device is believed attached.
func (m *deviceMonitor) MicPresent() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mic
}

func (m *deviceMonitor) monitorLoop(ctx context.Context, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return
	}

	monitorQuit := conn.Monitor(queue, errs, m.buildMatcher())

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			m.handleEvent(uevent)
		case err := <-errs:
			m.logger.Warn("device monitor error", logging.Error(err))
		}
	}
}

// buildMatcher matches add/remove events on the video4linux and sound
// subsystems.
func (m *deviceMonitor) buildMatcher() netlink.Matcher {
	action := "add|remove"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env:    map[string]string{"SUBSYSTEM": "video4linux"},
	})
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env:    map[string]string{"SUBSYSTEM": "sound"},
	})
	return rules
}

func (m *deviceMonitor) handleEvent(uevent netlink.UEvent) {
	devname := uevent.Env["DEVNAME"]
	if devname == "" {
		return
	}
	if !strings.HasPrefix(devname, "/dev/") {
		devname = "/dev/" + devname
	}
	present := uevent.Action == netlink.ADD

	m.mu.Lock()
	var label string
	switch {
	case devname == m.videoDevice:
		m.camera = present
		label = "camera"
	case devname == m.audioDevice:
		m.mic = present
		label = "microphone"
	}
	m.mu.Unlock()

	if label == "" {
		return
	}
	m.logger.Info("peripheral hotplug",
		logging.String("peripheral", label),
		logging.String("device", devname),
		logging.Bool("present", present),
	)
}
