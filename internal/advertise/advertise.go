package advertise

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/grandcat/zeroconf"
)

const (
	// ServiceType is the DNS-SD service controllers browse for.
	ServiceType = "_esphomelib._tcp"

	// DefaultDomain is the mDNS domain.
	DefaultDomain = "local."

	// apiVersion is advertised in TXT; controllers only check it is present.
	apiVersion = "1.9"
	platform   = "Linux"
)

// ErrInvalidInfo is returned when the announcement is missing a name or port.
var ErrInvalidInfo = errors.New("advertise: invalid service info")

// Info describes the announced device.
type Info struct {
	Name         string
	FriendlyName string
	Port         int
	Version      string
	Model        string
	MAC          string
	ProjectName  string
	Domain       string
}

// TXT returns the DNS-SD TXT records for info.
func (i Info) TXT() []string {
	txt := []string{
		"api_version=" + apiVersion,
		"platform=" + platform,
		"mac=" + strings.ToLower(strings.ReplaceAll(i.MAC, ":", "")),
	}
	if i.Version != "" {
		txt = append(txt, "version="+i.Version)
	}
	if i.Model != "" {
		txt = append(txt, "board="+i.Model)
	}
	if i.ProjectName != "" {
		txt = append(txt, "project_name="+i.ProjectName)
	}
	if i.FriendlyName != "" {
		txt = append(txt, "friendly_name="+i.FriendlyName)
	}
	return txt
}

// registerFunc matches zeroconf.Register.
type registerFunc func(instance, service, domain string, port int, text []string, ifaces []net.Interface) (shutdowner, error)

type shutdowner interface {
	Shutdown()
}

func zeroconfRegister(instance, service, domain string, port int, text []string, ifaces []net.Interface) (shutdowner, error) {
	s, err := zeroconf.Register(instance, service, domain, port, text, ifaces)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Logger is the logging interface used by the announcer.
type Logger interface {
	Info(msg string, args ...any)
}

// Announcer keeps one mDNS registration alive until Stop.
type Announcer struct {
	info     Info
	logger   Logger
	register registerFunc

	mu     sync.Mutex
	server shutdowner
}

// New creates an announcer. Nothing is sent until Start.
func New(info Info, logger Logger) *Announcer {
	if info.Domain == "" {
		info.Domain = DefaultDomain
	}
	return &Announcer{info: info, logger: logger, register: zeroconfRegister}
}

// Start registers the service on all multicast interfaces. Calling Start
// while registered does nothing.
func (a *Announcer) Start() error {
	if a.info.Name == "" || a.info.Port <= 0 || a.info.Port > 65535 {
		return fmt.Errorf("%w: name %q port %d", ErrInvalidInfo, a.info.Name, a.info.Port)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.server != nil {
		return nil
	}

	server, err := a.register(a.info.Name, ServiceType, a.info.Domain, a.info.Port, a.info.TXT(), nil)
	if err != nil {
		return fmt.Errorf("registering %s: %w", ServiceType, err)
	}
	a.server = server
	a.logger.Info("mdns service registered",
		"instance", a.info.Name,
		"service", ServiceType,
		"port", a.info.Port,
	)
	return nil
}

// Stop withdraws the registration. Safe to call more than once.
func (a *Announcer) Stop() {
	a.mu.Lock()
	server := a.server
	a.server = nil
	a.mu.Unlock()

	if server != nil {
		server.Shutdown()
		a.logger.Info("mdns service withdrawn", "instance", a.info.Name)
	}
}

// Registered reports whether the service is currently announced.
func (a *Announcer) Registered() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.server != nil
}
