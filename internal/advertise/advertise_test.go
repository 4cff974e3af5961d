package advertise

import (
	"errors"
	"net"
	"slices"
	"testing"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...any) {}

type fakeServer struct{ shutdowns int }

func (f *fakeServer) Shutdown() { f.shutdowns++ }

type registration struct {
	instance, service, domain string
	port                      int
	txt                       []string
}

func testInfo() Info {
	return Info{
		Name:         "hall_panel",
		FriendlyName: "Hall Panel",
		Port:         6053,
		Version:      "2024.1.0",
		Model:        "Pi Kiosk",
		MAC:          "02:1A:2B:3C:4D:5E",
		ProjectName:  "panelnode.kiosk",
	}
}

func TestTXT(t *testing.T) {
	txt := testInfo().TXT()

	for _, want := range []string{
		"api_version=1.9",
		"version=2024.1.0",
		"platform=Linux",
		"board=Pi Kiosk",
		"mac=021a2b3c4d5e",
		"project_name=panelnode.kiosk",
		"friendly_name=Hall Panel",
	} {
		if !slices.Contains(txt, want) {
			t.Errorf("TXT() = %v, missing %q", txt, want)
		}
	}

	bare := Info{Name: "x", Port: 1}.TXT()
	for _, r := range bare {
		if r == "board=" || r == "friendly_name=" {
			t.Errorf("empty field advertised: %v", bare)
		}
	}
}

func TestAnnouncer_StartStop(t *testing.T) {
	var got []registration
	server := &fakeServer{}

	a := New(testInfo(), nopLogger{})
	a.register = func(instance, service, domain string, port int, text []string, _ []net.Interface) (shutdowner, error) {
		got = append(got, registration{instance, service, domain, port, text})
		return server, nil
	}

	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := a.Start(); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("registered %d times, want 1", len(got))
	}
	r := got[0]
	if r.instance != "hall_panel" || r.service != "_esphomelib._tcp" || r.domain != "local." || r.port != 6053 {
		t.Errorf("registration = %+v", r)
	}
	if !a.Registered() {
		t.Error("Registered() = false after Start")
	}

	a.Stop()
	a.Stop()
	if server.shutdowns != 1 {
		t.Errorf("Shutdown called %d times, want 1", server.shutdowns)
	}
	if a.Registered() {
		t.Error("Registered() = true after Stop")
	}
}

func TestAnnouncer_Errors(t *testing.T) {
	bad := New(Info{Name: "", Port: 6053}, nopLogger{})
	if err := bad.Start(); !errors.Is(err, ErrInvalidInfo) {
		t.Errorf("Start() without name error = %v, want ErrInvalidInfo", err)
	}

	noPort := New(Info{Name: "p"}, nopLogger{})
	if err := noPort.Start(); !errors.Is(err, ErrInvalidInfo) {
		t.Errorf("Start() without port error = %v, want ErrInvalidInfo", err)
	}

	boom := errors.New("no multicast interface")
	a := New(testInfo(), nopLogger{})
	a.register = func(string, string, string, int, []string, []net.Interface) (shutdowner, error) {
		return nil, boom
	}
	if err := a.Start(); !errors.Is(err, boom) {
		t.Errorf("Start() error = %v, want %v", err, boom)
	}
	if a.Registered() {
		t.Error("Registered() = true after failed Start")
	}
}
