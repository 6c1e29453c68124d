package ardrone

import "testing"

func TestConfigServiceSendCompletesOnAckClear(t *testing.T) {
	fs := &fakeSocket{}
	atSvc := &ATService{sock: fs}
	atSvc.service = newService(nil, "at", atSvc)
	atSvc.sequence = 1

	cfg := &ConfigService{at: atSvc, sock: &fakeSocket{}}
	cfg.service = newService(nil, "config", cfg)
	cfg.ids = newConfigIDs()

	var gotErr error
	done := false
	cfg.Send("general:navdata_demo", "TRUE", func(err error) {
		done = true
		gotErr = err
	})

	cfg.tick(WakeupUpdate) // phase 0: send CONFIG_IDS + CONFIG
	cfg.tick(WakeupUpdate) // phase 1: waiting for ack, not yet seen

	if done {
		t.Fatal("should not complete before ack observed")
	}

	cfg.onNavdata(&Navdata{State: NavdataStateCommandMask})
	cfg.tick(WakeupUpdate) // phase 1 sees the ack bit, sends CTRL=5, advances to phase 2

	if done {
		t.Fatal("should not complete before the ack bit actually clears")
	}

	cfg.onNavdata(&Navdata{State: NavdataStateCommandMask}) // drone hasn't cleared it yet
	cfg.tick(WakeupUpdate)                                  // phase 2: still set, resend CTRL=5

	if done {
		t.Fatal("should not complete while the ack bit is still set")
	}

	cfg.onNavdata(&Navdata{State: 0}) // drone clears the bit
	cfg.tick(WakeupUpdate)            // phase 2: cleared, commit and complete

	if !done {
		t.Fatal("expected Send to complete once the ack bit cleared")
	}
	if gotErr != nil {
		t.Fatalf("unexpected error: %v", gotErr)
	}
	if got, ok := cfg.GetConfig("general:navdata_demo"); !ok || got != "TRUE" {
		t.Fatalf("GetConfig = %q, %v, want TRUE, true", got, ok)
	}
}

func TestConfigServiceSendRetriesThenFails(t *testing.T) {
	fs := &fakeSocket{}
	atSvc := &ATService{sock: fs}
	atSvc.service = newService(nil, "at", atSvc)
	atSvc.sequence = 1

	cfg := &ConfigService{at: atSvc, sock: &fakeSocket{}}
	cfg.service = newService(nil, "config", cfg)
	cfg.ids = newConfigIDs()

	var gotErr error
	cfg.Send("k", "v", func(err error) { gotErr = err })

	cfg.tick(WakeupUpdate) // phase 0
	ticksNeeded := (configSendMaxRetries + 1) * configSendRetryTicks
	for i := 0; i < ticksNeeded+1; i++ {
		cfg.tick(WakeupUpdate)
		if gotErr != nil {
			break
		}
	}

	if gotErr == nil {
		t.Fatal("expected Send to fail after exhausting retries")
	}
}

// dumpSocket serves a single fixed config dump on its first Receive
// call, then reports EOF-via-timeout on any further call.
type dumpSocket struct {
	dump []byte
	sent bool
}

func (d *dumpSocket) Connect() error { return nil }
func (d *dumpSocket) Disconnect()    {}
func (d *dumpSocket) Send(data []byte) error { return nil }
func (d *dumpSocket) Receive(buf []byte) (int, error) {
	if d.sent {
		return 0, ErrTimeout
	}
	d.sent = true
	return copy(buf, d.dump), nil
}

func TestConfigServiceFetchParsesDump(t *testing.T) {
	sock := &dumpSocket{dump: []byte("general:num_version_config = 1\ncontrol:control_level = 0\x00")}
	atSvc := &ATService{sock: &fakeSocket{}}
	atSvc.service = newService(nil, "at", atSvc)

	cfg := &ConfigService{at: atSvc, sock: sock}
	cfg.service = newService(nil, "config", cfg)

	var raw string
	var gotErr error
	cfg.Fetch(func(r string, err error) { raw, gotErr = r, err })

	cfg.tick(WakeupUpdate) // phase 0: ack bit clear, request dump
	cfg.tick(WakeupUpdate) // phase 1: read until NUL

	if gotErr != nil {
		t.Fatalf("unexpected error: %v", gotErr)
	}
	if raw == "" {
		t.Fatal("expected non-empty raw dump")
	}
	if got, ok := cfg.GetConfig("control:control_level"); !ok || got != "0" {
		t.Fatalf("GetConfig(control:control_level) = %q, %v, want 0, true", got, ok)
	}
}
