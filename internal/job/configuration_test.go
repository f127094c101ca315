package job

import (
	"errors"
	"testing"
)

func TestConfiguration_BrokerRoundTrip(t *testing.T) {
	fb := &fakeBroker{}
	cfg := NewConfiguration(nil)

	if cfg.Broker() != nil {
		t.Fatal("expected nil broker initially")
	}
	if err := cfg.SetBroker(fb); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Broker() != fb {
		t.Fatal("expected Broker() to return the broker just set")
	}
}

func TestConfiguration_LockPreventsFurtherSets(t *testing.T) {
	cfg := NewConfiguration(&fakeBroker{})
	cfg.Lock()

	if err := cfg.SetBroker(&fakeBroker{}); !errors.Is(err, ErrConfigurationLocked) {
		t.Fatalf("got %v, want ErrConfigurationLocked", err)
	}
}

func TestDefault_ReturnsSameInstance(t *testing.T) {
	if Default() != Default() {
		t.Fatal("expected Default() to return the same Configuration each call")
	}
}
