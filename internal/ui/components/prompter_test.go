package components

import (
	"context"
	"testing"
	"time"

	locationdto "geowatch/internal/modules/location/dto"
)

func TestPrompterAskReturnsAnswer(t *testing.T) {
	p := NewPrompter()
	defer p.Shutdown()

	result := make(chan string, 1)
	go func() {
		result <- p.Ask(context.Background(), locationdto.Advisory{Title: "Location off", Actions: []string{"Go to Settings", "Cancel"}})
	}()

	msg, ok := p.Next()().(PromptMsg)
	if !ok {
		t.Fatalf("expected a prompt message")
	}
	if !msg.NeedsAnswer() {
		t.Fatalf("expected advisory with actions to need an answer")
	}
	msg.Answer("Go to Settings")

	select {
	case got := <-result:
		if got != "Go to Settings" {
			t.Fatalf("unexpected answer %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("ask did not return")
	}
}

func TestPrompterShowDoesNotNeedAnswer(t *testing.T) {
	p := NewPrompter()
	defer p.Shutdown()

	p.Show(context.Background(), locationdto.Advisory{Message: "Location permission denied by user."})
	msg, ok := p.Next()().(PromptMsg)
	if !ok || msg.NeedsAnswer() {
		t.Fatalf("expected a notice, got %+v", msg)
	}
	if msg.Advisory.Message != "Location permission denied by user." {
		t.Fatalf("unexpected message %q", msg.Advisory.Message)
	}
}

func TestPrompterShutdownReleasesAsk(t *testing.T) {
	p := NewPrompter()

	result := make(chan string, 1)
	go func() {
		result <- p.Ask(context.Background(), locationdto.Advisory{Actions: []string{"OK"}})
	}()
	p.Shutdown()

	select {
	case got := <-result:
		if got != "" {
			t.Fatalf("expected empty answer after shutdown, got %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("ask did not return after shutdown")
	}
}

func TestPaletteMatchesPrefix(t *testing.T) {
	palette := NewPalette([]string{"fetch", "start", "stop", "reset"})
	palette.input.SetValue("st")
	got := palette.matching()
	if len(got) != 2 || got[0] != "start" || got[1] != "stop" {
		t.Fatalf("unexpected matches %v", got)
	}
}
