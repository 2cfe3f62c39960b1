package deployerr

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestNewClassifiesAndUnwraps(t *testing.T) {
	err := New(Input, "read project name", io.ErrUnexpectedEOF)
	if !Is(err, Input) {
		t.Fatalf("expected InputError, got %q", KindOf(err))
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected wrapped cause to be reachable")
	}
	if got := err.Error(); got != "read project name: unexpected EOF" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestNewKeepsInnerKind(t *testing.T) {
	inner := Errorf(Schema, "template has no Parameters section")
	outer := New(RemoteState, "publish", inner)
	if KindOf(outer) != Schema {
		t.Fatalf("expected inner kind to win, got %q", KindOf(outer))
	}
}

func TestKindOfSurvivesFmtWrapping(t *testing.T) {
	err := fmt.Errorf("deploy: %w", Errorf(Discovery, "no .zip archive in %s", "/tmp"))
	if !Is(err, Discovery) {
		t.Fatalf("expected DiscoveryError through fmt wrapping")
	}
	if Is(nil, Discovery) {
		t.Fatalf("nil must not match any kind")
	}
	if KindOf(errors.New("plain")) != "" {
		t.Fatalf("plain errors carry no kind")
	}
}
