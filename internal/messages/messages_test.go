package messages

import (
	"context"
	"testing"

	"github.com/privai-labs/privai-agent/internal/platform"
)

func TestDecodeStartConnect(t *testing.T) {
	m, err := Decode([]byte(`{"type":"privai:startConnect","platform":"linkedin"}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	sc, ok := m.(StartConnect)
	if !ok {
		t.Fatalf("expected StartConnect, got %T", m)
	}
	if sc.Platform != platform.LinkedIn {
		t.Errorf("platform = %q", sc.Platform)
	}
}

func TestDecodeFinishConnect(t *testing.T) {
	m, err := Decode([]byte(`{"type":"privai:finishConnect","platform":"instagram","accountId":"jd","accountName":"JD"}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	fc, ok := m.(FinishConnect)
	if !ok {
		t.Fatalf("expected FinishConnect, got %T", m)
	}
	if fc.Platform != platform.Instagram || fc.AccountID != "jd" || fc.AccountName != "JD" {
		t.Errorf("unexpected payload: %+v", fc)
	}
}

func TestDecodeRequestAccountVariants(t *testing.T) {
	cases := map[string]platform.Platform{
		TypeRequestLinkedInAccount:  platform.LinkedIn,
		TypeRequestFacebookAccount:  platform.Facebook,
		TypeRequestInstagramAccount: platform.Instagram,
	}
	for tag, want := range cases {
		m, err := Decode([]byte(`{"type":"` + tag + `"}`))
		if err != nil {
			t.Fatalf("Decode(%s): %v", tag, err)
		}
		ra, ok := m.(RequestAccount)
		if !ok {
			t.Fatalf("expected RequestAccount for %s, got %T", tag, m)
		}
		if ra.Platform != want {
			t.Errorf("platform for %s = %q, want %q", tag, ra.Platform, want)
		}
	}
}

func TestDecodeRejectsUnknownAndMissingType(t *testing.T) {
	if _, err := Decode([]byte(`{"type":"privai:selfDestruct"}`)); err == nil {
		t.Error("unknown type must not decode")
	}
	if _, err := Decode([]byte(`{"platform":"linkedin"}`)); err == nil {
		t.Error("missing type must not decode")
	}
	if _, err := Decode([]byte(`not json`)); err == nil {
		t.Error("malformed envelope must not decode")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	msgs := []Message{
		StartConnect{Platform: platform.Facebook},
		FinishConnect{Platform: platform.LinkedIn, AccountID: "johndoe", AccountName: "John Doe"},
		RequestAccount{Platform: platform.Instagram},
	}
	for _, m := range msgs {
		data, err := Encode(m)
		if err != nil {
			t.Fatalf("Encode(%T): %v", m, err)
		}
		back, err := Decode(data)
		if err != nil {
			t.Fatalf("Decode(%T): %v", m, err)
		}
		if back != m {
			t.Errorf("round trip changed %T: %+v -> %+v", m, m, back)
		}
	}
}

func TestEncodeRejectsRequestWithoutVariant(t *testing.T) {
	// Twitter has no account request type on the wire; encoding must fail
	// rather than fall back to another platform's tag.
	if data, err := Encode(RequestAccount{Platform: platform.Twitter}); err == nil {
		t.Fatalf("expected error, encoded %s", data)
	}
	if _, err := Encode(RequestAccount{}); err == nil {
		t.Fatal("empty platform must not encode")
	}
}

type recordingHandler struct {
	starts   []StartConnect
	finishes []FinishConnect
	requests []RequestAccount
}

func (h *recordingHandler) HandleStartConnect(_ context.Context, m StartConnect) error {
	h.starts = append(h.starts, m)
	return nil
}

func (h *recordingHandler) HandleFinishConnect(_ context.Context, m FinishConnect) error {
	h.finishes = append(h.finishes, m)
	return nil
}

func (h *recordingHandler) HandleRequestAccount(_ context.Context, m RequestAccount) error {
	h.requests = append(h.requests, m)
	return nil
}

func TestDispatch(t *testing.T) {
	h := &recordingHandler{}
	ctx := context.Background()

	for _, m := range []Message{
		StartConnect{Platform: platform.LinkedIn},
		FinishConnect{Platform: platform.LinkedIn, AccountID: "x"},
		RequestAccount{Platform: platform.Facebook},
	} {
		if err := Dispatch(ctx, m, h); err != nil {
			t.Fatalf("Dispatch(%T): %v", m, err)
		}
	}
	if len(h.starts) != 1 || len(h.finishes) != 1 || len(h.requests) != 1 {
		t.Errorf("dispatch counts: %d/%d/%d", len(h.starts), len(h.finishes), len(h.requests))
	}
}
