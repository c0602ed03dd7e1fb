// Package messages defines the control protocol between the UI surfaces
// (popup, dashboard) and the agent as a closed set of tagged variants.
// Adding a message type means touching the decoder and every Dispatch call
// site, which is the point: the protocol cannot grow silently.
package messages

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/privai-labs/privai-agent/internal/platform"
)

// Wire type tags. The privai: prefix namespaces the protocol against other
// traffic on shared transports.
const (
	TypeStartConnect            = "privai:startConnect"
	TypeFinishConnect           = "privai:finishConnect"
	TypeRequestLinkedInAccount  = "privai:requestLinkedInAccount"
	TypeRequestFacebookAccount  = "privai:requestFacebookAccount"
	TypeRequestInstagramAccount = "privai:requestInstagramAccount"
)

// Message is the closed variant set of the control protocol.
type Message interface {
	wireType() string
}

// StartConnect asks the agent to begin a connect flow for a platform.
type StartConnect struct {
	Platform platform.Platform `json:"platform"`
}

// FinishConnect delivers an extracted account back to the agent.
type FinishConnect struct {
	Platform    platform.Platform `json:"platform"`
	AccountID   string            `json:"accountId"`
	AccountName string            `json:"accountName"`
}

// RequestAccount asks a page context to run account extraction. On the wire
// it is one of the per-platform request types.
type RequestAccount struct {
	Platform platform.Platform `json:"-"`
}

func (StartConnect) wireType() string  { return TypeStartConnect }
func (FinishConnect) wireType() string { return TypeFinishConnect }

// wireType returns "" for platforms without a request variant; Encode
// rejects those rather than mislabeling them.
func (m RequestAccount) wireType() string {
	switch m.Platform {
	case platform.LinkedIn:
		return TypeRequestLinkedInAccount
	case platform.Facebook:
		return TypeRequestFacebookAccount
	case platform.Instagram:
		return TypeRequestInstagramAccount
	default:
		return ""
	}
}

// envelope is the wire shape: the variant's fields flattened next to the tag.
type envelope struct {
	Type        string            `json:"type"`
	Platform    platform.Platform `json:"platform,omitempty"`
	AccountID   string            `json:"accountId,omitempty"`
	AccountName string            `json:"accountName,omitempty"`
}

// Encode serializes a message to its wire envelope.
func Encode(m Message) ([]byte, error) {
	env := envelope{Type: m.wireType()}
	switch v := m.(type) {
	case StartConnect:
		env.Platform = v.Platform
	case FinishConnect:
		env.Platform = v.Platform
		env.AccountID = v.AccountID
		env.AccountName = v.AccountName
	case RequestAccount:
		// Platform is implied by the type tag.
		if env.Type == "" {
			return nil, fmt.Errorf("no account request variant for platform %q", v.Platform)
		}
	default:
		return nil, fmt.Errorf("unknown message variant %T", m)
	}
	return json.Marshal(env)
}

// Decode parses a wire envelope into its variant. Unknown type tags are an
// error; the protocol set is closed.
func Decode(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("malformed message envelope: %w", err)
	}
	switch env.Type {
	case TypeStartConnect:
		return StartConnect{Platform: env.Platform}, nil
	case TypeFinishConnect:
		return FinishConnect{Platform: env.Platform, AccountID: env.AccountID, AccountName: env.AccountName}, nil
	case TypeRequestLinkedInAccount:
		return RequestAccount{Platform: platform.LinkedIn}, nil
	case TypeRequestFacebookAccount:
		return RequestAccount{Platform: platform.Facebook}, nil
	case TypeRequestInstagramAccount:
		return RequestAccount{Platform: platform.Instagram}, nil
	case "":
		return nil, fmt.Errorf("message envelope missing type")
	default:
		return nil, fmt.Errorf("unknown message type %q", env.Type)
	}
}

// Handler receives dispatched messages.
type Handler interface {
	HandleStartConnect(ctx context.Context, m StartConnect) error
	HandleFinishConnect(ctx context.Context, m FinishConnect) error
	HandleRequestAccount(ctx context.Context, m RequestAccount) error
}

// Dispatch routes a message to its handler method. The switch is exhaustive
// over the closed variant set.
func Dispatch(ctx context.Context, m Message, h Handler) error {
	switch v := m.(type) {
	case StartConnect:
		return h.HandleStartConnect(ctx, v)
	case FinishConnect:
		return h.HandleFinishConnect(ctx, v)
	case RequestAccount:
		return h.HandleRequestAccount(ctx, v)
	default:
		return fmt.Errorf("unknown message variant %T", m)
	}
}
