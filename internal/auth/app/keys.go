package app

import (
	"fmt"

	"github.com/aussiebroadwan/agentauth/pkg/cryptox"
	"github.com/aussiebroadwan/agentauth/pkg/jwtx"
)

// Keys holds one codec per token kind. Both are derived from the master
// secret with HKDF under different purposes, so a session token never
// verifies as an agent token.
type Keys struct {
	SessionSecret []byte
	AgentSecret   []byte

	Session *jwtx.Codec
	Agent   *jwtx.Codec
}

// DeriveKeys expands the master secret into the session and agent codecs.
func DeriveKeys(master string) (*Keys, error) {
	if len(master) < jwtx.MinSecretLength {
		return nil, fmt.Errorf("derive keys: %w", jwtx.ErrWeakSecret)
	}

	sessionKey, err := cryptox.DeriveKey([]byte(master), cryptox.PurposeSession)
	if err != nil {
		return nil, fmt.Errorf("derive keys: %w", err)
	}
	agentKey, err := cryptox.DeriveKey([]byte(master), cryptox.PurposeAgent)
	if err != nil {
		return nil, fmt.Errorf("derive keys: %w", err)
	}

	sessionCodec, err := jwtx.NewCodec(sessionKey)
	if err != nil {
		return nil, fmt.Errorf("session codec: %w", err)
	}
	agentCodec, err := jwtx.NewCodec(agentKey)
	if err != nil {
		return nil, fmt.Errorf("agent codec: %w", err)
	}

	return &Keys{
		SessionSecret: sessionKey,
		AgentSecret:   agentKey,
		Session:       sessionCodec,
		Agent:         agentCodec,
	}, nil
}

// CodecFor returns the codec for a token kind.
func (k *Keys) CodecFor(kind jwtx.Kind) (*jwtx.Codec, error) {
	switch kind {
	case jwtx.KindStandard:
		return k.Session, nil
	case jwtx.KindAgent:
		return k.Agent, nil
	default:
		return nil, fmt.Errorf("unknown token kind %q", kind)
	}
}
