package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/plgd-dev/go-coap/v3/message"
	"github.com/plgd-dev/go-coap/v3/message/codes"
	"github.com/rs/zerolog/log"
)

// provisionIdentity is the well-known DTLS identity used together with the
// security code for the one-time credential exchange.
const provisionIdentity = "Client_identity"

// Credentials are the per-application identity and pre-shared key issued by
// the gateway in exchange for the security code. They are persisted so the
// code printed on the device label is only needed once.
type Credentials struct {
	Identity string `json:"identity"`
	PSK      string `json:"psk"`
}

type provisionRequest struct {
	Identity string `json:"9090"`
}

type provisionResponse struct {
	PSK      string `json:"9091"`
	Firmware string `json:"9029,omitempty"`
}

// Provision performs the credential exchange: it authenticates with the
// security code, registers identity with the gateway and returns the
// pre-shared key minted for it. The session is discarded afterwards, callers
// reconnect with the returned credentials.
func Provision(ctx context.Context, host string, port int, securityCode, identity string) (Credentials, error) {
	if port == 0 {
		port = DefaultPort
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	conn, err := dialDTLS(ctx, addr, provisionIdentity, securityCode)
	if err != nil {
		return Credentials{}, fmt.Errorf("dial gateway %s: %w", addr, err)
	}
	defer func() {
		_ = conn.Close()
	}()

	payload, err := json.Marshal(provisionRequest{Identity: identity})
	if err != nil {
		return Credentials{}, err
	}

	resp, err := conn.Post(ctx, uriProvision, message.AppJSON, bytes.NewReader(payload))
	if err != nil {
		return Credentials{}, fmt.Errorf("post %s: %w", uriProvision, err)
	}
	if resp.Code() != codes.Created {
		return Credentials{}, fmt.Errorf("post %s: unexpected response code %v", uriProvision, resp.Code())
	}

	body, err := resp.ReadBody()
	if err != nil {
		return Credentials{}, fmt.Errorf("read provision response: %w", err)
	}
	var doc provisionResponse
	if err := json.Unmarshal(body, &doc); err != nil {
		return Credentials{}, fmt.Errorf("decode provision response: %w", err)
	}
	if doc.PSK == "" {
		return Credentials{}, errors.New("gateway returned empty pre-shared key")
	}

	log.Info().
		Str("identity", identity).
		Str("gateway_firmware", doc.Firmware).
		Msg("Provisioned new gateway credentials")
	return Credentials{Identity: identity, PSK: doc.PSK}, nil
}
