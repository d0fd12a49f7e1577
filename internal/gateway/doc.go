// Package gateway provides a custom Tradfri gateway client.
//
// This is a hand-written implementation because there is currently no
// publicly available, maintained Go library that covers the gateway's CoAP
// surface: DTLS-PSK transport, observe subscriptions for push updates, and
// the one-time key provisioning exchange.
//
// Transport is delegated to plgd-dev/go-coap over pion/dtls; this package
// only maps the gateway's numeric attribute documents onto the adapter
// model and may be replaced with a third-party library in the future if
// one becomes available with proper observe support.
//
// The gateway listens on UDP port 5684 and authenticates clients with a
// pre-shared key obtained via Provision from the security code printed on
// the device label.
package gateway
