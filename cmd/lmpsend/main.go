// lmpsend sends one LMP packet to admiral the way a scheduling client does:
// connect, write [to, from, data...], and treat a close without a response
// as accepted.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/danmuck/admiral/internal/config"
	"github.com/danmuck/admiral/internal/endpoint"
	"github.com/danmuck/admiral/internal/logging"
	"github.com/danmuck/admiral/internal/protocol/frame"
	"github.com/danmuck/admiral/internal/protocol/packet"
	"github.com/spf13/pflag"
)

var (
	ErrRejected       = errors.New("lmpsend: admiral rejected the packet")
	ErrUnknownName    = errors.New("lmpsend: unknown endpoint")
	ErrPayloadTooLong = errors.New("lmpsend: data too long")
)

type options struct {
	Admiral   string
	Bind      string
	From      string
	To        string
	Data      string
	Endpoints string
	Wait      time.Duration
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "lmpsend: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	logging.ConfigureRuntime()

	var opts options
	flagSet := pflag.NewFlagSet("lmpsend", pflag.ContinueOnError)
	flagSet.StringVarP(&opts.Admiral, "admiral", "a", "100.109.120.90:5321", "admiral host:port")
	flagSet.StringVarP(&opts.Bind, "bind", "b", "", "local host:port to send from (the registered address of --from)")
	flagSet.StringVarP(&opts.From, "from", "f", "scheduler", "sender endpoint name or id")
	flagSet.StringVarP(&opts.To, "to", "t", "hotel", "destination endpoint name or id")
	flagSet.StringVarP(&opts.Data, "data", "d", "", "message data")
	flagSet.StringVarP(&opts.Endpoints, "endpoints", "e", "", "path to endpoints.toml for name lookup")
	flagSet.DurationVarP(&opts.Wait, "wait", "w", time.Second, "how long to wait for an INVALID response")
	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	entries, err := config.LoadEndpoints(opts.Endpoints)
	if err != nil {
		return err
	}
	reg, err := endpoint.NewRegistry(entries)
	if err != nil {
		return err
	}
	from, err := parseIdentity(opts.From, reg)
	if err != nil {
		return err
	}
	to, err := parseIdentity(opts.To, reg)
	if err != nil {
		return err
	}
	payload, err := buildPayload(to, from, opts.Data)
	if err != nil {
		return err
	}

	if err := send(context.Background(), opts, payload); err != nil {
		return err
	}
	logging.Log("lmpsend", fmt.Sprintf("sent %d bytes %s -> %s", len(payload), reg.Name(from), reg.Name(to)), logging.Info)
	return nil
}

// parseIdentity accepts a registered name or a raw identity byte.
func parseIdentity(raw string, reg *endpoint.Registry) (endpoint.Identity, error) {
	raw = strings.TrimSpace(raw)
	if e, ok := reg.ByName(raw); ok {
		return e.ID, nil
	}
	n, err := strconv.ParseUint(raw, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnknownName, raw)
	}
	return endpoint.Identity(n), nil
}

func buildPayload(to, from endpoint.Identity, data string) ([]byte, error) {
	if len(data) == 0 {
		data = string([]byte{packet.PayloadEmpty})
	}
	if 2+len(data) > packet.MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes, max %d", ErrPayloadTooLong, len(data), packet.MaxPayloadSize-2)
	}
	payload := make([]byte, 0, 2+len(data))
	payload = append(payload, byte(to), byte(from))
	return append(payload, data...), nil
}

func send(ctx context.Context, opts options, payload []byte) error {
	d := net.Dialer{Timeout: 5 * time.Second}
	if strings.TrimSpace(opts.Bind) != "" {
		local, err := net.ResolveTCPAddr("tcp", opts.Bind)
		if err != nil {
			return fmt.Errorf("bind %q: %w", opts.Bind, err)
		}
		d.LocalAddr = local
	}
	conn, err := d.DialContext(ctx, "tcp", opts.Admiral)
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := frame.WritePacket(conn, packet.New(payload)); err != nil {
		return err
	}

	if opts.Wait <= 0 {
		return nil
	}
	_ = conn.SetReadDeadline(time.Now().Add(opts.Wait))
	resp, err := frame.ReadPacket(conn, make([]byte, packet.MaxPacketSize))
	if err != nil {
		// Closed or silent: admiral accepted the packet.
		if errors.Is(err, packet.ErrBadInput) {
			return nil
		}
		return fmt.Errorf("lmpsend: unreadable response: %w", err)
	}
	if resp.IsInvalid() {
		return ErrRejected
	}
	return nil
}
