// Command wcdemo exercises the wcbridge connector end to end: it starts
// an in-process relay, constructs a dApp-side session with New and
// Options.Bridge, prints the handshake URI that would be shown as a QR
// code, then passes that same URI to New as Options.URI to stand in for
// the wallet, and drives
// one createSession -> approveSession round trip.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/katzenpost/wcbridge"
	"github.com/katzenpost/wcbridge/config"
	wccrypto "github.com/katzenpost/wcbridge/crypto"
)

func main() {
	root := &cobra.Command{
		Use:   "wcdemo",
		Short: "Drive one wcbridge session handshake against an in-process relay",
		RunE:  runDemo,
	}
	root.Flags().Duration("timeout", 10*time.Second, "how long to wait for the handshake to complete")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "wcdemo:", err)
		os.Exit(1)
	}
}

func runDemo(cmd *cobra.Command, _ []string) error {
	timeout, err := cmd.Flags().GetDuration("timeout")
	if err != nil {
		return err
	}

	relay, err := newDemoRelay()
	if err != nil {
		return fmt.Errorf("start relay: %w", err)
	}
	defer relay.close()

	cfg := config.Default()

	dapp, err := wcbridge.New(wcbridge.Options{
		Bridge:     relay.addr(),
		Crypto:     wccrypto.New(),
		ClientMeta: wcbridge.ClientMeta{Name: "wcdemo-dapp", URL: "https://example.invalid"},
		Config:     cfg,
	})
	if err != nil {
		return fmt.Errorf("construct dApp session: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := dapp.Open(ctx); err != nil {
		return fmt.Errorf("open dApp transport: %w", err)
	}
	defer dapp.Close()

	connected := make(chan interface{}, 1)
	dapp.On("connect", func(_ string, payload interface{}) {
		connected <- payload
	})

	if err := dapp.CreateSession(); err != nil {
		return fmt.Errorf("createSession: %w", err)
	}

	uri := dapp.URI()
	fmt.Println("handshake URI (display as a QR code for the wallet to scan):")
	fmt.Println("  " + uri)

	wallet, err := wcbridge.New(wcbridge.Options{
		URI:        uri,
		Crypto:     wccrypto.New(),
		ClientMeta: wcbridge.ClientMeta{Name: "wcdemo-wallet"},
		Config:     cfg,
	})
	if err != nil {
		return fmt.Errorf("construct wallet session: %w", err)
	}

	walletApproved := make(chan struct{})
	wallet.On("wc_sessionRequest", func(_ string, _ interface{}) {
		if err := wallet.ApproveSession(wcbridge.SessionStatus{
			ChainID:  1,
			Accounts: []string{"0xdeadbeef"},
		}); err != nil {
			fmt.Fprintln(os.Stderr, "wcdemo: approveSession:", err)
		}
		close(walletApproved)
	})

	if err := wallet.Open(ctx); err != nil {
		return fmt.Errorf("open wallet transport: %w", err)
	}
	defer wallet.Close()

	select {
	case payload := <-connected:
		fmt.Printf("dApp connected: %+v\n", payload)
	case <-ctx.Done():
		return fmt.Errorf("timed out waiting for handshake: %w", ctx.Err())
	}

	select {
	case <-walletApproved:
	case <-ctx.Done():
		return fmt.Errorf("timed out waiting for wallet approval: %w", ctx.Err())
	}

	fmt.Println("session established; clientId:", dapp.ClientID(), "peer clientId:", wallet.ClientID())
	return nil
}
