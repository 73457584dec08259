package relaytest_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/slipwire-dev/slipwire/pkg/relay"
	"github.com/slipwire-dev/slipwire/pkg/relay/relaytest"
	"github.com/slipwire-dev/slipwire/pkg/relay/token"
	"github.com/slipwire-dev/slipwire/pkg/wire"
)

func TestServerAnswersOverWebsocket(t *testing.T) {
	var s relaytest.Script
	s.Routes = []relaytest.Route{{Method: "GET", Path: "/test1", Status: 200, Body: "124"}}

	srv := &relaytest.Server{Handler: s.Handler()}
	url, stop := srv.Start()
	defer stop()

	d := &relay.WebsocketDialer{}
	conn, err := d.Dial(context.Background(), url, relay.ConnectOptions{ConnectTimeout: time.Second})
	require.NoError(t, err)
	defer conn.Close()

	tok := uuid.New()
	require.NoError(t, conn.Send(context.Background(), wire.Request{Token: tok, Method: wire.GET, Path: "/test1"}))

	var got []wire.Notification
	for len(got) < 2 {
		select {
		case n, ok := <-conn.Notifications():
			require.True(t, ok, "stream closed before the response completed")
			got = append(got, n)
		case <-time.After(3 * time.Second):
			t.Fatal("timed out collecting the response")
		}
	}
	require.Equal(t, wire.KindHead, got[0].Kind)
	require.Equal(t, tok, got[0].Token)
	require.Equal(t, wire.KindBody, got[1].Kind)
	require.Equal(t, "124", string(got[1].Data))
}

func TestServerAuth(t *testing.T) {
	privPEM, pubPEM := generateKeyPair(t)
	issuer, err := token.NewIssuer(privPEM)
	require.NoError(t, err)
	validator, err := token.NewValidator(pubPEM)
	require.NoError(t, err)

	clientID := uuid.New()
	var s relaytest.Script
	srv := &relaytest.Server{
		Handler:   s.Handler(),
		Validator: validator,
		Subject:   clientID.String(),
	}
	url, stop := srv.Start()
	defer stop()

	t.Run("missing token rejected", func(t *testing.T) {
		d := &relay.WebsocketDialer{}
		_, err := d.Dial(context.Background(), url, relay.ConnectOptions{ConnectTimeout: time.Second})
		require.Error(t, err)
	})

	t.Run("garbage token rejected", func(t *testing.T) {
		d := &relay.WebsocketDialer{AuthToken: "garbage"}
		_, err := d.Dial(context.Background(), url, relay.ConnectOptions{ConnectTimeout: time.Second})
		require.Error(t, err)
	})

	t.Run("valid token accepted", func(t *testing.T) {
		bearer, _, err := issuer.IssueToken(clientID, time.Minute)
		require.NoError(t, err)

		d := &relay.WebsocketDialer{AuthToken: bearer}
		conn, err := d.Dial(context.Background(), url, relay.ConnectOptions{ConnectTimeout: time.Second})
		require.NoError(t, err)
		require.NoError(t, conn.Close())
	})
}

func generateKeyPair(t *testing.T) (privPEM, pubPEM []byte) {
	t.Helper()

	privPEM, pubPEM, err := token.GenerateKeyPair()
	require.NoError(t, err)
	return privPEM, pubPEM
}
