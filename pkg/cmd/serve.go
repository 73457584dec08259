package cmd

import (
	"context"
	"errors"
	"fmt"
	stdlog "log"
	"net"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/slipwire-dev/slipwire/pkg/log"
	"github.com/slipwire-dev/slipwire/pkg/relay/relaytest"
	"github.com/slipwire-dev/slipwire/pkg/relay/token"
	"github.com/slipwire-dev/slipwire/pkg/wire"
	"github.com/slipwire-dev/slipwire/pretty"
)

var (
	serveListen  string
	serveScript  string
	servePubKey  string
	serveSubject string
)

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "127.0.0.1:8787", "Address to listen on.")
	serveCmd.Flags().StringVar(&serveScript, "script", "", "YAML file with scripted routes.")
	serveCmd.Flags().StringVar(&servePubKey, "public-key", "", "PEM file with the public key bearer tokens must verify against.")
	serveCmd.Flags().StringVar(&serveSubject, "subject", "", "Subject bearer tokens must carry. Requires --public-key.")
	serveCmd.MarkFlagRequired("script")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a local scripted relay for development",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		script, err := relaytest.LoadScript(serveScript)
		if err != nil {
			return err
		}
		var cur atomic.Pointer[relaytest.Script]
		cur.Store(script)

		handler := func(ctx context.Context, req wire.Request, w *relaytest.ResponseWriter) error {
			pretty.PrintLn(time.Now(), req.Token.String()[:8], string(req.Method), req.Path)
			return cur.Load().Handler()(ctx, req, w)
		}

		srv := &relaytest.Server{Handler: handler}
		if servePubKey != "" {
			pubPEM, err := os.ReadFile(servePubKey)
			if err != nil {
				return fmt.Errorf("failed to read public key: %w", err)
			}
			srv.Validator, err = token.NewValidator(pubPEM)
			if err != nil {
				return err
			}
			srv.Subject = serveSubject
		}

		ln, err := net.Listen("tcp", serveListen)
		if err != nil {
			return err
		}
		hs := &http.Server{
			Handler:  srv,
			ErrorLog: stdlog.New(log.NewDefaultLogWriter(log.WarnLevel), "", 0),
		}

		started := time.Now()
		fmt.Printf("Serving %s on %s...\n", serveScript, ln.Addr())

		go func() {
			<-cmd.Context().Done()
			fmt.Printf("\r") // Clear the ^C
			fmt.Printf("Caught interrupt, shutting down...\n")
		}()

		g, gctx := errgroup.WithContext(cmd.Context())
		g.Go(func() error {
			if err := hs.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return hs.Shutdown(shutdownCtx)
		})
		g.Go(func() error {
			return watchAndReloadScript(gctx, serveScript, &cur)
		})

		err = g.Wait()
		fmt.Printf("Served for %s.\n", pretty.SinceString(started))
		return err
	},
}

// watchAndReloadScript watches the script file and swaps in updated routes
// when it changes. A script that no longer parses keeps the previous routes.
func watchAndReloadScript(ctx context.Context, path string, cur *atomic.Pointer[relaytest.Script]) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("failed to add file to watcher: %w", err)
	}

	fmt.Printf("Watching %s for changes...\n", path)

	reload := func() {
		script, err := relaytest.LoadScript(path)
		if err != nil {
			log.Warnf("ignoring script update: %v", err)
			return
		}
		cur.Store(script)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) {
				continue
			}
			fmt.Printf("Reloading routes from %s...\n", path)
			reload()
		case <-time.After(3 * time.Second):
			reload()
		case err := <-watcher.Errors:
			return err
		}
	}
}
