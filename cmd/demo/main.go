// Demo wiring: an in-process resource backend whose bearer tokens
// expire after a few requests, a token-minting identity provider, and a
// session manager + resource store on top. Run it to watch the
// guarded-call refresh happen on a live HTTP round trip.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-session-sync/apiclient"
	"github.com/jrsteele09/go-session-sync/internal/config"
	"github.com/jrsteele09/go-session-sync/notify"
	"github.com/jrsteele09/go-session-sync/resources"
	"github.com/jrsteele09/go-session-sync/session"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error running demo: %s\n", err)
	}
	log.Printf("Demo finished\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	displayAppname(c.GetAppName())

	authority := newTokenAuthority(3) // each token survives three requests
	backendURL, stopBackend, err := startBackend(authority)
	if err != nil {
		return fmt.Errorf("startBackend: %w", err)
	}
	defer stopBackend()

	provider := newDemoProvider(authority)
	manager, err := session.NewManager(provider,
		session.WithNavigate(func() { log.Printf("redirecting to sign-in\n") }),
	)
	if err != nil {
		return fmt.Errorf("session.NewManager: %w", err)
	}
	defer manager.Close()

	client, err := apiclient.New(backendURL, c.GetResourcePath(),
		apiclient.WithTimeout(c.GetRequestTimeout()),
	)
	if err != nil {
		return fmt.Errorf("apiclient.New: %w", err)
	}

	store, err := resources.NewStore(resources.Deps{
		Session:  manager,
		Client:   client,
		Notifier: notify.LogNotifier{},
	})
	if err != nil {
		return fmt.Errorf("resources.NewStore: %w", err)
	}
	defer store.Close()

	// Signing in triggers the initial collection load.
	provider.signIn("demo-user")

	ctx := context.Background()
	var createdID string
	if err := store.Create(ctx, resources.Attributes{"name": "first"}, resources.Callbacks{
		OnSuccess: func() { createdID = store.Snapshot()[0].ID },
	}); err != nil {
		return fmt.Errorf("store.Create: %w", err)
	}

	// Burn through the token's remaining uses so the next mutation
	// exercises the refresh-and-retry path.
	_ = store.Load(ctx)
	_ = store.Load(ctx)

	if err := store.Update(ctx, createdID, resources.Attributes{"name": "renamed"}, resources.Callbacks{}); err != nil {
		return fmt.Errorf("store.Update: %w", err)
	}
	if err := store.Destroy(ctx, createdID, resources.Callbacks{}); err != nil {
		return fmt.Errorf("store.Destroy: %w", err)
	}

	log.Printf("collection state: %s, %d resource(s)\n", store.State(), len(store.Snapshot()))
	return nil
}

func startBackend(authority *tokenAuthority) (baseURL string, stop func(), err error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, fmt.Errorf("net.Listen: %w", err)
	}

	server := &http.Server{Handler: newBackendHandler(authority)}
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("backend stopped: %v\n", err)
		}
	}()

	stop = func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}
	return fmt.Sprintf("http://%s", listener.Addr()), stop, nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
