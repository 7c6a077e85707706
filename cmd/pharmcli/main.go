package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"

	"github.com/genroar/pharmacy-client/api"
	"github.com/genroar/pharmacy-client/client"
	"github.com/genroar/pharmacy-client/event"
	"github.com/genroar/pharmacy-client/internal/config"
	apierrors "github.com/genroar/pharmacy-client/internal/errors"
	"github.com/genroar/pharmacy-client/realtime"
	"github.com/genroar/pharmacy-client/session"
	"github.com/genroar/pharmacy-client/store"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %s\n", err)
	}
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	if len(os.Args) < 2 {
		usage()
		return errors.New("missing command")
	}

	c := config.New()
	displayAppname(c.GetAppName())

	logger := newLogger(c)
	st, err := store.NewFileStore(filepath.Join(c.GetDataDir(), "session.json"))
	if err != nil {
		return err
	}
	defer st.Close()

	bus := event.NewBus(logger)
	sess, err := session.NewManager(st, bus, logger)
	if err != nil {
		return err
	}
	defer sess.Close()

	cl, err := client.New(c, sess, bus, logger)
	if err != nil {
		return err
	}
	a := api.New(cl)

	ctx := context.Background()
	switch os.Args[1] {
	case "login":
		return cmdLogin(ctx, a)
	case "products":
		return cmdProducts(ctx, a)
	case "watch":
		return cmdWatch(ctx, c, sess, bus, logger)
	case "logout":
		a.Auth.Logout(ctx)
		return nil
	default:
		usage()
		return fmt.Errorf("unknown command %q", os.Args[1])
	}
}

func cmdLogin(ctx context.Context, a *api.API) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	fs.Parse(os.Args[2:])

	res, err := a.Auth.Login(ctx, api.Credentials{Email: *email, Password: *password})
	if err != nil {
		return err
	}
	if res.AccountDisabled {
		fmt.Printf("Account disabled: %s\n", res.Message)
		return nil
	}
	fmt.Printf("Logged in as %s %s (%s)\n", res.User.FirstName, res.User.LastName, res.User.Role)
	return nil
}

func cmdProducts(ctx context.Context, a *api.API) error {
	fs := flag.NewFlagSet("products", flag.ExitOnError)
	search := fs.String("search", "", "search term")
	limit := fs.Int("limit", 20, "page size")
	fs.Parse(os.Args[2:])

	list, err := a.Products.List(ctx, api.ListOptions{Search: *search, Limit: *limit})
	if err != nil {
		return err
	}
	for _, p := range list.Products {
		fmt.Printf("%-36s %-30s stock=%-5d %.2f\n", p.ID, p.Name, p.Stock, p.Price)
	}
	fmt.Printf("%d of %d products\n", len(list.Products), list.Pagination.Total)
	return nil
}

// cmdWatch follows the realtime channel and prints every data-change event
// until interrupted.
func cmdWatch(ctx context.Context, c config.Config, sess *session.Manager, bus *event.Bus, logger zerolog.Logger) error {
	unsubscribe := bus.Subscribe(func(ev event.Event) {
		switch ev.Type {
		case event.TypeAuthRequired:
			fmt.Printf("! session invalidated: %s\n", ev.Message)
		case event.TypeDataChanged:
			fmt.Printf("~ %s changed: %s\n", ev.Entity, ev.Message)
		default:
			fmt.Printf("* %s: %s\n", ev.Type, ev.Message)
		}
	}, event.TypeAuthRequired, event.TypeAccountDisabled, event.TypeAccountReactivated, event.TypeDataChanged)
	defer unsubscribe()

	ch, err := realtime.New(c, sess, bus, logger, realtime.WithReconnect(backoff.NewExponentialBackOff()))
	if err != nil {
		return err
	}

	go waitForStopSignal(ch)
	fmt.Println("Watching for backend events, Ctrl-C to stop")
	err = ch.Run(ctx)
	if errors.Is(err, apierrors.ErrChannelClosed) {
		return nil
	}
	return err
}

func waitForStopSignal(ch *realtime.Channel) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	ch.Close()
}

func newLogger(c config.Config) zerolog.Logger {
	level := zerolog.InfoLevel
	if c.GetDebug() {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}

func usage() {
	fmt.Println("usage: pharmcli <login|logout|products|watch> [flags]")
}
