package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/angelmondragon/fitconnect-client/internal/notifications"
	"github.com/angelmondragon/fitconnect-client/internal/session"
	"github.com/angelmondragon/fitconnect-client/pkg/config"
	pkgerrors "github.com/angelmondragon/fitconnect-client/pkg/errors"
	"github.com/angelmondragon/fitconnect-client/pkg/logger"
	"github.com/joho/godotenv"
)

const usage = `usage: fitconnect <command> [arguments]

commands:
  cart show                         list the cart
  cart add -id N -name S -price P   add a product (-qty, -size, -image optional)
  cart set <productId> <quantity>   change a quantity
  cart size <productId> <size>      change a size
  cart remove <productId>           remove a line
  cart clear                        empty the cart
  cart pull                         replace the cart with the one saved on the server
  checkout                          place an order interactively
  orders                            list your orders
  whoami                            show the signed-in account`

func main() {
	// logs go to stderr so stdout stays readable
	logg := logger.New(logger.Options{ServiceName: "fitconnect", Output: os.Stderr})

	if err := godotenv.Load(); err != nil {
		logg.Debug(context.Background(), ".env file not found, relying on environment")
	}

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "fitconnect",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
		Output:      os.Stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, cfg, logg, os.Args[1:], os.Stdin, &lockedWriter{w: os.Stdout})
	stop()
	os.Exit(code)
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger, args []string, in io.Reader, out io.Writer) int {
	command := args[0]
	if command == "whoami" {
		return exitCode(out, runWhoami(cfg, out))
	}
	if command == "help" || command == "-h" || command == "--help" {
		fmt.Fprintln(out, usage)
		return 0
	}

	s, err := session.Bootstrap(ctx, cfg, logg, printer(out))
	if err != nil {
		logg.Error(ctx, "failed to start session", err)
		fmt.Fprintln(out, "error: could not start the client, see the log for details")
		return 1
	}
	defer func() {
		if err := s.Close(); err != nil {
			logg.Error(ctx, "error closing session", err)
		}
	}()

	switch command {
	case "cart":
		err = runCart(ctx, s, args[1:], out)
	case "checkout":
		err = runCheckout(ctx, s, in, out)
	case "orders":
		err = runOrders(ctx, s, out)
	default:
		fmt.Fprintln(out, usage)
		return 2
	}
	return exitCode(out, err)
}

func exitCode(out io.Writer, err error) int {
	if err == nil {
		return 0
	}
	fmt.Fprintln(out, "error:", pkgerrors.UserMessage(err))
	return 1
}

// printer shows notices inline with command output.
func printer(out io.Writer) notifications.Notifier {
	return notifications.Func(func(n notifications.Notice) {
		fmt.Fprintf(out, "%s %s\n", marker(n.Level), n.Message)
	})
}

func marker(level notifications.Level) string {
	switch level {
	case notifications.LevelSuccess:
		return "[ok]"
	case notifications.LevelWarning:
		return "[warn]"
	case notifications.LevelBlocking:
		return "[!!]"
	default:
		return "[info]"
	}
}

// lockedWriter serialises writes from the countdown goroutine and the prompt
// loop.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
