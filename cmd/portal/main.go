// File: cmd/portal/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log" // Standard log for critical startup/shutdown messages before/after zap is active
	"os"
	"os/signal"
	"syscall"

	"auth_portal/internal/auth"
	"auth_portal/internal/config"
)

const usage = `usage: portal <command> [flags]

commands:
  serve                              run the web portal (default)
  login    -username u -password p   log in and store the session
  register -username u -password p   create an account
  logout                             revoke and clear the stored session
  refresh                            trade the refresh token for a new pair
  status                             print whether a session is stored
  whoami                             print the backend's view of the caller
`

func main() {
	cmd := "serve"
	args := os.Args[1:]
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	if cmd == "serve" {
		startServer(cfg)
		return
	}

	if err := runCommand(cfg, cmd, args, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func startServer(cfg *config.Config) {
	server, cleanup, err := initializeServer(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize server: %v", err)
	}
	defer cleanup()

	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("FATAL: Server failed to start or crashed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Printf("INFO: Received signal '%s'. Shutting down server...", sig)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ServerTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: Server forced to shutdown due to error: %v", err)
	} else {
		log.Println("INFO: Server shutdown complete.")
	}
}

// runCommand executes one session operation against the persisted store,
// printing its result to out.
func runCommand(cfg *config.Config, cmd string, args []string, out io.Writer) error {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	username := fs.String("username", "", "account username")
	password := fs.String("password", "", "account password")
	fs.Usage = func() { fmt.Fprint(fs.Output(), usage) }

	switch cmd {
	case "login", "register", "logout", "refresh", "status", "whoami":
	case "help", "-h", "--help":
		fmt.Fprint(out, usage)
		return nil
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	sess, cleanup, err := initializeSession(cfg)
	if err != nil {
		return fmt.Errorf("initialize session: %w", err)
	}
	defer cleanup()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	return dispatch(ctx, out, sess, cmd, *username, *password)
}

func dispatch(ctx context.Context, out io.Writer, sess *auth.Session, cmd, username, password string) error {
	switch cmd {
	case "login":
		if username == "" || password == "" {
			return errors.New("login requires -username and -password")
		}
		if err := sess.Login(ctx, username, password); err != nil {
			return errors.New(auth.LoginErrorMessage(err))
		}
		fmt.Fprintf(out, "Logged in as %s\n", username)

	case "register":
		if username == "" || password == "" {
			return errors.New("register requires -username and -password")
		}
		if err := sess.Register(ctx, username, password); err != nil {
			return errors.New(auth.RegisterErrorMessage(err))
		}
		fmt.Fprintln(out, "Registration successful! You can now log in.")

	case "logout":
		if !sess.IsLoggedIn() {
			fmt.Fprintln(out, "Not logged in.")
			return nil
		}
		if err := sess.Logout(ctx); err != nil {
			return fmt.Errorf("logout failed: %w", err)
		}
		fmt.Fprintln(out, "Logged out.")

	case "refresh":
		if err := sess.Refresh(ctx); err != nil {
			return fmt.Errorf("refresh failed: %w", err)
		}
		fmt.Fprintln(out, "Session refreshed.")

	case "status":
		if !sess.IsLoggedIn() {
			fmt.Fprintln(out, "Not logged in.")
			return nil
		}
		if sub := sess.Subject(); sub != "" {
			fmt.Fprintf(out, "Logged in as %s\n", sub)
		} else {
			fmt.Fprintln(out, "Logged in.")
		}

	case "whoami":
		me, err := sess.Client().CurrentUser(ctx)
		if errors.Is(err, auth.ErrSessionExpired) {
			return errors.New("session expired, please log in again")
		}
		if err != nil {
			return err
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(me)
	}
	return nil
}
