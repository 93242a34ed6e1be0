// Package handlers provides Telnet session handling and command processing.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/knw/internal/frontend/telnet"
	"github.com/cory-johannsen/knw/internal/storage/postgres"
)

// AccountStore defines the account persistence operations used by the
// Telnet frontend.
type AccountStore interface {
	Create(ctx context.Context, username, password string) (postgres.Account, error)
	Authenticate(ctx context.Context, username, password string) (postgres.Account, error)
	GetByUsername(ctx context.Context, username string) (postgres.Account, error)
	SetRole(ctx context.Context, accountID int64, role string) error
	ChangePassword(ctx context.Context, username, current, next string) error
}

const welcomeBanner = "\r\n" + telnet.Bold + telnet.BrightYellow + `  KINGDOMS & WARFARE` + telnet.Reset + "\r\n" +
	telnet.Dim + `  Organization and warfare unit sheets` + telnet.Reset + "\r\n\r\n" +
	`  Type ` + telnet.Green + `login <username> [password]` + telnet.Reset + ` to connect.` + "\r\n" +
	`  Type ` + telnet.Green + `register <username> <password>` + telnet.Reset + ` to create an account.` + "\r\n" +
	`  Type ` + telnet.Green + `quit` + telnet.Reset + ` to disconnect.` + "\r\n\r\n"

// AuthHandler implements telnet.SessionHandler: it authenticates the client
// and then runs the sheet command loop.
type AuthHandler struct {
	accounts AccountStore
	svc      Services
	logger   *zap.Logger
}

// NewAuthHandler creates an AuthHandler.
//
// Precondition: accounts and logger must be non-nil; svc must be fully populated.
func NewAuthHandler(accounts AccountStore, svc Services, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{accounts: accounts, svc: svc, logger: logger}
}

// HandleSession implements telnet.SessionHandler.
//
// Postcondition: Returns nil on clean quit, or an error if the session ended abnormally.
func (h *AuthHandler) HandleSession(ctx context.Context, conn *telnet.Conn) error {
	start := time.Now()
	addr := conn.RemoteAddr().String()

	if err := conn.Write([]byte(welcomeBanner)); err != nil {
		return fmt.Errorf("sending welcome: %w", err)
	}

	for {
		if ctx.Err() != nil {
			_ = conn.WriteLine(telnet.Colorize(telnet.Yellow, "Server shutting down. Goodbye!"))
			return ctx.Err()
		}

		line, err := conn.Ask(telnet.Colorize(telnet.BrightWhite, "> "))
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "quit", "exit":
			_ = conn.WriteLine(telnet.Colorize(telnet.Cyan, "Goodbye!"))
			h.logger.Info("client quit",
				zap.String("remote_addr", addr),
				zap.Duration("session_duration", time.Since(start)),
			)
			return nil

		case "login":
			acct, err := h.handleLogin(ctx, conn, args)
			if err != nil {
				return err
			}
			if acct.ID == 0 {
				continue
			}
			h.logger.Info("user logged in",
				zap.String("remote_addr", addr),
				zap.String("username", acct.Username),
				zap.String("role", acct.Role),
				zap.Duration("login_time", time.Since(start)),
			)
			return h.play(ctx, conn, acct)

		case "register":
			h.handleRegister(ctx, conn, args)

		case "help":
			h.showHelp(conn)

		default:
			_ = conn.WriteLine(telnet.Colorf(telnet.Red, "Unknown command: %s. Type 'help' for available commands.", cmd))
		}
	}
}

// handleLogin authenticates a user. Without a password argument the
// password is read with echo suppressed.
//
// Postcondition: Returns (acct, nil) on success, (postgres.Account{}, nil) if the error was
// shown to the user and the auth loop should continue, or a non-nil error on connection failure.
func (h *AuthHandler) handleLogin(ctx context.Context, conn *telnet.Conn, args []string) (postgres.Account, error) {
	if len(args) < 1 || len(args) > 2 {
		_ = conn.WriteLine(telnet.Colorize(telnet.Red, "Usage: login <username> [password]"))
		return postgres.Account{}, nil
	}
	username := args[0]
	var password string
	if len(args) == 2 {
		password = args[1]
	} else {
		if err := conn.WritePrompt("Password: "); err != nil {
			return postgres.Account{}, err
		}
		p, err := conn.ReadPassword()
		if err != nil {
			return postgres.Account{}, fmt.Errorf("reading password: %w", err)
		}
		password = strings.TrimSpace(p)
	}

	start := time.Now()
	acct, err := h.accounts.Authenticate(ctx, username, password)
	elapsed := time.Since(start)

	switch {
	case err == nil:
	case errors.Is(err, postgres.ErrAccountNotFound):
		_ = conn.WriteLine(telnet.Colorize(telnet.Red, "Account not found. Use 'register' to create one."))
		return postgres.Account{}, nil
	case errors.Is(err, postgres.ErrInvalidCredentials):
		_ = conn.WriteLine(telnet.Colorize(telnet.Red, "Invalid password."))
		return postgres.Account{}, nil
	default:
		h.logger.Error("authentication error", zap.Error(err), zap.Duration("elapsed", elapsed))
		_ = conn.WriteLine(telnet.Colorize(telnet.Red, "An internal error occurred. Please try again."))
		return postgres.Account{}, nil
	}

	_ = conn.WriteLine(telnet.Colorf(telnet.BrightGreen, "Welcome back, %s! (%s)", acct.Username, acct.Role))
	return acct, nil
}

func (h *AuthHandler) handleRegister(ctx context.Context, conn *telnet.Conn, args []string) {
	if len(args) != 2 {
		_ = conn.WriteLine(telnet.Colorize(telnet.Red, "Usage: register <username> <password>"))
		return
	}
	username, password := args[0], args[1]
	if len(username) < 3 || len(username) > 32 {
		_ = conn.WriteLine(telnet.Colorize(telnet.Red, "Username must be 3-32 characters."))
		return
	}
	if len(password) < 6 {
		_ = conn.WriteLine(telnet.Colorize(telnet.Red, "Password must be at least 6 characters."))
		return
	}

	acct, err := h.accounts.Create(ctx, username, password)
	if err != nil {
		if errors.Is(err, postgres.ErrAccountExists) {
			_ = conn.WriteLine(telnet.Colorize(telnet.Red, "That username is already taken."))
			return
		}
		h.logger.Error("registration error", zap.Error(err))
		_ = conn.WriteLine(telnet.Colorize(telnet.Red, "An internal error occurred. Please try again."))
		return
	}
	_ = conn.WriteLine(telnet.Colorf(telnet.BrightGreen, "Account created: %s. You may now 'login'.", acct.Username))
}

func (h *AuthHandler) showHelp(conn *telnet.Conn) {
	_ = conn.WriteLines([]string{
		telnet.Colorize(telnet.BrightWhite, "Available commands:"),
		telnet.PadRight(telnet.Colorize(telnet.Green, "  login <username> [password]"), 34) + "Log in to your account",
		telnet.PadRight(telnet.Colorize(telnet.Green, "  register <username> <password>"), 34) + "Create a new account",
		telnet.PadRight(telnet.Colorize(telnet.Green, "  help"), 34) + "Show this help",
		telnet.PadRight(telnet.Colorize(telnet.Green, "  quit"), 34) + "Disconnect",
	})
}
