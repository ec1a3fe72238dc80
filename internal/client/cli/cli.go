// Package cli реализует команды административного клиента.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/iudanet/custadmin/internal/client/api"
	"github.com/iudanet/custadmin/internal/client/auth"
	"github.com/iudanet/custadmin/internal/client/iocli"
	pkgapi "github.com/iudanet/custadmin/pkg/api"
)

// API часть HTTP клиента, нужная командам
type API interface {
	auth.Authenticator
	Me(ctx context.Context, token string) (*pkgapi.Account, error)
	CreateAPIKey(ctx context.Context, token string, req pkgapi.CreateAPIKeyRequest) (*pkgapi.CreateAPIKeyResponse, error)
	ListAPIKeys(ctx context.Context, token string) ([]pkgapi.APIKey, error)
	RevokeAPIKey(ctx context.Context, token, id string) error
	ListCustomers(ctx context.Context, token string, limit, offset int) ([]pkgapi.Customer, error)
}

// Cli разбирает и выполняет команды
type Cli struct {
	io          iocli.IO
	apiClient   API
	authService *auth.Service
}

func New(stdio iocli.IO, apiClient API, authService *auth.Service) *Cli {
	return &Cli{
		io:          stdio,
		apiClient:   apiClient,
		authService: authService,
	}
}

// Run выполняет команду args[0] с остальными аргументами
func (c *Cli) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		PrintUsage(c.io)
		return errors.New("no command given")
	}

	command, rest := args[0], args[1:]
	switch command {
	case "register":
		return c.runRegister(ctx)
	case "login":
		return c.runLogin(ctx)
	case "logout":
		return c.runLogout(ctx)
	case "status":
		return c.runStatus(ctx)
	case "whoami":
		return c.runWhoAmI(ctx)
	case "keys":
		return c.runKeys(ctx, rest)
	case "customers":
		return c.runCustomers(ctx, rest)
	case "help", "-h", "--help":
		PrintUsage(c.io)
		return nil
	default:
		PrintUsage(c.io)
		return fmt.Errorf("unknown command: %s", command)
	}
}

// token возвращает токен текущей сессии
func (c *Cli) token(ctx context.Context) (string, error) {
	session, err := c.authService.Current(ctx)
	if err != nil {
		return "", err
	}
	return session.Token, nil
}

// serverError переводит 401 от сервера в понятное сообщение
func serverError(err error) error {
	if errors.Is(err, api.ErrUnauthorized) {
		return fmt.Errorf("session rejected by server, please run 'custadmin-cli login': %w", err)
	}
	return err
}

func PrintUsage(w io.Writer) {
	_, _ = fmt.Fprint(w, `Custadmin Admin CLI

Usage:
  custadmin-cli [OPTIONS] COMMAND

Options:
  -version        Show version information
  -server URL     Server URL (default: http://localhost:8080)
  -db PATH        Path to local session database (default: custadmin-cli.db)

Commands:
  register                          Register a new account and log in
  login                             Log in to the server
  logout                            Delete the local session
  status                            Show session status
  whoami                            Show the account of the current session
  keys create NAME [-expires 720h]  Create an API key (shown once)
  keys list                         List your API keys
  keys revoke ID                    Revoke an API key
  customers list [-limit N] [-offset N]
                                    List customers

Examples:
  custadmin-cli -server https://admin.example.com login
  custadmin-cli keys create crm-sync -expires 720h
`)
}
