package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/custadmin/internal/client/auth"
	"github.com/iudanet/custadmin/internal/validation"
	"github.com/iudanet/custadmin/pkg/api"
)

func (c *Cli) runRegister(ctx context.Context) error {
	c.io.Println("=== Registration ===")
	c.io.Println()

	username, err := c.io.ReadInput("Username: ")
	if err != nil {
		return fmt.Errorf("failed to read username: %w", err)
	}
	email, err := c.io.ReadInput("Email: ")
	if err != nil {
		return fmt.Errorf("failed to read email: %w", err)
	}
	password, err := c.io.ReadPassword("Password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	confirm, err := c.io.ReadPassword("Confirm password: ")
	if err != nil {
		return fmt.Errorf("failed to read confirmation: %w", err)
	}
	if password != confirm {
		return errors.New("passwords do not match")
	}

	// проверяем локально, чтобы не гонять заведомо плохой запрос
	if err := validation.Register(&api.RegisterRequest{Username: username, Email: email, Password: password}); err != nil {
		return fmt.Errorf("invalid input: %w", err)
	}

	session, err := c.authService.Register(ctx, username, email, password)
	if err != nil {
		return err
	}

	c.io.Println()
	c.io.Println("✓ Registration successful!")
	c.io.Printf("User ID: %s\n", session.UserID)
	c.io.Printf("Role: %s\n", session.Role)
	c.io.Printf("Session expires: %s\n", session.ExpiresAt.Local().Format(time.RFC3339))
	return nil
}

func (c *Cli) runLogin(ctx context.Context) error {
	c.io.Println("=== Login ===")
	c.io.Println()

	username, err := c.io.ReadInput("Username: ")
	if err != nil {
		return fmt.Errorf("failed to read username: %w", err)
	}
	password, err := c.io.ReadPassword("Password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	session, err := c.authService.Login(ctx, username, password)
	if err != nil {
		return err
	}

	c.io.Println()
	c.io.Println("✓ Login successful!")
	c.io.Printf("Username: %s\n", session.Username)
	c.io.Printf("Session expires: %s\n", session.ExpiresAt.Local().Format(time.RFC3339))
	return nil
}

func (c *Cli) runLogout(ctx context.Context) error {
	if err := c.authService.Logout(ctx); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}
	c.io.Println("✓ Logout successful!")
	c.io.Println("Your local session has been deleted.")
	return nil
}

func (c *Cli) runStatus(ctx context.Context) error {
	c.io.Println("=== Session Status ===")

	session, err := c.authService.Stored(ctx)
	if errors.Is(err, auth.ErrNotAuthenticated) {
		c.io.Println("Status: Not authenticated")
		c.io.Println("Run 'custadmin-cli login' to authenticate.")
		return nil
	}
	if err != nil {
		return err
	}

	c.io.Printf("Username: %s\n", session.Username)
	c.io.Printf("Role: %s\n", session.Role)
	c.io.Printf("Token expires: %s\n", session.ExpiresAt.Local().Format(time.RFC3339))

	if remaining := time.Until(session.ExpiresAt); remaining > 0 {
		c.io.Println("Status: Authenticated")
		c.io.Printf("Time remaining: %s\n", remaining.Round(time.Second))
	} else {
		c.io.Println("Status: Expired")
		c.io.Println("⚠️  Token has expired. Please login again.")
	}
	return nil
}

func (c *Cli) runWhoAmI(ctx context.Context) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	account, err := c.apiClient.Me(ctx, token)
	if err != nil {
		return serverError(err)
	}

	c.io.Printf("ID:       %s\n", account.ID)
	c.io.Printf("Username: %s\n", account.Username)
	c.io.Printf("Email:    %s\n", account.Email)
	c.io.Printf("Role:     %s\n", account.Role)
	return nil
}
