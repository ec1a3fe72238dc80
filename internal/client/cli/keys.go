package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/iudanet/custadmin/pkg/api"
)

func (c *Cli) runKeys(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: keys create|list|revoke")
	}

	switch args[0] {
	case "create":
		return c.runKeyCreate(ctx, args[1:])
	case "list":
		return c.runKeyList(ctx)
	case "revoke":
		if len(args) != 2 {
			return errors.New("usage: keys revoke ID")
		}
		return c.runKeyRevoke(ctx, args[1])
	default:
		return fmt.Errorf("unknown keys subcommand: %s", args[0])
	}
}

func (c *Cli) runKeyCreate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("keys create", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	expires := fs.Duration("expires", 0, "key lifetime, 0 means no expiry")

	// флаги допускаются и до, и после имени
	if err := fs.Parse(args); err != nil {
		return err
	}
	name := fs.Arg(0)
	if fs.NArg() > 1 {
		if err := fs.Parse(fs.Args()[1:]); err != nil {
			return err
		}
		if fs.NArg() > 0 {
			return fmt.Errorf("unexpected arguments: %v", fs.Args())
		}
	}
	if name == "" {
		return errors.New("usage: keys create NAME [-expires 720h]")
	}
	if *expires < 0 {
		return errors.New("-expires must be positive")
	}

	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	req := api.CreateAPIKeyRequest{Name: name}
	if *expires > 0 {
		at := time.Now().Add(*expires).UTC()
		req.ExpiresAt = &at
	}

	resp, err := c.apiClient.CreateAPIKey(ctx, token, req)
	if err != nil {
		return serverError(err)
	}

	c.io.Println("✓ API key created")
	c.io.Printf("ID:   %s\n", resp.APIKey.ID)
	c.io.Printf("Name: %s\n", resp.APIKey.Name)
	c.io.Printf("Key:  %s\n", resp.Key)
	c.io.Println("⚠️  Store the key now, it will not be shown again.")
	return nil
}

func (c *Cli) runKeyList(ctx context.Context) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	keys, err := c.apiClient.ListAPIKeys(ctx, token)
	if err != nil {
		return serverError(err)
	}
	if len(keys) == 0 {
		c.io.Println("No API keys.")
		return nil
	}

	tw := tabwriter.NewWriter(c.io, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tNAME\tPREFIX\tACTIVE\tEXPIRES\tLAST USED")
	for _, k := range keys {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\t%s\n",
			k.ID, k.Name, k.Prefix, k.IsActive, formatTime(k.ExpiresAt, "never"), formatTime(k.LastUsedAt, "-"))
	}
	return tw.Flush()
}

func (c *Cli) runKeyRevoke(ctx context.Context, id string) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}
	if err := c.apiClient.RevokeAPIKey(ctx, token, id); err != nil {
		return serverError(err)
	}
	c.io.Printf("✓ API key %s revoked\n", id)
	return nil
}

func formatTime(t *time.Time, empty string) string {
	if t == nil {
		return empty
	}
	return t.Local().Format(time.RFC3339)
}
