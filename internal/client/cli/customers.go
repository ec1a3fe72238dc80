package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/iudanet/custadmin/pkg/api"
)

func (c *Cli) runCustomers(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] != "list" {
		return errors.New("usage: customers list [-limit N] [-offset N]")
	}

	fs := flag.NewFlagSet("customers list", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	limit := fs.Int("limit", 50, "page size")
	offset := fs.Int("offset", 0, "records to skip")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	customers, err := c.apiClient.ListCustomers(ctx, token, *limit, *offset)
	if err != nil {
		return serverError(err)
	}
	if len(customers) == 0 {
		c.io.Println("No customers.")
		return nil
	}

	tw := tabwriter.NewWriter(c.io, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tTYPE\tNAME\tEMAIL\tPHONE\tSTATUS")
	for _, cu := range customers {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			cu.ID, cu.Type, displayName(cu), cu.Email, cu.Phone, cu.Status)
	}
	return tw.Flush()
}

func displayName(c api.Customer) string {
	if c.CompanyName != "" {
		return c.CompanyName
	}
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}
