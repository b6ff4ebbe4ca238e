package cli

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/ashton-edakk/AI-Executive-Assistant/internal/keyring"
)

// RemoteSetCmd stores the postgres connection string in the OS keyring.
// With a DSN stored, the app uses the postgres backend on next run.
type RemoteSetCmd struct {
	ConnectionString string `arg:"" help:"PostgreSQL connection string."`
}

func (c *RemoteSetCmd) Run(ctx *Context) error {
	if !strings.HasPrefix(c.ConnectionString, "postgres://") &&
		!strings.HasPrefix(c.ConnectionString, "postgresql://") &&
		!strings.Contains(c.ConnectionString, "host=") {
		return errors.New("connection string must be a valid PostgreSQL connection string")
	}
	if err := keyring.SetConnectionString(c.ConnectionString); err != nil {
		return err
	}
	fmt.Println("Connection string stored in OS keyring")
	fmt.Println("The postgres backend will be used from the next invocation")
	return nil
}

type RemoteClearCmd struct{}

func (c *RemoteClearCmd) Run(ctx *Context) error {
	if err := keyring.DeleteConnectionString(); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return errors.New("no connection string stored")
		}
		return err
	}
	fmt.Println("Connection string removed, reverting to local sqlite storage")
	return nil
}

type RemoteStatusCmd struct{}

func (c *RemoteStatusCmd) Run(ctx *Context) error {
	if !keyring.IsAvailable() {
		fmt.Println("OS keyring is not available on this system")
		return nil
	}
	dsn, err := keyring.GetConnectionString()
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			fmt.Println("No remote configured, using local sqlite storage")
			return nil
		}
		return err
	}
	fmt.Printf("Remote configured: %s\n", maskPassword(dsn))
	return nil
}

// maskPassword hides the password component of a DSN for display.
func maskPassword(dsn string) string {
	if u, err := url.Parse(dsn); err == nil && u.User != nil {
		if _, has := u.User.Password(); has {
			u.User = url.UserPassword(u.User.Username(), "****")
			return u.String()
		}
	}
	return dsn
}
