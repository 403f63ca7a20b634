package daemon

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mobile-next/omniclick/commands"
	"github.com/sevlyar/go-daemon"
)

const (
	// DaemonEnvVar is the environment variable that marks a daemon child process
	DaemonEnvVar = "OMNICLICK_DAEMON_CHILD"

	killTimeout = 10 * time.Second
)

// Daemonize detaches the process and returns the child process handle
// If the returned process is nil, this is the child process
// If the returned process is non-nil, this is the parent process
func Daemonize() (*os.Process, error) {
	// no PID file needed
	// we don't want log file, server handles its own logging
	ctx := &daemon.Context{
		PidFileName: "",
		PidFilePerm: 0,
		LogFileName: "",
		LogFilePerm: 0,
		WorkDir:     "/",
		Umask:       027,
		Args:        os.Args,
		Env:         append(os.Environ(), fmt.Sprintf("%s=1", DaemonEnvVar)),
	}

	child, err := ctx.Reborn()
	if err != nil {
		return nil, fmt.Errorf("failed to daemonize: %w", err)
	}

	return child, nil
}

// IsChild returns true if this is the daemon child process
func IsChild() bool {
	return os.Getenv(DaemonEnvVar) == "1"
}

// KillServer asks the server at addr to close the overlay, which in turn
// stops the server process.
func KillServer(addr, token string) error {
	ctx, cancel := context.WithTimeout(context.Background(), killTimeout)
	defer cancel()

	if _, err := commands.NewClient(addr, token).Call(ctx, "close", nil); err != nil {
		return err
	}
	return nil
}
