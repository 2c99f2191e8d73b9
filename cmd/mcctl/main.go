// Command mcctl is a thin client for minecraftd's control socket: create,
// start, stop, restart, kill, attach, update, and list servers. It is
// intentionally minimal — no prompts, no progress spinners, no interactive
// wizard.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/term"

	"github.com/oriku/minecraftd/internal/config"
	"github.com/oriku/minecraftd/internal/control"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	socketPath, err := defaultSocketPath()
	if err != nil {
		fatal("%v", err)
	}

	switch os.Args[1] {
	case "create":
		cmdCreate(socketPath, os.Args[2:])
	case "start":
		cmdServerDirOnly(socketPath, os.Args[2:], "start", func(c *control.Client, dir string) (*control.Response, error) {
			return c.SendRequest(&control.Request{StartServer: &control.StartServerRequest{ServerDir: dir}})
		})
	case "stop":
		cmdServerDirOnly(socketPath, os.Args[2:], "stop", func(c *control.Client, dir string) (*control.Response, error) {
			return c.SendRequest(&control.Request{StopServer: &control.StopServerRequest{ServerDir: dir}})
		})
	case "restart":
		cmdServerDirOnly(socketPath, os.Args[2:], "restart", func(c *control.Client, dir string) (*control.Response, error) {
			return c.SendRequest(&control.Request{RestartServer: &control.RestartServerRequest{ServerDir: dir}})
		})
	case "kill":
		cmdServerDirOnly(socketPath, os.Args[2:], "kill", func(c *control.Client, dir string) (*control.Response, error) {
			return c.SendRequest(&control.Request{KillServer: &control.KillServerRequest{ServerDir: dir}})
		})
	case "attach":
		cmdAttach(socketPath, os.Args[2:])
	case "update":
		cmdUpdate(socketPath, os.Args[2:])
	case "ps":
		cmdPS(socketPath)
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: mcctl <create|start|stop|restart|kill|attach|update|ps> [args]")
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// defaultSocketPath resolves the daemon's control socket the same way the
// daemon itself resolves its runtime directory.
func defaultSocketPath() (string, error) {
	cfg, err := config.Load("")
	if err != nil && cfg == nil {
		return "", err
	}
	return filepath.Join(cfg.Daemon.RuntimeDir, "minecraftd.sock"), nil
}

// resolveServerDir returns arg as an absolute path, defaulting to the
// current directory when arg is empty.
func resolveServerDir(arg string) string {
	if arg == "" {
		arg = "."
	}
	abs, err := filepath.Abs(arg)
	if err != nil {
		fatal("resolve server directory: %v", err)
	}
	return abs
}

func cmdServerDirOnly(socketPath string, args []string, name string, send func(*control.Client, string) (*control.Response, error)) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Parse(args)
	dir := resolveServerDir(fs.Arg(0))

	c, err := control.Dial(socketPath)
	if err != nil {
		fatal("%v", err)
	}
	defer c.Close()

	if _, err := send(c, dir); err != nil {
		fatal("%v", err)
	}
	fmt.Printf("%s: ok\n", dir)
}

func cmdCreate(socketPath string, args []string) {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	name := fs.String("name", "", "server name")
	impl := fs.String("server-implementation", "vanilla", "server implementation")
	version := fs.String("version", "", "game version")
	build := fs.String("build", "", "build id")
	connection := fs.String("connection", "direct", `connection type: "direct" or "proxy"`)
	hostname := fs.String("hostname", "", "virtual hostname, required for proxy connections")
	fs.Parse(args)
	dir := resolveServerDir(fs.Arg(0))

	connType := control.ConnectionDirect
	if *connection == "proxy" {
		connType = control.ConnectionProxy
	}

	c, err := control.Dial(socketPath)
	if err != nil {
		fatal("%v", err)
	}
	defer c.Close()

	_, err = c.SendRequest(&control.Request{CreateServer: &control.CreateServerRequest{
		Name:                 *name,
		ServerDir:            dir,
		ServerImplementation: *impl,
		Version:              *version,
		Build:                *build,
		Connection:           connType,
		Hostname:             *hostname,
	}})
	if err != nil {
		fatal("%v", err)
	}
	fmt.Printf("%s: created\n", dir)
}

func cmdUpdate(socketPath string, args []string) {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	updateType := fs.String("update-type", "stable", `"stable" or "latest"`)
	fs.Parse(args)
	dir := resolveServerDir(fs.Arg(0))

	ut := control.UpdateStable
	if *updateType == "latest" {
		ut = control.UpdateLatest
	}

	c, err := control.Dial(socketPath)
	if err != nil {
		fatal("%v", err)
	}
	defer c.Close()

	resp, err := c.SendRequest(&control.Request{UpdateServer: &control.UpdateServerRequest{ServerDir: dir, UpdateType: ut}})
	if err != nil {
		fatal("%v", err)
	}
	u := resp.UpdateServer
	if u == nil || !u.Updated {
		fmt.Printf("%s: already up to date\n", dir)
		return
	}
	fmt.Printf("%s: updated %s/%s -> %s/%s\n", dir, u.OldVersion, u.OldBuild, u.NewVersion, u.NewBuild)
}

func cmdPS(socketPath string) {
	c, err := control.Dial(socketPath)
	if err != nil {
		fatal("%v", err)
	}
	defer c.Close()

	resp, err := c.SendRequest(&control.Request{GetRunningServers: &control.GetRunningServersRequest{}})
	if err != nil {
		fatal("%v", err)
	}

	servers := resp.GetRunningServers.Servers
	if len(servers) == 0 {
		fmt.Println("no running servers")
		return
	}
	for _, srv := range servers {
		players := "-"
		if srv.HasPlayers {
			players = fmt.Sprintf("%d/%d", srv.PlayersOnline, srv.PlayersMax)
		}
		fmt.Printf("%-30s %-10s port=%-6d players=%-8s %s\n", srv.Name, srv.Status, srv.ServerPort, players, srv.ServerDir)
	}
}

// cmdAttach upgrades the control connection into terminal framing and
// pipes stdin/stdout through it, putting the local terminal into raw mode
// for the duration so keystrokes (including Ctrl-C) reach the child
// process's PTY rather than this process.
func cmdAttach(socketPath string, args []string) {
	fs := flag.NewFlagSet("attach", flag.ExitOnError)
	fs.Parse(args)
	dir := resolveServerDir(fs.Arg(0))

	c, err := control.Dial(socketPath)
	if err != nil {
		fatal("%v", err)
	}
	defer c.Close()

	if _, err := c.SendRequest(&control.Request{AttachTerminal: &control.AttachTerminalRequest{ServerDir: dir}}); err != nil {
		fatal("%v", err)
	}

	conn := c.Conn()

	var restore func()
	if fd := int(os.Stdin.Fd()); term.IsTerminal(fd) {
		prev, err := term.MakeRaw(fd)
		if err == nil {
			restore = func() { term.Restore(fd, prev) }
			defer restore()
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			data, err := control.ReadFrame(conn)
			if err != nil {
				return
			}
			out, err := control.DecodeTerminalOutput(data)
			if err != nil {
				return
			}
			os.Stdout.Write(out.Content)
		}
	}()

	buf := make([]byte, 1024)
	for {
		n, err := os.Stdin.Read(buf)
		if n > 0 {
			payload := control.EncodeTerminalInput(&control.TerminalInput{Content: append([]byte(nil), buf[:n]...)})
			if writeErr := control.WriteFrame(conn, payload); writeErr != nil {
				break
			}
		}
		if err != nil {
			if err != io.EOF {
				fatal("stdin: %v", err)
			}
			break
		}
		select {
		case <-done:
			return
		default:
		}
	}
	<-done
}
