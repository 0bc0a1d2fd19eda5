// Command gruechat-client is a line-oriented terminal client for the
// chat relay.
//
// Input is IRC-flavored: plain text speaks to everyone, and a handful of
// slash commands do the rest:
//
//	/msg <user> <text>     send an aside to one user
//	/me <action>           describe an action
//	/easter <key> <users>  something amusing
//	/who                   list connected users
//	/mode <user> <modes>   change a user's modes
//	/quit                  leave
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/gruenet/gruechat/internal/wire"
)

var (
	timeStyle     = lipgloss.NewStyle().Faint(true)
	userStyle     = lipgloss.NewStyle().Bold(true)
	infoStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	asideStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	describeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	byeStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

type client struct {
	conn     net.Conn
	writeMu  sync.Mutex
	username string
	password string
}

func main() {
	host := flag.String("host", "localhost", "server host")
	port := flag.Int("port", 61514, "server port")
	flag.Parse()

	username, password, err := promptCredentials(*host)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	addr := fmt.Sprintf("%s:%d", *host, *port)
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect %s: %v\n", addr, err)
		os.Exit(1)
	}
	defer conn.Close()

	c := &client{conn: conn, username: username, password: password}

	go c.readLoop()
	c.inputLoop()
}

func promptCredentials(host string) (string, string, error) {
	reader := bufio.NewReader(os.Stdin)

	fmt.Printf("gruechat username for %s: ", host)
	username, err := reader.ReadString('\n')
	if err != nil {
		return "", "", fmt.Errorf("read username: %w", err)
	}
	username = strings.TrimSpace(username)

	fmt.Printf("gruechat password for %s: ", username)
	secret, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", "", fmt.Errorf("read password: %w", err)
	}

	return username, string(secret), nil
}

// send writes one command line. The reader goroutine answers the auth
// prompt while the input loop sends chat, so writes are serialized.
func (c *client) send(cmd string, fields map[string]any) {
	msg := map[string]any{"cmd": cmd}
	for k, v := range fields {
		msg[k] = v
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.Write(append(data, '\n'))
}

// readLoop renders everything the server sends until the connection ends.
func (c *client) readLoop() {
	scanner := bufio.NewScanner(c.conn)
	for scanner.Scan() {
		cmd, fields, err := wire.Decode(scanner.Bytes())
		if err != nil {
			// Not speaking the same language; hang up.
			c.conn.Close()
			break
		}
		c.handle(cmd, fields)
	}
	fmt.Println(byeStyle.Render("*** Connection closed."))
	os.Exit(0)
}

func (c *client) handle(cmd string, f wire.Fields) {
	stamp := timeStyle.Render(formTime(f["time"].Float()))

	switch cmd {
	case "auth":
		c.send("auth", map[string]any{"user": c.username, "pswd": c.password})

	case "msg":
		from := f.Str("user")
		line := stamp + " "
		if to := f.Str("to"); to != "" {
			if from == c.username {
				line += asideStyle.Render(fmt.Sprintf("(aside to %s) ", to))
			} else {
				line += asideStyle.Render("(aside) ")
			}
		}
		line += userStyle.Render("<"+from+">") + " " + f.Str("what")
		fmt.Println(line)

	case "describe":
		fmt.Printf("%s %s\n", stamp,
			describeStyle.Render(fmt.Sprintf("* %s %s", f.Str("user"), f.Str("what"))))

	case "info":
		fmt.Printf("%s %s\n", stamp, infoStyle.Render("*** "+f.Str("msg")))

	case "bye":
		if reason := f.Str("msg"); reason != "" {
			fmt.Printf("%s %s\n", stamp,
				byeStyle.Render("*** Your connection was terminated because "+reason))
		} else {
			fmt.Printf("%s %s\n", stamp,
				byeStyle.Render("*** Your connection was terminated."))
		}
		c.conn.Close()

	default:
		// Unsupported server chatter; ignore.
	}
}

// inputLoop turns typed lines into commands until EOF or /quit.
func (c *client) inputLoop() {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "/") {
			c.send("msg", map[string]any{"what": line})
			continue
		}

		parts := strings.Split(line[1:], " ")
		switch strings.ToLower(parts[0]) {
		case "msg":
			if len(parts) < 3 {
				continue
			}
			c.send("msg", map[string]any{
				"to":   parts[1],
				"what": strings.Join(parts[2:], " "),
			})
		case "me":
			if len(parts) < 2 {
				continue
			}
			c.send("describe", map[string]any{"what": strings.Join(parts[1:], " ")})
		case "easter":
			if len(parts) < 3 {
				continue
			}
			c.send("easter", map[string]any{
				"key":     parts[1],
				"ustring": strings.Join(parts[2:], " "),
			})
		case "who":
			c.send("who", nil)
		case "mode":
			if len(parts) < 3 {
				continue
			}
			c.send("mode", map[string]any{
				"user":  parts[1],
				"modes": strings.Join(parts[2:], " "),
			})
		case "quit", "q":
			c.conn.Close()
			return
		default:
			// Unrecognized command; say nothing, send nothing.
		}
	}
	c.conn.Close()
}

func formTime(epoch float64) string {
	if epoch == 0 {
		return time.Now().Format("15:04:05")
	}
	sec := int64(epoch)
	nsec := int64((epoch - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec).Format("15:04:05")
}
