// Package ircconn adapts an ergochat/irc-go connection to the agent's
// chat.Transport and turns incoming IRC lines into chat events.
package ircconn

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/ergochat/irc-go/ircevent"
	"github.com/ergochat/irc-go/ircmsg"
	"go.uber.org/zap"

	"github.com/rcliao/logbot/internal/chat"
)

const DefaultPort = 6667

var errNotConnected = errors.New("irc: not connected")

// Server is one entry of the server list.
type Server struct {
	Host string
	Port int
	TLS  bool
}

func (s Server) addr() string {
	port := s.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(s.Host, strconv.Itoa(port))
}

// Options configures a Conn.
type Options struct {
	// Servers are tried in order until one accepts the connection.
	Servers  []Server
	Nick     string
	RealName string
	Logger   *zap.Logger
}

// Conn is a chat.Transport over one IRC connection.
type Conn struct {
	opts   Options
	logger *zap.Logger

	mu       sync.Mutex
	conn     *ircevent.Connection
	quitting bool
}

var _ chat.Transport = (*Conn)(nil)

// New returns an unconnected Conn.
func New(opts Options) *Conn {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Conn{opts: opts, logger: opts.Logger}
}

// Run connects to the first reachable server, feeds every translated
// event to dispatch and blocks until Quit is called. dispatch runs on
// the connection's read goroutine.
func (c *Conn) Run(dispatch func(chat.Event)) error {
	if len(c.opts.Servers) == 0 {
		return errors.New("irc: no servers configured")
	}

	var errs []error
	for _, srv := range c.opts.Servers {
		if c.isQuitting() {
			return nil
		}
		conn := c.newConnection(srv, dispatch)
		c.logger.Info("connecting", zap.String("server", conn.Server), zap.Bool("tls", srv.TLS))
		if err := conn.Connect(); err != nil {
			c.logger.Warn("connect failed", zap.String("server", conn.Server), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", conn.Server, err))
			continue
		}

		c.mu.Lock()
		c.conn = conn
		quitting := c.quitting
		c.mu.Unlock()
		if quitting {
			conn.Quit()
		}

		conn.Loop()
		c.logger.Info("disconnected", zap.String("server", conn.Server))
		return nil
	}
	return fmt.Errorf("irc: connect: %w", errors.Join(errs...))
}

func (c *Conn) newConnection(srv Server, dispatch func(chat.Event)) *ircevent.Connection {
	conn := &ircevent.Connection{
		Server:   srv.addr(),
		Nick:     c.opts.Nick,
		User:     c.opts.Nick,
		RealName: c.opts.RealName,
		UseTLS:   srv.TLS,
		Log:      zap.NewStdLog(c.logger.Named("irc")),
	}
	if srv.TLS {
		conn.TLSConfig = &tls.Config{ServerName: srv.Host}
	}

	forward := func(m ircmsg.Message) {
		if ev, ok := translate(m); ok {
			dispatch(ev)
		}
	}
	conn.AddConnectCallback(func(ircmsg.Message) {
		dispatch(chat.Event{Kind: chat.Welcome})
	})
	for _, code := range []string{"JOIN", "PART", "QUIT", "KICK", "NICK", "PRIVMSG", "INVITE", "MODE", "353", "433"} {
		conn.AddCallback(code, forward)
	}
	return conn
}

func (c *Conn) isQuitting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.quitting
}

func (c *Conn) current() (*ircevent.Connection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil, errNotConnected
	}
	return c.conn, nil
}

func (c *Conn) Send(target, text string) error {
	conn, err := c.current()
	if err != nil {
		return err
	}
	return conn.Privmsg(target, text)
}

func (c *Conn) Join(channel string) error {
	conn, err := c.current()
	if err != nil {
		return err
	}
	return conn.Join(channel)
}

func (c *Conn) Mode(channel string, args ...string) error {
	conn, err := c.current()
	if err != nil {
		return err
	}
	return conn.Send("MODE", append([]string{channel}, args...)...)
}

func (c *Conn) SetNick(nick string) error {
	conn, err := c.current()
	if err != nil {
		return err
	}
	conn.SetNick(nick)
	return nil
}

// CurrentNick is the nick the server knows the agent by, or the
// configured one before registration.
func (c *Conn) CurrentNick() string {
	conn, err := c.current()
	if err != nil {
		return c.opts.Nick
	}
	return conn.CurrentNick()
}

// Quit sends QUIT with reason and makes Run return. Called before a
// connection is up, it stops Run from connecting.
func (c *Conn) Quit(reason string) error {
	c.mu.Lock()
	c.quitting = true
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	conn.QuitMessage = reason
	conn.Quit()
	return nil
}
