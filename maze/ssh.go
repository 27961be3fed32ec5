package maze

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// sshRetryDelay is the pause before re-running the remote reader
const sshRetryDelay = time.Second

// SSHTransport tails the controller's named pipe over SSH and writes
// commands into its command pipe
type SSHTransport struct {
	cfg       SSHConfig
	token     string
	addr      string
	clientCfg *ssh.ClientConfig
	retry     time.Duration

	mu     sync.Mutex
	client *ssh.Client
}

// NewSSHTransport prepares auth and host-key checking; it does not dial
func NewSSHTransport(cfg SSHConfig, token string) (*SSHTransport, error) {
	if token == "" {
		token = DefaultTerminateToken
	}
	auth, err := sshAuth(cfg)
	if err != nil {
		return nil, err
	}
	hostKey, err := sshHostKeyCallback(cfg)
	if err != nil {
		return nil, err
	}
	port := cfg.Port
	if port == 0 {
		port = 22
	}
	return &SSHTransport{
		cfg:   cfg,
		token: token,
		addr:  net.JoinHostPort(cfg.Host, strconv.Itoa(port)),
		clientCfg: &ssh.ClientConfig{
			User:            cfg.User,
			Auth:            auth,
			HostKeyCallback: hostKey,
			Timeout:         10 * time.Second,
		},
		retry: sshRetryDelay,
	}, nil
}

func sshAuth(cfg SSHConfig) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod
	if cfg.KeyFile != "" {
		pem, err := os.ReadFile(expandHome(cfg.KeyFile))
		if err != nil {
			return nil, fmt.Errorf("reading ssh key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(pem)
		if err != nil {
			return nil, fmt.Errorf("parsing ssh key: %w", err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}
	if cfg.Password != "" {
		methods = append(methods, ssh.Password(cfg.Password))
	}
	if len(methods) == 0 {
		return nil, errors.New("ssh transport needs a key file or a password")
	}
	return methods, nil
}

func sshHostKeyCallback(cfg SSHConfig) (ssh.HostKeyCallback, error) {
	if cfg.InsecureIgnoreHostKey {
		log.Printf("[SSH] Host key checking disabled for %s", cfg.Host)
		return ssh.InsecureIgnoreHostKey(), nil
	}
	path := cfg.KnownHostsFile
	if path == "" {
		path = "~/.ssh/known_hosts"
	}
	cb, err := knownhosts.New(expandHome(path))
	if err != nil {
		return nil, fmt.Errorf("loading known hosts: %w", err)
	}
	return cb, nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// shellQuote wraps s in single quotes for a POSIX shell
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func (t *SSHTransport) connect() (*ssh.Client, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client != nil {
		return t.client, nil
	}
	c, err := ssh.Dial("tcp", t.addr, t.clientCfg)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", t.addr, err)
	}
	log.Printf("[SSH] Connected to %s", t.addr)
	t.client = c
	return c, nil
}

func (t *SSHTransport) drop(c *ssh.Client) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client == c {
		t.client.Close()
		t.client = nil
	}
}

// Stream runs `cat <telemetryPath>` and forwards its output. When the remote
// reader ends or fails it is restarted after a short pause.
func (t *SSHTransport) Stream(ctx context.Context, out chan<- string) error {
	for {
		terminated, err := t.streamOnce(ctx, out)
		if terminated {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			log.Printf("[SSH] Telemetry reader: %v", err)
		}
		reconnectsTotal.WithLabelValues(TransportSSH).Inc()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(t.retry):
		}
	}
}

func (t *SSHTransport) streamOnce(ctx context.Context, out chan<- string) (bool, error) {
	client, err := t.connect()
	if err != nil {
		return false, err
	}
	sess, err := client.NewSession()
	if err != nil {
		t.drop(client)
		return false, fmt.Errorf("opening session: %w", err)
	}
	defer sess.Close()

	stdout, err := sess.StdoutPipe()
	if err != nil {
		return false, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := sess.Start("cat " + shellQuote(t.cfg.TelemetryPath)); err != nil {
		return false, fmt.Errorf("starting remote reader: %w", err)
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			sess.Close()
		case <-stop:
		}
	}()

	sc := bufio.NewScanner(stdout)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !emit(ctx, out, line) {
			return false, ctx.Err()
		}
		if line == t.token {
			return true, nil
		}
	}
	if err := sc.Err(); err != nil {
		return false, err
	}
	return false, sess.Wait()
}

func (t *SSHTransport) run(cmd string) error {
	client, err := t.connect()
	if err != nil {
		return err
	}
	sess, err := client.NewSession()
	if err != nil {
		t.drop(client)
		return fmt.Errorf("opening session: %w", err)
	}
	defer sess.Close()
	if out, err := sess.CombinedOutput(cmd); err != nil {
		return fmt.Errorf("%s: %w (%s)", cmd, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Send writes cmd into the command pipe
func (t *SSHTransport) Send(ctx context.Context, cmd string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := t.run(fmt.Sprintf("echo %s > %s", shellQuote(cmd), shellQuote(t.cfg.CommandPath)))
	countCommand(TransportSSH, err)
	if err != nil {
		return fmt.Errorf("ssh send: %w", err)
	}
	return nil
}

// Terminate writes the token into the telemetry pipe so the remote reader ends
func (t *SSHTransport) Terminate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.run(fmt.Sprintf("echo -n %s > %s", shellQuote(t.token), shellQuote(t.cfg.TelemetryPath)))
}

// Close drops the SSH connection
func (t *SSHTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client == nil {
		return nil
	}
	err := t.client.Close()
	t.client = nil
	return err
}
