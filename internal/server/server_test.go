package server

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"io"
	"net"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/ssh"
	"github.com/johan-st/sparql-tui/internal/config"
	gossh "golang.org/x/crypto/ssh"
)

var namePattern = regexp.MustCompile(`^[a-z]+-[a-z]+-\d{2}$`)

func TestNameGenerator(t *testing.T) {
	g := NewNameGenerator()
	for i := 0; i < 50; i++ {
		if name := g.Generate(); !namePattern.MatchString(name) {
			t.Fatalf("unexpected name %q", name)
		}
	}
	if NameForKey("SHA256:abc") != NameForKey("SHA256:abc") {
		t.Error("key names should be stable")
	}
	if !namePattern.MatchString(NameForKey("SHA256:abc")) {
		t.Errorf("unexpected key name %q", NameForKey("SHA256:abc"))
	}
}

func TestSessionManager(t *testing.T) {
	sm := NewSessionManager()
	a := sm.CreateSession("brave-otter-01", "", "10.0.0.1:1234", nil)
	b := sm.CreateSession("calm-heron-02", "SHA256:abc", "10.0.0.2:1234", []string{"status"})

	if sm.Count() != 2 {
		t.Fatalf("Count() = %d", sm.Count())
	}
	if a.ID == b.ID {
		t.Error("session IDs should be unique")
	}
	if !a.Interactive() || b.Interactive() {
		t.Error("Interactive() should follow the command")
	}
	if got := sm.GetSession(b.ID); got != b {
		t.Error("GetSession returned the wrong session")
	}

	list := sm.ListActiveSessions()
	if len(list) != 2 || list[0] != a {
		t.Error("sessions should be listed oldest first")
	}

	sm.UpdateActivity(a.ID)
	if a.IdleTime() > time.Second {
		t.Error("UpdateActivity should reset idle time")
	}

	sm.EndSession(a.ID)
	if sm.Count() != 1 || sm.GetSession(a.ID) != nil {
		t.Error("EndSession should remove the session")
	}
}

func TestFingerprintKey(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	key, err := gossh.NewPublicKey(pub)
	if err != nil {
		t.Fatal(err)
	}

	fp := FingerprintKey(key)
	if !strings.HasPrefix(fp, "SHA256:") {
		t.Errorf("fingerprint = %q", fp)
	}
	if fp != gossh.FingerprintSHA256(key)+"=" {
		t.Errorf("fingerprint %q does not match %q", fp, gossh.FingerprintSHA256(key))
	}
	if short := FingerprintKeyShort(key); len(short) != 23 || !strings.HasSuffix(short, "...") {
		t.Errorf("short fingerprint = %q", short)
	}
}

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

func TestServeRoutesCommands(t *testing.T) {
	addr := freeAddr(t)
	srv := NewServer(config.SSHConfig{
		Listen:      addr,
		HostKeyPath: filepath.Join(t.TempDir(), "keys", "host_key"),
	}, nil)
	srv.SetCLIHandler(func(s ssh.Session) {
		session := GetSessionFromSSH(s)
		if session == nil {
			fmt.Fprintln(s, "no session")
			return
		}
		fmt.Fprintf(s, "%s %s\n", session.Name, strings.Join(s.Command(), " "))
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	clientCfg := &gossh.ClientConfig{
		User: "anyone",
		Auth: []gossh.AuthMethod{
			gossh.KeyboardInteractive(func(string, string, []string, []bool) ([]string, error) {
				return nil, nil
			}),
		},
		HostKeyCallback: gossh.InsecureIgnoreHostKey(),
		Timeout:         2 * time.Second,
	}

	var client *gossh.Client
	deadline := time.Now().Add(3 * time.Second)
	for {
		var err error
		client, err = gossh.Dial("tcp", addr, clientCfg)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("dial: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}
	defer client.Close()

	sess, err := client.NewSession()
	if err != nil {
		t.Fatal(err)
	}
	defer sess.Close()

	stdout, err := sess.StdoutPipe()
	if err != nil {
		t.Fatal(err)
	}
	if err := sess.Start("status now"); err != nil {
		t.Fatal(err)
	}
	out, err := io.ReadAll(stdout)
	if err != nil {
		t.Fatal(err)
	}
	_ = sess.Wait()

	fields := strings.Fields(string(out))
	if len(fields) != 3 || !namePattern.MatchString(fields[0]) || fields[1] != "status" || fields[2] != "now" {
		t.Errorf("unexpected output %q", out)
	}
	if srv.GetSessionManager().Count() > 1 {
		t.Error("sessions should be released after the command ends")
	}
}
