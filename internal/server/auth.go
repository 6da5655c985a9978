package server

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	gossh "golang.org/x/crypto/ssh"
)

const (
	ctxKeyName        ctxKey = "name"
	ctxKeyFingerprint ctxKey = "fingerprint"
)

// Authenticator admits every client and gives it an anonymous name.
type Authenticator struct {
	names  *NameGenerator
	logger *log.Logger
}

// NewAuthenticator creates a new authenticator.
func NewAuthenticator(names *NameGenerator, logger *log.Logger) *Authenticator {
	return &Authenticator{names: names, logger: logger}
}

// PublicKeyHandler accepts any key and remembers its fingerprint.
func (a *Authenticator) PublicKeyHandler() ssh.PublicKeyHandler {
	return func(ctx ssh.Context, key ssh.PublicKey) bool {
		fingerprint := FingerprintKey(key)
		name := a.assignName(ctx, fingerprint)
		ctx.SetValue(ctxKeyFingerprint, fingerprint)
		a.logger.Debug("public key accepted", "remote", ctx.RemoteAddr(), "name", name, "key", FingerprintKeyShort(key))
		return true
	}
}

// KeyboardInteractiveHandler accepts clients without a key.
func (a *Authenticator) KeyboardInteractiveHandler() ssh.KeyboardInteractiveHandler {
	return func(ctx ssh.Context, _ gossh.KeyboardInteractiveChallenge) bool {
		name := a.assignName(ctx, "")
		a.logger.Debug("keyboard-interactive accepted", "remote", ctx.RemoteAddr(), "name", name)
		return true
	}
}

// assignName gives the connection a name once; later auth attempts on the
// same connection keep it. Key holders get a name derived from the key.
func (a *Authenticator) assignName(ctx ssh.Context, fingerprint string) string {
	if name, ok := ctx.Value(ctxKeyName).(string); ok && name != "" {
		return name
	}
	var name string
	if fingerprint != "" {
		name = NameForKey(fingerprint)
	} else {
		name = a.names.Generate()
	}
	ctx.SetValue(ctxKeyName, name)
	return name
}

// NameFromContext returns the anonymous name assigned during authentication.
func NameFromContext(ctx ssh.Context) string {
	if name, ok := ctx.Value(ctxKeyName).(string); ok {
		return name
	}
	return ""
}

// FingerprintFromContext returns the client key fingerprint, if any.
func FingerprintFromContext(ctx ssh.Context) string {
	if fp, ok := ctx.Value(ctxKeyFingerprint).(string); ok {
		return fp
	}
	return ""
}

// FingerprintKey returns the SHA256 fingerprint of a public key.
func FingerprintKey(key ssh.PublicKey) string {
	hash := sha256.Sum256(key.Marshal())
	return fmt.Sprintf("SHA256:%s", base64.StdEncoding.EncodeToString(hash[:]))
}

// FingerprintKeyShort returns a shortened fingerprint for display.
func FingerprintKeyShort(key ssh.PublicKey) string {
	fp := FingerprintKey(key)
	if len(fp) > 20 {
		return fp[:20] + "..."
	}
	return fp
}
