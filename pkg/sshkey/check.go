// pkg/sshkey/check.go
//
// Preflight for the SSH key the mode-C descriptor mounts into the capture
// container. Nothing here is fatal: the operator may provision the key after
// starting, so results are reported and logged only.

package sshkey

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/CodeMonkeyCybersecurity/shovel/pkg/runconfig"
	"github.com/CodeMonkeyCybersecurity/shovel/pkg/telemetry"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
)

// Status values for Result.
const (
	StatusPass = "pass"
	StatusWarn = "warn"
	StatusFail = "fail"
)

// Result is the outcome of one key check.
type Result struct {
	Name    string
	Status  string
	Message string
	Details string
}

// OK reports whether the check passed.
func (r Result) OK() bool { return r.Status == StatusPass }

// publicKeyTypes maps an algorithm to the accepted public key type prefixes.
var publicKeyTypes = map[runconfig.KeyAlgorithm][]string{
	runconfig.KeyRSA:     {ssh.KeyAlgoRSA},
	runconfig.KeyEd25519: {ssh.KeyAlgoED25519},
	runconfig.KeyECDSA:   {"ecdsa-sha2-"},
	runconfig.KeyDSA:     {ssh.KeyAlgoDSA},
}

// DefaultDir returns ~/.ssh.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", cerr.Wrap(err, "failed to get user home directory")
	}
	return filepath.Join(home, ".ssh"), nil
}

// KeyPath returns the private key path for alg inside dir.
func KeyPath(dir string, alg runconfig.KeyAlgorithm) string {
	return filepath.Join(dir, alg.KeyFileName())
}

// CheckKey inspects dir/id_<alg>: it must exist, be private to the owner,
// parse as an SSH private key of the matching type, and agree with its .pub
// file when one exists. Passphrase-protected keys pass when the type can be
// determined.
func CheckKey(ctx context.Context, dir string, alg runconfig.KeyAlgorithm) Result {
	ctx, span := telemetry.Start(ctx, "sshkey.CheckKey", attribute.String("key_algorithm", string(alg)))
	defer span.End()
	logger := otelzap.Ctx(ctx)

	path := KeyPath(dir, alg)
	name := fmt.Sprintf("SSH key (%s)", alg.KeyFileName())
	logger.Debug("Checking SSH key", zap.String("path", path))

	info, err := os.Stat(path)
	if err != nil {
		return Result{
			Name:    name,
			Status:  StatusWarn,
			Message: "key file not found: " + path,
			Details: "Generate it with: ssh-keygen -t " + string(alg) + " -f " + path,
		}
	}
	if info.IsDir() {
		return Result{Name: name, Status: StatusFail, Message: path + " is a directory"}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Result{Name: name, Status: StatusFail, Message: "cannot read key file", Details: err.Error()}
	}

	var (
		pub       ssh.PublicKey
		protected bool
	)
	raw, err := ssh.ParseRawPrivateKey(data)
	var missing *ssh.PassphraseMissingError
	switch {
	case err == nil:
		signer, sErr := ssh.NewSignerFromKey(raw)
		if sErr != nil {
			return Result{Name: name, Status: StatusFail, Message: "unsupported private key", Details: sErr.Error()}
		}
		pub = signer.PublicKey()
	case cerr.As(err, &missing):
		protected = true
		pub = missing.PublicKey
	default:
		return Result{Name: name, Status: StatusFail, Message: "not a valid SSH private key", Details: err.Error()}
	}

	if pub == nil {
		pub = readPublicKey(path + ".pub")
	}
	if pub != nil && !typeMatches(alg, pub.Type()) {
		return Result{
			Name:    name,
			Status:  StatusFail,
			Message: fmt.Sprintf("key type %s does not match algorithm %s", pub.Type(), alg),
		}
	}
	if pub != nil {
		if filePub := readPublicKey(path + ".pub"); filePub != nil &&
			ssh.FingerprintSHA256(filePub) != ssh.FingerprintSHA256(pub) {
			return Result{
				Name:    name,
				Status:  StatusWarn,
				Message: "public key file does not match the private key",
				Details: path + ".pub",
			}
		}
	}

	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		return Result{
			Name:    name,
			Status:  StatusWarn,
			Message: fmt.Sprintf("key permissions %o are too open, ssh will refuse it", perm),
			Details: "Fix with: chmod 600 " + path,
		}
	}

	msg := "key present"
	if protected {
		msg = "key present (passphrase protected)"
	}
	if pub != nil {
		logger.Info("SSH key ok", zap.String("path", path), zap.String("fingerprint", ssh.FingerprintSHA256(pub)))
		return Result{Name: name, Status: StatusPass, Message: msg, Details: ssh.FingerprintSHA256(pub)}
	}
	return Result{Name: name, Status: StatusPass, Message: msg}
}

func readPublicKey(path string) ssh.PublicKey {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	pub, _, _, _, err := ssh.ParseAuthorizedKey(data)
	if err != nil {
		return nil
	}
	return pub
}

func typeMatches(alg runconfig.KeyAlgorithm, keyType string) bool {
	for _, prefix := range publicKeyTypes[alg] {
		if strings.HasPrefix(keyType, prefix) {
			return true
		}
	}
	return false
}
