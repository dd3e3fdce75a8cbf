package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrinter_Prefixes(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)

	p.Success("TARGET_IP set to %s", "10.0.0.1")
	p.Info("using %s", "docker compose")
	p.Warn("docker daemon not reachable")
	p.Error("compose up failed")

	// a bytes.Buffer is not a terminal, so no escape codes are emitted
	assert.Equal(t,
		"[+] TARGET_IP set to 10.0.0.1\n"+
			"[*] using docker compose\n"+
			"[!] docker daemon not reachable\n"+
			"[-] compose up failed\n",
		buf.String())
}

func TestPrinter_Box(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)
	p.Box("Target IP: 10.0.0.1\n")

	out := buf.String()
	assert.Contains(t, out, "Target IP: 10.0.0.1")
	assert.Contains(t, out, "╭")
	assert.Same(t, &buf, p.Writer())
}
