// pkg/descriptor/ssh.go

package descriptor

import (
	"path"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
	"mvdan.cc/sh/v3/syntax"
)

// ssh(1) options that take an argument.
const sshOptsWithArg = "BbcDEeFIiJLlmOoPpQRSWw"

var assignmentPrefix = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*=`)

type textEdit struct {
	start, end int
	text       string
}

// maxShellDepth bounds how many nested `sh -c` scripts are searched.
const maxShellDepth = 3

// shells whose -c argument is searched for ssh calls.
var shells = map[string]bool{"sh": true, "bash": true, "ash": true, "dash": true, "zsh": true}

// patchSSHHosts rewrites the destination host of every ssh call in value that
// disables strict host key checking. value may be a shell command or a
// KEY=command environment entry, and the ssh call may sit inside an
// `sh -c '...'` script. It returns the new value and the number of ssh calls
// matched, whether or not their host changed.
func patchSSHHosts(value, host string) (string, int) {
	if !strings.Contains(value, "ssh") {
		return value, 0
	}

	prefix := assignmentPrefix.FindString(value)
	script := value[len(prefix):]

	edits := sshEdits(script, host, 0, 0)
	if len(edits) == 0 {
		return value, 0
	}
	return prefix + applyEdits(script, edits), len(edits)
}

// sshEdits parses script and returns host edits with offsets shifted by base.
func sshEdits(script, host string, base, depth int) []textEdit {
	file, err := syntax.NewParser().Parse(strings.NewReader(script), "")
	if err != nil {
		return nil
	}

	var edits []textEdit
	syntax.Walk(file, func(node syntax.Node) bool {
		call, ok := node.(*syntax.CallExpr)
		if !ok {
			return true
		}
		if dest := sshDestination(call.Args); dest != nil {
			lit := dest.Lit()
			start := base + int(dest.Pos().Offset()) + strings.LastIndex(lit, "@") + 1
			edits = append(edits, textEdit{start: start, end: base + int(dest.End().Offset()), text: host})
			return true
		}
		if depth < maxShellDepth {
			if w := shellScript(call.Args); w != nil {
				if inner, off, ok := scriptLiteral(w); ok {
					edits = append(edits, sshEdits(inner, host, base+off, depth+1)...)
				}
			}
		}
		return true
	})
	return edits
}

// shellScript returns the script word of `sh [opts] -c <script>`, or nil.
func shellScript(args []*syntax.Word) *syntax.Word {
	if len(args) < 3 {
		return nil
	}
	name, _ := wordValue(args[0])
	if !shells[path.Base(name)] {
		return nil
	}
	for i := 1; i < len(args)-1; i++ {
		opt, ok := wordValue(args[i])
		if !ok || len(opt) < 2 || (opt[0] != '-' && opt[0] != '+') {
			return nil
		}
		if opt == "-o" || opt == "+o" {
			i++
			continue
		}
		if opt[0] == '-' && opt[1] != '-' && strings.ContainsRune(opt[1:], 'c') {
			return args[i+1]
		}
	}
	return nil
}

// scriptLiteral returns the text of a word that is one literal or quoted
// literal, with the byte offset where that text starts in the source.
// Words whose source text differs from their value are rejected.
func scriptLiteral(w *syntax.Word) (string, int, bool) {
	if len(w.Parts) != 1 {
		return "", 0, false
	}
	switch p := w.Parts[0].(type) {
	case *syntax.Lit:
		return rawLiteral(p)
	case *syntax.SglQuoted:
		if p.Dollar {
			return "", 0, false
		}
		return p.Value, int(p.Left.Offset()) + 1, true
	case *syntax.DblQuoted:
		if p.Dollar || len(p.Parts) != 1 {
			return "", 0, false
		}
		if lit, ok := p.Parts[0].(*syntax.Lit); ok {
			return rawLiteral(lit)
		}
	}
	return "", 0, false
}

func rawLiteral(l *syntax.Lit) (string, int, bool) {
	if strings.Contains(l.Value, `\`) {
		return "", 0, false
	}
	return l.Value, int(l.ValuePos.Offset()), true
}

// sshDestination returns the literal destination word of an ssh invocation
// carrying StrictHostKeyChecking=no, or nil.
func sshDestination(args []*syntax.Word) *syntax.Word {
	argv := make([]string, len(args))
	for i, w := range args {
		argv[i], _ = wordValue(w)
	}
	i := sshDestinationIndex(argv)
	if i < 0 || args[i].Lit() == "" {
		return nil
	}
	return args[i]
}

// argvSSHDestination returns the destination item of an exec-form
// command or entrypoint sequence that runs ssh, or nil.
func argvSSHDestination(seq *yaml.Node) *yaml.Node {
	argv := make([]string, 0, len(seq.Content))
	for _, item := range seq.Content {
		if item.Kind != yaml.ScalarNode {
			return nil
		}
		argv = append(argv, item.Value)
	}
	i := sshDestinationIndex(argv)
	if i < 0 || argv[i] == "" {
		return nil
	}
	return seq.Content[i]
}

// replaceHost swaps the part of an ssh destination after user@.
func replaceHost(dest, host string) string {
	return dest[:strings.LastIndex(dest, "@")+1] + host
}

// sshDestinationIndex returns the index of the destination in an ssh argv
// that disables strict host key checking, or -1. Entries that are not plain
// literals should be passed as "".
func sshDestinationIndex(argv []string) int {
	if len(argv) < 2 || path.Base(argv[0]) != "ssh" {
		return -1
	}

	dest := -1
	strict := false

args:
	for i := 1; i < len(argv); i++ {
		word := argv[i]
		switch {
		case word == "--":
			if dest < 0 && i+1 < len(argv) {
				dest = i + 1
			}
			break args
		case len(word) > 1 && word[0] == '-':
			// ssh accepts options on either side of the destination
			cluster := word[1:]
			for j, c := range cluster {
				if !strings.ContainsRune(sshOptsWithArg, c) {
					continue
				}
				optArg := cluster[j+1:]
				if optArg == "" && i+1 < len(argv) {
					i++
					optArg = argv[i]
				}
				if c == 'o' && isStrictHostKeyCheckingOff(optArg) {
					strict = true
				}
				break
			}
		case dest < 0:
			dest = i
		default:
			// first word of the remote command
			break args
		}
	}

	if !strict {
		return -1
	}
	return dest
}

func isStrictHostKeyCheckingOff(opt string) bool {
	key, val, ok := strings.Cut(opt, "=")
	if !ok {
		fields := strings.Fields(opt)
		if len(fields) != 2 {
			return false
		}
		key, val = fields[0], fields[1]
	}
	return strings.EqualFold(strings.TrimSpace(key), "StrictHostKeyChecking") &&
		strings.EqualFold(strings.TrimSpace(val), "no")
}

// wordValue resolves a word made only of literal and quoted-literal parts.
func wordValue(w *syntax.Word) (string, bool) {
	var sb strings.Builder
	for _, part := range w.Parts {
		switch p := part.(type) {
		case *syntax.Lit:
			sb.WriteString(p.Value)
		case *syntax.SglQuoted:
			sb.WriteString(p.Value)
		case *syntax.DblQuoted:
			for _, qp := range p.Parts {
				lit, ok := qp.(*syntax.Lit)
				if !ok {
					return "", false
				}
				sb.WriteString(lit.Value)
			}
		default:
			return "", false
		}
	}
	return sb.String(), true
}

func applyEdits(s string, edits []textEdit) string {
	sort.Slice(edits, func(i, j int) bool { return edits[i].start > edits[j].start })
	for _, e := range edits {
		s = s[:e.start] + e.text + s[e.end:]
	}
	return s
}
